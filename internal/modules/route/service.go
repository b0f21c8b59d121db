// README: Boarding service runs a route charge inside the card's critical section.
package route

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"farecard/internal/modules/card"
	"farecard/internal/types"
)

var (
	ErrBadRequest   = errors.New("bad request")
	ErrUnknownKind  = errors.New("unknown route kind")
	ErrKindMismatch = errors.New("route already registered with another kind")
	ErrNoTicket     = errors.New("no ticket issued yet")
)

type BoardCommand struct {
	RouteID string
	Kind    Kind
	CardID  types.ID
}

type Service struct {
	cards  *card.Service
	routes *Registry
	log    *zap.Logger
}

func NewService(cards *card.Service, routes *Registry, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{cards: cards, routes: routes, log: log}
}

func (s *Service) Board(ctx context.Context, cmd BoardCommand) (*Ticket, error) {
	if cmd.RouteID == "" || cmd.CardID == "" {
		return nil, ErrBadRequest
	}
	if cmd.Kind != "" && !cmd.Kind.Valid() {
		return nil, ErrUnknownKind
	}

	var (
		r      *Route
		ticket *Ticket
	)
	err := s.cards.WithCommit(ctx, cmd.CardID, func(c *card.Card) error {
		var err error
		if r, err = s.routes.Resolve(cmd.RouteID, cmd.Kind); err != nil {
			return err
		}
		ticket, err = r.ChargeCard(c)
		return err
	}, func() error {
		owner, err := s.routes.Pin(r)
		if err != nil {
			return err
		}
		owner.record(ticket)
		return nil
	})
	if err != nil {
		s.log.Info("boarding rejected",
			zap.String("route_id", cmd.RouteID),
			zap.String("card_id", string(cmd.CardID)),
			zap.Error(err),
		)
		return nil, err
	}

	s.log.Info("boarding",
		zap.String("route_id", ticket.RouteID),
		zap.String("card_id", string(ticket.CardID)),
		zap.String("policy", ticket.PolicyLabel),
		zap.String("charged", ticket.AmountCharged.String()),
		zap.Bool("transfer", ticket.Transfer),
	)
	return ticket, nil
}

func (s *Service) LastTicket(routeID string) (*Ticket, error) {
	r, ok := s.routes.Lookup(routeID)
	if !ok {
		return nil, ErrNoTicket
	}
	t := r.LastTicket()
	if t == nil {
		return nil, ErrNoTicket
	}
	return t, nil
}
