// README: Bike service runs station operations inside the card's critical section.
package bike

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"farecard/internal/modules/card"
	"farecard/internal/types"
)

var ErrNoReceipt = errors.New("no receipt issued yet")

type Service struct {
	cards   *card.Service
	station *Station
	log     *zap.Logger
}

func NewService(cards *card.Service, station *Station, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{cards: cards, station: station, log: log}
}

func (s *Service) CheckOut(ctx context.Context, id types.ID) (*Receipt, error) {
	var receipt *Receipt
	err := s.cards.WithCommit(ctx, id, func(c *card.Card) error {
		r, err := s.station.Charge(ctx, c)
		if err != nil {
			return err
		}
		receipt = r
		return nil
	}, func() error {
		return s.station.Commit(ctx, receipt)
	})
	if err != nil {
		s.log.Info("bike checkout rejected", zap.String("card_id", string(id)), zap.Error(err))
		return nil, err
	}
	s.log.Info("bike checkout",
		zap.String("card_id", string(id)),
		zap.String("paid", receipt.AmountPaid.String()),
		zap.Int("fines_applied", receipt.FinesApplied),
	)
	return receipt, nil
}

// CheckIn returns the number of fines the rental earned.
func (s *Service) CheckIn(ctx context.Context, id types.ID) (int, error) {
	var fines int
	err := s.cards.View(ctx, id, func(c *card.Card) error {
		n, err := s.station.CheckIn(ctx, c)
		fines = n
		return err
	})
	if err != nil {
		return 0, err
	}
	if fines > 0 {
		s.log.Info("bike returned late", zap.String("card_id", string(id)), zap.Int("fines", fines))
	}
	return fines, nil
}

func (s *Service) Fines(ctx context.Context, id types.ID) (FineReport, error) {
	report := FineReport{CardID: id}
	err := s.cards.View(ctx, id, func(c *card.Card) error {
		n, err := s.station.PendingFines(ctx, c)
		if err != nil {
			return err
		}
		h, err := s.station.FineHistory(ctx, c)
		if err != nil {
			return err
		}
		report.Pending, report.History = n, h
		return nil
	})
	if err != nil {
		return FineReport{}, err
	}
	return report, nil
}

func (s *Service) LastReceipt() (*Receipt, error) {
	r := s.station.LastReceipt()
	if r == nil {
		return nil, ErrNoReceipt
	}
	return r, nil
}
