// README: Route charges a card for one boarding and keeps the last ticket it issued.
package route

import (
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"farecard/internal/clock"
	"farecard/internal/modules/card"
)

type Route struct {
	id    string
	kind  Kind
	base  decimal.Decimal
	clock clock.Clock

	mu   sync.Mutex
	last *Ticket
}

func New(id string, kind Kind, fares Fares, clk clock.Clock) (*Route, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrBadRequest
	}
	base, err := fares.Base(kind)
	if err != nil {
		return nil, err
	}
	return &Route{id: id, kind: kind, base: base, clock: clk}, nil
}

func (r *Route) ID() string                { return r.id }
func (r *Route) Kind() Kind                { return r.kind }
func (r *Route) BaseFare() decimal.Decimal { return r.base }

// ChargeCard settles one boarding of c on this route. A free transfer takes
// precedence over the card's fare policy. On error the card does not change.
// The ticket becomes LastTicket only through record, after the card is saved.
// The caller must own c (see card.Service.With).
func (r *Route) ChargeCard(c *card.Card) (*Ticket, error) {
	now := r.clock.Now()
	due := c.AmountDue(r.base)
	transfer := c.IsTransferEligible(now, r.id)

	charged := decimal.Zero
	if transfer {
		if err := c.PayTransfer(); err != nil {
			return nil, err
		}
	} else {
		var err error
		if charged, err = c.Pay(due, r.base); err != nil {
			return nil, err
		}
	}
	c.RecordTransfer(now, r.id)

	t := &Ticket{
		CardID:        c.ID(),
		RouteID:       r.id,
		Kind:          r.kind,
		IssuedAt:      now,
		PolicyLabel:   c.Policy().Label(),
		BaseFare:      r.base,
		AmountCharged: charged,
		TotalPaid:     charged,
		BalanceAfter:  c.Balance(),
		Transfer:      transfer,
	}
	return t, nil
}

func (r *Route) record(t *Ticket) {
	r.mu.Lock()
	r.last = t
	r.mu.Unlock()
}

// LastTicket returns a copy of the most recent ticket, or nil before the first
// boarding.
func (r *Route) LastTicket() *Ticket {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.last == nil {
		return nil
	}
	t := *r.last
	return &t
}

// Registry hands out one shared Route per line id.
type Registry struct {
	fares Fares
	clock clock.Clock

	mu     sync.Mutex
	routes map[string]*Route
}

func NewRegistry(fares Fares, clk clock.Clock) *Registry {
	return &Registry{fares: fares, clock: clk, routes: make(map[string]*Route)}
}

// Resolve returns the registered route for id, or a new unregistered one with
// kind when the line has not been boarded yet. An empty kind means the line's
// own kind, or urban for a new line.
func (g *Registry) Resolve(id string, kind Kind) (*Route, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if r, ok := g.routes[id]; ok {
		if kind != "" && kind != r.kind {
			return nil, ErrKindMismatch
		}
		return r, nil
	}
	if kind == "" {
		kind = KindUrban
	}
	return New(id, kind, g.fares, g.clock)
}

// Pin registers r for its line and returns the route that owns the line. A
// line keeps the kind of its first successful boarding.
func (g *Registry) Pin(r *Route) (*Route, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if cur, ok := g.routes[r.id]; ok {
		if cur.kind != r.kind {
			return nil, ErrKindMismatch
		}
		return cur, nil
	}
	g.routes[r.id] = r
	return r, nil
}

// Lookup returns a route that already exists.
func (g *Registry) Lookup(id string) (*Route, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	r, ok := g.routes[id]
	return r, ok
}
