// README: Bike station charges the daily rate plus pending fines and tracks returns.
package bike

import (
	"context"
	"sync"
	"time"

	"farecard/internal/clock"
	"farecard/internal/modules/card"
)

type Station struct {
	store FineStore
	rates Rates
	clock clock.Clock

	mu   sync.Mutex
	last *Receipt
}

func NewStation(store FineStore, rates Rates, clk clock.Clock) *Station {
	return &Station{store: store, rates: rates, clock: clk}
}

func (s *Station) Rates() Rates { return s.rates }

// Charge debits c the daily rate plus its pending fines through the raw
// ledger, so no fare policy discount applies, and returns the receipt to
// commit. It writes nothing to the fine store. A failed charge clears
// LastReceipt.
func (s *Station) Charge(ctx context.Context, c *card.Card) (*Receipt, error) {
	now := s.clock.Now()
	pending, err := s.store.Pending(ctx, c.ID())
	if err != nil {
		return nil, err
	}
	due := s.rates.Due(pending)

	if err := c.Debit(due); err != nil {
		s.setLast(nil)
		return nil, err
	}
	return &Receipt{
		CardID:       c.ID(),
		IssuedAt:     now,
		PolicyLabel:  c.Policy().Label(),
		DailyRate:    s.rates.DailyRate,
		FinesApplied: pending,
		HadFine:      pending > 0,
		AmountPaid:   due,
		BalanceAfter: c.Balance(),
	}, nil
}

// Commit settles the fines a charged receipt paid, opens the withdrawal and
// makes r the last receipt. Call it only once the charged card is persisted.
func (s *Station) Commit(ctx context.Context, r *Receipt) error {
	if err := s.store.CheckedOut(ctx, r.CardID, r.IssuedAt); err != nil {
		return err
	}
	s.setLast(r)
	return nil
}

// CheckIn closes the open withdrawal of c, if any, and leaves the fines it
// earned pending for the next checkout.
func (s *Station) CheckIn(ctx context.Context, c *card.Card) (int, error) {
	now := s.clock.Now()
	at, ok, err := s.store.Withdrawal(ctx, c.ID())
	if err != nil || !ok {
		return 0, err
	}
	fines := FinesFor(now.Sub(at))
	if err := s.store.CheckedIn(ctx, c.ID(), fines, now); err != nil {
		return 0, err
	}
	return fines, nil
}

// PendingFines counts fines waiting for the next checkout plus those already
// accrued on a bike that is still out.
func (s *Station) PendingFines(ctx context.Context, c *card.Card) (int, error) {
	n, err := s.store.Pending(ctx, c.ID())
	if err != nil {
		return 0, err
	}
	at, ok, err := s.store.Withdrawal(ctx, c.ID())
	if err != nil {
		return 0, err
	}
	if ok {
		n += FinesFor(s.clock.Now().Sub(at))
	}
	return n, nil
}

func (s *Station) FineHistory(ctx context.Context, c *card.Card) ([]time.Time, error) {
	h, err := s.store.History(ctx, c.ID())
	if err != nil {
		return nil, err
	}
	if h == nil {
		h = []time.Time{}
	}
	return h, nil
}

func (s *Station) LastReceipt() *Receipt {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return nil
	}
	r := *s.last
	return &r
}

func (s *Station) setLast(r *Receipt) {
	s.mu.Lock()
	s.last = r
	s.mu.Unlock()
}
