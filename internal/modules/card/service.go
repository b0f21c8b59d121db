// README: Card service serializes every operation on one card id and persists the result.
package card

import (
	"context"
	"errors"
	"hash/fnv"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"farecard/internal/clock"
	"farecard/internal/types"
)

var (
	ErrNotFound          = errors.New("card not found")
	ErrBadRequest        = errors.New("bad request")
	ErrUnknownPolicy     = errors.New("unknown fare policy")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrCooldown          = errors.New("half fare cooldown in effect")
)

type TopUpCommand struct {
	CardID types.ID
	Amount decimal.Decimal
}

// lockStripes bounds the per-card locks; ids hashing to the same stripe are
// serialized together.
const lockStripes = 256

type Service struct {
	repo  Repository
	clock clock.Clock
	log   *zap.Logger

	locks [lockStripes]sync.Mutex
}

func NewService(repo Repository, clk clock.Clock, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{repo: repo, clock: clk, log: log}
}

func (s *Service) Clock() clock.Clock {
	return s.clock
}

func (s *Service) lock(id types.ID) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(id))
	return &s.locks[h.Sum32()%lockStripes]
}

// With runs fn as the single owner of card id: load, fn, save. Calls for the
// same id are serialized. When fn fails the card is not saved.
func (s *Service) With(ctx context.Context, id types.ID, fn func(c *Card) error) error {
	return s.WithCommit(ctx, id, fn, nil)
}

// WithCommit is With plus commit, which runs under the same lock only after
// the card was saved. Side effects outside the card belong in commit. If
// commit fails the card is saved back as it was loaded.
func (s *Service) WithCommit(ctx context.Context, id types.ID, fn func(c *Card) error, commit func() error) error {
	if id == "" {
		return ErrBadRequest
	}
	l := s.lock(id)
	l.Lock()
	defer l.Unlock()

	snap, err := s.repo.Load(ctx, id)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.log.Error("load card", zap.String("card_id", string(id)), zap.Error(err))
		}
		return err
	}
	c, err := Restore(snap, s.clock)
	if err != nil {
		s.log.Error("restore card", zap.String("card_id", string(id)), zap.Error(err))
		return err
	}

	if err := fn(c); err != nil {
		return err
	}

	if err := s.repo.Save(ctx, c.Snapshot()); err != nil {
		s.log.Error("save card", zap.String("card_id", string(id)), zap.Error(err))
		return err
	}
	if commit == nil {
		return nil
	}
	if err := commit(); err != nil {
		if rerr := s.repo.Save(ctx, snap); rerr != nil {
			s.log.Error("roll back card", zap.String("card_id", string(id)), zap.Error(rerr))
		}
		return err
	}
	return nil
}

// View runs fn on card id under the same lock as With but never saves.
func (s *Service) View(ctx context.Context, id types.ID, fn func(c *Card) error) error {
	if id == "" {
		return ErrBadRequest
	}
	l := s.lock(id)
	l.Lock()
	defer l.Unlock()

	snap, err := s.repo.Load(ctx, id)
	if err != nil {
		return err
	}
	c, err := Restore(snap, s.clock)
	if err != nil {
		return err
	}
	return fn(c)
}

func (s *Service) Get(ctx context.Context, id types.ID) (Snapshot, error) {
	if id == "" {
		return Snapshot{}, ErrBadRequest
	}
	l := s.lock(id)
	l.Lock()
	defer l.Unlock()
	return s.repo.Load(ctx, id)
}

// Register stores a card provisioned by the caller.
func (s *Service) Register(ctx context.Context, c *Card) error {
	l := s.lock(c.ID())
	l.Lock()
	defer l.Unlock()
	return s.repo.Save(ctx, c.Snapshot())
}

func (s *Service) TopUp(ctx context.Context, cmd TopUpCommand) (Snapshot, error) {
	var out Snapshot
	err := s.With(ctx, cmd.CardID, func(c *Card) error {
		if err := c.TopUp(cmd.Amount); err != nil {
			return err
		}
		out = c.Snapshot()
		return nil
	})
	if err != nil {
		return Snapshot{}, err
	}
	s.log.Info("card topped up",
		zap.String("card_id", string(cmd.CardID)),
		zap.String("amount", cmd.Amount.String()),
		zap.String("balance", out.Balance.String()),
		zap.String("pending_credit", out.PendingCredit.String()),
	)
	return out, nil
}
