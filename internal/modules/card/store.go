// README: Card store backed by PostgreSQL, plus an in-memory store for tests and local runs.
package card

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"farecard/internal/types"
)

// Repository loads and saves card snapshots. Cards are provisioned elsewhere;
// Load returns ErrNotFound for ids it has never seen.
type Repository interface {
	Load(ctx context.Context, id types.ID) (Snapshot, error)
	Save(ctx context.Context, s Snapshot) error
}

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func (s *Store) Load(ctx context.Context, id types.ID) (Snapshot, error) {
	row := s.db.QueryRow(ctx, `
        SELECT id, policy, balance::text, pending_credit::text,
               monthly_trips, counted_month, counted_year, daily_trips,
               last_policy_trip, last_boarding, last_transfer_at, last_transfer_route
        FROM cards
        WHERE id = $1`, string(id),
	)

	var snap Snapshot
	var balance, pending string
	var transferRoute *string
	err := row.Scan(
		&snap.ID, &snap.Policy, &balance, &pending,
		&snap.MonthlyTrips, &snap.CountedMonth, &snap.CountedYear, &snap.DailyTrips,
		&snap.LastPolicyTrip, &snap.LastBoarding, &snap.LastTransferAt, &transferRoute,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Snapshot{}, ErrNotFound
	}
	if err != nil {
		return Snapshot{}, err
	}

	if snap.Balance, err = decimal.NewFromString(balance); err != nil {
		return Snapshot{}, fmt.Errorf("card %s balance: %w", id, err)
	}
	if snap.PendingCredit, err = decimal.NewFromString(pending); err != nil {
		return Snapshot{}, fmt.Errorf("card %s pending credit: %w", id, err)
	}
	if transferRoute != nil {
		snap.LastTransferRoute = *transferRoute
	}
	return snap, nil
}

func (s *Store) Save(ctx context.Context, snap Snapshot) error {
	_, err := s.db.Exec(ctx, `
        INSERT INTO cards (
            id, policy, balance, pending_credit,
            monthly_trips, counted_month, counted_year, daily_trips,
            last_policy_trip, last_boarding, last_transfer_at, last_transfer_route, updated_at
        ) VALUES (
            $1, $2, $3::numeric, $4::numeric,
            $5, $6, $7, $8,
            $9, $10, $11, $12, $13
        )
        ON CONFLICT (id) DO UPDATE SET
            balance = EXCLUDED.balance,
            pending_credit = EXCLUDED.pending_credit,
            monthly_trips = EXCLUDED.monthly_trips,
            counted_month = EXCLUDED.counted_month,
            counted_year = EXCLUDED.counted_year,
            daily_trips = EXCLUDED.daily_trips,
            last_policy_trip = EXCLUDED.last_policy_trip,
            last_boarding = EXCLUDED.last_boarding,
            last_transfer_at = EXCLUDED.last_transfer_at,
            last_transfer_route = EXCLUDED.last_transfer_route,
            updated_at = EXCLUDED.updated_at`,
		string(snap.ID),
		string(snap.Policy),
		snap.Balance.String(),
		snap.PendingCredit.String(),
		snap.MonthlyTrips, snap.CountedMonth, snap.CountedYear, snap.DailyTrips,
		snap.LastPolicyTrip, snap.LastBoarding, snap.LastTransferAt,
		nullString(snap.LastTransferRoute),
		time.Now().UTC(),
	)
	return err
}

func nullString(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

// MemoryStore keeps snapshots in process.
type MemoryStore struct {
	mu    sync.Mutex
	cards map[types.ID]Snapshot
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{cards: make(map[types.ID]Snapshot)}
}

func (m *MemoryStore) Load(_ context.Context, id types.ID) (Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.cards[id]
	if !ok {
		return Snapshot{}, ErrNotFound
	}
	return s, nil
}

func (m *MemoryStore) Save(_ context.Context, s Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cards[s.ID] = s
	return nil
}
