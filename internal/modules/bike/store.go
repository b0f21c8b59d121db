// README: Bike fine state backed by Redis, plus an in-memory store for tests and local runs.
package bike

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"farecard/internal/types"
)

// FineStore keeps, per card, the open withdrawal, the fines waiting for the
// next checkout and the history of returns that produced fines.
type FineStore interface {
	Withdrawal(ctx context.Context, id types.ID) (time.Time, bool, error)
	Pending(ctx context.Context, id types.ID) (int, error)
	History(ctx context.Context, id types.ID) ([]time.Time, error)
	// CheckedOut clears pending fines and opens a withdrawal at at.
	CheckedOut(ctx context.Context, id types.ID, at time.Time) error
	// CheckedIn closes the withdrawal. When fines > 0 they become pending and at
	// is appended to the history.
	CheckedIn(ctx context.Context, id types.ID, fines int, at time.Time) error
}

const (
	withdrawalKeyPrefix = "bike:card:%s:withdrawn_at"
	pendingKeyPrefix    = "bike:card:%s:pending_fines"
	historyKeyPrefix    = "bike:card:%s:fine_history"
	// history is kept for a year after the last fine.
	historyTTL = 365 * 24 * time.Hour
)

type RedisStore struct {
	redis *redis.Client
}

func NewRedisStore(redis *redis.Client) *RedisStore {
	return &RedisStore{redis: redis}
}

func (s *RedisStore) Withdrawal(ctx context.Context, id types.ID) (time.Time, bool, error) {
	val, err := s.redis.Get(ctx, withdrawalKey(id)).Result()
	if err == redis.Nil {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	t, err := time.Parse(time.RFC3339Nano, val)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("withdrawal of %s: %w", id, err)
	}
	return t, true, nil
}

func (s *RedisStore) Pending(ctx context.Context, id types.ID) (int, error) {
	n, err := s.redis.Get(ctx, pendingKey(id)).Int()
	if err == redis.Nil {
		return 0, nil
	}
	return n, err
}

func (s *RedisStore) History(ctx context.Context, id types.ID) ([]time.Time, error) {
	vals, err := s.redis.LRange(ctx, historyKey(id), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]time.Time, 0, len(vals))
	for _, v := range vals {
		t, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return nil, fmt.Errorf("fine history of %s: %w", id, err)
		}
		out = append(out, t)
	}
	return out, nil
}

func (s *RedisStore) CheckedOut(ctx context.Context, id types.ID, at time.Time) error {
	pipe := s.redis.TxPipeline()
	pipe.Del(ctx, pendingKey(id))
	pipe.Set(ctx, withdrawalKey(id), at.Format(time.RFC3339Nano), 0)
	_, err := pipe.Exec(ctx)
	return err
}

func (s *RedisStore) CheckedIn(ctx context.Context, id types.ID, fines int, at time.Time) error {
	pipe := s.redis.TxPipeline()
	pipe.Del(ctx, withdrawalKey(id))
	if fines > 0 {
		pipe.Set(ctx, pendingKey(id), strconv.Itoa(fines), 0)
		pipe.RPush(ctx, historyKey(id), at.Format(time.RFC3339Nano))
		pipe.Expire(ctx, historyKey(id), historyTTL)
	}
	_, err := pipe.Exec(ctx)
	return err
}

func withdrawalKey(id types.ID) string {
	return fmt.Sprintf(withdrawalKeyPrefix, string(id))
}

func pendingKey(id types.ID) string {
	return fmt.Sprintf(pendingKeyPrefix, string(id))
}

func historyKey(id types.ID) string {
	return fmt.Sprintf(historyKeyPrefix, string(id))
}

// MemoryStore keeps fine state in process.
type MemoryStore struct {
	mu          sync.Mutex
	withdrawals map[types.ID]time.Time
	pending     map[types.ID]int
	history     map[types.ID][]time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		withdrawals: make(map[types.ID]time.Time),
		pending:     make(map[types.ID]int),
		history:     make(map[types.ID][]time.Time),
	}
}

func (m *MemoryStore) Withdrawal(_ context.Context, id types.ID) (time.Time, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.withdrawals[id]
	return t, ok, nil
}

func (m *MemoryStore) Pending(_ context.Context, id types.ID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pending[id], nil
}

func (m *MemoryStore) History(_ context.Context, id types.ID) ([]time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]time.Time(nil), m.history[id]...), nil
}

func (m *MemoryStore) CheckedOut(_ context.Context, id types.ID, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.pending, id)
	m.withdrawals[id] = at
	return nil
}

func (m *MemoryStore) CheckedIn(_ context.Context, id types.ID, fines int, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.withdrawals, id)
	if fines > 0 {
		m.pending[id] = fines
		m.history[id] = append(m.history[id], at)
	}
	return nil
}
