// README: Bench cases: environment, card/route/bike API flows, per-card serialization and throughput.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

// Cards the runner provisions directly in the cards table.
const (
	benchStandard = "bench-standard"
	benchExempt   = "bench-exempt"
	benchParallel = "bench-parallel"
	benchRoute    = "BENCH-1"
)

type Runner struct {
	cfg   Config
	httpc *http.Client
	db    *pgxpool.Pool
	redis *redis.Client
}

type Result struct {
	Name    string
	Status  string
	Latency time.Duration
	Note    string
}

type TestCase struct {
	Name string
	Run  func(ctx context.Context, r *Runner) Result
}

func NewRunner(cfg Config) *Runner {
	return &Runner{
		cfg:   cfg,
		httpc: &http.Client{Timeout: 10 * time.Second},
	}
}

func (r *Runner) RunAll(ctx context.Context) []Result {
	if r.cfg.DSN != "" {
		if db, err := pgxpool.New(ctx, r.cfg.DSN); err == nil {
			r.db = db
		}
	}
	if r.cfg.RedisAddr != "" {
		r.redis = redis.NewClient(&redis.Options{Addr: r.cfg.RedisAddr})
	}

	tests := r.cases()
	results := make([]Result, 0, len(tests))

	for _, tc := range tests {
		res := tc.Run(ctx, r)
		res.Name = tc.Name
		results = append(results, res)
		fmt.Printf("%-5s %s", res.Status, tc.Name)
		if res.Latency > 0 {
			fmt.Printf(" (%s)", res.Latency)
		}
		if res.Note != "" {
			fmt.Printf(" - %s", res.Note)
		}
		fmt.Println()
	}

	if r.db != nil {
		r.db.Close()
	}
	if r.redis != nil {
		_ = r.redis.Close()
	}
	return results
}

func (r *Runner) cases() []TestCase {
	base := r.cfg.BaseURL
	return []TestCase{
		{
			Name: "Env: Postgres connect",
			Run: func(ctx context.Context, r *Runner) Result {
				if r.db == nil {
					return Result{Status: "FAIL", Note: "db not configured"}
				}
				ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
				defer cancel()
				if err := r.db.Ping(ctx); err != nil {
					return Result{Status: "FAIL", Note: err.Error()}
				}
				return Result{Status: "PASS"}
			},
		},
		{
			Name: "Env: Redis connect",
			Run: func(ctx context.Context, r *Runner) Result {
				if r.redis == nil {
					return Result{Status: "FAIL", Note: "redis not configured"}
				}
				ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
				defer cancel()
				if err := r.redis.Ping(ctx).Err(); err != nil {
					return Result{Status: "FAIL", Note: err.Error()}
				}
				return Result{Status: "PASS"}
			},
		},
		{
			Name: "Migration: apply (optional)",
			Run: func(ctx context.Context, r *Runner) Result {
				if !r.cfg.ApplyMigration {
					return Result{Status: "SKIP", Note: "apply-migration=false"}
				}
				if r.db == nil {
					return Result{Status: "FAIL", Note: "db not configured"}
				}
				sql, err := os.ReadFile(r.cfg.MigrationPath)
				if err != nil {
					return Result{Status: "FAIL", Note: err.Error()}
				}
				for _, s := range splitSQL(string(sql)) {
					if _, err := r.db.Exec(ctx, s); err != nil {
						return Result{Status: "FAIL", Note: err.Error()}
					}
				}
				return Result{Status: "PASS"}
			},
		},
		{
			Name: "Migration: tables exist",
			Run: func(ctx context.Context, r *Runner) Result {
				if r.db == nil {
					return Result{Status: "FAIL", Note: "db not configured"}
				}
				tables, err := extractTables(r.cfg.MigrationPath)
				if err != nil {
					return Result{Status: "FAIL", Note: err.Error()}
				}
				for _, t := range tables {
					var exists bool
					err := r.db.QueryRow(ctx,
						"SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name=$1)",
						t,
					).Scan(&exists)
					if err != nil {
						return Result{Status: "FAIL", Note: err.Error()}
					}
					if !exists {
						return Result{Status: "FAIL", Note: "missing table: " + t}
					}
				}
				return Result{Status: "PASS"}
			},
		},
		{
			Name: "Seed: provision bench cards",
			Run: func(ctx context.Context, r *Runner) Result {
				if r.db == nil {
					return Result{Status: "FAIL", Note: "db not configured"}
				}
				for id, policy := range map[string]string{
					benchStandard: "standard",
					benchExempt:   "full_exemption",
					benchParallel: "standard",
				} {
					if err := seedCard(ctx, r.db, id, policy); err != nil {
						return Result{Status: "FAIL", Note: err.Error()}
					}
				}
				if r.redis != nil {
					for _, id := range []string{benchStandard, benchExempt, benchParallel} {
						_ = r.redis.Del(ctx,
							"bike:card:"+id+":withdrawn_at",
							"bike:card:"+id+":pending_fines",
							"bike:card:"+id+":fine_history",
						).Err()
					}
				}
				return Result{Status: "PASS"}
			},
		},
		httpCaseMethod("API: health", http.MethodGet, base+"/health", nil, []int{200}),
		httpCaseMethod("API: metrics exposed", http.MethodGet, base+"/metrics", nil, []int{200}),

		// Cards
		httpCase("Card: top-up 2000", base+"/api/cards/"+benchStandard+"/topups", map[string]any{"amount": "2000"}, []int{200}),
		httpCase("Card: top-up invalid denomination -> 400", base+"/api/cards/"+benchStandard+"/topups", map[string]any{"amount": "1234"}, []int{400}),
		httpCase("Card: top-up unknown card -> 404", base+"/api/cards/bench-missing/topups", map[string]any{"amount": "2000"}, []int{404}),
		httpCaseMethod("Card: get", http.MethodGet, base+"/api/cards/"+benchStandard, nil, []int{200}),

		// Boardings on one line, so no transfer applies
		httpCase("Route: boarding 1 (balance 420)", base+"/api/routes/"+benchRoute+"/boardings", map[string]any{"card_id": benchStandard, "kind": "urban"}, []int{201}),
		httpCase("Route: boarding 2 (balance -1160)", base+"/api/routes/"+benchRoute+"/boardings", map[string]any{"card_id": benchStandard, "kind": "urban"}, []int{201}),
		httpCase("Route: boarding 3 -> 402", base+"/api/routes/"+benchRoute+"/boardings", map[string]any{"card_id": benchStandard, "kind": "urban"}, []int{402}),
		{
			Name: "Route: balance held at -1160",
			Run: func(ctx context.Context, r *Runner) Result {
				return expectBalance(ctx, r, benchStandard, decimal.NewFromInt(-1160))
			},
		},
		httpCaseMethod("Route: last ticket", http.MethodGet, base+"/api/routes/"+benchRoute+"/last-ticket", nil, []int{200}),
		httpCase("Route: unknown kind -> 400", base+"/api/routes/"+benchRoute+"/boardings", map[string]any{"card_id": benchStandard, "kind": "ferry"}, []int{400}),

		// Bike
		httpCase("Bike: top-up exempt card", base+"/api/cards/"+benchExempt+"/topups", map[string]any{"amount": "10000"}, []int{200}),
		httpCase("Bike: checkout charges full rate", base+"/api/bike/checkouts", map[string]any{"card_id": benchExempt}, []int{201}),
		httpCase("Bike: checkin", base+"/api/bike/checkins", map[string]any{"card_id": benchExempt}, []int{200}),
		httpCaseMethod("Bike: fines", http.MethodGet, base+"/api/bike/fines/"+benchExempt, nil, []int{200}),
		{
			Name: "Bike: balance after checkout 8222.50",
			Run: func(ctx context.Context, r *Runner) Result {
				return expectBalance(ctx, r, benchExempt, decimal.RequireFromString("8222.50"))
			},
		},

		// Concurrency
		{
			Name: "Concurrency: parallel top-ups on one card",
			Run: func(ctx context.Context, r *Runner) Result {
				return concurrentTopUps(ctx, r, benchParallel)
			},
		},

		// Performance
		{
			Name: "Perf: card lookup throughput",
			Run: func(ctx context.Context, r *Runner) Result {
				return perfLoad(ctx, r, http.MethodGet, base+"/api/cards/"+benchExempt, nil)
			},
		},
		{
			Name: "Perf: boarding throughput (exempt card)",
			Run: func(ctx context.Context, r *Runner) Result {
				return perfLoad(ctx, r, http.MethodPost, base+"/api/routes/"+benchRoute+"/boardings", map[string]any{
					"card_id": benchExempt,
					"kind":    "urban",
				})
			},
		},
	}
}

func seedCard(ctx context.Context, db *pgxpool.Pool, id, policy string) error {
	now := time.Now()
	_, err := db.Exec(ctx, `
        INSERT INTO cards (id, policy, counted_month, counted_year)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (id) DO UPDATE SET
            policy = EXCLUDED.policy,
            balance = 0,
            pending_credit = 0,
            monthly_trips = 0,
            counted_month = EXCLUDED.counted_month,
            counted_year = EXCLUDED.counted_year,
            daily_trips = 0,
            last_policy_trip = NULL,
            last_boarding = NULL,
            last_transfer_at = NULL,
            last_transfer_route = NULL,
            updated_at = now()`,
		id, policy, int(now.Month()), now.Year(),
	)
	return err
}

func httpCase(name, url string, body any, okStatuses []int) TestCase {
	return httpCaseMethod(name, http.MethodPost, url, body, okStatuses)
}

func httpCaseMethod(name, method, url string, body any, okStatuses []int) TestCase {
	return TestCase{
		Name: name,
		Run: func(ctx context.Context, r *Runner) Result {
			start := time.Now()
			status, _, err := r.do(ctx, method, url, body)
			if err != nil {
				return Result{Status: "FAIL", Note: err.Error()}
			}
			latency := time.Since(start)
			if contains(okStatuses, status) {
				return Result{Status: "PASS", Latency: latency, Note: fmt.Sprintf("status=%d", status)}
			}
			return Result{Status: "FAIL", Latency: latency, Note: fmt.Sprintf("status=%d", status)}
		},
	}
}

func (r *Runner) do(ctx context.Context, method, url string, body any) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		reader = strings.NewReader(string(b))
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := r.httpc.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	return resp.StatusCode, b, err
}

func (r *Runner) balance(ctx context.Context, id string) (decimal.Decimal, decimal.Decimal, error) {
	status, body, err := r.do(ctx, http.MethodGet, r.cfg.BaseURL+"/api/cards/"+id, nil)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	if status != http.StatusOK {
		return decimal.Zero, decimal.Zero, fmt.Errorf("status=%d", status)
	}
	var snap struct {
		Balance       decimal.Decimal `json:"balance"`
		PendingCredit decimal.Decimal `json:"pending_credit"`
	}
	if err := json.Unmarshal(body, &snap); err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	return snap.Balance, snap.PendingCredit, nil
}

func expectBalance(ctx context.Context, r *Runner, id string, want decimal.Decimal) Result {
	got, _, err := r.balance(ctx, id)
	if err != nil {
		return Result{Status: "FAIL", Note: err.Error()}
	}
	if !got.Equal(want) {
		return Result{Status: "FAIL", Note: fmt.Sprintf("balance=%s want=%s", got, want)}
	}
	return Result{Status: "PASS", Note: "balance=" + got.String()}
}

// concurrentTopUps loads the same card from many goroutines; with per-card
// serialization every top-up lands and balance+pending equals the total.
func concurrentTopUps(ctx context.Context, r *Runner, id string) Result {
	url := r.cfg.BaseURL + "/api/cards/" + id + "/topups"
	var wg sync.WaitGroup
	var mu sync.Mutex
	succ := 0

	for i := 0; i < r.cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			status, _, err := r.do(ctx, http.MethodPost, url, map[string]any{"amount": "5000"})
			if err != nil || status != http.StatusOK {
				return
			}
			mu.Lock()
			succ++
			mu.Unlock()
		}()
	}
	wg.Wait()

	balance, pending, err := r.balance(ctx, id)
	if err != nil {
		return Result{Status: "FAIL", Note: err.Error()}
	}
	want := decimal.NewFromInt(int64(succ) * 5000)
	if !balance.Add(pending).Equal(want) {
		return Result{Status: "FAIL", Note: fmt.Sprintf("success=%d balance=%s pending=%s", succ, balance, pending)}
	}
	if balance.GreaterThan(decimal.NewFromInt(56000)) {
		return Result{Status: "FAIL", Note: "balance over cap: " + balance.String()}
	}
	return Result{Status: "PASS", Note: fmt.Sprintf("success=%d balance=%s pending=%s", succ, balance, pending)}
}

func perfLoad(ctx context.Context, r *Runner, method, url string, payload any) Result {
	end := time.Now().Add(r.cfg.Duration)
	var count, errCount int64
	var mu sync.Mutex
	wg := sync.WaitGroup{}

	for i := 0; i < r.cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for time.Now().Before(end) && ctx.Err() == nil {
				status, _, err := r.do(ctx, method, url, payload)
				mu.Lock()
				if err != nil || status >= 500 {
					errCount++
				} else {
					count++
				}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if count == 0 {
		return Result{Status: "FAIL", Note: "no requests completed"}
	}
	rps := float64(count) / r.cfg.Duration.Seconds()
	return Result{Status: "PASS", Note: fmt.Sprintf("rps=%.1f errors=%d", rps, errCount)}
}

func contains(list []int, v int) bool {
	for _, i := range list {
		if i == v {
			return true
		}
	}
	return false
}

func extractTables(path string) ([]string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	re := regexp.MustCompile(`(?i)create\s+table\s+if\s+not\s+exists\s+([a-zA-Z0-9_]+)`)
	matches := re.FindAllStringSubmatch(string(b), -1)
	tables := make([]string, 0, len(matches))
	for _, m := range matches {
		tables = append(tables, m[1])
	}
	return tables, nil
}

func splitSQL(sql string) []string {
	lines := strings.Split(sql, "\n")
	filtered := make([]string, 0, len(lines))
	for _, line := range lines {
		l := strings.TrimSpace(line)
		if strings.HasPrefix(l, "--") || l == "" {
			continue
		}
		filtered = append(filtered, line)
	}
	parts := strings.Split(strings.Join(filtered, "\n"), ";")
	stmts := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			stmts = append(stmts, s)
		}
	}
	return stmts
}
