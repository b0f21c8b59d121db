// README: Card aggregate, fare policy variants and ledger limits.
package card

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"farecard/internal/clock"
	"farecard/internal/types"
)

type Policy string

const (
	PolicyStandard         Policy = "standard"
	PolicyHalfFare         Policy = "half_fare"
	PolicyFreeFare         Policy = "free_fare"
	PolicyFullExemption    Policy = "full_exemption"
	PolicyFrequentTraveler Policy = "frequent_traveler"
)

// Policies lists every fare policy a card can carry.
var Policies = []Policy{
	PolicyStandard,
	PolicyHalfFare,
	PolicyFreeFare,
	PolicyFullExemption,
	PolicyFrequentTraveler,
}

func (p Policy) Valid() bool {
	switch p {
	case PolicyStandard, PolicyHalfFare, PolicyFreeFare, PolicyFullExemption, PolicyFrequentTraveler:
		return true
	}
	return false
}

// Label is the name printed on tickets and receipts.
func (p Policy) Label() string {
	switch p {
	case PolicyStandard:
		return "Standard"
	case PolicyHalfFare:
		return "Half Fare"
	case PolicyFreeFare:
		return "Free Fare"
	case PolicyFullExemption:
		return "Full Exemption"
	case PolicyFrequentTraveler:
		return "Frequent Traveler"
	}
	return string(p)
}

// Ledger limits shared by every card.
var (
	BalanceCap   = types.Pesos(56000)
	BalanceFloor = types.Pesos(-1200)
)

// TopUpAmounts are the only accepted load denominations.
var TopUpAmounts = []decimal.Decimal{
	types.Pesos(2000), types.Pesos(3000), types.Pesos(4000), types.Pesos(5000), types.Pesos(8000),
	types.Pesos(10000), types.Pesos(15000), types.Pesos(20000), types.Pesos(25000), types.Pesos(30000),
}

const (
	HalfFareCooldown   = 5 * time.Minute
	TransferMaxGap     = time.Hour
	DailyDiscountTrips = 2
)

// Card is a stored-value fare card. It is not safe for concurrent use; callers
// serialize access per card through Service.With.
type Card struct {
	id     types.ID
	policy Policy
	clock  clock.Clock

	balance decimal.Decimal
	pending decimal.Decimal

	// frequent traveler
	monthlyTrips int
	countedMonth time.Month
	countedYear  int

	// half fare / free fare
	dailyTrips     int
	lastPolicyTrip time.Time
	lastBoarding   time.Time

	lastTransferAt    time.Time
	lastTransferRoute string
}

// New creates an empty card with a fresh id. The monthly counter starts in the
// clock's current month.
func New(policy Policy, clk clock.Clock) (*Card, error) {
	return NewWithID(types.ID(uuid.NewString()), policy, clk)
}

func NewWithID(id types.ID, policy Policy, clk clock.Clock) (*Card, error) {
	if !policy.Valid() {
		return nil, ErrUnknownPolicy
	}
	if id == "" {
		return nil, ErrBadRequest
	}
	now := clk.Now()
	return &Card{
		id:           id,
		policy:       policy,
		clock:        clk,
		balance:      decimal.Zero,
		pending:      decimal.Zero,
		countedMonth: now.Month(),
		countedYear:  now.Year(),
	}, nil
}

func (c *Card) ID() types.ID                   { return c.id }
func (c *Card) Policy() Policy                 { return c.policy }
func (c *Card) Balance() decimal.Decimal       { return c.balance }
func (c *Card) PendingCredit() decimal.Decimal { return c.pending }

// Snapshot is the persisted form of a card.
type Snapshot struct {
	ID                types.ID        `json:"id"`
	Policy            Policy          `json:"policy"`
	Balance           decimal.Decimal `json:"balance"`
	PendingCredit     decimal.Decimal `json:"pending_credit"`
	MonthlyTrips      int             `json:"monthly_trips"`
	CountedMonth      int             `json:"counted_month"`
	CountedYear       int             `json:"counted_year"`
	DailyTrips        int             `json:"daily_trips"`
	LastPolicyTrip    *time.Time      `json:"last_policy_trip,omitempty"`
	LastBoarding      *time.Time      `json:"last_boarding,omitempty"`
	LastTransferAt    *time.Time      `json:"last_transfer_at,omitempty"`
	LastTransferRoute string          `json:"last_transfer_route,omitempty"`
}

func (c *Card) Snapshot() Snapshot {
	return Snapshot{
		ID:                c.id,
		Policy:            c.policy,
		Balance:           c.balance,
		PendingCredit:     c.pending,
		MonthlyTrips:      c.monthlyTrips,
		CountedMonth:      int(c.countedMonth),
		CountedYear:       c.countedYear,
		DailyTrips:        c.dailyTrips,
		LastPolicyTrip:    timePtr(c.lastPolicyTrip),
		LastBoarding:      timePtr(c.lastBoarding),
		LastTransferAt:    timePtr(c.lastTransferAt),
		LastTransferRoute: c.lastTransferRoute,
	}
}

// Restore rebuilds a card from its snapshot.
func Restore(s Snapshot, clk clock.Clock) (*Card, error) {
	if !s.Policy.Valid() {
		return nil, ErrUnknownPolicy
	}
	if s.ID == "" {
		return nil, ErrBadRequest
	}
	return &Card{
		id:                s.ID,
		policy:            s.Policy,
		clock:             clk,
		balance:           s.Balance,
		pending:           s.PendingCredit,
		monthlyTrips:      s.MonthlyTrips,
		countedMonth:      time.Month(s.CountedMonth),
		countedYear:       s.CountedYear,
		dailyTrips:        s.DailyTrips,
		lastPolicyTrip:    timeVal(s.LastPolicyTrip),
		lastBoarding:      timeVal(s.LastBoarding),
		lastTransferAt:    timeVal(s.LastTransferAt),
		lastTransferRoute: s.LastTransferRoute,
	}, nil
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	v := t
	return &v
}

func timeVal(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}
