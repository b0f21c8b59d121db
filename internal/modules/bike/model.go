// README: Bike share rates, the fine rule and the receipt issued on checkout.
package bike

import (
	"time"

	"github.com/shopspring/decimal"

	"farecard/internal/types"
)

// Rates are charged the same to every card, whatever its fare policy.
type Rates struct {
	DailyRate decimal.Decimal
	Fine      decimal.Decimal
}

func DefaultRates() Rates {
	return Rates{DailyRate: types.MustPesos("1777.50"), Fine: types.Pesos(1000)}
}

// Due is the checkout price with pending fines settled.
func (r Rates) Due(pendingFines int) decimal.Decimal {
	return r.DailyRate.Add(r.Fine.Mul(decimal.NewFromInt(int64(pendingFines))))
}

// FineFreeMinutes is how long a bike can stay out without a fine.
const FineFreeMinutes = 120

// FinesFor counts the fines for a rental that lasted elapsed: none under two
// hours, then one per full hour past the first.
func FinesFor(elapsed time.Duration) int {
	minutes := elapsed.Minutes()
	if minutes < FineFreeMinutes {
		return 0
	}
	return int(minutes/60) - 1
}

// Receipt is the record of one paid checkout.
type Receipt struct {
	CardID       types.ID        `json:"card_id"`
	IssuedAt     time.Time       `json:"issued_at"`
	PolicyLabel  string          `json:"policy"`
	DailyRate    decimal.Decimal `json:"daily_rate"`
	FinesApplied int             `json:"fines_applied"`
	HadFine      bool            `json:"had_fine"`
	AmountPaid   decimal.Decimal `json:"amount_paid"`
	BalanceAfter decimal.Decimal `json:"balance_after"`
}

// FineReport is the fine state of one card.
type FineReport struct {
	CardID  types.ID    `json:"card_id"`
	Pending int         `json:"pending"`
	History []time.Time `json:"history"`
}
