// README: Route kinds, base fares and the ticket issued for each boarding.
package route

import (
	"time"

	"github.com/shopspring/decimal"

	"farecard/internal/types"
)

type Kind string

const (
	KindUrban      Kind = "urban"
	KindInterurban Kind = "interurban"
)

func (k Kind) Valid() bool {
	return k == KindUrban || k == KindInterurban
}

// Fares holds the base fare of each route kind.
type Fares struct {
	Urban      decimal.Decimal
	Interurban decimal.Decimal
}

func DefaultFares() Fares {
	return Fares{Urban: types.Pesos(1580), Interurban: types.Pesos(3000)}
}

func (f Fares) Base(kind Kind) (decimal.Decimal, error) {
	switch kind {
	case KindUrban:
		return f.Urban, nil
	case KindInterurban:
		return f.Interurban, nil
	}
	return decimal.Zero, ErrUnknownKind
}

// Ticket is the record of one successful boarding.
type Ticket struct {
	CardID        types.ID        `json:"card_id"`
	RouteID       string          `json:"route_id"`
	Kind          Kind            `json:"kind"`
	IssuedAt      time.Time       `json:"issued_at"`
	PolicyLabel   string          `json:"policy"`
	BaseFare      decimal.Decimal `json:"base_fare"`
	AmountCharged decimal.Decimal `json:"amount_charged"`
	TotalPaid     decimal.Decimal `json:"total_paid"`
	BalanceAfter  decimal.Decimal `json:"balance_after"`
	Transfer      bool            `json:"transfer"`
}
