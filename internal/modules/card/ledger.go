// README: Card ledger primitives: top-up with pending credit, accrual and debit.
package card

import "github.com/shopspring/decimal"

func validTopUp(amount decimal.Decimal) bool {
	for _, v := range TopUpAmounts {
		if amount.Equal(v) {
			return true
		}
	}
	return false
}

// TopUp loads one of the accepted denominations. Whatever does not fit under
// BalanceCap is held as pending credit.
func (c *Card) TopUp(amount decimal.Decimal) error {
	if !validTopUp(amount) {
		return ErrInvalidAmount
	}
	c.accrue()

	room := BalanceCap.Sub(c.balance)
	if room.IsNegative() {
		room = decimal.Zero
	}
	credited := decimal.Min(amount, room)
	c.balance = c.balance.Add(credited)
	c.pending = c.pending.Add(amount.Sub(credited))

	c.accrue()
	return nil
}

// accrue moves pending credit into the balance up to the cap.
func (c *Card) accrue() {
	room := BalanceCap.Sub(c.balance)
	if !c.pending.IsPositive() || !room.IsPositive() {
		return
	}
	moved := decimal.Min(c.pending, room)
	c.balance = c.balance.Add(moved)
	c.pending = c.pending.Sub(moved)
}

// Debit charges amount against the balance. It fails without any change when
// the result would fall below BalanceFloor.
func (c *Card) Debit(amount decimal.Decimal) error {
	if amount.IsNegative() {
		return ErrInvalidAmount
	}
	c.accrue()
	if c.balance.Sub(amount).LessThan(BalanceFloor) {
		return ErrInsufficientFunds
	}
	c.balance = c.balance.Sub(amount)
	c.accrue()
	return nil
}
