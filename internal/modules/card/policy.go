// README: Fare policy rules: amount due and policy-aware payment.
package card

import (
	"time"

	"github.com/shopspring/decimal"
)

var (
	half           = decimal.NewFromInt(2)
	tierTwentyOff  = decimal.RequireFromString("0.80")
	tierQuarterOff = decimal.RequireFromString("0.75")
)

// AmountDue is the policy-adjusted price of one boarding at baseFare.
func (c *Card) AmountDue(baseFare decimal.Decimal) decimal.Decimal {
	switch c.policy {
	case PolicyHalfFare:
		return baseFare.Div(half)
	case PolicyFreeFare, PolicyFullExemption:
		return decimal.Zero
	case PolicyFrequentTraveler:
		return frequentTravelerFare(c.tripsThisMonth(c.clock.Now())+1, baseFare)
	default:
		return baseFare
	}
}

// frequentTravelerFare prices the n-th trip of the month.
func frequentTravelerFare(n int, baseFare decimal.Decimal) decimal.Decimal {
	switch {
	case n >= 30 && n <= 59:
		return baseFare.Mul(tierTwentyOff)
	case n >= 60 && n <= 80:
		return baseFare.Mul(tierQuarterOff)
	default:
		return baseFare
	}
}

// Pay settles one boarding. amount is the value from AmountDue; half fare and
// free fare re-check their discount window and may charge baseFare instead.
// It returns what was actually debited. On error nothing changes.
func (c *Card) Pay(amount, baseFare decimal.Decimal) (decimal.Decimal, error) {
	if amount.IsNegative() || baseFare.IsNegative() {
		return decimal.Zero, ErrInvalidAmount
	}
	now := c.clock.Now()

	switch c.policy {
	case PolicyFullExemption:
		return decimal.Zero, nil
	case PolicyHalfFare:
		return c.payDiscounted(now, amount, baseFare, true)
	case PolicyFreeFare:
		return c.payDiscounted(now, decimal.Zero, baseFare, false)
	case PolicyFrequentTraveler:
		c.rollMonth(now)
		if err := c.Debit(amount); err != nil {
			return decimal.Zero, err
		}
		c.monthlyTrips++
		return amount, nil
	case PolicyStandard:
		c.rollMonth(now)
		if err := c.Debit(amount); err != nil {
			return decimal.Zero, err
		}
		return amount, nil
	}
	return decimal.Zero, ErrUnknownPolicy
}

// PayTransfer settles a free transfer. It never consumes a discount slot and
// does not restart the half fare cooldown.
func (c *Card) PayTransfer() error {
	if c.policy == PolicyFullExemption {
		return nil
	}
	c.rollMonth(c.clock.Now())
	if err := c.Debit(decimal.Zero); err != nil {
		return err
	}
	if c.policy == PolicyFrequentTraveler {
		c.monthlyTrips++
	}
	return nil
}

func (c *Card) payDiscounted(now time.Time, discounted, baseFare decimal.Decimal, cooldown bool) (decimal.Decimal, error) {
	if cooldown && !c.lastBoarding.IsZero() && now.Sub(c.lastBoarding) < HalfFareCooldown {
		return decimal.Zero, ErrCooldown
	}

	trips := c.tripsToday(now)
	eligible := FranchiseWindow.Contains(now) && trips < DailyDiscountTrips
	charge := baseFare
	if eligible {
		charge = discounted
	}

	c.rollMonth(now)
	if err := c.Debit(charge); err != nil {
		return decimal.Zero, err
	}

	if eligible {
		trips++
	}
	c.dailyTrips = trips
	c.lastPolicyTrip = now
	if cooldown {
		c.lastBoarding = now
	}
	return charge, nil
}

func (c *Card) tripsToday(now time.Time) int {
	if c.lastPolicyTrip.IsZero() || !sameDay(now, c.lastPolicyTrip) {
		return 0
	}
	return c.dailyTrips
}

func (c *Card) tripsThisMonth(now time.Time) int {
	if now.Month() != c.countedMonth || now.Year() != c.countedYear {
		return 0
	}
	return c.monthlyTrips
}

// rollMonth restarts the monthly trip count when the calendar month changed.
func (c *Card) rollMonth(now time.Time) {
	if now.Month() != c.countedMonth || now.Year() != c.countedYear {
		c.monthlyTrips = 0
		c.countedMonth = now.Month()
		c.countedYear = now.Year()
	}
}
