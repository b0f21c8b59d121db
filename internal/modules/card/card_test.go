// README: Card engine tests: ledger, fare policies, windows and transfers.
package card

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"farecard/internal/clock"
	"farecard/internal/types"
)

var urbanFare = types.Pesos(1580)

// tuesday 2025-06-10 08:00 is inside both the franchise and transfer windows.
func tuesdayMorning() time.Time {
	return time.Date(2025, 6, 10, 8, 0, 0, 0, time.UTC)
}

func newCard(t *testing.T, p Policy, clk clock.Clock) *Card {
	t.Helper()
	c, err := New(p, clk)
	require.NoError(t, err)
	return c
}

func assertMoney(t *testing.T, want int64, got decimal.Decimal, msg string) {
	t.Helper()
	assert.True(t, got.Equal(types.Pesos(want)), "%s: got %s want %d", msg, got, want)
}

// pay runs the boarding sequence a route would use, without transfers.
func pay(c *Card, base decimal.Decimal) (decimal.Decimal, error) {
	return c.Pay(c.AmountDue(base), base)
}

func TestNewRejectsUnknownPolicy(t *testing.T) {
	_, err := New(Policy("student"), clock.NewManual(tuesdayMorning()))
	assert.ErrorIs(t, err, ErrUnknownPolicy)
}

func TestTopUpDenominations(t *testing.T) {
	c := newCard(t, PolicyStandard, clock.NewManual(tuesdayMorning()))

	for _, v := range TopUpAmounts[:3] {
		require.NoError(t, c.TopUp(v))
	}
	assertMoney(t, 9000, c.Balance(), "after 2000+3000+4000")

	for _, bad := range []int64{0, -2000, 1000, 2500, 35000} {
		err := c.TopUp(types.Pesos(bad))
		assert.ErrorIs(t, err, ErrInvalidAmount, "amount %d", bad)
	}
	assertMoney(t, 9000, c.Balance(), "invalid top-ups must not change the balance")
}

func TestTopUpOverCapGoesToPendingCredit(t *testing.T) {
	c := newCard(t, PolicyStandard, clock.NewManual(tuesdayMorning()))

	require.NoError(t, c.TopUp(types.Pesos(30000)))
	require.NoError(t, c.TopUp(types.Pesos(30000)))
	assertMoney(t, 56000, c.Balance(), "balance pinned at cap")
	assertMoney(t, 4000, c.PendingCredit(), "remainder pending")

	_, err := pay(c, urbanFare)
	require.NoError(t, err)
	assertMoney(t, 56000, c.Balance(), "debit frees room that pending credit refills")
	assertMoney(t, 2420, c.PendingCredit(), "pending after accrual")
}

func TestTopUpDrainsPendingFirst(t *testing.T) {
	c := newCard(t, PolicyStandard, clock.NewManual(tuesdayMorning()))
	require.NoError(t, c.TopUp(types.Pesos(30000)))
	require.NoError(t, c.TopUp(types.Pesos(30000)))
	require.NoError(t, c.Debit(types.Pesos(10000)))
	assertMoney(t, 50000, c.Balance(), "pending 4000 accrued after debit")
	assertMoney(t, 0, c.PendingCredit(), "pending drained")

	require.NoError(t, c.TopUp(types.Pesos(8000)))
	assertMoney(t, 56000, c.Balance(), "capped")
	assertMoney(t, 2000, c.PendingCredit(), "overflow")
}

func TestDebitRespectsFloor(t *testing.T) {
	c := newCard(t, PolicyStandard, clock.NewManual(tuesdayMorning()))

	require.NoError(t, c.Debit(types.Pesos(1200)))
	assertMoney(t, -1200, c.Balance(), "exactly at floor")

	err := c.Debit(types.MustPesos("0.01"))
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	assertMoney(t, -1200, c.Balance(), "rejected debit must not mutate")

	assert.ErrorIs(t, c.Debit(types.Pesos(-1)), ErrInvalidAmount)
}

func TestLedgerConservation(t *testing.T) {
	c := newCard(t, PolicyStandard, clock.NewManual(tuesdayMorning()))
	loaded, debited := decimal.Zero, decimal.Zero

	ops := []struct {
		topUp int64
		debit int64
	}{
		{topUp: 30000}, {topUp: 25000}, {debit: 1580}, {topUp: 20000}, {debit: 15000},
		{topUp: 30000}, {debit: 56000}, {debit: 30000}, {topUp: 2000}, {debit: 40000},
		{debit: 1580}, {topUp: 30000}, {debit: 900},
	}
	for i, op := range ops {
		if op.topUp > 0 {
			require.NoError(t, c.TopUp(types.Pesos(op.topUp)))
			loaded = loaded.Add(types.Pesos(op.topUp))
		}
		if op.debit > 0 {
			if err := c.Debit(types.Pesos(op.debit)); err == nil {
				debited = debited.Add(types.Pesos(op.debit))
			} else {
				require.ErrorIs(t, err, ErrInsufficientFunds)
			}
		}
		total := c.Balance().Add(c.PendingCredit())
		assert.True(t, total.Equal(loaded.Sub(debited)), "step %d: total %s want %s", i, total, loaded.Sub(debited))
		assert.True(t, c.Balance().LessThanOrEqual(BalanceCap), "step %d: balance %s over cap", i, c.Balance())
		assert.True(t, c.Balance().GreaterThanOrEqual(BalanceFloor), "step %d: balance %s under floor", i, c.Balance())
		if c.PendingCredit().IsPositive() {
			assert.True(t, c.Balance().Equal(BalanceCap), "step %d: pending credit while below cap", i)
		}
	}
}

func TestStandardCardGoesNegativeThenRejects(t *testing.T) {
	clk := clock.NewManual(tuesdayMorning())
	c := newCard(t, PolicyStandard, clk)
	require.NoError(t, c.TopUp(types.Pesos(2000)))

	_, err := pay(c, urbanFare)
	require.NoError(t, err)
	assertMoney(t, 420, c.Balance(), "first boarding")

	clk.Advance(10 * time.Minute)
	_, err = pay(c, urbanFare)
	require.NoError(t, err)
	assertMoney(t, -1160, c.Balance(), "second boarding")

	clk.Advance(10 * time.Minute)
	_, err = pay(c, urbanFare)
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	assertMoney(t, -1160, c.Balance(), "third boarding rejected")
}

func TestHalfFareDailyLimit(t *testing.T) {
	clk := clock.NewManual(tuesdayMorning())
	c := newCard(t, PolicyHalfFare, clk)
	require.NoError(t, c.TopUp(types.Pesos(5000)))

	want := []int64{790, 790, 1580, 1580}
	for i, w := range want {
		charged, err := pay(c, urbanFare)
		require.NoError(t, err, "boarding %d", i+1)
		assertMoney(t, w, charged, "boarding charge")
		clk.Advance(6 * time.Minute)
	}
	assertMoney(t, 5000-790-790-1580-1580, c.Balance(), "balance")
}

func TestHalfFareCooldown(t *testing.T) {
	clk := clock.NewManual(tuesdayMorning())
	c := newCard(t, PolicyHalfFare, clk)
	require.NoError(t, c.TopUp(types.Pesos(2000)))

	_, err := pay(c, urbanFare)
	require.NoError(t, err)
	assertMoney(t, 1210, c.Balance(), "first boarding")

	clk.Advance(3 * time.Minute)
	_, err = pay(c, urbanFare)
	assert.ErrorIs(t, err, ErrCooldown)
	assertMoney(t, 1210, c.Balance(), "cooldown rejection must not mutate")
	assert.Equal(t, 1, c.Snapshot().DailyTrips)

	clk.Advance(2 * time.Minute) // exactly 5 minutes after the first boarding
	charged, err := pay(c, urbanFare)
	require.NoError(t, err)
	assertMoney(t, 790, charged, "second discounted boarding")
}

func TestHalfFareDailyReset(t *testing.T) {
	clk := clock.NewManual(tuesdayMorning())
	c := newCard(t, PolicyHalfFare, clk)
	require.NoError(t, c.TopUp(types.Pesos(2000)))

	for i := 0; i < 2; i++ {
		_, err := pay(c, urbanFare)
		require.NoError(t, err)
		clk.Advance(6 * time.Minute)
	}
	assertMoney(t, 420, c.Balance(), "two discounted boardings")

	clk.AdvanceDays(1)
	charged, err := pay(c, urbanFare)
	require.NoError(t, err)
	assertMoney(t, 790, charged, "discount restored next day")
	assert.Equal(t, 1, c.Snapshot().DailyTrips)

	clk.Advance(6 * time.Minute)
	charged, err = pay(c, urbanFare)
	require.NoError(t, err)
	assertMoney(t, 790, charged, "second discounted boarding of the new day")
	assertMoney(t, -1160, c.Balance(), "balance")

	clk.Advance(6 * time.Minute)
	_, err = pay(c, urbanFare)
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	assertMoney(t, -1160, c.Balance(), "rejected")
}

func TestHalfFareOutsideWindowPaysFull(t *testing.T) {
	cases := []struct {
		name string
		at   time.Time
	}{
		{"before 06:00", time.Date(2025, 6, 10, 5, 59, 59, 0, time.UTC)},
		{"at 22:00", time.Date(2025, 6, 10, 22, 0, 0, 0, time.UTC)},
		{"saturday", time.Date(2025, 6, 14, 10, 0, 0, 0, time.UTC)},
		{"sunday", time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := newCard(t, PolicyHalfFare, clock.NewManual(tc.at))
			require.NoError(t, c.TopUp(types.Pesos(5000)))
			charged, err := pay(c, urbanFare)
			require.NoError(t, err)
			assertMoney(t, 1580, charged, "full fare outside window")
			assert.Equal(t, 0, c.Snapshot().DailyTrips)
		})
	}
}

func TestFreeFare(t *testing.T) {
	clk := clock.NewManual(tuesdayMorning())
	c := newCard(t, PolicyFreeFare, clk)
	require.NoError(t, c.TopUp(types.Pesos(5000)))
	assertMoney(t, 0, c.AmountDue(urbanFare), "nominal amount due")

	// no cooldown: boardings one minute apart
	want := []int64{0, 0, 1580}
	for i, w := range want {
		charged, err := pay(c, urbanFare)
		require.NoError(t, err, "boarding %d", i+1)
		assertMoney(t, w, charged, "boarding charge")
		clk.Advance(time.Minute)
	}
	assertMoney(t, 3420, c.Balance(), "balance")

	clk.AdvanceDays(1)
	charged, err := pay(c, urbanFare)
	require.NoError(t, err)
	assertMoney(t, 0, charged, "free again next day")
}

func TestFreeFareOutsideWindowWithoutFunds(t *testing.T) {
	c := newCard(t, PolicyFreeFare, clock.NewManual(time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)))
	require.NoError(t, c.Debit(types.Pesos(1000)))
	_, err := pay(c, urbanFare)
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	assertMoney(t, -1000, c.Balance(), "unchanged")
}

func TestFullExemptionNeverDebits(t *testing.T) {
	clk := clock.NewManual(tuesdayMorning())
	c := newCard(t, PolicyFullExemption, clk)

	for i := 0; i < 5; i++ {
		charged, err := pay(c, urbanFare)
		require.NoError(t, err)
		assertMoney(t, 0, charged, "exempt")
		clk.Advance(time.Minute)
	}
	require.NoError(t, c.PayTransfer())
	assertMoney(t, 0, c.Balance(), "balance untouched")
	assert.Equal(t, Snapshot{
		ID:            c.ID(),
		Policy:        PolicyFullExemption,
		Balance:       decimal.Zero,
		PendingCredit: decimal.Zero,
		CountedMonth:  int(time.June),
		CountedYear:   2025,
	}, c.Snapshot())
}

func TestFrequentTravelerTiers(t *testing.T) {
	clk := clock.NewManual(time.Date(2025, 6, 2, 7, 0, 0, 0, time.UTC))
	c := newCard(t, PolicyFrequentTraveler, clk)
	for i := 0; i < 4; i++ {
		require.NoError(t, c.TopUp(types.Pesos(30000)))
	}

	for n := 1; n <= 82; n++ {
		var want int64
		switch {
		case n <= 29:
			want = 1580
		case n <= 59:
			want = 1264
		case n <= 80:
			want = 1185
		default:
			want = 1580
		}
		charged, err := pay(c, urbanFare)
		require.NoError(t, err, "trip %d", n)
		assertMoney(t, want, charged, "trip charge")
		clk.Advance(5 * time.Minute)
	}
	assert.Equal(t, 82, c.Snapshot().MonthlyTrips)
}

func TestFrequentTravelerMonthlyReset(t *testing.T) {
	clk := clock.NewManual(time.Date(2025, 6, 2, 7, 0, 0, 0, time.UTC))
	c := newCard(t, PolicyFrequentTraveler, clk)
	require.NoError(t, c.TopUp(types.Pesos(30000)))
	require.NoError(t, c.TopUp(types.Pesos(30000)))

	for n := 1; n <= 35; n++ {
		_, err := pay(c, urbanFare)
		require.NoError(t, err)
	}
	assertMoney(t, 1264, c.AmountDue(urbanFare), "trip 36 discounted")

	clk.Set(time.Date(2025, 7, 1, 7, 0, 0, 0, time.UTC))
	assertMoney(t, 1580, c.AmountDue(urbanFare), "trip 1 of the new month")
	charged, err := pay(c, urbanFare)
	require.NoError(t, err)
	assertMoney(t, 1580, charged, "trip 1 charge")
	snap := c.Snapshot()
	assert.Equal(t, 1, snap.MonthlyTrips)
	assert.Equal(t, int(time.July), snap.CountedMonth)

	// same month number, next year
	clk.Set(time.Date(2026, 7, 1, 7, 0, 0, 0, time.UTC))
	assertMoney(t, 1580, c.AmountDue(urbanFare), "year rollover")
}

func TestFrequentTravelerFailedDebitDoesNotCount(t *testing.T) {
	c := newCard(t, PolicyFrequentTraveler, clock.NewManual(tuesdayMorning()))
	require.NoError(t, c.Debit(types.Pesos(1000)))
	_, err := pay(c, urbanFare)
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	assert.Equal(t, 0, c.Snapshot().MonthlyTrips)
}

func TestWindows(t *testing.T) {
	cases := []struct {
		name      string
		at        time.Time
		franchise bool
		transfer  bool
	}{
		{"monday 06:00", time.Date(2025, 6, 9, 6, 0, 0, 0, time.UTC), true, false},
		{"monday 07:00", time.Date(2025, 6, 9, 7, 0, 0, 0, time.UTC), true, true},
		{"friday 21:59:59", time.Date(2025, 6, 13, 21, 59, 59, 0, time.UTC), true, true},
		{"friday 22:00", time.Date(2025, 6, 13, 22, 0, 0, 0, time.UTC), false, false},
		{"saturday 10:00", time.Date(2025, 6, 14, 10, 0, 0, 0, time.UTC), false, true},
		{"sunday 10:00", time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC), false, false},
		{"tuesday 05:59", time.Date(2025, 6, 10, 5, 59, 0, 0, time.UTC), false, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.franchise, FranchiseWindow.Contains(tc.at), "franchise")
			assert.Equal(t, tc.transfer, TransferWindow.Contains(tc.at), "transfer")
		})
	}
}

func TestWindowUsesLocalTime(t *testing.T) {
	art := time.FixedZone("ART", -3*60*60)
	// 09:00 UTC on a Tuesday is 06:00 in ART.
	at := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC).In(art)
	assert.True(t, FranchiseWindow.Contains(at))
	assert.False(t, TransferWindow.Contains(at))
}

func TestTransferEligibility(t *testing.T) {
	base := time.Date(2025, 4, 5, 10, 0, 0, 0, time.UTC) // saturday
	sunday := time.Date(2025, 4, 6, 10, 0, 0, 0, time.UTC)
	lateSaturday := time.Date(2025, 4, 5, 21, 30, 0, 0, time.UTC)

	cases := []struct {
		name   string
		prev   string
		prevAt time.Time
		at     time.Time
		route  string
		want   bool
	}{
		{"different line within the hour", "144 Roja", base, base.Add(20 * time.Minute), "144 Negra", true},
		{"exactly one hour", "A", base, base.Add(time.Hour), "B", true},
		{"over one hour", "A", base, base.Add(time.Hour + time.Second), "B", false},
		{"same line", "A", base, base.Add(20 * time.Minute), "A", false},
		{"same line different case", "linea 60", base, base.Add(20 * time.Minute), "LINEA 60", false},
		{"sunday", "A", sunday, sunday.Add(20 * time.Minute), "B", false},
		{"after 22:00", "A", lateSaturday, lateSaturday.Add(30 * time.Minute), "B", false},
		{"clock went backwards", "A", base, base.Add(-time.Minute), "B", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := newCard(t, PolicyStandard, clock.NewManual(tc.prevAt))
			c.RecordTransfer(tc.prevAt, tc.prev)
			assert.Equal(t, tc.want, c.IsTransferEligible(tc.at, tc.route))
		})
	}
}

func TestTransferNeedsPriorBoarding(t *testing.T) {
	c := newCard(t, PolicyStandard, clock.NewManual(tuesdayMorning()))
	assert.False(t, c.IsTransferEligible(tuesdayMorning(), "A"))
}

func TestPayTransferKeepsHalfFareSlots(t *testing.T) {
	clk := clock.NewManual(tuesdayMorning())
	c := newCard(t, PolicyHalfFare, clk)
	require.NoError(t, c.TopUp(types.Pesos(5000)))

	_, err := pay(c, urbanFare)
	require.NoError(t, err)
	clk.Advance(2 * time.Minute)
	require.NoError(t, c.PayTransfer())
	assert.Equal(t, 1, c.Snapshot().DailyTrips)
	assertMoney(t, 4210, c.Balance(), "transfer is free")

	clk.Advance(4 * time.Minute)
	charged, err := pay(c, urbanFare)
	require.NoError(t, err)
	assertMoney(t, 790, charged, "second slot still available")
}

func TestPayTransferCountsFrequentTrip(t *testing.T) {
	c := newCard(t, PolicyFrequentTraveler, clock.NewManual(tuesdayMorning()))
	require.NoError(t, c.PayTransfer())
	assert.Equal(t, 1, c.Snapshot().MonthlyTrips)
}

func TestSnapshotRestore(t *testing.T) {
	clk := clock.NewManual(tuesdayMorning())
	c := newCard(t, PolicyHalfFare, clk)
	require.NoError(t, c.TopUp(types.Pesos(30000)))
	require.NoError(t, c.TopUp(types.Pesos(30000)))
	_, err := pay(c, urbanFare)
	require.NoError(t, err)
	c.RecordTransfer(clk.Now(), "60")

	restored, err := Restore(c.Snapshot(), clk)
	require.NoError(t, err)
	assert.Equal(t, c.Snapshot(), restored.Snapshot())

	clk.Advance(time.Minute)
	_, err = pay(restored, urbanFare)
	assert.ErrorIs(t, err, ErrCooldown, "cooldown survives a restore")

	_, err = Restore(Snapshot{ID: "x", Policy: "nope"}, clk)
	assert.ErrorIs(t, err, ErrUnknownPolicy)
}
