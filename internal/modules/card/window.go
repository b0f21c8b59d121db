// README: Weekday/time-of-day windows for fare discounts and free transfers.
package card

import "time"

// Window is a weekday range plus a half-open time-of-day range [Opens, Closes),
// both evaluated in the timestamp's own location.
type Window struct {
	FirstDay time.Weekday
	LastDay  time.Weekday
	Opens    time.Duration
	Closes   time.Duration
}

var (
	// FranchiseWindow bounds half fare and free fare discounts.
	FranchiseWindow = Window{FirstDay: time.Monday, LastDay: time.Friday, Opens: 6 * time.Hour, Closes: 22 * time.Hour}
	// TransferWindow bounds free transfers.
	TransferWindow = Window{FirstDay: time.Monday, LastDay: time.Saturday, Opens: 7 * time.Hour, Closes: 22 * time.Hour}
)

func (w Window) Contains(t time.Time) bool {
	day := t.Weekday()
	if day < w.FirstDay || day > w.LastDay {
		return false
	}
	tod := sinceMidnight(t)
	return tod >= w.Opens && tod < w.Closes
}

func sinceMidnight(t time.Time) time.Duration {
	h, m, s := t.Clock()
	return time.Duration(h)*time.Hour +
		time.Duration(m)*time.Minute +
		time.Duration(s)*time.Second +
		time.Duration(t.Nanosecond())
}

func sameDay(a, b time.Time) bool {
	b = b.In(a.Location())
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
