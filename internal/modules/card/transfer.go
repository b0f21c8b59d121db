// README: Transfer tracker: free second boarding on a different line.
package card

import (
	"strings"
	"time"
)

// IsTransferEligible reports whether boarding routeID at now is a free transfer
// from the previous boarding. It outranks every fare policy.
func (c *Card) IsTransferEligible(now time.Time, routeID string) bool {
	if c.lastTransferAt.IsZero() || c.lastTransferRoute == "" {
		return false
	}
	if strings.EqualFold(c.lastTransferRoute, routeID) {
		return false
	}
	elapsed := now.Sub(c.lastTransferAt)
	if elapsed < 0 || elapsed > TransferMaxGap {
		return false
	}
	return TransferWindow.Contains(now)
}

// RecordTransfer stamps a successful boarding as the reference for the next
// transfer check.
func (c *Card) RecordTransfer(now time.Time, routeID string) {
	c.lastTransferAt = now
	c.lastTransferRoute = routeID
}

func (c *Card) LastTransfer() (time.Time, string) {
	return c.lastTransferAt, c.lastTransferRoute
}
