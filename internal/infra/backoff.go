package infra

import "time"

// Reconnect pacing for the market-data feed. The first retry comes fast
// so a transient drop costs little data; repeated failures back off
// exponentially so a dead endpoint is not hammered all session.
const (
	reconnectBase = 500 * time.Millisecond
	reconnectCap  = 2 * time.Minute
)

// ReconnectDelay returns the pause before reconnect attempt n (0-based).
// The delay doubles per attempt from reconnectBase up to reconnectCap.
func ReconnectDelay(attempt int) time.Duration {
	if attempt < 1 {
		return reconnectBase
	}
	if attempt > 30 {
		return reconnectCap
	}
	d := reconnectBase << uint(attempt)
	if d > reconnectCap {
		return reconnectCap
	}
	return d
}
