// Package execution turns trade intents into venue submissions. The
// lifecycle manager owns throttling, retries, and open-order tracking; the
// Venue implementations own the wire (or simulated) semantics.
package execution

import (
	"github.com/hguan-dev/nu-algo-trading-competition/internal/domain"
)

// Venue is the order-entry surface of an exchange.
type Venue interface {
	// PlaceMarketOrder submits a market order. Returns whether the venue
	// accepted it.
	PlaceMarketOrder(side domain.Side, instr domain.Instrument, quantity float64) bool

	// PlaceLimitOrder submits a limit order, optionally immediate-or-cancel.
	// Returns the venue order ID, or domain.FailedOrderID on rejection.
	PlaceLimitOrder(side domain.Side, instr domain.Instrument, quantity, price float64, ioc bool) int64

	// CancelOrder cancels a resting order by ID. Returns whether the venue
	// acknowledged the cancel.
	CancelOrder(instr domain.Instrument, orderID int64) bool
}
