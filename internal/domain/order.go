package domain

import "github.com/hguan-dev/nu-algo-trading-competition/pkg/quant"

// FailedOrderID is the sentinel returned by the venue when a limit order
// submission is rejected (rate limiting on the venue side).
const FailedOrderID int64 = -1

// Order statuses.
const (
	StatusNew      = "NEW"
	StatusFilled   = "FILLED"
	StatusCanceled = "CANCELED"
	StatusRejected = "REJECTED"
)

// Order represents one outstanding order tracked by the lifecycle manager.
type Order struct {
	ID                int64
	Instrument        Instrument
	Side              Side
	Quantity          float64
	Price             float64 // limit price; 0 for market orders
	ImmediateOrCancel bool
	Status            string
	CreatedUnixM      quant.TimeStamp
}

// IsOpen checks if the order is still active.
func (o *Order) IsOpen() bool {
	return o.Status == StatusNew
}

// Terminal reports whether the order has reached a final state.
// An order id transitions into a terminal state exactly once.
func (o *Order) Terminal() bool {
	return o.Status == StatusFilled || o.Status == StatusCanceled || o.Status == StatusRejected
}
