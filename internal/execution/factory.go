package execution

import (
	"fmt"
	"log/slog"

	"github.com/hguan-dev/nu-algo-trading-competition/internal/domain"
)

// Mode selects the venue implementation.
type Mode string

const (
	ModeMock  Mode = "MOCK"
	ModePaper Mode = "PAPER"
	ModeReal  Mode = "REAL"
)

// NewVenue builds the venue for a trading mode. MOCK only logs, PAPER
// simulates fills against a virtual balance, REAL is reserved for live
// connectivity and is rejected until one exists.
func NewVenue(mode Mode, initialCapital, feeRate float64, onAccount AccountCallback) (Venue, error) {
	slog.Info("initializing venue", slog.String("mode", string(mode)))

	switch mode {
	case ModeMock:
		return NewMockVenue(), nil
	case ModePaper:
		return NewSimVenue(initialCapital, feeRate, onAccount), nil
	case ModeReal:
		return nil, fmt.Errorf("mode %s: no live venue adapter configured", mode)
	default:
		return nil, fmt.Errorf("unknown execution mode: %s", mode)
	}
}

// UpdatePrice forwards a reference price when the venue simulates fills.
// No-op for venues that do not track prices.
func UpdatePrice(v Venue, instr domain.Instrument, price float64) {
	if sim, ok := v.(*SimVenue); ok {
		sim.UpdatePrice(instr, price)
	}
}
