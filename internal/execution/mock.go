package execution

import (
	"log/slog"
	"sync"

	"github.com/hguan-dev/nu-algo-trading-competition/internal/domain"
)

// MockVenue is a safe implementation that only logs orders. Rejections can
// be scripted for testing the retry and breaker paths.
type MockVenue struct {
	mu     sync.Mutex
	nextID int64

	// FailNext rejects that many submissions before accepting again.
	FailNext int

	Placed   []domain.Order
	Canceled []int64
}

func NewMockVenue() *MockVenue {
	return &MockVenue{nextID: 1}
}

func (m *MockVenue) PlaceMarketOrder(side domain.Side, instr domain.Instrument, quantity float64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailNext > 0 {
		m.FailNext--
		return false
	}
	m.Placed = append(m.Placed, domain.Order{
		ID:         m.nextID,
		Instrument: instr,
		Side:       side,
		Quantity:   quantity,
		Status:     domain.StatusFilled,
	})
	m.nextID++
	slog.Info("MOCK VENUE: market order",
		slog.String("instrument", instr.String()),
		slog.String("side", side.String()),
		slog.Float64("qty", quantity))
	return true
}

func (m *MockVenue) PlaceLimitOrder(side domain.Side, instr domain.Instrument, quantity, price float64, ioc bool) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailNext > 0 {
		m.FailNext--
		return domain.FailedOrderID
	}
	id := m.nextID
	m.nextID++
	m.Placed = append(m.Placed, domain.Order{
		ID:                id,
		Instrument:        instr,
		Side:              side,
		Quantity:          quantity,
		Price:             price,
		ImmediateOrCancel: ioc,
		Status:            domain.StatusNew,
	})
	slog.Info("MOCK VENUE: limit order",
		slog.Int64("id", id),
		slog.String("instrument", instr.String()),
		slog.String("side", side.String()),
		slog.Float64("price", price),
		slog.Float64("qty", quantity),
		slog.Bool("ioc", ioc))
	return id
}

func (m *MockVenue) CancelOrder(instr domain.Instrument, orderID int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Canceled = append(m.Canceled, orderID)
	slog.Info("MOCK VENUE: cancel order",
		slog.String("instrument", instr.String()),
		slog.Int64("id", orderID))
	return true
}
