package execution

import (
	"log/slog"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/hguan-dev/nu-algo-trading-competition/internal/domain"
)

// AccountCallback delivers a simulated fill confirmation the same way the
// live feed would: instrument, side, fill price and quantity, plus the
// venue's view of remaining capital.
type AccountCallback func(instr domain.Instrument, side domain.Side, price, quantity, capitalRemaining float64)

// SimVenue simulates order execution against a virtual balance. Market
// orders fill at the last known reference price, limit orders at their
// limit price. Used for paper trading and pre-production validation.
type SimVenue struct {
	mu      sync.Mutex
	nextID  int64
	capital decimal.Decimal
	feeRate decimal.Decimal
	prices  map[domain.Instrument]float64
	resting map[int64]domain.Order

	onAccount AccountCallback
}

// NewSimVenue creates a simulated venue with the given starting capital.
func NewSimVenue(initialCapital, feeRate float64, onAccount AccountCallback) *SimVenue {
	return &SimVenue{
		nextID:    1,
		capital:   decimal.NewFromFloat(initialCapital),
		feeRate:   decimal.NewFromFloat(feeRate),
		prices:    make(map[domain.Instrument]float64),
		resting:   make(map[int64]domain.Order),
		onAccount: onAccount,
	}
}

// UpdatePrice sets the reference price used to fill market orders and to
// cross resting limit orders.
func (s *SimVenue) UpdatePrice(instr domain.Instrument, price float64) {
	s.mu.Lock()
	fills := s.crossResting(instr, price)
	s.prices[instr] = price
	s.mu.Unlock()

	for _, f := range fills {
		s.emit(f)
	}
}

type simFill struct {
	instr            domain.Instrument
	side             domain.Side
	price            float64
	quantity         float64
	capitalRemaining float64
}

// crossResting fills resting limit orders the new price trades through.
// Caller holds the lock.
func (s *SimVenue) crossResting(instr domain.Instrument, price float64) []simFill {
	var fills []simFill
	for id, order := range s.resting {
		if order.Instrument != instr {
			continue
		}
		crossed := (order.Side == domain.Buy && price <= order.Price) ||
			(order.Side == domain.Sell && price >= order.Price)
		if !crossed {
			continue
		}
		delete(s.resting, id)
		fills = append(fills, s.settle(order.Instrument, order.Side, order.Price, order.Quantity))
	}
	return fills
}

// settle applies one fill to the virtual balance. Caller holds the lock.
func (s *SimVenue) settle(instr domain.Instrument, side domain.Side, price, quantity float64) simFill {
	notional := decimal.NewFromFloat(price).Mul(decimal.NewFromFloat(quantity))
	fee := notional.Mul(s.feeRate)
	if side == domain.Buy {
		s.capital = s.capital.Sub(notional).Sub(fee)
	} else {
		s.capital = s.capital.Add(notional).Sub(fee)
	}
	return simFill{
		instr:            instr,
		side:             side,
		price:            price,
		quantity:         quantity,
		capitalRemaining: s.capital.InexactFloat64(),
	}
}

func (s *SimVenue) emit(f simFill) {
	slog.Info("SIM VENUE: fill",
		slog.String("instrument", f.instr.String()),
		slog.String("side", f.side.String()),
		slog.Float64("price", f.price),
		slog.Float64("qty", f.quantity),
		slog.Float64("capital_remaining", f.capitalRemaining))
	if s.onAccount != nil {
		s.onAccount(f.instr, f.side, f.price, f.quantity, f.capitalRemaining)
	}
}

func (s *SimVenue) PlaceMarketOrder(side domain.Side, instr domain.Instrument, quantity float64) bool {
	s.mu.Lock()
	price, ok := s.prices[instr]
	if !ok {
		s.mu.Unlock()
		slog.Warn("SIM VENUE: no reference price, market order rejected",
			slog.String("instrument", instr.String()))
		return false
	}
	fill := s.settle(instr, side, price, quantity)
	s.mu.Unlock()

	s.emit(fill)
	return true
}

func (s *SimVenue) PlaceLimitOrder(side domain.Side, instr domain.Instrument, quantity, price float64, ioc bool) int64 {
	s.mu.Lock()
	id := s.nextID
	s.nextID++

	ref, hasRef := s.prices[instr]
	crossed := hasRef &&
		((side == domain.Buy && ref <= price) || (side == domain.Sell && ref >= price))

	if crossed {
		fill := s.settle(instr, side, price, quantity)
		s.mu.Unlock()
		s.emit(fill)
		return id
	}

	if ioc {
		// Nothing to cross right now: the unfilled remainder cancels.
		s.mu.Unlock()
		return id
	}

	s.resting[id] = domain.Order{
		ID:         id,
		Instrument: instr,
		Side:       side,
		Quantity:   quantity,
		Price:      price,
		Status:     domain.StatusNew,
	}
	s.mu.Unlock()
	return id
}

func (s *SimVenue) CancelOrder(instr domain.Instrument, orderID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.resting[orderID]; !ok {
		return false
	}
	delete(s.resting, orderID)
	return true
}

// Capital returns the current virtual balance.
func (s *SimVenue) Capital() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.capital.InexactFloat64()
}
