// Package ledger owns the engine's position map and capital. Both are
// mutated only on confirmed account-update events, never on intents: the
// venue's view of capital is authoritative and always wins over the local
// fee arithmetic, which is a provisional estimate.
package ledger

import (
	"sync"

	"github.com/shopspring/decimal"

	"github.com/hguan-dev/nu-algo-trading-competition/internal/domain"
)

// Ledger tracks holdings, capital, and cumulative fees across instruments.
// Safe for concurrent reads from outside the instrument pipelines.
type Ledger struct {
	mu        sync.RWMutex
	positions map[domain.Instrument]*domain.Position
	capital   decimal.Decimal
	feeRate   decimal.Decimal
	totalFees decimal.Decimal
}

// New creates a ledger with the given starting capital and fee rate.
func New(initialCapital, feeRate float64) *Ledger {
	return &Ledger{
		positions: make(map[domain.Instrument]*domain.Position),
		capital:   decimal.NewFromFloat(initialCapital),
		feeRate:   decimal.NewFromFloat(feeRate),
	}
}

// ApplyFill reconciles one confirmed fill. Holdings move by the signed
// quantity; a proportional fee is charged against a locally computed
// capital estimate; then the estimate is overwritten by the venue-reported
// capitalRemaining. Applied on every account event, success or not.
func (l *Ledger) ApplyFill(instr domain.Instrument, side domain.Side, price, quantity, capitalRemaining float64) domain.Position {
	l.mu.Lock()
	defer l.mu.Unlock()

	pos, ok := l.positions[instr]
	if !ok {
		pos = &domain.Position{Instrument: instr}
		l.positions[instr] = pos
	}

	signed := side.Sign() * quantity
	prevQty := pos.Quantity
	newQty := prevQty + signed

	switch {
	case prevQty == 0 || (prevQty > 0) == (signed > 0):
		// Opening or adding: weighted average entry.
		absPrev := abs(prevQty)
		absNew := abs(newQty)
		if absNew > 0 {
			pos.AvgEntryPrice = (pos.AvgEntryPrice*absPrev + price*abs(signed)) / absNew
		}
	case (newQty > 0) != (prevQty > 0) && newQty != 0:
		// Flipped through zero: the remainder is a fresh position at the
		// fill price.
		pos.AvgEntryPrice = price
	case newQty == 0:
		pos.AvgEntryPrice = 0
	}
	pos.Quantity = newQty

	// Provisional fee arithmetic.
	px := decimal.NewFromFloat(price)
	qty := decimal.NewFromFloat(quantity)
	notional := px.Mul(qty)
	fee := notional.Mul(l.feeRate)
	l.totalFees = l.totalFees.Add(fee)

	if side == domain.Buy {
		l.capital = l.capital.Sub(notional).Sub(fee)
	} else {
		l.capital = l.capital.Add(notional).Sub(fee)
	}

	// Reconcile: the venue value overwrites the estimate unconditionally.
	l.capital = decimal.NewFromFloat(capitalRemaining)

	return *pos
}

// Capital returns the current reconciled capital.
func (l *Ledger) Capital() float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.capital.InexactFloat64()
}

// Position returns a copy of the holding for an instrument.
func (l *Ledger) Position(instr domain.Instrument) domain.Position {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if pos, ok := l.positions[instr]; ok {
		return *pos
	}
	return domain.Position{Instrument: instr}
}

// TotalFees returns the cumulative estimated fees charged on fills.
func (l *Ledger) TotalFees() float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.totalFees.InexactFloat64()
}

// Snapshot returns a copy of every non-flat position plus capital, for
// state dumps and snapshots.
func (l *Ledger) Snapshot() (map[string]domain.Position, float64) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make(map[string]domain.Position, len(l.positions))
	for instr, pos := range l.positions {
		if pos.Quantity != 0 {
			out[instr.String()] = *pos
		}
	}
	return out, l.capital.InexactFloat64()
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
