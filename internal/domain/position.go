package domain

// Position represents the current holding in one instrument.
// Quantity sign matches net side: positive is long, negative is short.
// Positions are mutated only by the ledger on confirmed fills, never by
// signal intents.
type Position struct {
	Instrument    Instrument
	Quantity      float64
	AvgEntryPrice float64
}

// IsFlat checks if there is no open position.
func (p *Position) IsFlat() bool {
	return p.Quantity == 0
}

// IsLong checks if the position is long.
func (p *Position) IsLong() bool {
	return p.Quantity > 0
}

// IsShort checks if the position is short.
func (p *Position) IsShort() bool {
	return p.Quantity < 0
}

// UnrealizedPct returns the unrealized percent change of the position at
// the given price, relative to the average entry. Short positions gain when
// price falls. Returns 0 when flat or the entry price is unknown.
func (p *Position) UnrealizedPct(price float64) float64 {
	if p.Quantity == 0 || p.AvgEntryPrice == 0 {
		return 0
	}
	change := (price - p.AvgEntryPrice) / p.AvgEntryPrice
	if p.Quantity < 0 {
		return -change
	}
	return change
}
