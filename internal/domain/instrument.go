package domain

import "fmt"

// Instrument is the fixed set of tradable tickers.
type Instrument uint8

const (
	ETH Instrument = iota
	BTC
	LTC
)

// Instruments returns all tradable instruments in enum order.
func Instruments() []Instrument {
	return []Instrument{ETH, BTC, LTC}
}

func (i Instrument) String() string {
	switch i {
	case ETH:
		return "ETH"
	case BTC:
		return "BTC"
	case LTC:
		return "LTC"
	default:
		return fmt.Sprintf("Instrument(%d)", uint8(i))
	}
}

// ParseInstrument converts a ticker string to an Instrument.
func ParseInstrument(s string) (Instrument, error) {
	switch s {
	case "ETH":
		return ETH, nil
	case "BTC":
		return BTC, nil
	case "LTC":
		return LTC, nil
	default:
		return 0, fmt.Errorf("unknown instrument: %q", s)
	}
}

// Side is the direction of an order or trade.
type Side uint8

const (
	Buy Side = iota
	Sell
)

func (s Side) String() string {
	if s == Buy {
		return "BUY"
	}
	return "SELL"
}

// Sign returns +1 for Buy and -1 for Sell, the factor applied to
// quantities when mutating holdings.
func (s Side) Sign() float64 {
	if s == Buy {
		return 1
	}
	return -1
}

// ParseSide converts a side string to a Side.
func ParseSide(s string) (Side, error) {
	switch s {
	case "BUY":
		return Buy, nil
	case "SELL":
		return Sell, nil
	default:
		return 0, fmt.Errorf("unknown side: %q", s)
	}
}
