package event

import (
	"github.com/hguan-dev/nu-algo-trading-competition/internal/domain"
	"github.com/hguan-dev/nu-algo-trading-competition/pkg/quant"
)

// Type defines the type of event.
type Type uint16

const (
	EvTrade Type = iota + 1
	EvBook
	EvAccount
)

// Event is the interface for everything flowing through an instrument
// pipeline. Events for one instrument are processed in arrival order.
type Event interface {
	GetSeq() uint64
	GetTs() quant.TimeStamp
	GetType() Type
	GetInstrument() domain.Instrument
}

// BaseEvent contains common fields for all events.
type BaseEvent struct {
	Seq        uint64            `json:"seq"`
	Ts         quant.TimeStamp   `json:"ts"`
	Instrument domain.Instrument `json:"instrument"`
}

func (e BaseEvent) GetSeq() uint64                   { return e.Seq }
func (e BaseEvent) GetTs() quant.TimeStamp           { return e.Ts }
func (e BaseEvent) GetInstrument() domain.Instrument { return e.Instrument }

// TradeEvent is a trade on the venue, not necessarily one of ours.
type TradeEvent struct {
	BaseEvent
	Side     domain.Side `json:"side"`
	Quantity float64     `json:"qty"`
	Price    float64     `json:"price"`
}

func (e TradeEvent) GetType() Type { return EvTrade }

// BookEvent is an incremental depth change. Quantity 0 removes the level.
type BookEvent struct {
	BaseEvent
	Side     domain.Side `json:"side"`
	Quantity float64     `json:"qty"`
	Price    float64     `json:"price"`
}

func (e BookEvent) GetType() Type { return EvBook }

// AccountEvent confirms a fill of one of this engine's own orders.
// CapitalRemaining is authoritative and always overrides local bookkeeping.
type AccountEvent struct {
	BaseEvent
	Side             domain.Side `json:"side"`
	Quantity         float64     `json:"qty"`
	Price            float64     `json:"price"`
	CapitalRemaining float64     `json:"capital_remaining"`
}

func (e AccountEvent) GetType() Type { return EvAccount }
