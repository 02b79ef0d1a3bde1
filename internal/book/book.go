// Package book reconstructs a per-instrument view of venue depth from
// incremental book-delta events.
package book

import "github.com/hguan-dev/nu-algo-trading-competition/internal/domain"

// Book is a local order book for one instrument. Levels are keyed by price
// per side; a delta with quantity 0 removes the level. Best bid/ask are
// maintained incrementally; removing the current best triggers a rescan.
type Book struct {
	bids map[float64]float64
	asks map[float64]float64

	bestBid float64
	bestAsk float64
	hasBid  bool
	hasAsk  bool
}

// New creates an empty book.
func New() *Book {
	return &Book{
		bids: make(map[float64]float64),
		asks: make(map[float64]float64),
	}
}

// Apply processes one depth delta.
func (b *Book) Apply(side domain.Side, price, quantity float64) {
	levels := b.bids
	if side == domain.Sell {
		levels = b.asks
	}

	if quantity == 0 {
		if _, ok := levels[price]; !ok {
			return
		}
		delete(levels, price)
		if side == domain.Buy && b.hasBid && price == b.bestBid {
			b.rescanBid()
		} else if side == domain.Sell && b.hasAsk && price == b.bestAsk {
			b.rescanAsk()
		}
		return
	}

	levels[price] = quantity
	if side == domain.Buy {
		if !b.hasBid || price > b.bestBid {
			b.bestBid = price
			b.hasBid = true
		}
	} else {
		if !b.hasAsk || price < b.bestAsk {
			b.bestAsk = price
			b.hasAsk = true
		}
	}
}

func (b *Book) rescanBid() {
	b.hasBid = false
	for p := range b.bids {
		if !b.hasBid || p > b.bestBid {
			b.bestBid = p
			b.hasBid = true
		}
	}
}

func (b *Book) rescanAsk() {
	b.hasAsk = false
	for p := range b.asks {
		if !b.hasAsk || p < b.bestAsk {
			b.bestAsk = p
			b.hasAsk = true
		}
	}
}

// BestBid returns the highest buy price, if any level exists.
func (b *Book) BestBid() (float64, bool) {
	return b.bestBid, b.hasBid
}

// BestAsk returns the lowest sell price, if any level exists.
func (b *Book) BestAsk() (float64, bool) {
	return b.bestAsk, b.hasAsk
}

// Mid returns (bestBid+bestAsk)/2, undefined until both sides have at
// least one level.
func (b *Book) Mid() (float64, bool) {
	if !b.hasBid || !b.hasAsk {
		return 0, false
	}
	return (b.bestBid + b.bestAsk) / 2, true
}

// Depth returns the number of price levels on a side.
func (b *Book) Depth(side domain.Side) int {
	if side == domain.Buy {
		return len(b.bids)
	}
	return len(b.asks)
}
