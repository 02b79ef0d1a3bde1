package execution

import (
	"math"
	"testing"

	"github.com/hguan-dev/nu-algo-trading-competition/internal/domain"
)

type accountRecorder struct {
	fills []struct {
		instr   domain.Instrument
		side    domain.Side
		price   float64
		qty     float64
		capital float64
	}
}

func (r *accountRecorder) record(instr domain.Instrument, side domain.Side, price, qty, capital float64) {
	r.fills = append(r.fills, struct {
		instr   domain.Instrument
		side    domain.Side
		price   float64
		qty     float64
		capital float64
	}{instr, side, price, qty, capital})
}

func TestSimMarketFill(t *testing.T) {
	rec := &accountRecorder{}
	sim := NewSimVenue(10000, 0.004, rec.record)
	sim.UpdatePrice(domain.BTC, 100)

	if !sim.PlaceMarketOrder(domain.Buy, domain.BTC, 1) {
		t.Fatal("market order with a reference price must fill")
	}
	if len(rec.fills) != 1 {
		t.Fatalf("expected 1 fill event, got %d", len(rec.fills))
	}

	// 10000 - 100 - 0.4 fee.
	want := 9899.6
	if got := rec.fills[0].capital; math.Abs(got-want) > 1e-9 {
		t.Errorf("expected capital_remaining %v, got %v", want, got)
	}
}

func TestSimMarketRejectsWithoutPrice(t *testing.T) {
	sim := NewSimVenue(10000, 0.004, nil)
	if sim.PlaceMarketOrder(domain.Buy, domain.LTC, 1) {
		t.Error("market order without a reference price must reject")
	}
}

func TestSimRestingLimitCrossesOnPrice(t *testing.T) {
	rec := &accountRecorder{}
	sim := NewSimVenue(10000, 0, rec.record)
	sim.UpdatePrice(domain.ETH, 100)

	id := sim.PlaceLimitOrder(domain.Buy, domain.ETH, 1, 95, false)
	if id == domain.FailedOrderID {
		t.Fatal("limit submission must be accepted")
	}
	if len(rec.fills) != 0 {
		t.Fatal("order must rest, price has not crossed")
	}

	sim.UpdatePrice(domain.ETH, 94)
	if len(rec.fills) != 1 {
		t.Fatalf("expected the resting order to fill, got %d fills", len(rec.fills))
	}
	if rec.fills[0].price != 95 {
		t.Errorf("resting order fills at its limit price, got %v", rec.fills[0].price)
	}
	if got := rec.fills[0].capital; got != 9905 {
		t.Errorf("expected capital 9905, got %v", got)
	}
}

func TestSimIOCDoesNotRest(t *testing.T) {
	rec := &accountRecorder{}
	sim := NewSimVenue(10000, 0, rec.record)
	sim.UpdatePrice(domain.ETH, 100)

	sim.PlaceLimitOrder(domain.Buy, domain.ETH, 1, 95, true)
	sim.UpdatePrice(domain.ETH, 90)

	if len(rec.fills) != 0 {
		t.Error("unfilled IOC must cancel, not rest")
	}
}

func TestSimImmediateCross(t *testing.T) {
	rec := &accountRecorder{}
	sim := NewSimVenue(10000, 0, rec.record)
	sim.UpdatePrice(domain.BTC, 94)

	sim.PlaceLimitOrder(domain.Buy, domain.BTC, 1, 95, true)
	if len(rec.fills) != 1 {
		t.Fatal("marketable IOC must fill immediately")
	}
}

func TestSimCancel(t *testing.T) {
	sim := NewSimVenue(10000, 0, nil)
	sim.UpdatePrice(domain.ETH, 100)

	id := sim.PlaceLimitOrder(domain.Sell, domain.ETH, 1, 110, false)
	if !sim.CancelOrder(domain.ETH, id) {
		t.Error("cancel of a resting order must succeed")
	}
	if sim.CancelOrder(domain.ETH, id) {
		t.Error("cancel of a gone order must fail")
	}
}
