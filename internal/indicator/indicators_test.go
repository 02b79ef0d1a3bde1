package indicator

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestRSIBoundedForAnySequence(t *testing.T) {
	// Deterministic pseudo-random walk; RSI must stay in [0,100] throughout.
	prices := make([]float64, 0, 200)
	p := 100.0
	seed := uint64(42)
	for i := 0; i < 200; i++ {
		seed = seed*6364136223846793005 + 1442695040888963407
		step := float64(int64(seed>>33)%200-100) / 100
		p += step
		prices = append(prices, p)

		rsi := RSI(prices, 14)
		if rsi < 0 || rsi > 100 {
			t.Fatalf("RSI %v escaped [0,100] at step %d", rsi, i)
		}
	}
}

func TestRSISentinels(t *testing.T) {
	// Insufficient data: neutral 50.
	if got := RSI([]float64{1, 2, 3}, 14); got != NeutralRSI {
		t.Errorf("short window: expected 50, got %v", got)
	}

	// Monotonically rising prices: no losses, RSI pegs at 100.
	rising := make([]float64, 20)
	for i := range rising {
		rising[i] = 100 + float64(i)
	}
	if got := RSI(rising, 14); got != 100 {
		t.Errorf("zero average loss: expected 100, got %v", got)
	}

	// Monotonically falling prices: no gains, RSI is 0.
	falling := make([]float64, 20)
	for i := range falling {
		falling[i] = 100 - float64(i)
	}
	if got := RSI(falling, 14); got != 0 {
		t.Errorf("zero average gain: expected 0, got %v", got)
	}
}

func TestRSIKnownValue(t *testing.T) {
	// Period 4 over 5 prices: deltas +2, -1, +2, -1.
	// avgGain = 4/4 = 1, avgLoss = 2/4 = 0.5, RS = 2, RSI = 100 - 100/3.
	prices := []float64{10, 12, 11, 13, 12}
	want := 100 - 100.0/3
	if got := RSI(prices, 4); !almostEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestBollingerFlatPrices(t *testing.T) {
	// 20 identical prices: sigma = 0, bands collapse onto the SMA,
	// band width 0 regardless of anything else.
	prices := make([]float64, 20)
	for i := range prices {
		prices[i] = 250
	}

	b, ok := Bollinger(prices, 20, 2)
	if !ok {
		t.Fatal("expected bands with a full window")
	}
	if b.SMA != 250 || b.Upper != 250 || b.Lower != 250 {
		t.Errorf("flat prices: bands must collapse, got %+v", b)
	}
	if b.Width != 0 {
		t.Errorf("flat prices: expected width 0, got %v", b.Width)
	}
}

func TestBollingerInsufficientData(t *testing.T) {
	if _, ok := Bollinger([]float64{1, 2, 3}, 20, 2); ok {
		t.Error("expected no bands below the period")
	}
}

func TestBollingerWidth(t *testing.T) {
	prices := []float64{98, 102, 98, 102} // mean 100, population sigma 2
	b, ok := Bollinger(prices, 4, 2)
	if !ok {
		t.Fatal("expected bands")
	}
	if !almostEqual(b.Upper, 104) || !almostEqual(b.Lower, 96) {
		t.Errorf("expected bands 96/104, got %+v", b)
	}
	if !almostEqual(b.Width, 0.08) {
		t.Errorf("expected width 0.08, got %v", b.Width)
	}
}

func TestVWAP(t *testing.T) {
	prices := []float64{10, 20, 30}
	volumes := []float64{1, 1, 2}
	got, ok := VWAP(prices, volumes)
	if !ok {
		t.Fatal("expected vwap")
	}
	if !almostEqual(got, 22.5) {
		t.Errorf("expected 22.5, got %v", got)
	}

	// Zero total volume: undefined, skip.
	if _, ok := VWAP(prices, []float64{0, 0, 0}); ok {
		t.Error("zero volume must be undefined")
	}
}

func TestSlopeLinearSeries(t *testing.T) {
	prices := []float64{100, 103, 106, 109, 112}
	slope, ok := Slope(prices)
	if !ok {
		t.Fatal("expected slope")
	}
	if !almostEqual(slope, 3) {
		t.Errorf("expected slope 3, got %v", slope)
	}

	norm, ok := NormalizedSlope(prices)
	if !ok {
		t.Fatal("expected normalized slope")
	}
	if !almostEqual(norm, 3.0/106) {
		t.Errorf("expected %v, got %v", 3.0/106, norm)
	}
}

func TestSlopeInsufficientData(t *testing.T) {
	if _, ok := Slope([]float64{5}); ok {
		t.Error("one sample must not yield a slope")
	}
}

func TestATRProxy(t *testing.T) {
	prices := []float64{100, 102, 99, 103}
	// Last 3 deltas: |2| + |-3| + |4| = 9, mean 3.
	if got := ATRProxy(prices, 3); !almostEqual(got, 3) {
		t.Errorf("expected 3, got %v", got)
	}

	if got := ATRProxy([]float64{100}, 3); got != 0 {
		t.Errorf("insufficient data: expected 0, got %v", got)
	}
}

func TestEMAConstantSeries(t *testing.T) {
	vals := []float64{50, 50, 50, 50, 50}
	ema, ok := EMA(vals, 3)
	if !ok || !almostEqual(ema, 50) {
		t.Errorf("EMA of constant series must be the constant, got %v", ema)
	}

	dema, ok := DoubleEMA(vals, 3)
	if !ok || !almostEqual(dema, 50) {
		t.Errorf("double EMA of constant series must be the constant, got %v", dema)
	}
}

func TestDoubleEMAReducesLag(t *testing.T) {
	// On a rising series the double EMA sits closer to the latest price
	// than the plain EMA.
	vals := make([]float64, 30)
	for i := range vals {
		vals[i] = 100 + 2*float64(i)
	}
	ema, _ := EMA(vals, 10)
	dema, _ := DoubleEMA(vals, 10)
	last := vals[len(vals)-1]
	if math.Abs(last-dema) >= math.Abs(last-ema) {
		t.Errorf("double EMA (%v) should lag less than EMA (%v) behind %v", dema, ema, last)
	}
}

func TestPPOSign(t *testing.T) {
	rising := make([]float64, 40)
	for i := range rising {
		rising[i] = 100 + float64(i)
	}
	ppo, ok := PPO(rising, 12, 26)
	if !ok || ppo <= 0 {
		t.Errorf("rising series must give positive PPO, got %v", ppo)
	}

	falling := make([]float64, 40)
	for i := range falling {
		falling[i] = 100 - float64(i)
	}
	ppo, ok = PPO(falling, 12, 26)
	if !ok || ppo >= 0 {
		t.Errorf("falling series must give negative PPO, got %v", ppo)
	}
}

func TestIndicatorDeterminism(t *testing.T) {
	// Identical push sequences through two windows must produce
	// bit-identical indicator outputs at every step.
	w1 := NewWindow(30)
	w2 := NewWindow(30)

	p := 500.0
	seed := uint64(7)
	for i := 0; i < 300; i++ {
		seed = seed*6364136223846793005 + 1442695040888963407
		p += float64(int64(seed>>40)%100-50) / 10
		s := Sample{Price: p, Volume: float64(seed % 10)}
		w1.Push(s)
		w2.Push(s)

		p1 := w1.Prices(nil)
		p2 := w2.Prices(nil)
		v1 := w1.Volumes(nil)
		v2 := w2.Volumes(nil)

		if RSI(p1, 14) != RSI(p2, 14) {
			t.Fatalf("RSI diverged at step %d", i)
		}
		b1, ok1 := Bollinger(p1, 20, 2)
		b2, ok2 := Bollinger(p2, 20, 2)
		if ok1 != ok2 || b1 != b2 {
			t.Fatalf("Bollinger diverged at step %d", i)
		}
		vw1, okA := VWAP(p1, v1)
		vw2, okB := VWAP(p2, v2)
		if okA != okB || vw1 != vw2 {
			t.Fatalf("VWAP diverged at step %d", i)
		}
		s1, _ := Slope(p1)
		s2, _ := Slope(p2)
		if s1 != s2 {
			t.Fatalf("Slope diverged at step %d", i)
		}
	}
}
