// Package indicator computes rolling technical indicators over bounded
// price windows. Every function is pure given the window contents:
// identical input sequences yield bit-identical outputs. Insufficient data
// and zero-denominator cases return defined neutral values instead of
// failing, so signal evaluation never blocks on indicator errors.
package indicator

import (
	"math"

	"github.com/hguan-dev/nu-algo-trading-competition/pkg/safe"
)

// NeutralRSI is returned while the window holds fewer than period+1 samples.
const NeutralRSI = 50.0

// RSI computes the Relative Strength Index over the last `period` deltas
// using Wilder-style simple averages of gains and losses.
// Sentinels: fewer than period+1 prices => 50 (neutral); zero average loss
// => 100. The result is always clamped to [0, 100].
func RSI(prices []float64, period int) float64 {
	if len(prices) < period+1 {
		return NeutralRSI
	}

	var gain, loss float64
	start := len(prices) - period
	for i := start; i < len(prices); i++ {
		delta := prices[i] - prices[i-1]
		if delta > 0 {
			gain += delta
		} else {
			loss -= delta
		}
	}

	avgGain := gain / float64(period)
	avgLoss := loss / float64(period)
	if avgLoss == 0 {
		return 100
	}

	rs := avgGain / avgLoss
	return safe.Clamp(100-100/(1+rs), 0, 100)
}

// Bands holds a Bollinger computation: SMA center, upper and lower bands,
// and the relative band width.
type Bands struct {
	SMA   float64
	Upper float64
	Lower float64
	Width float64 // (upper-lower)/SMA; 0 when SMA is 0
}

// Bollinger computes SMA +/- k population standard deviations over the last
// `period` prices. Returns ok=false until the window holds `period` samples.
// Callers must treat Width below their configured minimum as a flat regime
// with no actionable signal.
func Bollinger(prices []float64, period int, k float64) (Bands, bool) {
	if len(prices) < period {
		return Bands{}, false
	}

	tail := prices[len(prices)-period:]
	sma := safe.Mean(tail)
	sigma := safe.StdDev(tail)

	b := Bands{
		SMA:   sma,
		Upper: sma + k*sigma,
		Lower: sma - k*sigma,
	}
	b.Width = safe.DivOr(b.Upper-b.Lower, sma, 0)
	return b, true
}

// VWAP computes the volume-weighted average price over the window.
// Returns ok=false when total volume is 0 (undefined, callers skip).
func VWAP(prices, volumes []float64) (float64, bool) {
	n := len(prices)
	if n == 0 || n != len(volumes) {
		return 0, false
	}

	var weighted, total float64
	for i := 0; i < n; i++ {
		weighted += prices[i] * volumes[i]
		total += volumes[i]
	}
	if total == 0 {
		return 0, false
	}
	return weighted / total, true
}

// Volatility is the population standard deviation of the window prices.
func Volatility(prices []float64) float64 {
	return safe.StdDev(prices)
}

// Slope fits price against sample index by ordinary least squares and
// returns the slope per sample. Requires at least 2 samples.
func Slope(prices []float64) (float64, bool) {
	n := len(prices)
	if n < 2 {
		return 0, false
	}

	// x = 0..n-1, so the x moments have closed forms.
	fn := float64(n)
	meanX := (fn - 1) / 2
	meanY := safe.Mean(prices)

	var sxy, sxx float64
	for i, p := range prices {
		dx := float64(i) - meanX
		sxy += dx * (p - meanY)
		sxx += dx * dx
	}
	if sxx == 0 {
		return 0, false
	}
	return sxy / sxx, true
}

// NormalizedSlope divides the OLS slope by the window mean price, making
// the trend measure scale-free across price regimes.
func NormalizedSlope(prices []float64) (float64, bool) {
	slope, ok := Slope(prices)
	if !ok {
		return 0, false
	}
	mean := safe.Mean(prices)
	if mean == 0 {
		return 0, false
	}
	return slope / mean, true
}

// ATRProxy is the mean of absolute consecutive price differences over the
// last `period` deltas. Returns 0 with insufficient data.
func ATRProxy(prices []float64, period int) float64 {
	if len(prices) < period+1 {
		return 0
	}

	var sum float64
	start := len(prices) - period
	for i := start; i < len(prices); i++ {
		sum += math.Abs(prices[i] - prices[i-1])
	}
	return sum / float64(period)
}

// EMA computes the exponential moving average of values with smoothing
// alpha = 2/(period+1), seeded with the first value. Returns ok=false for
// an empty input.
func EMA(values []float64, period int) (float64, bool) {
	series := emaSeries(values, period, nil)
	if len(series) == 0 {
		return 0, false
	}
	return series[len(series)-1], true
}

// DoubleEMA computes 2*EMA - EMA(EMA), reducing lag at the cost of
// overshoot. Used as a trend filter, not a standalone signal.
func DoubleEMA(values []float64, period int) (float64, bool) {
	first := emaSeries(values, period, nil)
	if len(first) == 0 {
		return 0, false
	}
	second := emaSeries(first, period, nil)
	return 2*first[len(first)-1] - second[len(second)-1], true
}

// PPO is the percentage price oscillator: (EMA(short) - EMA(long)) /
// EMA(long) * 100. Returns ok=false with no data or a zero long EMA.
func PPO(values []float64, shortPeriod, longPeriod int) (float64, bool) {
	emaShort, ok := EMA(values, shortPeriod)
	if !ok {
		return 0, false
	}
	emaLong, ok := EMA(values, longPeriod)
	if !ok || emaLong == 0 {
		return 0, false
	}
	return (emaShort - emaLong) / emaLong * 100, true
}

func emaSeries(values []float64, period int, dst []float64) []float64 {
	if len(values) == 0 || period < 1 {
		return dst
	}
	alpha := 2 / (float64(period) + 1)

	ema := values[0]
	dst = append(dst, ema)
	for _, v := range values[1:] {
		ema = alpha*v + (1-alpha)*ema
		dst = append(dst, ema)
	}
	return dst
}
