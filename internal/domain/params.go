package domain

import (
	"fmt"
	"time"
)

// StrategyParameters is the immutable per-run configuration of the decision
// engine. Validated once at construction; event processing never starts on
// an invalid set.
type StrategyParameters struct {
	// Rolling window
	WindowSize int `yaml:"window_size"` // price samples kept per instrument

	// Indicators
	RSIPeriod       int     `yaml:"rsi_period"`
	BollingerPeriod int     `yaml:"bollinger_period"`
	BollingerK      float64 `yaml:"bollinger_k"`
	MinBandWidth    float64 `yaml:"min_band_width"` // below this the regime is flat, no signals
	SlopeMinSamples int     `yaml:"slope_min_samples"`
	ATRPeriod       int     `yaml:"atr_period"`
	EMAPeriod       int     `yaml:"ema_period"`

	// Entry / exit thresholds
	RSIOversold   float64 `yaml:"rsi_oversold"`
	RSIOverbought float64 `yaml:"rsi_overbought"`
	SlopeEntry    float64 `yaml:"slope_entry"`
	SlopeExit     float64 `yaml:"slope_exit"`
	StopLoss      float64 `yaml:"stop_loss"`   // negative fraction, e.g. -0.03
	TakeProfit    float64 `yaml:"take_profit"` // positive fraction, e.g. 0.05
	EnableShort   bool    `yaml:"enable_short"`

	// Capital and sizing
	FeeRate             float64 `yaml:"fee_rate"`
	MaxPositionFraction float64 `yaml:"max_position_fraction"`
	BenchmarkAllocation float64 `yaml:"benchmark_allocation"` // fixed fraction for BTC
	MaxTradeQty         float64 `yaml:"max_trade_qty"`

	// Order lifecycle
	MaxOrdersPerMinute int `yaml:"max_orders_per_minute"`
	CooldownMS         int `yaml:"cooldown_ms"`
	MaxRetries         int `yaml:"max_retries"`
	RetryDelayMS       int `yaml:"retry_delay_ms"`
	StaleOrderAgeSec   int `yaml:"stale_order_age_sec"`

	// Venue breaker
	BreakerTripAfter  int `yaml:"breaker_trip_after"`  // consecutive rejections before shedding intents
	BreakerCloseAfter int `yaml:"breaker_close_after"` // probe successes before resuming
	BreakerCoolOffSec int `yaml:"breaker_cool_off_sec"`
}

// DefaultParameters returns the parameter set the strategy variants
// converged on.
func DefaultParameters() StrategyParameters {
	return StrategyParameters{
		WindowSize:      30,
		RSIPeriod:       14,
		BollingerPeriod: 20,
		BollingerK:      2.0,
		MinBandWidth:    0.01,
		SlopeMinSamples: 10,
		ATRPeriod:       14,
		EMAPeriod:       14,

		RSIOversold:   30,
		RSIOverbought: 75,
		SlopeEntry:    0.002,
		SlopeExit:     -0.002,
		StopLoss:      -0.03,
		TakeProfit:    0.05,
		EnableShort:   false,

		FeeRate:             0.004,
		MaxPositionFraction: 0.1,
		BenchmarkAllocation: 0.5,
		MaxTradeQty:         1.0,

		MaxOrdersPerMinute: 30,
		CooldownMS:         2000,
		MaxRetries:         5,
		RetryDelayMS:       100,
		StaleOrderAgeSec:   30,

		BreakerTripAfter:  5,
		BreakerCloseAfter: 2,
		BreakerCoolOffSec: 30,
	}
}

// Cooldown returns the minimum interval between consecutive submissions.
func (p StrategyParameters) Cooldown() time.Duration {
	return time.Duration(p.CooldownMS) * time.Millisecond
}

// RetryDelay returns the fixed delay between submission attempts.
func (p StrategyParameters) RetryDelay() time.Duration {
	return time.Duration(p.RetryDelayMS) * time.Millisecond
}

// StaleOrderAge returns the age past which an unfilled resting order is
// cancelled by policy.
func (p StrategyParameters) StaleOrderAge() time.Duration {
	return time.Duration(p.StaleOrderAgeSec) * time.Second
}

// BreakerCoolOff returns how long a tripped venue breaker waits before
// letting a probe submission through.
func (p StrategyParameters) BreakerCoolOff() time.Duration {
	return time.Duration(p.BreakerCoolOffSec) * time.Second
}

// Validate checks the parameter set. Any violation is a fatal
// construction-time failure.
func (p StrategyParameters) Validate() error {
	if p.WindowSize < 2 {
		return fmt.Errorf("window_size must be >= 2, got %d", p.WindowSize)
	}
	if p.RSIPeriod < 1 {
		return fmt.Errorf("rsi_period must be >= 1, got %d", p.RSIPeriod)
	}
	if p.BollingerPeriod < 2 {
		return fmt.Errorf("bollinger_period must be >= 2, got %d", p.BollingerPeriod)
	}
	if p.BollingerK <= 0 {
		return fmt.Errorf("bollinger_k must be positive, got %v", p.BollingerK)
	}
	if p.MinBandWidth < 0 {
		return fmt.Errorf("min_band_width must be >= 0, got %v", p.MinBandWidth)
	}
	if p.SlopeMinSamples < 2 {
		return fmt.Errorf("slope_min_samples must be >= 2, got %d", p.SlopeMinSamples)
	}
	if p.ATRPeriod < 1 {
		return fmt.Errorf("atr_period must be >= 1, got %d", p.ATRPeriod)
	}
	if p.EMAPeriod < 1 {
		return fmt.Errorf("ema_period must be >= 1, got %d", p.EMAPeriod)
	}
	if p.RSIOversold < 0 || p.RSIOversold > 100 || p.RSIOverbought < 0 || p.RSIOverbought > 100 {
		return fmt.Errorf("rsi thresholds must be within [0,100]")
	}
	if p.RSIOversold >= p.RSIOverbought {
		return fmt.Errorf("rsi_oversold (%v) must be below rsi_overbought (%v)", p.RSIOversold, p.RSIOverbought)
	}
	if p.StopLoss >= 0 {
		return fmt.Errorf("stop_loss must be negative, got %v", p.StopLoss)
	}
	if p.TakeProfit <= 0 {
		return fmt.Errorf("take_profit must be positive, got %v", p.TakeProfit)
	}
	if p.FeeRate < 0 || p.FeeRate >= 1 {
		return fmt.Errorf("fee_rate must be within [0,1), got %v", p.FeeRate)
	}
	if p.MaxPositionFraction <= 0 || p.MaxPositionFraction > 1 {
		return fmt.Errorf("max_position_fraction must be within (0,1], got %v", p.MaxPositionFraction)
	}
	if p.BenchmarkAllocation < 0 || p.BenchmarkAllocation > 1 {
		return fmt.Errorf("benchmark_allocation must be within [0,1], got %v", p.BenchmarkAllocation)
	}
	if p.MaxTradeQty <= 0 {
		return fmt.Errorf("max_trade_qty must be positive, got %v", p.MaxTradeQty)
	}
	if p.MaxOrdersPerMinute < 1 {
		return fmt.Errorf("max_orders_per_minute must be >= 1, got %d", p.MaxOrdersPerMinute)
	}
	if p.CooldownMS < 0 || p.RetryDelayMS < 0 || p.StaleOrderAgeSec < 0 {
		return fmt.Errorf("durations must be non-negative")
	}
	if p.MaxRetries < 0 {
		return fmt.Errorf("max_retries must be >= 0, got %d", p.MaxRetries)
	}
	if p.BreakerTripAfter < 1 || p.BreakerCloseAfter < 1 {
		return fmt.Errorf("breaker thresholds must be >= 1, got %d/%d", p.BreakerTripAfter, p.BreakerCloseAfter)
	}
	if p.BreakerCoolOffSec < 1 {
		return fmt.Errorf("breaker_cool_off_sec must be >= 1, got %d", p.BreakerCoolOffSec)
	}
	return nil
}

// Allocation returns the capital fraction reserved for an instrument.
// The benchmark instrument (BTC) takes a fixed share; the remainder is
// split evenly among the others.
func (p StrategyParameters) Allocation(i Instrument) float64 {
	if i == BTC {
		return p.BenchmarkAllocation
	}
	others := float64(len(Instruments()) - 1)
	return (1 - p.BenchmarkAllocation) / others
}
