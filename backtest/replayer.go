// Package backtest replays historical data through the decision logic.
// Two modes: bar-driven strategy simulation over stored OHLCV history, and
// event-log replay through the live engine pipelines.
package backtest

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/hguan-dev/nu-algo-trading-competition/internal/domain"
	"github.com/hguan-dev/nu-algo-trading-competition/internal/indicator"
	"github.com/hguan-dev/nu-algo-trading-competition/internal/storage"
)

// Parameters configures one bar-driven backtest run.
type Parameters struct {
	InitialBalance float64 `yaml:"initial_balance"`
	FeeRate        float64 `yaml:"fee_rate"`

	RSIPeriod       int     `yaml:"rsi_period"`
	RSIEntry        float64 `yaml:"rsi_entry"`        // enter when RSI at or below
	OscillatorEntry float64 `yaml:"oscillator_entry"` // and PPO at or below
	RSIExit         float64 `yaml:"rsi_exit"`
	OscillatorExit  float64 `yaml:"oscillator_exit"`

	// ExitOnIndicators enables the RSI/PPO exit alongside the price exits.
	ExitOnIndicators bool `yaml:"exit_on_indicators"`

	TakeProfit float64 `yaml:"take_profit"` // fraction over the entry close
	StopLoss   float64 `yaml:"stop_loss"`   // fraction under the entry close; 0 disables

	PPOShort int `yaml:"ppo_short"`
	PPOLong  int `yaml:"ppo_long"`
}

// DefaultParameters returns the baseline backtest configuration.
func DefaultParameters() Parameters {
	return Parameters{
		InitialBalance:  10000,
		FeeRate:         0.001,
		RSIPeriod:       14,
		RSIEntry:        30,
		OscillatorEntry: -0.45,
		RSIExit:         70,
		OscillatorExit:  0,
		TakeProfit:      0.01,
		StopLoss:        0,
		PPOShort:        12,
		PPOLong:         26,
	}
}

// Validate checks the parameter set before a run.
func (p Parameters) Validate() error {
	if p.InitialBalance <= 0 {
		return fmt.Errorf("initial_balance must be positive, got %v", p.InitialBalance)
	}
	if p.FeeRate < 0 || p.FeeRate >= 1 {
		return fmt.Errorf("fee_rate must be within [0,1), got %v", p.FeeRate)
	}
	if p.RSIPeriod < 1 {
		return fmt.Errorf("rsi_period must be >= 1, got %d", p.RSIPeriod)
	}
	if p.TakeProfit <= 0 {
		return fmt.Errorf("take_profit must be positive, got %v", p.TakeProfit)
	}
	if p.StopLoss < 0 || p.StopLoss >= 1 {
		return fmt.Errorf("stop_loss must be within [0,1), got %v", p.StopLoss)
	}
	if p.PPOShort < 1 || p.PPOLong <= p.PPOShort {
		return fmt.Errorf("ppo periods must satisfy 0 < short < long, got %d/%d", p.PPOShort, p.PPOLong)
	}
	return nil
}

// Result summarizes one backtest run.
type Result struct {
	FinalBalance  float64                `json:"final_balance"`
	PercentReturn float64                `json:"percent_return"`
	GainCount     int                    `json:"gain_count"`
	LossCount     int                    `json:"loss_count"`
	TotalFees     float64                `json:"total_fees"`
	Trades        []domain.BacktestTrade `json:"trades"`
	Returns       []float64              `json:"returns"`
	Ruined        bool                   `json:"ruined"`
}

// Replayer runs the bar-driven simulation. All balance arithmetic is
// decimal so the fee accounting is exact across long runs.
type Replayer struct {
	params Parameters
}

// NewReplayer validates parameters and builds a replayer.
func NewReplayer(params Parameters) (*Replayer, error) {
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("invalid backtest parameters: %w", err)
	}
	return &Replayer{params: params}, nil
}

// Run walks the bars in order, entering when both the RSI and the
// oscillator are depressed and exiting on the configured price (and
// optionally indicator) conditions. A balance at or below zero terminates
// the run as ruined.
func (r *Replayer) Run(bars []domain.Bar) Result {
	p := r.params

	balance := decimal.NewFromFloat(p.InitialBalance)
	feeRate := decimal.NewFromFloat(p.FeeRate)
	oneMinusFee := decimal.NewFromInt(1).Sub(feeRate)

	totalFees := decimal.Zero
	result := Result{}

	closes := make([]float64, 0, len(bars))
	for _, bar := range bars {
		closes = append(closes, bar.Close)
	}

	inPosition := false
	var btc, prev decimal.Decimal
	var entryClose float64
	var entryIdx int

	for i := 1; i < len(bars); i++ {
		if r.isRuined(inPosition, balance, prev) {
			result.Ruined = true
			break
		}

		close := bars[i].Close
		history := closes[:i+1]

		if !inPosition {
			rsi := indicator.RSI(history, p.RSIPeriod)
			ppo, ok := indicator.PPO(history, p.PPOShort, p.PPOLong)
			if rsi <= p.RSIEntry && ok && ppo <= p.OscillatorEntry {
				fee := balance.Mul(feeRate)
				totalFees = totalFees.Add(fee)
				balance = balance.Mul(oneMinusFee)
				btc = balance.Div(decimal.NewFromFloat(close))
				prev = balance
				balance = decimal.Zero
				entryClose = close
				entryIdx = i
				inPosition = true
			}
			continue
		}

		if r.shouldExit(close, entryClose, history) {
			balance, prev, btc = r.settle(bars, i, close, btc, prev, oneMinusFee, feeRate, &totalFees, entryIdx, &result)
			inPosition = false
		}
	}

	// History ends while holding: mark the position to market at the last
	// close. No exit fee is charged and no round trip is recorded.
	if inPosition && len(bars) > 0 {
		last := decimal.NewFromFloat(bars[len(bars)-1].Close)
		balance = balance.Add(btc.Mul(last))
	}

	result.FinalBalance = balance.InexactFloat64()
	result.TotalFees = totalFees.InexactFloat64()
	if p.InitialBalance > 0 {
		result.PercentReturn = (result.FinalBalance - p.InitialBalance) / p.InitialBalance * 100
	}
	return result
}

// isRuined reports whether the working capital has been wiped out.
func (r *Replayer) isRuined(inPosition bool, balance, prev decimal.Decimal) bool {
	if inPosition {
		return prev.LessThanOrEqual(decimal.Zero)
	}
	return balance.LessThanOrEqual(decimal.Zero)
}

func (r *Replayer) shouldExit(close, entryClose float64, history []float64) bool {
	p := r.params

	if close >= entryClose*(1+p.TakeProfit) {
		return true
	}
	if p.StopLoss > 0 && close <= entryClose*(1-p.StopLoss) {
		return true
	}
	if p.ExitOnIndicators {
		rsi := indicator.RSI(history, p.RSIPeriod)
		if rsi >= p.RSIExit {
			return true
		}
		if ppo, ok := indicator.PPO(history, p.PPOShort, p.PPOLong); ok && ppo <= p.OscillatorExit {
			return true
		}
	}
	return false
}

// settle closes the position at the given bar and records the round trip.
func (r *Replayer) settle(
	bars []domain.Bar,
	exitIdx int,
	close float64,
	btc, prev decimal.Decimal,
	oneMinusFee, feeRate decimal.Decimal,
	totalFees *decimal.Decimal,
	entryIdx int,
	result *Result,
) (balance, zeroPrev, zeroBTC decimal.Decimal) {
	updated := btc.Mul(decimal.NewFromFloat(close))
	fee := updated.Mul(feeRate)
	*totalFees = totalFees.Add(fee)
	updated = updated.Mul(oneMinusFee)

	if updated.GreaterThan(prev) {
		result.GainCount++
	} else {
		result.LossCount++
	}

	ret := 0.0
	if !prev.IsZero() {
		ret = updated.Sub(prev).Div(prev).InexactFloat64()
	}
	result.Returns = append(result.Returns, ret)
	result.Trades = append(result.Trades, domain.BacktestTrade{
		EntryTimestamp: bars[entryIdx].Timestamp,
		ExitTimestamp:  bars[exitIdx].Timestamp,
		ReturnPct:      ret * 100,
	})

	return updated, decimal.Zero, decimal.Zero
}

// RunFromStore loads an instrument's bars from the bar database and runs
// the simulation over them.
func (r *Replayer) RunFromStore(ctx context.Context, store *storage.BarStore, instr domain.Instrument) (Result, error) {
	bars, err := store.LoadBars(ctx, instr)
	if err != nil {
		return Result{}, fmt.Errorf("failed to load bars: %w", err)
	}
	if len(bars) == 0 {
		return Result{}, fmt.Errorf("no bars stored for %s", instr)
	}

	slog.Info("backtest starting",
		slog.String("instrument", instr.String()),
		slog.Int("bars", len(bars)))

	return r.Run(bars), nil
}
