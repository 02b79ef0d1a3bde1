// Package signal converts indicator state and the current position into
// trade intents. Rules are evaluated in fixed priority order; the first
// rule that fires wins. Exits always close the full position.
package signal

import (
	"github.com/hguan-dev/nu-algo-trading-competition/internal/domain"
	"github.com/hguan-dev/nu-algo-trading-competition/internal/indicator"
)

// Intent is a decision to trade, not an order: the lifecycle manager turns
// intents into venue submissions subject to rate limits and retries.
type Intent struct {
	Instrument domain.Instrument
	Side       domain.Side
	Quantity   float64
	Price      float64 // limit price; ignored for market intents
	Market     bool    // urgent: submitted as a market order
	IOC        bool
	Exit       bool
	Rule       string
}

// Rule names, used in logs and failure reports.
const (
	RuleStopTake      = "stop_take"
	RuleMeanReversion = "mean_reversion"
	RuleConfluence    = "band_rsi_confluence"
	RuleSlope         = "regression_slope"
	RuleDivergence    = "divergence"
	RuleVWAP          = "vwap_band"
)

type instrumentState struct {
	prevRSI    float64
	hasPrevRSI bool
}

// Engine is the per-run signal evaluator. It is stateful only for the RSI
// history divergence checks need; positions and capital belong to the
// ledger and are passed in per evaluation.
type Engine struct {
	params domain.StrategyParameters
	states map[domain.Instrument]*instrumentState
}

// New creates a signal engine. Parameters must already be validated.
func New(params domain.StrategyParameters) *Engine {
	return &Engine{
		params: params,
		states: make(map[domain.Instrument]*instrumentState),
	}
}

func (e *Engine) state(i domain.Instrument) *instrumentState {
	s, ok := e.states[i]
	if !ok {
		s = &instrumentState{}
		e.states[i] = s
	}
	return s
}

// Evaluate runs the rule chain for one instrument against the current
// window contents. prices/volumes are chronological, most-recent last.
// Returns nil when no rule fires or the window is too short to say
// anything.
func (e *Engine) Evaluate(instr domain.Instrument, prices, volumes []float64, pos domain.Position, capital float64) *Intent {
	n := len(prices)
	if n == 0 {
		return nil
	}
	price := prices[n-1]
	if price <= 0 {
		return nil
	}

	p := e.params
	st := e.state(instr)
	rsi := indicator.RSI(prices, p.RSIPeriod)
	bands, bandsOK := indicator.Bollinger(prices, p.BollingerPeriod, p.BollingerK)

	intent := e.evaluateRules(instr, price, prices, volumes, rsi, bands, bandsOK, pos, capital, st)

	// Record the RSI for the next divergence check once it is a real
	// reading, regardless of whether a rule fired.
	if n >= p.RSIPeriod+1 {
		st.prevRSI = rsi
		st.hasPrevRSI = true
	}

	return intent
}

func (e *Engine) evaluateRules(
	instr domain.Instrument,
	price float64,
	prices, volumes []float64,
	rsi float64,
	bands indicator.Bands,
	bandsOK bool,
	pos domain.Position,
	capital float64,
	st *instrumentState,
) *Intent {
	p := e.params
	flat := pos.IsFlat()

	// 1. Stop-loss / take-profit. Overrides every other rule.
	if !flat {
		pnl := pos.UnrealizedPct(price)
		if pnl <= p.StopLoss || pnl >= p.TakeProfit {
			return e.exit(instr, price, pos, RuleStopTake)
		}
	}

	// 2. Mean-reversion exit: price back through the centerline, or RSI
	// back through 50, while holding.
	if !flat && bandsOK {
		if pos.IsLong() && (price >= bands.SMA || rsi > 50) {
			return e.exit(instr, price, pos, RuleMeanReversion)
		}
		if pos.IsShort() && (price <= bands.SMA || rsi < 50) {
			return e.exit(instr, price, pos, RuleMeanReversion)
		}
	}

	// 3. Band + RSI confluence entry. A band width under the configured
	// minimum marks a flat/illiquid regime: no signal regardless of RSI.
	if flat && bandsOK && bands.Width >= p.MinBandWidth {
		if price <= bands.Lower && rsi < p.RSIOversold {
			return e.entry(instr, domain.Buy, price, capital, true, RuleConfluence)
		}
		if p.EnableShort && price >= bands.Upper && rsi > p.RSIOverbought {
			return e.entry(instr, domain.Sell, price, capital, true, RuleConfluence)
		}
	}

	// 4. Regression slope, scale-free.
	if len(prices) >= p.SlopeMinSamples {
		if slope, ok := indicator.NormalizedSlope(prices); ok {
			if flat && slope > p.SlopeEntry && rsi < p.RSIOverbought {
				return e.entry(instr, domain.Buy, price, capital, true, RuleSlope)
			}
			if slope < p.SlopeExit {
				if pos.IsLong() {
					return e.exit(instr, price, pos, RuleSlope)
				}
				if flat && p.EnableShort && rsi > p.RSIOversold {
					return e.entry(instr, domain.Sell, price, capital, true, RuleSlope)
				}
			}
		}
	}

	// 5. Divergence against the previous RSI reading.
	if flat && len(prices) >= 2 && st.hasPrevRSI {
		prevPrice := prices[len(prices)-2]
		if price < prevPrice && rsi > st.prevRSI {
			return e.entry(instr, domain.Buy, price, capital, true, RuleDivergence)
		}
		if p.EnableShort && price > prevPrice && rsi < st.prevRSI {
			return e.entry(instr, domain.Sell, price, capital, true, RuleDivergence)
		}
	}

	// 6. VWAP +/- volatility band, full window only. Entries rest slightly
	// inside the touch; exits close the whole position.
	if len(prices) == p.WindowSize {
		if vwap, ok := indicator.VWAP(prices, volumes); ok {
			vol := indicator.Volatility(prices)
			if flat && price < vwap-vol {
				in := e.entry(instr, domain.Buy, price*0.999, capital, false, RuleVWAP)
				return in
			}
			if pos.IsLong() && price > vwap+vol {
				out := e.exit(instr, price, pos, RuleVWAP)
				out.Market = false
				out.Price = price * 1.001
				return out
			}
		}
	}

	return nil
}

// entry builds a sized entry intent, or nil when capital allows no size.
func (e *Engine) entry(instr domain.Instrument, side domain.Side, price, capital float64, ioc bool, rule string) *Intent {
	qty := e.Size(instr, price, capital)
	if qty <= 0 {
		return nil
	}
	return &Intent{
		Instrument: instr,
		Side:       side,
		Quantity:   qty,
		Price:      price,
		IOC:        ioc,
		Rule:       rule,
	}
}

func (e *Engine) exit(instr domain.Instrument, price float64, pos domain.Position, rule string) *Intent {
	side := domain.Sell
	if pos.IsShort() {
		side = domain.Buy
	}
	qty := pos.Quantity
	if qty < 0 {
		qty = -qty
	}
	return &Intent{
		Instrument: instr,
		Side:       side,
		Quantity:   qty,
		Price:      price,
		Market:     true,
		Exit:       true,
		Rule:       rule,
	}
}

// Size computes the entry quantity: the instrument's capital allocation,
// scaled by the position fraction, divided by price and capped by the
// per-trade maximum. Never exceeds capital*allocation/price.
func (e *Engine) Size(instr domain.Instrument, price, capital float64) float64 {
	if price <= 0 || capital <= 0 {
		return 0
	}
	p := e.params
	fraction := p.Allocation(instr) * p.MaxPositionFraction
	qty := capital * fraction / price
	if qty > p.MaxTradeQty {
		qty = p.MaxTradeQty
	}
	return qty
}
