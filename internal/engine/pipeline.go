package engine

import (
	"log/slog"

	"github.com/hguan-dev/nu-algo-trading-competition/internal/book"
	"github.com/hguan-dev/nu-algo-trading-competition/internal/domain"
	"github.com/hguan-dev/nu-algo-trading-competition/internal/event"
	"github.com/hguan-dev/nu-algo-trading-competition/internal/execution"
	"github.com/hguan-dev/nu-algo-trading-competition/internal/indicator"
	"github.com/hguan-dev/nu-algo-trading-competition/internal/ledger"
	"github.com/hguan-dev/nu-algo-trading-competition/internal/signal"
)

// pipeline is the single-threaded processing path for one instrument.
// Everything it owns (window, book, signal state) is touched only by its
// goroutine; the ledger and lifecycle manager are shared and synchronize
// internally.
type pipeline struct {
	instr     domain.Instrument
	window    *indicator.Window
	book      *book.Book
	signals   *signal.Engine
	ledger    *ledger.Ledger
	lifecycle *execution.Manager
	venue     execution.Venue

	lastSeq uint64

	// inert suppresses order submission while recorded history is being
	// replayed: the orders were already placed when the events were live,
	// and re-placing them would mint fresh fills mid-replay.
	inert bool

	// Scratch buffers reused across evaluations. Zero-alloc in the hotpath.
	prices  []float64
	volumes []float64
}

func newPipeline(
	instr domain.Instrument,
	params domain.StrategyParameters,
	led *ledger.Ledger,
	lifecycle *execution.Manager,
	venue execution.Venue,
) *pipeline {
	return &pipeline{
		instr:     instr,
		window:    indicator.NewWindow(params.WindowSize),
		book:      book.New(),
		signals:   signal.New(params),
		ledger:    led,
		lifecycle: lifecycle,
		venue:     venue,
		prices:    make([]float64, 0, params.WindowSize),
		volumes:   make([]float64, 0, params.WindowSize),
	}
}

// handle processes one event. Events arriving out of order (replays,
// duplicates) are dropped with a warning; order within one instrument is
// the feed's contract.
func (p *pipeline) handle(ev event.Event) {
	if ev.GetSeq() <= p.lastSeq {
		slog.Warn("SEQUENCE_DUPLICATE_IGNORED",
			slog.Uint64("last", p.lastSeq),
			slog.Uint64("got", ev.GetSeq()),
			slog.String("instrument", p.instr.String()))
		return
	}
	p.lastSeq = ev.GetSeq()

	switch e := ev.(type) {
	case *event.TradeEvent:
		p.handleTrade(e)
	case *event.BookEvent:
		p.handleBook(e)
	case *event.AccountEvent:
		p.handleAccount(e)
	default:
		slog.Warn("Unknown event type", slog.Any("type", ev.GetType()))
	}
}

func (p *pipeline) handleTrade(e *event.TradeEvent) {
	execution.UpdatePrice(p.venue, p.instr, e.Price)
	p.window.Push(indicator.Sample{Ts: e.Ts, Price: e.Price, Volume: e.Quantity})
	p.evaluate()
}

// handleBook applies the depth delta and, when both sides exist, samples
// the mid price into the window with zero volume so VWAP stays a pure
// trade-flow measure.
func (p *pipeline) handleBook(e *event.BookEvent) {
	p.book.Apply(e.Side, e.Price, e.Quantity)
	if mid, ok := p.book.Mid(); ok {
		p.window.Push(indicator.Sample{Ts: e.Ts, Price: mid, Volume: 0})
		p.evaluate()
	}
	p.lifecycle.SweepStale()
}

func (p *pipeline) handleAccount(e *event.AccountEvent) {
	pos := p.ledger.ApplyFill(p.instr, e.Side, e.Price, e.Quantity, e.CapitalRemaining)
	p.lifecycle.OnFill(p.instr, e.Side)

	slog.Info("fill reconciled",
		slog.String("instrument", p.instr.String()),
		slog.String("side", e.Side.String()),
		slog.Float64("price", e.Price),
		slog.Float64("qty", e.Quantity),
		slog.Float64("position", pos.Quantity),
		slog.Float64("capital", e.CapitalRemaining))
}

func (p *pipeline) evaluate() {
	p.prices = p.window.Prices(p.prices[:0])
	p.volumes = p.window.Volumes(p.volumes[:0])

	pos := p.ledger.Position(p.instr)
	capital := p.ledger.Capital()

	// The signal engine still runs while inert so its divergence state
	// matches what it held when the events were recorded.
	intent := p.signals.Evaluate(p.instr, p.prices, p.volumes, pos, capital)
	if intent == nil || p.inert {
		return
	}

	slog.Info("signal",
		slog.String("instrument", p.instr.String()),
		slog.String("rule", intent.Rule),
		slog.String("side", intent.Side.String()),
		slog.Float64("qty", intent.Quantity),
		slog.Bool("exit", intent.Exit))

	p.lifecycle.Submit(intent)
}
