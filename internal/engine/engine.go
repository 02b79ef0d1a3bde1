// Package engine routes market events into per-instrument pipelines. Each
// pipeline is single-threaded over its own state; cross-instrument
// resources (ledger, order lifecycle) synchronize internally. Events are
// logged to the store before they are processed, so a crash replays back
// to the exact pre-crash state.
package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/hguan-dev/nu-algo-trading-competition/internal/domain"
	"github.com/hguan-dev/nu-algo-trading-competition/internal/event"
	"github.com/hguan-dev/nu-algo-trading-competition/internal/execution"
	"github.com/hguan-dev/nu-algo-trading-competition/internal/ledger"
	"github.com/hguan-dev/nu-algo-trading-competition/internal/storage"
	"github.com/hguan-dev/nu-algo-trading-competition/pkg/quant"
)

// Engine owns the instrument pipelines and the ingress sequence counter.
type Engine struct {
	params    domain.StrategyParameters
	ledger    *ledger.Ledger
	lifecycle *execution.Manager
	store     *storage.EventStore

	pipelines map[domain.Instrument]*pipeline
	inboxes   map[domain.Instrument]chan event.Event
	seq       uint64
	wg        sync.WaitGroup
}

// New creates an engine for the given instruments. Invalid parameters are
// a construction-time failure; event processing never starts on them.
// store may be nil (backtests, tests) to disable event logging.
func New(
	params domain.StrategyParameters,
	instruments []domain.Instrument,
	venue execution.Venue,
	led *ledger.Ledger,
	lifecycle *execution.Manager,
	store *storage.EventStore,
	inboxSize int,
) (*Engine, error) {
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("invalid strategy parameters: %w", err)
	}
	if len(instruments) == 0 {
		return nil, fmt.Errorf("no instruments configured")
	}

	e := &Engine{
		params:    params,
		ledger:    led,
		lifecycle: lifecycle,
		store:     store,
		pipelines: make(map[domain.Instrument]*pipeline),
		inboxes:   make(map[domain.Instrument]chan event.Event),
	}
	for _, instr := range instruments {
		e.pipelines[instr] = newPipeline(instr, params, led, lifecycle, venue)
		e.inboxes[instr] = make(chan event.Event, inboxSize)
	}
	return e, nil
}

// Run starts one goroutine per instrument pipeline and blocks until the
// context is canceled. A panic in any pipeline dumps state and halts the
// whole process: a partially-alive engine is worse than a dead one.
func (e *Engine) Run(ctx context.Context) {
	slog.Info("Engine started",
		slog.Int("pipelines", len(e.pipelines)),
		slog.Uint64("next_seq", e.seq+1))

	for instr, p := range e.pipelines {
		e.wg.Add(1)
		go e.runPipeline(ctx, instr, p)
	}
	e.wg.Wait()
	slog.Info("Engine stopped")
}

func (e *Engine) runPipeline(ctx context.Context, instr domain.Instrument, p *pipeline) {
	defer e.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			slog.Error("CRITICAL_PANIC_DETECTED",
				slog.String("instrument", instr.String()),
				slog.Any("panic", r))
			e.DumpState("panic_dump.json")
			panic(fmt.Sprintf("HALTED: %v", r))
		}
	}()

	inbox := e.inboxes[instr]
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-inbox:
			e.persist(ev)
			p.handle(ev)
		}
	}
}

// persist writes the event to the log before processing.
func (e *Engine) persist(ev event.Event) {
	if e.store == nil {
		return
	}
	if err := e.store.SaveEvent(context.Background(), ev); err != nil {
		panic(fmt.Sprintf("PERSISTENCE_FAILURE: %v", err))
	}
}

// Dispatch routes an event to its instrument pipeline. Events for unknown
// instruments are dropped with a warning.
func (e *Engine) Dispatch(ev event.Event) {
	inbox, ok := e.inboxes[ev.GetInstrument()]
	if !ok {
		slog.Warn("event for unconfigured instrument dropped",
			slog.String("instrument", ev.GetInstrument().String()))
		return
	}
	inbox <- ev
}

// ProcessSync runs one event through its pipeline on the caller's
// goroutine, without logging it. Used for replay and recovery.
func (e *Engine) ProcessSync(ev event.Event) {
	p, ok := e.pipelines[ev.GetInstrument()]
	if !ok {
		slog.Warn("replay event for unconfigured instrument dropped",
			slog.String("instrument", ev.GetInstrument().String()))
		return
	}
	p.handle(ev)
	if ev.GetSeq() > e.seq {
		e.seq = ev.GetSeq()
	}
}

// RecoverFromWAL restores state by replaying all logged events through the
// same code path live events take. Call before Run.
func (e *Engine) RecoverFromWAL(ctx context.Context) error {
	if e.store == nil {
		slog.Info("No store configured, starting fresh")
		return nil
	}

	lastSeq, err := e.store.GetLastSeq(ctx)
	if err != nil {
		return fmt.Errorf("failed to get last seq: %w", err)
	}
	if lastSeq == 0 {
		slog.Info("Event log is empty, starting fresh")
		return nil
	}

	events, err := e.store.LoadEvents(ctx, 1)
	if err != nil {
		return fmt.Errorf("failed to load events: %w", err)
	}

	// Replay restores state only. Submitting here would place orders that
	// were already placed live, and the resulting fills would mint
	// sequence numbers colliding with not-yet-replayed log entries.
	for _, p := range e.pipelines {
		p.inert = true
	}
	defer func() {
		for _, p := range e.pipelines {
			p.inert = false
		}
	}()

	slog.Info("Replaying events", slog.Int("count", len(events)))
	for _, ev := range events {
		e.ProcessSync(ev)
	}

	slog.Info("State recovered", slog.Uint64("next_seq", e.seq+1))
	return nil
}

// OnTrade is the feed callback for venue trades.
func (e *Engine) OnTrade(instr domain.Instrument, side domain.Side, price, quantity float64, ts quant.TimeStamp) {
	e.Dispatch(&event.TradeEvent{
		BaseEvent: event.BaseEvent{Seq: quant.NextSeq(&e.seq), Ts: ts, Instrument: instr},
		Side:      side,
		Quantity:  quantity,
		Price:     price,
	})
}

// OnBookDelta is the feed callback for incremental depth changes.
func (e *Engine) OnBookDelta(instr domain.Instrument, side domain.Side, price, quantity float64, ts quant.TimeStamp) {
	e.Dispatch(&event.BookEvent{
		BaseEvent: event.BaseEvent{Seq: quant.NextSeq(&e.seq), Ts: ts, Instrument: instr},
		Side:      side,
		Quantity:  quantity,
		Price:     price,
	})
}

// OnAccountUpdate is the feed callback for fill confirmations.
func (e *Engine) OnAccountUpdate(instr domain.Instrument, side domain.Side, price, quantity, capitalRemaining float64, ts quant.TimeStamp) {
	e.Dispatch(&event.AccountEvent{
		BaseEvent:        event.BaseEvent{Seq: quant.NextSeq(&e.seq), Ts: ts, Instrument: instr},
		Side:             side,
		Quantity:         quantity,
		Price:            price,
		CapitalRemaining: capitalRemaining,
	})
}

// DumpState writes positions, capital, and open orders to a file for
// post-mortem analysis.
func (e *Engine) DumpState(filename string) {
	slog.Info("Dumping internal state...", slog.String("file", filename))

	positions, capital := e.ledger.Snapshot()
	data := struct {
		Seq        uint64                     `json:"seq"`
		Positions  map[string]domain.Position `json:"positions"`
		Capital    float64                    `json:"capital"`
		OpenOrders []domain.Order             `json:"open_orders"`
	}{
		Seq:        e.seq,
		Positions:  positions,
		Capital:    capital,
		OpenOrders: e.lifecycle.OpenOrders(),
	}

	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		slog.Error("Failed to marshal state", slog.Any("error", err))
		return
	}
	if err := os.WriteFile(filename, b, 0644); err != nil {
		slog.Error("Failed to write state dump", slog.Any("error", err))
	}
}

// Snapshot captures current ledger state for the snapshot manager.
func (e *Engine) Snapshot() *storage.Snapshot {
	positions, capital := e.ledger.Snapshot()
	return storage.CreateSnapshot(e.seq, positions, capital)
}
