package backtest

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hguan-dev/nu-algo-trading-competition/internal/engine"
	"github.com/hguan-dev/nu-algo-trading-competition/internal/storage"
)

// ReplayLog feeds a recorded event log through a fresh engine,
// synchronously and in sequence order. Live sessions and replays share the
// same processing path, so the resulting state is bit-identical to what
// the recording session held.
func ReplayLog(ctx context.Context, store *storage.EventStore, eng *engine.Engine) error {
	events, err := store.LoadEvents(ctx, 1)
	if err != nil {
		return fmt.Errorf("failed to load event log: %w", err)
	}
	if len(events) == 0 {
		return fmt.Errorf("event log is empty")
	}

	slog.Info("replaying event log", slog.Int("events", len(events)))
	for _, ev := range events {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		eng.ProcessSync(ev)
	}
	return nil
}
