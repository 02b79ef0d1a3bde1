package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/hguan-dev/nu-algo-trading-competition/internal/app"
	"github.com/hguan-dev/nu-algo-trading-competition/internal/domain"
	"github.com/hguan-dev/nu-algo-trading-competition/internal/engine"
	"github.com/hguan-dev/nu-algo-trading-competition/internal/execution"
	"github.com/hguan-dev/nu-algo-trading-competition/internal/infra"
	"github.com/hguan-dev/nu-algo-trading-competition/internal/ledger"
	"github.com/hguan-dev/nu-algo-trading-competition/pkg/quant"

	_ "net/http/pprof" // For pprof profiling
)

func main() {
	// Pprof server, localhost only.
	go func() {
		slog.Info("Pprof server started on localhost:6060")
		if err := http.ListenAndServe("localhost:6060", nil); err != nil {
			slog.Error("Pprof server failed", slog.Any("error", err))
		}
	}()

	bootstrap := app.NewBootstrap()
	if err := bootstrap.Initialize(); err != nil {
		slog.Error("Bootstrapping failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer bootstrap.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := bootstrap.Config
	instruments, err := cfg.Instruments()
	if err != nil {
		slog.Error("Invalid instrument list", slog.Any("error", err))
		os.Exit(1)
	}

	led := ledger.New(cfg.Trading.InitialCapital, cfg.Strategy.FeeRate)

	// The paper venue reports fills through the engine's account callback;
	// the engine is built right after the venue, so bind late.
	var eng *engine.Engine
	onAccount := func(instr domain.Instrument, side domain.Side, price, qty, capital float64) {
		if eng != nil {
			eng.OnAccountUpdate(instr, side, price, qty, capital, quant.Now())
		}
	}

	venue, err := execution.NewVenue(
		execution.Mode(strings.ToUpper(cfg.Trading.Mode)),
		cfg.Trading.InitialCapital,
		cfg.Strategy.FeeRate,
		onAccount,
	)
	if err != nil {
		slog.Error("Venue initialization failed", slog.Any("error", err))
		os.Exit(1)
	}

	lifecycle := execution.NewManager(venue, cfg.Strategy)
	eng, err = engine.New(cfg.Strategy, instruments, venue, led, lifecycle, bootstrap.EventStore, cfg.Trading.InboxSize)
	if err != nil {
		slog.Error("Engine initialization failed", slog.Any("error", err))
		os.Exit(1)
	}

	if err := eng.RecoverFromWAL(ctx); err != nil {
		slog.Error("Recovery failed", slog.Any("error", err))
		os.Exit(1)
	}

	go eng.Run(ctx)
	slog.Info("Engine started", slog.Int("instruments", len(instruments)))

	// Market-data gateway.
	if cfg.Feed.WSURL != "" {
		feed := infra.NewFeedWorker(
			cfg.Feed.WSURL,
			time.Duration(cfg.Feed.ReadTimeoutSec)*time.Second,
			time.Duration(cfg.Feed.PingIntervalSec)*time.Second,
			infra.FeedCallbacks{
				OnTrade:         eng.OnTrade,
				OnBookDelta:     eng.OnBookDelta,
				OnAccountUpdate: eng.OnAccountUpdate,
			},
		)
		if err := feed.Connect(ctx); err != nil {
			slog.Error("Feed connection failed", slog.Any("error", err))
			os.Exit(1)
		}
		defer feed.Disconnect()
		slog.Info("Feed worker started", slog.String("url", cfg.Feed.WSURL))
	} else {
		slog.Warn("No feed URL configured, engine idles")
	}

	// Periodic snapshots for fast recovery.
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := bootstrap.Snapshots.Save(eng.Snapshot()); err != nil {
					slog.Warn("Snapshot save failed", slog.Any("error", err))
				}
				if err := bootstrap.Snapshots.Cleanup(5); err != nil {
					slog.Warn("Snapshot cleanup failed", slog.Any("error", err))
				}
			}
		}
	}()

	slog.Info("System fully operational. Press Ctrl+C to exit.")
	<-ctx.Done()

	slog.Info("Shutting down gracefully...")
	if err := bootstrap.Snapshots.Save(eng.Snapshot()); err != nil {
		slog.Warn("Final snapshot failed", slog.Any("error", err))
	}

	submitted, dropped := lifecycle.Stats()
	slog.Info("Session summary",
		slog.Int("orders_submitted", submitted),
		slog.Any("intents_dropped", dropped),
		slog.Float64("capital", led.Capital()),
		slog.Float64("fees_estimated", led.TotalFees()))
}
