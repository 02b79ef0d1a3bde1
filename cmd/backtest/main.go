// Command backtest runs the bar-driven strategy simulation over stored
// OHLCV history.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/hguan-dev/nu-algo-trading-competition/backtest"
	"github.com/hguan-dev/nu-algo-trading-competition/internal/domain"
	"github.com/hguan-dev/nu-algo-trading-competition/internal/storage"
)

func main() {
	var (
		configPath = flag.String("config", "", "optional backtest parameters YAML")
		dbPath     = flag.String("db", "bars.db", "bar database path")
		instrument = flag.String("instrument", "BTC", "instrument to replay")
	)
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	params := backtest.DefaultParameters()
	if *configPath != "" {
		data, err := os.ReadFile(*configPath)
		if err != nil {
			slog.Error("Failed to read config", slog.Any("error", err))
			os.Exit(1)
		}
		if err := yaml.Unmarshal(data, &params); err != nil {
			slog.Error("Failed to parse config", slog.Any("error", err))
			os.Exit(1)
		}
	}

	instr, err := domain.ParseInstrument(*instrument)
	if err != nil {
		slog.Error("Unknown instrument", slog.Any("error", err))
		os.Exit(1)
	}

	store, err := storage.NewBarStore(*dbPath)
	if err != nil {
		slog.Error("Failed to open bar store", slog.Any("error", err))
		os.Exit(1)
	}
	defer store.Close()

	replayer, err := backtest.NewReplayer(params)
	if err != nil {
		slog.Error("Invalid parameters", slog.Any("error", err))
		os.Exit(1)
	}

	result, err := replayer.RunFromStore(context.Background(), store, instr)
	if err != nil {
		slog.Error("Backtest failed", slog.Any("error", err))
		os.Exit(1)
	}

	slog.Info("Backtest finished",
		slog.String("instrument", instr.String()),
		slog.Float64("final_balance", result.FinalBalance),
		slog.Float64("percent_return", result.PercentReturn),
		slog.Int("gains", result.GainCount),
		slog.Int("losses", result.LossCount),
		slog.Float64("total_fees", result.TotalFees),
		slog.Int("trades", len(result.Trades)),
		slog.Bool("ruined", result.Ruined))
}
