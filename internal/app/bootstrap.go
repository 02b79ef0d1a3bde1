// Package app wires configuration, storage, and the trading engine into a
// runnable process.
package app

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/hguan-dev/nu-algo-trading-competition/internal/infra"
	"github.com/hguan-dev/nu-algo-trading-competition/internal/storage"
)

// Bootstrap orchestrates the application startup sequence.
type Bootstrap struct {
	Config     *infra.Config
	EventStore *storage.EventStore
	Snapshots  *storage.SnapshotManager

	unlock func()
}

// NewBootstrap creates a new Bootstrap instance.
func NewBootstrap() *Bootstrap {
	return &Bootstrap{}
}

// Initialize performs core system initialization: config, logging, data
// directories, the single-instance lock, and the event store.
func (b *Bootstrap) Initialize() error {
	cfg, err := infra.LoadConfig(infra.ResolveConfigPath())
	if err != nil {
		return err
	}
	b.Config = cfg

	logger := infra.NewLogger(cfg)
	slog.SetDefault(logger)
	slog.Info("Bootstrapping",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("mode", cfg.Trading.Mode))

	// Data isolation per mode: _workspace/data/{mode}/events.db
	mode := strings.ToLower(cfg.Trading.Mode)
	workDir := infra.GetWorkspaceDir()
	dataDir := filepath.Join(workDir, "data", mode)
	logDir := filepath.Join(workDir, "logs", mode)

	if err := infra.EnsureDir(dataDir); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}
	if err := infra.EnsureDir(logDir); err != nil {
		return fmt.Errorf("failed to create log dir: %w", err)
	}

	// Single-instance lock: two processes on the same event log would
	// corrupt the single-writer guarantee.
	unlock, err := infra.CreateLockFile(workDir)
	if err != nil {
		return err
	}
	b.unlock = unlock

	dbPath := filepath.Join(dataDir, "events.db")
	evStore, err := storage.NewEventStore(dbPath)
	if err != nil {
		return err
	}
	b.EventStore = evStore
	slog.Info("EventStore initialized (WAL mode)", "path", dbPath, "mode", mode)

	b.Snapshots = storage.NewSnapshotManager(filepath.Join(dataDir, "snapshots"))

	return nil
}

// Shutdown releases the event store and the instance lock.
func (b *Bootstrap) Shutdown() {
	if b.EventStore != nil {
		if err := b.EventStore.Close(); err != nil {
			slog.Warn("EventStore close failed", slog.Any("error", err))
		}
	}
	if b.unlock != nil {
		b.unlock()
	}
}
