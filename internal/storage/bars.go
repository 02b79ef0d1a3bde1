package storage

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/glebarez/go-sqlite"

	"github.com/hguan-dev/nu-algo-trading-competition/internal/domain"
	"github.com/hguan-dev/nu-algo-trading-competition/pkg/quant"
)

// BarStore persists historical OHLCV bars for the replay harness.
type BarStore struct {
	db *sql.DB
}

// NewBarStore opens (or creates) a bar database.
func NewBarStore(dbPath string) (*BarStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS bars (
			instrument TEXT NOT NULL,
			ts INTEGER NOT NULL,
			open REAL NOT NULL,
			high REAL NOT NULL,
			low REAL NOT NULL,
			close REAL NOT NULL,
			volume REAL NOT NULL,
			PRIMARY KEY (instrument, ts)
		);
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to create bars table: %w", err)
	}

	return &BarStore{db: db}, nil
}

// SaveBars writes a batch of bars in one transaction. Existing bars for
// the same (instrument, ts) are replaced.
func (s *BarStore) SaveBars(ctx context.Context, instr domain.Instrument, bars []domain.Bar) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		"INSERT OR REPLACE INTO bars (instrument, ts, open, high, low, close, volume) VALUES (?, ?, ?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, bar := range bars {
		_, err := stmt.ExecContext(ctx, instr.String(), int64(bar.Timestamp),
			bar.Open, bar.High, bar.Low, bar.Close, bar.Volume)
		if err != nil {
			return fmt.Errorf("failed to insert bar: %w", err)
		}
	}

	return tx.Commit()
}

// LoadBars returns all bars for an instrument in timestamp order.
func (s *BarStore) LoadBars(ctx context.Context, instr domain.Instrument) ([]domain.Bar, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT ts, open, high, low, close, volume FROM bars WHERE instrument = ? ORDER BY ts ASC",
		instr.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query bars: %w", err)
	}
	defer rows.Close()

	var bars []domain.Bar
	for rows.Next() {
		var bar domain.Bar
		var ts int64
		if err := rows.Scan(&ts, &bar.Open, &bar.High, &bar.Low, &bar.Close, &bar.Volume); err != nil {
			return nil, fmt.Errorf("failed to scan bar: %w", err)
		}
		bar.Timestamp = quant.TimeStamp(ts)
		bars = append(bars, bar)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return bars, nil
}

// Close closes the database connection.
func (s *BarStore) Close() error {
	return s.db.Close()
}
