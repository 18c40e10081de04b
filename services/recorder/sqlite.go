package recorder

import (
	"database/sql"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/kvh-4114/trade-strategies-sub001/services/engine"
)

// SQLiteRecorder writes run artifacts to a local SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// WAL so dashboards can read while a run writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS trades (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id      TEXT NOT NULL,
			instrument  TEXT NOT NULL,
			exit_ts     INTEGER NOT NULL,
			avg_entry   TEXT,
			exit_price  TEXT,
			shares      INTEGER,
			pnl         TEXT,
			pnl_pct     TEXT,
			exit_reason TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_trades_run ON trades(run_id)`,

		`CREATE TABLE IF NOT EXISTS snapshots (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id       TEXT NOT NULL,
			ts           INTEGER NOT NULL,
			cash         TEXT,
			invested     TEXT,
			value        TEXT,
			peak         TEXT,
			positions    INTEGER,
			drawdown_pct TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_snapshots_run ON snapshots(run_id)`,

		`CREATE TABLE IF NOT EXISTS annual_stats (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id        TEXT NOT NULL,
			year          INTEGER NOT NULL,
			return_pct    REAL,
			max_dd_pct    REAL,
			trades        INTEGER,
			wins          INTEGER,
			losses        INTEGER,
			win_rate_pct  REAL,
			profit_factor REAL,
			avg_win_pct   REAL,
			avg_loss_pct  REAL,
			avg_hold_days REAL,
			avg_positions REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_annual_run ON annual_stats(run_id)`,
	}
	for _, stmt := range stmts {
		if _, err := r.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (r *SQLiteRecorder) RecordTrades(runID string, trades []engine.Trade) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO trades
		(run_id, instrument, exit_ts, avg_entry, exit_price, shares, pnl, pnl_pct, exit_reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, t := range trades {
		if _, err := stmt.Exec(
			runID,
			t.Instrument,
			t.ExitDate.Unix(),
			t.AvgEntryPrice.String(),
			t.ExitPrice.String(),
			t.Shares,
			t.PnL.String(),
			t.PnLPct.String(),
			t.ExitReason,
		); err != nil {
			return fmt.Errorf("insert trade: %w", err)
		}
	}
	return tx.Commit()
}

func (r *SQLiteRecorder) RecordSnapshots(runID string, snaps []engine.Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO snapshots
		(run_id, ts, cash, invested, value, peak, positions, drawdown_pct)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, sn := range snaps {
		if _, err := stmt.Exec(
			runID,
			sn.Date.Unix(),
			sn.Cash.String(),
			sn.Invested.String(),
			sn.Value.String(),
			sn.Peak.String(),
			sn.Positions,
			sn.DrawdownPct.String(),
		); err != nil {
			return fmt.Errorf("insert snapshot: %w", err)
		}
	}
	return tx.Commit()
}

func (r *SQLiteRecorder) RecordAnnual(runID string, stats []engine.AnnualStats) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, st := range stats {
		if _, err := r.db.Exec(`INSERT INTO annual_stats
			(run_id, year, return_pct, max_dd_pct, trades, wins, losses,
			 win_rate_pct, profit_factor, avg_win_pct, avg_loss_pct, avg_hold_days, avg_positions)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			runID, st.Year, st.ReturnPct, st.MaxDrawdownPct, st.Trades, st.Wins, st.Losses,
			st.WinRatePct, st.ProfitFactor, st.AvgWinPct, st.AvgLossPct, st.AvgHoldDays, st.AvgPositions,
		); err != nil {
			return fmt.Errorf("insert annual stats: %w", err)
		}
	}
	return nil
}

func (r *SQLiteRecorder) Close() error {
	return r.db.Close()
}
