// Package store implements C2: a single embedded SQL file, idempotent
// schema initialization, and short-lived per-call connections.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // pure-Go driver, no cgo
)

// Store wraps the one sql.DB backing $DB_PATH (spec.md §6). database/sql
// already pools and short-lives connections internally, satisfying "get_conn
// returns short-lived handles; nothing holds a handle across suspension
// points" — callers use Store's methods, never a raw *sql.Conn.
// ⭐ SSOT: DB_PATH 파일을 여는 곳은 여기뿐
type Store struct {
	db *sql.DB
}

// New opens (creating if absent) the single embedded file at path and runs
// the idempotent schema migration. WAL mode matches the "single open file,
// concurrent readers" access pattern the core's many short-lived callers need.
func New(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// sqlite has exactly one writer; callers are short-lived, so a small
	// pool is enough to let readers overlap the writer without contention.
	db.SetMaxOpenConns(8)
	db.SetMaxIdleConns(4)

	s := &Store{db: db}
	if err := s.migrate(context.Background()); err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}
	return s, nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the raw handle for repository constructors within this package.
func (s *Store) DB() *sql.DB {
	return s.db
}

// migrate creates every table and index the core uses, in one idempotent
// pass (CREATE TABLE IF NOT EXISTS throughout) — safe to call on every
// process start, matching spec.md §4.2/§5 "init_db is idempotent".
func (s *Store) migrate(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("exec schema statement: %w", err)
		}
	}
	return nil
}

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS daily_picks (
		date        TEXT NOT NULL,
		rank        INTEGER NOT NULL,
		stock_code  TEXT NOT NULL,
		stock_name  TEXT NOT NULL,
		reason      TEXT NOT NULL,
		category    TEXT NOT NULL,
		target_return TEXT NOT NULL,
		stop_loss   TEXT NOT NULL,
		is_theme    INTEGER NOT NULL,
		entry_window TEXT NOT NULL,
		cap_tier    TEXT NOT NULL,
		PRIMARY KEY (date, rank)
	)`,
	`CREATE TABLE IF NOT EXISTS positions (
		id             TEXT PRIMARY KEY,
		trading_id     TEXT NOT NULL UNIQUE,
		ticker         TEXT NOT NULL,
		name           TEXT NOT NULL,
		buy_time       TEXT NOT NULL,
		buy_price      INTEGER NOT NULL,
		qty            INTEGER NOT NULL,
		trigger_source TEXT NOT NULL,
		mode           TEXT NOT NULL,
		pick_type      TEXT NOT NULL,
		peak_price     INTEGER NOT NULL,
		stop_loss      INTEGER NOT NULL,
		market_env     TEXT NOT NULL,
		sector         TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_positions_ticker ON positions(ticker, mode)`,
	`CREATE TABLE IF NOT EXISTS trading_history (
		trading_id     TEXT PRIMARY KEY,
		ticker         TEXT NOT NULL,
		name           TEXT NOT NULL,
		buy_time       TEXT NOT NULL,
		buy_price      INTEGER NOT NULL,
		qty            INTEGER NOT NULL,
		trigger_source TEXT NOT NULL,
		mode           TEXT NOT NULL,
		pick_type      TEXT NOT NULL,
		peak_price     INTEGER NOT NULL,
		stop_loss      INTEGER NOT NULL,
		market_env     TEXT NOT NULL,
		sector         TEXT NOT NULL,
		sell_time      TEXT,
		sell_price     INTEGER,
		profit_rate    REAL,
		profit_amount  INTEGER,
		close_reason   TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_trading_history_open ON trading_history(sell_time)`,
	`CREATE TABLE IF NOT EXISTS alerts (
		id             TEXT PRIMARY KEY,
		ticker         TEXT NOT NULL,
		name           TEXT NOT NULL,
		alert_time     TEXT NOT NULL,
		alert_date     TEXT NOT NULL,
		change_rate    REAL NOT NULL,
		delta_rate     REAL NOT NULL,
		source         TEXT NOT NULL,
		price_at_alert INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_alerts_date ON alerts(alert_date)`,
	`CREATE TABLE IF NOT EXISTS performance_tracker (
		alert_id        TEXT PRIMARY KEY REFERENCES alerts(id),
		done_1d INTEGER NOT NULL DEFAULT 0,
		done_3d INTEGER NOT NULL DEFAULT 0,
		done_7d INTEGER NOT NULL DEFAULT 0,
		tracked_date_1d TEXT,
		tracked_date_3d TEXT,
		tracked_date_7d TEXT,
		price_1d REAL,
		price_3d REAL,
		price_7d REAL,
		return_1d REAL,
		return_3d REAL,
		return_7d REAL
	)`,
	`CREATE TABLE IF NOT EXISTS rag_patterns (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		date         TEXT NOT NULL,
		signal_type  TEXT NOT NULL,
		stock_name   TEXT NOT NULL,
		stock_code   TEXT NOT NULL,
		cap_tier     TEXT NOT NULL,
		was_picked   INTEGER NOT NULL,
		pick_rank    INTEGER,
		max_return   REAL NOT NULL,
		hit_20pct    INTEGER NOT NULL,
		hit_upper    INTEGER NOT NULL,
		pattern_memo TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_rag_signal_cap_date ON rag_patterns(signal_type, cap_tier, date)`,
	`CREATE TABLE IF NOT EXISTS trading_principles (
		trigger_source TEXT NOT NULL,
		action         TEXT NOT NULL,
		total_trades   INTEGER NOT NULL,
		wins           INTEGER NOT NULL,
		win_rate       REAL NOT NULL,
		confidence     TEXT NOT NULL,
		support_tags   TEXT NOT NULL DEFAULT '',
		updated_at     TEXT NOT NULL,
		PRIMARY KEY (trigger_source, action)
	)`,
	`CREATE TABLE IF NOT EXISTS theme_accuracy (
		theme_tag  TEXT PRIMARY KEY,
		total_picks INTEGER NOT NULL,
		hit_count  INTEGER NOT NULL,
		hit_rate   REAL NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS signal_weights (
		period      TEXT NOT NULL,
		signal_type TEXT NOT NULL,
		weight      REAL NOT NULL,
		sample_size INTEGER NOT NULL,
		PRIMARY KEY (period, signal_type)
	)`,
	`CREATE TABLE IF NOT EXISTS trading_journal (
		trading_id          TEXT PRIMARY KEY,
		closed_at           TEXT NOT NULL,
		buy_market_context  TEXT NOT NULL,
		situation_analysis  TEXT NOT NULL DEFAULT '',
		judgment_evaluation TEXT NOT NULL DEFAULT '',
		lessons             TEXT NOT NULL DEFAULT '',
		pattern_tags        TEXT NOT NULL DEFAULT '',
		one_line_summary    TEXT NOT NULL DEFAULT '',
		summary_text        TEXT NOT NULL DEFAULT '',
		compression_layer   INTEGER NOT NULL DEFAULT 1
	)`,
	`CREATE TABLE IF NOT EXISTS kospi_index_stats (
		band_low   INTEGER NOT NULL,
		band_high  INTEGER NOT NULL,
		trade_count INTEGER NOT NULL,
		win_rate   REAL NOT NULL,
		avg_profit REAL NOT NULL,
		PRIMARY KEY (band_low, band_high)
	)`,
	`CREATE TABLE IF NOT EXISTS theme_event_history (
		theme            TEXT NOT NULL,
		event_type       TEXT NOT NULL,
		week             TEXT NOT NULL,
		occurrence_count INTEGER NOT NULL,
		avg_return       REAL NOT NULL,
		hit_rate         REAL NOT NULL,
		PRIMARY KEY (theme, event_type, week)
	)`,
}
