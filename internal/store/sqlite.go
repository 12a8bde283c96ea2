package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// Compile-time interface check.
var _ RunStore = (*SQLiteStore)(nil)

// SQLiteStore implements RunStore backed by a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

const runsSchema = `
CREATE TABLE IF NOT EXISTS runs (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	created_at     TEXT    NOT NULL,
	symbol         TEXT    NOT NULL,
	strategy       TEXT    NOT NULL,
	mode           TEXT    NOT NULL,
	total_trades   INTEGER NOT NULL,
	total_pnl      REAL    NOT NULL,
	win_rate       REAL    NOT NULL,
	sharpe         REAL    NOT NULL,
	max_drawdown   REAL    NOT NULL,
	profit_factor  REAL    NOT NULL,
	result_json    BLOB    NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_symbol ON runs(symbol);
`

// NewSQLiteStore opens (or creates) a SQLite database at dbPath, runs the
// schema migration, and returns a ready-to-use SQLiteStore.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(runsSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating runs schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveRun inserts a completed backtest run and returns its ID.
func (s *SQLiteStore) SaveRun(ctx context.Context, summary RunSummary, resultJSON []byte) (int64, error) {
	createdAt := summary.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (created_at, symbol, strategy, mode, total_trades,
			total_pnl, win_rate, sharpe, max_drawdown, profit_factor, result_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		createdAt.Format(time.RFC3339Nano), summary.Symbol, summary.Strategy,
		summary.Mode, summary.TotalTrades, summary.TotalPnL, summary.WinRate,
		summary.Sharpe, summary.MaxDrawdown, summary.ProfitFactor, resultJSON,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting run: %w", err)
	}
	return res.LastInsertId()
}

// GetRun retrieves one run and its serialized result by ID.
func (s *SQLiteStore) GetRun(ctx context.Context, id int64) (*RunSummary, []byte, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, created_at, symbol, strategy, mode, total_trades,
			total_pnl, win_rate, sharpe, max_drawdown, profit_factor, result_json
		FROM runs WHERE id = ?`, id)

	var (
		summary    RunSummary
		createdAt  string
		resultJSON []byte
	)
	err := row.Scan(&summary.ID, &createdAt, &summary.Symbol, &summary.Strategy,
		&summary.Mode, &summary.TotalTrades, &summary.TotalPnL, &summary.WinRate,
		&summary.Sharpe, &summary.MaxDrawdown, &summary.ProfitFactor, &resultJSON)
	if err != nil {
		return nil, nil, err
	}
	summary.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return &summary, resultJSON, nil
}

// ListRuns returns the most recent runs, newest first.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, created_at, symbol, strategy, mode, total_trades,
			total_pnl, win_rate, sharpe, max_drawdown, profit_factor
		FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var (
			summary   RunSummary
			createdAt string
		)
		if err := rows.Scan(&summary.ID, &createdAt, &summary.Symbol, &summary.Strategy,
			&summary.Mode, &summary.TotalTrades, &summary.TotalPnL, &summary.WinRate,
			&summary.Sharpe, &summary.MaxDrawdown, &summary.ProfitFactor); err != nil {
			return nil, err
		}
		summary.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		out = append(out, summary)
	}
	return out, rows.Err()
}
