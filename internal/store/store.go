// Package store persists the trade journal in SQLite.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"options-trader/internal/models"
)

// Store is the SQLite-backed session journal.
type Store struct {
	db *sql.DB
}

// New opens (or creates) the journal database at dbPath. Use ":memory:"
// for an ephemeral journal.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening journal database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(time.Hour)

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing journal schema: %w", err)
	}
	return s, nil
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		opened_at DATETIME NOT NULL,
		closed_at DATETIME NOT NULL,
		symbol TEXT NOT NULL,
		contract TEXT NOT NULL,
		option_right TEXT NOT NULL,
		quantity INTEGER NOT NULL,
		entry_price REAL NOT NULL,
		exit_price REAL NOT NULL,
		pnl REAL NOT NULL,
		status TEXT NOT NULL,
		error TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_symbol ON sessions(symbol);
	CREATE INDEX IF NOT EXISTS idx_sessions_opened ON sessions(opened_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// LogSession appends one finished session to the journal.
func (s *Store) LogSession(result models.SessionResult) error {
	errText := ""
	if result.Err != nil {
		errText = result.Err.Error()
	}
	contract := ""
	right := ""
	if result.Contract.Underlying != "" {
		contract = result.Contract.Describe()
		right = string(result.Contract.Right)
	}

	_, err := s.db.Exec(`
		INSERT INTO sessions (opened_at, closed_at, symbol, contract, option_right, quantity, entry_price, exit_price, pnl, status, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		result.OpenedAt, result.ClosedAt, result.Symbol, contract, right,
		result.Quantity, result.EntryPrice, result.ExitPrice, result.PnL(),
		string(result.Status), errText,
	)
	if err != nil {
		return fmt.Errorf("inserting session: %w", err)
	}
	return nil
}

// SessionRecord is one journal row.
type SessionRecord struct {
	ID         int64
	OpenedAt   time.Time
	ClosedAt   time.Time
	Symbol     string
	Contract   string
	Right      string
	Quantity   int
	EntryPrice float64
	ExitPrice  float64
	PnL        float64
	Status     string
	Error      string
}

// SessionFilter narrows a journal query. Zero values match everything.
type SessionFilter struct {
	Symbol string
	Status string
	Since  time.Time
	Limit  int
}

// Sessions returns journal rows matching the filter, newest first.
func (s *Store) Sessions(ctx context.Context, filter SessionFilter) ([]SessionRecord, error) {
	query := `SELECT id, opened_at, closed_at, symbol, contract, option_right, quantity, entry_price, exit_price, pnl, status, error
		FROM sessions WHERE 1=1`
	var args []interface{}

	if filter.Symbol != "" {
		query += " AND symbol = ?"
		args = append(args, filter.Symbol)
	}
	if filter.Status != "" {
		query += " AND status = ?"
		args = append(args, filter.Status)
	}
	if !filter.Since.IsZero() {
		query += " AND opened_at >= ?"
		args = append(args, filter.Since)
	}
	query += " ORDER BY opened_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying sessions: %w", err)
	}
	defer rows.Close()

	var records []SessionRecord
	for rows.Next() {
		var r SessionRecord
		if err := rows.Scan(&r.ID, &r.OpenedAt, &r.ClosedAt, &r.Symbol, &r.Contract, &r.Right,
			&r.Quantity, &r.EntryPrice, &r.ExitPrice, &r.PnL, &r.Status, &r.Error); err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// JournalStats summarizes the journal for reporting.
type JournalStats struct {
	Sessions int
	Closed   int
	Wins     int
	TotalPnL float64
}

// Stats aggregates closed sessions. Win rate counts only sessions that
// actually round-tripped a position.
func (s *Store) Stats(ctx context.Context) (JournalStats, error) {
	var stats JournalStats
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = ? AND pnl > 0 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(pnl), 0)
		FROM sessions`,
		string(models.SessionClosed), string(models.SessionClosed),
	).Scan(&stats.Sessions, &stats.Closed, &stats.Wins, &stats.TotalPnL)
	if err != nil {
		return JournalStats{}, fmt.Errorf("aggregating journal: %w", err)
	}
	return stats, nil
}
