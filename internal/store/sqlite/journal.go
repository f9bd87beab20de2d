package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"signalbot/internal/model"
)

// Journal persists emitted signals to SQLite for audit and the HTTP API.
// The table is append-only; signals are never updated.
type Journal struct {
	mu sync.Mutex
	db *sql.DB
}

// Open opens (or creates) the journal database at dbPath, creating the
// parent directory when needed.
func Open(dbPath string) (*Journal, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("sqlite mkdir: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	schema := `
	CREATE TABLE IF NOT EXISTS signals (
		id              INTEGER PRIMARY KEY AUTOINCREMENT,
		signal_id       TEXT    NOT NULL UNIQUE,
		pair            TEXT    NOT NULL,
		action          TEXT    NOT NULL,
		price           REAL    NOT NULL,
		tp1_price       REAL    NOT NULL,
		tp2_price       REAL    NOT NULL,
		stop_loss_price REAL    NOT NULL,
		condition_count INTEGER NOT NULL,
		reason          TEXT,
		bar_time        INTEGER NOT NULL,
		created_at      DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_signals_pair ON signals(pair, id);
	CREATE INDEX IF NOT EXISTS idx_signals_bar_time ON signals(bar_time);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	log.Printf("[journal] opened signal journal at %s", dbPath)
	return &Journal{db: db}, nil
}

// DB returns the underlying sql.DB for health checks.
func (j *Journal) DB() *sql.DB { return j.db }

// Name implements model.SignalSink.
func (j *Journal) Name() string { return "sqlite" }

// WriteSignal records sig. Writing a signal ID twice is a no-op.
func (j *Journal) WriteSignal(ctx context.Context, sig model.Signal) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	_, err := j.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO signals (signal_id, pair, action, price, tp1_price, tp2_price,
		 stop_loss_price, condition_count, reason, bar_time)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sig.ID,
		sig.Pair,
		sig.Action.String(),
		sig.Price,
		sig.TP1Price,
		sig.TP2Price,
		sig.StopLossPrice,
		sig.ConditionCount,
		sig.Reason,
		sig.Time.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("journal insert %s: %w", sig.ID, err)
	}
	return nil
}

// Recent returns the last limit signals across all pairs, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]model.Signal, error) {
	return j.query(ctx,
		`SELECT signal_id, pair, action, price, tp1_price, tp2_price, stop_loss_price,
		 condition_count, reason, bar_time FROM signals ORDER BY id DESC LIMIT ?`, limit)
}

// ByPair returns the last limit signals for pair, newest first.
func (j *Journal) ByPair(ctx context.Context, pair string, limit int) ([]model.Signal, error) {
	return j.query(ctx,
		`SELECT signal_id, pair, action, price, tp1_price, tp2_price, stop_loss_price,
		 condition_count, reason, bar_time FROM signals WHERE pair = ? ORDER BY id DESC LIMIT ?`, pair, limit)
}

func (j *Journal) query(ctx context.Context, q string, args ...any) ([]model.Signal, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	rows, err := j.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("journal query: %w", err)
	}
	defer rows.Close()

	var out []model.Signal
	for rows.Next() {
		var (
			s      model.Signal
			action string
			reason sql.NullString
			barMs  int64
		)
		if err := rows.Scan(&s.ID, &s.Pair, &action, &s.Price, &s.TP1Price, &s.TP2Price,
			&s.StopLossPrice, &s.ConditionCount, &reason, &barMs); err != nil {
			return nil, fmt.Errorf("journal scan: %w", err)
		}
		s.Action = model.Action(action)
		s.Reason = reason.String
		s.Time = time.UnixMilli(barMs).UTC()
		out = append(out, s)
	}
	return out, rows.Err()
}

// Close closes the journal database.
func (j *Journal) Close() error {
	return j.db.Close()
}
