package journal

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"LeafScan/internal/controller"

	_ "github.com/mattn/go-sqlite3"
)

// Entry is one journaled prediction outcome
type Entry struct {
	ID         int64
	RequestID  string
	SessionID  string
	Image      string
	Kind       string
	Class      string
	Confidence float64
	Error      string
	DurationMS int64
	CreatedAt  time.Time
}

// Journal appends prediction outcomes to a SQLite database.
// It is an audit trail only; nothing reads it back to answer a prediction.
type Journal struct {
	db        *sql.DB
	sessionID string
	logger    *slog.Logger
}

// Open opens (or creates) the journal database at path. sessionID tags every
// row written through this Journal.
func Open(path, sessionID string, logger *slog.Logger) (*Journal, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	createPredictionsTable := `
	CREATE TABLE IF NOT EXISTS predictions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		request_id TEXT NOT NULL,
		session_id TEXT NOT NULL,
		image TEXT,
		kind TEXT NOT NULL,
		class TEXT,
		confidence REAL,
		error TEXT,
		duration_ms INTEGER,
		created_at DATETIME
	);`

	if _, err := db.Exec(createPredictionsTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create predictions table: %w", err)
	}

	logger.Info("opened prediction journal", "path", path, "session_id", sessionID)
	return &Journal{db: db, sessionID: sessionID, logger: logger}, nil
}

// Record implements controller.Recorder.
func (j *Journal) Record(ctx context.Context, o controller.Outcome) error {
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO predictions (request_id, session_id, image, kind, class, confidence, error, duration_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.RequestID, j.sessionID, o.Image, o.Kind, o.Class, o.Confidence, o.Error,
		o.Duration.Milliseconds(), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert prediction: %w", err)
	}

	j.logger.Debug("journaled prediction", "request_id", o.RequestID, "kind", o.Kind)
	return nil
}

// Recent returns up to limit entries, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := j.db.QueryContext(ctx,
		`SELECT id, request_id, session_id, image, kind, class, confidence, error, duration_ms, created_at
		 FROM predictions ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query predictions: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.RequestID, &e.SessionID, &e.Image, &e.Kind,
			&e.Class, &e.Confidence, &e.Error, &e.DurationMS, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan prediction: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Close closes the underlying database.
func (j *Journal) Close() error {
	return j.db.Close()
}

var _ controller.Recorder = (*Journal)(nil)
