package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"tuner/internal/workflow"
)

// DefaultLimit caps List when the caller passes a non-positive limit.
const DefaultLimit = 20

// timeLayout is fixed width so started_at sorts lexically in time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store records dispatched actions in SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open creates or connects to the journal database at path.
func Open(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("journal path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create journal directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// RecordAction inserts rec. A missing ID is filled with a fresh UUID.
func (s *Store) RecordAction(ctx context.Context, rec workflow.ActionRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.StartedAt.IsZero() {
		rec.StartedAt = time.Now()
	}
	if rec.FinishedAt.IsZero() {
		rec.FinishedAt = rec.StartedAt
	}
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO actions (id, user_id, action, outcome, detail, started_at, finished_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID,
		rec.UserID,
		string(rec.Action),
		rec.Outcome,
		nullableString(rec.Detail),
		rec.StartedAt.UTC().Format(timeLayout),
		rec.FinishedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("insert action: %w", err)
	}
	return nil
}

// List returns the most recent actions for userID, newest first. An empty
// userID lists every user.
func (s *Store) List(ctx context.Context, userID string, limit int) ([]workflow.ActionRecord, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	query := `SELECT id, user_id, action, outcome, detail, started_at, finished_at FROM actions`
	args := []any{}
	if userID != "" {
		query += ` WHERE user_id = ?`
		args = append(args, userID)
	}
	query += ` ORDER BY started_at DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query actions: %w", err)
	}
	defer rows.Close()

	var records []workflow.ActionRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate actions: %w", err)
	}
	return records, nil
}

// Clear deletes all actions for userID and returns the number removed.
func (s *Store) Clear(ctx context.Context, userID string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM actions WHERE user_id = ?`, userID)
	if err != nil {
		return 0, fmt.Errorf("clear actions: %w", err)
	}
	return res.RowsAffected()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (workflow.ActionRecord, error) {
	var (
		rec      workflow.ActionRecord
		action   string
		detail   sql.NullString
		started  string
		finished string
	)
	if err := row.Scan(&rec.ID, &rec.UserID, &action, &rec.Outcome, &detail, &started, &finished); err != nil {
		return workflow.ActionRecord{}, fmt.Errorf("scan action: %w", err)
	}
	rec.Action = workflow.Action(action)
	rec.Detail = detail.String
	rec.StartedAt = parseTime(started)
	rec.FinishedAt = parseTime(finished)
	return rec, nil
}

func parseTime(value string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}
