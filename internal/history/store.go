package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// ErrAmbiguousID is returned when a session ID prefix matches more than one entry.
var ErrAmbiguousID = errors.New("session id prefix is ambiguous")

// Store manages session history backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the history database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("ensure history directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
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
func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record inserts or replaces a session and its attempts.
func (s *Store) Record(ctx context.Context, entry Entry) error {
	if strings.TrimSpace(entry.SessionID) == "" {
		return errors.New("record history: session id is required")
	}
	if entry.StartedAt.IsZero() {
		entry.StartedAt = time.Now()
	}
	input, err := json.Marshal(entry.Record)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin record tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var confidence, probability any
	if entry.Prediction != "" {
		confidence = entry.Confidence
		probability = entry.ProbabilityAbove
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO sessions (
            id, state, started_at, finished_at, prediction, confidence,
            probability_above, error_kind, message, input_json, backend_url
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET
            state = excluded.state, finished_at = excluded.finished_at,
            prediction = excluded.prediction, confidence = excluded.confidence,
            probability_above = excluded.probability_above, error_kind = excluded.error_kind,
            message = excluded.message`,
		entry.SessionID,
		entry.State,
		nullableTime(entry.StartedAt),
		nullableTime(entry.FinishedAt),
		nullableString(entry.Prediction),
		confidence,
		probability,
		nullableString(entry.ErrorKind),
		nullableString(entry.Message),
		string(input),
		nullableString(entry.BackendURL),
	); err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM attempts WHERE session_id = ?`, entry.SessionID); err != nil {
		return fmt.Errorf("reset attempts: %w", err)
	}
	for _, a := range entry.Attempts {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO attempts (session_id, number, started_at, finished_at, outcome, error_kind, error)
             VALUES (?, ?, ?, ?, ?, ?, ?)`,
			entry.SessionID,
			a.Number,
			nullableTime(a.StartedAt),
			nullableTime(a.FinishedAt),
			a.Outcome,
			nullableString(a.ErrorKind),
			nullableString(a.Error),
		); err != nil {
			return fmt.Errorf("insert attempt %d: %w", a.Number, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit record: %w", err)
	}
	return nil
}

// List returns the most recent sessions, newest first. A non-positive limit
// returns every session.
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions s ORDER BY s.started_at DESC, s.id`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		entries = append(entries, *entry)
	}
	return entries, rows.Err()
}

// Get fetches a session by full ID or unique prefix, including its attempts.
// It returns nil without error when nothing matches.
func (s *Store) Get(ctx context.Context, id string) (*Entry, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions s WHERE s.id = ? OR s.id LIKE ? ORDER BY (s.id = ?) DESC LIMIT 2`,
		id, stripLikeWildcards(id)+"%", id,
	)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	var matches []*Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan session: %w", err)
		}
		matches = append(matches, entry)
	}
	if err := rows.Close(); err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	switch {
	case len(matches) == 0:
		return nil, nil
	case matches[0].SessionID != id && len(matches) > 1:
		return nil, fmt.Errorf("%w: %q", ErrAmbiguousID, id)
	}
	entry := matches[0]
	if entry.Attempts, err = s.attempts(ctx, entry.SessionID); err != nil {
		return nil, err
	}
	return entry, nil
}

// Clear removes every recorded session and returns how many were deleted.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions`)
	if err != nil {
		return 0, fmt.Errorf("clear history: %w", err)
	}
	return res.RowsAffected()
}

func (s *Store) attempts(ctx context.Context, sessionID string) ([]Attempt, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT number, started_at, finished_at, outcome, error_kind, error
         FROM attempts WHERE session_id = ? ORDER BY number`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	defer rows.Close()

	var attempts []Attempt
	for rows.Next() {
		var (
			a          Attempt
			startedRaw string
			finished   sql.NullString
			kind       sql.NullString
			errText    sql.NullString
		)
		if err := rows.Scan(&a.Number, &startedRaw, &finished, &a.Outcome, &kind, &errText); err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		if started, err := parseTimeString(startedRaw); err == nil {
			a.StartedAt = started
		}
		a.FinishedAt = parseNullTime(finished)
		a.ErrorKind = kind.String
		a.Error = errText.String
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}

func scanEntry(scanner interface{ Scan(dest ...any) error }) (*Entry, error) {
	var (
		entry       Entry
		startedRaw  string
		finished    sql.NullString
		prediction  sql.NullString
		confidence  sql.NullFloat64
		probability sql.NullFloat64
		kind        sql.NullString
		message     sql.NullString
		input       string
		backendURL  sql.NullString
	)
	if err := scanner.Scan(
		&entry.SessionID,
		&entry.State,
		&startedRaw,
		&finished,
		&prediction,
		&confidence,
		&probability,
		&kind,
		&message,
		&input,
		&backendURL,
		&entry.AttemptCount,
	); err != nil {
		return nil, err
	}
	if started, err := parseTimeString(startedRaw); err == nil {
		entry.StartedAt = started
	}
	entry.FinishedAt = parseNullTime(finished)
	entry.Prediction = prediction.String
	entry.Confidence = confidence.Float64
	entry.ProbabilityAbove = probability.Float64
	entry.ErrorKind = kind.String
	entry.Message = message.String
	entry.BackendURL = backendURL.String
	if err := json.Unmarshal([]byte(input), &entry.Record); err != nil {
		return nil, fmt.Errorf("decode input: %w", err)
	}
	return &entry, nil
}

func stripLikeWildcards(value string) string {
	return strings.NewReplacer(`%`, ``, `_`, ``).Replace(value)
}
