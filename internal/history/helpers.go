package history

import (
	"database/sql"
	"errors"
	"time"
)

// timeLayout keeps a fixed fraction width so timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const sessionColumns = "s.id, s.state, s.started_at, s.finished_at, s.prediction, s.confidence, s.probability_above, s.error_kind, s.message, s.input_json, s.backend_url, (SELECT COUNT(1) FROM attempts a WHERE a.session_id = s.id)"

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(value time.Time) any {
	if value.IsZero() {
		return nil
	}
	return value.UTC().Format(timeLayout)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	return time.Parse(time.RFC3339Nano, value)
}

func parseNullTime(value sql.NullString) time.Time {
	if !value.Valid {
		return time.Time{}
	}
	t, err := parseTimeString(value.String)
	if err != nil {
		return time.Time{}
	}
	return t
}
