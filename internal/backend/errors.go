package backend

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedResponse marks a 2xx response whose body could not be used.
var ErrMalformedResponse = errors.New("malformed response")

// StatusError is returned for non-2xx responses.
type StatusError struct {
	StatusCode int
	Detail     string
	Body       string
}

func (e *StatusError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("backend request: http %d: %s", e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("backend request: http %d: %s", e.StatusCode, summarizeBody(e.Body))
}

// HTTPStatus returns the response status code.
func (e *StatusError) HTTPStatus() int { return e.StatusCode }

// UserMessage returns the server-supplied detail, if any.
func (e *StatusError) UserMessage() string { return e.Detail }

// APIError is returned when the backend answers 2xx with success=false.
type APIError struct {
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return "backend request: prediction unsuccessful"
	}
	return "backend request: prediction unsuccessful: " + e.Message
}

// UserMessage returns the server-supplied message, if any.
func (e *APIError) UserMessage() string { return e.Message }

// UserMessage extracts the most specific server-supplied message carried by
// err, or "" when the backend provided none.
func UserMessage(err error) string {
	var carrier interface{ UserMessage() string }
	if errors.As(err, &carrier) {
		return strings.TrimSpace(carrier.UserMessage())
	}
	return ""
}

// parseDetail pulls a FastAPI-style {"detail": "..."} message from body.
// Validation errors carry a list instead of a string; those are summarized.
func parseDetail(body []byte) string {
	var payload struct {
		Detail  json.RawMessage `json:"detail"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	if len(payload.Detail) > 0 {
		var text string
		if err := json.Unmarshal(payload.Detail, &text); err == nil {
			return strings.TrimSpace(text)
		}
		var items []struct {
			Loc []any  `json:"loc"`
			Msg string `json:"msg"`
		}
		if err := json.Unmarshal(payload.Detail, &items); err == nil && len(items) > 0 {
			parts := make([]string, 0, len(items))
			for _, item := range items {
				field := ""
				if n := len(item.Loc); n > 0 {
					field = fmt.Sprint(item.Loc[n-1])
				}
				if field != "" {
					parts = append(parts, field+": "+item.Msg)
				} else {
					parts = append(parts, item.Msg)
				}
			}
			return strings.Join(parts, "; ")
		}
	}
	return strings.TrimSpace(payload.Message)
}

func summarizeBody(body string) string {
	trimmed := strings.Join(strings.Fields(body), " ")
	if trimmed == "" {
		return "<empty>"
	}
	const limit = 160
	runes := []rune(trimmed)
	if len(runes) > limit {
		return string(runes[:limit]) + "..."
	}
	return trimmed
}
