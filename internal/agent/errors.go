package agent

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrResultNotFound is returned when the agent has no result for a plan
var ErrResultNotFound = errors.New("plan result not found")

// StatusError is a non-2xx reply from the agent
type StatusError struct {
	Code   int
	Status string
	Detail string
}

func (e *StatusError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("agent returned %s", e.Status)
	}
	return fmt.Sprintf("agent returned %s: %s", e.Status, e.Detail)
}

// IsStatus reports whether err is a StatusError with the given code
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == code
}

// errorDetail pulls a readable message out of an error body.
// The agent answers with {"detail": ...}; other shapes fall back to the raw text.
func errorDetail(body []byte) string {
	var payload struct {
		Detail  json.RawMessage `json:"detail"`
		Message string          `json:"message"`
		Error   string          `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if len(payload.Detail) > 0 {
			var s string
			if json.Unmarshal(payload.Detail, &s) == nil {
				return s
			}
			return string(payload.Detail)
		}
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	text := strings.TrimSpace(string(body))
	if len(text) > 200 {
		text = text[:200] + "..."
	}
	return text
}
