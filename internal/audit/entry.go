// Package audit keeps the history of finished command runs.
package audit

import (
	"encoding/json"
	"strings"
	"time"

	"musync/internal/bridge"
)

// maxErrorLen bounds the stored error text of a run.
const maxErrorLen = 500

// Entry represents one finished command run.
type Entry struct {
	ID        string        `json:"id"`
	Timestamp time.Time     `json:"timestamp"`
	Command   string        `json:"command"`
	Success   bool          `json:"success"`
	Error     string        `json:"error,omitempty"`
	Duration  time.Duration `json:"duration_ms"`
}

// FromRun converts a dispatcher record.
func FromRun(r bridge.RunRecord) *Entry {
	e := &Entry{
		ID:        r.ID,
		Timestamp: r.Started,
		Command:   r.Label,
		Success:   r.Err == nil,
		Duration:  r.Duration,
	}
	if r.Err != nil {
		e.Error = Truncate(r.Err.Error(), maxErrorLen)
	}
	return e
}

// MarshalJSON implements custom JSON marshaling.
func (e *Entry) MarshalJSON() ([]byte, error) {
	type Alias Entry
	return json.Marshal(&struct {
		*Alias
		DurationMs int64 `json:"duration_ms"`
	}{
		Alias:      (*Alias)(e),
		DurationMs: e.Duration.Milliseconds(),
	})
}

// UnmarshalJSON implements custom JSON unmarshaling.
func (e *Entry) UnmarshalJSON(data []byte) error {
	type Alias Entry
	aux := &struct {
		*Alias
		DurationMs int64 `json:"duration_ms"`
	}{
		Alias: (*Alias)(e),
	}
	if err := json.Unmarshal(data, aux); err != nil {
		return err
	}
	e.Duration = time.Duration(aux.DurationMs) * time.Millisecond
	return nil
}

// QueryFilter defines criteria for querying entries.
type QueryFilter struct {
	Command string // matches the command name, the first word of the label
	Success *bool
	Since   time.Time
	Limit   int
}

// Matches checks if the entry matches the filter criteria.
func (e *Entry) Matches(filter QueryFilter) bool {
	if filter.Command != "" {
		name, _, _ := strings.Cut(e.Command, " ")
		if name != filter.Command {
			return false
		}
	}
	if filter.Success != nil && e.Success != *filter.Success {
		return false
	}
	if !filter.Since.IsZero() && e.Timestamp.Before(filter.Since) {
		return false
	}
	return true
}

// Truncate cuts s to maxLen bytes, marking the cut.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "...[truncated]"
}
