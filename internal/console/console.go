// Package console holds the operator-facing log shared by the UI and running commands.
package console

import (
	"strings"
	"sync"
)

// Capacity is the maximum number of entries kept. Older entries are evicted first.
const Capacity = 1000

// Severity distinguishes plain log lines from error lines.
type Severity int

const (
	SeverityLog Severity = iota
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	default:
		return "log"
	}
}

// Entry is a single console line.
type Entry struct {
	Severity Severity
	Text     string
}

// Console is a bounded, append-only sequence of entries.
// It is safe for concurrent use; the UI reads snapshots while workers append.
type Console struct {
	mu       sync.Mutex
	entries  []Entry
	revision uint64
}

// New creates an empty console.
func New() *Console {
	return &Console{entries: make([]Entry, 0, 64)}
}

// Append adds an entry at the tail, evicting from the head past Capacity.
func (c *Console) Append(severity Severity, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = append(c.entries, Entry{Severity: severity, Text: text})
	if over := len(c.entries) - Capacity; over > 0 {
		// Shift in place so the backing array does not grow without bound.
		n := copy(c.entries, c.entries[over:])
		clear(c.entries[n:])
		c.entries = c.entries[:n]
	}
	c.revision++
}

// Log appends a log line.
func (c *Console) Log(text string) {
	c.Append(SeverityLog, text)
}

// Error appends an error line.
func (c *Console) Error(text string) {
	c.Append(SeverityError, text)
}

// Entries returns a copy of the current entries in insertion order.
func (c *Console) Entries() []Entry {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

// Len returns the number of entries held.
func (c *Console) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Last returns the newest entry, if any.
func (c *Console) Last() (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.entries) == 0 {
		return Entry{}, false
	}
	return c.entries[len(c.entries)-1], true
}

// Revision increases on every append. Renderers compare it between frames
// to skip rebuilding unchanged content.
func (c *Console) Revision() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.revision
}

// Lines renders the entries as plain text, one per line, errors prefixed.
func (c *Console) Lines() string {
	entries := c.Entries()

	var b strings.Builder
	for i, e := range entries {
		if i > 0 {
			b.WriteString("\n")
		}
		if e.Severity == SeverityError {
			b.WriteString("[error] ")
		}
		b.WriteString(e.Text)
	}
	return b.String()
}
