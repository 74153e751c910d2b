package audit

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"musync/internal/fileutil"
	"musync/internal/logging"
)

// FileName is the history file inside the config directory.
const FileName = "history.json"

// Logger records finished command runs and persists them as JSON.
type Logger struct {
	path       string
	maxEntries int
	retention  time.Duration
	enabled    bool

	mu      sync.RWMutex
	entries []*Entry
	wg      sync.WaitGroup // pending async saves
	saveMu  sync.Mutex     // serializes writers
}

// Config holds history settings.
type Config struct {
	Enabled       bool
	MaxEntries    int
	RetentionDays int
}

// DefaultConfig returns the default history configuration.
func DefaultConfig() Config {
	return Config{
		Enabled:       true,
		MaxEntries:    500,
		RetentionDays: 90,
	}
}

// NewLogger opens the history in dir, dropping entries past retention.
// A missing or unreadable file starts an empty history.
func NewLogger(dir string, cfg Config) (*Logger, error) {
	if !cfg.Enabled {
		return &Logger{enabled: false}, nil
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	l := &Logger{
		path:       filepath.Join(dir, FileName),
		maxEntries: cfg.MaxEntries,
		retention:  time.Duration(cfg.RetentionDays) * 24 * time.Hour,
		enabled:    true,
	}
	if l.maxEntries <= 0 {
		l.maxEntries = DefaultConfig().MaxEntries
	}

	if err := l.load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logging.Warn("discarding unreadable history", "path", l.path, "error", err)
		l.entries = nil
	}
	l.Cleanup()
	return l, nil
}

// Log records entry and saves the history in the background.
func (l *Logger) Log(entry *Entry) {
	if !l.enabled || entry == nil {
		return
	}

	l.mu.Lock()
	l.entries = append(l.entries, entry)
	if len(l.entries) > l.maxEntries {
		l.entries = l.entries[len(l.entries)-l.maxEntries:]
	}
	l.mu.Unlock()

	l.saveAsync()
}

// Query returns entries matching filter, oldest first.
func (l *Logger) Query(filter QueryFilter) []*Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var results []*Entry
	for _, entry := range l.entries {
		if !entry.Matches(filter) {
			continue
		}
		results = append(results, entry)
		if filter.Limit > 0 && len(results) >= filter.Limit {
			break
		}
	}
	return results
}

// GetRecent returns the most recent n entries, newest first.
func (l *Logger) GetRecent(n int) []*Entry {
	if n <= 0 {
		return nil
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	if n > len(l.entries) {
		n = len(l.entries)
	}
	if n == 0 {
		return nil
	}
	results := make([]*Entry, n)
	for i := 0; i < n; i++ {
		results[i] = l.entries[len(l.entries)-1-i]
	}
	return results
}

// Len returns the number of entries.
func (l *Logger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Cleanup removes entries older than the retention period.
// Returns the number of entries removed.
func (l *Logger) Cleanup() int {
	if !l.enabled || l.retention <= 0 {
		return 0
	}

	l.mu.Lock()
	cutoff := time.Now().Add(-l.retention)
	kept := l.entries[:0]
	for _, entry := range l.entries {
		if entry.Timestamp.After(cutoff) {
			kept = append(kept, entry)
		}
	}
	removed := len(l.entries) - len(kept)
	l.entries = kept
	l.mu.Unlock()

	if removed > 0 {
		l.saveAsync()
	}
	return removed
}

// Flush waits for all pending saves to complete.
func (l *Logger) Flush() {
	l.wg.Wait()
}

// Close flushes pending saves.
func (l *Logger) Close() error {
	l.Flush()
	return nil
}

func (l *Logger) saveAsync() {
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		if err := l.save(); err != nil {
			logging.Warn("failed to save history", "path", l.path, "error", err)
		}
	}()
}

func (l *Logger) load() error {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return err
	}
	var entries []*Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return err
	}
	l.entries = entries
	return nil
}

func (l *Logger) save() error {
	l.saveMu.Lock()
	defer l.saveMu.Unlock()

	l.mu.RLock()
	data, err := json.MarshalIndent(l.entries, "", "  ")
	l.mu.RUnlock()
	if err != nil {
		return err
	}
	return fileutil.AtomicWrite(l.path, data, 0o600)
}
