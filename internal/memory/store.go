// Package memory persists the rolling chat history between runs.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// TimestampLayout is the on-disk timestamp format, in local time.
const TimestampLayout = "2006-01-02 15:04:05"

// DefaultTTL is how long a saved session stays valid.
const DefaultTTL = 72 * time.Hour

// Entry is one completed exchange.
type Entry struct {
	User string `json:"user"`
	Bot  string `json:"bot"`
}

// Session is the loaded memory file. A zero Timestamp means no valid
// session was found.
type Session struct {
	Timestamp time.Time `json:"timestamp"`
	Entries   []Entry   `json:"memory"`
}

type fileFormat struct {
	Timestamp string  `json:"timestamp"`
	Memory    []Entry `json:"memory"`
}

// Store reads and writes the memory file. It does no locking of its own;
// callers serialise read-modify-write cycles.
type Store struct {
	path string
	ttl  time.Duration
	log  *slog.Logger
	now  func() time.Time
}

func NewStore(path string, ttl time.Duration, log *slog.Logger) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{path: path, ttl: ttl, log: log, now: time.Now}
}

// Path returns the memory file location.
func (s *Store) Path() string { return s.path }

// Load returns the saved entries, or none when the file is missing,
// unreadable or expired.
func (s *Store) Load(ctx context.Context) []Entry {
	return s.Session(ctx).Entries
}

// Session returns the saved entries together with their timestamp.
func (s *Store) Session(ctx context.Context) Session {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Debug("memory file unreadable", "path", s.path, "error", err)
		}
		return Session{}
	}

	var f fileFormat
	if err := json.Unmarshal(data, &f); err != nil {
		s.log.Debug("memory file corrupt", "path", s.path, "error", err)
		return Session{}
	}
	ts, err := time.ParseInLocation(TimestampLayout, f.Timestamp, time.Local)
	if err != nil {
		s.log.Debug("memory timestamp invalid", "path", s.path, "timestamp", f.Timestamp)
		return Session{}
	}
	if !ts.Add(s.ttl).After(s.now()) {
		s.log.Debug("memory expired", "path", s.path, "saved_at", f.Timestamp)
		return Session{}
	}
	return Session{Timestamp: ts, Entries: f.Memory}
}

// Save replaces the file with entries stamped at the current time. The
// write goes through a temp file and rename so readers never see a
// partial file.
func (s *Store) Save(ctx context.Context, entries []Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if entries == nil {
		entries = []Entry{}
	}
	data, err := json.Marshal(fileFormat{
		Timestamp: s.now().In(time.Local).Format(TimestampLayout),
		Memory:    entries,
	})
	if err != nil {
		return fmt.Errorf("marshal memory: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create memory dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write memory: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync memory: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close memory: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("replace memory file: %w", err)
	}
	s.log.Debug("saved memory", "path", s.path, "entries", len(entries))
	return nil
}

// Clear deletes the memory file. A missing file is not an error.
func (s *Store) Clear(ctx context.Context) error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("clear memory: %w", err)
	}
	s.log.Info("cleared memory", "path", s.path)
	return nil
}
