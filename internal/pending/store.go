// Package pending implements the durable pending-action store shared by the
// tool process and the display process. The backing file is a single JSON
// map from correlation ID to record; every operation is a whole-file
// read-modify-write under an exclusive advisory flock so that unrelated OS
// processes can mutate it safely.
package pending

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"github.com/qingchang/notchbridge/internal/paths"
)

var timeNow = time.Now

// Record is one pending actionable request, keyed by correlation ID.
// Choice is nil until the display process records the user's tap.
type Record struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Type      string    `json:"type"`
	Actions   []string  `json:"actions"`
	CreatedAt time.Time `json:"created_at"`
	Choice    *string   `json:"choice,omitempty"`
}

// Store is a file-backed map of pending-action records. The in-process
// mutex serializes operations within one process; the flock on the
// co-located lock file serializes them across processes.
type Store struct {
	path     string
	lockPath string
	mu       sync.Mutex
}

// NewStore creates a store over the given backing and lock files.
func NewStore(path, lockPath string) *Store {
	return &Store{path: path, lockPath: lockPath}
}

// Path returns the backing file path (for wiring up a Watcher).
func (s *Store) Path() string {
	return s.path
}

// Create inserts a record for id, replacing any existing entry with the
// same id. Last write wins.
func (s *Store) Create(id, title, message, kind string, actions []string) error {
	return s.update(func(m map[string]Record) {
		m[id] = Record{
			ID:        id,
			Title:     title,
			Message:   message,
			Type:      kind,
			Actions:   actions,
			CreatedAt: timeNow(),
		}
	})
}

// SetChoice records the user's chosen label for id. If no record exists it
// synthesizes one with the choice pre-filled: the display process may race
// ahead of a creator that has not yet durably written its record, and the
// choice must not be lost.
func (s *Store) SetChoice(id, label string) error {
	return s.update(func(m map[string]Record) {
		rec, ok := m[id]
		if !ok {
			rec = Record{ID: id, CreatedAt: timeNow()}
		}
		rec.Choice = &label
		m[id] = rec
	})
}

// GetChoice returns the recorded choice for id, if any.
func (s *Store) GetChoice(id string) (string, bool, error) {
	var (
		choice string
		ok     bool
	)
	err := s.view(func(m map[string]Record) {
		if rec, found := m[id]; found && rec.Choice != nil {
			choice, ok = *rec.Choice, true
		}
	})
	return choice, ok, err
}

// Remove deletes the record for id. Removing an absent id is a no-op:
// timeout cleanup on the tool side and tap handling on the display side
// race for the same deletion.
func (s *Store) Remove(id string) error {
	return s.update(func(m map[string]Record) {
		delete(m, id)
	})
}

// ListPending returns all unresolved records, newest first.
func (s *Store) ListPending() ([]Record, error) {
	var out []Record
	err := s.view(func(m map[string]Record) {
		for _, rec := range m {
			if rec.Choice == nil {
				out = append(out, rec)
			}
		}
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) update(mutate func(map[string]Record)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	unlock := s.flock()
	defer unlock()

	m, err := s.read()
	if err != nil {
		return err
	}
	mutate(m)
	return s.write(m)
}

func (s *Store) view(read func(map[string]Record)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	unlock := s.flock()
	defer unlock()

	m, err := s.read()
	if err != nil {
		return err
	}
	read(m)
	return nil
}

// flock acquires the exclusive advisory lock, blocking until it is held.
// If the lock file cannot be opened or locked the store degrades to
// unlocked access rather than failing outright: a broken lock file must
// not make every prompt error out, even at a small corruption risk.
func (s *Store) flock() func() {
	if err := paths.EnsureDir(filepath.Dir(s.lockPath)); err != nil {
		slog.Warn("pending store lock dir unavailable, operating unlocked", "path", s.lockPath, "error", err)
		return func() {}
	}

	f, err := os.OpenFile(s.lockPath, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		slog.Warn("pending store lock unavailable, operating unlocked", "path", s.lockPath, "error", err)
		return func() {}
	}

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX); err != nil {
		slog.Warn("pending store flock failed, operating unlocked", "path", s.lockPath, "error", err)
		f.Close()
		return func() {}
	}

	return func() {
		if err := unix.Flock(int(f.Fd()), unix.LOCK_UN); err != nil {
			slog.Warn("pending store unlock failed", "path", s.lockPath, "error", err)
		}
		f.Close()
	}
}

func (s *Store) read() (map[string]Record, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]Record), nil
		}
		return nil, fmt.Errorf("reading pending store: %w", err)
	}
	if len(data) == 0 {
		return make(map[string]Record), nil
	}

	var m map[string]Record
	if err := json.Unmarshal(data, &m); err != nil {
		slog.Warn("pending store corrupt, starting over", "path", s.path, "error", err)
		return make(map[string]Record), nil
	}
	if m == nil {
		m = make(map[string]Record)
	}
	return m, nil
}

// write rewrites the backing file in place. Deliberately not
// write-temp-then-rename: a rename changes the file's inode and would
// invalidate identity-based watch handles on the other side, so crash
// atomicity is traded for watchability.
func (s *Store) write(m map[string]Record) error {
	if err := paths.EnsureDir(filepath.Dir(s.path)); err != nil {
		return fmt.Errorf("creating pending store dir: %w", err)
	}

	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("encoding pending store: %w", err)
	}

	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("writing pending store: %w", err)
	}
	return nil
}
