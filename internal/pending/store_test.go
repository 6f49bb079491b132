package pending

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	return NewStore(filepath.Join(dir, "pending_actions.json"), filepath.Join(dir, "pending_actions.lock"))
}

func TestCreateGetChoiceRoundTrip(t *testing.T) {
	s := newTestStore(t)

	if err := s.Create("abc", "Deploy?", "Ship release v2", "warning", []string{"Yes", "No"}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if _, ok, err := s.GetChoice("abc"); err != nil || ok {
		t.Fatalf("GetChoice() before choice = (ok=%v, err=%v), want absent", ok, err)
	}

	if err := s.SetChoice("abc", "Yes"); err != nil {
		t.Fatalf("SetChoice() error = %v", err)
	}

	choice, ok, err := s.GetChoice("abc")
	if err != nil {
		t.Fatalf("GetChoice() error = %v", err)
	}
	if !ok || choice != "Yes" {
		t.Fatalf("GetChoice() = (%q, %v), want (\"Yes\", true)", choice, ok)
	}
}

func TestSetChoiceOnUnknownIDUpserts(t *testing.T) {
	s := newTestStore(t)

	if err := s.SetChoice("never-created", "yes"); err != nil {
		t.Fatalf("SetChoice() error = %v", err)
	}

	choice, ok, err := s.GetChoice("never-created")
	if err != nil {
		t.Fatalf("GetChoice() error = %v", err)
	}
	if !ok || choice != "yes" {
		t.Fatalf("GetChoice() = (%q, %v), want (\"yes\", true)", choice, ok)
	}
}

func TestRemoveIsIdempotent(t *testing.T) {
	s := newTestStore(t)

	if err := s.Remove("ghost"); err != nil {
		t.Fatalf("Remove() on absent id error = %v", err)
	}

	if err := s.Create("abc", "t", "m", "info", []string{"OK"}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := s.Remove("abc"); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if err := s.Remove("abc"); err != nil {
		t.Fatalf("second Remove() error = %v", err)
	}

	recs, err := s.ListPending()
	if err != nil {
		t.Fatalf("ListPending() error = %v", err)
	}
	if len(recs) != 0 {
		t.Fatalf("ListPending() = %d records, want 0", len(recs))
	}
}

func TestListPendingNewestFirstAndExcludesResolved(t *testing.T) {
	s := newTestStore(t)

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	restore := timeNow
	defer func() { timeNow = restore }()

	for i, id := range []string{"old", "mid", "new"} {
		offset := time.Duration(i) * time.Minute
		timeNow = func() time.Time { return base.Add(offset) }
		if err := s.Create(id, "t", "m", "info", []string{"OK"}); err != nil {
			t.Fatalf("Create(%q) error = %v", id, err)
		}
	}

	if err := s.SetChoice("mid", "OK"); err != nil {
		t.Fatalf("SetChoice() error = %v", err)
	}

	recs, err := s.ListPending()
	if err != nil {
		t.Fatalf("ListPending() error = %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("ListPending() = %d records, want 2", len(recs))
	}
	if recs[0].ID != "new" || recs[1].ID != "old" {
		t.Fatalf("ListPending() order = [%s, %s], want [new, old]", recs[0].ID, recs[1].ID)
	}
}

func TestCreateLastWriteWinsSingleEntry(t *testing.T) {
	s := newTestStore(t)

	if err := s.Create("dup", "first", "m", "info", []string{"A"}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := s.Create("dup", "second", "m", "info", []string{"B"}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	recs, err := s.ListPending()
	if err != nil {
		t.Fatalf("ListPending() error = %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("ListPending() = %d records, want 1", len(recs))
	}
	if recs[0].Title != "second" {
		t.Fatalf("record title = %q, want %q", recs[0].Title, "second")
	}
}

func TestConcurrentMutationsKeepAtMostOneEntryPerID(t *testing.T) {
	s := newTestStore(t)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				switch n % 3 {
				case 0:
					_ = s.Create("contested", "t", "m", "info", []string{"Yes", "No"})
				case 1:
					_ = s.SetChoice("contested", "Yes")
				case 2:
					_ = s.Remove("contested")
				}
			}
		}(i)
	}
	wg.Wait()

	// Whatever interleaving happened, the map holds zero or one entry.
	recs, err := s.ListPending()
	if err != nil {
		t.Fatalf("ListPending() error = %v", err)
	}
	seen := 0
	for _, rec := range recs {
		if rec.ID == "contested" {
			seen++
		}
	}
	if seen > 1 {
		t.Fatalf("found %d entries for one id, want at most 1", seen)
	}
}

func TestWriteKeepsBackingFileInPlace(t *testing.T) {
	s := newTestStore(t)

	if err := s.Create("a", "t", "m", "info", []string{"OK"}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	before, err := os.Stat(s.Path())
	if err != nil {
		t.Fatalf("stat store: %v", err)
	}

	if err := s.SetChoice("a", "OK"); err != nil {
		t.Fatalf("SetChoice() error = %v", err)
	}
	after, err := os.Stat(s.Path())
	if err != nil {
		t.Fatalf("stat store: %v", err)
	}

	if !os.SameFile(before, after) {
		t.Fatal("backing file identity changed across writes, want in-place rewrite")
	}
}

func TestCorruptBackingFileIsReset(t *testing.T) {
	s := newTestStore(t)

	if err := os.MkdirAll(filepath.Dir(s.Path()), 0700); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(s.Path(), []byte("{not-json"), 0600); err != nil {
		t.Fatalf("write corrupt store: %v", err)
	}

	if err := s.Create("fresh", "t", "m", "info", []string{"OK"}); err != nil {
		t.Fatalf("Create() over corrupt store error = %v", err)
	}

	recs, err := s.ListPending()
	if err != nil {
		t.Fatalf("ListPending() error = %v", err)
	}
	if len(recs) != 1 || recs[0].ID != "fresh" {
		t.Fatalf("ListPending() = %+v, want single record fresh", recs)
	}
}

func TestUnopenableLockFileDegradesToUnlocked(t *testing.T) {
	dir := t.TempDir()
	lockPath := filepath.Join(dir, "pending_actions.lock")
	// A directory at the lock path makes OpenFile fail; operations must
	// carry on unlocked instead of erroring out.
	if err := os.Mkdir(lockPath, 0700); err != nil {
		t.Fatalf("mkdir lock path: %v", err)
	}
	s := NewStore(filepath.Join(dir, "pending_actions.json"), lockPath)

	if err := s.Create("abc", "Deploy?", "Ship release v2", "warning", []string{"Yes", "No"}); err != nil {
		t.Fatalf("Create() with unopenable lock error = %v", err)
	}
	if err := s.SetChoice("abc", "Yes"); err != nil {
		t.Fatalf("SetChoice() with unopenable lock error = %v", err)
	}

	choice, ok, err := s.GetChoice("abc")
	if err != nil {
		t.Fatalf("GetChoice() with unopenable lock error = %v", err)
	}
	if !ok || choice != "Yes" {
		t.Fatalf("GetChoice() = (%q, %v), want (\"Yes\", true)", choice, ok)
	}
}
