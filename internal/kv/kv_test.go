package kv

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

// exerciseStore runs the behaviour every backend must share.
func exerciseStore(t *testing.T, s Store) {
	t.Helper()

	if _, err := s.Get("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(missing) err = %v, want ErrNotFound", err)
	}

	if err := s.Set("gameworld_points", "42"); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	v, err := s.Get("gameworld_points")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if v != "42" {
		t.Errorf("Get() = %q, want %q", v, "42")
	}

	// Overwrite
	if err := s.Set("gameworld_points", "43"); err != nil {
		t.Fatalf("Set() overwrite error: %v", err)
	}
	v, _ = s.Get("gameworld_points")
	if v != "43" {
		t.Errorf("Get() after overwrite = %q, want %q", v, "43")
	}

	if err := s.Delete("gameworld_points"); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	if _, err := s.Get("gameworld_points"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() after Delete err = %v, want ErrNotFound", err)
	}

	// Deleting an absent key is not an error
	if err := s.Delete("never-set"); err != nil {
		t.Errorf("Delete(never-set) error: %v", err)
	}
}

func TestMemory(t *testing.T) {
	exerciseStore(t, NewMemory())
}

func TestMemory_Len(t *testing.T) {
	m := NewMemory()
	m.Set("a", "1")
	m.Set("b", "2")
	if m.Len() != 2 {
		t.Errorf("Len = %d, want 2", m.Len())
	}
}

func TestMemory_ConcurrentAccess(t *testing.T) {
	m := NewMemory()
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Set("k", "v")
			m.Get("k")
		}()
	}
	wg.Wait()
	if v, _ := m.Get("k"); v != "v" {
		t.Errorf("Get = %q, want %q", v, "v")
	}
}

func TestSQLite(t *testing.T) {
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "local.db"))
	if err != nil {
		t.Fatalf("OpenSQLite() error: %v", err)
	}
	defer s.Close()
	exerciseStore(t, s)
}

func TestSQLite_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "local.db")
	s, err := OpenSQLite(path)
	if err != nil {
		t.Fatal(err)
	}
	s.Set("gameworld_stats", `{"version":1}`)
	s.Close()

	s, err = OpenSQLite(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	v, err := s.Get("gameworld_stats")
	if err != nil {
		t.Fatalf("Get() after reopen error: %v", err)
	}
	if v != `{"version":1}` {
		t.Errorf("Get() = %q, want %q", v, `{"version":1}`)
	}
}

func TestOpenSQLite_EmptyPath(t *testing.T) {
	if _, err := OpenSQLite("  "); err == nil {
		t.Error("OpenSQLite should reject an empty path")
	}
}

func TestRedis(t *testing.T) {
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL not set, skipping redis tests")
	}
	r, err := NewRedis(url, "gameworld-test:")
	if err != nil {
		t.Fatalf("NewRedis() error: %v", err)
	}
	defer r.Close()
	exerciseStore(t, r)
}

func TestOpen(t *testing.T) {
	s, err := Open("memory", "")
	if err != nil {
		t.Fatalf("Open(memory) error: %v", err)
	}
	if _, ok := s.(*Memory); !ok {
		t.Errorf("Open(memory) = %T, want *Memory", s)
	}

	if _, err := Open("floppy", ""); err == nil {
		t.Error("Open should reject an unknown backend")
	}
}
