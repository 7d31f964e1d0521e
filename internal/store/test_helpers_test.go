package store

import (
	"path/filepath"
	"testing"
)

// createTestStore creates a new file-backed store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// seed writes entries in order through a single update.
func seed(t *testing.T, s *Store, entries ...Entry) {
	t.Helper()
	err := s.Update(t.Context(), func(tx *Tx) error {
		for _, e := range entries {
			if err := tx.Set(e.Path, e.Value); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("seed failed: %v", err)
	}
}
