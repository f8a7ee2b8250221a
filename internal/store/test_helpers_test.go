package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/filterjoin/internal/doc"
)

// createTestStore creates a new store in a temp directory.
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

// createTestTranslation builds a successful translation of input.
func createTestTranslation(t *testing.T, input string) Translation {
	t.Helper()
	in := doc.MustParse(input)
	tr, err := NewTranslation("sequence", in, doc.Object{"compiled": doc.Bool(true)}, 1, nil)
	if err != nil {
		t.Fatalf("NewTranslation() failed: %v", err)
	}
	return tr
}
