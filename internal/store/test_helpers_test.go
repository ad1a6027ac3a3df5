package store

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/RoaringBitmap/roaring/v2/roaring64"

	"github.com/roach88/crate/internal/record"
)

// createTestStore creates a new store in a temp directory for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	return openTestStore(t, filepath.Join(t.TempDir(), "test.db"), Options{})
}

// openTestStore opens the store at path and closes it when the test ends.
func openTestStore(t *testing.T, path string, opts Options) *Store {
	t.Helper()
	opts.Path = path
	s, err := Open(context.Background(), opts)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestRecord creates a record whose fields are derived from n.
func createTestRecord(n int) record.Record {
	return record.Record{
		Artist: fmt.Sprintf("A%d", n),
		Title:  fmt.Sprintf("T%d", n),
		Songs:  fmt.Sprintf("%d", n*2),
		Year:   fmt.Sprintf("%d", 1990+n),
		Genre:  "Rock",
	}
}

// collectAll drains Store.All into a slice.
func collectAll(t *testing.T, s *Store) []record.Record {
	t.Helper()
	var out []record.Record
	for rec, err := range s.All(context.Background()) {
		if err != nil {
			t.Fatalf("All() failed: %v", err)
		}
		out = append(out, rec)
	}
	return out
}

func mustLookup(t *testing.T, s *Store, field, value string) *roaring64.Bitmap {
	t.Helper()
	ids, err := s.Lookup(context.Background(), field, value)
	if err != nil {
		t.Fatalf("Lookup(%s, %s) failed: %v", field, value, err)
	}
	return ids
}
