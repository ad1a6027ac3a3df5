package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"iter"
	"strings"

	"github.com/roach88/crate/internal/record"
)

// Cursor reads records in insertion order (ORDER BY id ASC).
// It sees only state committed before it was opened.
type Cursor struct {
	rows *sql.Rows
	cur  record.Record
	err  error
}

// OpenCursor opens a fresh cursor over the collection.
// Callers must Close it; rows hold a pooled connection until then.
func (s *Store) OpenCursor(ctx context.Context) (*Cursor, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, fmt.Sprintf(`
		SELECT id, artist, title, songs, year, genre
		FROM %s
		ORDER BY id ASC
	`, quoteIdent(s.collection)))
	if err != nil {
		return nil, ioError("read", fmt.Errorf("open cursor: %w", err))
	}
	return &Cursor{rows: rows}, nil
}

// Next advances to the next record. Returns false when the collection is
// exhausted or an error occurred; check Err afterwards.
func (c *Cursor) Next() bool {
	if c.err != nil || c.rows == nil {
		return false
	}
	if !c.rows.Next() {
		if err := c.rows.Err(); err != nil {
			c.err = ioError("read", fmt.Errorf("iterate cursor: %w", err))
		}
		return false
	}
	rec, err := scanRecord(c.rows)
	if err != nil {
		c.err = err
		return false
	}
	c.cur = rec
	return true
}

// Record returns the record at the current position.
func (c *Cursor) Record() record.Record {
	return c.cur
}

// Err returns the error that stopped iteration, if any.
func (c *Cursor) Err() error {
	return c.err
}

// Close releases the cursor. Safe to call more than once.
func (c *Cursor) Close() error {
	if c.rows == nil {
		return nil
	}
	err := c.rows.Close()
	c.rows = nil
	return err
}

// All returns a lazy sequence over the collection in insertion order.
//
// Every range over the sequence opens a new cursor, so the sequence is
// restartable and reflects the state committed at that time. A read failure
// is yielded once as the final element.
func (s *Store) All(ctx context.Context) iter.Seq2[record.Record, error] {
	return func(yield func(record.Record, error) bool) {
		c, err := s.OpenCursor(ctx)
		if err != nil {
			yield(record.Record{}, err)
			return
		}
		defer c.Close()

		for c.Next() {
			if !yield(c.Record(), nil) {
				return
			}
		}
		if err := c.Err(); err != nil {
			yield(record.Record{}, err)
		}
	}
}

// Get retrieves a single record by id.
// Returns an error wrapping ErrNotFound if no record has that id.
func (s *Store) Get(ctx context.Context, id int64) (record.Record, error) {
	if rec, ok := s.cache.Get(id); ok {
		return rec, nil
	}

	db, err := s.conn()
	if err != nil {
		return record.Record{}, err
	}

	row := db.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT id, artist, title, songs, year, genre
		FROM %s
		WHERE id = ?
	`, quoteIdent(s.collection)), id)

	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return record.Record{}, fmt.Errorf("get %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return record.Record{}, err
	}

	s.cache.Add(id, rec)
	return rec, nil
}

// Count returns the number of committed records.
func (s *Store) Count(ctx context.Context) (int, error) {
	db, err := s.conn()
	if err != nil {
		return 0, err
	}
	var n int
	if err := db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT COUNT(*) FROM %s", quoteIdent(s.collection)),
	).Scan(&n); err != nil {
		return 0, ioError("read", fmt.Errorf("count: %w", err))
	}
	return n, nil
}

// Imports returns the import log of this collection ordered by commit seq.
// Returns an empty slice (not nil) if nothing was imported.
func (s *Store) Imports(ctx context.Context) ([]Batch, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT batch_id, collection, source, record_count, first_id, last_id, seq
		FROM imports
		WHERE collection = ?
		ORDER BY seq ASC
	`, s.collection)
	if err != nil {
		return nil, ioError("read", fmt.Errorf("query imports: %w", err))
	}
	defer rows.Close()

	batches := []Batch{}
	for rows.Next() {
		var b Batch
		if err := rows.Scan(&b.ID, &b.Collection, &b.Source, &b.Count, &b.FirstID, &b.LastID, &b.Seq); err != nil {
			return nil, ioError("read", fmt.Errorf("scan import: %w", err))
		}
		batches = append(batches, b)
	}
	if err := rows.Err(); err != nil {
		return nil, ioError("read", fmt.Errorf("iterate imports: %w", err))
	}
	return batches, nil
}

// Verify checks the database for damage left by an interrupted write:
// SQLite's integrity check (which also cross-checks every index against its
// table) plus the presence of each declared index.
func (s *Store) Verify(ctx context.Context) error {
	db, err := s.conn()
	if err != nil {
		return err
	}

	rows, err := db.QueryContext(ctx, "PRAGMA integrity_check")
	if err != nil {
		return ioError("read", fmt.Errorf("integrity check: %w", err))
	}
	var problems []string
	for rows.Next() {
		var line string
		if err := rows.Scan(&line); err != nil {
			rows.Close()
			return ioError("read", fmt.Errorf("scan integrity check: %w", err))
		}
		if line != "ok" {
			problems = append(problems, line)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return ioError("read", fmt.Errorf("iterate integrity check: %w", err))
	}
	if len(problems) > 0 {
		return fmt.Errorf("integrity check failed: %s", strings.Join(problems, "; "))
	}

	return s.verifyIndexes(ctx, db)
}

// Info summarizes the store for display.
type Info struct {
	Path       string      `json:"path"`
	Collection string      `json:"collection"`
	Version    int         `json:"version"`
	Count      int         `json:"count"`
	Imports    int         `json:"imports"`
	Indexes    []IndexSpec `json:"indexes"`
}

// Info returns a summary of the store.
func (s *Store) Info(ctx context.Context) (Info, error) {
	count, err := s.Count(ctx)
	if err != nil {
		return Info{}, err
	}
	batches, err := s.Imports(ctx)
	if err != nil {
		return Info{}, err
	}
	return Info{
		Path:       s.path,
		Collection: s.collection,
		Version:    s.version,
		Count:      count,
		Imports:    len(batches),
		Indexes:    s.Indexes(),
	}, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanRecord scans a row into a Record.
func scanRecord(row rowScanner) (record.Record, error) {
	var rec record.Record
	err := row.Scan(&rec.ID, &rec.Artist, &rec.Title, &rec.Songs, &rec.Year, &rec.Genre)
	if errors.Is(err, sql.ErrNoRows) {
		return record.Record{}, err
	}
	if err != nil {
		return record.Record{}, ioError("read", fmt.Errorf("scan record: %w", err))
	}
	return rec, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
