package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/RoaringBitmap/roaring/v2/roaring64"

	"github.com/roach88/crate/internal/record"
)

// IndexSpec declares a secondary index over one record field.
type IndexSpec struct {
	Field  string `yaml:"field" json:"field"`
	Unique bool   `yaml:"unique" json:"unique"`
}

// DefaultIndexes returns the non-unique indexes over every record field.
func DefaultIndexes() []IndexSpec {
	specs := make([]IndexSpec, len(record.Fields))
	for i, f := range record.Fields {
		specs[i] = IndexSpec{Field: f, Unique: false}
	}
	return specs
}

// validateIndexes rejects unknown fields and duplicate declarations.
// Field names are interpolated into DDL, so only record fields are allowed.
func validateIndexes(specs []IndexSpec) error {
	seen := make(map[string]bool, len(specs))
	for _, spec := range specs {
		if !record.IsField(spec.Field) {
			return fmt.Errorf("index on unknown field %q", spec.Field)
		}
		if seen[spec.Field] {
			return fmt.Errorf("duplicate index on field %q", spec.Field)
		}
		seen[spec.Field] = true
	}
	return nil
}

// IndexName returns the SQLite index name for a field of a collection.
func IndexName(collection, field string) string {
	return "idx_" + collection + "_" + field
}

// Indexes returns a copy of the declared index specs.
func (s *Store) Indexes() []IndexSpec {
	return append([]IndexSpec(nil), s.indexes...)
}

func (s *Store) indexed(field string) bool {
	for _, spec := range s.indexes {
		if spec.Field == field {
			return true
		}
	}
	return false
}

// ensureIndexes creates every declared index that does not exist yet.
// CREATE INDEX IF NOT EXISTS makes this a no-op on attach.
func (s *Store) ensureIndexes(ctx context.Context, tx *sql.Tx) error {
	for _, spec := range s.indexes {
		unique := ""
		if spec.Unique {
			unique = "UNIQUE "
		}
		ddl := fmt.Sprintf("CREATE %sINDEX IF NOT EXISTS %s ON %s(%s)",
			unique,
			quoteIdent(IndexName(s.collection, spec.Field)),
			quoteIdent(s.collection),
			quoteIdent(spec.Field),
		)
		if _, err := tx.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("create index on %s: %w", spec.Field, err)
		}
	}
	return nil
}

// Lookup returns the ids of records whose field equals value.
// The field must have a declared index.
func (s *Store) Lookup(ctx context.Context, field, value string) (*roaring64.Bitmap, error) {
	return s.lookup(ctx, field, []string{"= ?"}, []any{value})
}

// LookupRange returns the ids of records whose field lies in [lo, hi] under
// SQLite text ordering. An empty bound leaves that side open.
func (s *Store) LookupRange(ctx context.Context, field, lo, hi string) (*roaring64.Bitmap, error) {
	var conds []string
	var args []any
	if lo != "" {
		conds = append(conds, ">= ?")
		args = append(args, lo)
	}
	if hi != "" {
		conds = append(conds, "<= ?")
		args = append(args, hi)
	}
	return s.lookup(ctx, field, conds, args)
}

func (s *Store) lookup(ctx context.Context, field string, conds []string, args []any) (*roaring64.Bitmap, error) {
	if !s.indexed(field) {
		return nil, fmt.Errorf("lookup %q: %w", field, ErrUnknownIndex)
	}
	db, err := s.conn()
	if err != nil {
		return nil, err
	}

	query := "SELECT id FROM " + quoteIdent(s.collection)
	if len(conds) > 0 {
		where := make([]string, len(conds))
		for i, c := range conds {
			where[i] = quoteIdent(field) + " " + c
		}
		query += " WHERE " + strings.Join(where, " AND ")
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, ioError("read", fmt.Errorf("lookup %s: %w", field, err))
	}
	defer rows.Close()

	ids := roaring64.New()
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, ioError("read", fmt.Errorf("scan id: %w", err))
		}
		ids.Add(uint64(id))
	}
	if err := rows.Err(); err != nil {
		return nil, ioError("read", fmt.Errorf("iterate lookup: %w", err))
	}
	return ids, nil
}

// Records materializes the given ids in ascending id order.
// Ids without a record are skipped.
func (s *Store) Records(ctx context.Context, ids *roaring64.Bitmap) ([]record.Record, error) {
	records := make([]record.Record, 0, ids.GetCardinality())
	it := ids.Iterator()
	for it.HasNext() {
		rec, err := s.Get(ctx, int64(it.Next()))
		if err != nil {
			if isNotFound(err) {
				continue
			}
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// verifyIndexes checks that every declared index exists in the schema.
func (s *Store) verifyIndexes(ctx context.Context, db *sql.DB) error {
	for _, spec := range s.indexes {
		name := IndexName(s.collection, spec.Field)
		var found string
		err := db.QueryRowContext(ctx,
			"SELECT name FROM sqlite_master WHERE type = 'index' AND name = ?", name,
		).Scan(&found)
		if err == sql.ErrNoRows {
			return fmt.Errorf("index %s is missing", name)
		}
		if err != nil {
			return ioError("read", fmt.Errorf("check index %s: %w", name, err))
		}
	}
	return nil
}
