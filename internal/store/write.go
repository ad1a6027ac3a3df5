package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/crate/internal/record"
)

// Batch describes one committed write transaction.
type Batch struct {
	ID         string `json:"batch_id"` // UUIDv7 unless Options.NewBatchID is set
	Collection string `json:"collection"`
	Source     string `json:"source"`
	Count      int    `json:"record_count"`
	FirstID    int64  `json:"first_id"` // Zero for an empty batch
	LastID     int64  `json:"last_id"`  // Zero for an empty batch
	Seq        int64  `json:"seq"`      // Commit order across batches

	// Records holds the stored copies, in id order, for a batch returned by
	// Commit or WriteBatch. Nil for batches read from the import log.
	Records []record.Record `json:"-"`
}

// WriteTx is a scoped write transaction over the collection and its indexes.
//
// Every Insert is part of one SQLite transaction: Commit makes all of them
// visible at once, Abort (or any failed Insert) discards all of them.
// Exactly one WriteTx can be open per Store; Begin blocks until the previous
// one finishes.
type WriteTx struct {
	s        *Store
	ctx      context.Context
	tx       *sql.Tx
	insert   *sql.Stmt
	inserted []record.Record
	done     bool
}

// Begin starts a write transaction.
// The caller must finish it with Commit or Abort.
func (s *Store) Begin(ctx context.Context) (*WriteTx, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}

	s.writeMu.Lock()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		s.writeMu.Unlock()
		return nil, ioError("begin", err)
	}

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
		"INSERT INTO %s (artist, title, songs, year, genre) VALUES (?, ?, ?, ?, ?)",
		quoteIdent(s.collection),
	))
	if err != nil {
		_ = tx.Rollback()
		s.writeMu.Unlock()
		return nil, ioError("begin", fmt.Errorf("prepare insert: %w", err))
	}

	return &WriteTx{s: s, ctx: ctx, tx: tx, insert: stmt}, nil
}

// Insert adds rec to the transaction and returns the stored copy with its
// assigned id. Ids follow submission order. The caller's rec is not modified.
//
// On failure the whole transaction is aborted.
func (w *WriteTx) Insert(rec record.Record) (record.Record, error) {
	if w.done {
		return record.Record{}, ErrTxDone
	}

	result, err := w.insert.ExecContext(w.ctx, rec.Artist, rec.Title, rec.Songs, rec.Year, rec.Genre)
	if err != nil {
		w.abort()
		return record.Record{}, ioError("insert", fmt.Errorf("record %d of batch: %w", len(w.inserted), err))
	}

	id, err := result.LastInsertId()
	if err != nil {
		w.abort()
		return record.Record{}, ioError("insert", fmt.Errorf("last insert id: %w", err))
	}

	rec.ID = id
	w.inserted = append(w.inserted, rec)
	return rec, nil
}

// Commit writes the import log row for source and commits the transaction.
// It runs strictly after every Insert of the batch has returned.
func (w *WriteTx) Commit(source string) (Batch, error) {
	if w.done {
		return Batch{}, ErrTxDone
	}

	batch := Batch{
		ID:         w.s.newBatchID(),
		Collection: w.s.collection,
		Source:     source,
		Count:      len(w.inserted),
		Records:    w.inserted,
	}
	if n := len(w.inserted); n > 0 {
		batch.FirstID = w.inserted[0].ID
		batch.LastID = w.inserted[n-1].ID
	}

	if err := w.tx.QueryRowContext(w.ctx,
		"SELECT COALESCE(MAX(seq), 0) + 1 FROM imports",
	).Scan(&batch.Seq); err != nil {
		w.abort()
		return Batch{}, ioError("commit", fmt.Errorf("next import seq: %w", err))
	}

	_, err := w.tx.ExecContext(w.ctx, `
		INSERT INTO imports
		(batch_id, collection, source, record_count, first_id, last_id, seq)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		batch.ID,
		batch.Collection,
		batch.Source,
		batch.Count,
		batch.FirstID,
		batch.LastID,
		batch.Seq,
	)
	if err != nil {
		w.abort()
		return Batch{}, ioError("commit", fmt.Errorf("write import log: %w", err))
	}

	w.insert.Close()
	if err := w.tx.Commit(); err != nil {
		w.abort()
		return Batch{}, ioError("commit", err)
	}
	w.finish()

	for _, rec := range batch.Records {
		w.s.cache.Add(rec.ID, rec)
	}

	w.s.log.Debug("batch committed",
		"batch_id", batch.ID,
		"source", batch.Source,
		"records", batch.Count,
		"first_id", batch.FirstID,
		"last_id", batch.LastID)
	return batch, nil
}

// Abort rolls back the transaction. No-op if already finished.
func (w *WriteTx) Abort() error {
	if w.done {
		return nil
	}
	w.insert.Close()
	err := w.tx.Rollback()
	w.finish()
	if err != nil {
		return ioError("abort", err)
	}
	return nil
}

func (w *WriteTx) abort() {
	if err := w.Abort(); err != nil {
		w.s.log.Warn("rollback failed", "error", err)
	}
}

func (w *WriteTx) finish() {
	w.done = true
	w.inserted = nil
	w.s.writeMu.Unlock()
}

// WriteBatch inserts records in one transaction and commits it under source.
// Either every record is stored and indexed, or none is.
func (s *Store) WriteBatch(ctx context.Context, source string, records []record.Record) (Batch, error) {
	w, err := s.Begin(ctx)
	if err != nil {
		return Batch{}, err
	}
	defer w.Abort() // No-op if committed

	for _, rec := range records {
		if _, err := w.Insert(rec); err != nil {
			return Batch{}, err
		}
	}
	return w.Commit(source)
}
