package importer

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/crate/internal/docsource"
	"github.com/roach88/crate/internal/parser"
	"github.com/roach88/crate/internal/record"
	"github.com/roach88/crate/internal/store"
	"github.com/roach88/crate/internal/telemetry"
)

// Writer commits a batch of records atomically.
// Implemented by *store.Store.
type Writer interface {
	WriteBatch(ctx context.Context, source string, records []record.Record) (store.Batch, error)
}

// Listener is notified after a batch has been committed.
type Listener interface {
	Imported(ctx context.Context, batch store.Batch)
}

// ListenerFunc adapts a function to the Listener interface.
type ListenerFunc func(ctx context.Context, batch store.Batch)

// Imported calls f.
func (f ListenerFunc) Imported(ctx context.Context, batch store.Batch) {
	f(ctx, batch)
}

// Result describes a committed import.
type Result struct {
	Batch   store.Batch
	Records []record.Record // Stored copies with assigned ids, in document order
}

// Importer orchestrates parse -> single write transaction -> notification.
type Importer struct {
	w         Writer
	listeners []Listener
	metrics   *telemetry.Metrics
	log       *slog.Logger
}

// Option configures an Importer.
type Option func(*Importer)

// WithListener registers a listener notified after every committed import.
// Listeners run in registration order on the importing goroutine.
func WithListener(l Listener) Option {
	return func(im *Importer) {
		im.listeners = append(im.listeners, l)
	}
}

// WithMetrics records import outcomes in m.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(im *Importer) {
		im.metrics = m
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(im *Importer) {
		im.log = l
	}
}

// New creates an Importer writing to w.
func New(w Writer, opts ...Option) *Importer {
	im := &Importer{
		w:   w,
		log: slog.Default(),
	}
	for _, opt := range opts {
		opt(im)
	}
	return im
}

// ImportDocument parses raw and commits every record in one transaction.
//
// source labels the batch in the import log (typically the file name).
// On any error nothing is written; the error wraps the parser or store error
// so errors.As and Kind still see it.
func (im *Importer) ImportDocument(ctx context.Context, source string, raw []byte) (Result, error) {
	start := time.Now()

	records, err := parser.Parse(raw)
	if err != nil {
		return Result{}, im.failed(source, err, start)
	}
	return im.commit(ctx, source, records, start)
}

// ImportFiles imports each file as its own batch, in argument order.
//
// All files are read and parsed concurrently before the first write, so a
// document error in any file aborts the whole call with the store untouched.
// A storage error stops at that file; batches committed before it remain.
func (im *Importer) ImportFiles(ctx context.Context, paths ...string) ([]Result, error) {
	start := time.Now()
	parsed := make([][]record.Record, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			raw, err := docsource.ReadFile(path)
			if err != nil {
				return err
			}
			records, err := parser.Parse(raw)
			if err != nil {
				return im.failed(path, err, start)
			}
			parsed[i] = records
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(paths))
	for i, path := range paths {
		res, err := im.commit(ctx, path, parsed[i], start)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

func (im *Importer) commit(ctx context.Context, source string, records []record.Record, start time.Time) (Result, error) {
	batch, err := im.w.WriteBatch(ctx, source, records)
	if err != nil {
		return Result{}, im.failed(source, err, start)
	}

	im.metrics.ObserveImport(batch.Count, time.Since(start))
	im.log.Info("import committed",
		"source", source,
		"batch_id", batch.ID,
		"records", batch.Count,
		"first_id", batch.FirstID,
		"last_id", batch.LastID)

	for _, l := range im.listeners {
		l.Imported(ctx, batch)
	}
	return Result{Batch: batch, Records: batch.Records}, nil
}

func (im *Importer) failed(source string, err error, start time.Time) error {
	kind := Kind(err)
	im.metrics.ObserveFailure(string(kind), time.Since(start))
	im.log.Debug("import failed", "source", source, "kind", kind, "error", err)
	return fmt.Errorf("import %s: %w", source, err)
}
