// Package enumerator streams the stored collection to a display consumer.
//
// The enumerator is a pure pass-through: records reach the consumer exactly
// as the store returns them, in insertion order. It is run once when the
// store is opened and again after every committed import.
package enumerator

import (
	"context"
	"fmt"
	"iter"
	"log/slog"

	"github.com/roach88/crate/internal/record"
	"github.com/roach88/crate/internal/store"
)

// Source yields the collection in insertion order.
// Implemented by *store.Store.
type Source interface {
	All(ctx context.Context) iter.Seq2[record.Record, error]
}

// Event carries one record to the consumer.
type Event struct {
	Index  int // Zero-based position in this enumeration
	Record record.Record
}

// Consumer receives one enumeration at a time: Reset, then one Emit per
// record, then Done with the number of records emitted.
type Consumer interface {
	Reset()
	Emit(ev Event) error
	Done(count int)
}

// Enumerator drives a Consumer from a Source.
type Enumerator struct {
	src      Source
	consumer Consumer
	log      *slog.Logger
}

// New creates an Enumerator. A nil logger means slog.Default().
func New(src Source, consumer Consumer, log *slog.Logger) *Enumerator {
	if log == nil {
		log = slog.Default()
	}
	return &Enumerator{src: src, consumer: consumer, log: log}
}

// EnumerateAll returns a lazy, finite, restartable sequence of every
// committed record in insertion order.
func (e *Enumerator) EnumerateAll(ctx context.Context) iter.Seq2[record.Record, error] {
	return e.src.All(ctx)
}

// Display resets the consumer and emits every record to it.
// Stops at the first read or consumer error; Done is called only when the
// whole collection was emitted.
func (e *Enumerator) Display(ctx context.Context) (int, error) {
	e.consumer.Reset()

	n := 0
	for rec, err := range e.src.All(ctx) {
		if err != nil {
			return n, fmt.Errorf("enumerate: %w", err)
		}
		if err := e.consumer.Emit(Event{Index: n, Record: rec}); err != nil {
			return n, fmt.Errorf("emit record %d: %w", rec.ID, err)
		}
		n++
	}

	e.consumer.Done(n)
	return n, nil
}

// Imported re-displays the collection after a committed import.
// Implements importer.Listener.
func (e *Enumerator) Imported(ctx context.Context, batch store.Batch) {
	n, err := e.Display(ctx)
	if err != nil {
		e.log.Error("redisplay after import failed", "batch_id", batch.ID, "error", err)
		return
	}
	e.log.Debug("redisplayed after import", "batch_id", batch.ID, "records", n)
}

// Collector is a Consumer that keeps the records of the latest enumeration.
type Collector struct {
	Records  []record.Record
	Complete bool
	Runs     int
}

// Reset implements Consumer.
func (c *Collector) Reset() {
	c.Records = nil
	c.Complete = false
}

// Emit implements Consumer.
func (c *Collector) Emit(ev Event) error {
	c.Records = append(c.Records, ev.Record)
	return nil
}

// Done implements Consumer.
func (c *Collector) Done(count int) {
	c.Complete = true
	c.Runs++
}
