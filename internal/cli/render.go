package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/roach88/crate/internal/enumerator"
	"github.com/roach88/crate/internal/record"
	"github.com/roach88/crate/internal/store"
)

var recordHeader = "ID\tARTIST\tTITLE\tSONGS\tYEAR\tGENRE"

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func writeRecordRow(w io.Writer, rec record.Record) error {
	_, err := fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
		rec.ID, rec.Artist, rec.Title, rec.Songs, rec.Year, rec.Genre)
	return err
}

// tableConsumer renders an enumeration as an aligned table.
type tableConsumer struct {
	w  io.Writer
	tw *tabwriter.Writer
}

func newTableConsumer(w io.Writer) *tableConsumer {
	return &tableConsumer{w: w}
}

// Reset implements enumerator.Consumer.
func (c *tableConsumer) Reset() {
	c.tw = newTable(c.w)
	fmt.Fprintln(c.tw, recordHeader)
}

// Emit implements enumerator.Consumer.
func (c *tableConsumer) Emit(ev enumerator.Event) error {
	return writeRecordRow(c.tw, ev.Record)
}

// Done implements enumerator.Consumer.
func (c *tableConsumer) Done(count int) {
	_ = c.tw.Flush()
	fmt.Fprintf(c.w, "%d records\n", count)
}

// recordList is a lookup or list result.
type recordList []record.Record

func (l recordList) RenderText(w io.Writer) error {
	tw := newTable(w)
	fmt.Fprintln(tw, recordHeader)
	for _, rec := range l {
		if err := writeRecordRow(tw, rec); err != nil {
			return err
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "%d records\n", len(l))
	return err
}

// batchList is the import history.
type batchList []store.Batch

func (l batchList) RenderText(w io.Writer) error {
	if len(l) == 0 {
		_, err := fmt.Fprintln(w, "No imports.")
		return err
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "SEQ\tBATCH\tSOURCE\tRECORDS\tIDS")
	for _, b := range l {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\n", b.Seq, b.ID, b.Source, b.Count, idRange(b))
	}
	return tw.Flush()
}

// importSummary is the result of the import command.
type importSummary struct {
	Batches []store.Batch `json:"batches"`
	Records int           `json:"records"`
}

func (s importSummary) RenderText(w io.Writer) error {
	for _, b := range s.Batches {
		if _, err := fmt.Fprintf(w, "imported %d records from %s (ids %s, batch %s)\n",
			b.Count, b.Source, idRange(b), b.ID); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "%d records in %d batches\n", s.Records, len(s.Batches))
	return err
}

// infoView wraps store.Info for text output.
type infoView store.Info

func (v infoView) RenderText(w io.Writer) error {
	tw := newTable(w)
	fmt.Fprintf(tw, "database:\t%s\n", v.Path)
	fmt.Fprintf(tw, "collection:\t%s\n", v.Collection)
	fmt.Fprintf(tw, "version:\t%d\n", v.Version)
	fmt.Fprintf(tw, "records:\t%d\n", v.Count)
	fmt.Fprintf(tw, "imports:\t%d\n", v.Imports)
	for _, idx := range v.Indexes {
		kind := "index"
		if idx.Unique {
			kind = "unique index"
		}
		fmt.Fprintf(tw, "%s:\t%s\n", kind, idx.Field)
	}
	return tw.Flush()
}

// idRange formats the id span of a batch, "-" when empty.
func idRange(b store.Batch) string {
	switch {
	case b.Count == 0:
		return "-"
	case b.FirstID == b.LastID:
		return fmt.Sprintf("%d", b.FirstID)
	default:
		return fmt.Sprintf("%d-%d", b.FirstID, b.LastID)
	}
}
