package harness

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/RoaringBitmap/roaring/v2/roaring64"

	"github.com/roach88/crate/internal/store"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, ev := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s %s -> %s\n", ev.Seq, ev.Step, ev.Source, ev.OutputCase)
		}
	}
	return buf.String()
}

// AssertionContext provides store access for state assertions.
type AssertionContext struct {
	Store *store.Store
	Ctx   context.Context
}

// EvaluateAssertions evaluates all assertions against the result and store.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var msgs []string

	for i, a := range assertions {
		var err error

		switch a.Type {
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, a)
		case AssertRecordCount, AssertRecord, AssertLookup, AssertImportCount, AssertVerify:
			if actx == nil || actx.Store == nil {
				err = fmt.Errorf("assertion[%d]: %s requires a store", i, a.Type)
				break
			}
			err = evaluateStateAssertion(actx, a)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, a.Type)
		}

		if err != nil {
			var ae *AssertionError
			if errors.As(err, &ae) {
				ae.Trace = result.Trace
			}
			msgs = append(msgs, err.Error())
		}
	}
	return msgs
}

func evaluateStateAssertion(actx *AssertionContext, a Assertion) error {
	switch a.Type {
	case AssertRecordCount:
		return assertRecordCount(actx.Ctx, actx.Store, a)
	case AssertRecord:
		return assertRecord(actx.Ctx, actx.Store, a)
	case AssertLookup:
		return assertLookup(actx.Ctx, actx.Store, a)
	case AssertImportCount:
		return assertImportCount(actx.Ctx, actx.Store, a)
	default:
		return assertVerify(actx.Ctx, actx.Store)
	}
}

// assertTraceCount checks how many steps ended with the given case.
func assertTraceCount(trace []TraceEvent, a Assertion) error {
	count := 0
	for _, ev := range trace {
		if ev.OutputCase == a.Case {
			count++
		}
	}
	if count != a.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d steps with case %s", a.Count, a.Case),
			Actual:   fmt.Sprintf("%d steps", count),
		}
	}
	return nil
}

func assertRecordCount(ctx context.Context, st *store.Store, a Assertion) error {
	n, err := st.Count(ctx)
	if err != nil {
		return fmt.Errorf("record_count: %w", err)
	}
	if n != a.Count {
		return &AssertionError{
			Type:     AssertRecordCount,
			Expected: fmt.Sprintf("%d records", a.Count),
			Actual:   fmt.Sprintf("%d records", n),
		}
	}
	return nil
}

// assertRecord checks the expected fields of one record (subset match).
func assertRecord(ctx context.Context, st *store.Store, a Assertion) error {
	rec, err := st.Get(ctx, a.ID)
	if errors.Is(err, store.ErrNotFound) {
		return &AssertionError{
			Type:     AssertRecord,
			Expected: fmt.Sprintf("record %d", a.ID),
			Actual:   "not found",
		}
	}
	if err != nil {
		return fmt.Errorf("record: %w", err)
	}

	for field, want := range a.Expect {
		got, err := rec.Get(field)
		if err != nil {
			return fmt.Errorf("record: %w", err)
		}
		if got != want {
			return &AssertionError{
				Type:     AssertRecord,
				Expected: fmt.Sprintf("record %d %s=%q", a.ID, field, want),
				Actual:   fmt.Sprintf("%s=%q", field, got),
			}
		}
	}
	return nil
}

func assertLookup(ctx context.Context, st *store.Store, a Assertion) error {
	var (
		ids *roaring64.Bitmap
		err error
	)
	if a.Value != "" {
		ids, err = st.Lookup(ctx, a.Field, a.Value)
	} else {
		ids, err = st.LookupRange(ctx, a.Field, a.From, a.To)
	}
	if err != nil {
		return fmt.Errorf("lookup: %w", err)
	}

	got := make([]int64, 0, ids.GetCardinality())
	for _, id := range ids.ToArray() {
		got = append(got, int64(id))
	}
	want := a.IDs
	if want == nil {
		want = []int64{}
	}
	if !slices.Equal(got, want) {
		return &AssertionError{
			Type:     AssertLookup,
			Expected: fmt.Sprintf("%s ids %v", a.Field, want),
			Actual:   fmt.Sprintf("%v", got),
		}
	}
	return nil
}

func assertImportCount(ctx context.Context, st *store.Store, a Assertion) error {
	batches, err := st.Imports(ctx)
	if err != nil {
		return fmt.Errorf("import_count: %w", err)
	}
	if len(batches) != a.Count {
		return &AssertionError{
			Type:     AssertImportCount,
			Expected: fmt.Sprintf("%d imports", a.Count),
			Actual:   fmt.Sprintf("%d imports", len(batches)),
		}
	}
	return nil
}

func assertVerify(ctx context.Context, st *store.Store) error {
	if err := st.Verify(ctx); err != nil {
		return &AssertionError{
			Type:     AssertVerify,
			Expected: "store passes verification",
			Actual:   err.Error(),
		}
	}
	return nil
}
