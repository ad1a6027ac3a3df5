package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/roach88/crate/internal/docsource"
	"github.com/roach88/crate/internal/enumerator"
	"github.com/roach88/crate/internal/importer"
	"github.com/roach88/crate/internal/store"
	"github.com/roach88/crate/internal/testutil"
)

// Harness is the scenario execution engine.
// It owns one store for the duration of a scenario.
type Harness struct {
	scenario *Scenario
	opts     store.Options
	store    *store.Store
	display  *enumerator.Collector
	clock    *testutil.DeterministicClock
	logger   *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Each scenario runs against a fresh database in its own temp directory.
// Expectation and assertion failures are reported in Result.Errors; the
// returned error is reserved for failures of the harness itself.
func Run(scenario *Scenario) (*Result, error) {
	dir, err := os.MkdirTemp("", "crate-scenario-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create scenario dir: %w", err)
	}
	defer os.RemoveAll(dir)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // Suppress logs in tests
	ids := testutil.NewBatchIDGenerator(scenario.BatchPrefix)

	h := &Harness{
		scenario: scenario,
		opts: store.Options{
			Path:       filepath.Join(dir, "crate.db"),
			Collection: scenario.Store.Collection,
			Version:    scenario.Store.Version,
			Indexes:    scenario.Store.Indexes,
			Logger:     logger,
			NewBatchID: ids.Generate,
		},
		display: &enumerator.Collector{},
		clock:   testutil.NewDeterministicClock(),
		logger:  logger,
	}

	ctx := context.Background()
	if err := h.open(ctx, h.opts); err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	defer func() {
		if h.store != nil {
			h.store.Close()
		}
	}()

	result := NewResult()
	for i, step := range scenario.Flow {
		if err := h.executeStep(ctx, i, step, result); err != nil {
			return nil, fmt.Errorf("flow[%d]: %w", i, err)
		}
	}

	actx := &AssertionContext{Store: h.store, Ctx: ctx}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}

	result.Records = append(result.Records, h.display.Records...)
	return result, nil
}

// open opens the store and shows the collection, as on startup.
func (h *Harness) open(ctx context.Context, opts store.Options) error {
	st, err := store.Open(ctx, opts)
	if err != nil {
		return err
	}
	h.store = st
	if _, err := h.enumerator().Display(ctx); err != nil {
		st.Close()
		h.store = nil
		return fmt.Errorf("initial display: %w", err)
	}
	return nil
}

func (h *Harness) enumerator() *enumerator.Enumerator {
	return enumerator.New(h.store, h.display, h.logger)
}

func (h *Harness) executeStep(ctx context.Context, i int, step FlowStep, result *Result) error {
	if step.Reopen != nil {
		return h.executeReopen(ctx, i, step, result)
	}
	return h.executeImport(ctx, i, step, result)
}

func (h *Harness) executeImport(ctx context.Context, i int, step FlowStep, result *Result) error {
	source := step.Source
	raw := []byte(step.Import)
	if step.File != "" {
		data, err := docsource.ReadFile(h.scenario.resolve(step.File))
		if err != nil {
			return err
		}
		raw = data
		if source == "" {
			source = step.File
		}
	}
	if source == "" {
		source = fmt.Sprintf("flow[%d]", i)
	}

	im := importer.New(h.store,
		importer.WithLogger(h.logger),
		importer.WithListener(h.enumerator()),
	)
	res, err := im.ImportDocument(ctx, source, raw)

	ev := TraceEvent{
		Seq:        h.clock.Next(),
		Step:       StepImport,
		Source:     source,
		OutputCase: outputCase(err),
	}
	if err == nil {
		ev.BatchID = res.Batch.ID
		ev.Records = res.Batch.Count
		ev.FirstID = res.Batch.FirstID
		ev.LastID = res.Batch.LastID
	}
	result.AddTrace(ev)

	h.checkExpect(i, step.Expect, ev, err, result)
	return nil
}

func (h *Harness) executeReopen(ctx context.Context, i int, step FlowStep, result *Result) error {
	if err := h.store.Close(); err != nil {
		return fmt.Errorf("close store: %w", err)
	}
	h.store = nil

	next := h.opts
	next.Version = step.Reopen.Version
	openErr := h.open(ctx, next)
	if openErr == nil {
		h.opts = next
	} else if err := h.open(ctx, h.opts); err != nil {
		// The previous version opened before, so this is a harness failure
		return fmt.Errorf("restore store after failed reopen: %w", err)
	}

	ev := TraceEvent{
		Seq:        h.clock.Next(),
		Step:       StepReopen,
		Version:    step.Reopen.Version,
		OutputCase: outputCase(openErr),
	}
	result.AddTrace(ev)

	h.checkExpect(i, step.Expect, ev, openErr, result)
	return nil
}

// checkExpect compares a step outcome with its expect clause.
// A step without an expect clause must succeed.
func (h *Harness) checkExpect(i int, expect *ExpectClause, ev TraceEvent, err error, result *Result) {
	want := CaseSuccess
	if expect != nil {
		want = expect.Case
	}

	if ev.OutputCase != want {
		msg := fmt.Sprintf("flow[%d]: expected case %q, got %q", i, want, ev.OutputCase)
		if err != nil {
			msg += ": " + err.Error()
		}
		result.AddError(msg)
		return
	}
	if expect == nil {
		return
	}
	if expect.Records != nil && ev.Records != *expect.Records {
		result.AddError(fmt.Sprintf("flow[%d]: expected %d records, got %d", i, *expect.Records, ev.Records))
	}
	if expect.Detail != "" && (err == nil || !strings.Contains(err.Error(), expect.Detail)) {
		result.AddError(fmt.Sprintf("flow[%d]: expected error containing %q, got %v", i, expect.Detail, err))
	}
}

// outputCase names the outcome of a step.
func outputCase(err error) string {
	if err == nil {
		return CaseSuccess
	}
	return string(importer.Kind(err))
}
