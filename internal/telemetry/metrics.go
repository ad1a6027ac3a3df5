// Package telemetry exposes Prometheus metrics for catalogue imports.
package telemetry

import (
	"sort"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains Prometheus collectors for the importer.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	importBatches  prometheus.Counter
	importRecords  prometheus.Counter
	importFailures *prometheus.CounterVec
	importDuration prometheus.Histogram
}

// NewMetrics creates the import collectors and registers them with reg.
// Each store handle should use its own registry in tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		importBatches: factory.NewCounter(prometheus.CounterOpts{
			Name: "crate_import_batches_total",
			Help: "Total number of committed import batches",
		}),
		importRecords: factory.NewCounter(prometheus.CounterOpts{
			Name: "crate_import_records_total",
			Help: "Total number of records committed by imports",
		}),
		importFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "crate_import_failures_total",
			Help: "Total number of failed imports by error kind",
		}, []string{"kind"}),
		importDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "crate_import_duration_seconds",
			Help:    "Time from parse start to commit or failure",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// ObserveImport records a committed batch.
func (m *Metrics) ObserveImport(records int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.importBatches.Inc()
	m.importRecords.Add(float64(records))
	m.importDuration.Observe(elapsed.Seconds())
}

// ObserveFailure records a failed import of the given error kind.
func (m *Metrics) ObserveFailure(kind string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.importFailures.WithLabelValues(kind).Inc()
	m.importDuration.Observe(elapsed.Seconds())
}

// Sample is one flattened metric value.
type Sample struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// Snapshot flattens the crate_* metrics gathered from g into name/value
// samples sorted by name. Labelled series are rendered as name{k="v"};
// histograms contribute their sample count.
func Snapshot(g prometheus.Gatherer) ([]Sample, error) {
	families, err := g.Gather()
	if err != nil {
		return nil, err
	}

	var samples []Sample
	for _, mf := range families {
		if !strings.HasPrefix(mf.GetName(), "crate_") {
			continue
		}
		for _, m := range mf.GetMetric() {
			name := mf.GetName()
			if labels := m.GetLabel(); len(labels) > 0 {
				parts := make([]string, len(labels))
				for i, l := range labels {
					parts[i] = l.GetName() + `="` + l.GetValue() + `"`
				}
				name += "{" + strings.Join(parts, ",") + "}"
			}

			switch {
			case m.GetCounter() != nil:
				samples = append(samples, Sample{Name: name, Value: m.GetCounter().GetValue()})
			case m.GetHistogram() != nil:
				samples = append(samples, Sample{Name: name + "_count", Value: float64(m.GetHistogram().GetSampleCount())})
			case m.GetGauge() != nil:
				samples = append(samples, Sample{Name: name, Value: m.GetGauge().GetValue()})
			}
		}
	}

	sort.Slice(samples, func(i, j int) bool { return samples[i].Name < samples[j].Name })
	return samples, nil
}
