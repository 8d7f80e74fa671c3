// Package metrics keeps per-run Prometheus collectors and exports them in
// the node_exporter textfile format.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/starford/notegen/internal/models"
)

const namespace = "notegen"

// Outcome labels of the files counter.
const (
	OutcomeCompleted = "completed"
	OutcomeSkipped   = "skipped"
	OutcomeFailed    = "failed"
)

// Run holds the collectors of one process. All methods are safe for
// concurrent use.
type Run struct {
	reg *prometheus.Registry

	files           *prometheus.CounterVec
	failuresByStage *prometheus.CounterVec
	fileDuration    prometheus.Histogram
	summaryDuration prometheus.Histogram
	tokens          prometheus.Counter
	batches         prometheus.Counter
	droppedEvents   prometheus.Gauge
}

// New registers the run collectors on a private registry.
func New() *Run {
	r := &Run{
		reg: prometheus.NewRegistry(),
		files: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_total",
			Help:      "Files that reached a terminal outcome.",
		}, []string{"outcome"}),
		failuresByStage: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "failures_total",
			Help:      "Failed files by the pipeline stage that failed.",
		}, []string{"stage", "kind"}),
		fileDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "file_duration_seconds",
			Help:      "Wall-clock processing time per file.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
		summaryDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "summary_duration_seconds",
			Help:      "Summarization time per file.",
			Buckets:   prometheus.ExponentialBuckets(0.25, 2, 10),
		}),
		tokens: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "summary_tokens_total",
			Help:      "Tokens reported by the summarizer.",
		}),
		batches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batches_total",
			Help:      "Batches run, including watch-mode mini-batches.",
		}),
		droppedEvents: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "progress_events_dropped",
			Help:      "Progress events not delivered to a full subscriber.",
		}),
	}
	r.reg.MustRegister(r.files, r.failuresByStage, r.fileDuration, r.summaryDuration,
		r.tokens, r.batches, r.droppedEvents)
	return r
}

// Registry exposes the underlying registry.
func (r *Run) Registry() *prometheus.Registry { return r.reg }

// ObserveItem records a terminal queue item. kind is the error taxonomy
// name for failed items.
func (r *Run) ObserveItem(item *models.QueueItem, kind string) {
	switch {
	case item.Status == models.StatusFailed:
		r.files.WithLabelValues(OutcomeFailed).Inc()
		r.failuresByStage.WithLabelValues(item.Stage.String(), kind).Inc()
	case item.Skipped:
		r.files.WithLabelValues(OutcomeSkipped).Inc()
	default:
		r.files.WithLabelValues(OutcomeCompleted).Inc()
	}
	if d := item.Duration(); d > 0 {
		r.fileDuration.Observe(d.Seconds())
	}
	if item.SummaryDuration > 0 {
		r.summaryDuration.Observe(item.SummaryDuration.Seconds())
	}
	if item.Tokens > 0 {
		r.tokens.Add(float64(item.Tokens))
	}
}

// BatchDone counts a finished batch.
func (r *Run) BatchDone() { r.batches.Inc() }

// SetDroppedEvents records the broker's dropped counter.
func (r *Run) SetDroppedEvents(n int) { r.droppedEvents.Set(float64(n)) }

// WriteTextfile writes the registry to path atomically. An empty path is a
// no-op.
func (r *Run) WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("metrics: mkdir: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, r.reg); err != nil {
		return fmt.Errorf("metrics: write textfile: %w", err)
	}
	return nil
}
