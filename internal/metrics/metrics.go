// Package metrics records verification outcomes as Prometheus metrics.
//
// Each CLI invocation owns its own registry. Metrics are persisted through the
// node_exporter textfile format so a collector can scrape them between runs.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"

	"logcontract/internal/logging"
	"logcontract/internal/verify"
)

// DefaultNamespace prefixes every metric name.
const DefaultNamespace = "logcontract"

// RunMetrics holds the collectors updated by Observe.
type RunMetrics struct {
	registry *prometheus.Registry

	// RunsTotal counts runs by status.
	// Labels: status (pass, fail, inconclusive)
	RunsTotal *prometheus.CounterVec

	// MissingHard is the missing hard evidence count of the last run.
	MissingHard prometheus.Gauge

	// OrderViolations is the order violation count of the last run.
	OrderViolations prometheus.Gauge

	// ImbalancedTokens is the imbalanced token count of the last run.
	ImbalancedTokens prometheus.Gauge

	// LogLines is the number of log lines read by the last run.
	LogLines prometheus.Gauge

	// DurationSeconds observes run durations.
	DurationSeconds prometheus.Histogram

	// ReportWriteFailures counts report writes that failed.
	ReportWriteFailures prometheus.Counter
}

// New builds a RunMetrics bound to a fresh registry.
func New(namespace string) *RunMetrics {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	m := &RunMetrics{
		registry: prometheus.NewRegistry(),
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Verification runs by status",
		}, []string{"status"}),
		MissingHard: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "missing_hard_evidence",
			Help:      "Missing hard evidence in the last run",
		}),
		OrderViolations: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "order_violations",
			Help:      "Order violations in the last run",
		}),
		ImbalancedTokens: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "imbalanced_tokens",
			Help:      "Imbalanced acquire/release tokens in the last run",
		}),
		LogLines: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "log_lines",
			Help:      "Log lines read by the last run",
		}),
		DurationSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Verification run duration",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}),
		ReportWriteFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "report_write_failures_total",
			Help:      "Report writes that failed",
		}),
	}
	m.registry.MustRegister(
		m.RunsTotal,
		m.MissingHard,
		m.OrderViolations,
		m.ImbalancedTokens,
		m.LogLines,
		m.DurationSeconds,
		m.ReportWriteFailures,
	)
	return m
}

// Registry exposes the underlying registry.
func (m *RunMetrics) Registry() *prometheus.Registry {
	return m.registry
}

// Observe records one result. A nil result is ignored.
func (m *RunMetrics) Observe(r *verify.Result) {
	if r == nil {
		return
	}
	m.RunsTotal.WithLabelValues(string(r.Status)).Inc()
	m.MissingHard.Set(float64(r.MissingHardCount()))
	m.OrderViolations.Set(float64(r.ViolationCount()))
	m.ImbalancedTokens.Set(float64(len(r.ImbalancedTokens())))
	m.LogLines.Set(float64(r.LogLineCount))
	m.DurationSeconds.Observe(r.Duration.Seconds())
}

// RecordWriteFailure counts a failed report write.
func (m *RunMetrics) RecordWriteFailure() {
	m.ReportWriteFailures.Inc()
}

// WriteTextfile writes the registry in the textfile collector format.
func (m *RunMetrics) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	logging.EvaluateDebug("metrics written to %s", path)
	return nil
}
