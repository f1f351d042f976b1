// Package metrics provides a sink decorator that records Prometheus metrics
// for every report passing through to the wrapped sink.
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/strongdm/artemis-observe/pkg/artemis"
)

// MetricsSinkOption configures the metrics sink.
type MetricsSinkOption func(*metricsSinkConfig)

type metricsSinkConfig struct {
	namespace string
}

// WithNamespace prefixes every metric name (default "artemis").
func WithNamespace(ns string) MetricsSinkOption {
	return func(c *metricsSinkConfig) {
		c.namespace = ns
	}
}

type metricsSink struct {
	next     artemis.Sink
	written  *prometheus.CounterVec
	failed   *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetricsSink wraps next and registers its collectors with reg:
//
//	<ns>_reports_written_total{kind,level}
//	<ns>_report_write_failures_total{kind}
//	<ns>_report_write_duration_seconds{kind}
func NewMetricsSink(next artemis.Sink, reg prometheus.Registerer, opts ...MetricsSinkOption) (artemis.Sink, error) {
	cfg := &metricsSinkConfig{namespace: "artemis"}
	for _, opt := range opts {
		opt(cfg)
	}

	s := &metricsSink{
		next: next,
		written: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.namespace,
				Name:      "reports_written_total",
				Help:      "Total number of reports written",
			},
			[]string{"kind", "level"},
		),
		failed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.namespace,
				Name:      "report_write_failures_total",
				Help:      "Total number of reports the wrapped sink failed to write",
			},
			[]string{"kind"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.namespace,
				Name:      "report_write_duration_seconds",
				Help:      "Time spent writing a report",
				Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
			},
			[]string{"kind"},
		),
	}

	for _, c := range []prometheus.Collector{s.written, s.failed, s.duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Write forwards report and records the outcome.
func (s *metricsSink) Write(ctx context.Context, report artemis.Report) error {
	kind := string(report.Kind)
	start := time.Now()
	err := s.next.Write(ctx, report)
	s.duration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	if err != nil {
		s.failed.WithLabelValues(kind).Inc()
		return err
	}
	s.written.WithLabelValues(kind, report.Level).Inc()
	return nil
}

func (s *metricsSink) Flush(ctx context.Context) error {
	return s.next.Flush(ctx)
}

func (s *metricsSink) Close() error {
	return s.next.Close()
}
