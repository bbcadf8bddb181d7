package instrumentation

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// Attachment result values.
const (
	ResultProcessed = "processed"
	ResultSkipped   = "skipped"
	ResultFailed    = "failed"
)

// Metrics provides methods for recording pipeline observability metrics.
type Metrics struct {
	cyclesTotal      metric.Int64Counter
	cycleDuration    metric.Float64Histogram
	emailsTotal      metric.Int64Counter
	attachmentsTotal metric.Int64Counter
	inferenceTotal   metric.Int64Counter
}

// NewMetrics creates a new Metrics instance with all metrics initialized.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}

	var err error

	m.cyclesTotal, err = meter.Int64Counter(
		"processing_cycles_total",
		metric.WithDescription("Total number of polling cycles run"),
		metric.WithUnit("{cycle}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create processing_cycles_total counter: %w", err)
	}

	m.cycleDuration, err = meter.Float64Histogram(
		"processing_cycle_duration_seconds",
		metric.WithDescription("Polling cycle duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.1, 0.5, 1.0, 5.0, 15.0, 60.0, 300.0, 900.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create processing_cycle_duration_seconds histogram: %w", err)
	}

	m.emailsTotal, err = meter.Int64Counter(
		"emails_examined_total",
		metric.WithDescription("Total number of candidate emails examined"),
		metric.WithUnit("{email}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create emails_examined_total counter: %w", err)
	}

	m.attachmentsTotal, err = meter.Int64Counter(
		"attachments_total",
		metric.WithDescription("Total number of attachments handled, by result"),
		metric.WithUnit("{attachment}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create attachments_total counter: %w", err)
	}

	m.inferenceTotal, err = meter.Int64Counter(
		"inference_calls_total",
		metric.WithDescription("Total number of inference calls, by status"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create inference_calls_total counter: %w", err)
	}

	return m, nil
}

// NewNopMetrics returns a recorder backed by the no-op meter, for one-shot
// runs and tests.
func NewNopMetrics() *Metrics {
	m, _ := NewMetrics(noop.NewMeterProvider().Meter(""))
	return m
}

// RecordCycle records a completed polling cycle and its duration.
func (m *Metrics) RecordCycle(ctx context.Context, duration time.Duration) {
	m.cyclesTotal.Add(ctx, 1)
	m.cycleDuration.Record(ctx, duration.Seconds())
}

// RecordEmail records one examined candidate email.
func (m *Metrics) RecordEmail(ctx context.Context) {
	m.emailsTotal.Add(ctx, 1)
}

// RecordAttachment records one handled attachment with its result.
func (m *Metrics) RecordAttachment(ctx context.Context, result string) {
	m.attachmentsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("result", result),
	))
}

// RecordInference records one inference call with its status.
func (m *Metrics) RecordInference(ctx context.Context, status string) {
	m.inferenceTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("status", status),
	))
}
