package store

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// metrics holds the store's OpenTelemetry instruments. Instruments that
// fail to register stay nil and are skipped.
type metrics struct {
	thoughtsAdded   metric.Int64Counter
	persistTotal    metric.Int64Counter
	errorsTotal     metric.Int64Counter
	persistDuration metric.Float64Histogram
}

func newMetrics(meter metric.Meter, logger *zap.Logger) *metrics {
	m := &metrics{}
	var err error

	m.thoughtsAdded, err = meter.Int64Counter(
		"thoughtd.store.thoughts_added_total",
		metric.WithDescription("Total number of thoughts added"),
		metric.WithUnit("{thought}"),
	)
	if err != nil {
		logger.Warn("failed to create thoughts added counter", zap.Error(err))
	}

	m.persistTotal, err = meter.Int64Counter(
		"thoughtd.store.persist_total",
		metric.WithDescription("Total number of session and export file writes"),
		metric.WithUnit("{write}"),
	)
	if err != nil {
		logger.Warn("failed to create persist counter", zap.Error(err))
	}

	m.errorsTotal, err = meter.Int64Counter(
		"thoughtd.store.errors_total",
		metric.WithDescription("Total number of failed store operations"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		logger.Warn("failed to create error counter", zap.Error(err))
	}

	m.persistDuration, err = meter.Float64Histogram(
		"thoughtd.store.persist_duration_seconds",
		metric.WithDescription("Duration of session file writes"),
		metric.WithUnit("s"),
	)
	if err != nil {
		logger.Warn("failed to create persist duration histogram", zap.Error(err))
	}

	return m
}

func (m *metrics) recordAdd(ctx context.Context, project string) {
	if m.thoughtsAdded != nil {
		m.thoughtsAdded.Add(ctx, 1, metric.WithAttributes(attribute.String("project", project)))
	}
}

func (m *metrics) recordPersist(ctx context.Context, op string, d time.Duration) {
	attrs := metric.WithAttributes(attribute.String("op", op))
	if m.persistTotal != nil {
		m.persistTotal.Add(ctx, 1, attrs)
	}
	if m.persistDuration != nil {
		m.persistDuration.Record(ctx, d.Seconds(), attrs)
	}
}

func (m *metrics) recordError(ctx context.Context, op string) {
	if m.errorsTotal != nil {
		m.errorsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("op", op)))
	}
}
