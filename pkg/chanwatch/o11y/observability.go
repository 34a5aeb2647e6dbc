package o11y

import (
	"context"
)

// MetricsProvider abstracts metrics collection (can be implemented with
// OpenTelemetry, Prometheus, etc.)
type MetricsProvider interface {
	Counter(name string) Counter
	Gauge(name string) Gauge
}

// Counter represents a monotonically increasing metric
type Counter interface {
	Add(ctx context.Context, value int64, labels ...Label)
}

// Gauge represents a value that can go up and down
type Gauge interface {
	Set(ctx context.Context, value float64, labels ...Label)
}

// Label represents a key-value pair for metrics
type Label struct {
	Key   string
	Value string
}
