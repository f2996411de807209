// Package instrument records Prometheus metrics about invocations served by
// an awslambda.Handler.
package instrument

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/a69/apig.go/event"
	"github.com/a69/apig.go/transport/awslambda"
)

type startKey struct{}

// Metrics counts invocations by event format and outcome, and observes
// their duration.
type Metrics struct {
	invocations *prometheus.CounterVec
	duration    *prometheus.HistogramVec
}

// New creates the metrics and registers them with reg.
func New(reg prometheus.Registerer, namespace string) (*Metrics, error) {
	m := &Metrics{
		invocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "apig",
			Name:      "invocations_total",
			Help:      "Number of invocations, by event format and response status.",
		}, []string{"format", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "apig",
			Name:      "invocation_duration_seconds",
			Help:      "Time spent serving an invocation, by event format.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"format"}),
	}
	for _, c := range []prometheus.Collector{m.invocations, m.duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// HandlerOptions installs the metrics on a handler.
func (m *Metrics) HandlerOptions() []awslambda.HandlerOption {
	return []awslambda.HandlerOption{
		awslambda.HandlerBefore(m.Before),
		awslambda.HandlerFinalizer(m.Finalize),
	}
}

// Before stamps the invocation start time into the context.
func (m *Metrics) Before(ctx context.Context, _ []byte) context.Context {
	return context.WithValue(ctx, startKey{}, time.Now())
}

// Finalize records the outcome of an invocation. Invocations that failed,
// or never produced a response, are counted with status "error"; events that
// could not be decoded have format "unknown".
func (m *Metrics) Finalize(ctx context.Context, _ []byte, err error) {
	format := "unknown"
	if kind, ok := ctx.Value(awslambda.ContextKeyEventKind).(event.Kind); ok {
		format = kind.String()
	}
	status := "error"
	if code, ok := ctx.Value(awslambda.ContextKeyStatusCode).(int); ok && err == nil {
		status = strconv.Itoa(code)
	}

	m.invocations.WithLabelValues(format, status).Inc()
	if start, ok := ctx.Value(startKey{}).(time.Time); ok {
		m.duration.WithLabelValues(format).Observe(time.Since(start).Seconds())
	}
}
