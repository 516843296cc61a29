// Package metrics exposes Prometheus metrics for requests and document
// resolution, fed from the event bus.
package metrics

import (
	"context"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/gqlpipe/gqlpipe/internal/eventbus"
	"github.com/gqlpipe/gqlpipe/internal/events"
)

// Collector holds the metric families and their bus subscriptions.
type Collector struct {
	requests    *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	resolutions *prometheus.CounterVec
	executions  *prometheus.CounterVec

	unsubscribe []func()
}

// Register creates the collector, registers its metrics with reg, and
// subscribes to the global event bus.
func Register(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gqlpipe_http_requests_total",
			Help: "HTTP requests handled, by status code.",
		}, []string{"status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gqlpipe_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"status"}),
		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gqlpipe_document_resolutions_total",
			Help: "Requests claimed per document provider.",
		}, []string{"provider"}),
		executions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gqlpipe_executions_total",
			Help: "Pipeline runs, by outcome.",
		}, []string{"outcome"}),
	}
	for _, m := range []prometheus.Collector{c.requests, c.duration, c.resolutions, c.executions} {
		if err := reg.Register(m); err != nil {
			return nil, err
		}
	}
	c.subscribe()
	return c, nil
}

func (c *Collector) subscribe() {
	c.unsubscribe = append(c.unsubscribe,
		eventbus.Subscribe(func(_ context.Context, e events.HTTPFinish) {
			status := strconv.Itoa(e.Status)
			c.requests.WithLabelValues(status).Inc()
			c.duration.WithLabelValues(status).Observe(e.Duration.Seconds())
		}),
		eventbus.Subscribe(func(_ context.Context, e events.DocumentResolved) {
			c.resolutions.WithLabelValues(e.Provider).Inc()
		}),
		eventbus.Subscribe(func(_ context.Context, e events.ExecuteFinish) {
			outcome := "ok"
			switch {
			case e.Failed:
				outcome = "failed"
			case e.ErrorCount > 0:
				outcome = "errors"
			}
			c.executions.WithLabelValues(outcome).Inc()
		}),
	)
}

// Close detaches the collector from the event bus.
func (c *Collector) Close() {
	for _, fn := range c.unsubscribe {
		fn()
	}
}
