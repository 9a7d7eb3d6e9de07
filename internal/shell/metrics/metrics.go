// Package metrics defines the Prometheus collectors stackd exposes on
// /metrics. The monitoring variant's collector scrapes this endpoint when
// stackd itself is added as a target, so the stack can observe its own
// operator.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Stacks counts stacks by status. Refreshed by the monitor each cycle.
	Stacks = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "stackd_stacks",
		Help: "Number of stacks by status.",
	}, []string{"status"})

	// Containers counts the containers of monitored stacks by state.
	Containers = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "stackd_containers",
		Help: "Number of containers of monitored stacks by state.",
	}, []string{"state"})

	// ContainerEvents counts recorded container lifecycle events by type.
	ContainerEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stackd_container_events_total",
		Help: "Container lifecycle events recorded, by type.",
	}, []string{"type"})

	// ProbeDuration observes readiness probe latency by probe kind.
	ProbeDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "stackd_probe_duration_seconds",
		Help:    "Readiness probe latency by probe kind.",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})

	// HTTPRequests counts API requests by method and response code.
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stackd_http_requests_total",
		Help: "HTTP requests handled by the API, by method and status code.",
	}, []string{"method", "code"})
)
