// Package metrics defines the Prometheus collectors exported on the admin metrics route.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal counts requests by handler kind and response status.
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "apphost_requests_total",
		Help: "Total number of requests by handler kind and status code",
	}, []string{"kind", "status"})

	// RequestDuration tracks end-to-end request latency by handler kind.
	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "apphost_request_duration_seconds",
		Help:    "Request latency by handler kind",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{"kind"})

	// PendingLatency tracks how long script requests waited for an instance slot.
	PendingLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "apphost_pending_latency_seconds",
		Help:    "Time a request waited in the pending queue for an instance slot",
		Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.2, 0.5, 1, 2, 5, 10},
	})

	// Instances reports the instance count by readiness.
	Instances = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "apphost_instances",
		Help: "Number of application instances by state",
	}, []string{"state"})

	// PendingRequests reports requests waiting for a slot.
	PendingRequests = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "apphost_pending_requests",
		Help: "Requests waiting for a free instance slot",
	})

	// Utilization reports in-flight requests over ready capacity.
	Utilization = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "apphost_utilization_ratio",
		Help: "In-flight requests divided by ready instance capacity",
	})

	// ScaleDecisionsTotal counts autoscaler decisions that changed the target.
	ScaleDecisionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "apphost_scale_decisions_total",
		Help: "Autoscaler decisions by direction and reason",
	}, []string{"direction", "reason"})

	// DescriptorReloadsTotal counts descriptor reload attempts by result.
	DescriptorReloadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "apphost_descriptor_reloads_total",
		Help: "Descriptor reload attempts by result",
	}, []string{"result"})
)

// ObserveRequest records one finished request.
func ObserveRequest(kind string, status int, d time.Duration) {
	RequestsTotal.WithLabelValues(kind, strconv.Itoa(status)).Inc()
	RequestDuration.WithLabelValues(kind).Observe(d.Seconds())
}

// SetPool publishes a pool snapshot.
func SetPool(ready, starting, pending int, utilization float64) {
	Instances.WithLabelValues("ready").Set(float64(ready))
	Instances.WithLabelValues("starting").Set(float64(starting))
	PendingRequests.Set(float64(pending))
	Utilization.Set(utilization)
}

// RecordScale records a target change.
func RecordScale(from, to int, reason string) {
	direction := "up"
	if to < from {
		direction = "down"
	}
	ScaleDecisionsTotal.WithLabelValues(direction, reason).Inc()
}

// RecordReload records a descriptor reload attempt.
func RecordReload(err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	DescriptorReloadsTotal.WithLabelValues(result).Inc()
}
