// Package metrics exposes Prometheus metrics for trip operations and
// in-flight activity.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome label values.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Collector implements trip.Recorder and activity.Observer.
type Collector struct {
	operations *prometheus.CounterVec
	inFlight   *prometheus.GaugeVec
}

// NewCollector creates a Collector and registers its metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trips_operations_total",
			Help: "Remote trip operations by outcome.",
		}, []string{"operation", "outcome"}),
		inFlight: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "trips_in_flight",
			Help: "Operations currently holding an activity tracker.",
		}, []string{"tracker"}),
	}

	reg.MustRegister(c.operations, c.inFlight)

	return c
}

// RecordOperation counts one completed operation.
func (c *Collector) RecordOperation(op string, ok bool) {
	outcome := OutcomeSuccess
	if !ok {
		outcome = OutcomeFailure
	}
	c.operations.WithLabelValues(op, outcome).Inc()
}

// ObserveInFlight sets the in-flight gauge for a tracker.
func (c *Collector) ObserveInFlight(tracker string, count int) {
	c.inFlight.WithLabelValues(tracker).Set(float64(count))
}

// Handler returns the scrape handler for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
