// Package pmometrics exposes the service counters to Prometheus.
package pmometrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "pmovolume"

// Recorder holds the collectors of one service. Its methods do nothing on a
// nil *Recorder so callers never have to check.
type Recorder struct {
	registry *prometheus.Registry

	propertySets    *prometheus.CounterVec
	notifications   *prometheus.CounterVec
	controlRequests *prometheus.CounterVec
	observers       prometheus.Gauge
}

func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),

		propertySets: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "property_sets_total",
				Help:      "Property writes by property and outcome.",
			},
			[]string{"property", "outcome"},
		),

		notifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "notifications_total",
				Help:      "StepsUpdated deliveries by outcome.",
			},
			[]string{"outcome"},
		),

		controlRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "control",
				Name:      "requests_total",
				Help:      "SOAP control requests by action and status code.",
			},
			[]string{"action", "status"},
		),

		observers: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "observers",
				Help:      "Number of registered observers.",
			},
		),
	}

	r.registry.MustRegister(
		r.propertySets,
		r.notifications,
		r.controlRequests,
		r.observers,
	)

	return r
}

func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

func (r *Recorder) PropertySet(property, outcome string) {
	if r == nil {
		return
	}
	r.propertySets.WithLabelValues(property, outcome).Inc()
}

func (r *Recorder) Notified(delivered, pruned int) {
	if r == nil {
		return
	}
	r.notifications.WithLabelValues("delivered").Add(float64(delivered))
	r.notifications.WithLabelValues("pruned").Add(float64(pruned))
}

func (r *Recorder) ObserverCount(n int) {
	if r == nil {
		return
	}
	r.observers.Set(float64(n))
}

// ControlRequest counts a control request. status is the UPnP error code,
// 0 for success.
func (r *Recorder) ControlRequest(action string, status int) {
	if r == nil {
		return
	}
	r.controlRequests.WithLabelValues(action, strconv.Itoa(status)).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
