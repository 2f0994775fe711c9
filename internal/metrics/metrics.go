// Package metrics exposes prometheus collectors for catalog API round trips.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "funimationlater"

// Recorder holds the session collectors. A nil *Recorder is valid and records nothing.
type Recorder struct {
	requests     *prometheus.CounterVec
	latency      *prometheus.HistogramVec
	retries      *prometheus.CounterVec
	decodeErrors prometheus.Counter
}

// New creates the collectors and registers them with reg (when non-nil).
func New(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "API round trips by method and HTTP status (\"error\" when no response).",
		}, []string{"method", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "API round-trip latency including body read and decode.",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}, []string{"method"}),
		retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retries_total",
			Help:      "Wire-level retries by triggering HTTP status.",
		}, []string{"status"}),
		decodeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decode_errors_total",
			Help:      "Responses whose markup could not be decoded.",
		}),
	}
	if reg != nil {
		reg.MustRegister(r.requests, r.latency, r.retries, r.decodeErrors)
	}
	return r
}

// ObserveRequest records one round trip. status 0 means no response was received.
func (r *Recorder) ObserveRequest(method string, status int, d time.Duration) {
	if r == nil {
		return
	}
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	r.requests.WithLabelValues(method, label).Inc()
	r.latency.WithLabelValues(method).Observe(d.Seconds())
}

// Retry records a wire-level retry caused by status.
func (r *Recorder) Retry(status int) {
	if r == nil {
		return
	}
	r.retries.WithLabelValues(strconv.Itoa(status)).Inc()
}

// DecodeError records a markup decode failure.
func (r *Recorder) DecodeError() {
	if r == nil {
		return
	}
	r.decodeErrors.Inc()
}

// Handler serves the metrics in g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
