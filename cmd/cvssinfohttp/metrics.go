package main

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpLabels   = []string{"handler", "code"}
	requestTimer = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "cvssinfo",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "Request duration for the noted handler.",
	}, httpLabels)
	requestCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cvssinfo",
		Subsystem: "http",
		Name:      "request_total",
		Help:      "Request count for the noted handler.",
	}, httpLabels)
)

// statusRecorder remembers the status code a handler wrote. Handlers that
// never call WriteHeader get the implicit 200.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// timed instruments the named handler with request counts and durations.
func timed(name string, next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sr := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		timer := prometheus.NewTimer(prometheus.ObserverFunc(func(v float64) {
			requestTimer.WithLabelValues(name, strconv.Itoa(sr.status)).Observe(v)
		}))
		next(&sr, r)
		requestCounter.WithLabelValues(name, strconv.Itoa(sr.status)).Inc()
		timer.ObserveDuration()
	})
}
