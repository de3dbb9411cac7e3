package sqlite

import (
	"errors"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricLabels  = []string{"query", "success"}
	databaseTimer = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "cvssinfo",
		Subsystem: "sqlite",
		Name:      "query_duration_seconds",
		Help:      "Database query duration for noted query, including data read time.",
	}, metricLabels)
	databaseCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cvssinfo",
		Subsystem: "sqlite",
		Name:      "query_total",
		Help:      "Database query count for noted query.",
	}, metricLabels)
)

// timeQuery instruments one named query. The returned func must be called
// once the query is done, with err pointing at the enclosing method's error
// return.
func timeQuery(name string, err *error) func() {
	timer := prometheus.NewTimer(prometheus.ObserverFunc(func(v float64) {
		databaseTimer.WithLabelValues(name, strconv.FormatBool(errors.Is(*err, nil))).Observe(v)
	}))
	return func() {
		databaseCounter.WithLabelValues(name, strconv.FormatBool(errors.Is(*err, nil))).Inc()
		timer.ObserveDuration()
	}
}
