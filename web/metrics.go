package web

import "github.com/prometheus/client_golang/prometheus"

var (
	operationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geoindex_operations_total",
			Help: "Number of index operations by kind.",
		},
		[]string{"operation"},
	)

	sessionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "geoindex_sessions_active",
			Help: "Number of live sessions.",
		},
	)
)

func init() {
	prometheus.MustRegister(operationsTotal, sessionsActive)
}
