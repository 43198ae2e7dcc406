package engine

import "github.com/prometheus/client_golang/prometheus"

var (
	loadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "agentcore",
			Subsystem: "engine",
			Name:      "loads_total",
			Help:      "Engine loads by backend and outcome",
		},
		[]string{"backend", "outcome"},
	)

	loadDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "agentcore",
		Subsystem: "engine",
		Name:      "load_duration_seconds",
		Help:      "Duration of successful engine loads",
		Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
	})

	runDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "agentcore",
		Subsystem: "engine",
		Name:      "run_duration_seconds",
		Help:      "Duration of forward passes",
		Buckets:   prometheus.DefBuckets,
	})

	residentEngines = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "agentcore",
		Subsystem: "engine",
		Name:      "resident",
		Help:      "Engines currently resident (0 or 1)",
	})
)

func init() {
	prometheus.MustRegister(loadsTotal, loadDuration, runDuration, residentEngines)
}
