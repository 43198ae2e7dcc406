package gateway

import "github.com/prometheus/client_golang/prometheus"

var (
	requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "agentcore",
			Subsystem: "gateway",
			Name:      "requests_total",
			Help:      "Remote chat requests by HTTP status (error when no response)",
		},
		[]string{"status"},
	)

	requestDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "agentcore",
		Subsystem: "gateway",
		Name:      "request_duration_seconds",
		Help:      "Latency of remote chat requests that produced a response",
		Buckets:   prometheus.DefBuckets,
	})
)

func init() {
	prometheus.MustRegister(requestsTotal, requestDuration)
}
