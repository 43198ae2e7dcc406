package source

import "github.com/prometheus/client_golang/prometheus"

var (
	downloadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "agentcore",
			Subsystem: "source",
			Name:      "downloads_total",
			Help:      "Remote artifact downloads by outcome",
		},
		[]string{"outcome"},
	)

	downloadBytes = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "agentcore",
		Subsystem: "source",
		Name:      "download_bytes_total",
		Help:      "Bytes written to the store by completed downloads",
	})

	downloadDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "agentcore",
		Subsystem: "source",
		Name:      "download_duration_seconds",
		Help:      "Duration of completed downloads",
		Buckets:   prometheus.ExponentialBuckets(0.1, 4, 8),
	})

	cacheHits = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "agentcore",
		Subsystem: "source",
		Name:      "cache_hits_total",
		Help:      "Remote references served from the local store",
	})
)

func init() {
	prometheus.MustRegister(downloadsTotal, downloadBytes, downloadDuration, cacheHits)
}
