package manager

import "github.com/prometheus/client_golang/prometheus"

var (
	executionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "agentcore",
			Subsystem: "manager",
			Name:      "executions_total",
			Help:      "Executions by route and outcome",
		},
		[]string{"route", "outcome"},
	)

	modelLoadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "agentcore",
			Subsystem: "manager",
			Name:      "model_loads_total",
			Help:      "LoadModel calls by outcome",
		},
		[]string{"outcome"},
	)

	poolInflight = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "agentcore",
			Subsystem: "manager",
			Name:      "pool_inflight",
			Help:      "Work admitted per pool",
		},
		[]string{"pool"},
	)

	poolRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "agentcore",
			Subsystem: "manager",
			Name:      "pool_rejections_total",
			Help:      "Admissions that timed out waiting for a pool slot",
		},
		[]string{"pool"},
	)
)

func init() {
	prometheus.MustRegister(executionsTotal, modelLoadsTotal, poolInflight, poolRejections)
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
