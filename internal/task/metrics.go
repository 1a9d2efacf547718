package task

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricsOnce sync.Once //nolint:gochecknoglobals

	executions *prometheus.CounterVec   //nolint:gochecknoglobals
	duration   *prometheus.HistogramVec //nolint:gochecknoglobals
)

func initMetrics() {
	metricsOnce.Do(func() {
		executions = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scheduled_task_executions_total",
				Help: "Number of scheduled task executions, differentiated by task and result.",
			},
			[]string{"task", "result"},
		)
		duration = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "scheduled_task_duration_seconds",
				Help:    "Scheduled task execution time.",
				Buckets: []float64{.1, .5, 1, 5, 15, 60, 300, 900},
			},
			[]string{"task"},
		)
	})
}
