package search

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
)

var (
	metricsOnce sync.Once //nolint:gochecknoglobals

	queries  *prometheus.CounterVec   //nolint:gochecknoglobals
	duration *prometheus.HistogramVec //nolint:gochecknoglobals
)

func initMetrics() {
	metricsOnce.Do(func() {
		queries = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "search_queries_total",
				Help: "Number of search queries, differentiated by engine and result.",
			},
			[]string{"engine", "result"},
		)
		duration = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "search_query_duration_seconds",
				Help:    "Search query latency by engine.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"engine"},
		)
	})
}

// Instrumented wraps an engine with query metrics and logging.
type Instrumented struct {
	Engine
}

// Instrument wraps e.
func Instrument(e Engine) *Instrumented {
	initMetrics()

	return &Instrumented{Engine: e}
}

// Search implements Engine.
func (i *Instrumented) Search(ctx context.Context, q Query) (*Results, error) {
	start := time.Now()
	res, err := i.Engine.Search(ctx, q)

	duration.WithLabelValues(i.Name()).Observe(time.Since(start).Seconds())

	result := "ok"
	if err != nil {
		result = "error"

		log.Error().Err(err).Str("engine", i.Name()).Msg("search failed")
	}

	queries.WithLabelValues(i.Name(), result).Inc()

	return res, err
}

// SortedLocales returns the keys of a locale map in order.
func SortedLocales(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for l := range m {
		out = append(out, l)
	}

	sort.Strings(out)

	return out
}
