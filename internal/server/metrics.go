package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the server's search instrumentation.
type Metrics struct {
	RunsStarted  prometheus.Counter
	RunsFinished *prometheus.CounterVec
	Evaluations  prometheus.Counter
	BestScore    prometheus.Gauge
}

// NewMetrics registers the search metrics with the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RunsStarted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "ascent",
			Subsystem: "search",
			Name:      "runs_started_total",
			Help:      "Number of search runs started.",
		}),
		RunsFinished: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ascent",
			Subsystem: "search",
			Name:      "runs_finished_total",
			Help:      "Number of search runs finished, by terminal status.",
		}, []string{"status"}),
		Evaluations: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "ascent",
			Subsystem: "search",
			Name:      "evaluations_total",
			Help:      "Number of candidate evaluations performed.",
		}),
		BestScore: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "ascent",
			Subsystem: "search",
			Name:      "best_score",
			Help:      "Best score observed by the most recently reporting run.",
		}),
	}
}
