package mutation

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeCommitted  = "committed"
	outcomeRolledBack = "rolled_back"
)

var (
	mutationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "alumni_feed_mutations_total",
		Help: "Optimistic mutations by name and outcome",
	}, []string{"mutation", "outcome"})

	mutationCallDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "alumni_feed_mutation_call_duration_seconds",
		Help:    "Time spent waiting for the backend call of a mutation",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"mutation"})
)

func countOutcome(name string, outcome string) {
	mutationsTotal.WithLabelValues(name, outcome).Inc()
}

func observeDuration(name string, elapsed time.Duration) {
	mutationCallDuration.WithLabelValues(name).Observe(elapsed.Seconds())
}
