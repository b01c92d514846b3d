package relationship

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	templateLoads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relationship_template_loads_total",
		Help: "Template loads by outcome (ok, error, stale)",
	}, []string{"outcome"})

	templateSaves = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relationship_template_saves_total",
		Help: "Template saves by outcome (ok, error)",
	}, []string{"outcome"})

	templateLoadDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "relationship_template_load_duration_seconds",
		Help:    "Time from load request to response",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10},
	})
)
