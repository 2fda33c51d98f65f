package status

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	probesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fusiondash_probes_total",
		Help: "Liveness probe outcomes by result.",
	}, []string{"result"})

	pollCycles = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fusiondash_poll_cycles_total",
		Help: "Completed status poll sweeps.",
	})

	pollDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "fusiondash_poll_sweep_seconds",
		Help:    "Wall time of a full poll sweep.",
		Buckets: prometheus.DefBuckets,
	})
)
