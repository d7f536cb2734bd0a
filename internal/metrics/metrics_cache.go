package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scssc_cache_hits_total",
			Help: "Roots served from the result cache, by tier",
		},
		[]string{"tier"},
	)

	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "scssc_cache_misses_total",
			Help: "Roots not found in the result cache",
		},
	)

	CacheBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "scssc_cache_memory_bytes",
			Help: "Bytes of compile results held in memory",
		},
	)
)
