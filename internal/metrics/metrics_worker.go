package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Application files are reported under the package label "app".
const AppPackage = "app"

var (
	CompileFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scssc_compile_failed_total",
			Help: "Number of roots that failed to compile",
		},
		[]string{"package"},
	)

	CompileCount = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "scssc_compile_total",
			Help: "Total number of roots handed to the Sass engine",
		},
	)

	CompileDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scssc_compile_duration_seconds",
			Help:    "Root compile duration in seconds",
			Buckets: []float64{0.01, 0.02, 0.05, 0.1, 0.2, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"package"},
	)

	UntrackedImports = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "scssc_untracked_imports_total",
			Help: "Files loaded by the engine that are not part of the build",
		},
	)

	LastBuildStart = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "scssc_last_build_start_timestamp",
			Help: "Unix timestamp of when the last build started",
		},
	)

	LastBuildEnd = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "scssc_last_build_end_timestamp",
			Help: "Unix timestamp of when the last build ended",
		},
	)
)

// PackageLabel maps a package name to its metric label.
func PackageLabel(pkg string) string {
	if pkg == "" {
		return AppPackage
	}
	return pkg
}
