package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Run metrics
	LayoutRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "layout_runs_total",
			Help: "Total number of layout runs",
		},
		[]string{"status"}, // status: success, failed
	)

	LayoutRunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "layout_run_duration_seconds",
			Help:    "Duration of complete layout runs in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		},
	)

	LayoutLastRunTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "layout_last_run_timestamp_seconds",
			Help: "Unix timestamp of the last successful layout run",
		},
	)

	// Level metrics
	LayoutLevels = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "layout_levels",
			Help: "Number of levels in the last built layout hierarchy",
		},
	)

	LayoutLevelNodes = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "layout_level_nodes",
			Help: "Number of nodes per hierarchy level (0 = finest)",
		},
		[]string{"level"},
	)

	LayoutLevelIterations = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "layout_level_iterations",
			Help:    "Iterations spent relaxing one level",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		},
		[]string{"state"}, // state: converged, exhausted
	)

	LayoutLevelDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "layout_level_duration_seconds",
			Help:    "Duration of relaxing one level in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	LayoutMaxDisplacement = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "layout_max_displacement",
			Help: "Largest node displacement of the latest iteration",
		},
	)

	LayoutNonFiniteForces = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "layout_nonfinite_forces_total",
			Help: "Node steps skipped because the computed force was NaN or infinite",
		},
	)

	// Force pass metrics
	ForcePassDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "layout_force_pass_duration_seconds",
			Help:    "Duration of one tree build plus force computation in seconds",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
	)

	// Persistence metrics
	PositionsLoaded = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "layout_positions_loaded",
			Help: "Number of nodes placed from stored positions in the last run",
		},
	)

	PositionStoreErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "layout_position_store_errors_total",
			Help: "Position store failures",
		},
		[]string{"op"}, // op: load, save, record_run
	)

	// Snapshot cache metrics
	SnapshotCacheHits = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "layout_snapshot_cache_hits",
			Help: "Cumulative snapshot cache hits",
		},
	)

	SnapshotCacheMisses = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "layout_snapshot_cache_misses",
			Help: "Cumulative snapshot cache misses",
		},
	)

	SnapshotCacheBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "layout_snapshot_cache_bytes",
			Help: "Approximate bytes held by the snapshot cache",
		},
	)

	// Circuit breaker metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTrips = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_trips_total",
			Help: "Number of times a circuit breaker opened",
		},
		[]string{"name"},
	)

	MetricsCollectionErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "metrics_collection_errors_total",
			Help: "Total number of errors during metrics collection",
		},
		[]string{"source"},
	)
)
