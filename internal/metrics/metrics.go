package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Quote metrics
	QuoteAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leverage_engine_quote_attempts_total",
			Help: "Swap quote attempts per fallback tier",
		},
		[]string{"tier", "status"},
	)

	AggregatorDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "leverage_engine_aggregator_duration_seconds",
			Help:    "Swap aggregator round-trip duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	// Build metrics
	BuildRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leverage_engine_build_requests_total",
			Help: "Total number of transaction plan builds",
		},
		[]string{"operation", "mode", "status"},
	)

	BuildDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "leverage_engine_build_duration_seconds",
			Help:    "Transaction plan build duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	TransactionSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "leverage_engine_transaction_size_bytes",
			Help:    "Serialized size of assembled transactions",
			Buckets: []float64{400, 600, 800, 1000, 1100, 1200, 1232, 1400, 1600},
		},
		[]string{"label"},
	)

	TransactionTooLarge = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leverage_engine_transaction_too_large_total",
			Help: "Assemblies rejected for exceeding the size ceiling",
		},
		[]string{"label"},
	)

	InitializationWarnings = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leverage_engine_initialization_warnings_total",
			Help: "Operate legs that returned more than one instruction after safe-amount rounding",
		},
		[]string{"operation"},
	)

	RoundingDust = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "leverage_engine_rounding_dust",
			Help:    "UI-scale dust produced by safe-amount rounding",
			Buckets: []float64{0, 0.01, 0.1, 0.5, 1, 2, 5},
		},
		[]string{"direction"},
	)

	// Simulation metrics
	SimulationRequests = promauto.NewCounter(prometheus.CounterOpts{
		Name: "leverage_engine_simulation_requests_total",
		Help: "Total number of transaction simulations",
	})

	SimulationFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leverage_engine_simulation_failures_total",
			Help: "Total number of failed transaction simulations",
		},
		[]string{"reason"},
	)

	ComputeUnits = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "leverage_engine_compute_units",
		Help:    "Compute units consumed by simulated transactions",
		Buckets: []float64{50000, 100000, 200000, 400000, 800000, 1400000},
	})

	// Bundle metrics
	BundleSubmissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leverage_engine_bundle_submissions_total",
			Help: "Bundles handed to the relay",
		},
		[]string{"status"},
	)

	// Rebalance metrics
	RebalanceRecommendations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leverage_engine_rebalance_recommendations_total",
			Help: "Rebalance plans by outcome",
		},
		[]string{"outcome"},
	)

	// Cache metrics
	PositionCacheWallets = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "leverage_engine_position_cache_wallets",
		Help: "Wallets held in the position-id cache",
	})

	PositionCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leverage_engine_position_cache_lookups_total",
			Help: "Position cache lookups by result",
		},
		[]string{"result"},
	)

	VaultCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "leverage_engine_vault_count",
		Help: "Vault configurations held by the registry",
	})

	DecimalsCacheSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "leverage_engine_decimals_cache_size",
		Help: "Current number of entries in decimals cache",
	})

	LookupTableCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "leverage_engine_lookup_tables",
		Help: "Address lookup tables currently cached",
	})

	// HTTP metrics
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leverage_engine_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "leverage_engine_http_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)
