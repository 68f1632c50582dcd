package metrics

import (
	"runtime"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Registry holds every collector exposed on /api/metrics
	Registry = prometheus.NewRegistry()

	factory = promauto.With(Registry)

	// Buckets tuned for API response times from milliseconds up to the LLM timeout
	CustomAPIBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 3, 5, 8, 13, 21, 34}

	// HTTP Metrics
	HTTPRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_server_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: CustomAPIBuckets,
		},
		[]string{"http_request_method", "http_route", "http_response_status_code"},
	)

	HTTPRequestTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_server_request_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"http_request_method", "http_route", "http_response_status_code"},
	)

	ActiveRequests = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "http_server_active_requests",
			Help: "Number of active HTTP requests",
		},
		[]string{"http_request_method"},
	)

	// Database Client Metrics
	DBRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_client_operation_duration_seconds",
			Help:    "Database client operation duration in seconds",
			Buckets: CustomAPIBuckets,
		},
		[]string{"operation", "status"},
	)

	DBRequestTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "db_client_operation_total",
			Help: "Total number of database client operations",
		},
		[]string{"operation", "status"},
	)

	DBPoolConnections = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "db_client_pool_connections",
			Help: "Connections in the database pool by state",
		},
		[]string{"state"},
	)

	// Cache Metrics
	CacheHits = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"cache_name"},
	)

	CacheMisses = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"cache_name"},
	)

	CacheSize = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cache_entries",
			Help: "Number of entries in cache",
		},
		[]string{"cache_name"},
	)

	// Storage Client Metrics (snapshot archive)
	StorageRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "storage_client_operation_duration_seconds",
			Help:    "Storage client operation duration in seconds",
			Buckets: CustomAPIBuckets,
		},
		[]string{"operation", "status"},
	)

	StorageRequestTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storage_client_operation_total",
			Help: "Total number of storage client operations",
		},
		[]string{"operation", "status"},
	)

	// Reservation lock metrics
	ReservationAttempts = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "psysupport_slot_reservation_total",
			Help: "Slot reservation attempts by backend and outcome",
		},
		[]string{"backend", "status"},
	)

	// Business Metrics
	SessionsBooked = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "psysupport_sessions_booked_total",
			Help: "Total number of booking attempts",
		},
		[]string{"status"},
	)

	SessionTransitions = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "psysupport_session_transitions_total",
			Help: "Session status changes by target status",
		},
		[]string{"to", "status"},
	)

	SessionsSwept = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "psysupport_sessions_auto_completed_total",
			Help: "Confirmed sessions completed by the sweeper",
		},
	)

	SlotQueries = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "psysupport_slot_queries_total",
			Help: "Available slot computations",
		},
		[]string{"result"}, // "slots", "empty"
	)

	QuestionnaireSubmissions = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "psysupport_questionnaire_submissions_total",
			Help: "Total number of questionnaire submissions",
		},
		[]string{"status"},
	)

	CandidatePoolRelaxations = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "psysupport_candidate_pool_relaxations_total",
			Help: "Times the candidate filter was relaxed because the strict pool was empty",
		},
	)

	RankingDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "psysupport_ranking_duration_seconds",
			Help:    "Ranking duration by strategy",
			Buckets: CustomAPIBuckets,
		},
		[]string{"strategy", "status"},
	)

	RankingStrategyTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "psysupport_ranking_strategy_total",
			Help: "Which ranking strategy produced the final result",
		},
		[]string{"strategy", "reason"},
	)

	// Infrastructure Metrics
	GoRoutines = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "process_runtime_go_goroutines",
			Help: "Number of goroutines",
		},
	)

	HeapAlloc = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "process_runtime_go_mem_heap_alloc_bytes",
			Help: "Heap allocated bytes",
		},
	)

	initOnce sync.Once
)

// Init registers runtime collectors and the build info gauge.
func Init(serviceName string) {
	initOnce.Do(func() {
		Registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		factory.NewGauge(prometheus.GaugeOpts{
			Name:        "psysupport_service_info",
			Help:        "Static service information",
			ConstLabels: prometheus.Labels{"service_name": serviceName},
		}).Set(1)
	})
}

// RecordInfrastructureMetrics collects infrastructure metrics periodically
func RecordInfrastructureMetrics() {
	ticker := time.NewTicker(15 * time.Second)
	go func() {
		for range ticker.C {
			var m runtime.MemStats
			runtime.ReadMemStats(&m)

			GoRoutines.Set(float64(runtime.NumGoroutine()))
			HeapAlloc.Set(float64(m.HeapAlloc))
		}
	}()
}

// MeasureDuration measures the duration of an operation
func MeasureDuration(start time.Time) float64 {
	return time.Since(start).Seconds()
}

// StatusLabel turns an error into the "success"/"error" label used across metrics
func StatusLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
