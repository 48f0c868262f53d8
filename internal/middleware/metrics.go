package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	messagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tutor_chat_messages_total",
		Help: "Total number of chat messages routed, by intent and status",
	}, []string{"intent", "status"})

	providerRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tutor_chat_provider_requests_total",
		Help: "Total number of generation provider requests",
	}, []string{"model", "status"})

	providerRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tutor_chat_provider_request_duration_seconds",
		Help:    "Duration of generation provider requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"model"})

	cacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tutor_chat_cache_hits_total",
		Help: "Total number of response cache hits",
	})

	cacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tutor_chat_cache_misses_total",
		Help: "Total number of response cache misses",
	})

	rateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tutor_chat_rate_limited_total",
		Help: "Total number of requests denied by admission control",
	})

	xpAwarded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tutor_chat_xp_awarded_total",
		Help: "Total XP awarded to students",
	})
)

// Metrics provides methods to record metrics.
type Metrics struct{}

// NewMetrics creates a new metrics instance.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// RecordMessage records a routed chat message.
func (m *Metrics) RecordMessage(intent, status string) {
	messagesTotal.WithLabelValues(intent, status).Inc()
}

// RecordProviderRequest records a generation provider call.
func (m *Metrics) RecordProviderRequest(model, status string, duration time.Duration) {
	providerRequests.WithLabelValues(model, status).Inc()
	providerRequestDuration.WithLabelValues(model).Observe(duration.Seconds())
}

// RecordCacheHit records a cache hit.
func (m *Metrics) RecordCacheHit() {
	cacheHits.Inc()
}

// RecordCacheMiss records a cache miss.
func (m *Metrics) RecordCacheMiss() {
	cacheMisses.Inc()
}

// RecordRateLimited records an admission denial.
func (m *Metrics) RecordRateLimited() {
	rateLimited.Inc()
}

// RecordXPAwarded records XP handed out to a student.
func (m *Metrics) RecordXPAwarded(amount int) {
	xpAwarded.Add(float64(amount))
}

// StartMetricsServer starts the metrics HTTP server.
func StartMetricsServer(port int, path string) error {
	router := mux.NewRouter()
	router.Handle(path, promhttp.Handler())

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	return server.ListenAndServe()
}
