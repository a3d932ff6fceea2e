package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"github.com/user/ytlive-tracker-go/internal/store"
)

var (
	videosTotal = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "tracker_videos_total",
		Help: "Total number of tracked videos",
	})

	notificationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tracker_notifications_total",
		Help: "Total number of notification deliveries by outcome",
	}, []string{"outcome"})

	sweepDurationSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tracker_sweep_duration_seconds",
		Help:    "Duration of discovery and refresh sweeps in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})

	errorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tracker_errors_total",
		Help: "Total number of errors",
	}, []string{"type"})
)

func init() {
	prometheus.MustRegister(videosTotal)
	prometheus.MustRegister(notificationsTotal)
	prometheus.MustRegister(sweepDurationSeconds)
	prometheus.MustRegister(errorsTotal)
}

// CountNotification records one notification delivery outcome.
func CountNotification(outcome string) {
	notificationsTotal.WithLabelValues(outcome).Inc()
}

// ObserveSweep records the duration of one job sweep.
func ObserveSweep(job string, d time.Duration) {
	sweepDurationSeconds.WithLabelValues(job).Observe(d.Seconds())
}

// CountError records one pipeline error by type.
func CountError(errType string) {
	errorsTotal.WithLabelValues(errType).Inc()
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Uptime   string `json:"uptime"`
}

// Server handles HTTP requests for health checks and metrics
type Server struct {
	store     store.Store
	router    *http.ServeMux
	server    *http.Server
	startTime time.Time
}

// NewServer creates a new HTTP server instance
func NewServer(store store.Store) *Server {
	s := &Server{
		store:     store,
		router:    http.NewServeMux(),
		startTime: time.Now(),
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.handleHealth)
	s.router.Handle("/metrics", promhttp.Handler())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	resp := HealthResponse{
		Status:   "ok",
		Database: "ok",
		Uptime:   time.Since(s.startTime).Round(time.Second).String(),
	}

	status := http.StatusOK
	if err := s.store.Ping(ctx); err != nil {
		log.Error().Err(err).Msg("Health check: database unreachable")
		resp.Status = "degraded"
		resp.Database = "unreachable"
		status = http.StatusServiceUnavailable
	} else if count, err := s.store.CountVideos(ctx); err == nil {
		videosTotal.Set(float64(count))
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Error().Err(err).Msg("Failed to encode health response")
	}
}

// Start starts the HTTP server on the given port. Blocks until shutdown.
func (s *Server) Start(port int) error {
	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      s.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}
