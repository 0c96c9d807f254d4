package observability

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server exposes metrics, health and readiness over one operations port.
// The dashboard has no sidecars that need them split apart.
type Server struct {
	server *http.Server
	logger *slog.Logger
}

// NewServer creates a new operations server
func NewServer(port int, logger *slog.Logger, healthChecker *HealthChecker) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", healthChecker.HealthHandler())
	mux.HandleFunc("/ready", healthChecker.ReadyHandler())

	return &Server{
		server: &http.Server{
			Addr:         fmt.Sprintf(":%d", port),
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  15 * time.Second,
		},
		logger: logger,
	}
}

// Start starts the operations server and blocks until ctx is cancelled
func (s *Server) Start(ctx context.Context) error {
	go func() {
		s.logger.Info("starting operations server",
			"addr", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("operations server error",
				"error", err.Error())
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s.logger.Info("shutting down operations server")
	return s.server.Shutdown(shutdownCtx)
}

// Shutdown gracefully shuts down the operations server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
