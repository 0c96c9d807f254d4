// Package api exposes the dashboard views over HTTP. Every render endpoint
// is stateless: it loads the current snapshot through the time-bucketed
// cache and derives the view from query parameters or a stored session.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/sdp-sandbox/github-audit-dashboard/internal/config"
	"github.com/sdp-sandbox/github-audit-dashboard/internal/loader"
	"github.com/sdp-sandbox/github-audit-dashboard/internal/observability"
	"github.com/sdp-sandbox/github-audit-dashboard/internal/session"
	"github.com/sdp-sandbox/github-audit-dashboard/internal/slo"

	_ "github.com/sdp-sandbox/github-audit-dashboard/build/swagger" // Import generated docs
)

// @title github-audit-dashboard API
// @version 1.0
// @description REST API for the GitHub compliance and alert SLO dashboard.
// @description
// @description ## Features
// @description - Repository compliance view with selectable checklist rules
// @description - Secret scanning alert groups per repository
// @description - Dependency alert groups with SLO breach flags
// @description - Per-client sessions carrying view state

// @contact.name github-audit-dashboard
// @license.name Apache 2.0
// @license.url https://www.apache.org/licenses/LICENSE-2.0.html

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Enter your API key (with or without "Bearer " prefix)

// APIServer serves the dashboard views over HTTP
type APIServer struct {
	config    *config.APIConfig
	loader    *loader.Loader
	sessions  *session.Store
	evaluator slo.BreachEvaluator
	metrics   *observability.Metrics
	router    *http.ServeMux
	server    *http.Server
	logger    *slog.Logger
}

// NewAPIServer creates a new API server instance
func NewAPIServer(cfg *config.APIConfig, l *loader.Loader, sessions *session.Store, evaluator slo.BreachEvaluator, logger *slog.Logger) *APIServer {
	api := &APIServer{
		config:    cfg,
		loader:    l,
		sessions:  sessions,
		evaluator: evaluator,
		metrics:   observability.GetMetrics(),
		router:    http.NewServeMux(),
		logger:    logger,
	}

	api.setupRoutes()

	api.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      api.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return api
}

// setupRoutes configures all API routes
func (s *APIServer) setupRoutes() {
	// View endpoints (GET)
	s.router.HandleFunc("/api/v1/rules", s.corsMiddleware(s.authMiddleware(s.handleListRules)))
	s.router.HandleFunc("/api/v1/compliance", s.corsMiddleware(s.authMiddleware(s.handleCompliance)))
	s.router.HandleFunc("/api/v1/compliance/", s.corsMiddleware(s.authMiddleware(s.handleComplianceRepository)))
	s.router.HandleFunc("/api/v1/slo/secrets", s.corsMiddleware(s.authMiddleware(s.handleSecretAlerts)))
	s.router.HandleFunc("/api/v1/slo/secrets/", s.corsMiddleware(s.authMiddleware(s.handleSecretAlertsRepository)))
	s.router.HandleFunc("/api/v1/slo/dependencies", s.corsMiddleware(s.authMiddleware(s.handleDependencyAlerts)))
	s.router.HandleFunc("/api/v1/slo/dependencies/", s.corsMiddleware(s.authMiddleware(s.handleDependencyAlertsRepository)))

	// Session endpoints
	s.router.HandleFunc("/api/v1/sessions", s.corsMiddleware(s.authMiddleware(s.handleCreateSession)))
	s.router.HandleFunc("/api/v1/sessions/", s.corsMiddleware(s.authMiddleware(s.handleSession)))

	// Swagger documentation
	s.router.HandleFunc("/swagger/", httpSwagger.WrapHandler)

	// Redirect root to swagger
	s.router.HandleFunc("/", s.handleRootRedirect)
}

// corsMiddleware adds CORS headers to allow cross-origin requests
func (s *APIServer) corsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "3600")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next(w, r)
	}
}

// authMiddleware validates the API key when one is configured
func (s *APIServer) authMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.config.APIKey != "" {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				s.respondError(w, http.StatusUnauthorized, "Authorization header required")
				return
			}

			// Accept both "Bearer <token>" and just "<token>"
			token := strings.TrimPrefix(authHeader, "Bearer ")
			if token != s.config.APIKey {
				s.respondError(w, http.StatusUnauthorized, "Invalid API key")
				return
			}
		}

		next(w, r)
	}
}

// Start starts the API server and blocks until ctx is cancelled
func (s *APIServer) Start(ctx context.Context) error {
	s.logger.Info("starting API server",
		"port", s.config.Port)

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("API server error",
				"error", err.Error())
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s.logger.Info("shutting down API server")
	return s.server.Shutdown(shutdownCtx)
}

// Shutdown gracefully shuts down the API server
func (s *APIServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Handler returns the configured router. Tests drive it directly.
func (s *APIServer) Handler() http.Handler {
	return s.router
}

// respondJSON sends a JSON response
func (s *APIServer) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("error encoding JSON response",
			"error", err.Error())
	}
}

// respondError sends an error response
func (s *APIServer) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}

// parseQueryParam extracts a query parameter from the request
func parseQueryParam(r *http.Request, key string) string {
	return r.URL.Query().Get(key)
}

// parseQueryParamInt extracts an integer query parameter
func parseQueryParamInt(r *http.Request, key string, defaultValue int) int {
	value := r.URL.Query().Get(key)
	if value == "" {
		return defaultValue
	}
	var intValue int
	if _, err := fmt.Sscanf(value, "%d", &intValue); err == nil {
		return intValue
	}
	return defaultValue
}

// handleRootRedirect redirects / to /swagger/
func (s *APIServer) handleRootRedirect(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		s.respondError(w, http.StatusNotFound, "not found")
		return
	}
	http.Redirect(w, r, "/swagger/", http.StatusMovedPermanently)
}
