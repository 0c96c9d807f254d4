package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sdp-sandbox/github-audit-dashboard/internal/compliance"
	"github.com/sdp-sandbox/github-audit-dashboard/internal/loader"
	"github.com/sdp-sandbox/github-audit-dashboard/internal/session"
	"github.com/sdp-sandbox/github-audit-dashboard/internal/slo"
	"github.com/sdp-sandbox/github-audit-dashboard/internal/types"
)

// viewState is the resolved widget state for one render: either the stored
// session's state or whatever the query parameters say.
type viewState struct {
	selection  map[string]bool
	typeFilter string
	depFilter  slo.DependencyFilter
}

// resolveViewState builds the view state from the session_id parameter or,
// absent one, from the rules/type/severities/min_days_open parameters.
// Missing parameters fall back to everything selected.
func (s *APIServer) resolveViewState(w http.ResponseWriter, r *http.Request) (viewState, bool) {
	if id := parseQueryParam(r, "session_id"); id != "" {
		sess, err := s.sessions.Get(id)
		if err != nil {
			s.respondError(w, http.StatusNotFound, "Session not found")
			return viewState{}, false
		}
		return viewState{
			selection:  sess.SelectedRules,
			typeFilter: sess.TypeFilter,
			depFilter:  sess.DependencyFilter,
		}, true
	}

	state := viewState{
		selection:  compliance.SelectAll(s.loader.Catalog()),
		typeFilter: types.RepoTypeAll,
		depFilter:  slo.DefaultDependencyFilter(),
	}

	if raw := parseQueryParam(r, "rules"); raw != "" {
		state.selection = compliance.SelectNames(strings.Split(raw, ","))
	}

	if tf := parseQueryParam(r, "type"); tf != "" {
		if !types.ValidRepoType(tf) {
			s.respondError(w, http.StatusBadRequest, fmt.Sprintf("Invalid repository type %q", tf))
			return viewState{}, false
		}
		state.typeFilter = tf
		state.depFilter.TypeFilter = tf
	}

	if raw := parseQueryParam(r, "severities"); raw != "" {
		for sev := range state.depFilter.Severities {
			state.depFilter.Severities[sev] = false
		}
		for _, part := range strings.Split(raw, ",") {
			sev, ok := types.ParseSeverity(part)
			if !ok {
				s.respondError(w, http.StatusBadRequest, fmt.Sprintf("Invalid severity %q", part))
				return viewState{}, false
			}
			state.depFilter.Severities[sev] = true
		}
	}

	minDays := parseQueryParamInt(r, "min_days_open", 0)
	if minDays < 0 {
		s.respondError(w, http.StatusBadRequest, "min_days_open cannot be negative")
		return viewState{}, false
	}
	state.depFilter.MinDaysOpen = minDays

	return state, true
}

// loadSnapshot fetches the current snapshot through the cache. Any failure
// is an upstream problem, so the render answers 502 and nothing renders.
func (s *APIServer) loadSnapshot(w http.ResponseWriter, r *http.Request) (*loader.Snapshot, bool) {
	snap, err := s.loader.Load(r.Context())
	if err != nil {
		s.logger.Error("failed to load audit snapshot",
			"error", err.Error())
		s.respondError(w, http.StatusBadGateway, fmt.Sprintf("Failed to load audit data: %v", err))
		return nil, false
	}
	return snap, true
}

func snapshotMeta(snap *loader.Snapshot) SnapshotMeta {
	return SnapshotMeta{
		BucketTick:               snap.BucketTick,
		FetchedAt:                snap.FetchedAt,
		OrphanedSecretAlerts:     snap.OrphanedSecretAlerts,
		OrphanedDependencyAlerts: snap.OrphanedDependencyAlerts,
	}
}

// observeRender records the render metrics for one view
func (s *APIServer) observeRender(view string, start time.Time) {
	s.metrics.RendersTotal.WithLabelValues(view).Inc()
	s.metrics.RenderDuration.WithLabelValues(view).Observe(time.Since(start).Seconds())
}

// handleListRules lists the checklist rule catalog
// @Summary List rules
// @Description List the checklist rules with their descriptions and preset membership
// @Tags Rules
// @Produce json
// @Success 200 {array} rules.Rule
// @Failure 401 {object} map[string]string "Unauthorized"
// @Security BearerAuth
// @Router /rules [get]
func (s *APIServer) handleListRules(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	s.respondJSON(w, http.StatusOK, s.loader.Catalog().All())
}

// handleCompliance renders the repository compliance view
// @Summary Repository compliance view
// @Description Render the compliance table for the selected rules and repository type
// @Tags Compliance
// @Produce json
// @Param session_id query string false "Session whose stored state drives the view"
// @Param rules query string false "Comma-separated rule names (default all)"
// @Param type query string false "Repository type filter (all, public, private, internal)" default(all)
// @Success 200 {object} ComplianceResponse
// @Failure 400 {object} map[string]string "Invalid parameters"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Session not found"
// @Failure 502 {object} map[string]string "Audit data unavailable"
// @Security BearerAuth
// @Router /compliance [get]
func (s *APIServer) handleCompliance(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	defer s.observeRender("compliance", time.Now())

	state, ok := s.resolveViewState(w, r)
	if !ok {
		return
	}
	snap, ok := s.loadSnapshot(w, r)
	if !ok {
		return
	}

	report := compliance.BuildReport(s.loader.Catalog(), snap.Repositories, state.selection, state.typeFilter)
	s.respondJSON(w, http.StatusOK, ComplianceResponse{
		Snapshot: snapshotMeta(snap),
		Report:   report,
	})
}

// handleComplianceRepository renders the compliance drill-down for one
// repository
// @Summary Repository compliance drill-down
// @Description Return the compliance row for one repository, listing the selected rules it violates
// @Tags Compliance
// @Produce json
// @Param repository path string true "Repository name"
// @Param session_id query string false "Session whose stored state drives the view"
// @Param rules query string false "Comma-separated rule names (default all)"
// @Success 200 {object} ComplianceRowResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Repository not found"
// @Failure 502 {object} map[string]string "Audit data unavailable"
// @Security BearerAuth
// @Router /compliance/{repository} [get]
func (s *APIServer) handleComplianceRepository(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	repository := strings.TrimPrefix(r.URL.Path, "/api/v1/compliance/")
	if repository == "" {
		s.respondError(w, http.StatusBadRequest, "Repository name is required")
		return
	}

	state, ok := s.resolveViewState(w, r)
	if !ok {
		return
	}
	snap, ok := s.loadSnapshot(w, r)
	if !ok {
		return
	}

	report := compliance.BuildReport(s.loader.Catalog(), snap.Repositories, state.selection, types.RepoTypeAll)
	row, found := report.Find(repository)
	if !found {
		s.respondError(w, http.StatusNotFound, "Repository not found")
		return
	}

	s.respondJSON(w, http.StatusOK, ComplianceRowResponse{
		Snapshot: snapshotMeta(snap),
		Row:      row,
	})
}

// handleSecretAlerts renders the secret-scanning alert view
// @Summary Secret scanning alert view
// @Description Render the secret-scanning alerts grouped by repository and alert type
// @Tags SLO
// @Produce json
// @Success 200 {object} SecretReportResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 502 {object} map[string]string "Audit data unavailable"
// @Security BearerAuth
// @Router /slo/secrets [get]
func (s *APIServer) handleSecretAlerts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	defer s.observeRender("secret_scanning", time.Now())

	snap, ok := s.loadSnapshot(w, r)
	if !ok {
		return
	}

	s.respondJSON(w, http.StatusOK, SecretReportResponse{
		Snapshot: snapshotMeta(snap),
		Report:   slo.BuildSecretReport(snap.SecretAlerts),
	})
}

// handleSecretAlertsRepository renders the secret-scanning drill-down for
// one repository
// @Summary Secret scanning drill-down
// @Description List every secret-scanning alert for one repository
// @Tags SLO
// @Produce json
// @Param repository path string true "Repository name"
// @Success 200 {object} SecretAlertsResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 502 {object} map[string]string "Audit data unavailable"
// @Security BearerAuth
// @Router /slo/secrets/{repository} [get]
func (s *APIServer) handleSecretAlertsRepository(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	repository := strings.TrimPrefix(r.URL.Path, "/api/v1/slo/secrets/")
	if repository == "" {
		s.respondError(w, http.StatusBadRequest, "Repository name is required")
		return
	}

	snap, ok := s.loadSnapshot(w, r)
	if !ok {
		return
	}

	s.respondJSON(w, http.StatusOK, SecretAlertsResponse{
		Snapshot:   snapshotMeta(snap),
		Repository: repository,
		Alerts:     slo.SecretAlertsFor(snap.SecretAlerts, repository),
	})
}

// handleDependencyAlerts renders the dependency alert view
// @Summary Dependency alert view
// @Description Render the dependency alerts grouped by repository with SLO breach flags
// @Tags SLO
// @Produce json
// @Param session_id query string false "Session whose stored state drives the view"
// @Param severities query string false "Comma-separated severities (default all)"
// @Param type query string false "Repository type filter (all, public, private, internal)" default(all)
// @Param min_days_open query int false "Drop alerts younger than this many days" default(0)
// @Success 200 {object} DependencyReportResponse
// @Failure 400 {object} map[string]string "Invalid parameters"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Session not found"
// @Failure 500 {object} map[string]string "Internal server error"
// @Failure 502 {object} map[string]string "Audit data unavailable"
// @Security BearerAuth
// @Router /slo/dependencies [get]
func (s *APIServer) handleDependencyAlerts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	defer s.observeRender("dependabot", time.Now())

	state, ok := s.resolveViewState(w, r)
	if !ok {
		return
	}
	snap, ok := s.loadSnapshot(w, r)
	if !ok {
		return
	}

	report, err := slo.BuildDependencyReport(snap.DependencyAlerts, state.depFilter, s.evaluator)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to evaluate SLO policy: %v", err))
		return
	}

	s.respondJSON(w, http.StatusOK, DependencyReportResponse{
		Snapshot: snapshotMeta(snap),
		Report:   report,
	})
}

// handleDependencyAlertsRepository renders the dependency drill-down for
// one repository
// @Summary Dependency alert drill-down
// @Description List the dependency alerts for one repository under the current filter
// @Tags SLO
// @Produce json
// @Param repository path string true "Repository name"
// @Param session_id query string false "Session whose stored state drives the view"
// @Param severities query string false "Comma-separated severities (default all)"
// @Param min_days_open query int false "Drop alerts younger than this many days" default(0)
// @Success 200 {object} DependencyAlertsResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 502 {object} map[string]string "Audit data unavailable"
// @Security BearerAuth
// @Router /slo/dependencies/{repository} [get]
func (s *APIServer) handleDependencyAlertsRepository(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	repository := strings.TrimPrefix(r.URL.Path, "/api/v1/slo/dependencies/")
	if repository == "" {
		s.respondError(w, http.StatusBadRequest, "Repository name is required")
		return
	}

	state, ok := s.resolveViewState(w, r)
	if !ok {
		return
	}
	snap, ok := s.loadSnapshot(w, r)
	if !ok {
		return
	}

	s.respondJSON(w, http.StatusOK, DependencyAlertsResponse{
		Snapshot:   snapshotMeta(snap),
		Repository: repository,
		Alerts:     slo.DependencyAlertsFor(snap.DependencyAlerts, state.depFilter, repository),
	})
}

// handleCreateSession starts a new dashboard session
// @Summary Create session
// @Description Start a new session with every rule and severity selected
// @Tags Sessions
// @Produce json
// @Success 201 {object} session.Session
// @Failure 401 {object} map[string]string "Unauthorized"
// @Security BearerAuth
// @Router /sessions [post]
func (s *APIServer) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	s.respondJSON(w, http.StatusCreated, s.sessions.Create())
}

// handleSession dispatches /sessions/{id} and /sessions/{id}/preset
func (s *APIServer) handleSession(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/sessions/")
	if rest == "" {
		s.respondError(w, http.StatusBadRequest, "Session id is required")
		return
	}

	if id, found := strings.CutSuffix(rest, "/preset"); found {
		s.handleApplyPreset(w, r, id)
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.handleGetSession(w, r, rest)
	case http.MethodPut:
		s.handleUpdateSession(w, r, rest)
	case http.MethodDelete:
		s.handleDeleteSession(w, r, rest)
	default:
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// handleGetSession reads a session
// @Summary Get session
// @Description Read a session's stored view state, refreshing its TTL
// @Tags Sessions
// @Produce json
// @Param id path string true "Session id"
// @Success 200 {object} session.Session
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Session not found"
// @Security BearerAuth
// @Router /sessions/{id} [get]
func (s *APIServer) handleGetSession(w http.ResponseWriter, r *http.Request, id string) {
	sess, err := s.sessions.Get(id)
	if err != nil {
		s.respondError(w, http.StatusNotFound, "Session not found")
		return
	}
	s.respondJSON(w, http.StatusOK, sess)
}

// handleUpdateSession updates a session's view state
// @Summary Update session
// @Description Update the stored rule selection, type filter, severities or age threshold
// @Tags Sessions
// @Accept json
// @Produce json
// @Param id path string true "Session id"
// @Param request body UpdateSessionRequest true "Fields to change"
// @Success 200 {object} session.Session
// @Failure 400 {object} map[string]string "Invalid request"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Session not found"
// @Security BearerAuth
// @Router /sessions/{id} [put]
func (s *APIServer) handleUpdateSession(w http.ResponseWriter, r *http.Request, id string) {
	var req UpdateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	if req.TypeFilter != nil && !types.ValidRepoType(*req.TypeFilter) {
		s.respondError(w, http.StatusBadRequest, fmt.Sprintf("Invalid repository type %q", *req.TypeFilter))
		return
	}
	if req.MinDaysOpen != nil && *req.MinDaysOpen < 0 {
		s.respondError(w, http.StatusBadRequest, "min_days_open cannot be negative")
		return
	}

	severities := make(map[types.Severity]bool, len(req.Severities))
	for raw, included := range req.Severities {
		sev, ok := types.ParseSeverity(raw)
		if !ok {
			s.respondError(w, http.StatusBadRequest, fmt.Sprintf("Invalid severity %q", raw))
			return
		}
		severities[sev] = included
	}

	sess, err := s.sessions.Update(id, func(sess *session.Session) {
		for name, included := range req.SelectedRules {
			if _, known := s.loader.Catalog().Describe(name); known {
				sess.SelectedRules[name] = included
			}
		}
		if req.TypeFilter != nil {
			sess.TypeFilter = *req.TypeFilter
			sess.DependencyFilter.TypeFilter = *req.TypeFilter
		}
		for sev, included := range severities {
			sess.DependencyFilter.Severities[sev] = included
		}
		if req.MinDaysOpen != nil {
			sess.DependencyFilter.MinDaysOpen = *req.MinDaysOpen
		}
	})
	if err != nil {
		s.respondError(w, http.StatusNotFound, "Session not found")
		return
	}

	s.respondJSON(w, http.StatusOK, sess)
}

// handleDeleteSession ends a session
// @Summary Delete session
// @Description End the session and discard its view state
// @Tags Sessions
// @Param id path string true "Session id"
// @Success 204 "No content"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Security BearerAuth
// @Router /sessions/{id} [delete]
func (s *APIServer) handleDeleteSession(w http.ResponseWriter, r *http.Request, id string) {
	s.sessions.Delete(id)
	w.WriteHeader(http.StatusNoContent)
}

// handleApplyPreset replaces the session's rule selection with a preset
// @Summary Apply rule preset
// @Description Replace the session's rule selection with the security or policy preset
// @Tags Sessions
// @Accept json
// @Produce json
// @Param id path string true "Session id"
// @Param request body ApplyPresetRequest true "Preset name (security or policy)"
// @Success 200 {object} session.Session
// @Failure 400 {object} map[string]string "Unknown preset"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Session not found"
// @Security BearerAuth
// @Router /sessions/{id}/preset [post]
func (s *APIServer) handleApplyPreset(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req ApplyPresetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	selected, err := s.loader.Catalog().Preset(req.Preset)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	sess, err := s.sessions.Update(id, func(sess *session.Session) {
		preset := compliance.SelectNames(selected)
		for _, name := range s.loader.Catalog().Names() {
			sess.SelectedRules[name] = preset[name]
		}
	})
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			s.respondError(w, http.StatusNotFound, "Session not found")
			return
		}
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, sess)
}
