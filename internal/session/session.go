// Package session keeps per-client view state for the HTTP API. A session
// carries the selected rule set and the dependency filter so repeated
// renders from the same client keep their widget state, the way a browser
// tab would.
package session

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sdp-sandbox/github-audit-dashboard/internal/observability"
	"github.com/sdp-sandbox/github-audit-dashboard/internal/rules"
	"github.com/sdp-sandbox/github-audit-dashboard/internal/slo"
	"github.com/sdp-sandbox/github-audit-dashboard/internal/types"
)

// ErrSessionNotFound is returned when the session id is unknown or expired
var ErrSessionNotFound = errors.New("session not found")

// Session is one client's view state
type Session struct {
	ID string `json:"id"`

	// SelectedRules maps rule name to inclusion in the compliance view
	SelectedRules map[string]bool `json:"selected_rules"`
	// TypeFilter applies to the compliance view
	TypeFilter string `json:"type_filter"`
	// DependencyFilter applies to the dependency-alert view
	DependencyFilter slo.DependencyFilter `json:"dependency_filter"`

	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// clone deep-copies the session so callers never hold references to the
// stored maps; those are only written under the store lock.
func (sess *Session) clone() *Session {
	copied := *sess
	copied.SelectedRules = make(map[string]bool, len(sess.SelectedRules))
	for name, included := range sess.SelectedRules {
		copied.SelectedRules[name] = included
	}
	copied.DependencyFilter.Severities = make(map[types.Severity]bool, len(sess.DependencyFilter.Severities))
	for severity, included := range sess.DependencyFilter.Severities {
		copied.DependencyFilter.Severities[severity] = included
	}
	return &copied
}

// Store is an in-memory TTL session store
type Store struct {
	logger  *slog.Logger
	metrics *observability.Metrics
	catalog *rules.Catalog
	ttl     time.Duration

	mu       sync.RWMutex
	sessions map[string]*Session

	now func() time.Time
}

// NewStore creates a session store. New sessions start with every rule
// selected and the default dependency filter.
func NewStore(logger *slog.Logger, catalog *rules.Catalog, ttl time.Duration) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		logger:   logger,
		metrics:  observability.GetMetrics(),
		catalog:  catalog,
		ttl:      ttl,
		sessions: make(map[string]*Session),
		now:      time.Now,
	}
}

// Create starts a new session with defaults and returns it.
func (s *Store) Create() *Session {
	selected := make(map[string]bool, len(s.catalog.Names()))
	for _, name := range s.catalog.Names() {
		selected[name] = true
	}

	now := s.now()
	session := &Session{
		ID:               uuid.New().String(),
		SelectedRules:    selected,
		TypeFilter:       types.RepoTypeAll,
		DependencyFilter: slo.DefaultDependencyFilter(),
		CreatedAt:        now,
		ExpiresAt:        now.Add(s.ttl),
	}

	s.mu.Lock()
	s.sessions[session.ID] = session
	s.metrics.SessionsActive.Set(float64(len(s.sessions)))
	s.mu.Unlock()

	s.logger.Debug("session created", "session_id", session.ID)
	return session.clone()
}

// Get returns the session, refreshing its TTL. Expired sessions are removed
// and reported as not found.
func (s *Store) Get(id string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	if s.now().After(session.ExpiresAt) {
		delete(s.sessions, id)
		s.metrics.SessionsActive.Set(float64(len(s.sessions)))
		return nil, ErrSessionNotFound
	}

	session.ExpiresAt = s.now().Add(s.ttl)
	return session.clone(), nil
}

// Update applies fn to the session under the lock.
func (s *Store) Update(id string, fn func(*Session)) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok || s.now().After(session.ExpiresAt) {
		if ok {
			delete(s.sessions, id)
			s.metrics.SessionsActive.Set(float64(len(s.sessions)))
		}
		return nil, ErrSessionNotFound
	}

	fn(session)
	session.ExpiresAt = s.now().Add(s.ttl)
	return session.clone(), nil
}

// Delete removes the session if present.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; ok {
		delete(s.sessions, id)
		s.metrics.SessionsActive.Set(float64(len(s.sessions)))
		s.logger.Debug("session deleted", "session_id", id)
	}
}

// Sweep drops every expired session and returns how many were removed.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for id, session := range s.sessions {
		if now.After(session.ExpiresAt) {
			delete(s.sessions, id)
			removed++
		}
	}
	if removed > 0 {
		s.metrics.SessionsActive.Set(float64(len(s.sessions)))
		s.logger.Debug("sessions swept", "removed", removed, "remaining", len(s.sessions))
	}
	return removed
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
