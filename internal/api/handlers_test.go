package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sdp-sandbox/github-audit-dashboard/internal/config"
	"github.com/sdp-sandbox/github-audit-dashboard/internal/loader"
	"github.com/sdp-sandbox/github-audit-dashboard/internal/policy"
	"github.com/sdp-sandbox/github-audit-dashboard/internal/rules"
	"github.com/sdp-sandbox/github-audit-dashboard/internal/session"
)

type fakeFetcher struct {
	objects map[string][]byte
	fail    bool
}

func (f *fakeFetcher) Fetch(ctx context.Context, key string) ([]byte, error) {
	if f.fail {
		return nil, fmt.Errorf("an error occurred when getting %s data from bucket test: connection refused", key)
	}
	return f.objects[key], nil
}

func checklist(broken ...string) map[string]bool {
	c := map[string]bool{
		"inactive":                 false,
		"unprotected_branches":     false,
		"unsigned_commits":         false,
		"readme_missing":           false,
		"license_missing":          false,
		"pirr_missing":             false,
		"gitignore_missing":        false,
		"external_pr":              false,
		"breaks_naming_convention": false,
	}
	for _, rule := range broken {
		c[rule] = true
	}
	return c
}

func testObjects(t *testing.T) map[string][]byte {
	t.Helper()

	repositories := []map[string]interface{}{
		{"name": "alpha", "type": "public", "url": "https://github.com/org/alpha", "checklist": checklist("inactive", "readme_missing")},
		{"name": "beta", "type": "private", "url": "https://github.com/org/beta", "checklist": checklist()},
	}
	secrets := []map[string]interface{}{
		{"name": "alpha", "type": "GitHub PAT", "secret": "s1", "link": "https://github.com/org/alpha"},
		{"name": "alpha", "type": "GitHub PAT", "secret": "s2", "link": "https://github.com/org/alpha"},
	}
	dependencies := []map[string]interface{}{
		{"name": "alpha", "type": "public", "dependency": "lib", "advisory": "GHSA-1", "severity": "critical", "days_open": 10, "link": "https://github.com/org/alpha"},
		{"name": "beta", "type": "private", "dependency": "lib", "advisory": "GHSA-2", "severity": "low", "days_open": 1, "link": "https://github.com/org/beta"},
	}

	objects := make(map[string][]byte, 3)
	for key, v := range map[string]interface{}{
		loader.KeyRepositories:   repositories,
		loader.KeySecretScanning: secrets,
		loader.KeyDependabot:     dependencies,
	} {
		body, err := json.Marshal(v)
		if err != nil {
			t.Fatalf("failed to marshal fixture: %v", err)
		}
		objects[key] = body
	}
	return objects
}

func testServer(t *testing.T, fetcher *fakeFetcher, apiKey string) *APIServer {
	t.Helper()

	catalog, err := rules.Load()
	if err != nil {
		t.Fatalf("failed to load catalog: %v", err)
	}

	logger := slog.Default()
	l := loader.NewLoader(fetcher, catalog, nil, 10*time.Minute, logger)
	sessions := session.NewStore(logger, catalog, time.Hour)

	engine, err := policy.NewEngine(logger, policy.Config{})
	if err != nil {
		t.Fatalf("failed to create policy engine: %v", err)
	}

	cfg := &config.APIConfig{Port: 8080, APIKey: apiKey, SessionTTL: time.Hour}
	return NewAPIServer(cfg, l, sessions, engine, logger)
}

func doRequest(t *testing.T, s *APIServer, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(out); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
}

func TestHandleListRules(t *testing.T) {
	s := testServer(t, &fakeFetcher{objects: testObjects(t)}, "")

	rec := doRequest(t, s, http.MethodGet, "/api/v1/rules", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var listed []rules.Rule
	decodeBody(t, rec, &listed)
	if len(listed) != 9 {
		t.Errorf("listed %d rules, want 9", len(listed))
	}
}

func TestHandleCompliance(t *testing.T) {
	s := testServer(t, &fakeFetcher{objects: testObjects(t)}, "")

	rec := doRequest(t, s, http.MethodGet, "/api/v1/compliance", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp ComplianceResponse
	decodeBody(t, rec, &resp)
	if len(resp.Report.Rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(resp.Report.Rows))
	}
	// alpha breaks two rules and sorts first
	if resp.Report.Rows[0].Name != "alpha" || resp.Report.Rows[0].RulesBroken != 2 {
		t.Errorf("top row = %+v", resp.Report.Rows[0])
	}
	if resp.Report.Summary.CompliantCount != 1 || resp.Report.Summary.NonCompliantCount != 1 {
		t.Errorf("summary = %+v", resp.Report.Summary)
	}
}

func TestHandleComplianceRuleSubset(t *testing.T) {
	s := testServer(t, &fakeFetcher{objects: testObjects(t)}, "")

	rec := doRequest(t, s, http.MethodGet, "/api/v1/compliance?rules=unsigned_commits", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp ComplianceResponse
	decodeBody(t, rec, &resp)
	// Nobody breaks unsigned_commits, so everyone is compliant.
	if resp.Report.Summary.NonCompliantCount != 0 {
		t.Errorf("non-compliant = %d, want 0", resp.Report.Summary.NonCompliantCount)
	}
}

func TestHandleComplianceInvalidType(t *testing.T) {
	s := testServer(t, &fakeFetcher{objects: testObjects(t)}, "")

	rec := doRequest(t, s, http.MethodGet, "/api/v1/compliance?type=bogus", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandleComplianceDrillDown(t *testing.T) {
	s := testServer(t, &fakeFetcher{objects: testObjects(t)}, "")

	rec := doRequest(t, s, http.MethodGet, "/api/v1/compliance/alpha", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp ComplianceRowResponse
	decodeBody(t, rec, &resp)
	if resp.Row.Name != "alpha" || len(resp.Row.BrokenRules) != 2 {
		t.Errorf("row = %+v", resp.Row)
	}

	rec = doRequest(t, s, http.MethodGet, "/api/v1/compliance/no-such-repo", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestHandleSecretAlerts(t *testing.T) {
	s := testServer(t, &fakeFetcher{objects: testObjects(t)}, "")

	rec := doRequest(t, s, http.MethodGet, "/api/v1/slo/secrets", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp SecretReportResponse
	decodeBody(t, rec, &resp)
	if resp.Report.TotalAlerts != 2 || len(resp.Report.Groups) != 1 {
		t.Errorf("report = %+v", resp.Report)
	}

	rec = doRequest(t, s, http.MethodGet, "/api/v1/slo/secrets/alpha", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("drill-down status = %d, want 200", rec.Code)
	}
	var drill SecretAlertsResponse
	decodeBody(t, rec, &drill)
	if len(drill.Alerts) != 2 {
		t.Errorf("drill-down alerts = %d, want 2", len(drill.Alerts))
	}
}

func TestHandleDependencyAlerts(t *testing.T) {
	s := testServer(t, &fakeFetcher{objects: testObjects(t)}, "")

	rec := doRequest(t, s, http.MethodGet, "/api/v1/slo/dependencies", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp DependencyReportResponse
	decodeBody(t, rec, &resp)
	if len(resp.Report.Groups) != 2 {
		t.Fatalf("groups = %d, want 2", len(resp.Report.Groups))
	}
	// alpha has a critical alert open 10 days, breaching the default policy.
	if resp.Report.Groups[0].Repository != "alpha" || !resp.Report.Groups[0].Breached {
		t.Errorf("top group = %+v", resp.Report.Groups[0])
	}
	if resp.Report.Groups[1].Breached {
		t.Errorf("beta should not breach: %+v", resp.Report.Groups[1])
	}
}

func TestHandleDependencyAlertsSeverityFilter(t *testing.T) {
	s := testServer(t, &fakeFetcher{objects: testObjects(t)}, "")

	rec := doRequest(t, s, http.MethodGet, "/api/v1/slo/dependencies?severities=low", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp DependencyReportResponse
	decodeBody(t, rec, &resp)
	if len(resp.Report.Groups) != 1 || resp.Report.Groups[0].Repository != "beta" {
		t.Errorf("groups = %+v", resp.Report.Groups)
	}

	rec = doRequest(t, s, http.MethodGet, "/api/v1/slo/dependencies?severities=bogus", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandleDependencyAlertsNegativeMinDaysOpen(t *testing.T) {
	s := testServer(t, &fakeFetcher{objects: testObjects(t)}, "")

	// The session PUT path rejects negative thresholds; the query path must
	// agree.
	rec := doRequest(t, s, http.MethodGet, "/api/v1/slo/dependencies?min_days_open=-3", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandleViewsUpstreamFailure(t *testing.T) {
	s := testServer(t, &fakeFetcher{fail: true}, "")

	for _, path := range []string{
		"/api/v1/compliance",
		"/api/v1/slo/secrets",
		"/api/v1/slo/dependencies",
	} {
		rec := doRequest(t, s, http.MethodGet, path, nil)
		if rec.Code != http.StatusBadGateway {
			t.Errorf("%s status = %d, want 502", path, rec.Code)
		}
	}
}

func TestAuthMiddleware(t *testing.T) {
	s := testServer(t, &fakeFetcher{objects: testObjects(t)}, "secret-key")

	rec := doRequest(t, s, http.MethodGet, "/api/v1/rules", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("missing auth status = %d, want 401", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/rules", nil)
	req.Header.Set("Authorization", "Bearer secret-key")
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Errorf("bearer auth status = %d, want 200", rr.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/rules", nil)
	req.Header.Set("Authorization", "wrong-key")
	rr = httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("wrong key status = %d, want 401", rr.Code)
	}
}

func TestSessionLifecycle(t *testing.T) {
	s := testServer(t, &fakeFetcher{objects: testObjects(t)}, "")

	rec := doRequest(t, s, http.MethodPost, "/api/v1/sessions", nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, want 201", rec.Code)
	}
	var sess session.Session
	decodeBody(t, rec, &sess)
	if sess.ID == "" {
		t.Fatal("session must have an id")
	}

	// Narrow the selection to one rule via the session.
	rec = doRequest(t, s, http.MethodPut, "/api/v1/sessions/"+sess.ID, UpdateSessionRequest{
		SelectedRules: map[string]bool{
			"unprotected_branches":     false,
			"unsigned_commits":         false,
			"readme_missing":           false,
			"license_missing":          false,
			"pirr_missing":             false,
			"gitignore_missing":        false,
			"external_pr":              false,
			"breaks_naming_convention": false,
		},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d, want 200", rec.Code)
	}

	rec = doRequest(t, s, http.MethodGet, "/api/v1/compliance?session_id="+sess.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("render status = %d, want 200", rec.Code)
	}
	var resp ComplianceResponse
	decodeBody(t, rec, &resp)
	// Only "inactive" is still selected, which alpha breaks.
	if len(resp.Report.SelectedRules) != 1 || resp.Report.SelectedRules[0] != "inactive" {
		t.Errorf("selected rules = %v", resp.Report.SelectedRules)
	}
	if resp.Report.Rows[0].Name != "alpha" || resp.Report.Rows[0].RulesBroken != 1 {
		t.Errorf("top row = %+v", resp.Report.Rows[0])
	}

	rec = doRequest(t, s, http.MethodDelete, "/api/v1/sessions/"+sess.ID, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d, want 204", rec.Code)
	}

	rec = doRequest(t, s, http.MethodGet, "/api/v1/sessions/"+sess.ID, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("deleted session status = %d, want 404", rec.Code)
	}
}

func TestApplyPreset(t *testing.T) {
	s := testServer(t, &fakeFetcher{objects: testObjects(t)}, "")

	rec := doRequest(t, s, http.MethodPost, "/api/v1/sessions", nil)
	var sess session.Session
	decodeBody(t, rec, &sess)

	rec = doRequest(t, s, http.MethodPost, "/api/v1/sessions/"+sess.ID+"/preset", ApplyPresetRequest{Preset: rules.PresetSecurity})
	if rec.Code != http.StatusOK {
		t.Fatalf("preset status = %d, want 200", rec.Code)
	}
	var updated session.Session
	decodeBody(t, rec, &updated)

	if !updated.SelectedRules["inactive"] || updated.SelectedRules["readme_missing"] {
		t.Errorf("security preset selection wrong: %v", updated.SelectedRules)
	}

	rec = doRequest(t, s, http.MethodPost, "/api/v1/sessions/"+sess.ID+"/preset", ApplyPresetRequest{Preset: "bogus"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unknown preset status = %d, want 400", rec.Code)
	}
}

func TestUnknownSessionRender(t *testing.T) {
	s := testServer(t, &fakeFetcher{objects: testObjects(t)}, "")

	rec := doRequest(t, s, http.MethodGet, "/api/v1/compliance?session_id=not-a-session", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}
