package api

import (
	"time"

	"github.com/sdp-sandbox/github-audit-dashboard/internal/compliance"
	"github.com/sdp-sandbox/github-audit-dashboard/internal/slo"
	"github.com/sdp-sandbox/github-audit-dashboard/internal/types"
)

// SnapshotMeta describes the snapshot a view was rendered from
type SnapshotMeta struct {
	BucketTick               time.Time `json:"bucket_tick"`
	FetchedAt                time.Time `json:"fetched_at"`
	OrphanedSecretAlerts     int       `json:"orphaned_secret_alerts,omitempty"`
	OrphanedDependencyAlerts int       `json:"orphaned_dependency_alerts,omitempty"`
}

// ComplianceResponse is the compliance view plus snapshot provenance
type ComplianceResponse struct {
	Snapshot SnapshotMeta       `json:"snapshot"`
	Report   *compliance.Report `json:"report"`
}

// ComplianceRowResponse is the drill-down for one repository
type ComplianceRowResponse struct {
	Snapshot SnapshotMeta   `json:"snapshot"`
	Row      compliance.Row `json:"row"`
}

// SecretReportResponse is the secret-scanning view plus snapshot provenance
type SecretReportResponse struct {
	Snapshot SnapshotMeta      `json:"snapshot"`
	Report   *slo.SecretReport `json:"report"`
}

// SecretAlertsResponse is the secret-scanning drill-down for one repository
type SecretAlertsResponse struct {
	Snapshot   SnapshotMeta        `json:"snapshot"`
	Repository string              `json:"repository"`
	Alerts     []types.SecretAlert `json:"alerts"`
}

// DependencyReportResponse is the dependency-alert view plus snapshot
// provenance
type DependencyReportResponse struct {
	Snapshot SnapshotMeta          `json:"snapshot"`
	Report   *slo.DependencyReport `json:"report"`
}

// DependencyAlertsResponse is the dependency-alert drill-down for one
// repository
type DependencyAlertsResponse struct {
	Snapshot   SnapshotMeta            `json:"snapshot"`
	Repository string                  `json:"repository"`
	Alerts     []types.DependencyAlert `json:"alerts"`
}

// UpdateSessionRequest is the body of PUT /sessions/{id}. Only the supplied
// fields change.
type UpdateSessionRequest struct {
	SelectedRules map[string]bool `json:"selected_rules,omitempty"`
	TypeFilter    *string         `json:"type_filter,omitempty"`
	Severities    map[string]bool `json:"severities,omitempty"`
	MinDaysOpen   *int            `json:"min_days_open,omitempty"`
}

// ApplyPresetRequest is the body of POST /sessions/{id}/preset
type ApplyPresetRequest struct {
	Preset string `json:"preset"`
}
