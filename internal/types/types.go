package types

import (
	"encoding/json"
	"fmt"
)

// Repository type values carried by the snapshots
const (
	RepoTypeAll      = "all"
	RepoTypePublic   = "public"
	RepoTypePrivate  = "private"
	RepoTypeInternal = "internal"
)

// RepositoryRecord is one row of the repositories snapshot. Checklist maps
// rule name to violation state (true means the rule is broken).
type RepositoryRecord struct {
	Name      string          `json:"name"`
	Type      string          `json:"type"`
	URL       string          `json:"url"`
	Checklist map[string]bool `json:"checklist"`
}

// SecretAlert is one row of the secret-scanning snapshot
type SecretAlert struct {
	Repository string `json:"name"`
	AlertType  string `json:"type"`
	Secret     string `json:"secret"`
	Link       string `json:"link"`
}

// DependencyAlert is one row of the dependency-alert snapshot
type DependencyAlert struct {
	Repository string   `json:"name"`
	Type       string   `json:"type"`
	Dependency string   `json:"dependency"`
	Advisory   string   `json:"advisory"`
	Severity   Severity `json:"severity"`
	DaysOpen   int      `json:"days_open"`
	Link       string   `json:"link"`
}

// ValidRepoType reports whether t is a known repository type filter value
func ValidRepoType(t string) bool {
	switch t {
	case RepoTypeAll, RepoTypePublic, RepoTypePrivate, RepoTypeInternal:
		return true
	}
	return false
}

// DecodeRepositories decodes the repositories snapshot. Rows without a name
// are rejected: the name is the join key for every other dataset.
func DecodeRepositories(data []byte) ([]RepositoryRecord, error) {
	var records []RepositoryRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to decode repositories snapshot: %w", err)
	}
	for i, r := range records {
		if r.Name == "" {
			return nil, fmt.Errorf("repositories snapshot row %d has no name", i)
		}
	}
	return records, nil
}

// DecodeSecretAlerts decodes the secret-scanning snapshot
func DecodeSecretAlerts(data []byte) ([]SecretAlert, error) {
	var alerts []SecretAlert
	if err := json.Unmarshal(data, &alerts); err != nil {
		return nil, fmt.Errorf("failed to decode secret scanning snapshot: %w", err)
	}
	for i, a := range alerts {
		if a.Repository == "" {
			return nil, fmt.Errorf("secret scanning snapshot row %d has no repository name", i)
		}
	}
	return alerts, nil
}

// DecodeDependencyAlerts decodes the dependency-alert snapshot
func DecodeDependencyAlerts(data []byte) ([]DependencyAlert, error) {
	var alerts []DependencyAlert
	if err := json.Unmarshal(data, &alerts); err != nil {
		return nil, fmt.Errorf("failed to decode dependabot snapshot: %w", err)
	}
	for i, a := range alerts {
		if a.Repository == "" {
			return nil, fmt.Errorf("dependabot snapshot row %d has no repository name", i)
		}
		if a.DaysOpen < 0 {
			return nil, fmt.Errorf("dependabot snapshot row %d has negative days_open", i)
		}
	}
	return alerts, nil
}
