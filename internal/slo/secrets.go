// Package slo derives the alert SLO views from the secret-scanning and
// dependency snapshots. Like the compliance view, every function here is a
// pure reshaping of its inputs.
package slo

import (
	"sort"

	"github.com/sdp-sandbox/github-audit-dashboard/internal/types"
)

// SecretGroup is one (repository, alert type) group
type SecretGroup struct {
	Repository  string `json:"repository"`
	AlertType   string `json:"alert_type"`
	SecretCount int    `json:"secret_count"`
}

// SecretReport is the secret-scanning view model
type SecretReport struct {
	Groups      []SecretGroup `json:"groups"`
	TotalAlerts int           `json:"total_alerts"`
}

// BuildSecretReport groups secret-scanning alerts by repository and alert
// type. The total metric is the sum of all group counts.
func BuildSecretReport(alerts []types.SecretAlert) *SecretReport {
	type key struct {
		repository string
		alertType  string
	}

	counts := make(map[key]int)
	var order []key
	for _, a := range alerts {
		k := key{repository: a.Repository, alertType: a.AlertType}
		if _, seen := counts[k]; !seen {
			order = append(order, k)
		}
		counts[k]++
	}

	report := &SecretReport{TotalAlerts: len(alerts)}
	for _, k := range order {
		report.Groups = append(report.Groups, SecretGroup{
			Repository:  k.repository,
			AlertType:   k.alertType,
			SecretCount: counts[k],
		})
	}

	// Biggest leaks first; name and type break ties so renders are stable.
	sort.SliceStable(report.Groups, func(i, j int) bool {
		a, b := report.Groups[i], report.Groups[j]
		if a.SecretCount != b.SecretCount {
			return a.SecretCount > b.SecretCount
		}
		if a.Repository != b.Repository {
			return a.Repository < b.Repository
		}
		return a.AlertType < b.AlertType
	})

	return report
}

// SecretAlertsFor returns every individual alert for the repository; this
// is the drill-down behind a selected group row.
func SecretAlertsFor(alerts []types.SecretAlert, repository string) []types.SecretAlert {
	var out []types.SecretAlert
	for _, a := range alerts {
		if a.Repository == repository {
			out = append(out, a)
		}
	}
	return out
}
