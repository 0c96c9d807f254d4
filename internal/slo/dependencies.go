package slo

import (
	"math"
	"sort"

	"github.com/sdp-sandbox/github-audit-dashboard/internal/types"
)

// PromptSelectSeverity is shown instead of the dependency view when no
// severities are selected
const PromptSelectSeverity = "Please select at least one severity."

// DependencyFilter selects which dependency alerts participate in the view
type DependencyFilter struct {
	// Severities maps severity to inclusion
	Severities map[types.Severity]bool `json:"severities"`
	// TypeFilter is one of all/public/private/internal
	TypeFilter string `json:"type_filter"`
	// MinDaysOpen drops alerts younger than the threshold
	MinDaysOpen int `json:"min_days_open"`
}

// DefaultDependencyFilter selects all severities, all repository types and
// no age threshold
func DefaultDependencyFilter() DependencyFilter {
	severities := make(map[types.Severity]bool, len(types.Severities))
	for _, s := range types.Severities {
		severities[s] = true
	}
	return DependencyFilter{
		Severities:  severities,
		TypeFilter:  types.RepoTypeAll,
		MinDaysOpen: 0,
	}
}

func (f DependencyFilter) keeps(a types.DependencyAlert) bool {
	if !f.Severities[a.Severity] {
		return false
	}
	if a.DaysOpen < f.MinDaysOpen {
		return false
	}
	if f.TypeFilter != types.RepoTypeAll && f.TypeFilter != "" && a.Type != f.TypeFilter {
		return false
	}
	return true
}

// DependencyGroup is one (repository, repository type) group
type DependencyGroup struct {
	Repository        string         `json:"repository"`
	Type              string         `json:"type"`
	AlertCount        int            `json:"alert_count"`
	MaxSeverity       types.Severity `json:"max_severity"`
	MaxSeverityWeight int            `json:"max_severity_weight"`
	MaxDaysOpen       int            `json:"max_days_open"`
	// Breached is set by the SLO policy expression
	Breached bool `json:"breached"`
}

// DependencySummary aggregates the grouped view
type DependencySummary struct {
	TotalAlerts                int `json:"total_alerts"`
	AverageMaxDaysOpen         int `json:"average_max_days_open"`
	DistinctRepositories       int `json:"distinct_repositories"`
	AverageAlertsPerRepository int `json:"average_alerts_per_repository"`
}

// DependencyReport is the dependency-alert view model
type DependencyReport struct {
	// Prompt is set (and everything else empty) when no severities are
	// selected
	Prompt string `json:"prompt,omitempty"`

	Filter  DependencyFilter  `json:"filter"`
	Groups  []DependencyGroup `json:"groups,omitempty"`
	Summary DependencySummary `json:"summary"`

	// MaxDaysOpenBound is the largest days-open value in the raw data; it
	// bounds the threshold widget
	MaxDaysOpenBound int `json:"max_days_open_bound"`
}

// BreachEvaluator decides whether a grouped repository breaches the SLO
// policy. A nil evaluator leaves every group unflagged.
type BreachEvaluator interface {
	Breached(group DependencyGroup) (bool, error)
}

// BuildDependencyReport filters, groups and sorts the dependency alerts.
func BuildDependencyReport(alerts []types.DependencyAlert, filter DependencyFilter, evaluator BreachEvaluator) (*DependencyReport, error) {
	report := &DependencyReport{Filter: filter}
	for _, a := range alerts {
		if a.DaysOpen > report.MaxDaysOpenBound {
			report.MaxDaysOpenBound = a.DaysOpen
		}
	}

	if len(filter.Severities) == 0 || noneSelected(filter.Severities) {
		report.Prompt = PromptSelectSeverity
		return report, nil
	}

	type key struct {
		repository string
		repoType   string
	}

	groups := make(map[key]*DependencyGroup)
	var order []key
	for _, a := range alerts {
		if !filter.keeps(a) {
			continue
		}

		k := key{repository: a.Repository, repoType: a.Type}
		g, seen := groups[k]
		if !seen {
			g = &DependencyGroup{Repository: a.Repository, Type: a.Type}
			groups[k] = g
			order = append(order, k)
		}

		g.AlertCount++
		if w := a.Severity.Weight(); w > g.MaxSeverityWeight {
			g.MaxSeverityWeight = w
		}
		if a.DaysOpen > g.MaxDaysOpen {
			g.MaxDaysOpen = a.DaysOpen
		}
	}

	repositories := make(map[string]bool)
	totalMaxDays := 0
	for _, k := range order {
		g := groups[k]
		g.MaxSeverity = types.SeverityFromWeight(g.MaxSeverityWeight)
		if evaluator != nil {
			breached, err := evaluator.Breached(*g)
			if err != nil {
				return nil, err
			}
			g.Breached = breached
		}
		report.Groups = append(report.Groups, *g)
		report.Summary.TotalAlerts += g.AlertCount
		totalMaxDays += g.MaxDaysOpen
		repositories[g.Repository] = true
	}

	sort.SliceStable(report.Groups, func(i, j int) bool {
		a, b := report.Groups[i], report.Groups[j]
		if a.MaxSeverityWeight != b.MaxSeverityWeight {
			return a.MaxSeverityWeight > b.MaxSeverityWeight
		}
		if a.MaxDaysOpen != b.MaxDaysOpen {
			return a.MaxDaysOpen > b.MaxDaysOpen
		}
		return a.Repository < b.Repository
	})

	report.Summary.DistinctRepositories = len(repositories)
	if len(report.Groups) > 0 {
		report.Summary.AverageMaxDaysOpen = int(math.Round(float64(totalMaxDays) / float64(len(report.Groups))))
	}
	if report.Summary.DistinctRepositories > 0 {
		report.Summary.AverageAlertsPerRepository = int(math.Round(
			float64(report.Summary.TotalAlerts) / float64(report.Summary.DistinctRepositories)))
	}

	return report, nil
}

// DependencyAlertsFor returns the repository's alert rows under the current
// filter, sorted by severity weight then age; this is the drill-down behind
// a selected group.
func DependencyAlertsFor(alerts []types.DependencyAlert, filter DependencyFilter, repository string) []types.DependencyAlert {
	var out []types.DependencyAlert
	for _, a := range alerts {
		if a.Repository == repository && filter.keeps(a) {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Severity.Weight() != out[j].Severity.Weight() {
			return out[i].Severity.Weight() > out[j].Severity.Weight()
		}
		return out[i].DaysOpen > out[j].DaysOpen
	})
	return out
}

func noneSelected(severities map[types.Severity]bool) bool {
	for _, included := range severities {
		if included {
			return false
		}
	}
	return true
}
