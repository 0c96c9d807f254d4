// Package compliance derives the repository compliance view from the
// repositories snapshot. Everything here is a pure function of
// (records, selection, filter): rendering twice with the same inputs gives
// the same report, so the UI can recompute on every interaction.
package compliance

import (
	"math"
	"sort"

	"github.com/sdp-sandbox/github-audit-dashboard/internal/rules"
	"github.com/sdp-sandbox/github-audit-dashboard/internal/types"
)

// PromptSelectRule is shown instead of the report when no rules are selected
const PromptSelectRule = "Please select at least one rule."

// Row is one repository with its derived compliance columns
type Row struct {
	Name        string   `json:"name"`
	Type        string   `json:"type"`
	URL         string   `json:"url"`
	IsCompliant bool     `json:"is_compliant"`
	RulesBroken int      `json:"rules_broken"`
	// BrokenRules lists the selected rules this repository violates, in
	// catalog column order. This is the drill-down payload.
	BrokenRules []string `json:"broken_rules,omitempty"`
}

// RuleTotal is the violation count for one selected rule across all rows
type RuleTotal struct {
	Rule  string `json:"rule"`
	Count int    `json:"count"`
}

// Summary aggregates the filtered rows
type Summary struct {
	CompliantCount     int    `json:"compliant_count"`
	NonCompliantCount  int    `json:"non_compliant_count"`
	AverageRulesBroken int    `json:"average_rules_broken"`
	MostViolatedRule   string `json:"most_violated_rule"`
}

// Report is the full compliance view model
type Report struct {
	// Prompt is set (and everything else empty) when no rules are selected
	Prompt string `json:"prompt,omitempty"`

	SelectedRules []string    `json:"selected_rules,omitempty"`
	TypeFilter    string      `json:"type_filter,omitempty"`
	Rows          []Row       `json:"rows,omitempty"`
	RuleTotals    []RuleTotal `json:"rule_totals,omitempty"`
	Summary       Summary     `json:"summary"`
}

// BuildReport computes the compliance view. selection maps rule name to
// inclusion; rules absent from the map are excluded. typeFilter is one of
// all/public/private/internal.
func BuildReport(catalog *rules.Catalog, records []types.RepositoryRecord, selection map[string]bool, typeFilter string) *Report {
	// Project the selection onto catalog order so column order, and with it
	// the most-violated tie-break, stays deterministic.
	var selected []string
	for _, name := range catalog.Names() {
		if selection[name] {
			selected = append(selected, name)
		}
	}

	if len(selected) == 0 {
		return &Report{Prompt: PromptSelectRule}
	}

	report := &Report{
		SelectedRules: selected,
		TypeFilter:    typeFilter,
	}

	totals := make(map[string]int, len(selected))
	totalBroken := 0

	for _, rec := range records {
		if typeFilter != types.RepoTypeAll && rec.Type != typeFilter {
			continue
		}

		row := Row{
			Name: rec.Name,
			Type: rec.Type,
			URL:  rec.URL,
		}
		for _, rule := range selected {
			if rec.Checklist[rule] {
				row.RulesBroken++
				row.BrokenRules = append(row.BrokenRules, rule)
				totals[rule]++
			}
		}
		row.IsCompliant = row.RulesBroken == 0
		totalBroken += row.RulesBroken

		if row.IsCompliant {
			report.Summary.CompliantCount++
		} else {
			report.Summary.NonCompliantCount++
		}
		report.Rows = append(report.Rows, row)
	}

	// Most rules broken first; ties resolve alphabetically so the order is
	// stable across renders.
	sort.SliceStable(report.Rows, func(i, j int) bool {
		if report.Rows[i].RulesBroken != report.Rows[j].RulesBroken {
			return report.Rows[i].RulesBroken > report.Rows[j].RulesBroken
		}
		return report.Rows[i].Name < report.Rows[j].Name
	})

	if len(report.Rows) > 0 {
		mean := float64(totalBroken) / float64(len(report.Rows))
		report.Summary.AverageRulesBroken = int(math.Round(mean))
	}

	report.RuleTotals = make([]RuleTotal, 0, len(selected))
	most, mostCount := "", -1
	for _, rule := range selected {
		count := totals[rule]
		report.RuleTotals = append(report.RuleTotals, RuleTotal{Rule: rule, Count: count})
		if count > mostCount {
			most, mostCount = rule, count
		}
	}
	report.Summary.MostViolatedRule = most

	return report
}

// NonCompliant returns the rows with at least one violation, preserving the
// report's sort order. This feeds the drill-down table.
func (r *Report) NonCompliant() []Row {
	var rows []Row
	for _, row := range r.Rows {
		if !row.IsCompliant {
			rows = append(rows, row)
		}
	}
	return rows
}

// Find returns the row for the named repository
func (r *Report) Find(name string) (Row, bool) {
	for _, row := range r.Rows {
		if row.Name == name {
			return row, true
		}
	}
	return Row{}, false
}

// SelectAll returns a selection covering every rule in the catalog
func SelectAll(catalog *rules.Catalog) map[string]bool {
	selection := make(map[string]bool)
	for _, name := range catalog.Names() {
		selection[name] = true
	}
	return selection
}

// SelectNames returns a selection covering exactly the given rules
func SelectNames(names []string) map[string]bool {
	selection := make(map[string]bool, len(names))
	for _, name := range names {
		selection[name] = true
	}
	return selection
}
