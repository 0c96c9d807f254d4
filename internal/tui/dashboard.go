// Package tui renders the dashboard in the terminal. The model follows the
// Elm shape bubbletea expects: all state lives in the model, key presses
// mutate it through Update, and View derives the screen from scratch.
package tui

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sdp-sandbox/github-audit-dashboard/internal/compliance"
	"github.com/sdp-sandbox/github-audit-dashboard/internal/loader"
	"github.com/sdp-sandbox/github-audit-dashboard/internal/slo"
	"github.com/sdp-sandbox/github-audit-dashboard/internal/types"
)

var (
	styleTitle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4"))
	styleTabActive = lipgloss.NewStyle().Bold(true).Underline(true)
	styleTab       = lipgloss.NewStyle().Faint(true)
	styleErr       = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000"))
	styleWarn      = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFAA00"))
	styleOK        = lipgloss.NewStyle().Foreground(lipgloss.Color("#00FF00"))
	styleBreached  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF0000"))
	styleHelp      = lipgloss.NewStyle().Faint(true)
	styleCursor    = lipgloss.NewStyle().Bold(true)
	stylePrompt    = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("#FFAA00"))
)

// Dashboard tabs
const (
	tabRepositories = iota
	tabSecrets
	tabDependencies
	tabCount
)

var tabLabels = []string{"Repository Analysis", "Secret Scanning Alerts", "Dependabot Alerts"}

var repoTypes = []string{types.RepoTypeAll, types.RepoTypePublic, types.RepoTypePrivate, types.RepoTypeInternal}

type snapshotLoadedMsg struct {
	snap *loader.Snapshot
}

type snapshotFailedMsg struct {
	err error
}

// Model is the dashboard state
type Model struct {
	loader    *loader.Loader
	evaluator slo.BreachEvaluator
	logger    *slog.Logger

	tab     int
	loading bool
	loadErr error
	snap    *loader.Snapshot

	// Rule selection widget state
	selection map[string]bool
	cursor    int

	// Shared type filter, cycled with t
	typeIdx int

	// Dependency view widget state
	severities  map[types.Severity]bool
	sevCursor   int
	minDaysOpen int

	// Drill-down repository, empty when showing the table
	drill string

	width  int
	height int
}

// NewModel builds the dashboard model. The first snapshot loads in Init.
func NewModel(l *loader.Loader, evaluator slo.BreachEvaluator, logger *slog.Logger) Model {
	if logger == nil {
		logger = slog.Default()
	}
	return Model{
		loader:     l,
		evaluator:  evaluator,
		logger:     logger,
		loading:    true,
		selection:  compliance.SelectAll(l.Catalog()),
		severities: slo.DefaultDependencyFilter().Severities,
		width:      80,
		height:     24,
	}
}

// Run starts the interactive dashboard and blocks until the user quits.
func Run(l *loader.Loader, evaluator slo.BreachEvaluator, logger *slog.Logger) error {
	p := tea.NewProgram(NewModel(l, evaluator, logger), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

func (m Model) Init() tea.Cmd {
	return m.loadSnapshot()
}

func (m Model) loadSnapshot() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		snap, err := m.loader.Load(ctx)
		if err != nil {
			return snapshotFailedMsg{err: err}
		}
		return snapshotLoadedMsg{snap: snap}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case snapshotLoadedMsg:
		m.loading = false
		m.loadErr = nil
		m.snap = msg.snap

	case snapshotFailedMsg:
		m.loading = false
		m.loadErr = msg.err

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "r":
		m.loading = true
		return m, m.loadSnapshot()

	case "tab":
		m.tab = (m.tab + 1) % tabCount
		m.cursor = 0
		m.drill = ""
	case "shift+tab":
		m.tab = (m.tab + tabCount - 1) % tabCount
		m.cursor = 0
		m.drill = ""

	case "esc":
		m.drill = ""

	case "t":
		m.typeIdx = (m.typeIdx + 1) % len(repoTypes)

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		m.cursor++

	case "left", "h":
		if m.tab == tabDependencies && m.sevCursor > 0 {
			m.sevCursor--
		}
	case "right", "l":
		if m.tab == tabDependencies && m.sevCursor < len(types.Severities)-1 {
			m.sevCursor++
		}

	case " ":
		switch m.tab {
		case tabRepositories:
			names := m.loader.Catalog().Names()
			if m.cursor < len(names) {
				m.selection[names[m.cursor]] = !m.selection[names[m.cursor]]
			}
		case tabDependencies:
			sev := types.Severities[m.sevCursor]
			m.severities[sev] = !m.severities[sev]
		}

	case "a":
		if m.tab == tabRepositories {
			m.selection = compliance.SelectAll(m.loader.Catalog())
		}
	case "n":
		if m.tab == tabRepositories {
			m.selection = map[string]bool{}
		}
	case "s", "p":
		if m.tab == tabRepositories {
			m.applyPreset(msg.String())
		}

	case "+":
		if m.tab == tabDependencies {
			bound := 0
			if m.snap != nil {
				if report, err := slo.BuildDependencyReport(m.snap.DependencyAlerts, m.dependencyFilter(), nil); err == nil {
					bound = report.MaxDaysOpenBound
				}
			}
			if m.minDaysOpen < bound {
				m.minDaysOpen++
			}
		}
	case "-":
		if m.tab == tabDependencies && m.minDaysOpen > 0 {
			m.minDaysOpen--
		}

	case "enter":
		m.drill = m.repositoryUnderCursor()
	}

	return m, nil
}

func (m *Model) applyPreset(key string) {
	preset := "security"
	if key == "p" {
		preset = "policy"
	}
	names, err := m.loader.Catalog().Preset(preset)
	if err != nil {
		return
	}
	selected := compliance.SelectNames(names)
	m.selection = make(map[string]bool, len(m.loader.Catalog().Names()))
	for _, name := range m.loader.Catalog().Names() {
		m.selection[name] = selected[name]
	}
}

func (m Model) typeFilter() string {
	return repoTypes[m.typeIdx]
}

func (m Model) dependencyFilter() slo.DependencyFilter {
	return slo.DependencyFilter{
		Severities:  m.severities,
		TypeFilter:  m.typeFilter(),
		MinDaysOpen: m.minDaysOpen,
	}
}

// repositoryUnderCursor maps the row cursor to a repository name for the
// drill-down, per tab.
func (m Model) repositoryUnderCursor() string {
	if m.snap == nil {
		return ""
	}

	switch m.tab {
	case tabRepositories:
		report := compliance.BuildReport(m.loader.Catalog(), m.snap.Repositories, m.selection, m.typeFilter())
		rowIdx := m.cursor - len(m.loader.Catalog().Names())
		if rowIdx >= 0 && rowIdx < len(report.Rows) {
			return report.Rows[rowIdx].Name
		}
	case tabSecrets:
		report := slo.BuildSecretReport(m.snap.SecretAlerts)
		if m.cursor < len(report.Groups) {
			return report.Groups[m.cursor].Repository
		}
	case tabDependencies:
		report, err := slo.BuildDependencyReport(m.snap.DependencyAlerts, m.dependencyFilter(), nil)
		if err == nil && m.cursor < len(report.Groups) {
			return report.Groups[m.cursor].Repository
		}
	}
	return ""
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(styleTitle.Render("GitHub Audit Dashboard"))
	b.WriteString("  ")
	for i, label := range tabLabels {
		if i == m.tab {
			b.WriteString(styleTabActive.Render(label))
		} else {
			b.WriteString(styleTab.Render(label))
		}
		if i < len(tabLabels)-1 {
			b.WriteString(styleTab.Render(" | "))
		}
	}
	b.WriteString("\n\n")

	switch {
	case m.loading:
		b.WriteString("Loading audit data...\n")
	case m.loadErr != nil:
		b.WriteString(styleErr.Render(fmt.Sprintf("✗ failed to load audit data: %v", m.loadErr)))
		b.WriteString("\n" + styleHelp.Render("press r to retry") + "\n")
	case m.snap == nil:
		b.WriteString("No data loaded.\n")
	default:
		switch m.tab {
		case tabRepositories:
			b.WriteString(m.viewRepositories())
		case tabSecrets:
			b.WriteString(m.viewSecrets())
		case tabDependencies:
			b.WriteString(m.viewDependencies())
		}
	}

	b.WriteString("\n")
	b.WriteString(styleHelp.Render("tab: switch view  t: repo type  space: toggle  enter: details  r: reload  q: quit"))
	return b.String()
}

func (m Model) viewRepositories() string {
	var b strings.Builder

	names := m.loader.Catalog().Names()
	b.WriteString(styleTitle.Render("Rules") + styleHelp.Render("  (s: security preset, p: policy preset, a: all, n: none)") + "\n")
	for i, name := range names {
		mark := "[ ]"
		if m.selection[name] {
			mark = "[x]"
		}
		line := fmt.Sprintf("%s %s", mark, name)
		if i == m.cursor {
			line = styleCursor.Render("> " + line)
		} else {
			line = "  " + line
		}
		b.WriteString(line + "\n")
	}

	report := compliance.BuildReport(m.loader.Catalog(), m.snap.Repositories, m.selection, m.typeFilter())
	if report.Prompt != "" {
		b.WriteString("\n" + stylePrompt.Render(report.Prompt) + "\n")
		return b.String()
	}

	if m.drill != "" {
		if row, ok := report.Find(m.drill); ok {
			return m.viewComplianceDrill(b.String(), row)
		}
	}

	b.WriteString(fmt.Sprintf("\n%s  type=%s  compliant=%s  non-compliant=%s  avg broken=%d  most violated=%s\n\n",
		styleTitle.Render("Repositories"),
		m.typeFilter(),
		styleOK.Render(fmt.Sprintf("%d", report.Summary.CompliantCount)),
		styleErr.Render(fmt.Sprintf("%d", report.Summary.NonCompliantCount)),
		report.Summary.AverageRulesBroken,
		report.Summary.MostViolatedRule))

	b.WriteString(fmt.Sprintf("  %-40s %-10s %6s\n", "NAME", "TYPE", "BROKEN"))
	for i, row := range report.Rows {
		status := styleOK.Render("✓")
		if !row.IsCompliant {
			status = styleErr.Render("✗")
		}
		line := fmt.Sprintf("%-40s %-10s %6d %s", row.Name, row.Type, row.RulesBroken, status)
		if len(names)+i == m.cursor {
			line = styleCursor.Render("> " + line)
		} else {
			line = "  " + line
		}
		b.WriteString(line + "\n")
	}

	return b.String()
}

func (m Model) viewComplianceDrill(header string, row compliance.Row) string {
	var b strings.Builder
	b.WriteString(header)
	b.WriteString("\n" + styleTitle.Render(row.Name) + "  " + styleHelp.Render(row.URL) + "\n")
	if row.IsCompliant {
		b.WriteString(styleOK.Render("compliant with every selected rule") + "\n")
	} else {
		for _, rule := range row.BrokenRules {
			desc := rule
			if r, ok := m.loader.Catalog().Describe(rule); ok {
				desc = fmt.Sprintf("%s: %s", rule, r.Description)
			}
			b.WriteString(styleErr.Render("✗ ") + desc + "\n")
		}
	}
	b.WriteString(styleHelp.Render("esc: back") + "\n")
	return b.String()
}

func (m Model) viewSecrets() string {
	var b strings.Builder

	report := slo.BuildSecretReport(m.snap.SecretAlerts)
	b.WriteString(fmt.Sprintf("%s  open alerts=%s\n\n",
		styleTitle.Render("Secret Scanning"),
		styleWarn.Render(fmt.Sprintf("%d", report.TotalAlerts))))

	if m.drill != "" {
		b.WriteString(styleTitle.Render(m.drill) + "\n")
		for _, a := range slo.SecretAlertsFor(m.snap.SecretAlerts, m.drill) {
			b.WriteString(fmt.Sprintf("  %-25s %-30s %s\n", a.AlertType, a.Secret, styleHelp.Render(a.Link)))
		}
		b.WriteString(styleHelp.Render("esc: back") + "\n")
		return b.String()
	}

	b.WriteString(fmt.Sprintf("  %-40s %-25s %6s\n", "NAME", "ALERT TYPE", "COUNT"))
	for i, g := range report.Groups {
		line := fmt.Sprintf("%-40s %-25s %6d", g.Repository, g.AlertType, g.SecretCount)
		if i == m.cursor {
			line = styleCursor.Render("> " + line)
		} else {
			line = "  " + line
		}
		b.WriteString(line + "\n")
	}

	return b.String()
}

func (m Model) viewDependencies() string {
	var b strings.Builder

	b.WriteString(styleTitle.Render("Dependabot Alerts") + "\n")
	b.WriteString("severities: ")
	for i, sev := range types.Severities {
		mark := "[ ]"
		if m.severities[sev] {
			mark = "[x]"
		}
		item := fmt.Sprintf("%s %s", mark, sev.Label())
		if i == m.sevCursor {
			item = styleCursor.Render(item)
		}
		b.WriteString(item + "  ")
	}
	b.WriteString(fmt.Sprintf("\nmin days open: %d %s  type=%s\n\n",
		m.minDaysOpen, styleHelp.Render("(+/- to adjust)"), m.typeFilter()))

	report, err := slo.BuildDependencyReport(m.snap.DependencyAlerts, m.dependencyFilter(), m.evaluator)
	if err != nil {
		b.WriteString(styleErr.Render(fmt.Sprintf("✗ policy evaluation failed: %v", err)) + "\n")
		return b.String()
	}
	if report.Prompt != "" {
		b.WriteString(stylePrompt.Render(report.Prompt) + "\n")
		return b.String()
	}

	if m.drill != "" {
		b.WriteString(styleTitle.Render(m.drill) + "\n")
		for _, a := range slo.DependencyAlertsFor(m.snap.DependencyAlerts, m.dependencyFilter(), m.drill) {
			b.WriteString(fmt.Sprintf("  %-10s %-30s %-20s %4dd  %s\n",
				a.Severity.Label(), a.Dependency, a.Advisory, a.DaysOpen, styleHelp.Render(a.Link)))
		}
		b.WriteString(styleHelp.Render("esc: back") + "\n")
		return b.String()
	}

	b.WriteString(fmt.Sprintf("  %-40s %-10s %6s %-10s %9s\n", "NAME", "TYPE", "ALERTS", "SEVERITY", "DAYS OPEN"))
	for i, g := range report.Groups {
		severity := g.MaxSeverity.Label()
		if g.Breached {
			severity = styleBreached.Render(severity + " ⚠")
		}
		line := fmt.Sprintf("%-40s %-10s %6d %-10s %9d", g.Repository, g.Type, g.AlertCount, severity, g.MaxDaysOpen)
		if i == m.cursor {
			line = styleCursor.Render("> " + line)
		} else {
			line = "  " + line
		}
		b.WriteString(line + "\n")
	}

	b.WriteString(fmt.Sprintf("\ntotal=%d  repositories=%d  avg max days open=%d  avg alerts/repo=%d\n",
		report.Summary.TotalAlerts,
		report.Summary.DistinctRepositories,
		report.Summary.AverageMaxDaysOpen,
		report.Summary.AverageAlertsPerRepository))

	return b.String()
}
