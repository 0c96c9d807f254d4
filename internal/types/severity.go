package types

import (
	"encoding/json"
	"strings"
)

// Severity is an ordinal alert severity: critical > high > medium > low
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// Severities lists all severities in descending weight order
var Severities = []Severity{SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow}

// Weight maps the severity to its ordinal weight so groups can be
// aggregated and sorted numerically. Unknown severities weigh zero and
// sort below everything.
func (s Severity) Weight() int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	}
	return 0
}

// Label returns the display form of the severity ("Critical", "High", ...)
func (s Severity) Label() string {
	if s == "" {
		return ""
	}
	return strings.ToUpper(string(s[:1])) + string(s[1:])
}

// SeverityFromWeight maps an ordinal weight back to its severity label
func SeverityFromWeight(weight int) Severity {
	switch weight {
	case 4:
		return SeverityCritical
	case 3:
		return SeverityHigh
	case 2:
		return SeverityMedium
	case 1:
		return SeverityLow
	}
	return ""
}

// ParseSeverity normalizes a free-text severity value
func ParseSeverity(s string) (Severity, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "critical":
		return SeverityCritical, true
	case "high":
		return SeverityHigh, true
	case "medium":
		return SeverityMedium, true
	case "low":
		return SeverityLow, true
	}
	return "", false
}

// UnmarshalJSON lower-cases incoming severity values so upstream casing
// changes do not break the weight mapping.
func (s *Severity) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if parsed, ok := ParseSeverity(raw); ok {
		*s = parsed
		return nil
	}
	*s = Severity(strings.ToLower(raw))
	return nil
}
