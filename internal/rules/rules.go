// Package rules loads the bundled rule metadata that drives the compliance
// view. The metadata is embedded at build time and immutable for the
// process lifetime; only the user's rule selection changes between renders.
package rules

import (
	_ "embed"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/sdp-sandbox/github-audit-dashboard/internal/types"
)

//go:embed rules.yaml
var rulesYAML []byte

// Rule describes one checklist rule
type Rule struct {
	Name           string `yaml:"name" json:"name"`
	Description    string `yaml:"description" json:"description"`
	IsSecurityRule bool   `yaml:"is_security_rule" json:"is_security_rule"`
	IsPolicyRule   bool   `yaml:"is_policy_rule" json:"is_policy_rule"`
}

// Catalog is the ordered rule metadata list. Order matters: the
// most-violated-rule summary tie-breaks on first encountered rule.
type Catalog struct {
	rules []Rule
	index map[string]int
}

// Preset names accepted by ApplyPreset
const (
	PresetSecurity = "security"
	PresetPolicy   = "policy"
)

// Load parses the embedded rule metadata. Called once at startup.
func Load() (*Catalog, error) {
	return parse(rulesYAML)
}

func parse(data []byte) (*Catalog, error) {
	var doc struct {
		Rules []Rule `yaml:"rules"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse rule metadata: %w", err)
	}
	if len(doc.Rules) == 0 {
		return nil, fmt.Errorf("rule metadata contains no rules")
	}

	index := make(map[string]int, len(doc.Rules))
	for i, r := range doc.Rules {
		if r.Name == "" {
			return nil, fmt.Errorf("rule metadata entry %d has no name", i)
		}
		if _, dup := index[r.Name]; dup {
			return nil, fmt.Errorf("duplicate rule name %q in metadata", r.Name)
		}
		index[r.Name] = i
	}

	return &Catalog{rules: doc.Rules, index: index}, nil
}

// All returns the rules in metadata order
func (c *Catalog) All() []Rule {
	out := make([]Rule, len(c.rules))
	copy(out, c.rules)
	return out
}

// Names returns all rule names in metadata order
func (c *Catalog) Names() []string {
	names := make([]string, len(c.rules))
	for i, r := range c.rules {
		names[i] = r.Name
	}
	return names
}

// Describe returns the rule with the given name
func (c *Catalog) Describe(name string) (Rule, bool) {
	i, ok := c.index[name]
	if !ok {
		return Rule{}, false
	}
	return c.rules[i], true
}

// Position returns the metadata order index of the rule, or -1 if unknown
func (c *Catalog) Position(name string) int {
	i, ok := c.index[name]
	if !ok {
		return -1
	}
	return i
}

// Preset returns the rule names selected by the named preset
func (c *Catalog) Preset(name string) ([]string, error) {
	var selected []string
	switch name {
	case PresetSecurity:
		for _, r := range c.rules {
			if r.IsSecurityRule {
				selected = append(selected, r.Name)
			}
		}
	case PresetPolicy:
		for _, r := range c.rules {
			if r.IsPolicyRule {
				selected = append(selected, r.Name)
			}
		}
	default:
		return nil, fmt.Errorf("unknown preset %q", name)
	}
	return selected, nil
}

// Drift compares the catalog against the checklist keys present in the
// repository snapshot and reports rules missing from either side. Rule
// names and checklist columns must stay in lockstep; a drift silently
// drops a rule from the dashboard, so the loader logs whatever comes back.
type Drift struct {
	// MissingFromSnapshot lists catalog rules absent from every record
	MissingFromSnapshot []string
	// MissingFromCatalog lists checklist keys the catalog does not know
	MissingFromCatalog []string
}

// Empty reports whether the two sources agree
func (d Drift) Empty() bool {
	return len(d.MissingFromSnapshot) == 0 && len(d.MissingFromCatalog) == 0
}

// CheckDrift validates catalog/snapshot lockstep
func (c *Catalog) CheckDrift(records []types.RepositoryRecord) Drift {
	seen := make(map[string]bool)
	for _, rec := range records {
		for key := range rec.Checklist {
			seen[key] = true
		}
	}

	var drift Drift
	for _, r := range c.rules {
		if len(records) > 0 && !seen[r.Name] {
			drift.MissingFromSnapshot = append(drift.MissingFromSnapshot, r.Name)
		}
	}
	for key := range seen {
		if _, ok := c.index[key]; !ok {
			drift.MissingFromCatalog = append(drift.MissingFromCatalog, key)
		}
	}
	sort.Strings(drift.MissingFromCatalog)
	return drift
}
