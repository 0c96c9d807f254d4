// Package policy flags dependency-alert groups that breach the SLO. The
// breach condition is a CEL expression evaluated per grouped repository, so
// operators can tune the alerting threshold without a rebuild.
package policy

import (
	"fmt"
	"log/slog"

	"github.com/google/cel-go/cel"

	"github.com/sdp-sandbox/github-audit-dashboard/internal/slo"
)

// DefaultExpression flags repositories carrying a critical alert that has
// been open for five or more days.
const DefaultExpression = `maxSeverityWeight >= 4 && maxDaysOpen >= 5`

// Config defines a CEL-based SLO breach policy.
type Config struct {
	// Expression must evaluate to a boolean per dependency group.
	// Available variables:
	//   - repository: repository name
	//   - repositoryType: public, private or internal
	//   - alertCount: open dependency alerts in the group
	//   - maxSeverityWeight: worst severity as an ordinal (critical=4 .. low=1)
	//   - maxDaysOpen: age of the oldest open alert in days
	Expression string `yaml:"expression" json:"expression"`
}

// Engine evaluates the breach expression against dependency groups. It
// implements slo.BreachEvaluator.
type Engine struct {
	logger     *slog.Logger
	config     Config
	celProgram cel.Program
}

// NewEngine compiles the breach expression. An empty expression falls back
// to DefaultExpression.
func NewEngine(logger *slog.Logger, config Config) (*Engine, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if config.Expression == "" {
		config.Expression = DefaultExpression
	}

	env, err := cel.NewEnv(
		cel.Variable("repository", cel.StringType),
		cel.Variable("repositoryType", cel.StringType),
		cel.Variable("alertCount", cel.IntType),
		cel.Variable("maxSeverityWeight", cel.IntType),
		cel.Variable("maxDaysOpen", cel.IntType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	ast, issues := env.Compile(config.Expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("failed to compile breach expression: %w", issues.Err())
	}

	if ast.OutputType() != cel.BoolType {
		return nil, fmt.Errorf("breach expression must return a boolean, got %v", ast.OutputType())
	}

	program, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL program: %w", err)
	}

	return &Engine{
		logger:     logger,
		config:     config,
		celProgram: program,
	}, nil
}

// Expression returns the active breach expression.
func (e *Engine) Expression() string {
	return e.config.Expression
}

// Breached evaluates the expression against one grouped repository.
func (e *Engine) Breached(group slo.DependencyGroup) (bool, error) {
	out, _, err := e.celProgram.Eval(map[string]interface{}{
		"repository":        group.Repository,
		"repositoryType":    group.Type,
		"alertCount":        group.AlertCount,
		"maxSeverityWeight": group.MaxSeverityWeight,
		"maxDaysOpen":       group.MaxDaysOpen,
	})
	if err != nil {
		return false, fmt.Errorf("failed to evaluate breach expression: %w", err)
	}

	breached, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("breach expression did not return a boolean: %v", out.Value())
	}

	if breached {
		e.logger.Warn("dependency SLO breached",
			"repository", group.Repository,
			"type", group.Type,
			"alert_count", group.AlertCount,
			"max_severity", group.MaxSeverity,
			"max_days_open", group.MaxDaysOpen,
			"expression", e.config.Expression)
	}

	return breached, nil
}
