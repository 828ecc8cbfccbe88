package rules

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/liamcoop/shiftrules/rules/generated"
)

// DefaultExpressionPriority places expression rules after the built-in checks
const DefaultExpressionPriority = 100

// expressionCostLimit bounds the evaluation cost of a single expression
const expressionCostLimit = 1000000

// ExpressionScope selects what an expression rule is evaluated against
type ExpressionScope string

const (
	// ExpressionPerEvent evaluates once per eligible working event
	ExpressionPerEvent ExpressionScope = "event"
	// ExpressionPerEmployee evaluates once per employee run
	ExpressionPerEmployee ExpressionScope = "employee"
)

// ExpressionDefinition describes a custom check written in CEL.
// The expression must evaluate to a bool; true means compliant.
type ExpressionDefinition struct {
	Name       string          `json:"name" yaml:"name"`
	Expression string          `json:"expression" yaml:"expression"`
	Scope      ExpressionScope `json:"scope,omitempty" yaml:"scope,omitempty"`
	Severity   Severity        `json:"severity" yaml:"severity"`
	Exclude    bool            `json:"exclude,omitempty" yaml:"exclude,omitempty"`
	Priority   int             `json:"priority,omitempty" yaml:"priority,omitempty"`
}

// CompiledExpression is a checked and planned expression, safe for concurrent use
type CompiledExpression struct {
	def     ExpressionDefinition
	program cel.Program
}

var (
	expressionEnvOnce sync.Once
	expressionEnv     *cel.Env
	expressionEnvErr  error
)

// ExpressionEnv returns the CEL environment shared by all expression rules.
// It declares the variables shift, profile and period.
func ExpressionEnv() (*cel.Env, error) {
	expressionEnvOnce.Do(func() {
		expressionEnv, expressionEnvErr = cel.NewEnv(
			cel.Variable("shift", cel.DynType),
			cel.Variable("profile", cel.DynType),
			cel.Variable("period", cel.DynType),
			cel.CrossTypeNumericComparisons(true),
		)
		if expressionEnvErr != nil {
			expressionEnvErr = fmt.Errorf("failed to create CEL environment: %w", expressionEnvErr)
		}
	})
	return expressionEnv, expressionEnvErr
}

// CompileExpression type-checks the definition and builds its program.
// Severity must be Warning or Error. A missing scope falls back to event and a
// zero priority to DefaultExpressionPriority.
func CompileExpression(def ExpressionDefinition) (*CompiledExpression, error) {
	if def.Name == "" {
		return nil, fmt.Errorf("expression rule name is required")
	}

	switch def.Scope {
	case "":
		def.Scope = ExpressionPerEvent
	case ExpressionPerEvent, ExpressionPerEmployee:
	default:
		return nil, fmt.Errorf("expression rule %s: unknown scope %q", def.Name, def.Scope)
	}

	switch def.Severity {
	case SeverityWarning, SeverityError:
	default:
		return nil, fmt.Errorf("expression rule %s: severity must be WARNING or ERROR, got %s", def.Name, def.Severity)
	}

	if def.Priority == 0 {
		def.Priority = DefaultExpressionPriority
	}

	env, err := ExpressionEnv()
	if err != nil {
		return nil, err
	}

	ast, issues := env.Compile(def.Expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("expression rule %s: compile error: %w", def.Name, issues.Err())
	}

	if out := ast.OutputType().String(); out != "bool" && out != "dyn" {
		return nil, fmt.Errorf("expression rule %s: expression must evaluate to bool, got %s", def.Name, out)
	}

	prog, err := env.Program(ast, cel.CostLimit(expressionCostLimit))
	if err != nil {
		return nil, fmt.Errorf("expression rule %s: program creation error: %w", def.Name, err)
	}

	return &CompiledExpression{def: def, program: prog}, nil
}

// Definition returns the normalized definition the expression was compiled from
func (c *CompiledExpression) Definition() ExpressionDefinition {
	return c.def
}

// Factory returns a RuleFactory producing a fresh rule per employee run
func (c *CompiledExpression) Factory() RuleFactory {
	return func() Rule { return NewExpressionRule(c) }
}

// ExpressionRule evaluates a compiled expression inside a rule chain
type ExpressionRule struct {
	check
	compiled *CompiledExpression
}

// NewExpressionRule wraps a compiled expression as a Rule
func NewExpressionRule(c *CompiledExpression) *ExpressionRule {
	return &ExpressionRule{
		check:    check{name: c.def.Name, priority: c.def.Priority},
		compiled: c,
	}
}

// Evaluate runs the expression. A false result records the configured
// severity; an evaluation failure or a non-bool result records an Error.
func (r *ExpressionRule) Evaluate(ctx *EmployeeContext) (bool, []Outcome) {
	r.begin()

	working := ctx.Working()
	profile := profileFacts(ctx.Profile).Map()
	period := periodFacts(ctx, working).Map()

	if r.compiled.def.Scope == ExpressionPerEmployee {
		r.eval(ctx, nil, map[string]any{
			"shift":   map[string]any{},
			"profile": profile,
			"period":  period,
		})
		return r.result()
	}

	for _, evt := range working {
		r.eval(ctx, evt, map[string]any{
			"shift":   shiftFacts(evt).Map(),
			"profile": profile,
			"period":  period,
		})
	}
	return r.result()
}

func (r *ExpressionRule) eval(ctx *EmployeeContext, evt *EventRecord, activation map[string]any) {
	def := r.compiled.def
	eventID := 0
	details := Details{Expression: def.Expression}
	if evt != nil {
		eventID = evt.ID
		details.Start, details.End, details.Title = evt.Start, evt.End, evt.Title
	}

	out, _, err := r.compiled.program.Eval(activation)
	if err != nil {
		details.Reason = err.Error()
		r.record(ctx, eventID, SeverityError, CodeExpressionFailed, details)
		return
	}

	ok, isBool := out.Value().(bool)
	if !isBool {
		details.Reason = fmt.Sprintf("expression returned %s, want bool", out.Type().TypeName())
		r.record(ctx, eventID, SeverityError, CodeExpressionFailed, details)
		return
	}

	if !ok {
		r.record(ctx, eventID, def.Severity, CodeExpressionViolated, details)
		if def.Exclude && evt != nil {
			evt.Exclude()
		}
	}
}

func shiftFacts(evt *EventRecord) generated.Shift {
	return generated.Shift{
		ID:           evt.ID,
		Title:        evt.Title,
		Description:  evt.Description,
		Start:        evt.Start,
		End:          evt.End,
		Hours:        evt.Duration().Hours(),
		EmployeeID:   evt.EmployeeID,
		LocationID:   evt.LocationID,
		DepartmentID: evt.DepartmentID,
		Status:       evt.Status,
	}
}

func profileFacts(p EmployeeProfile) generated.Profile {
	return generated.Profile{
		EmployeeID:               p.EmployeeID,
		MaxWeeklyHours:           p.MaxWeeklyHours,
		MinDailyHours:            p.MinDailyHours,
		MaxDailyHours:            p.MaxDailyHours,
		MinGapBetweenShiftsHours: p.MinGapBetweenShiftsHours,
		MinWeeklyRestHours:       p.MinWeeklyRestHours,
	}
}

func periodFacts(ctx *EmployeeContext, working []*EventRecord) generated.Period {
	windows := dayWindows(working)

	total := 0.0
	for _, w := range windows {
		total += w.hours()
	}

	return generated.Period{
		Start:        ctx.Period.Start,
		End:          ctx.Period.End,
		LocationID:   ctx.Period.LocationID,
		DepartmentID: ctx.Period.DepartmentID,
		TotalHours:   total,
		ShiftCount:   len(working),
		Days:         len(windows),
	}
}
