package rules

// Priorities of the built-in checks. Lower runs first under ascending order.
const (
	PriorityIntervalSanity = 1
	PriorityOverlap        = 2
	PriorityDailyHours     = 3
	PriorityShiftGap       = 4
	PriorityWeeklyRest     = 5
)

// Rule is one check run against an EmployeeContext.
//
// Evaluate reports whether the check passed and returns the outcomes it
// recorded. A rule may exclude events from the context; later rules in the same
// chain will not see them. Evaluate must not panic on bad data: every problem is
// reported as an Outcome.
type Rule interface {
	Name() string
	Priority() int
	Evaluate(ctx *EmployeeContext) (bool, []Outcome)
}

// RuleFactory builds a fresh Rule instance. Each employee run gets its own
// instances so outcome buffers are never shared.
type RuleFactory func() Rule

// RuleSource supplies additional rules for a batch, selected by the batch's
// reference period scope.
type RuleSource interface {
	RulesFor(period ReferencePeriod) []RuleFactory
}

// StandardRules returns the factories of the five built-in checks in priority order
func StandardRules() []RuleFactory {
	return []RuleFactory{
		func() Rule { return NewIntervalSanityRule() },
		func() Rule { return NewOverlapRule() },
		func() Rule { return NewDailyHoursRule() },
		func() Rule { return NewShiftGapRule() },
		func() Rule { return NewWeeklyRestRule() },
	}
}

// check holds the name, priority and outcome buffer shared by every concrete rule
type check struct {
	name     string
	priority int
	outcomes []Outcome
}

func (c *check) Name() string {
	return c.name
}

func (c *check) Priority() int {
	return c.priority
}

// begin clears the buffer at the start of Evaluate
func (c *check) begin() {
	c.outcomes = nil
}

func (c *check) record(ctx *EmployeeContext, eventID int, severity Severity, code Code, details Details) {
	c.outcomes = append(c.outcomes, Outcome{
		EmployeeID: ctx.EmployeeID,
		EventID:    eventID,
		Rule:       c.name,
		Severity:   severity,
		Code:       code,
		Details:    details,
	})
}

// result passes iff nothing above OK level was recorded
func (c *check) result() (bool, []Outcome) {
	for _, o := range c.outcomes {
		if o.Severity > SeverityOK {
			return false, c.outcomes
		}
	}
	return true, c.outcomes
}
