package rules

import (
	"sort"
	"sync"
)

// Direction selects the order in which a RuleChain runs its rules by priority
type Direction int

const (
	Ascending Direction = iota
	Descending
)

// RuleChain runs an ordered set of rules against one EmployeeContext.
// Rules run strictly one after another because later rules depend on the
// exclusions made by earlier ones.
type RuleChain struct {
	direction Direction
	rules     []Rule
	mu        sync.RWMutex
}

// NewRuleChain creates a chain with the given direction and initial rules
func NewRuleChain(direction Direction, rules ...Rule) *RuleChain {
	c := &RuleChain{direction: direction}
	c.Register(rules...)
	return c
}

// Register appends rules to the chain. Registration order breaks priority ties.
func (c *RuleChain) Register(rules ...Rule) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, r := range rules {
		if r != nil {
			c.rules = append(c.rules, r)
		}
	}
}

// Rules returns the registered rules in execution order
func (c *RuleChain) Rules() []Rule {
	c.mu.RLock()
	ordered := make([]Rule, len(c.rules))
	copy(ordered, c.rules)
	c.mu.RUnlock()

	sort.SliceStable(ordered, func(i, j int) bool {
		if c.direction == Descending {
			return ordered[i].Priority() > ordered[j].Priority()
		}
		return ordered[i].Priority() < ordered[j].Priority()
	})
	return ordered
}

// Run executes every rule exactly once and returns the outcome stream.
// A failing rule contributes all the outcomes it recorded; a passing rule
// contributes a single OK outcome. A failure never stops the chain.
func (c *RuleChain) Run(ctx *EmployeeContext) []Outcome {
	ordered := c.Rules()

	results := make([]Outcome, 0, len(ordered))
	for _, rule := range ordered {
		passed, outcomes := rule.Evaluate(ctx)
		if !passed {
			results = append(results, outcomes...)
			continue
		}

		results = append(results, Outcome{
			EmployeeID: ctx.EmployeeID,
			Rule:       rule.Name(),
			Severity:   SeverityOK,
			Code:       CodeRulePassed,
		})
	}

	return results
}
