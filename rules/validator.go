package rules

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/liamcoop/shiftrules/internal/logger"
)

// BatchValidator groups events by employee and runs one RuleChain per employee.
// Employees are independent, so their chains may run in parallel; the result
// is always concatenated in employee group order.
type BatchValidator struct {
	concurrency int
	restMarker  string
	extra       []RuleFactory
	source      RuleSource
}

// Option configures a BatchValidator
type Option func(*BatchValidator)

// WithConcurrency bounds the number of employee chains run at once.
// Values below 1 run employees one at a time.
func WithConcurrency(n int) Option {
	return func(v *BatchValidator) {
		if n < 1 {
			n = 1
		}
		v.concurrency = n
	}
}

// WithRestMarker sets the status text that marks rest events
func WithRestMarker(marker string) Option {
	return func(v *BatchValidator) {
		if marker != "" {
			v.restMarker = marker
		}
	}
}

// WithExtraRules appends rules to every employee chain, after the built-ins
// unless their priority says otherwise
func WithExtraRules(factories ...RuleFactory) Option {
	return func(v *BatchValidator) {
		v.extra = append(v.extra, factories...)
	}
}

// WithRuleSource resolves additional rules from the batch's reference period
func WithRuleSource(src RuleSource) Option {
	return func(v *BatchValidator) {
		v.source = src
	}
}

// NewBatchValidator creates a validator running the five built-in checks
func NewBatchValidator(opts ...Option) *BatchValidator {
	v := &BatchValidator{
		concurrency: runtime.GOMAXPROCS(0),
		restMarker:  DefaultRestMarker,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// employeeGroup is one employee's share of the batch input
type employeeGroup struct {
	employeeID int
	events     []EventRecord
}

// ValidateAll validates every employee found in events and returns the
// concatenated outcomes. An employee without a profile gets exactly one Fatal
// outcome and no checks. The only error is ctx's, when the caller abandons
// the batch.
func (v *BatchValidator) ValidateAll(ctx context.Context, period ReferencePeriod, events []EventRecord, profiles map[int]EmployeeProfile) ([]Outcome, error) {
	groups := groupByEmployee(events)

	factories := append([]RuleFactory{}, StandardRules()...)
	factories = append(factories, v.extra...)
	if v.source != nil {
		factories = append(factories, v.source.RulesFor(period)...)
	}

	results := make([][]Outcome, len(groups))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(v.concurrency)
	for i, grp := range groups {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = v.validateEmployee(period, grp, profiles, factories)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := 0
	for _, r := range results {
		total += len(r)
	}
	outcomes := make([]Outcome, 0, total)
	for _, r := range results {
		outcomes = append(outcomes, r...)
	}

	logger.Debug("batch validated",
		"employees", len(groups),
		"events", len(events),
		"outcomes", len(outcomes),
	)

	return outcomes, nil
}

func (v *BatchValidator) validateEmployee(period ReferencePeriod, grp employeeGroup, profiles map[int]EmployeeProfile, factories []RuleFactory) []Outcome {
	profile, ok := profiles[grp.employeeID]
	if !ok {
		logger.Debug("employee has no profile, skipping checks", "employee_id", grp.employeeID)
		return []Outcome{{
			EmployeeID: grp.employeeID,
			Severity:   SeverityFatal,
			Code:       CodeProfileMissing,
		}}
	}

	ctx := NewEmployeeContext(grp.employeeID, period, profile, grp.events)
	ctx.RestMarker = v.restMarker

	chain := NewRuleChain(Ascending)
	for _, build := range factories {
		chain.Register(build())
	}

	return chain.Run(ctx)
}

// groupByEmployee partitions events by employee in order of first appearance
func groupByEmployee(events []EventRecord) []employeeGroup {
	index := make(map[int]int)
	var groups []employeeGroup

	for _, evt := range events {
		i, ok := index[evt.EmployeeID]
		if !ok {
			i = len(groups)
			index[evt.EmployeeID] = i
			groups = append(groups, employeeGroup{employeeID: evt.EmployeeID})
		}
		groups[i].events = append(groups[i].events, evt)
	}

	return groups
}

// ValidateAll runs the built-in checks with default settings
func ValidateAll(period ReferencePeriod, events []EventRecord, profiles map[int]EmployeeProfile) []Outcome {
	// context.Background is never cancelled, so no error can be returned
	outcomes, _ := NewBatchValidator().ValidateAll(context.Background(), period, events, profiles)
	return outcomes
}
