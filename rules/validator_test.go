package rules

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"
)

type periodRecorder struct {
	got   []ReferencePeriod
	rules []RuleFactory
}

func (s *periodRecorder) RulesFor(period ReferencePeriod) []RuleFactory {
	s.got = append(s.got, period)
	return s.rules
}

// alwaysWarn fails every run with a single warning
type alwaysWarn struct{ check }

func newAlwaysWarn() Rule {
	return &alwaysWarn{check: check{name: "always-warn", priority: 50}}
}

func (r *alwaysWarn) Evaluate(ctx *EmployeeContext) (bool, []Outcome) {
	r.begin()
	r.record(ctx, 0, SeverityWarning, "always_warn", Details{})
	return r.result()
}

func mixedBatch() ([]EventRecord, map[int]EmployeeProfile) {
	events := []EventRecord{
		shift(1, 3, ts(2, 8, 0), ts(2, 14, 0)),
		shift(2, 1, ts(2, 6, 0), ts(2, 21, 0)),
		shift(3, 3, ts(3, 8, 0), ts(3, 14, 0)),
		shift(4, 2, ts(2, 8, 0), ts(2, 12, 0)),
		shift(5, 1, ts(3, 8, 0), ts(3, 7, 0)),
	}
	profiles := map[int]EmployeeProfile{
		1: fullProfile(1),
		3: {EmployeeID: 3, MaxDailyHours: Hours(8)},
	}
	return events, profiles
}

func employeesOf(outcomes []Outcome) []int {
	var ids []int
	for _, o := range outcomes {
		if len(ids) == 0 || ids[len(ids)-1] != o.EmployeeID {
			ids = append(ids, o.EmployeeID)
		}
	}
	return ids
}

func TestValidateAllMissingProfile(t *testing.T) {
	events := []EventRecord{
		shift(1, 9, ts(2, 8, 0), ts(2, 14, 0)),
		shift(2, 9, ts(2, 8, 0), ts(2, 8, 0)),
	}

	got, err := NewBatchValidator().ValidateAll(context.Background(), week(), events, map[int]EmployeeProfile{})
	if err != nil {
		t.Fatalf("ValidateAll() error = %v", err)
	}

	want := []Outcome{{EmployeeID: 9, Severity: SeverityFatal, Code: CodeProfileMissing}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ValidateAll() mismatch (-want +got):\n%s", diff)
	}
}

func TestValidateAllFirstAppearanceOrder(t *testing.T) {
	events, profiles := mixedBatch()

	got, err := NewBatchValidator().ValidateAll(context.Background(), week(), events, profiles)
	if err != nil {
		t.Fatalf("ValidateAll() error = %v", err)
	}

	if ids := employeesOf(got); !slices.Equal(ids, []int{3, 1, 2}) {
		t.Errorf("employee order = %v, want [3 1 2]", ids)
	}

	last := got[len(got)-1]
	if last.EmployeeID != 2 || last.Code != CodeProfileMissing {
		t.Errorf("last outcome = %+v, want profile_missing for employee 2", last)
	}

	// Employee 1: inverted event 5, then 15h on the 2nd
	var employee1 []Code
	for _, o := range got {
		if o.EmployeeID == 1 {
			employee1 = append(employee1, o.Code)
		}
	}
	want := []Code{CodeIntervalInverted, CodeRulePassed, CodeDailyHoursExceeded, CodeRulePassed, CodeRulePassed}
	if diff := cmp.Diff(want, employee1); diff != "" {
		t.Errorf("employee 1 codes mismatch (-want +got):\n%s", diff)
	}
}

func TestValidateAllIdempotent(t *testing.T) {
	events, profiles := mixedBatch()
	v := NewBatchValidator()

	first, err := v.ValidateAll(context.Background(), week(), events, profiles)
	if err != nil {
		t.Fatalf("first ValidateAll() error = %v", err)
	}
	second, err := v.ValidateAll(context.Background(), week(), events, profiles)
	if err != nil {
		t.Fatalf("second ValidateAll() error = %v", err)
	}

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("repeated run differs (-first +second):\n%s", diff)
	}
}

func TestValidateAllLeavesInputUntouched(t *testing.T) {
	events, profiles := mixedBatch()
	before := slices.Clone(events)

	if _, err := NewBatchValidator().ValidateAll(context.Background(), week(), events, profiles); err != nil {
		t.Fatalf("ValidateAll() error = %v", err)
	}

	if diff := cmp.Diff(before, events); diff != "" {
		t.Errorf("input events modified (-before +after):\n%s", diff)
	}
}

func TestValidateAllConcurrencyDoesNotChangeResult(t *testing.T) {
	defer goleak.VerifyNone(t)

	var events []EventRecord
	profiles := make(map[int]EmployeeProfile)
	for emp := 1; emp <= 40; emp++ {
		if emp%7 != 0 {
			profiles[emp] = fullProfile(emp)
		}
		for day := 2; day <= 6; day++ {
			id := emp*10 + day
			end := ts(day, 8+emp%9, 0)
			events = append(events, shift(id, emp, ts(day, 6, 0), end))
		}
	}

	serial, err := NewBatchValidator(WithConcurrency(1)).ValidateAll(context.Background(), week(), events, profiles)
	if err != nil {
		t.Fatalf("serial ValidateAll() error = %v", err)
	}
	parallel, err := NewBatchValidator(WithConcurrency(8)).ValidateAll(context.Background(), week(), events, profiles)
	if err != nil {
		t.Fatalf("parallel ValidateAll() error = %v", err)
	}

	if diff := cmp.Diff(serial, parallel); diff != "" {
		t.Errorf("parallel result differs (-serial +parallel):\n%s", diff)
	}
}

func TestValidateAllCancelled(t *testing.T) {
	events, profiles := mixedBatch()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got, err := NewBatchValidator().ValidateAll(ctx, week(), events, profiles)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("ValidateAll() error = %v, want context.Canceled", err)
	}
	if got != nil {
		t.Errorf("ValidateAll() returned %d outcomes on cancel", len(got))
	}
}

func TestValidateAllEmptyBatch(t *testing.T) {
	got, err := NewBatchValidator().ValidateAll(context.Background(), week(), nil, nil)
	if err != nil || len(got) != 0 {
		t.Errorf("ValidateAll() = %v, %v; want no outcomes", got, err)
	}
}

func TestWithRestMarker(t *testing.T) {
	events := []EventRecord{
		shift(1, 1, ts(2, 6, 0), ts(2, 20, 0)),
	}
	events[0].Status = "off"
	profiles := map[int]EmployeeProfile{1: fullProfile(1)}

	got, err := NewBatchValidator(WithRestMarker("OFF")).ValidateAll(context.Background(), week(), events, profiles)
	if err != nil {
		t.Fatalf("ValidateAll() error = %v", err)
	}
	for _, o := range got {
		if o.Severity != SeverityOK {
			t.Errorf("outcome %+v, want every check to pass once the event is a rest", o)
		}
	}

	got = ValidateAll(week(), events, profiles)
	if codes := codesOf(got); !slices.Contains(codes, CodeDailyHoursExceeded) {
		t.Errorf("default marker codes = %v, want daily_hours_exceeded", codes)
	}
}

func TestWithExtraRulesAndSource(t *testing.T) {
	events := []EventRecord{shift(1, 1, ts(2, 8, 0), ts(2, 14, 0))}
	profiles := map[int]EmployeeProfile{1: fullProfile(1)}
	source := &periodRecorder{rules: []RuleFactory{newAlwaysWarn}}

	period := week()
	period.LocationID, period.DepartmentID = 4, 2

	v := NewBatchValidator(WithExtraRules(newAlwaysWarn), WithRuleSource(source))
	got, err := v.ValidateAll(context.Background(), period, events, profiles)
	if err != nil {
		t.Fatalf("ValidateAll() error = %v", err)
	}

	if len(source.got) != 1 || source.got[0] != period {
		t.Errorf("RulesFor() calls = %+v, want one call with %+v", source.got, period)
	}

	want := []Code{CodeRulePassed, CodeRulePassed, CodeRulePassed, CodeRulePassed, CodeRulePassed, "always_warn", "always_warn"}
	if diff := cmp.Diff(want, codesOf(got)); diff != "" {
		t.Errorf("codes mismatch (-want +got):\n%s", diff)
	}
}

func TestWithConcurrencyClamps(t *testing.T) {
	for _, n := range []int{-3, 0, 1, 16} {
		t.Run(fmt.Sprint(n), func(t *testing.T) {
			v := NewBatchValidator(WithConcurrency(n))
			if v.concurrency < 1 {
				t.Errorf("concurrency = %d, want >= 1", v.concurrency)
			}
		})
	}
}
