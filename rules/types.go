package rules

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// DefaultRestMarker is the status text that marks an event as rest/off-duty.
const DefaultRestMarker = "riposo"

// Severity is the level of a single Outcome.
// Levels are ordered: OK < Warning < Error < Fatal.
type Severity int

const (
	SeverityOK Severity = iota
	SeverityWarning
	SeverityError
	SeverityFatal
)

var severityNames = map[Severity]string{
	SeverityOK:      "OK",
	SeverityWarning: "WARNING",
	SeverityError:   "ERROR",
	SeverityFatal:   "FATAL",
}

func (s Severity) String() string {
	if name, ok := severityNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Severity(%d)", int(s))
}

// MarshalText encodes the severity by name
func (s Severity) MarshalText() ([]byte, error) {
	if _, ok := severityNames[s]; !ok {
		return nil, fmt.Errorf("unknown severity %d", int(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText decodes a severity name, case-insensitively
func (s *Severity) UnmarshalText(text []byte) error {
	parsed, err := ParseSeverity(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseSeverity converts a severity name ("ok", "warning", "error", "fatal") to a Severity
func ParseSeverity(name string) (Severity, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "OK":
		return SeverityOK, nil
	case "WARN", "WARNING":
		return SeverityWarning, nil
	case "ERROR":
		return SeverityError, nil
	case "FATAL", "KO":
		return SeverityFatal, nil
	default:
		return SeverityOK, fmt.Errorf("unknown severity %q", name)
	}
}

// Code identifies what an Outcome diagnoses. Codes are stable; human-readable
// text is produced from them by a renderer.
type Code string

const (
	CodeRulePassed             Code = "rule_passed"
	CodeProfileMissing         Code = "profile_missing"
	CodeIntervalInverted       Code = "interval_inverted"
	CodeIntervalOutsidePeriod  Code = "interval_outside_period"
	CodeDuplicateShift         Code = "duplicate_shift"
	CodeOverlappingShift       Code = "overlapping_shift"
	CodeLocationOverlap        Code = "location_overlap"
	CodeDailyHoursExceeded     Code = "daily_hours_exceeded"
	CodeDailyHoursBelowMinimum Code = "daily_hours_below_minimum"
	CodeInsufficientShiftGap   Code = "insufficient_shift_gap"
	CodeInsufficientWeeklyRest Code = "insufficient_weekly_rest"
	CodeExpressionViolated     Code = "expression_violated"
	CodeExpressionFailed       Code = "expression_failed"
)

// Details carries the structured values a renderer needs to describe an Outcome.
// Only the fields relevant to the Outcome's Code are set.
type Details struct {
	Day          string    `json:"day,omitempty"`
	OtherDay     string    `json:"otherDay,omitempty"`
	Hours        float64   `json:"hours,omitzero"`
	Limit        float64   `json:"limit,omitzero"`
	Start        time.Time `json:"start,omitzero"`
	End          time.Time `json:"end,omitzero"`
	OtherStart   time.Time `json:"otherStart,omitzero"`
	OtherEnd     time.Time `json:"otherEnd,omitzero"`
	Title        string    `json:"title,omitempty"`
	LocationID   int       `json:"locationId,omitzero"`
	DepartmentID int       `json:"departmentId,omitzero"`
	OtherEventID int       `json:"otherEventId,omitzero"`
	Expression   string    `json:"expression,omitempty"`
	Reason       string    `json:"reason,omitempty"`
}

// Outcome is one immutable diagnostic produced by a rule run.
// EventID is 0 for employee-level and day-level outcomes.
type Outcome struct {
	EmployeeID int      `json:"employeeId"`
	EventID    int      `json:"eventId"`
	Rule       string   `json:"rule,omitempty"`
	Severity   Severity `json:"severity"`
	Code       Code     `json:"code"`
	Details    Details  `json:"details"`
}

// CheckStatus is the exclusion flag of an EventRecord.
type CheckStatus int

const (
	StatusOK CheckStatus = iota
	StatusExcluded
)

func (s CheckStatus) String() string {
	if s == StatusExcluded {
		return "EXCLUDED"
	}
	return "OK"
}

// EventRecord is one scheduled work shift and its per-run working state.
type EventRecord struct {
	ID           int         `json:"id"`
	Title        string      `json:"title"`
	Description  string      `json:"description,omitempty"`
	Start        time.Time   `json:"start"`
	End          time.Time   `json:"end"`
	EmployeeID   int         `json:"employeeId"`
	LocationID   int         `json:"locationId"`
	DepartmentID int         `json:"departmentId"`
	Status       string      `json:"status,omitempty"`
	CheckStatus  CheckStatus `json:"-"`
}

// Excluded reports whether an earlier rule removed the event from evaluation
func (e *EventRecord) Excluded() bool {
	return e.CheckStatus == StatusExcluded
}

// Exclude removes the event from every later rule in the run. It cannot be undone.
func (e *EventRecord) Exclude() {
	e.CheckStatus = StatusExcluded
}

// Duration is the scheduled length of the event
func (e *EventRecord) Duration() time.Duration {
	return e.End.Sub(e.Start)
}

// IsRest reports whether the status text equals marker once trimmed and case-folded
func (e *EventRecord) IsRest(marker string) bool {
	return strings.EqualFold(strings.TrimSpace(e.Status), strings.TrimSpace(marker))
}

// EmployeeProfile holds the optional labor-time thresholds of one employee.
// A nil threshold means no bound is recorded and the related check is skipped.
type EmployeeProfile struct {
	EmployeeID               int      `json:"employeeId" yaml:"employeeId"`
	Name                     string   `json:"name,omitempty" yaml:"name,omitempty"`
	MaxWeeklyHours           *float64 `json:"maxWeeklyHours,omitempty" yaml:"maxWeeklyHours,omitempty"`
	MinDailyHours            *float64 `json:"minDailyHours,omitempty" yaml:"minDailyHours,omitempty"`
	MaxDailyHours            *float64 `json:"maxDailyHours,omitempty" yaml:"maxDailyHours,omitempty"`
	MinGapBetweenShiftsHours *float64 `json:"minGapBetweenShiftsHours,omitempty" yaml:"minGapBetweenShiftsHours,omitempty"`
	MinWeeklyRestHours       *float64 `json:"minWeeklyRestHours,omitempty" yaml:"minWeeklyRestHours,omitempty"`
}

// Clone returns a deep copy; the thresholds of the copy point to fresh values
func (p EmployeeProfile) Clone() EmployeeProfile {
	copyHours := func(h *float64) *float64 {
		if h == nil {
			return nil
		}
		v := *h
		return &v
	}
	p.MaxWeeklyHours = copyHours(p.MaxWeeklyHours)
	p.MinDailyHours = copyHours(p.MinDailyHours)
	p.MaxDailyHours = copyHours(p.MaxDailyHours)
	p.MinGapBetweenShiftsHours = copyHours(p.MinGapBetweenShiftsHours)
	p.MinWeeklyRestHours = copyHours(p.MinWeeklyRestHours)
	return p
}

// Hours returns a pointer to h, for building profiles inline
func Hours(h float64) *float64 {
	return &h
}

// ReferencePeriod is the analysis window of a batch. LocationID and DepartmentID
// scope the batch and are not read by the built-in rules.
type ReferencePeriod struct {
	Start        time.Time `json:"start"`
	End          time.Time `json:"end"`
	LocationID   int       `json:"locationId,omitempty"`
	DepartmentID int       `json:"departmentId,omitempty"`
}

// EmployeeContext aggregates one employee's events, profile and reference period
// for a single rule chain run. Events are owned by the context and shared by
// pointer across all rules of the run, so exclusions are visible downstream.
type EmployeeContext struct {
	EmployeeID int
	Period     ReferencePeriod
	Profile    EmployeeProfile
	Events     []*EventRecord
	RestMarker string
}

// NewEmployeeContext copies events into a context-owned arena. The caller's
// records are never modified by the run.
func NewEmployeeContext(employeeID int, period ReferencePeriod, profile EmployeeProfile, events []EventRecord) *EmployeeContext {
	arena := make([]EventRecord, len(events))
	copy(arena, events)

	ptrs := make([]*EventRecord, len(arena))
	for i := range arena {
		ptrs[i] = &arena[i]
	}

	return &EmployeeContext{
		EmployeeID: employeeID,
		Period:     period,
		Profile:    profile,
		Events:     ptrs,
		RestMarker: DefaultRestMarker,
	}
}

// Eligible returns the events not yet excluded, in input order
func (c *EmployeeContext) Eligible() []*EventRecord {
	eligible := make([]*EventRecord, 0, len(c.Events))
	for _, evt := range c.Events {
		if !evt.Excluded() {
			eligible = append(eligible, evt)
		}
	}
	return eligible
}

// Working returns the eligible events that are not rest days, ordered by start
func (c *EmployeeContext) Working() []*EventRecord {
	marker := c.RestMarker
	if marker == "" {
		marker = DefaultRestMarker
	}

	working := make([]*EventRecord, 0, len(c.Events))
	for _, evt := range c.Eligible() {
		if !evt.IsRest(marker) {
			working = append(working, evt)
		}
	}

	sort.SliceStable(working, func(i, j int) bool {
		return working[i].Start.Before(working[j].Start)
	})
	return working
}
