// Package generated holds the fact types exposed to expression rules.
//
// Each type converts to the map form that the CEL activation expects. Optional
// profile thresholds are only present in the map when set, so expressions test
// them with has().
package generated

import "time"

// Shift is the event-level view: one working shift
type Shift struct {
	ID           int       `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Start        time.Time `json:"start"`
	End          time.Time `json:"end"`
	Hours        float64   `json:"hours"`
	EmployeeID   int       `json:"employeeId"`
	LocationID   int       `json:"locationId"`
	DepartmentID int       `json:"departmentId"`
	Status       string    `json:"status"`
}

// Map returns the activation value of the shift
func (s Shift) Map() map[string]any {
	return map[string]any{
		"id":           int64(s.ID),
		"title":        s.Title,
		"description":  s.Description,
		"start":        s.Start,
		"end":          s.End,
		"hours":        s.Hours,
		"employeeId":   int64(s.EmployeeID),
		"locationId":   int64(s.LocationID),
		"departmentId": int64(s.DepartmentID),
		"status":       s.Status,
	}
}

// Profile is the employee's threshold view
type Profile struct {
	EmployeeID               int      `json:"employeeId"`
	MaxWeeklyHours           *float64 `json:"maxWeeklyHours,omitempty"`
	MinDailyHours            *float64 `json:"minDailyHours,omitempty"`
	MaxDailyHours            *float64 `json:"maxDailyHours,omitempty"`
	MinGapBetweenShiftsHours *float64 `json:"minGapBetweenShiftsHours,omitempty"`
	MinWeeklyRestHours       *float64 `json:"minWeeklyRestHours,omitempty"`
}

// Map returns the activation value of the profile, omitting unset thresholds
func (p Profile) Map() map[string]any {
	m := map[string]any{"employeeId": int64(p.EmployeeID)}
	set := func(name string, v *float64) {
		if v != nil {
			m[name] = *v
		}
	}
	set("maxWeeklyHours", p.MaxWeeklyHours)
	set("minDailyHours", p.MinDailyHours)
	set("maxDailyHours", p.MaxDailyHours)
	set("minGapBetweenShiftsHours", p.MinGapBetweenShiftsHours)
	set("minWeeklyRestHours", p.MinWeeklyRestHours)
	return m
}

// Period is the employee's aggregate view of the reference period
type Period struct {
	Start        time.Time `json:"start"`
	End          time.Time `json:"end"`
	LocationID   int       `json:"locationId"`
	DepartmentID int       `json:"departmentId"`

	// Derived from the working shifts still eligible when the rule runs
	TotalHours float64 `json:"totalHours"`
	ShiftCount int     `json:"shiftCount"`
	Days       int     `json:"days"`
}

// Map returns the activation value of the period
func (p Period) Map() map[string]any {
	return map[string]any{
		"start":        p.Start,
		"end":          p.End,
		"locationId":   int64(p.LocationID),
		"departmentId": int64(p.DepartmentID),
		"totalHours":   p.TotalHours,
		"shiftCount":   int64(p.ShiftCount),
		"days":         int64(p.Days),
	}
}
