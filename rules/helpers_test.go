package rules

import "time"

// ts is an instant in January 2023, UTC
func ts(day, hour, minute int) time.Time {
	return time.Date(2023, 1, day, hour, minute, 0, 0, time.UTC)
}

// shift builds a working event at location 1, department 1
func shift(id, employee int, start, end time.Time) EventRecord {
	return EventRecord{
		ID:           id,
		Title:        "Banco",
		Start:        start,
		End:          end,
		EmployeeID:   employee,
		LocationID:   1,
		DepartmentID: 1,
		Status:       "bozza",
	}
}

func rest(id, employee, day int) EventRecord {
	evt := shift(id, employee, ts(day, 0, 0), ts(day, 23, 59).Add(59*time.Second))
	evt.Title = "Riposo"
	evt.Status = "Riposo "
	return evt
}

// week is Monday 2 to Sunday 8 January 2023
func week() ReferencePeriod {
	return ReferencePeriod{
		Start: ts(2, 0, 0),
		End:   ts(8, 23, 59).Add(59 * time.Second),
	}
}

// fullProfile sets every threshold the built-in checks read
func fullProfile(employee int) EmployeeProfile {
	return EmployeeProfile{
		EmployeeID:               employee,
		MaxDailyHours:            Hours(13),
		MinDailyHours:            Hours(3),
		MinGapBetweenShiftsHours: Hours(11),
		MinWeeklyRestHours:       Hours(24),
	}
}

func newContext(profile EmployeeProfile, events ...EventRecord) *EmployeeContext {
	return NewEmployeeContext(profile.EmployeeID, week(), profile, events)
}

func codesOf(outcomes []Outcome) []Code {
	codes := make([]Code, len(outcomes))
	for i, o := range outcomes {
		codes[i] = o.Code
	}
	return codes
}

func excludedIDs(ctx *EmployeeContext) []int {
	var ids []int
	for _, evt := range ctx.Events {
		if evt.Excluded() {
			ids = append(ids, evt.ID)
		}
	}
	return ids
}
