package rules

// DailyHoursRule checks the working hours credited to each calendar day against
// the profile's minimum and maximum daily hours.
type DailyHoursRule struct {
	check
}

// NewDailyHoursRule creates the daily hours check
func NewDailyHoursRule() *DailyHoursRule {
	return &DailyHoursRule{check: check{name: "daily-hours", priority: PriorityDailyHours}}
}

// Evaluate sums hours per day across working events. Midnight-spanning events
// are split at 23:59:59 of their start day. Only days with at least one
// contributing event are checked, and an unset bound is not checked.
func (r *DailyHoursRule) Evaluate(ctx *EmployeeContext) (bool, []Outcome) {
	r.begin()

	maxHours := ctx.Profile.MaxDailyHours
	minHours := ctx.Profile.MinDailyHours

	for _, w := range dayWindows(ctx.Working()) {
		hours := w.hours()
		switch {
		case maxHours != nil && hours > *maxHours:
			r.record(ctx, 0, SeverityError, CodeDailyHoursExceeded, Details{
				Day:   w.key.String(),
				Hours: hours,
				Limit: *maxHours,
			})
		case minHours != nil && hours < *minHours:
			r.record(ctx, 0, SeverityError, CodeDailyHoursBelowMinimum, Details{
				Day:   w.key.String(),
				Hours: hours,
				Limit: *minHours,
			})
		}
	}

	return r.result()
}
