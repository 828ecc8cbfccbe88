package rules

// WeeklyRestRule requires at least one rest gap of the profile's minimum length
// somewhere in the reference period. It does not test each week separately.
type WeeklyRestRule struct {
	check
}

// NewWeeklyRestRule creates the weekly rest check
func NewWeeklyRestRule() *WeeklyRestRule {
	return &WeeklyRestRule{check: check{name: "weekly-rest", priority: PriorityWeeklyRest}}
}

// Evaluate passes when there is no threshold, when at most one working day
// exists, or when any gap between consecutive working days reaches the minimum.
func (r *WeeklyRestRule) Evaluate(ctx *EmployeeContext) (bool, []Outcome) {
	r.begin()

	minRest := ctx.Profile.MinWeeklyRestHours
	if minRest == nil {
		return r.result()
	}

	windows := dayWindows(ctx.Working())
	if len(windows) <= 1 {
		return r.result()
	}

	longest := 0.0
	for i := 1; i < len(windows); i++ {
		gap := windows[i].first.Sub(windows[i-1].last).Hours()
		if gap >= *minRest {
			return r.result()
		}
		if gap > longest {
			longest = gap
		}
	}

	r.record(ctx, 0, SeverityError, CodeInsufficientWeeklyRest, Details{
		Day:      windows[0].key.String(),
		OtherDay: windows[len(windows)-1].key.String(),
		Hours:    longest,
		Limit:    *minRest,
	})
	return r.result()
}
