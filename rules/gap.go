package rules

// ShiftGapRule checks the rest between the last shift of a day and the first
// shift of the next working day.
type ShiftGapRule struct {
	check
}

// NewShiftGapRule creates the inter-shift gap check
func NewShiftGapRule() *ShiftGapRule {
	return &ShiftGapRule{check: check{name: "shift-gap", priority: PriorityShiftGap}}
}

// Evaluate walks the day windows in order and records an Error for every pair of
// consecutive working days whose gap is below the profile minimum. A shift that
// spans midnight joins its two days at the split instant, so their gap is zero.
func (r *ShiftGapRule) Evaluate(ctx *EmployeeContext) (bool, []Outcome) {
	r.begin()

	minGap := ctx.Profile.MinGapBetweenShiftsHours
	if minGap == nil {
		return r.result()
	}

	windows := dayWindows(ctx.Working())
	for i := 1; i < len(windows); i++ {
		prev, cur := windows[i-1], windows[i]
		gap := cur.first.Sub(prev.last).Hours()
		if gap < *minGap {
			r.record(ctx, 0, SeverityError, CodeInsufficientShiftGap, Details{
				Day:      prev.key.String(),
				OtherDay: cur.key.String(),
				Hours:    gap,
				Limit:    *minGap,
			})
		}
	}

	return r.result()
}
