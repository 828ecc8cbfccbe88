package rules

// IntervalSanityRule excludes events whose time span is inverted or lies
// entirely outside the reference period.
type IntervalSanityRule struct {
	check
}

// NewIntervalSanityRule creates the interval sanity check
func NewIntervalSanityRule() *IntervalSanityRule {
	return &IntervalSanityRule{check: check{name: "interval-sanity", priority: PriorityIntervalSanity}}
}

// Evaluate records an Error for end <= start and a Warning for spans outside the
// period. Both exclude the event.
func (r *IntervalSanityRule) Evaluate(ctx *EmployeeContext) (bool, []Outcome) {
	r.begin()

	for _, evt := range ctx.Eligible() {
		details := Details{Start: evt.Start, End: evt.End, Title: evt.Title}

		switch {
		case !evt.End.After(evt.Start):
			r.record(ctx, evt.ID, SeverityError, CodeIntervalInverted, details)
			evt.Exclude()
		case evt.End.Before(ctx.Period.Start) || evt.Start.After(ctx.Period.End):
			r.record(ctx, evt.ID, SeverityWarning, CodeIntervalOutsidePeriod, details)
			evt.Exclude()
		}
	}

	return r.result()
}
