package rules

import "sort"

// OverlapRule detects duplicated and overlapping assignments. It runs three
// sub-checks in order; each one sees only the events the previous ones left.
//
//  1. exact duplicates: same employee, start, end, location and department
//  2. chronological overlap within the same employee, location and department
//  3. the same time slot in the same department at different locations
type OverlapRule struct {
	check
}

// NewOverlapRule creates the overlap/duplicate check
func NewOverlapRule() *OverlapRule {
	return &OverlapRule{check: check{name: "overlap", priority: PriorityOverlap}}
}

type duplicateKey struct {
	employee, location, department int
	start, end                     int64
}

type placementKey struct {
	employee, location, department int
}

type slotKey struct {
	employee, department int
	start, end           int64
}

// Evaluate runs the three sub-checks
func (r *OverlapRule) Evaluate(ctx *EmployeeContext) (bool, []Outcome) {
	r.begin()

	r.duplicates(ctx)
	r.chronological(ctx)
	r.crossLocation(ctx)

	return r.result()
}

func (r *OverlapRule) duplicates(ctx *EmployeeContext) {
	groups := groupBy(ctx.Eligible(), func(e *EventRecord) duplicateKey {
		return duplicateKey{
			employee:   e.EmployeeID,
			location:   e.LocationID,
			department: e.DepartmentID,
			start:      e.Start.UnixNano(),
			end:        e.End.UnixNano(),
		}
	})

	for _, group := range groups {
		if len(group) < 2 {
			continue
		}
		for _, evt := range group {
			r.record(ctx, evt.ID, SeverityError, CodeDuplicateShift, Details{
				Start:        evt.Start,
				End:          evt.End,
				Title:        evt.Title,
				LocationID:   evt.LocationID,
				DepartmentID: evt.DepartmentID,
			})
			evt.Exclude()
		}
	}
}

func (r *OverlapRule) chronological(ctx *EmployeeContext) {
	groups := groupBy(ctx.Eligible(), func(e *EventRecord) placementKey {
		return placementKey{employee: e.EmployeeID, location: e.LocationID, department: e.DepartmentID}
	})

	for _, group := range groups {
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].Start.Before(group[j].Start)
		})

		// prev is a value copy so excluding the current event never changes the baseline
		var prev EventRecord
		hasPrev := false
		for _, evt := range group {
			if hasPrev && evt.Start.Before(prev.End) {
				r.record(ctx, evt.ID, SeverityError, CodeOverlappingShift, Details{
					Start:        evt.Start,
					End:          evt.End,
					Title:        evt.Title,
					OtherEventID: prev.ID,
					OtherStart:   prev.Start,
					OtherEnd:     prev.End,
					LocationID:   evt.LocationID,
					DepartmentID: evt.DepartmentID,
				})
				evt.Exclude()
			}
			prev = *evt
			hasPrev = true
		}
	}
}

func (r *OverlapRule) crossLocation(ctx *EmployeeContext) {
	groups := groupBy(ctx.Eligible(), func(e *EventRecord) slotKey {
		return slotKey{
			employee:   e.EmployeeID,
			department: e.DepartmentID,
			start:      e.Start.UnixNano(),
			end:        e.End.UnixNano(),
		}
	})

	for _, group := range groups {
		if len(group) < 2 {
			continue
		}
		for _, evt := range group {
			r.record(ctx, evt.ID, SeverityError, CodeLocationOverlap, Details{
				Start:        evt.Start,
				End:          evt.End,
				Title:        evt.Title,
				LocationID:   evt.LocationID,
				DepartmentID: evt.DepartmentID,
			})
			evt.Exclude()
		}
	}
}

// groupBy partitions events by key, keeping groups in order of first appearance
func groupBy[K comparable](events []*EventRecord, key func(*EventRecord) K) [][]*EventRecord {
	index := make(map[K]int)
	var groups [][]*EventRecord

	for _, evt := range events {
		k := key(evt)
		i, ok := index[k]
		if !ok {
			i = len(groups)
			index[k] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], evt)
	}

	return groups
}
