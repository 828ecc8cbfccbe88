package rules

import (
	"fmt"
	"sort"
	"time"
)

// dayKey is a calendar date in the location of the timestamps it came from
type dayKey struct {
	year  int
	month time.Month
	day   int
}

func dayOf(t time.Time) dayKey {
	y, m, d := t.Date()
	return dayKey{year: y, month: m, day: d}
}

func (k dayKey) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", k.year, int(k.month), k.day)
}

func (k dayKey) before(o dayKey) bool {
	if k.year != o.year {
		return k.year < o.year
	}
	if k.month != o.month {
		return k.month < o.month
	}
	return k.day < o.day
}

// splitPoint is 23:59:59 on the calendar day of t. A midnight-spanning event is
// credited to its start day up to this instant and to its end day after it.
func splitPoint(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, 0, t.Location())
}

// dayWindow accumulates the working time credited to one calendar day
type dayWindow struct {
	key      dayKey
	credited time.Duration
	first    time.Time
	last     time.Time
	events   int
}

func (w *dayWindow) hours() float64 {
	return w.credited.Hours()
}

// dayWindows splits events across calendar days and returns the per-day windows
// in chronological order. Both day buckets of a midnight-spanning event are
// created even when one of them is credited zero time.
func dayWindows(events []*EventRecord) []*dayWindow {
	byDay := make(map[dayKey]*dayWindow)

	credit := func(key dayKey, from, to time.Time) {
		w, ok := byDay[key]
		if !ok {
			w = &dayWindow{key: key, first: from, last: to}
			byDay[key] = w
		} else {
			if from.Before(w.first) {
				w.first = from
			}
			if to.After(w.last) {
				w.last = to
			}
		}
		w.credited += to.Sub(from)
		w.events++
	}

	for _, evt := range events {
		from, to := dayOf(evt.Start), dayOf(evt.End)
		if from == to {
			credit(from, evt.Start, evt.End)
			continue
		}

		split := splitPoint(evt.Start)
		if split.Before(evt.Start) {
			split = evt.Start
		}
		credit(from, evt.Start, split)
		credit(to, split, evt.End)
	}

	windows := make([]*dayWindow, 0, len(byDay))
	for _, w := range byDay {
		windows = append(windows, w)
	}
	sort.Slice(windows, func(i, j int) bool {
		return windows[i].key.before(windows[j].key)
	})
	return windows
}
