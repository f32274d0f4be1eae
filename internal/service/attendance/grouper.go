package attendance

import (
	"cmp"
	"slices"

	"github.com/cmlabs-hris/hris-timesheet-go/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-timesheet-go/internal/domain/timeevent"
	"github.com/cmlabs-hris/hris-timesheet-go/internal/pkg/civil"
)

// noon splits a lone unknown-direction swipe into entry (before) or exit.
var noon = civil.Clock{Hour: 12}

// Punches is the check-in/check-out pair extracted from one day's swipes.
type Punches struct {
	CheckIn  *civil.DateTime
	CheckOut *civil.DateTime

	// Inferred marks a pair derived from unknown-direction swipes. The
	// heuristic cannot be made reliable from timestamps alone, so callers
	// should surface it.
	Inferred bool
}

func (p Punches) Any() bool {
	return p.CheckIn != nil || p.CheckOut != nil
}

// GroupEvents partitions events per (organization, employee, calendar date).
// Each bucket is sorted by time.
func GroupEvents(events []timeevent.TimeEvent) map[attendance.RecordKey][]timeevent.TimeEvent {
	groups := make(map[attendance.RecordKey][]timeevent.TimeEvent)
	for _, ev := range events {
		key := attendance.RecordKey{
			Organization:   ev.Organization,
			EmployeeNumber: ev.EmployeeNumber,
			Date:           ev.At.Date,
		}
		groups[key] = append(groups[key], ev)
	}

	for key := range groups {
		slices.SortStableFunc(groups[key], compareEvents)
	}

	return groups
}

func compareEvents(a, b timeevent.TimeEvent) int {
	if c := a.At.Compare(b.At); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Kind, b.Kind); c != 0 {
		return c
	}
	return cmp.Compare(a.SiteCode, b.SiteCode)
}

// ExtractPunches picks the earliest entry and the latest exit. When no swipe
// carries a reliable direction it falls back to a heuristic: a lone swipe is an
// entry before noon and an exit otherwise; with two or more, the earliest is
// the entry and the latest the exit.
func ExtractPunches(events []timeevent.TimeEvent) Punches {
	if len(events) == 0 {
		return Punches{}
	}

	sorted := slices.Clone(events)
	slices.SortStableFunc(sorted, compareEvents)

	var p Punches
	reliable := false
	for i := range sorted {
		ev := sorted[i]
		switch ev.Kind {
		case timeevent.KindEntry:
			reliable = true
			if p.CheckIn == nil {
				at := ev.At
				p.CheckIn = &at
			}
		case timeevent.KindExit:
			reliable = true
			at := ev.At
			p.CheckOut = &at
		}
	}
	if reliable {
		return p
	}

	first, last := sorted[0].At, sorted[len(sorted)-1].At
	p.Inferred = true
	if len(sorted) == 1 {
		if first.Clock.Before(noon) {
			p.CheckIn = &first
		} else {
			p.CheckOut = &first
		}
		return p
	}

	p.CheckIn = &first
	p.CheckOut = &last
	return p
}
