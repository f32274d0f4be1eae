package attendance

import (
	"slices"

	"github.com/cmlabs-hris/hris-timesheet-go/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-timesheet-go/internal/domain/employee"
	"github.com/cmlabs-hris/hris-timesheet-go/internal/domain/schedule"
	"github.com/cmlabs-hris/hris-timesheet-go/internal/pkg/civil"
	"github.com/shopspring/decimal"
)

type ResolutionSource string

const (
	SourceScheduleDay    ResolutionSource = "schedule_day"
	SourceNameDefault    ResolutionSource = "name_default"
	SourceWeekendDefault ResolutionSource = "weekend_default"
	SourceNone           ResolutionSource = "none"
)

// Resolution is the schedule that applies to one employee on one date.
type Resolution struct {
	HasSchedule  bool
	ScheduleCode string
	DayKind      schedule.DayKind
	PlannedStart civil.Clock
	PlannedEnd   civil.Clock
	PlannedHours decimal.Decimal
	Source       ResolutionSource

	// LagFallback is set when the only assignment starts after the date and
	// was used because the employee actually worked that day.
	LagFallback bool
}

// IsWorkday reports whether a working schedule with planned times applies.
func (r Resolution) IsWorkday() bool {
	return r.HasSchedule && r.DayKind == schedule.DayKindWorking
}

// IsOvernight reports whether the planned shift crosses midnight.
func (r Resolution) IsOvernight() bool {
	return r.IsWorkday() && r.PlannedEnd.Before(r.PlannedStart)
}

// PlannedWindow returns the planned start and end as wall-clock instants
// anchored on date; an overnight end lands on the following day.
func (r Resolution) PlannedWindow(date civil.Date) (civil.DateTime, civil.DateTime) {
	start := civil.Of(date, r.PlannedStart)
	end := civil.Of(date, r.PlannedEnd)
	if r.IsOvernight() {
		end = end.AddDays(1)
	}
	return start, end
}

var noSchedule = Resolution{Source: SourceNone}

type scheduleRef struct {
	organization string
	code         string
}

type dayRef struct {
	scheduleRef
	date civil.Date
}

// ScheduleResolver answers "which schedule applies" from data preloaded for a
// whole run. It is read-only after construction and safe for concurrent use.
type ScheduleResolver struct {
	policy      attendance.Policy
	schedules   map[scheduleRef]schedule.Schedule
	days        map[dayRef]schedule.ScheduleDay
	assignments map[employee.Key][]schedule.ScheduleAssignment
}

func NewScheduleResolver(
	policy attendance.Policy,
	schedules []schedule.Schedule,
	days []schedule.ScheduleDay,
	assignments []schedule.ScheduleAssignment,
) *ScheduleResolver {
	r := &ScheduleResolver{
		policy:      policy,
		schedules:   make(map[scheduleRef]schedule.Schedule, len(schedules)),
		days:        make(map[dayRef]schedule.ScheduleDay, len(days)),
		assignments: make(map[employee.Key][]schedule.ScheduleAssignment),
	}

	for _, s := range schedules {
		r.schedules[scheduleRef{s.Organization, s.Code}] = s
	}
	for _, d := range days {
		r.days[dayRef{scheduleRef{d.Organization, d.ScheduleCode}, d.Date}] = d
	}
	for _, a := range assignments {
		key := employee.Key{Organization: a.Organization, Number: a.EmployeeNumber}
		r.assignments[key] = append(r.assignments[key], a)
	}

	return r
}

// Resolve finds the schedule for emp on date. hasAttendance enables the
// paperwork-lag fallback to a single future-dated assignment.
func (r *ScheduleResolver) Resolve(emp employee.Key, date civil.Date, hasAttendance bool) Resolution {
	assignment, lag, ok := selectAssignment(r.assignments[emp], date, hasAttendance)
	if !ok {
		return noSchedule
	}

	ref := scheduleRef{emp.Organization, assignment.ScheduleCode}
	res := Resolution{
		HasSchedule:  true,
		ScheduleCode: assignment.ScheduleCode,
		LagFallback:  lag,
	}

	if day, found := r.days[dayRef{ref, date}]; found {
		res.DayKind = day.DayKind
		res.Source = SourceScheduleDay
		if day.DayKind == schedule.DayKindWorking {
			res.PlannedStart = day.PlannedStart
			res.PlannedEnd = day.PlannedEnd
			res.PlannedHours = day.PlannedHours
		}
		return res
	}

	if s, found := r.schedules[ref]; found {
		if start, end, parsed := schedule.ParseNameRange(s.Name); parsed {
			res.DayKind = schedule.DayKindWorking
			res.Source = SourceNameDefault
			res.PlannedStart = start
			res.PlannedEnd = end
			res.PlannedHours = r.defaultPlannedHours(start, end)
			return res
		}
	}

	if date.IsWeekend() {
		res.DayKind = schedule.DayKindDayOff
		res.Source = SourceWeekendDefault
		return res
	}

	return noSchedule
}

// defaultPlannedHours derives planned hours from a name-encoded range, with
// the lunch policy applied the same way as for actual work.
func (r *ScheduleResolver) defaultPlannedHours(start, end civil.Clock) decimal.Decimal {
	span := plannedSpan(start, end)
	if lunchApplies(r.policy, span, end.Before(start)) {
		span -= r.policy.LunchDeduction
	}
	return hoursOf(max(span, 0))
}

// selectAssignment picks the assignment covering date. Overlaps are broken by
// latest StartDate, then latest CreatedAt, then greatest ID.
func selectAssignment(assignments []schedule.ScheduleAssignment, date civil.Date, hasAttendance bool) (schedule.ScheduleAssignment, bool, bool) {
	var covering, future []schedule.ScheduleAssignment
	for _, a := range assignments {
		switch {
		case a.Covers(date):
			covering = append(covering, a)
		case a.StartDate.After(date):
			future = append(future, a)
		}
	}

	if len(covering) > 0 {
		return slices.MinFunc(covering, compareAssignmentPriority), false, true
	}

	if hasAttendance && len(future) == 1 {
		return future[0], true, true
	}

	return schedule.ScheduleAssignment{}, false, false
}

// compareAssignmentPriority orders higher-priority assignments first.
func compareAssignmentPriority(a, b schedule.ScheduleAssignment) int {
	if c := b.StartDate.Compare(a.StartDate); c != 0 {
		return c
	}
	if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
		return c
	}
	switch {
	case a.ID > b.ID:
		return -1
	case a.ID < b.ID:
		return 1
	}
	return 0
}
