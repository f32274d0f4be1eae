package attendance

import (
	"time"

	"github.com/cmlabs-hris/hris-timesheet-go/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-timesheet-go/internal/domain/schedule"
	"github.com/cmlabs-hris/hris-timesheet-go/internal/pkg/civil"
)

// Facts is everything the status decision table looks at.
type Facts struct {
	Date       civil.Date
	Today      civil.Date
	Resolution Resolution
	CheckIn    *civil.DateTime
	// CheckOut is already adjusted for midnight crossing.
	CheckOut        *civil.DateTime
	Overnight       bool
	InvalidDuration bool
	LateGrace       time.Duration
}

func (f Facts) dayOff() bool {
	return f.Resolution.HasSchedule && f.Resolution.DayKind == schedule.DayKindDayOff
}

func (f Facts) noSchedule() bool {
	return !f.Resolution.HasSchedule
}

func (f Facts) working() bool {
	return f.Resolution.IsWorkday()
}

func (f Facts) future() bool {
	return f.Date.After(f.Today)
}

// LateBy is how far the check-in is past the planned start, or zero.
func (f Facts) LateBy() time.Duration {
	if !f.working() || f.CheckIn == nil {
		return 0
	}
	start, _ := f.Resolution.PlannedWindow(f.Date)
	return max(f.CheckIn.Sub(start), 0)
}

// EarlyBy is how far the check-out is before the planned end, or zero.
func (f Facts) EarlyBy() time.Duration {
	if !f.working() || f.CheckOut == nil {
		return 0
	}
	_, end := f.Resolution.PlannedWindow(f.Date)
	return max(end.Sub(*f.CheckOut), 0)
}

// Rule is one row of the status decision table.
type Rule struct {
	Name   string
	Match  func(f Facts) bool
	Status attendance.Status
}

// Rules is evaluated top to bottom; the first match wins. Statuses with a
// night-shift counterpart are swapped for it when the shift is overnight.
var Rules = []Rule{
	{
		Name:   "invalid duration",
		Match:  func(f Facts) bool { return f.InvalidDuration },
		Status: attendance.StatusInvalidDuration,
	},
	{
		Name:   "day off without check-in",
		Match:  func(f Facts) bool { return f.dayOff() && f.CheckIn == nil },
		Status: attendance.StatusWeekend,
	},
	{
		Name:   "day off worked",
		Match:  func(f Facts) bool { return f.dayOff() && f.CheckIn != nil },
		Status: attendance.StatusWeekendWorked,
	},
	{
		Name:   "no schedule, future",
		Match:  func(f Facts) bool { return f.noSchedule() && f.CheckIn == nil && f.future() },
		Status: attendance.StatusPlanned,
	},
	{
		Name:   "no schedule, absent",
		Match:  func(f Facts) bool { return f.noSchedule() && f.CheckIn == nil },
		Status: attendance.StatusAbsent,
	},
	{
		Name:   "no schedule, worked",
		Match:  func(f Facts) bool { return f.noSchedule() },
		Status: attendance.StatusNoScheduleWorked,
	},
	{
		Name:   "scheduled, future",
		Match:  func(f Facts) bool { return f.working() && f.CheckIn == nil && f.future() },
		Status: attendance.StatusPlanned,
	},
	{
		Name:   "scheduled, absent",
		Match:  func(f Facts) bool { return f.working() && f.CheckIn == nil },
		Status: attendance.StatusAbsent,
	},
	{
		Name:   "no exit",
		Match:  func(f Facts) bool { return f.CheckOut == nil },
		Status: attendance.StatusNoExit,
	},
	{
		Name:   "late",
		Match:  func(f Facts) bool { return f.LateBy() > f.LateGrace },
		Status: attendance.StatusLate,
	},
	{
		Name:   "early leave",
		Match:  func(f Facts) bool { return f.EarlyBy() > 0 },
		Status: attendance.StatusEarlyLeave,
	},
	{
		Name:   "on time",
		Match:  func(f Facts) bool { return true },
		Status: attendance.StatusOnTime,
	},
}

// Classify returns the status of the first matching rule.
func Classify(f Facts) attendance.Status {
	for _, rule := range Rules {
		if !rule.Match(f) {
			continue
		}
		if f.Overnight {
			return rule.Status.NightVariant()
		}
		return rule.Status
	}
	return attendance.StatusOnTime
}
