package attendance

import (
	"time"

	"github.com/cmlabs-hris/hris-timesheet-go/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-timesheet-go/internal/pkg/civil"
	"github.com/shopspring/decimal"
)

var secondsPerHour = decimal.NewFromInt(3600)

// Durations is the hour breakdown of one record.
type Durations struct {
	PlannedHours       decimal.Decimal
	ActualHours        decimal.Decimal
	WorkingHours       decimal.Decimal
	FinalHours         decimal.Decimal
	OvertimeHours      decimal.Decimal
	HasLunchBreak      bool
	IsScheduledWorkday bool

	// Overnight is set when the shift is treated as crossing midnight, either
	// from the schedule or from the observed clock times.
	Overnight bool

	// CheckOut is the check-out after the midnight adjustment.
	CheckOut *civil.DateTime
}

// CalculateDurations computes worked, credited and overtime hours for one
// group. It returns attendance.ErrNegativeDuration when the punches still
// yield a negative span after the midnight adjustment; the returned
// Durations then carry zero hours.
func CalculateDurations(p Punches, res Resolution, policy attendance.Policy) (Durations, error) {
	d := Durations{
		PlannedHours:       res.PlannedHours,
		IsScheduledWorkday: res.IsWorkday(),
		Overnight:          isOvernight(p, res),
		CheckOut:           p.CheckOut,
	}

	complete := p.CheckIn != nil && p.CheckOut != nil

	var worked time.Duration
	if complete {
		out := *p.CheckOut
		if d.Overnight && out.Before(*p.CheckIn) {
			out = out.AddDays(1)
		}
		d.CheckOut = &out

		worked = out.Sub(*p.CheckIn)
		if worked < 0 {
			return d, attendance.ErrNegativeDuration
		}
	}

	shift := worked
	if !complete && res.IsWorkday() {
		shift = plannedSpan(res.PlannedStart, res.PlannedEnd)
	}
	d.HasLunchBreak = lunchApplies(policy, shift, d.Overnight)

	working := worked
	if complete && d.HasLunchBreak {
		working = max(worked-policy.LunchDeduction, 0)
	}

	d.ActualHours = hoursOf(worked)
	d.WorkingHours = hoursOf(working)

	if d.IsScheduledWorkday {
		d.FinalHours = decimal.Min(d.WorkingHours, d.PlannedHours)
		d.OvertimeHours = decimal.Max(decimal.Zero, d.WorkingHours.Sub(d.PlannedHours))
	} else {
		d.FinalHours = d.WorkingHours
		d.OvertimeHours = decimal.Zero
	}

	return d, nil
}

// isOvernight applies the midnight-crossing rule: a working schedule decides
// by its planned times; otherwise the observed check-out clock being earlier
// than the check-in clock does.
func isOvernight(p Punches, res Resolution) bool {
	if res.IsWorkday() {
		return res.IsOvernight()
	}
	if p.CheckIn == nil || p.CheckOut == nil {
		return false
	}
	return p.CheckOut.Clock.Before(p.CheckIn.Clock)
}

// plannedSpan is the wall-clock length of a planned shift, rolled over
// midnight when end precedes start.
func plannedSpan(start, end civil.Clock) time.Duration {
	span := time.Duration(end.Seconds()-start.Seconds()) * time.Second
	if end.Before(start) {
		span += 24 * time.Hour
	}
	return span
}

func lunchApplies(policy attendance.Policy, shift time.Duration, overnight bool) bool {
	if policy.LunchDeduction <= 0 || shift <= policy.LunchThreshold {
		return false
	}
	return !overnight || policy.NightShiftLunch
}

// hoursOf converts d to hours at whole-second precision, rounded to 2 places.
func hoursOf(d time.Duration) decimal.Decimal {
	secs := int64(d / time.Second)
	return decimal.NewFromInt(secs).Div(secondsPerHour).Round(2)
}
