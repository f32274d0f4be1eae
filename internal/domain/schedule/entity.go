package schedule

import (
	"time"

	"github.com/cmlabs-hris/hris-timesheet-go/internal/pkg/civil"
	"github.com/shopspring/decimal"
)

// Schedule is a named work schedule imported from the HR system. Names often
// encode the time range, e.g. "09:00-18:00/office".
type Schedule struct {
	Code         string
	Organization string
	Name         string
}

type DayKind string

const (
	DayKindWorking DayKind = "working"
	DayKindDayOff  DayKind = "day_off"
)

func (k DayKind) Valid() bool {
	return k == DayKindWorking || k == DayKindDayOff
}

// ScheduleDay is one schedule's definition for a single calendar date.
// PlannedEnd before PlannedStart means the shift crosses midnight.
type ScheduleDay struct {
	Organization string
	ScheduleCode string
	Date         civil.Date
	DayKind      DayKind
	PlannedStart civil.Clock
	PlannedEnd   civil.Clock
	PlannedHours decimal.Decimal
}

// IsOvernight reports whether the planned shift ends on the next calendar day.
func (d ScheduleDay) IsOvernight() bool {
	return d.PlannedEnd.Before(d.PlannedStart)
}

// ScheduleAssignment binds an employee to a schedule over [StartDate, EndDate].
// A nil EndDate means the assignment is still active.
type ScheduleAssignment struct {
	ID             string
	Organization   string
	EmployeeNumber string
	ScheduleCode   string
	StartDate      civil.Date
	EndDate        *civil.Date
	CreatedAt      time.Time
}

// Covers reports whether date falls inside the assignment's range.
func (a ScheduleAssignment) Covers(date civil.Date) bool {
	if date.Before(a.StartDate) {
		return false
	}
	return a.EndDate == nil || !date.After(*a.EndDate)
}
