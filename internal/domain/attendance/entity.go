package attendance

import (
	"time"

	"github.com/cmlabs-hris/hris-timesheet-go/internal/pkg/civil"
	"github.com/shopspring/decimal"
)

// TimeRecord is the computed attendance outcome for one employee on one date.
// Only the record upserter creates or replaces it.
type TimeRecord struct {
	Organization       string
	EmployeeNumber     string
	Date               civil.Date
	ScheduleCode       string
	CheckIn            *civil.DateTime
	CheckOut           *civil.DateTime
	PlannedHours       decimal.Decimal
	ActualHours        decimal.Decimal
	FinalHours         decimal.Decimal
	OvertimeHours      decimal.Decimal
	LateMinutes        int
	EarlyLeaveMinutes  int
	Status             Status
	IsScheduledWorkday bool
	HasLunchBreak      bool

	// PunchInferred is set when check-in/out came from the unknown-direction
	// heuristic rather than from entry/exit codes.
	PunchInferred bool

	// DTO
	EmployeeName *string
	Department   *string
}

// Key returns the upsert key of the record.
func (r TimeRecord) Key() RecordKey {
	return RecordKey{Organization: r.Organization, EmployeeNumber: r.EmployeeNumber, Date: r.Date}
}

// Validate checks the invariants every persisted record must satisfy.
func (r TimeRecord) Validate() error {
	switch {
	case r.Organization == "" || r.EmployeeNumber == "":
		return ErrInvalidRecord
	case r.Date.IsZero():
		return ErrInvalidRecord
	case !r.Status.Valid():
		return ErrInvalidRecord
	case r.FinalHours.IsNegative(), r.ActualHours.IsNegative(), r.OvertimeHours.IsNegative():
		return ErrNegativeDuration
	}
	return nil
}

type RecordKey struct {
	Organization   string
	EmployeeNumber string
	Date           civil.Date
}

func (k RecordKey) Less(o RecordKey) bool {
	if k.Organization != o.Organization {
		return k.Organization < o.Organization
	}
	if k.EmployeeNumber != o.EmployeeNumber {
		return k.EmployeeNumber < o.EmployeeNumber
	}
	return k.Date.Before(o.Date)
}

// Policy holds the tunable rules of the reconciliation engine.
type Policy struct {
	// Shifts longer than LunchThreshold get LunchDeduction subtracted.
	LunchThreshold time.Duration
	LunchDeduction time.Duration
	// NightShiftLunch applies the lunch deduction to overnight shifts too.
	NightShiftLunch bool
	// LateGrace is how far past planned start a check-in may be before it is late.
	LateGrace time.Duration
	// FillCalendar creates records for in-scope employees on days without swipes.
	FillCalendar bool
}

func DefaultPolicy() Policy {
	return Policy{
		LunchThreshold:  6 * time.Hour,
		LunchDeduction:  1 * time.Hour,
		NightShiftLunch: false,
		LateGrace:       0,
		FillCalendar:    true,
	}
}
