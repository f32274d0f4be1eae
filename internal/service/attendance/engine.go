package attendance

import (
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/hris-timesheet-go/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-timesheet-go/internal/domain/employee"
	"github.com/cmlabs-hris/hris-timesheet-go/internal/domain/timeevent"
	"github.com/cmlabs-hris/hris-timesheet-go/internal/pkg/civil"
)

// Engine turns one (employee, date) group into a TimeRecord. It holds no
// mutable state and may be shared by workers.
type Engine struct {
	resolver *ScheduleResolver
	policy   attendance.Policy
	today    civil.Date
}

func NewEngine(resolver *ScheduleResolver, policy attendance.Policy, today civil.Date) *Engine {
	return &Engine{resolver: resolver, policy: policy, today: today}
}

// Compute runs grouping, schedule resolution, duration math and
// classification for one group. A negative span is not an error here; it is
// reported through StatusInvalidDuration with zero hours.
func (e *Engine) Compute(key attendance.RecordKey, events []timeevent.TimeEvent) (attendance.TimeRecord, error) {
	punches := ExtractPunches(events)
	emp := employee.Key{Organization: key.Organization, Number: key.EmployeeNumber}
	res := e.resolver.Resolve(emp, key.Date, punches.Any())

	durations, err := CalculateDurations(punches, res, e.policy)
	invalid := errors.Is(err, attendance.ErrNegativeDuration)
	if err != nil && !invalid {
		return attendance.TimeRecord{}, fmt.Errorf("calculate durations: %w", err)
	}

	facts := Facts{
		Date:            key.Date,
		Today:           e.today,
		Resolution:      res,
		CheckIn:         punches.CheckIn,
		CheckOut:        durations.CheckOut,
		Overnight:       durations.Overnight,
		InvalidDuration: invalid,
		LateGrace:       e.policy.LateGrace,
	}

	record := attendance.TimeRecord{
		Organization:       key.Organization,
		EmployeeNumber:     key.EmployeeNumber,
		Date:               key.Date,
		ScheduleCode:       res.ScheduleCode,
		CheckIn:            punches.CheckIn,
		CheckOut:           durations.CheckOut,
		PlannedHours:       durations.PlannedHours,
		ActualHours:        durations.ActualHours,
		FinalHours:         durations.FinalHours,
		OvertimeHours:      durations.OvertimeHours,
		Status:             Classify(facts),
		IsScheduledWorkday: durations.IsScheduledWorkday,
		HasLunchBreak:      durations.HasLunchBreak,
		PunchInferred:      punches.Inferred,
	}

	if !invalid {
		if late := facts.LateBy(); late > e.policy.LateGrace {
			record.LateMinutes = int(late / time.Minute)
		}
		if punches.CheckIn != nil {
			record.EarlyLeaveMinutes = int(facts.EarlyBy() / time.Minute)
		}
	}

	if err := record.Validate(); err != nil {
		return attendance.TimeRecord{}, fmt.Errorf("record %s/%s/%s: %w", key.Organization, key.EmployeeNumber, key.Date, err)
	}

	return record, nil
}
