package postgresql

import (
	"context"
	"fmt"
	"time"

	"github.com/cmlabs-hris/hris-timesheet-go/internal/domain/schedule"
	"github.com/cmlabs-hris/hris-timesheet-go/internal/pkg/civil"
	"github.com/cmlabs-hris/hris-timesheet-go/internal/pkg/database"
)

type scheduleRepository struct {
	db *database.DB
}

// ListSchedules implements schedule.ScheduleRepository.
func (r *scheduleRepository) ListSchedules(ctx context.Context, organization string, codes []string) ([]schedule.Schedule, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT organization_code, schedule_code, name
		FROM schedules
		WHERE schedule_code = ANY($1)
		  AND ($2::text = '' OR organization_code = $2)
		ORDER BY organization_code, schedule_code
	`

	rows, err := q.Query(ctx, query, codes, organization)
	if err != nil {
		return nil, fmt.Errorf("failed to query schedules: %w", err)
	}
	defer rows.Close()

	var schedules []schedule.Schedule
	for rows.Next() {
		var s schedule.Schedule
		if err := rows.Scan(&s.Organization, &s.Code, &s.Name); err != nil {
			return nil, fmt.Errorf("failed to scan schedule: %w", err)
		}
		schedules = append(schedules, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating schedules: %w", err)
	}

	return schedules, nil
}

// ListDays implements schedule.ScheduleRepository.
func (r *scheduleRepository) ListDays(ctx context.Context, organization string, codes []string, from, to civil.Date) ([]schedule.ScheduleDay, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT organization_code, schedule_code, work_date, day_kind,
			   COALESCE(planned_start::text, ''), COALESCE(planned_end::text, ''), planned_hours
		FROM schedule_days
		WHERE schedule_code = ANY($1)
		  AND ($2::text = '' OR organization_code = $2)
		  AND work_date BETWEEN $3 AND $4
		ORDER BY organization_code, schedule_code, work_date
	`

	rows, err := q.Query(ctx, query, codes, organization, dateParam(from), dateParam(to))
	if err != nil {
		return nil, fmt.Errorf("failed to query schedule days: %w", err)
	}
	defer rows.Close()

	var days []schedule.ScheduleDay
	for rows.Next() {
		var (
			d          schedule.ScheduleDay
			workDate   time.Time
			start, end string
		)
		if err := rows.Scan(&d.Organization, &d.ScheduleCode, &workDate, &d.DayKind, &start, &end, &d.PlannedHours); err != nil {
			return nil, fmt.Errorf("failed to scan schedule day: %w", err)
		}
		if !d.DayKind.Valid() {
			return nil, fmt.Errorf("schedule %s on %s: %w", d.ScheduleCode, workDate.Format(civil.DateLayout), schedule.ErrInvalidDayKind)
		}

		d.Date = civil.DateOf(workDate)
		if d.PlannedStart, err = parseOptionalClock(start); err != nil {
			return nil, fmt.Errorf("schedule %s planned start: %w", d.ScheduleCode, err)
		}
		if d.PlannedEnd, err = parseOptionalClock(end); err != nil {
			return nil, fmt.Errorf("schedule %s planned end: %w", d.ScheduleCode, err)
		}
		days = append(days, d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating schedule days: %w", err)
	}

	return days, nil
}

// ListAssignments implements schedule.ScheduleRepository.
func (r *scheduleRepository) ListAssignments(ctx context.Context, organization string, employeeNumbers []string) ([]schedule.ScheduleAssignment, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT id::text, organization_code, employee_number, schedule_code, start_date, end_date, created_at
		FROM schedule_assignments
		WHERE employee_number = ANY($1)
		  AND ($2::text = '' OR organization_code = $2)
		ORDER BY organization_code, employee_number, start_date
	`

	rows, err := q.Query(ctx, query, employeeNumbers, organization)
	if err != nil {
		return nil, fmt.Errorf("failed to query schedule assignments: %w", err)
	}
	defer rows.Close()

	var assignments []schedule.ScheduleAssignment
	for rows.Next() {
		var (
			a         schedule.ScheduleAssignment
			startDate time.Time
			endDate   *time.Time
		)
		if err := rows.Scan(&a.ID, &a.Organization, &a.EmployeeNumber, &a.ScheduleCode, &startDate, &endDate, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan schedule assignment: %w", err)
		}
		a.StartDate = civil.DateOf(startDate)
		if endDate != nil {
			d := civil.DateOf(*endDate)
			a.EndDate = &d
		}
		assignments = append(assignments, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating schedule assignments: %w", err)
	}

	return assignments, nil
}

func parseOptionalClock(s string) (civil.Clock, error) {
	if s == "" {
		return civil.Clock{}, nil
	}
	return civil.ParseClock(s)
}

func NewScheduleRepository(db *database.DB) schedule.ScheduleRepository {
	return &scheduleRepository{db: db}
}
