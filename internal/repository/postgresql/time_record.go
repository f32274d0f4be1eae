package postgresql

import (
	"context"
	"fmt"
	"time"

	"github.com/cmlabs-hris/hris-timesheet-go/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-timesheet-go/internal/pkg/civil"
	"github.com/cmlabs-hris/hris-timesheet-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type timeRecordRepository struct {
	db *database.DB
}

// Upsert implements attendance.TimeRecordRepository.
func (r *timeRecordRepository) Upsert(ctx context.Context, record attendance.TimeRecord) error {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO time_records (
			organization_code, employee_number, work_date, schedule_code,
			check_in, check_out, planned_hours, actual_hours, final_hours, overtime_hours,
			late_minutes, early_leave_minutes, status,
			is_scheduled_workday, has_lunch_break, punch_inferred
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16
		)
		ON CONFLICT (organization_code, employee_number, work_date) DO UPDATE SET
			schedule_code = EXCLUDED.schedule_code,
			check_in = EXCLUDED.check_in,
			check_out = EXCLUDED.check_out,
			planned_hours = EXCLUDED.planned_hours,
			actual_hours = EXCLUDED.actual_hours,
			final_hours = EXCLUDED.final_hours,
			overtime_hours = EXCLUDED.overtime_hours,
			late_minutes = EXCLUDED.late_minutes,
			early_leave_minutes = EXCLUDED.early_leave_minutes,
			status = EXCLUDED.status,
			is_scheduled_workday = EXCLUDED.is_scheduled_workday,
			has_lunch_break = EXCLUDED.has_lunch_break,
			punch_inferred = EXCLUDED.punch_inferred
	`

	_, err := q.Exec(ctx, query,
		record.Organization,
		record.EmployeeNumber,
		dateParam(record.Date),
		record.ScheduleCode,
		dateTimeParam(record.CheckIn),
		dateTimeParam(record.CheckOut),
		record.PlannedHours,
		record.ActualHours,
		record.FinalHours,
		record.OvertimeHours,
		record.LateMinutes,
		record.EarlyLeaveMinutes,
		string(record.Status),
		record.IsScheduledWorkday,
		record.HasLunchBreak,
		record.PunchInferred,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert time record: %w", err)
	}

	return nil
}

// DeleteScope implements attendance.TimeRecordRepository.
func (r *timeRecordRepository) DeleteScope(ctx context.Context, scope attendance.Scope) (int64, error) {
	q := GetQuerier(ctx, r.db)

	baseWhere := "r.work_date BETWEEN $1 AND $2"
	args := []any{dateParam(scope.From), dateParam(scope.To)}
	argIdx := 3

	if scope.Organization != "" {
		baseWhere += fmt.Sprintf(" AND r.organization_code = $%d", argIdx)
		args = append(args, scope.Organization)
		argIdx++
	}
	if scope.Department != "" {
		baseWhere += fmt.Sprintf(` AND EXISTS (
			SELECT 1 FROM employees e
			WHERE e.organization_code = r.organization_code
			  AND e.employee_number = r.employee_number
			  AND e.department_code = $%d)`, argIdx)
		args = append(args, scope.Department)
	}

	tag, err := q.Exec(ctx, "DELETE FROM time_records r WHERE "+baseWhere, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete time records: %w", err)
	}

	return tag.RowsAffected(), nil
}

// List implements attendance.TimeRecordRepository.
func (r *timeRecordRepository) List(ctx context.Context, filter attendance.RecordFilter) ([]attendance.TimeRecord, int64, error) {
	year, month, err := civil.ParseMonth(filter.Month)
	if err != nil {
		return nil, 0, err
	}
	from, to := civil.MonthRange(year, month)

	// Build WHERE clause
	baseWhere := "r.work_date BETWEEN $1 AND $2"
	args := []any{dateParam(from), dateParam(to)}
	argIdx := 3

	if filter.Organization != nil && *filter.Organization != "" {
		baseWhere += fmt.Sprintf(" AND r.organization_code = $%d", argIdx)
		args = append(args, *filter.Organization)
		argIdx++
	}
	if filter.Department != nil && *filter.Department != "" {
		baseWhere += fmt.Sprintf(" AND e.department_code = $%d", argIdx)
		args = append(args, *filter.Department)
		argIdx++
	}
	if filter.EmployeeNumber != nil && *filter.EmployeeNumber != "" {
		baseWhere += fmt.Sprintf(" AND r.employee_number = $%d", argIdx)
		args = append(args, *filter.EmployeeNumber)
		argIdx++
	}
	if filter.Status != nil && *filter.Status != "" {
		baseWhere += fmt.Sprintf(" AND r.status = $%d", argIdx)
		args = append(args, *filter.Status)
		argIdx++
	}

	countQuery := `
		SELECT COUNT(*)
		FROM time_records r
		LEFT JOIN employees e ON e.organization_code = r.organization_code AND e.employee_number = r.employee_number
		WHERE ` + baseWhere

	selectQuery := fmt.Sprintf(`
		SELECT
			r.organization_code, r.employee_number, r.work_date, r.schedule_code,
			r.check_in, r.check_out, r.planned_hours, r.actual_hours, r.final_hours, r.overtime_hours,
			r.late_minutes, r.early_leave_minutes, r.status,
			r.is_scheduled_workday, r.has_lunch_break, r.punch_inferred,
			e.full_name, e.department_code
		FROM time_records r
		LEFT JOIN employees e ON e.organization_code = r.organization_code AND e.employee_number = r.employee_number
		WHERE %s
		ORDER BY r.organization_code, r.employee_number, r.work_date
		LIMIT $%d OFFSET $%d
	`, baseWhere, argIdx, argIdx+1)

	offset := (filter.Page - 1) * filter.Limit
	pageArgs := append(append([]any{}, args...), filter.Limit, offset)

	var (
		total   int64
		records []attendance.TimeRecord
	)

	// Count and page come from one snapshot so the totals match the rows.
	err = WithTransaction(ctx, r.db, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}, func(ctx context.Context) error {
		q := GetQuerier(ctx, r.db)

		if err := q.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
			return fmt.Errorf("failed to count time records: %w", err)
		}

		rows, err := q.Query(ctx, selectQuery, pageArgs...)
		if err != nil {
			return fmt.Errorf("failed to query time records: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			rec, err := scanTimeRecord(rows)
			if err != nil {
				return err
			}
			records = append(records, rec)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, 0, err
	}

	return records, total, nil
}

func scanTimeRecord(rows pgx.Rows) (attendance.TimeRecord, error) {
	var (
		rec               attendance.TimeRecord
		workDate          time.Time
		checkIn, checkOut *time.Time
		status            string
	)
	err := rows.Scan(
		&rec.Organization, &rec.EmployeeNumber, &workDate, &rec.ScheduleCode,
		&checkIn, &checkOut, &rec.PlannedHours, &rec.ActualHours, &rec.FinalHours, &rec.OvertimeHours,
		&rec.LateMinutes, &rec.EarlyLeaveMinutes, &status,
		&rec.IsScheduledWorkday, &rec.HasLunchBreak, &rec.PunchInferred,
		&rec.EmployeeName, &rec.Department,
	)
	if err != nil {
		return attendance.TimeRecord{}, fmt.Errorf("failed to scan time record: %w", err)
	}

	rec.Date = civil.DateOf(workDate)
	rec.CheckIn = dateTimeFromColumn(checkIn)
	rec.CheckOut = dateTimeFromColumn(checkOut)
	if rec.Status, err = attendance.ParseStatus(status); err != nil {
		return attendance.TimeRecord{}, err
	}

	return rec, nil
}

func NewTimeRecordRepository(db *database.DB) attendance.TimeRecordRepository {
	return &timeRecordRepository{db: db}
}
