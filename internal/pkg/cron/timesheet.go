package cron

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/hris-timesheet-go/internal/domain/attendance"
)

// TimesheetJobs keeps the current month's records fresh. During the first
// days of a month the previous month is rebuilt as well, so late swipes and
// schedule corrections still land.
type TimesheetJobs struct {
	attendanceService attendance.AttendanceService
	location          *time.Location
	recomputeHour     int
	previousMonthDays int
	now               func() time.Time
}

func NewTimesheetJobs(
	attendanceService attendance.AttendanceService,
	location *time.Location,
	recomputeHour int,
	previousMonthDays int,
	now func() time.Time,
) *TimesheetJobs {
	if location == nil {
		location = time.Local
	}
	if now == nil {
		now = time.Now
	}
	return &TimesheetJobs{
		attendanceService: attendanceService,
		location:          location,
		recomputeHour:     recomputeHour,
		previousMonthDays: previousMonthDays,
		now:               now,
	}
}

func (j *TimesheetJobs) RegisterJobs(scheduler *Scheduler) {
	scheduler.AddJob("recompute_current_month", 1*time.Hour, j.RecomputeScheduled)
}

// RecomputeScheduled runs once per day, in the configured hour.
func (j *TimesheetJobs) RecomputeScheduled(ctx context.Context) error {
	if j.now().In(j.location).Hour() != j.recomputeHour {
		return nil
	}
	return j.RecomputeDue(ctx)
}

// RecomputeDue rebuilds every month currently due, regardless of the hour.
func (j *TimesheetJobs) RecomputeDue(ctx context.Context) error {
	var errs []error
	for _, month := range j.DueMonths() {
		slog.Info("Cron: Starting timesheet recompute", "month", month)

		summary, err := j.attendanceService.Recompute(ctx, attendance.RecomputeRequest{Month: month}, attendance.NopProgress)
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to recompute %s: %w", month, err))
			continue
		}

		slog.Info("Cron: Timesheet recompute completed",
			"month", month,
			"run_id", summary.RunID,
			"processed", summary.ProcessedCount,
			"failed", summary.FailedCount,
			"malformed_events", summary.MalformedEventCount,
		)
	}
	return errors.Join(errs...)
}

// DueMonths lists the months to rebuild today, oldest first.
func (j *TimesheetJobs) DueMonths() []string {
	now := j.now().In(j.location)
	current := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, j.location)

	var months []string
	if now.Day() <= j.previousMonthDays {
		months = append(months, current.AddDate(0, -1, 0).Format("2006-01"))
	}
	return append(months, current.Format("2006-01"))
}
