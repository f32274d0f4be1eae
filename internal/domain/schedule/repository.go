package schedule

import (
	"context"

	"github.com/cmlabs-hris/hris-timesheet-go/internal/pkg/civil"
)

// ScheduleRepository reads the data written by the schedule-import collaborator.
// The engine never writes schedules.
type ScheduleRepository interface {
	ListSchedules(ctx context.Context, organization string, codes []string) ([]Schedule, error)
	ListDays(ctx context.Context, organization string, codes []string, from, to civil.Date) ([]ScheduleDay, error)

	// ListAssignments returns every assignment for the employees regardless of
	// date, so future-dated assignments are available to the resolver fallback.
	ListAssignments(ctx context.Context, organization string, employeeNumbers []string) ([]ScheduleAssignment, error)
}
