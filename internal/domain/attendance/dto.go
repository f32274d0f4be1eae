package attendance

import (
	"strings"
	"time"

	"github.com/cmlabs-hris/hris-timesheet-go/internal/pkg/civil"
	"github.com/cmlabs-hris/hris-timesheet-go/internal/pkg/validator"
)

// ========================================
// RECOMPUTATION DTOs
// ========================================

// RecomputeRequest selects the filter window of a recomputation run.
type RecomputeRequest struct {
	Month        string `json:"month"`                  // YYYY-MM, required
	Organization string `json:"organization,omitempty"` // optional
	Department   string `json:"department,omitempty"`   // optional
}

func (r *RecomputeRequest) Validate() error {
	var errs validator.ValidationErrors

	r.Month = strings.TrimSpace(r.Month)
	r.Organization = strings.TrimSpace(r.Organization)
	r.Department = strings.TrimSpace(r.Department)

	if validator.IsEmpty(r.Month) {
		errs = append(errs, validator.ValidationError{
			Field:   "month",
			Message: "month is required",
		})
	} else if _, valid := validator.IsValidMonth(r.Month); !valid {
		errs = append(errs, validator.ValidationError{
			Field:   "month",
			Message: "month must be in YYYY-MM format",
		})
	}

	if r.Organization != "" && !validator.IsValidCode(r.Organization) {
		errs = append(errs, validator.ValidationError{
			Field:   "organization",
			Message: "invalid organization code",
		})
	}

	if r.Department != "" && !validator.IsValidCode(r.Department) {
		errs = append(errs, validator.ValidationError{
			Field:   "department",
			Message: "invalid department code",
		})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

// Scope returns the exact record scope of the request. Call Validate first.
func (r RecomputeRequest) Scope() (Scope, error) {
	year, month, err := civil.ParseMonth(r.Month)
	if err != nil {
		return Scope{}, err
	}
	from, to := civil.MonthRange(year, month)
	return Scope{
		Organization: r.Organization,
		Department:   r.Department,
		From:         from,
		To:           to,
	}, nil
}

// Scope is the set of (employee, date) keys a run owns. Empty organization or
// department widen the scope.
type Scope struct {
	Organization string
	Department   string
	From         civil.Date
	To           civil.Date // inclusive
}

// Contains reports whether date lies inside the scope's date window.
func (s Scope) Contains(date civil.Date) bool {
	return !date.Before(s.From) && !date.After(s.To)
}

// Days lists every date of the scope in order.
func (s Scope) Days() []civil.Date {
	var days []civil.Date
	for d := s.From; !d.After(s.To); d = d.AddDays(1) {
		days = append(days, d)
	}
	return days
}

// GroupFailure records why one (employee, date) group could not be written.
type GroupFailure struct {
	Organization   string `json:"organization"`
	EmployeeNumber string `json:"employee_number"`
	Date           string `json:"date"`
	Reason         string `json:"reason"`
}

// RunSummary is the aggregate outcome of one recomputation run.
type RunSummary struct {
	RunID                    string         `json:"run_id"`
	Month                    string         `json:"month"`
	Organization             string         `json:"organization,omitempty"`
	Department               string         `json:"department,omitempty"`
	ProcessedCount           int            `json:"processed_count"`
	FailedCount              int            `json:"failed_count"`
	Failures                 []GroupFailure `json:"failures,omitempty"`
	TotalRawEventsConsidered int            `json:"total_raw_events_considered"`
	MalformedEventCount      int            `json:"malformed_event_count"`
	DeletedPriorRecordCount  int64          `json:"deleted_prior_record_count"`
	StartedAt                time.Time      `json:"started_at"`
	FinishedAt               time.Time      `json:"finished_at"`
}

// ========================================
// PROGRESS
// ========================================

type Phase string

const (
	PhaseDeleting   Phase = "deleting"
	PhaseLoading    Phase = "loading"
	PhaseProcessing Phase = "processing"
	PhaseDone       Phase = "done"
	PhaseFailed     Phase = "failed"
)

// Progress is a point-in-time snapshot of a running recomputation.
type Progress struct {
	RunID     string `json:"run_id"`
	Phase     Phase  `json:"phase"`
	Total     int    `json:"total"`
	Processed int    `json:"processed"`
	Failed    int    `json:"failed"`
}

// ProgressSink receives progress of one run. Implementations must be safe for
// concurrent use; Report is called from worker goroutines.
type ProgressSink interface {
	Report(p Progress)
}

// ProgressFunc adapts a function to ProgressSink.
type ProgressFunc func(p Progress)

func (f ProgressFunc) Report(p Progress) { f(p) }

// NopProgress discards progress.
var NopProgress ProgressSink = ProgressFunc(func(Progress) {})

// ========================================
// LISTING DTOs
// ========================================

type RecordFilter struct {
	Month          string  `json:"month"` // YYYY-MM, required
	Organization   *string `json:"organization,omitempty"`
	Department     *string `json:"department,omitempty"`
	EmployeeNumber *string `json:"employee_number,omitempty"`
	Status         *string `json:"status,omitempty"`

	// Pagination
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

func (f *RecordFilter) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(f.Month) {
		errs = append(errs, validator.ValidationError{
			Field:   "month",
			Message: "month is required",
		})
	} else if _, valid := validator.IsValidMonth(f.Month); !valid {
		errs = append(errs, validator.ValidationError{
			Field:   "month",
			Message: "month must be in YYYY-MM format",
		})
	}

	if f.Organization != nil && !validator.IsValidCode(*f.Organization) {
		errs = append(errs, validator.ValidationError{
			Field:   "organization",
			Message: "invalid organization code",
		})
	}

	if f.Department != nil && !validator.IsValidCode(*f.Department) {
		errs = append(errs, validator.ValidationError{
			Field:   "department",
			Message: "invalid department code",
		})
	}

	if f.EmployeeNumber != nil && !validator.IsValidEmployeeNumber(*f.EmployeeNumber) {
		errs = append(errs, validator.ValidationError{
			Field:   "employee_number",
			Message: "invalid employee number",
		})
	}

	if f.Status != nil && !validator.IsInSlice(*f.Status, StatusValues) {
		errs = append(errs, validator.ValidationError{
			Field:   "status",
			Message: "status must be one of: " + strings.Join(StatusValues, ", "),
		})
	}

	// Page validation
	if f.Page < 0 {
		errs = append(errs, validator.ValidationError{
			Field:   "page",
			Message: "page must be a positive number",
		})
	}
	if f.Page == 0 {
		f.Page = 1 // Default page
	}

	// Limit validation
	if f.Limit < 0 {
		errs = append(errs, validator.ValidationError{
			Field:   "limit",
			Message: "limit must be a positive number",
		})
	}
	if f.Limit == 0 {
		f.Limit = 50
	}
	if f.Limit > 500 {
		errs = append(errs, validator.ValidationError{
			Field:   "limit",
			Message: "limit must not exceed 500",
		})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

type TimeRecordResponse struct {
	Organization       string  `json:"organization"`
	EmployeeNumber     string  `json:"employee_number"`
	EmployeeName       *string `json:"employee_name,omitempty"`
	Department         *string `json:"department,omitempty"`
	Date               string  `json:"date"`
	ScheduleCode       string  `json:"schedule_code,omitempty"`
	CheckIn            *string `json:"check_in,omitempty"`
	CheckOut           *string `json:"check_out,omitempty"`
	PlannedHours       string  `json:"planned_hours"`
	ActualHours        string  `json:"actual_hours"`
	FinalHours         string  `json:"final_hours"`
	OvertimeHours      string  `json:"overtime_hours"`
	LateMinutes        int     `json:"late_minutes"`
	EarlyLeaveMinutes  int     `json:"early_leave_minutes"`
	Status             string  `json:"status"`
	IsNightShift       bool    `json:"is_night_shift"`
	IsScheduledWorkday bool    `json:"is_scheduled_workday"`
	HasLunchBreak      bool    `json:"has_lunch_break"`
	PunchInferred      bool    `json:"punch_inferred"`
}

type ListRecordsResponse struct {
	TotalCount int64                `json:"total_count"`
	Page       int                  `json:"page"`
	Limit      int                  `json:"limit"`
	TotalPages int                  `json:"total_pages"`
	Showing    string               `json:"showing"`
	Records    []TimeRecordResponse `json:"records"`
}
