package attendance

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"math"
	"runtime"
	"slices"
	"sync"
	"time"

	"github.com/cmlabs-hris/hris-timesheet-go/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-timesheet-go/internal/domain/employee"
	"github.com/cmlabs-hris/hris-timesheet-go/internal/domain/schedule"
	"github.com/cmlabs-hris/hris-timesheet-go/internal/domain/timeevent"
	"github.com/cmlabs-hris/hris-timesheet-go/internal/pkg/civil"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Options tunes the recomputation engine.
type Options struct {
	Policy attendance.Policy
	// Location is the workplace time zone used at the ingestion boundary and
	// to decide what "today" is.
	Location *time.Location
	// Workers bounds how many groups are processed at once.
	Workers int
	Now     func() time.Time
}

type AttendanceServiceImpl struct {
	attendance.TimeRecordRepository
	timeevent.TimeEventRepository
	schedule.ScheduleRepository
	employee.EmployeeRepository
	opts Options
}

// Recompute implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) Recompute(ctx context.Context, req attendance.RecomputeRequest, sink attendance.ProgressSink) (attendance.RunSummary, error) {
	if err := req.Validate(); err != nil {
		return attendance.RunSummary{}, err
	}
	if sink == nil {
		sink = attendance.NopProgress
	}

	scope, err := req.Scope()
	if err != nil {
		return attendance.RunSummary{}, err
	}

	summary := attendance.RunSummary{
		RunID:        uuid.NewString(),
		Month:        req.Month,
		Organization: req.Organization,
		Department:   req.Department,
		StartedAt:    s.opts.Now().UTC(),
	}
	progress := attendance.Progress{RunID: summary.RunID, Phase: attendance.PhaseLoading}
	sink.Report(progress)

	fail := func(err error) (attendance.RunSummary, error) {
		progress.Phase = attendance.PhaseFailed
		sink.Report(progress)
		summary.FinishedAt = s.opts.Now().UTC()
		slog.Error("Recompute failed", "run_id", summary.RunID, "month", req.Month, "error", err)
		return summary, err
	}

	// Every source is read before anything is deleted, so a failing read
	// leaves the previous records in place.
	batch, err := s.loadBatch(ctx, scope, &summary)
	if err != nil {
		return fail(err)
	}

	progress.Phase = attendance.PhaseDeleting
	sink.Report(progress)

	deleted, err := s.TimeRecordRepository.DeleteScope(ctx, scope)
	if err != nil {
		return fail(fmt.Errorf("failed to delete prior records: %w", err))
	}
	summary.DeletedPriorRecordCount = deleted

	progress.Phase = attendance.PhaseProcessing
	progress.Total = len(batch.keys)
	sink.Report(progress)

	engine := NewEngine(batch.resolver, s.opts.Policy, s.today())

	var mu sync.Mutex
	record := func(key attendance.RecordKey, err error) {
		mu.Lock()
		defer mu.Unlock()

		if err != nil {
			summary.Failures = append(summary.Failures, attendance.GroupFailure{
				Organization:   key.Organization,
				EmployeeNumber: key.EmployeeNumber,
				Date:           key.Date.String(),
				Reason:         err.Error(),
			})
			progress.Failed++
			slog.Warn("Failed to recompute group",
				"run_id", summary.RunID,
				"organization", key.Organization,
				"employee_number", key.EmployeeNumber,
				"date", key.Date.String(),
				"error", err,
			)
		} else {
			summary.ProcessedCount++
		}
		progress.Processed++
		sink.Report(progress)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers())

	for _, key := range batch.keys {
		if gctx.Err() != nil {
			break
		}
		events := batch.groups[key]
		g.Go(func() error {
			if _, known := batch.directory[employee.Key{Organization: key.Organization, Number: key.EmployeeNumber}]; !known {
				record(key, attendance.ErrEmployeeNotFound)
				return nil
			}
			record(key, s.processGroup(gctx, engine, key, events))
			// Group failures are collected, never propagated: one bad group
			// must not cancel the others.
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	slices.SortFunc(summary.Failures, compareFailures)
	summary.FailedCount = len(summary.Failures)
	summary.FinishedAt = s.opts.Now().UTC()

	progress.Phase = attendance.PhaseDone
	sink.Report(progress)

	slog.Info("Recompute finished",
		"run_id", summary.RunID,
		"month", summary.Month,
		"organization", summary.Organization,
		"department", summary.Department,
		"processed", summary.ProcessedCount,
		"failed", summary.FailedCount,
		"raw_events", summary.TotalRawEventsConsidered,
		"malformed_events", summary.MalformedEventCount,
		"deleted", summary.DeletedPriorRecordCount,
	)

	return summary, nil
}

// processGroup computes and upserts one group. A panic is turned into a
// group failure.
func (s *AttendanceServiceImpl) processGroup(ctx context.Context, engine *Engine, key attendance.RecordKey, events []timeevent.TimeEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while processing group: %v", r)
		}
	}()

	rec, err := engine.Compute(key, events)
	if err != nil {
		return err
	}

	if err := s.TimeRecordRepository.Upsert(ctx, rec); err != nil {
		return fmt.Errorf("failed to upsert record: %w", err)
	}
	return nil
}

type batch struct {
	groups    map[attendance.RecordKey][]timeevent.TimeEvent
	keys      []attendance.RecordKey
	directory map[employee.Key]employee.Employee
	resolver  *ScheduleResolver
}

// loadBatch reads employees, raw events and schedules for scope and derives
// the sorted list of groups to process.
func (s *AttendanceServiceImpl) loadBatch(ctx context.Context, scope attendance.Scope, summary *attendance.RunSummary) (*batch, error) {
	employees, err := s.EmployeeRepository.ListInScope(ctx, scope.Organization, scope.Department)
	if err != nil {
		return nil, fmt.Errorf("failed to list employees: %w", err)
	}

	directory := make(map[employee.Key]employee.Employee, len(employees))
	for _, emp := range employees {
		directory[emp.Key()] = emp
	}

	raws, err := s.TimeEventRepository.ListRaw(ctx, timeevent.Scope{
		Organization: scope.Organization,
		Department:   scope.Department,
		From:         scope.From,
		To:           scope.To,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list time events: %w", err)
	}
	summary.TotalRawEventsConsidered = len(raws)

	events := make([]timeevent.TimeEvent, 0, len(raws))
	for _, raw := range raws {
		ev, err := timeevent.Normalize(raw, s.opts.Location)
		if err != nil {
			summary.MalformedEventCount++
			slog.Warn("Skipping malformed time event",
				"event_id", raw.ID,
				"organization", raw.Organization,
				"employee_number", raw.EmployeeNumber,
				"error", err,
			)
			continue
		}
		if !scope.Contains(ev.At.Date) {
			continue
		}
		if scope.Organization != "" && ev.Organization != scope.Organization {
			continue
		}
		if _, known := directory[employee.Key{Organization: ev.Organization, Number: ev.EmployeeNumber}]; !known && scope.Department != "" {
			continue
		}
		events = append(events, ev)
	}

	groups := GroupEvents(events)

	if s.opts.Policy.FillCalendar {
		days := scope.Days()
		for _, emp := range employees {
			if !emp.Active {
				continue
			}
			for _, day := range days {
				key := attendance.RecordKey{Organization: emp.Organization, EmployeeNumber: emp.Number, Date: day}
				if _, ok := groups[key]; !ok {
					groups[key] = nil
				}
			}
		}
	}

	keys := make([]attendance.RecordKey, 0, len(groups))
	for key := range groups {
		keys = append(keys, key)
	}
	slices.SortFunc(keys, func(a, b attendance.RecordKey) int {
		switch {
		case a.Less(b):
			return -1
		case b.Less(a):
			return 1
		}
		return 0
	})

	resolver, err := s.loadResolver(ctx, scope, keys)
	if err != nil {
		return nil, err
	}

	return &batch{groups: groups, keys: keys, directory: directory, resolver: resolver}, nil
}

func (s *AttendanceServiceImpl) loadResolver(ctx context.Context, scope attendance.Scope, keys []attendance.RecordKey) (*ScheduleResolver, error) {
	seen := make(map[string]bool)
	var numbers []string
	for _, key := range keys {
		if !seen[key.EmployeeNumber] {
			seen[key.EmployeeNumber] = true
			numbers = append(numbers, key.EmployeeNumber)
		}
	}
	if len(numbers) == 0 {
		return NewScheduleResolver(s.opts.Policy, nil, nil, nil), nil
	}

	assignments, err := s.ScheduleRepository.ListAssignments(ctx, scope.Organization, numbers)
	if err != nil {
		return nil, fmt.Errorf("failed to list schedule assignments: %w", err)
	}

	var codes []string
	for _, a := range assignments {
		if !slices.Contains(codes, a.ScheduleCode) {
			codes = append(codes, a.ScheduleCode)
		}
	}
	if len(codes) == 0 {
		return NewScheduleResolver(s.opts.Policy, nil, nil, assignments), nil
	}

	schedules, err := s.ScheduleRepository.ListSchedules(ctx, scope.Organization, codes)
	if err != nil {
		return nil, fmt.Errorf("failed to list schedules: %w", err)
	}

	days, err := s.ScheduleRepository.ListDays(ctx, scope.Organization, codes, scope.From, scope.To)
	if err != nil {
		return nil, fmt.Errorf("failed to list schedule days: %w", err)
	}

	return NewScheduleResolver(s.opts.Policy, schedules, days, assignments), nil
}

func (s *AttendanceServiceImpl) today() civil.Date {
	return civil.FromInstant(s.opts.Now(), s.opts.Location).Date
}

func (s *AttendanceServiceImpl) workers() int {
	if s.opts.Workers > 0 {
		return s.opts.Workers
	}
	return runtime.GOMAXPROCS(0)
}

func compareFailures(a, b attendance.GroupFailure) int {
	if c := cmp.Compare(a.Organization, b.Organization); c != 0 {
		return c
	}
	if c := cmp.Compare(a.EmployeeNumber, b.EmployeeNumber); c != 0 {
		return c
	}
	return cmp.Compare(a.Date, b.Date)
}

// ListRecords implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) ListRecords(ctx context.Context, filter attendance.RecordFilter) (attendance.ListRecordsResponse, error) {
	if err := filter.Validate(); err != nil {
		return attendance.ListRecordsResponse{}, err
	}

	records, total, err := s.TimeRecordRepository.List(ctx, filter)
	if err != nil {
		return attendance.ListRecordsResponse{}, fmt.Errorf("failed to list time records: %w", err)
	}

	// Map to response
	responses := make([]attendance.TimeRecordResponse, 0, len(records))
	for _, rec := range records {
		responses = append(responses, mapRecordToResponse(rec))
	}

	totalPages := int(math.Ceil(float64(total) / float64(filter.Limit)))
	showing := fmt.Sprintf("%d-%d of %d", (filter.Page-1)*filter.Limit+1, min(filter.Page*filter.Limit, int(total)), total)
	if total == 0 {
		showing = "0 of 0"
	}

	return attendance.ListRecordsResponse{
		TotalCount: total,
		Page:       filter.Page,
		Limit:      filter.Limit,
		TotalPages: totalPages,
		Showing:    showing,
		Records:    responses,
	}, nil
}

// dateTimePtrToString safely converts a *civil.DateTime to a string.
func dateTimePtrToString(dt *civil.DateTime) *string {
	if dt == nil {
		return nil
	}
	s := dt.String()
	return &s
}

// mapRecordToResponse converts a TimeRecord entity to TimeRecordResponse
func mapRecordToResponse(rec attendance.TimeRecord) attendance.TimeRecordResponse {
	return attendance.TimeRecordResponse{
		Organization:       rec.Organization,
		EmployeeNumber:     rec.EmployeeNumber,
		EmployeeName:       rec.EmployeeName,
		Department:         rec.Department,
		Date:               rec.Date.String(),
		ScheduleCode:       rec.ScheduleCode,
		CheckIn:            dateTimePtrToString(rec.CheckIn),
		CheckOut:           dateTimePtrToString(rec.CheckOut),
		PlannedHours:       rec.PlannedHours.StringFixed(2),
		ActualHours:        rec.ActualHours.StringFixed(2),
		FinalHours:         rec.FinalHours.StringFixed(2),
		OvertimeHours:      rec.OvertimeHours.StringFixed(2),
		LateMinutes:        rec.LateMinutes,
		EarlyLeaveMinutes:  rec.EarlyLeaveMinutes,
		Status:             string(rec.Status),
		IsNightShift:       rec.Status.IsNightShift(),
		IsScheduledWorkday: rec.IsScheduledWorkday,
		HasLunchBreak:      rec.HasLunchBreak,
		PunchInferred:      rec.PunchInferred,
	}
}

func NewAttendanceService(
	timeRecordRepo attendance.TimeRecordRepository,
	timeEventRepo timeevent.TimeEventRepository,
	scheduleRepo schedule.ScheduleRepository,
	employeeRepo employee.EmployeeRepository,
	opts Options,
) attendance.AttendanceService {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &AttendanceServiceImpl{
		TimeRecordRepository: timeRecordRepo,
		TimeEventRepository:  timeEventRepo,
		ScheduleRepository:   scheduleRepo,
		EmployeeRepository:   employeeRepo,
		opts:                 opts,
	}
}
