package attendance

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"

	"github.com/cmlabs-hris/hris-timesheet-go/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-timesheet-go/internal/domain/employee"
	"github.com/cmlabs-hris/hris-timesheet-go/internal/domain/schedule"
	"github.com/cmlabs-hris/hris-timesheet-go/internal/domain/timeevent"
	"github.com/cmlabs-hris/hris-timesheet-go/internal/pkg/civil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(t *testing.T, s string) civil.Date {
	t.Helper()
	d, err := civil.ParseDate(s)
	require.NoError(t, err)
	return d
}

func dateTime(t *testing.T, s string) *civil.DateTime {
	t.Helper()
	dt, err := civil.ParseDateTime(s)
	require.NoError(t, err)
	return &dt
}

func clock(t *testing.T, s string) civil.Clock {
	t.Helper()
	c, err := civil.ParseClock(s)
	require.NoError(t, err)
	return c
}

func event(t *testing.T, emp, at string, kind timeevent.EventKind) timeevent.TimeEvent {
	t.Helper()
	return timeevent.TimeEvent{
		Organization:   "ACME",
		EmployeeNumber: emp,
		At:             *dateTime(t, at),
		Kind:           kind,
		SiteCode:       "HQ",
	}
}

func workday(t *testing.T, start, end string, planned int64) Resolution {
	t.Helper()
	return Resolution{
		HasSchedule:  true,
		ScheduleCode: "OFFICE",
		DayKind:      schedule.DayKindWorking,
		PlannedStart: clock(t, start),
		PlannedEnd:   clock(t, end),
		PlannedHours: decimal.NewFromInt(planned),
		Source:       SourceScheduleDay,
	}
}

func assertHours(t *testing.T, want string, got decimal.Decimal, field string) {
	t.Helper()
	assert.Equal(t, want, got.StringFixed(2), field)
}

// ===== FAKE REPOSITORIES =====

type fakeRecordRepo struct {
	mu          sync.Mutex
	records     map[attendance.RecordKey]attendance.TimeRecord
	departments map[employee.Key]string
	upserts     int
	panicOn     *attendance.RecordKey
	deleteErr   error
}

func newFakeRecordRepo() *fakeRecordRepo {
	return &fakeRecordRepo{
		records:     make(map[attendance.RecordKey]attendance.TimeRecord),
		departments: make(map[employee.Key]string),
	}
}

func (f *fakeRecordRepo) Upsert(ctx context.Context, record attendance.TimeRecord) error {
	if f.panicOn != nil && *f.panicOn == record.Key() {
		panic("store exploded")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records[record.Key()] = record
	f.upserts++
	return nil
}

func (f *fakeRecordRepo) DeleteScope(ctx context.Context, scope attendance.Scope) (int64, error) {
	if f.deleteErr != nil {
		return 0, f.deleteErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	var n int64
	for key := range f.records {
		if !scope.Contains(key.Date) {
			continue
		}
		if scope.Organization != "" && key.Organization != scope.Organization {
			continue
		}
		dept := f.departments[employee.Key{Organization: key.Organization, Number: key.EmployeeNumber}]
		if scope.Department != "" && dept != scope.Department {
			continue
		}
		delete(f.records, key)
		n++
	}
	return n, nil
}

func (f *fakeRecordRepo) List(ctx context.Context, filter attendance.RecordFilter) ([]attendance.TimeRecord, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var all []attendance.TimeRecord
	for _, r := range f.records {
		if filter.Status != nil && string(r.Status) != *filter.Status {
			continue
		}
		all = append(all, r)
	}
	slices.SortFunc(all, func(a, b attendance.TimeRecord) int {
		if a.Key().Less(b.Key()) {
			return -1
		}
		return 1
	})

	start := min((filter.Page-1)*filter.Limit, len(all))
	end := min(start+filter.Limit, len(all))
	return all[start:end], int64(len(all)), nil
}

func (f *fakeRecordRepo) snapshot() map[attendance.RecordKey]attendance.TimeRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[attendance.RecordKey]attendance.TimeRecord, len(f.records))
	for k, v := range f.records {
		out[k] = v
	}
	return out
}

type fakeEventRepo struct {
	raws []timeevent.RawTimeEvent
	err  error
}

func (f *fakeEventRepo) ListRaw(ctx context.Context, scope timeevent.Scope) ([]timeevent.RawTimeEvent, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.raws, nil
}

type fakeScheduleRepo struct {
	schedules   []schedule.Schedule
	days        []schedule.ScheduleDay
	assignments []schedule.ScheduleAssignment
}

func (f *fakeScheduleRepo) ListSchedules(ctx context.Context, organization string, codes []string) ([]schedule.Schedule, error) {
	var out []schedule.Schedule
	for _, s := range f.schedules {
		if slices.Contains(codes, s.Code) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeScheduleRepo) ListDays(ctx context.Context, organization string, codes []string, from, to civil.Date) ([]schedule.ScheduleDay, error) {
	var out []schedule.ScheduleDay
	for _, d := range f.days {
		if slices.Contains(codes, d.ScheduleCode) && !d.Date.Before(from) && !d.Date.After(to) {
			out = append(out, d)
		}
	}
	return out, nil
}

func (f *fakeScheduleRepo) ListAssignments(ctx context.Context, organization string, employeeNumbers []string) ([]schedule.ScheduleAssignment, error) {
	var out []schedule.ScheduleAssignment
	for _, a := range f.assignments {
		if slices.Contains(employeeNumbers, a.EmployeeNumber) {
			out = append(out, a)
		}
	}
	return out, nil
}

type fakeEmployeeRepo struct {
	employees []employee.Employee
}

func (f *fakeEmployeeRepo) ListInScope(ctx context.Context, organization, department string) ([]employee.Employee, error) {
	var out []employee.Employee
	for _, e := range f.employees {
		if organization != "" && e.Organization != organization {
			continue
		}
		if department != "" && e.Department != department {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

var errSourceDown = errors.New("source unavailable")
