package attendance

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cmlabs-hris/hris-timesheet-go/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-timesheet-go/internal/domain/employee"
	"github.com/cmlabs-hris/hris-timesheet-go/internal/domain/schedule"
	"github.com/cmlabs-hris/hris-timesheet-go/internal/domain/timeevent"
	"github.com/cmlabs-hris/hris-timesheet-go/internal/pkg/validator"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type serviceFixture struct {
	records   *fakeRecordRepo
	events    *fakeEventRepo
	schedules *fakeScheduleRepo
	employees *fakeEmployeeRepo
	svc       attendance.AttendanceService
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()

	f := &serviceFixture{
		records: newFakeRecordRepo(),
		events: &fakeEventRepo{raws: []timeevent.RawTimeEvent{
			{ID: 1, Organization: "ACME", EmployeeNumber: "E1", RawTimestamp: "2024-05-02 09:00:00", KindCode: "1", SiteCode: "HQ"},
			{ID: 2, Organization: "ACME", EmployeeNumber: "E1", RawTimestamp: "2024-05-02 18:00:00", KindCode: "2", SiteCode: "HQ"},
			{ID: 3, Organization: "ACME", EmployeeNumber: "E1", RawTimestamp: "2024-05-04 10:00:00", KindCode: "1", SiteCode: "HQ"},
			{ID: 4, Organization: "ACME", EmployeeNumber: "E1", RawTimestamp: "2024-05-04 14:00:00", KindCode: "2", SiteCode: "HQ"},
			{ID: 5, Organization: "ACME", EmployeeNumber: "E1", RawTimestamp: "not a time", KindCode: "1", SiteCode: "HQ"},
			{ID: 6, Organization: "ACME", EmployeeNumber: "E2", RawTimestamp: "2024-05-03 22:00:00", KindCode: "1", SiteCode: "WH"},
			{ID: 7, Organization: "ACME", EmployeeNumber: "E2", RawTimestamp: "2024-05-03 06:00:00", KindCode: "2", SiteCode: "WH"},
			{ID: 8, Organization: "ACME", EmployeeNumber: "E9", RawTimestamp: "2024-05-06 09:00:00", KindCode: "1", SiteCode: "HQ"},
			{ID: 9, Organization: "ACME", EmployeeNumber: "E1", RawTimestamp: "2024-04-30 09:00:00", KindCode: "1", SiteCode: "HQ"},
		}},
		schedules: &fakeScheduleRepo{
			schedules: []schedule.Schedule{
				{Code: "OFFICE", Organization: "ACME", Name: "09:00-18:00/office"},
				{Code: "NIGHT", Organization: "ACME", Name: "22:00-06:00/warehouse"},
			},
			days: []schedule.ScheduleDay{
				{Organization: "ACME", ScheduleCode: "OFFICE", Date: date(t, "2024-05-04"), DayKind: schedule.DayKindDayOff},
				{Organization: "ACME", ScheduleCode: "OFFICE", Date: date(t, "2024-05-05"), DayKind: schedule.DayKindDayOff},
			},
			assignments: []schedule.ScheduleAssignment{
				{ID: "a1", Organization: "ACME", EmployeeNumber: "E1", ScheduleCode: "OFFICE", StartDate: date(t, "2024-01-01")},
				{ID: "a2", Organization: "ACME", EmployeeNumber: "E2", ScheduleCode: "NIGHT", StartDate: date(t, "2024-01-01")},
			},
		},
		employees: &fakeEmployeeRepo{employees: []employee.Employee{
			{Organization: "ACME", Number: "E1", FullName: "Ana", Department: "ENG", Active: true},
			{Organization: "ACME", Number: "E2", FullName: "Budi", Department: "OPS", Active: true},
			{Organization: "ACME", Number: "E3", FullName: "Citra", Department: "ENG", Active: false},
		}},
	}
	for _, e := range f.employees.employees {
		f.records.departments[e.Key()] = e.Department
	}

	now := time.Date(2024, 5, 15, 12, 0, 0, 0, time.UTC)
	f.svc = NewAttendanceService(f.records, f.events, f.schedules, f.employees, Options{
		Policy:   attendance.DefaultPolicy(),
		Location: time.UTC,
		Workers:  4,
		Now:      func() time.Time { return now },
	})
	return f
}

func (f *serviceFixture) record(t *testing.T, emp, day string) attendance.TimeRecord {
	t.Helper()
	key := attendance.RecordKey{Organization: "ACME", EmployeeNumber: emp, Date: date(t, day)}
	rec, ok := f.records.snapshot()[key]
	require.True(t, ok, "missing record %s %s", emp, day)
	return rec
}

func TestRecompute_BuildsMonth(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)

	summary, err := f.svc.Recompute(ctx, attendance.RecomputeRequest{Month: "2024-05", Organization: "ACME"}, nil)
	require.NoError(t, err)

	assert.NotEmpty(t, summary.RunID)
	assert.Equal(t, 9, summary.TotalRawEventsConsidered)
	assert.Equal(t, 1, summary.MalformedEventCount)
	// 31 days for each active employee; E9 is unknown to the directory.
	assert.Equal(t, 62, summary.ProcessedCount)
	assert.Equal(t, 1, summary.FailedCount)
	require.Len(t, summary.Failures, 1)
	assert.Equal(t, "E9", summary.Failures[0].EmployeeNumber)
	assert.Equal(t, "2024-05-06", summary.Failures[0].Date)
	assert.Contains(t, summary.Failures[0].Reason, attendance.ErrEmployeeNotFound.Error())

	onTime := f.record(t, "E1", "2024-05-02")
	assert.Equal(t, attendance.StatusOnTime, onTime.Status)
	assertHours(t, "9.00", onTime.ActualHours, "actual")
	assertHours(t, "8.00", onTime.FinalHours, "final")
	assert.True(t, onTime.HasLunchBreak)
	assert.Equal(t, "OFFICE", onTime.ScheduleCode)

	assert.Equal(t, attendance.StatusAbsent, f.record(t, "E1", "2024-05-03").Status)
	assert.Equal(t, attendance.StatusWeekendWorked, f.record(t, "E1", "2024-05-04").Status)
	assert.Equal(t, attendance.StatusWeekend, f.record(t, "E1", "2024-05-05").Status)
	assert.Equal(t, attendance.StatusPlanned, f.record(t, "E1", "2024-05-20").Status)

	night := f.record(t, "E2", "2024-05-03")
	assert.Equal(t, attendance.StatusNightShiftOnTime, night.Status)
	assertHours(t, "8.00", night.ActualHours, "night actual")
	assert.False(t, night.HasLunchBreak)
	assert.Equal(t, "2024-05-04 06:00:00", night.CheckOut.String())

	// The April swipe is outside the window and the inactive employee gets
	// no calendar fill.
	for key := range f.records.snapshot() {
		assert.Equal(t, time.May, key.Date.Month)
		assert.NotEqual(t, "E3", key.EmployeeNumber)
	}
}

func TestRecompute_Idempotent(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)
	req := attendance.RecomputeRequest{Month: "2024-05"}

	first, err := f.svc.Recompute(ctx, req, nil)
	require.NoError(t, err)
	snapshot := f.records.snapshot()

	second, err := f.svc.Recompute(ctx, req, nil)
	require.NoError(t, err)

	assert.Equal(t, snapshot, f.records.snapshot())
	assert.Equal(t, int64(0), first.DeletedPriorRecordCount)
	assert.Equal(t, int64(len(snapshot)), second.DeletedPriorRecordCount)
	assert.Equal(t, first.ProcessedCount, second.ProcessedCount)
	assert.Equal(t, first.Failures, second.Failures)
	assert.NotEqual(t, first.RunID, second.RunID)
}

func TestRecompute_DeletesOnlyItsScope(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)

	keep := []attendance.TimeRecord{
		{Organization: "ACME", EmployeeNumber: "E1", Date: date(t, "2024-04-30"), Status: attendance.StatusOnTime},
		{Organization: "GLOBEX", EmployeeNumber: "E1", Date: date(t, "2024-05-02"), Status: attendance.StatusOnTime},
		{Organization: "ACME", EmployeeNumber: "E2", Date: date(t, "2024-05-02"), Status: attendance.StatusAbsent},
	}
	stale := attendance.TimeRecord{Organization: "ACME", EmployeeNumber: "E1", Date: date(t, "2024-05-10"), Status: attendance.StatusLate}
	for _, rec := range append(keep, stale) {
		require.NoError(t, f.records.Upsert(ctx, rec))
	}

	summary, err := f.svc.Recompute(ctx, attendance.RecomputeRequest{Month: "2024-05", Organization: "ACME", Department: "ENG"}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), summary.DeletedPriorRecordCount)
	assert.Zero(t, summary.FailedCount, "out-of-department swipes are skipped, not failed")

	snapshot := f.records.snapshot()
	for _, rec := range keep {
		assert.Equal(t, rec, snapshot[rec.Key()])
	}
	assert.Equal(t, attendance.StatusAbsent, snapshot[stale.Key()].Status)
	_, hasE2 := snapshot[attendance.RecordKey{Organization: "ACME", EmployeeNumber: "E2", Date: date(t, "2024-05-03")}]
	assert.False(t, hasE2)
}

func TestRecompute_SourceFailureKeepsPriorRecords(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)

	prior := attendance.TimeRecord{Organization: "ACME", EmployeeNumber: "E1", Date: date(t, "2024-05-02"), Status: attendance.StatusOnTime}
	require.NoError(t, f.records.Upsert(ctx, prior))
	f.events.err = errSourceDown

	var phases []attendance.Phase
	sink := attendance.ProgressFunc(func(p attendance.Progress) { phases = append(phases, p.Phase) })

	_, err := f.svc.Recompute(ctx, attendance.RecomputeRequest{Month: "2024-05"}, sink)
	require.ErrorIs(t, err, errSourceDown)
	assert.Len(t, f.records.snapshot(), 1)
	assert.Equal(t, attendance.PhaseFailed, phases[len(phases)-1])
}

func TestRecompute_InvalidRequest(t *testing.T) {
	f := newServiceFixture(t)

	_, err := f.svc.Recompute(context.Background(), attendance.RecomputeRequest{Month: "2024-13"}, nil)
	var verrs validator.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Equal(t, "month", verrs[0].Field)
	assert.Equal(t, 0, f.records.upserts)
}

func TestRecompute_PanicIsAGroupFailure(t *testing.T) {
	f := newServiceFixture(t)
	f.records.panicOn = &attendance.RecordKey{Organization: "ACME", EmployeeNumber: "E1", Date: date(t, "2024-05-02")}

	summary, err := f.svc.Recompute(context.Background(), attendance.RecomputeRequest{Month: "2024-05", Organization: "ACME", Department: "ENG"}, nil)
	require.NoError(t, err)
	require.Equal(t, 1, summary.FailedCount)
	assert.Equal(t, "2024-05-02", summary.Failures[0].Date)
	assert.True(t, strings.Contains(summary.Failures[0].Reason, "panic"))
	assert.Equal(t, 30, summary.ProcessedCount)
}

func TestRecompute_ReportsProgress(t *testing.T) {
	f := newServiceFixture(t)

	var (
		mu   sync.Mutex
		seen []attendance.Progress
	)
	sink := attendance.ProgressFunc(func(p attendance.Progress) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, p)
	})

	summary, err := f.svc.Recompute(context.Background(), attendance.RecomputeRequest{Month: "2024-05"}, sink)
	require.NoError(t, err)

	require.NotEmpty(t, seen)
	assert.Equal(t, attendance.PhaseLoading, seen[0].Phase)
	last := seen[len(seen)-1]
	assert.Equal(t, attendance.PhaseDone, last.Phase)
	assert.Equal(t, last.Total, last.Processed)
	assert.Equal(t, summary.FailedCount, last.Failed)
	for _, p := range seen {
		assert.Equal(t, summary.RunID, p.RunID)
	}
}

func TestRecompute_CancelledContext(t *testing.T) {
	f := newServiceFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.svc.Recompute(ctx, attendance.RecomputeRequest{Month: "2024-05"}, nil)
	require.ErrorIs(t, err, context.Canceled)
}

func TestRecompute_InvalidDurationIsFlagged(t *testing.T) {
	f := newServiceFixture(t)
	f.events.raws = []timeevent.RawTimeEvent{
		{ID: 1, Organization: "ACME", EmployeeNumber: "E1", RawTimestamp: "2024-05-02 09:00:00", KindCode: "1"},
		{ID: 2, Organization: "ACME", EmployeeNumber: "E1", RawTimestamp: "2024-05-02 07:00:00", KindCode: "2"},
	}

	summary, err := f.svc.Recompute(context.Background(), attendance.RecomputeRequest{Month: "2024-05", Department: "ENG"}, nil)
	require.NoError(t, err)
	assert.Zero(t, summary.FailedCount)

	rec := f.record(t, "E1", "2024-05-02")
	assert.Equal(t, attendance.StatusInvalidDuration, rec.Status)
	assert.True(t, rec.FinalHours.Equal(decimal.Zero))
}

func TestListRecords_Paginates(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t)

	_, err := f.svc.Recompute(ctx, attendance.RecomputeRequest{Month: "2024-05", Department: "ENG"}, nil)
	require.NoError(t, err)

	resp, err := f.svc.ListRecords(ctx, attendance.RecordFilter{Month: "2024-05", Limit: 10, Page: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(31), resp.TotalCount)
	assert.Equal(t, 4, resp.TotalPages)
	assert.Equal(t, "11-20 of 31", resp.Showing)
	require.Len(t, resp.Records, 10)
	assert.Equal(t, "2024-05-11", resp.Records[0].Date)

	status := "weekend_worked"
	resp, err = f.svc.ListRecords(ctx, attendance.RecordFilter{Month: "2024-05", Status: &status})
	require.NoError(t, err)
	require.Len(t, resp.Records, 1)
	assert.Equal(t, "4.00", resp.Records[0].ActualHours)
	require.NotNil(t, resp.Records[0].CheckIn)
	assert.Equal(t, "2024-05-04 10:00:00", *resp.Records[0].CheckIn)
}
