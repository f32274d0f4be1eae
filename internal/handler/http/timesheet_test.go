package http

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cmlabs-hris/hris-timesheet-go/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-timesheet-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/hris-timesheet-go/internal/pkg/sse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const handlerTestSecret = "test-secret-key-for-jwt"

type fakeAttendanceService struct {
	mu       sync.Mutex
	requests []attendance.RecomputeRequest
	filters  []attendance.RecordFilter
	release  chan struct{}
	err      error
}

func (f *fakeAttendanceService) Recompute(ctx context.Context, req attendance.RecomputeRequest, sink attendance.ProgressSink) (attendance.RunSummary, error) {
	if err := req.Validate(); err != nil {
		return attendance.RunSummary{}, err
	}

	f.mu.Lock()
	f.requests = append(f.requests, req)
	runID := fmt.Sprintf("run-%d", len(f.requests))
	f.mu.Unlock()

	summary := attendance.RunSummary{RunID: runID, Month: req.Month, Organization: req.Organization}
	sink.Report(attendance.Progress{RunID: runID, Phase: attendance.PhaseLoading})

	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return summary, ctx.Err()
		}
	}

	sink.Report(attendance.Progress{RunID: runID, Phase: attendance.PhaseProcessing, Total: 2, Processed: 2})
	summary.ProcessedCount = 2
	return summary, f.err
}

func (f *fakeAttendanceService) ListRecords(_ context.Context, filter attendance.RecordFilter) (attendance.ListRecordsResponse, error) {
	if err := filter.Validate(); err != nil {
		return attendance.ListRecordsResponse{}, err
	}
	f.mu.Lock()
	f.filters = append(f.filters, filter)
	f.mu.Unlock()

	return attendance.ListRecordsResponse{
		TotalCount: 1,
		Page:       filter.Page,
		Limit:      filter.Limit,
		TotalPages: 1,
		Showing:    "1-1 of 1",
		Records: []attendance.TimeRecordResponse{{
			Organization:   "ACME",
			EmployeeNumber: "E1",
			Date:           "2024-05-02",
			Status:         string(attendance.StatusOnTime),
		}},
	}, nil
}

func (f *fakeAttendanceService) lastRequest(t *testing.T) attendance.RecomputeRequest {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.requests)
	return f.requests[len(f.requests)-1]
}

type testEnv struct {
	router  http.Handler
	jwt     jwt.Service
	service *fakeAttendanceService
	tracker *RunTracker
}

func newTestEnv(t *testing.T, svc *fakeAttendanceService) *testEnv {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	jwtService := jwt.NewJWTService(handlerTestSecret, "1h")
	hub := sse.NewHub(16)
	tracker := NewRunTracker(hub, 10)
	handler := NewTimesheetHandler(ctx, svc, jwtService, tracker, hub)

	router := NewRouter(RouterOptions{Env: "test", Version: "test", LogLevel: slog.LevelError}, jwtService, handler)
	return &testEnv{router: router, jwt: jwtService, service: svc, tracker: tracker}
}

func (e *testEnv) token(t *testing.T, role jwt.Role, organization *string) string {
	t.Helper()
	token, _, err := e.jwt.GenerateAccessToken("user-1", role, organization)
	require.NoError(t, err)
	return token
}

func (e *testEnv) do(t *testing.T, method, target, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string            `json:"code"`
		Details map[string]string `json:"details"`
	} `json:"error"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

func TestRecompute_Wait(t *testing.T) {
	env := newTestEnv(t, &fakeAttendanceService{})

	w := env.do(t, http.MethodPost, "/api/v1/timesheets/recompute?wait=true", env.token(t, jwt.RoleManager, nil), `{"month":"2024-05"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var summary attendance.RunSummary
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &summary))
	assert.Equal(t, "run-1", summary.RunID)
	assert.Equal(t, 2, summary.ProcessedCount)

	state, err := env.tracker.Get("run-1")
	require.NoError(t, err)
	assert.True(t, state.Done)
	require.NotNil(t, state.Summary)
}

func TestRecompute_Async(t *testing.T) {
	svc := &fakeAttendanceService{release: make(chan struct{})}
	env := newTestEnv(t, svc)
	token := env.token(t, jwt.RoleOwner, nil)

	w := env.do(t, http.MethodPost, "/api/v1/timesheets/recompute", token, `{"month":"2024-05","department":"OPS"}`)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	var started map[string]string
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &started))
	runID := started["run_id"]
	require.Equal(t, "run-1", runID)

	w = env.do(t, http.MethodGet, "/api/v1/timesheets/recompute/"+runID, token, "")
	require.Equal(t, http.StatusOK, w.Code)
	var state RunState
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &state))
	assert.False(t, state.Done)
	assert.Equal(t, attendance.PhaseLoading, state.Progress.Phase)

	close(svc.release)

	require.Eventually(t, func() bool {
		state, err := env.tracker.Get(runID)
		return err == nil && state.Done
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, "OPS", svc.lastRequest(t).Department)
}

func TestRecompute_Rejections(t *testing.T) {
	env := newTestEnv(t, &fakeAttendanceService{})
	acme := "ACME"

	tests := []struct {
		name  string
		token string
		body  string
		code  int
	}{
		{"missing token", "", `{"month":"2024-05"}`, http.StatusUnauthorized},
		{"viewer cannot recompute", env.token(t, jwt.RoleViewer, nil), `{"month":"2024-05"}`, http.StatusForbidden},
		{"malformed body", env.token(t, jwt.RoleManager, nil), `{"month":`, http.StatusBadRequest},
		{"invalid month", env.token(t, jwt.RoleManager, nil), `{"month":"May 2024"}`, http.StatusUnprocessableEntity},
		{"other organization", env.token(t, jwt.RoleManager, &acme), `{"month":"2024-05","organization":"GLOBEX"}`, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodPost, "/api/v1/timesheets/recompute?wait=true", tt.token, tt.body)
			assert.Equal(t, tt.code, w.Code, w.Body.String())
			assert.False(t, decode(t, w).Success)
		})
	}
}

func TestRecompute_TokenOrganizationNarrowsScope(t *testing.T) {
	svc := &fakeAttendanceService{}
	env := newTestEnv(t, svc)
	acme := "ACME"

	w := env.do(t, http.MethodPost, "/api/v1/timesheets/recompute?wait=true", env.token(t, jwt.RoleManager, &acme), `{"month":"2024-05"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "ACME", svc.lastRequest(t).Organization)
}

func TestRecompute_RunFailureIsReported(t *testing.T) {
	svc := &fakeAttendanceService{err: fmt.Errorf("failed to load time events: %w", context.DeadlineExceeded)}
	env := newTestEnv(t, svc)

	w := env.do(t, http.MethodPost, "/api/v1/timesheets/recompute?wait=true", env.token(t, jwt.RoleManager, nil), `{"month":"2024-05"}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	state, err := env.tracker.Get("run-1")
	require.NoError(t, err)
	assert.True(t, state.Done)
	assert.Contains(t, state.Error, "failed to load time events")
}

func TestGetRun_NotFound(t *testing.T) {
	env := newTestEnv(t, &fakeAttendanceService{})

	w := env.do(t, http.MethodGet, "/api/v1/timesheets/recompute/missing", env.token(t, jwt.RoleManager, nil), "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", decode(t, w).Error.Code)
}

func TestList(t *testing.T) {
	svc := &fakeAttendanceService{}
	env := newTestEnv(t, svc)
	acme := "ACME"

	w := env.do(t, http.MethodGet, "/api/v1/timesheets?month=2024-05&employee_number=E1&status=on_time&page=2&limit=10",
		env.token(t, jwt.RoleViewer, &acme), "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var result attendance.ListRecordsResponse
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &result))
	assert.Equal(t, 2, result.Page)
	assert.Equal(t, 10, result.Limit)
	require.Len(t, result.Records, 1)

	require.Len(t, svc.filters, 1)
	filter := svc.filters[0]
	require.NotNil(t, filter.Organization)
	assert.Equal(t, "ACME", *filter.Organization)
	require.NotNil(t, filter.EmployeeNumber)
	assert.Equal(t, "E1", *filter.EmployeeNumber)
}

func TestList_InvalidStatus(t *testing.T) {
	env := newTestEnv(t, &fakeAttendanceService{})

	w := env.do(t, http.MethodGet, "/api/v1/timesheets?month=2024-05&status=sleeping", env.token(t, jwt.RoleViewer, nil), "")
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, decode(t, w).Error.Details, "status")
}

func TestStreamRun(t *testing.T) {
	svc := &fakeAttendanceService{release: make(chan struct{})}
	env := newTestEnv(t, svc)
	server := httptest.NewServer(env.router)
	defer server.Close()

	w := env.do(t, http.MethodPost, "/api/v1/timesheets/recompute", env.token(t, jwt.RoleManager, nil), `{"month":"2024-05"}`)
	require.Equal(t, http.StatusAccepted, w.Code)

	w = env.do(t, http.MethodPost, "/api/v1/timesheets/sse-token", env.token(t, jwt.RoleManager, nil), "")
	require.Equal(t, http.StatusOK, w.Code)
	var tokenResp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &tokenResp))

	resp, err := http.Get(server.URL + "/api/v1/timesheets/recompute/run-1/events?token=" + tokenResp.Token)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	nextEvent := func() string {
		for {
			line, err := reader.ReadString('\n')
			require.NoError(t, err)
			if name, ok := strings.CutPrefix(strings.TrimSpace(line), "event: "); ok {
				return name
			}
		}
	}

	assert.Equal(t, eventProgress, nextEvent())
	close(svc.release)

	var events []string
	for {
		name := nextEvent()
		events = append(events, name)
		if name == eventDone || name == eventFailed {
			break
		}
	}
	assert.Equal(t, eventDone, events[len(events)-1])
}

func TestStreamRun_RejectsAccessToken(t *testing.T) {
	env := newTestEnv(t, &fakeAttendanceService{})

	w := env.do(t, http.MethodGet, "/api/v1/timesheets/recompute/run-1/events?token="+env.token(t, jwt.RoleManager, nil), "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
