package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/cmlabs-hris/hris-timesheet-go/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-timesheet-go/internal/handler/http/middleware"
	"github.com/cmlabs-hris/hris-timesheet-go/internal/handler/http/response"
	"github.com/cmlabs-hris/hris-timesheet-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/hris-timesheet-go/internal/pkg/sse"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth/v5"
)

type TimesheetHandler interface {
	Recompute(w http.ResponseWriter, r *http.Request)
	GetRun(w http.ResponseWriter, r *http.Request)
	StreamRun(w http.ResponseWriter, r *http.Request)
	GetSSEToken(w http.ResponseWriter, r *http.Request)
	List(w http.ResponseWriter, r *http.Request)
}

type timesheetHandlerImpl struct {
	attendanceService attendance.AttendanceService
	jwtService        jwt.Service
	tracker           *RunTracker
	hub               *sse.Hub

	// runCtx outlives requests; background runs stop when it is cancelled.
	runCtx    context.Context
	keepalive time.Duration
}

func NewTimesheetHandler(runCtx context.Context, attendanceService attendance.AttendanceService, jwtService jwt.Service, tracker *RunTracker, hub *sse.Hub) TimesheetHandler {
	return &timesheetHandlerImpl{
		attendanceService: attendanceService,
		jwtService:        jwtService,
		tracker:           tracker,
		hub:               hub,
		runCtx:            runCtx,
		keepalive:         30 * time.Second,
	}
}

// Recompute implements TimesheetHandler.
func (h *timesheetHandlerImpl) Recompute(w http.ResponseWriter, r *http.Request) {
	var req attendance.RecomputeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("Failed to decode recompute request", "error", err)
		response.BadRequest(w, "Invalid request format", nil)
		return
	}

	organization, err := middleware.ScopeOrganization(r.Context(), req.Organization)
	if err != nil {
		response.HandleError(w, err)
		return
	}
	req.Organization = organization

	if err := req.Validate(); err != nil {
		response.HandleError(w, err)
		return
	}

	if wait, _ := strconv.ParseBool(r.URL.Query().Get("wait")); wait {
		summary, err := h.attendanceService.Recompute(r.Context(), req, h.tracker.Sink(nil))
		if summary.RunID != "" {
			h.tracker.Finish(summary, err)
		}
		if err != nil {
			response.HandleError(w, err)
			return
		}
		response.Success(w, summary)
		return
	}

	started := make(chan string, 1)
	done := make(chan error, 1)
	sink := h.tracker.Sink(func(runID string) { started <- runID })

	go func() {
		summary, err := h.attendanceService.Recompute(h.runCtx, req, sink)
		if summary.RunID != "" {
			h.tracker.Finish(summary, err)
		}
		done <- err
	}()

	select {
	case runID := <-started:
		response.Accepted(w, "Recompute started", map[string]string{"run_id": runID})
	case err := <-done:
		select {
		case runID := <-started:
			response.Accepted(w, "Recompute started", map[string]string{"run_id": runID})
			return
		default:
		}
		if err == nil {
			err = fmt.Errorf("recompute finished without reporting a run")
		}
		response.HandleError(w, err)
	case <-r.Context().Done():
	}
}

// GetRun implements TimesheetHandler.
func (h *timesheetHandlerImpl) GetRun(w http.ResponseWriter, r *http.Request) {
	state, err := h.tracker.Get(chi.URLParam(r, "runID"))
	if err != nil {
		response.HandleError(w, err)
		return
	}
	response.Success(w, state)
}

// GetSSEToken implements TimesheetHandler.
func (h *timesheetHandlerImpl) GetSSEToken(w http.ResponseWriter, r *http.Request) {
	_, claims, err := jwtauth.FromContext(r.Context())
	if err != nil {
		response.HandleError(w, jwt.ErrInvalidToken)
		return
	}
	subject, _ := claims["user_id"].(string)

	token, expiresIn, err := h.jwtService.GenerateSSEToken(subject)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, map[string]interface{}{
		"token":      token,
		"expires_in": expiresIn,
	})
}

// StreamRun streams a run's progress as server-sent events until it finishes.
func (h *timesheetHandlerImpl) StreamRun(w http.ResponseWriter, r *http.Request) {
	// Get token from query parameter (SSE doesn't support custom headers)
	tokenStr := r.URL.Query().Get("token")
	if tokenStr == "" {
		http.Error(w, "Missing token", http.StatusUnauthorized)
		return
	}
	if _, err := h.jwtService.ValidateSSEToken(tokenStr); err != nil {
		http.Error(w, "Invalid token", http.StatusUnauthorized)
		return
	}

	runID := chi.URLParam(r, "runID")

	// Subscribe before reading the state so a finish in between is not missed.
	events, cleanup := h.hub.Subscribe(runID)
	defer cleanup()

	state, err := h.tracker.Get(runID)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	if state.Done {
		h.writeEvent(w, flusher, finalEvent(state))
		return
	}
	h.writeEvent(w, flusher, sse.Event{Topic: runID, Event: eventProgress, Data: state.Progress})

	keepalive := time.NewTicker(h.keepalive)
	defer keepalive.Stop()

	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			if err := h.writeEvent(w, flusher, event); err != nil {
				return
			}
			if event.Event == eventDone || event.Event == eventFailed {
				return
			}

		case <-keepalive.C:
			fmt.Fprintf(w, "event: ping\ndata: {\"timestamp\":%d}\n\n", time.Now().Unix())
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}

func (h *timesheetHandlerImpl) writeEvent(w http.ResponseWriter, flusher http.Flusher, event sse.Event) error {
	if err := event.Write(w); err != nil {
		slog.Error("Failed to write sse event", "run_id", event.Topic, "error", err)
		return err
	}
	flusher.Flush()
	return nil
}

func finalEvent(state RunState) sse.Event {
	event := eventDone
	if state.Error != "" {
		event = eventFailed
	}
	return sse.Event{Topic: state.RunID, Event: event, Data: state}
}

// List implements TimesheetHandler.
func (h *timesheetHandlerImpl) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()

	filter := attendance.RecordFilter{
		Month: query.Get("month"),
	}

	organization, err := middleware.ScopeOrganization(ctx, query.Get("organization"))
	if err != nil {
		response.HandleError(w, err)
		return
	}
	if organization != "" {
		filter.Organization = &organization
	}

	if department := query.Get("department"); department != "" {
		filter.Department = &department
	}

	if employeeNumber := query.Get("employee_number"); employeeNumber != "" {
		filter.EmployeeNumber = &employeeNumber
	}

	if status := query.Get("status"); status != "" {
		filter.Status = &status
	}

	// Pagination
	if p := query.Get("page"); p != "" {
		if pageNum, err := strconv.Atoi(p); err == nil && pageNum > 0 {
			filter.Page = pageNum
		}
	}

	if l := query.Get("limit"); l != "" {
		if limitNum, err := strconv.Atoi(l); err == nil && limitNum > 0 {
			filter.Limit = limitNum
		}
	}

	result, err := h.attendanceService.ListRecords(ctx, filter)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, result)
}
