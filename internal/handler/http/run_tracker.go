package http

import (
	"sync"
	"time"

	"github.com/cmlabs-hris/hris-timesheet-go/internal/domain/attendance"
	"github.com/cmlabs-hris/hris-timesheet-go/internal/pkg/sse"
)

const (
	eventProgress = "progress"
	eventDone     = "done"
	eventFailed   = "failed"
)

// RunState is the latest known state of one recomputation run.
type RunState struct {
	RunID      string                 `json:"run_id"`
	Progress   attendance.Progress    `json:"progress"`
	Done       bool                   `json:"done"`
	Summary    *attendance.RunSummary `json:"summary,omitempty"`
	Error      string                 `json:"error,omitempty"`
	UpdatedAt  time.Time              `json:"updated_at"`
	FinishedAt *time.Time             `json:"finished_at,omitempty"`
}

// RunTracker remembers recent runs started through the API and publishes
// their progress to the hub, keyed by run ID. Only the newest maxRuns
// finished runs are kept.
type RunTracker struct {
	mu      sync.RWMutex
	runs    map[string]*RunState
	order   []string
	maxRuns int
	hub     *sse.Hub
	now     func() time.Time
}

func NewRunTracker(hub *sse.Hub, maxRuns int) *RunTracker {
	if maxRuns < 1 {
		maxRuns = 100
	}
	return &RunTracker{
		runs:    make(map[string]*RunState),
		maxRuns: maxRuns,
		hub:     hub,
		now:     time.Now,
	}
}

// Sink returns a progress sink for one run. onStart is called once, with the
// run ID, on the first report.
func (t *RunTracker) Sink(onStart func(runID string)) attendance.ProgressSink {
	return &trackedSink{tracker: t, onStart: onStart}
}

type trackedSink struct {
	tracker *RunTracker
	once    sync.Once
	onStart func(runID string)
}

func (s *trackedSink) Report(p attendance.Progress) {
	s.tracker.update(p)
	s.once.Do(func() {
		if s.onStart != nil {
			s.onStart(p.RunID)
		}
	})
}

func (t *RunTracker) update(p attendance.Progress) {
	t.mu.Lock()
	state, ok := t.runs[p.RunID]
	if !ok {
		state = &RunState{RunID: p.RunID}
		t.runs[p.RunID] = state
		t.order = append(t.order, p.RunID)
		t.evictLocked()
	}
	state.Progress = p
	state.UpdatedAt = t.now().UTC()
	t.mu.Unlock()

	t.hub.Publish(sse.Event{Topic: p.RunID, Event: eventProgress, Data: p})
}

// Finish records the outcome of a run and notifies its subscribers.
func (t *RunTracker) Finish(summary attendance.RunSummary, err error) {
	t.mu.Lock()
	state, ok := t.runs[summary.RunID]
	if !ok {
		state = &RunState{RunID: summary.RunID}
		t.runs[summary.RunID] = state
		t.order = append(t.order, summary.RunID)
	}
	finished := t.now().UTC()
	state.Done = true
	state.Summary = &summary
	state.UpdatedAt = finished
	state.FinishedAt = &finished
	if err != nil {
		state.Error = err.Error()
	}
	snapshot := *state
	t.evictLocked()
	t.mu.Unlock()

	event := eventDone
	if err != nil {
		event = eventFailed
	}
	t.hub.Publish(sse.Event{Topic: summary.RunID, Event: event, Data: snapshot})
}

// Get returns a copy of a run's state.
func (t *RunTracker) Get(runID string) (RunState, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	state, ok := t.runs[runID]
	if !ok {
		return RunState{}, attendance.ErrRunNotFound
	}
	return *state, nil
}

// evictLocked drops the oldest finished runs beyond maxRuns. Running runs are
// never evicted.
func (t *RunTracker) evictLocked() {
	excess := len(t.order) - t.maxRuns
	if excess <= 0 {
		return
	}
	kept := t.order[:0]
	for _, id := range t.order {
		if excess > 0 && t.runs[id].Done {
			delete(t.runs, id)
			excess--
			continue
		}
		kept = append(kept, id)
	}
	t.order = kept
}
