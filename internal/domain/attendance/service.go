package attendance

import (
	"context"
)

// AttendanceService defines the recomputation engine's operations
type AttendanceService interface {
	// Recompute rebuilds every TimeRecord inside the request's filter window.
	// Per-group failures are collected in the summary; the returned error is
	// reserved for run-level failures (invalid request, unreadable sources,
	// cancelled context).
	Recompute(ctx context.Context, req RecomputeRequest, sink ProgressSink) (RunSummary, error)

	// ListRecords retrieves computed records with filters
	ListRecords(ctx context.Context, filter RecordFilter) (ListRecordsResponse, error)
}
