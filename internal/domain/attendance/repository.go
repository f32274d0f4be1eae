package attendance

import (
	"context"
)

// TimeRecordRepository is the output sink of the engine.
type TimeRecordRepository interface {
	// Upsert writes one record, replacing any existing record with the same
	// (organization, employee number, date). Concurrent upserts of one key are
	// last-writer-wins.
	Upsert(ctx context.Context, record TimeRecord) error

	// DeleteScope removes computed records inside scope only and returns the
	// number of rows removed.
	DeleteScope(ctx context.Context, scope Scope) (int64, error)

	// List retrieves records with filters and pagination
	List(ctx context.Context, filter RecordFilter) ([]TimeRecord, int64, error)
}
