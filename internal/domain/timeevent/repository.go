package timeevent

import (
	"context"

	"github.com/cmlabs-hris/hris-timesheet-go/internal/pkg/civil"
)

// Scope narrows the raw event read to one recomputation window.
type Scope struct {
	Organization string // empty = all organizations
	Department   string // empty = all departments
	From         civil.Date
	To           civil.Date // inclusive
}

type TimeEventRepository interface {
	// ListRaw returns raw swipes around From..To. Rows are matched on the raw
	// text with a day of margin either side, so callers filter again after
	// normalization.
	ListRaw(ctx context.Context, scope Scope) ([]RawTimeEvent, error)
}
