package postgresql

import (
	"time"

	"github.com/cmlabs-hris/hris-timesheet-go/internal/pkg/civil"
)

// DATE and TIMESTAMP columns carry wall-clock values; they travel through pgx
// as time.Time pinned to UTC.

func dateParam(d civil.Date) time.Time {
	return d.In(time.UTC)
}

func dateTimeParam(dt *civil.DateTime) *time.Time {
	if dt == nil {
		return nil
	}
	t := dt.In(time.UTC)
	return &t
}

func dateTimeFromColumn(t *time.Time) *civil.DateTime {
	if t == nil {
		return nil
	}
	dt := civil.FromInstant(*t, time.UTC)
	return &dt
}
