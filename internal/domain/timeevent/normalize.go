package timeevent

import (
	"fmt"
	"strings"
	"time"

	"github.com/cmlabs-hris/hris-timesheet-go/internal/pkg/civil"
)

const maxOffset = 14 * time.Hour

var localLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04",
}

var offsetLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05-0700",
}

// Normalize converts a raw row into a TimeEvent in loc's wall clock. Offset-free
// timestamps are taken as already local to the workplace.
func Normalize(raw RawTimeEvent, loc *time.Location) (TimeEvent, error) {
	if strings.TrimSpace(raw.EmployeeNumber) == "" {
		return TimeEvent{}, ErrEmptyEmployee
	}

	at, err := parseTimestamp(strings.TrimSpace(raw.RawTimestamp), loc)
	if err != nil {
		return TimeEvent{}, err
	}

	return TimeEvent{
		Organization:   raw.Organization,
		EmployeeNumber: strings.TrimSpace(raw.EmployeeNumber),
		At:             at,
		Kind:           ParseEventKind(strings.TrimSpace(raw.KindCode)),
		SiteCode:       raw.SiteCode,
	}, nil
}

func parseTimestamp(s string, loc *time.Location) (civil.DateTime, error) {
	for _, layout := range localLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return checkYear(civil.FromInstant(t, time.UTC), s)
		}
	}

	for _, layout := range offsetLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		_, offset := t.Zone()
		if d := time.Duration(offset) * time.Second; d > maxOffset || d < -maxOffset {
			return civil.DateTime{}, fmt.Errorf("%w: offset %s out of range in %q", ErrMalformedTimestamp, d, s)
		}
		return checkYear(civil.FromInstant(t, loc), s)
	}

	return civil.DateTime{}, fmt.Errorf("%w: cannot parse %q", ErrMalformedTimestamp, s)
}

func checkYear(dt civil.DateTime, s string) (civil.DateTime, error) {
	if dt.Date.Year < 2000 || dt.Date.Year > 2100 {
		return civil.DateTime{}, fmt.Errorf("%w: implausible year in %q", ErrMalformedTimestamp, s)
	}
	return dt, nil
}
