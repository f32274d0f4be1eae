// Package civil holds zone-less calendar values. Swipe timestamps are converted
// into DateTime exactly once, at the ingestion boundary; nothing downstream
// handles absolute instants for attendance math.
package civil

import (
	"fmt"
	"time"
)

const (
	DateLayout     = "2006-01-02"
	MonthLayout    = "2006-01"
	ClockLayout    = "15:04:05"
	DateTimeLayout = "2006-01-02 15:04:05"
)

// Date is a calendar date with no time zone.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf returns the calendar date of t in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return DateOf(t), nil
}

// ParseMonth parses a YYYY-MM string.
func ParseMonth(s string) (int, time.Month, error) {
	t, err := time.Parse(MonthLayout, s)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid month %q: %w", s, err)
	}
	return t.Year(), t.Month(), nil
}

// MonthRange returns the first and last day of the given month.
func MonthRange(year int, month time.Month) (Date, Date) {
	first := Date{Year: year, Month: month, Day: 1}
	return first, first.AddMonths(1).AddDays(-1)
}

func (d Date) String() string {
	return d.In(time.UTC).Format(DateLayout)
}

func (d Date) IsZero() bool {
	return d.Year == 0 && d.Month == 0 && d.Day == 0
}

// In returns midnight of d in loc.
func (d Date) In(loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

func (d Date) AddDays(n int) Date {
	return DateOf(d.In(time.UTC).AddDate(0, 0, n))
}

func (d Date) AddMonths(n int) Date {
	return DateOf(d.In(time.UTC).AddDate(0, n, 0))
}

func (d Date) Compare(o Date) int {
	return d.In(time.UTC).Compare(o.In(time.UTC))
}

func (d Date) Before(o Date) bool { return d.Compare(o) < 0 }
func (d Date) After(o Date) bool  { return d.Compare(o) > 0 }

func (d Date) Weekday() time.Weekday {
	return d.In(time.UTC).Weekday()
}

func (d Date) IsWeekend() bool {
	wd := d.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// Clock is a wall-clock time of day with second precision.
type Clock struct {
	Hour   int
	Minute int
	Second int
}

// ClockOf returns the wall-clock time of t in t's own location.
func ClockOf(t time.Time) Clock {
	return Clock{Hour: t.Hour(), Minute: t.Minute(), Second: t.Second()}
}

// ParseClock accepts "15:04" and "15:04:05".
func ParseClock(s string) (Clock, error) {
	for _, layout := range []string{ClockLayout, "15:04"} {
		if t, err := time.Parse(layout, s); err == nil {
			return ClockOf(t), nil
		}
	}
	return Clock{}, fmt.Errorf("invalid clock time %q", s)
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", c.Hour, c.Minute, c.Second)
}

// Seconds returns the number of seconds since midnight.
func (c Clock) Seconds() int {
	return c.Hour*3600 + c.Minute*60 + c.Second
}

func (c Clock) Before(o Clock) bool { return c.Seconds() < o.Seconds() }

// DateTime is a local wall-clock instant without an offset.
type DateTime struct {
	Date  Date
	Clock Clock
}

func Of(d Date, c Clock) DateTime {
	return DateTime{Date: d, Clock: c}
}

// FromInstant converts an absolute instant to the wall clock of loc. This is the
// only place an absolute time becomes a DateTime.
func FromInstant(t time.Time, loc *time.Location) DateTime {
	local := t.In(loc)
	return DateTime{Date: DateOf(local), Clock: ClockOf(local)}
}

func ParseDateTime(s string) (DateTime, error) {
	t, err := time.Parse(DateTimeLayout, s)
	if err != nil {
		return DateTime{}, fmt.Errorf("invalid datetime %q: %w", s, err)
	}
	return DateTime{Date: DateOf(t), Clock: ClockOf(t)}, nil
}

// In places the wall clock in loc. Persisted as a zone-less timestamp via time.UTC.
func (dt DateTime) In(loc *time.Location) time.Time {
	return time.Date(dt.Date.Year, dt.Date.Month, dt.Date.Day, dt.Clock.Hour, dt.Clock.Minute, dt.Clock.Second, 0, loc)
}

func (dt DateTime) String() string {
	return dt.In(time.UTC).Format(DateTimeLayout)
}

func (dt DateTime) IsZero() bool {
	return dt.Date.IsZero() && dt.Clock == Clock{}
}

// Sub returns the wall-clock difference dt - o.
func (dt DateTime) Sub(o DateTime) time.Duration {
	return dt.In(time.UTC).Sub(o.In(time.UTC))
}

func (dt DateTime) Add(d time.Duration) DateTime {
	return FromInstant(dt.In(time.UTC).Add(d), time.UTC)
}

func (dt DateTime) AddDays(n int) DateTime {
	return DateTime{Date: dt.Date.AddDays(n), Clock: dt.Clock}
}

func (dt DateTime) Compare(o DateTime) int {
	return dt.In(time.UTC).Compare(o.In(time.UTC))
}

func (dt DateTime) Before(o DateTime) bool { return dt.Compare(o) < 0 }
func (dt DateTime) After(o DateTime) bool  { return dt.Compare(o) > 0 }
