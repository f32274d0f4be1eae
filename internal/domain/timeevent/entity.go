package timeevent

import "github.com/cmlabs-hris/hris-timesheet-go/internal/pkg/civil"

type EventKind string

const (
	KindEntry   EventKind = "entry"
	KindExit    EventKind = "exit"
	KindUnknown EventKind = "unknown"
)

// ParseEventKind maps the upstream direction code: "1" entry, "2" exit,
// anything else (including "0") unknown.
func ParseEventKind(code string) EventKind {
	switch code {
	case "1":
		return KindEntry
	case "2":
		return KindExit
	default:
		return KindUnknown
	}
}

// RawTimeEvent is a swipe exactly as persisted by the ingestion collaborator.
type RawTimeEvent struct {
	ID             int64
	Organization   string
	EmployeeNumber string
	RawTimestamp   string
	KindCode       string
	SiteCode       string
}

// TimeEvent is a normalized swipe in workplace wall-clock time.
type TimeEvent struct {
	Organization   string
	EmployeeNumber string
	At             civil.DateTime
	Kind           EventKind
	SiteCode       string
}
