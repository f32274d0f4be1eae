package timeevent

import "errors"

var (
	ErrMalformedTimestamp = errors.New("malformed event timestamp")
	ErrEmptyEmployee      = errors.New("event has no employee number")
)
