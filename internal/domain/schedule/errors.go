package schedule

import "errors"

var (
	ErrInvalidDayKind = errors.New("invalid schedule day kind")
)
