package attendance

import "errors"

var (
	ErrNegativeDuration = errors.New("negative work duration after midnight adjustment")
	ErrInvalidRecord    = errors.New("invalid time record")
	ErrInvalidStatus    = errors.New("invalid attendance status")
	ErrEmployeeNotFound = errors.New("employee not found in recomputation scope")
	ErrRunNotFound      = errors.New("recomputation run not found")
)
