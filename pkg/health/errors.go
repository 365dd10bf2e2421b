package health

import "errors"

// Check failures are reported joined with the check's own error.
var (
	ErrCheckFailed  = errors.New("health: check failed")
	ErrCheckTimeout = errors.New("health: check timed out")
)
