package timer

import "errors"

var (
	// ErrRecordNotFound is returned when the shared timer row does not exist yet
	ErrRecordNotFound = errors.New("timer record not found")

	// ErrInvalidInput is returned for operator input that cannot be applied
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotRunning is returned when pausing a timer that is not running
	ErrNotRunning = errors.New("timer is not running")

	// ErrZeroDuration is returned when starting a timer with nothing left to count
	ErrZeroDuration = errors.New("timer duration is zero")

	// ErrStoreUnavailable wraps failures of the shared store itself
	ErrStoreUnavailable = errors.New("timer store unavailable")
)
