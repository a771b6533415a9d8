package gateway

import "errors"

// Gateway errors.
var (
	// ErrUnavailable is returned when the backend cannot be reached.
	ErrUnavailable = errors.New("inference backend unavailable")

	// ErrTimeout is returned when the backend does not answer in time.
	ErrTimeout = errors.New("inference backend timed out")

	// ErrBackend is returned when the backend answers with an error payload.
	ErrBackend = errors.New("inference backend error")

	// ErrNoModel is returned when no model is configured.
	ErrNoModel = errors.New("no model configured")
)
