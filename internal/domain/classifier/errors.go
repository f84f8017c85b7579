package classifier

import "errors"

// Sentinel errors for classifier loading and inference.
var (
	// ErrModelUnavailable means the routed variant has no loaded classifier,
	// even after a reload attempt. Callers should answer service-unavailable.
	ErrModelUnavailable = errors.New("model unavailable")
	ErrLoadFailed       = errors.New("model load failed")
	ErrFeatureMismatch  = errors.New("feature schema mismatch")
	ErrInvalidInput     = errors.New("invalid classifier input")
)
