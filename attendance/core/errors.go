package core

import "errors"

var (
	// ErrMalformedTime aborts a single recomputation.
	ErrMalformedTime = errors.New("malformed time")
	// ErrStoreUnavailable wraps every event store or summary sink failure.
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrUnknownKeyword   = errors.New("unknown keyword")
)
