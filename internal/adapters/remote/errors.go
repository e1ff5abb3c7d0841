package remote

import "errors"

// Sentinel kinds for remote store errors.
var (
	ErrDecode          = errors.New("decode remote document")
	ErrUnknownDriver   = errors.New("unknown remote driver")
	ErrNotConfigured   = errors.New("remote store not configured")
	ErrInvalidDocument = errors.New("invalid remote document")
)
