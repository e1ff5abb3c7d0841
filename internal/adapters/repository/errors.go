package repository

import "errors"

// Sentinel kinds for local store errors.
var (
	ErrPathRequired = errors.New("local store path is required")
	ErrDecode       = errors.New("decode stored value")
	ErrPersist      = errors.New("persist value")
	ErrClosed       = errors.New("local store closed")
)
