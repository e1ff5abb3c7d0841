package queue

import "errors"

// Sentinel kinds for queue errors.
var (
	ErrClosed = errors.New("push queue closed")
	ErrFull   = errors.New("push queue full")
)
