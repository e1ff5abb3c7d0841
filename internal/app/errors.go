package service

import "errors"

// Errors returned by Service operations. Callers match them with errors.Is.
var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation failed")
	ErrInvalidScore = errors.New("score must be between 0 and 10")
	ErrEventClosed  = errors.New("event is closed for evaluations")
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotStarted   = errors.New("service not started")
)
