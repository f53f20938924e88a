package services

import "errors"

// Failure classes surfaced by the prediction pipeline. Callers classify
// with errors.Is; the wrapped detail is for logs only.
var (
	ErrBadRequest        = errors.New("bad request")
	ErrModelUnavailable  = errors.New("model unavailable")
	ErrConnectionFailure = errors.New("database connection failure")
	ErrWriteFailure      = errors.New("compliance write failed")
	ErrQueueUnavailable  = errors.New("job queue unavailable")
)
