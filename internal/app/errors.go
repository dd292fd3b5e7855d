package service

import "errors"

// Lifecycle errors.
var (
	ErrNoStore    = errors.New("no store configured")
	ErrNotStarted = errors.New("service not started")
)
