package repository

import "errors"

// Sentinel kinds for store setup failures. Lookups that find nothing return
// errors of kind types.ErrNotFound instead.
var (
	ErrOpen    = errors.New("open store")
	ErrFixture = errors.New("invalid fixture")
)
