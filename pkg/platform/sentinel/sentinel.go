package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores, loaders and notifiers return
// these (optionally wrapped) so services can translate them into domain errors.
//
//   - ErrNotFound: record does not exist in the store
//   - ErrUnavailable: backing service or resource cannot be reached
//   - ErrConflict: a record with the same key already exists
//
// Input validation failures are not sentinels; they carry their own
// structured error types.
var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrUnavailable = errors.New("unavailable")
)
