package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores, the backend client and
// hardware adapters return these (optionally wrapped) so services can
// translate them into coded domain errors:
//   - ErrNotFound: record does not exist in the store
//   - ErrConflict: record already exists with different content
//   - ErrInvalidState: record is in the wrong state for the operation
//   - ErrUnavailable: backend, relay or reader temporarily unavailable
//   - ErrTimeout: collaborator did not answer within its deadline
//   - ErrWiped: ephemeral buffer has already been wiped
//
// For validation errors, use pkg/domain-errors directly.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
	ErrTimeout      = errors.New("timed out")
	ErrWiped        = errors.New("wiped")
)
