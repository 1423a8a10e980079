package sentinel

import "errors"

// Sentinel errors for backend facts. Stores return these (optionally wrapped)
// and the document and user services translate them into domain errors:
// - ErrNotFound: no record with that identifier in the partition
// - ErrConflict: a conditional write lost against a concurrent transition
// - ErrUnavailable: backend or lease provider could not be reached
var (
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrUnavailable = errors.New("unavailable")
)
