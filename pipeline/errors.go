package pipeline

import "errors"

// Per-image failure taxonomy. Each error aborts processing of its own image
// only; sibling images in the same submission are unaffected.
var (
	// ErrStorageWriteFailed covers failures writing raw bytes to the
	// object store.
	ErrStorageWriteFailed = errors.New("storage write failed")

	// ErrAnnotationFailed covers transport or model-side failures of the
	// damage-assessment call.
	ErrAnnotationFailed = errors.New("annotation failed")

	// ErrIdAllocationFailed covers failures of the tracking id allocator.
	ErrIdAllocationFailed = errors.New("tracking id allocation failed")

	// ErrPersistenceFailed covers failures writing the report record.
	ErrPersistenceFailed = errors.New("persistence failed")
)
