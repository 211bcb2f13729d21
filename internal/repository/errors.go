// Package repository maps the workbook's row layout onto typed records.
// This file defines error types that are reused across repositories.
// These sentinel values allow higher layers such as handlers to
// distinguish between different failure scenarios with errors.Is and
// errors.As and translate them into HTTP responses: ErrNotFound becomes
// 404, ErrLockContention 503 and CapacityError 409.
package repository

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when no booking row matches the requested
// identifier. Handlers should translate this into an HTTP 404 response.
var ErrNotFound = errors.New("record not found")

// ErrLockContention is returned when the trip lock is held by another
// replica. Acquisition never waits; handlers should translate this into
// an HTTP 503 "system busy, try again" response.
var ErrLockContention = errors.New("lock contention")

// CapacityError is returned when a booking or modification would consume
// more seats than the trip has left. Delta marks the modify case where
// only the pax increase on an otherwise unchanged trip is being charged.
type CapacityError struct {
	Requested int
	Remaining int
	Delta     bool
}

func (e *CapacityError) Error() string {
	if e.Delta {
		return fmt.Sprintf("capacity_exceeded_delta:%d>%d", e.Requested, e.Remaining)
	}
	return fmt.Sprintf("capacity_exceeded:%d>%d", e.Requested, e.Remaining)
}
