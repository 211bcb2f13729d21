// Package store is the gateway to the realtime coordination plane.  Three
// subtrees live there: /sheet_locks (distributed trip mutexes), /booking_seq
// (per-day monotonic counters) and /driver (telemetry and trip state).  The
// workbook stays the system of record; everything here is short-lived
// coordination data.
package store

import (
	"context"
	"errors"
)

// ErrUnavailable wraps transport failures from the realtime store.
var ErrUnavailable = errors.New("realtime store unavailable")

// KV is the raw path-addressed surface of the store.  Values are opaque
// strings (JSON for records, decimal integers for counters).  CompareAndSet
// and CompareAndDelete are the only cross-replica ordering primitives in the
// system; lock ownership is enforced with them, never with local mutexes.
type KV interface {
	// Get returns the value at path and whether it exists.
	Get(ctx context.Context, path string) (string, bool, error)
	// Set unconditionally writes the value at path.
	Set(ctx context.Context, path, value string) error
	// Delete removes the path; deleting a missing path is not an error.
	Delete(ctx context.Context, path string) error
	// CompareAndSet writes value iff the current value equals old.  A nil
	// old means "create only if absent".  It reports whether the write won.
	CompareAndSet(ctx context.Context, path string, old *string, value string) (bool, error)
	// CompareAndDelete removes the path iff the current value equals old.
	CompareAndDelete(ctx context.Context, path, old string) (bool, error)
	// Increment atomically adds one to the integer at path (0 when absent)
	// and returns the new value.
	Increment(ctx context.Context, path string) (int64, error)
}
