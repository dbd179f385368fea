// Package backend defines the storage capability consumed by scopecache.
//
// Implementations MUST be byte-for-byte transparent: Get must return exactly
// the same []byte previously passed to Set for a key (no prepended metadata,
// no re-encoding, no mutation). Counter entries are the one exception to
// adapter ownership of values: Increment stores decimal integer bytes.
//
// Per-key operations are individually atomic where the underlying engine
// allows it; nothing here implies cross-key atomicity or isolation.
package backend

import (
	"context"
	"time"
)

// Credentials authenticate privileged operations (whole-store clear). They
// are threaded explicitly into the call that needs them; implementations must
// not stash them in process-global state.
type Credentials struct {
	Username string
	Password string
}

// Backend is a shared byte store with TTLs, per-key integer counters and a
// segmented whole-store clear. Must be safe for concurrent use.
type Backend interface {
	// Available reports whether the store is usable in the current runtime.
	// Must not panic; callers treat false as "cache disabled".
	Available() bool

	// Set stores value under key. ttl <= 0 means no expiry.
	// ok=false means the store refused the write under pressure.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) (ok bool, err error)

	// Get returns (value, true, nil) on hit; (nil, false, nil) on miss.
	// If an IO/remote error happens, return (nil, false, err).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Unset removes key, reporting whether an entry was actually removed.
	Unset(ctx context.Context, key string) (bool, error)

	// Increment adjusts the integer stored under key by offset (negative to
	// decrement) and returns the new value. An absent or non-numeric stored
	// value is treated as 0 where the engine supports it; otherwise the
	// behavior is store-defined.
	Increment(ctx context.Context, key string, offset int64) (int64, error)

	// SegmentCount reports how many segments ClearSegment must be invoked
	// for to empty the whole store. Always >= 1.
	SegmentCount() int

	// ClearSegment empties one segment, every namespace included. creds is
	// nil when the caller has none configured; ungated stores ignore it.
	ClearSegment(ctx context.Context, segment int, creds *Credentials) (bool, error)

	// AuthRequired reports whether ClearSegment demands credentials.
	AuthRequired() bool

	// Close releases resources.
	Close(ctx context.Context) error
}
