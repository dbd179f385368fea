package scopecache

import (
	"context"
	"time"

	be "github.com/unkn0wn-root/scopecache/backend"
	cd "github.com/unkn0wn-root/scopecache/codec"
)

// Cache is the high-level, backend-agnostic adapter API. V is the caller's
// value type; serialization is handled by a pluggable Codec[V].
//
// Write/Read/Delete/Increment/Decrement build deferred handles and never
// touch the backend themselves. Builders fail only on configuration problems
// (empty keys, malformed expiry expressions); backend trouble surfaces when a
// handle executes.
type Cache[V any] interface {
	// Enabled reports whether the backend capability is usable right now.
	// Never panics; false means every operation degrades to a no-op miss.
	Enabled() bool
	Close(context.Context) error

	// Write stores every item with one resolved TTL when executed.
	// Keys run in ascending order (map iteration order is randomized).
	Write(items map[string]V, exp Expiry) (*WriteOp[V], error)

	// Read returns, when executed, a map holding only the keys found in the
	// backend. Misses are absent, never nil-valued.
	Read(keys []string) (*ReadOp[V], error)

	// Delete removes keys in the supplied order when executed, stopping at
	// the first per-key failure.
	Delete(keys []string) (*DeleteOp[V], error)

	// Increment adjusts the integer counter under key by offset when
	// executed, returning the new value. Absent or non-numeric stored values
	// count as 0 where the backend supports it. Decrement is symmetric and
	// may go negative.
	Increment(key string, offset int64) (*CounterOp[V], error)
	Decrement(key string, offset int64) (*CounterOp[V], error)

	// Clear empties the entire physical backend, every scope included - a
	// documented cross-tenant side effect. Immediate, not deferred. Fails
	// fast with ErrMissingCredentials when the backend gates clearing and no
	// credentials are configured. Stops at the first failing segment;
	// segments already cleared stay cleared.
	Clear(ctx context.Context) (bool, error)
}

// Options tune an adapter instance. Backend and Codec are required; the rest
// have working defaults. Immutable after New.
type Options[V any] struct {
	// Required
	Backend be.Backend
	Codec   cd.Codec[V]

	Scope         string // key namespace prefix; "" disables prefixing
	DefaultExpiry Expiry // used when a write passes the zero Expiry; zero => persist
	Username      string // admin credentials for Clear on gated backends
	Password      string

	Logger   Logger // nil => NopLogger
	Hooks    Hooks  // nil => NopHooks
	Disabled bool   // default false (enabled)

	Now func() time.Time // clock override for tests; nil => time.Now
}

// New validates opts (including the default expiry expression - malformed
// configuration fails here, not at first use) and returns an adapter.
func New[V any](opts Options[V]) (Cache[V], error) {
	return newAdapter[V](opts)
}
