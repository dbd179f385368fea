package scopecache

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyKey is returned by handle builders when a supplied key is "".
	ErrEmptyKey = errors.New("scopecache: empty key")

	// ErrMissingCredentials is returned by Clear when the backend gates
	// clearing and no credentials were configured. No backend call is made.
	ErrMissingCredentials = errors.New("scopecache: backend requires admin credentials for clear")

	// ErrUnavailable is returned by counter execution when the adapter is
	// disabled or the backend reports itself unavailable.
	ErrUnavailable = errors.New("scopecache: backend unavailable")
)

// ExpiryError reports a malformed relative-expiry expression. It surfaces
// from New (configured default) or from a handle builder - configuration
// errors are never deferred to backend call time.
type ExpiryError struct {
	Expr string
	Err  error
}

func (e *ExpiryError) Error() string {
	return fmt.Sprintf("scopecache: invalid expiry expression %q: %v", e.Expr, e.Err)
}

func (e *ExpiryError) Unwrap() error { return e.Err }
