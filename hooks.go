package scopecache

// Hooks are lightweight callbacks for high-signal events.
// Implementations MUST be cheap and non-blocking - the adapter calls them on
// hot paths. Wrap with hooks/async to decouple slow sinks.
type Hooks interface {
	// Backend refused a write (pressure/admission control).
	SetRejected(storageKey string)

	// A write or delete batch stopped at its first failing key.
	// applied is the number of keys committed before the failure.
	BatchAborted(kind OpKind, storageKey string, applied int)

	// A stored value failed to decode and was dropped on read.
	// reason ∈ {"value_decode"}
	SelfHeal(storageKey, reason string)

	// Clear refused before any backend segment call.
	// reason ∈ {"missing_credentials"}
	ClearDenied(reason string)

	// A segment clear failed partway through Clear, leaving earlier segments
	// cleared. err is nil when the backend reported plain refusal.
	ClearSegmentFailed(segment int, err error)
}

// NopHooks is the default no-op
type NopHooks struct{}

func (NopHooks) SetRejected(string)               {}
func (NopHooks) BatchAborted(OpKind, string, int) {}
func (NopHooks) SelfHeal(string, string)          {}
func (NopHooks) ClearDenied(string)               {}
func (NopHooks) ClearSegmentFailed(int, error)    {}
