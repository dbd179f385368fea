package scopecache

import "context"

// OpKind identifies what a deferred handle will do when executed.
type OpKind uint8

const (
	OpWrite OpKind = iota + 1
	OpRead
	OpDelete
	OpIncrement
	OpDecrement
)

func (k OpKind) String() string {
	switch k {
	case OpWrite:
		return "write"
	case OpRead:
		return "read"
	case OpDelete:
		return "delete"
	case OpIncrement:
		return "increment"
	case OpDecrement:
		return "decrement"
	default:
		return "unknown"
	}
}

// Op is the read-only surface every deferred handle shares: enough for a
// dispatcher to inspect, filter or log operations before executing them.
// Handles are plain parameter-carrying values, not ambient closures; the only
// behavior they hold is Execute.
type Op interface {
	Kind() OpKind
	// Keys returns the original (unscoped) keys in execution order.
	Keys() []string
}

// WriteOp is a deferred batch write. Execute stores every item with one TTL
// resolved from Expiry at that moment, returning true iff every per-key
// backend write succeeded. The first failure aborts the remaining keys;
// already-written keys are not rolled back.
type WriteOp[V any] struct {
	a     *adapter[V]
	order []string

	Items  map[string]V
	Expiry Expiry
}

func (o *WriteOp[V]) Kind() OpKind   { return OpWrite }
func (o *WriteOp[V]) Keys() []string { return append([]string(nil), o.order...) }

func (o *WriteOp[V]) Execute(ctx context.Context) (bool, error) {
	return o.a.execWrite(ctx, o)
}

// ReadOp is a deferred batch read. Execute returns a map holding only the
// keys actually found; misses and per-key backend errors are simply absent.
type ReadOp[V any] struct {
	a    *adapter[V]
	keys []string
}

func (o *ReadOp[V]) Kind() OpKind   { return OpRead }
func (o *ReadOp[V]) Keys() []string { return append([]string(nil), o.keys...) }

func (o *ReadOp[V]) Execute(ctx context.Context) (map[string]V, error) {
	return o.a.execRead(ctx, o)
}

// DeleteOp is a deferred batch delete with the same short-circuit semantics
// as WriteOp. Note the overall result reflects the backend verbatim: deleting
// a key that does not exist counts as a failed removal.
type DeleteOp[V any] struct {
	a    *adapter[V]
	keys []string
}

func (o *DeleteOp[V]) Kind() OpKind   { return OpDelete }
func (o *DeleteOp[V]) Keys() []string { return append([]string(nil), o.keys...) }

func (o *DeleteOp[V]) Execute(ctx context.Context) (bool, error) {
	return o.a.execDelete(ctx, o)
}

// CounterOp is a deferred single-key increment or decrement. Execute returns
// the backend's new value verbatim. Counter entries bypass the codec: they
// are stored as decimal integer bytes beside regular entries.
type CounterOp[V any] struct {
	a    *adapter[V]
	kind OpKind
	key  string

	Offset int64
}

func (o *CounterOp[V]) Kind() OpKind   { return o.kind }
func (o *CounterOp[V]) Keys() []string { return []string{o.key} }

func (o *CounterOp[V]) Execute(ctx context.Context) (int64, error) {
	return o.a.execCounter(ctx, o)
}
