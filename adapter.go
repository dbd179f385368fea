package scopecache

import (
	"context"
	"fmt"
	"sort"
	"time"

	be "github.com/unkn0wn-root/scopecache/backend"
	cd "github.com/unkn0wn-root/scopecache/codec"
)

type adapter[V any] struct {
	scope    string
	backend  be.Backend
	codec    cd.Codec[V]
	log      Logger
	hooks    Hooks
	creds    *be.Credentials
	def      Expiry
	disabled bool
	now      func() time.Time
}

func newAdapter[V any](opts Options[V]) (*adapter[V], error) {
	if opts.Backend == nil {
		return nil, fmt.Errorf("scopecache: backend is required")
	}
	if opts.Codec == nil {
		return nil, fmt.Errorf("scopecache: codec is required")
	}
	if err := opts.DefaultExpiry.validate(); err != nil {
		return nil, err
	}

	a := &adapter[V]{
		scope:    opts.Scope,
		backend:  opts.Backend,
		codec:    opts.Codec,
		def:      opts.DefaultExpiry,
		disabled: opts.Disabled,
	}

	// defaults
	a.log = coalesce[Logger](opts.Logger, NopLogger{})
	a.hooks = coalesce[Hooks](opts.Hooks, NopHooks{})
	a.now = opts.Now
	if a.now == nil {
		a.now = time.Now
	}
	if opts.Username != "" || opts.Password != "" {
		a.creds = &be.Credentials{Username: opts.Username, Password: opts.Password}
	}
	return a, nil
}

func (a *adapter[V]) Enabled() bool {
	return !a.disabled && a.backend.Available()
}

func (a *adapter[V]) Close(ctx context.Context) error {
	if a.backend != nil {
		return a.backend.Close(ctx)
	}
	return nil
}

// ==============================
// Handle builders
// ==============================

func (a *adapter[V]) Write(items map[string]V, exp Expiry) (*WriteOp[V], error) {
	if err := exp.validate(); err != nil {
		return nil, err
	}
	order := make([]string, 0, len(items))
	for k := range items {
		if k == "" {
			return nil, ErrEmptyKey
		}
		order = append(order, k)
	}
	// map iteration order is randomized; fix the execution order up front
	sort.Strings(order)
	return &WriteOp[V]{a: a, order: order, Items: items, Expiry: exp}, nil
}

func (a *adapter[V]) Read(keys []string) (*ReadOp[V], error) {
	if err := checkKeys(keys); err != nil {
		return nil, err
	}
	return &ReadOp[V]{a: a, keys: append([]string(nil), keys...)}, nil
}

func (a *adapter[V]) Delete(keys []string) (*DeleteOp[V], error) {
	if err := checkKeys(keys); err != nil {
		return nil, err
	}
	return &DeleteOp[V]{a: a, keys: append([]string(nil), keys...)}, nil
}

func (a *adapter[V]) Increment(key string, offset int64) (*CounterOp[V], error) {
	if key == "" {
		return nil, ErrEmptyKey
	}
	return &CounterOp[V]{a: a, kind: OpIncrement, key: key, Offset: offset}, nil
}

func (a *adapter[V]) Decrement(key string, offset int64) (*CounterOp[V], error) {
	if key == "" {
		return nil, ErrEmptyKey
	}
	return &CounterOp[V]{a: a, kind: OpDecrement, key: key, Offset: offset}, nil
}

func checkKeys(keys []string) error {
	for _, k := range keys {
		if k == "" {
			return ErrEmptyKey
		}
	}
	return nil
}

// ==============================
// Execution
// ==============================

func (a *adapter[V]) execWrite(ctx context.Context, op *WriteOp[V]) (bool, error) {
	if !a.Enabled() {
		return false, nil
	}
	now := a.now()
	ttl, err := op.Expiry.Resolve(a.def, now)
	if err != nil {
		return false, err
	}
	// A computed expiry at or before now means "already expired": unset the
	// key so a stale value cannot outlive the write. Persist and TTL(0) keep
	// the backend's ttl=0 "forever" meaning.
	expired := ttl < 0 || (ttl == 0 && op.Expiry.effective(a.def).computed())

	scoped := scopeKeys(a.scope, op.order)
	ok, at, err := applyAll(ctx, scoped, func(ctx context.Context, i int, sk string) (bool, error) {
		if expired {
			if _, err := a.backend.Unset(ctx, sk); err != nil {
				return false, err
			}
			return true, nil
		}
		payload, err := a.codec.Encode(op.Items[op.order[i]])
		if err != nil {
			return false, err
		}
		stored, err := a.backend.Set(ctx, sk, payload, ttl)
		if err != nil {
			return false, err
		}
		if !stored {
			a.hooks.SetRejected(sk)
		}
		return stored, nil
	})
	if !ok {
		a.hooks.BatchAborted(OpWrite, scoped[at], at)
		a.log.Debug("write batch aborted", Fields{"scope": a.scope, "applied": at, "err": err})
		return false, err
	}
	return true, nil
}

func (a *adapter[V]) execRead(ctx context.Context, op *ReadOp[V]) (map[string]V, error) {
	if !a.Enabled() {
		return map[string]V{}, nil
	}
	var zero V
	scoped := scopeKeys(a.scope, op.keys)
	found := collect(ctx, scoped, func(ctx context.Context, sk string) (V, bool) {
		raw, ok, err := a.backend.Get(ctx, sk)
		if err != nil || !ok {
			return zero, false
		}
		v, err := a.codec.Decode(raw)
		if err != nil {
			// self-heal: drop the corrupt entry so it cannot poison later reads
			_, _ = a.backend.Unset(ctx, sk)
			a.hooks.SelfHeal(sk, "value_decode")
			return zero, false
		}
		return v, true
	})
	return unscopeResults(a.scope, found), nil
}

func (a *adapter[V]) execDelete(ctx context.Context, op *DeleteOp[V]) (bool, error) {
	if !a.Enabled() {
		return false, nil
	}
	scoped := scopeKeys(a.scope, op.keys)
	ok, at, err := applyAll(ctx, scoped, func(ctx context.Context, _ int, sk string) (bool, error) {
		return a.backend.Unset(ctx, sk)
	})
	if !ok {
		a.hooks.BatchAborted(OpDelete, scoped[at], at)
		a.log.Debug("delete batch aborted", Fields{"scope": a.scope, "applied": at, "err": err})
		return false, err
	}
	return true, nil
}

func (a *adapter[V]) execCounter(ctx context.Context, op *CounterOp[V]) (int64, error) {
	if !a.Enabled() {
		return 0, ErrUnavailable
	}
	off := op.Offset
	if op.kind == OpDecrement {
		off = -off
	}
	return a.backend.Increment(ctx, scopeKey(a.scope, op.key), off)
}

// Clear empties every backend segment, ignoring scope. See Cache.Clear for
// the caller-facing contract.
func (a *adapter[V]) Clear(ctx context.Context) (bool, error) {
	if !a.Enabled() {
		return false, nil
	}
	if a.backend.AuthRequired() && a.creds == nil {
		a.hooks.ClearDenied("missing_credentials")
		return false, ErrMissingCredentials
	}
	segments := a.backend.SegmentCount()
	for seg := 0; seg < segments; seg++ {
		ok, err := a.backend.ClearSegment(ctx, seg, a.creds)
		if err != nil {
			a.hooks.ClearSegmentFailed(seg, err)
			return false, err
		}
		if !ok {
			a.hooks.ClearSegmentFailed(seg, nil)
			return false, nil
		}
	}
	a.log.Debug("cleared backend", Fields{"scope": a.scope, "segments": segments})
	return true, nil
}
