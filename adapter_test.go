package scopecache

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	be "github.com/unkn0wn-root/scopecache/backend"
	cd "github.com/unkn0wn-root/scopecache/codec"
)

type memEntry struct {
	v   []byte
	exp time.Time // zero => no TTL
}

// memBackend is a controllable in-memory Backend: individual keys can be made
// to refuse writes, segments can be made to fail, and the clear credential
// gate can be switched on.
type memBackend struct {
	m           map[string]memEntry
	failSet     map[string]bool // storage keys whose Set reports ok=false
	gated       bool
	segments    int
	failSegment int // ClearSegment reports false for this segment; -1 = never
	clearCalls  int
	down        bool
	now         func() time.Time
}

var _ be.Backend = (*memBackend)(nil)

func newMemBackend() *memBackend {
	return &memBackend{
		m:           make(map[string]memEntry),
		failSet:     make(map[string]bool),
		segments:    1,
		failSegment: -1,
		now:         time.Now,
	}
}

func (b *memBackend) Available() bool { return !b.down }

func (b *memBackend) Set(_ context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	if b.failSet[key] {
		return false, nil
	}
	var exp time.Time
	if ttl > 0 {
		exp = b.now().Add(ttl)
	}
	b.m[key] = memEntry{v: value, exp: exp}
	return true, nil
}

func (b *memBackend) Get(_ context.Context, key string) ([]byte, bool, error) {
	e, ok := b.m[key]
	if !ok {
		return nil, false, nil
	}
	if !e.exp.IsZero() && b.now().After(e.exp) {
		delete(b.m, key)
		return nil, false, nil
	}
	return e.v, true, nil
}

func (b *memBackend) Unset(_ context.Context, key string) (bool, error) {
	_, ok := b.m[key]
	delete(b.m, key)
	return ok, nil
}

func (b *memBackend) Increment(_ context.Context, key string, offset int64) (int64, error) {
	var cur int64
	if e, ok := b.m[key]; ok {
		if n, err := strconv.ParseInt(string(e.v), 10, 64); err == nil {
			cur = n
		}
	}
	next := cur + offset
	b.m[key] = memEntry{v: strconv.AppendInt(nil, next, 10)}
	return next, nil
}

func (b *memBackend) SegmentCount() int { return b.segments }

func (b *memBackend) ClearSegment(_ context.Context, segment int, _ *be.Credentials) (bool, error) {
	b.clearCalls++
	if segment == b.failSegment {
		return false, nil
	}
	// single logical store; clearing any live segment empties it
	b.m = make(map[string]memEntry)
	return true, nil
}

func (b *memBackend) AuthRequired() bool { return b.gated }

func (b *memBackend) Close(_ context.Context) error { return nil }

// recHooks records every hook event for assertions.
type recHooks struct {
	rejected []string
	aborted  []abortEvent
	healed   []string
	denied   []string
	segFails []int
}

type abortEvent struct {
	kind    OpKind
	key     string
	applied int
}

func (h *recHooks) SetRejected(k string) { h.rejected = append(h.rejected, k) }
func (h *recHooks) BatchAborted(kind OpKind, k string, n int) {
	h.aborted = append(h.aborted, abortEvent{kind, k, n})
}
func (h *recHooks) SelfHeal(k, _ string) { h.healed = append(h.healed, k) }
func (h *recHooks) ClearDenied(r string) { h.denied = append(h.denied, r) }
func (h *recHooks) ClearSegmentFailed(s int, _ error) {
	h.segFails = append(h.segFails, s)
}

type user struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func newTestCache(t *testing.T, scope string, mb be.Backend, optFn func(*Options[user])) Cache[user] {
	t.Helper()
	opts := Options[user]{
		Backend: mb,
		Codec:   cd.JSON[user]{},
		Scope:   scope,
	}
	if optFn != nil {
		optFn(&opts)
	}
	cc, err := New[user](opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return cc
}

// ==============================
// Write / read round trips
// ==============================

func TestWriteReadPersist(t *testing.T) {
	ctx := context.Background()
	mb := newMemBackend()
	cc := newTestCache(t, "tenant", mb, nil)
	defer cc.Close(ctx)

	items := map[string]user{
		"a": {ID: "a", Name: "Ada"},
		"b": {ID: "b", Name: "Bob"},
	}
	op, err := cc.Write(items, Persist())
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if ok, err := op.Execute(ctx); err != nil || !ok {
		t.Fatalf("Execute write: ok=%v err=%v", ok, err)
	}

	// storage keys carry the scope prefix
	if _, ok := mb.m["tenant:a"]; !ok {
		t.Fatalf("expected scoped storage key tenant:a, have %v", keysOf(mb.m))
	}

	rd, err := cc.Read([]string{"a", "b"})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	got, err := rd.Execute(ctx)
	if err != nil {
		t.Fatalf("Execute read: %v", err)
	}
	if len(got) != 2 || got["a"] != items["a"] || got["b"] != items["b"] {
		t.Fatalf("read back %v, want %v", got, items)
	}
}

func TestReadMissesOmitted(t *testing.T) {
	ctx := context.Background()
	cc := newTestCache(t, "tenant", newMemBackend(), nil)
	defer cc.Close(ctx)

	rd, err := cc.Read([]string{"nope", "nah"})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	got, err := rd.Execute(ctx)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty result for all-miss read, got %v", got)
	}
	for k, v := range got {
		t.Fatalf("unexpected entry %q=%v in miss result", k, v)
	}
}

// ==============================
// Short-circuit batch semantics
// ==============================

func TestWriteShortCircuitNonAtomic(t *testing.T) {
	ctx := context.Background()
	mb := newMemBackend()
	mb.failSet["t:b"] = true
	hooks := &recHooks{}
	cc := newTestCache(t, "t", mb, func(o *Options[user]) { o.Hooks = hooks })
	defer cc.Close(ctx)

	op, err := cc.Write(map[string]user{
		"a": {ID: "a"},
		"b": {ID: "b"},
		"c": {ID: "c"},
	}, Persist())
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	ok, err := op.Execute(ctx)
	if err != nil || ok {
		t.Fatalf("expected aggregate false, got ok=%v err=%v", ok, err)
	}

	// keys run in ascending order: "a" committed, "b" failed, "c" untouched
	if _, ok := mb.m["t:a"]; !ok {
		t.Fatalf("'a' should be committed before the failure")
	}
	if _, ok := mb.m["t:c"]; ok {
		t.Fatalf("'c' must never be attempted after the failure")
	}
	if len(hooks.aborted) != 1 || hooks.aborted[0].key != "t:b" || hooks.aborted[0].applied != 1 {
		t.Fatalf("BatchAborted = %+v, want key t:b applied 1", hooks.aborted)
	}
}

func TestDeleteShortCircuit(t *testing.T) {
	ctx := context.Background()
	mb := newMemBackend()
	mb.m["s:d1"] = memEntry{v: []byte(`{}`)}
	mb.m["s:d3"] = memEntry{v: []byte(`{}`)}
	cc := newTestCache(t, "s", mb, nil)
	defer cc.Close(ctx)

	// d2 is absent: the backend reports nothing removed, which fails the batch
	op, err := cc.Delete([]string{"d1", "d2", "d3"})
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	ok, err := op.Execute(ctx)
	if err != nil || ok {
		t.Fatalf("expected aggregate false, got ok=%v err=%v", ok, err)
	}
	if _, ok := mb.m["s:d1"]; ok {
		t.Fatalf("d1 should have been removed before the failure")
	}
	if _, ok := mb.m["s:d3"]; !ok {
		t.Fatalf("d3 must stay: processing stopped at d2")
	}
}

// ==============================
// Counters
// ==============================

func TestCounterIncrementDecrement(t *testing.T) {
	ctx := context.Background()
	mb := newMemBackend()
	cc := newTestCache(t, "app", mb, nil)
	defer cc.Close(ctx)

	inc, err := cc.Increment("counter", 5)
	if err != nil {
		t.Fatalf("Increment: %v", err)
	}
	if n, err := inc.Execute(ctx); err != nil || n != 5 {
		t.Fatalf("increment on absent key: n=%d err=%v, want 5", n, err)
	}

	dec, err := cc.Decrement("counter", 7)
	if err != nil {
		t.Fatalf("Decrement: %v", err)
	}
	if n, err := dec.Execute(ctx); err != nil || n != -2 {
		t.Fatalf("decrement: n=%d err=%v, want -2", n, err)
	}

	// counter lives under the scoped key
	if _, ok := mb.m["app:counter"]; !ok {
		t.Fatalf("counter not stored under scoped key, have %v", keysOf(mb.m))
	}
}

// ==============================
// Clear
// ==============================

func TestClearCredentialGate(t *testing.T) {
	ctx := context.Background()
	mb := newMemBackend()
	mb.gated = true
	mb.m["x:a"] = memEntry{v: []byte(`{}`)}
	hooks := &recHooks{}
	cc := newTestCache(t, "x", mb, func(o *Options[user]) { o.Hooks = hooks })
	defer cc.Close(ctx)

	ok, err := cc.Clear(ctx)
	if ok || !errors.Is(err, ErrMissingCredentials) {
		t.Fatalf("Clear without creds: ok=%v err=%v", ok, err)
	}
	if mb.clearCalls != 0 {
		t.Fatalf("no segment clear may be attempted without credentials, got %d calls", mb.clearCalls)
	}
	if len(hooks.denied) != 1 || hooks.denied[0] != "missing_credentials" {
		t.Fatalf("ClearDenied = %v", hooks.denied)
	}
}

func TestClearIgnoresScope(t *testing.T) {
	ctx := context.Background()
	mb := newMemBackend()
	mb.gated = true
	mb.m["mine:a"] = memEntry{v: []byte(`{}`)}
	mb.m["other:z"] = memEntry{v: []byte(`{}`)} // another tenant on the same backend
	cc := newTestCache(t, "mine", mb, func(o *Options[user]) {
		o.Username = "admin"
		o.Password = "s3cret"
	})
	defer cc.Close(ctx)

	ok, err := cc.Clear(ctx)
	if err != nil || !ok {
		t.Fatalf("Clear: ok=%v err=%v", ok, err)
	}
	if len(mb.m) != 0 {
		t.Fatalf("clear must wipe every scope, remaining %v", keysOf(mb.m))
	}
}

func TestClearStopsAtFailingSegment(t *testing.T) {
	ctx := context.Background()
	mb := newMemBackend()
	mb.segments = 3
	mb.failSegment = 1
	hooks := &recHooks{}
	cc := newTestCache(t, "", mb, func(o *Options[user]) { o.Hooks = hooks })
	defer cc.Close(ctx)

	ok, err := cc.Clear(ctx)
	if ok || err != nil {
		t.Fatalf("Clear: ok=%v err=%v, want plain false", ok, err)
	}
	// segment 0 cleared, segment 1 refused, segment 2 never reached
	if mb.clearCalls != 2 {
		t.Fatalf("clearCalls=%d, want 2 (stop at first failing segment)", mb.clearCalls)
	}
	if len(hooks.segFails) != 1 || hooks.segFails[0] != 1 {
		t.Fatalf("ClearSegmentFailed = %v", hooks.segFails)
	}
}

// ==============================
// Expiry behavior through the adapter
// ==============================

func TestWriteAlreadyExpiredUnsetsKey(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	mb := newMemBackend()
	mb.now = func() time.Time { return now }
	mb.m["old"] = memEntry{v: []byte(`{"id":"stale"}`)}
	cc := newTestCache(t, "", mb, func(o *Options[user]) {
		o.Now = func() time.Time { return now }
	})
	defer cc.Close(ctx)

	op, err := cc.Write(map[string]user{"old": {ID: "new"}}, At(now.Add(-time.Hour)))
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	ok, err := op.Execute(ctx)
	if err != nil || !ok {
		t.Fatalf("writing an already-expired item should succeed as a no-op store: ok=%v err=%v", ok, err)
	}
	if _, ok := mb.m["old"]; ok {
		t.Fatalf("stale value must not outlive an already-expired write")
	}
}

func TestRelativeDefaultExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	mb := newMemBackend()
	mb.now = clock
	cc := newTestCache(t, "", mb, func(o *Options[user]) {
		o.DefaultExpiry = In("+1 hour")
		o.Now = clock
	})
	defer cc.Close(ctx)

	op, err := cc.Write(map[string]user{"k": {ID: "k"}}, Expiry{}) // zero => default
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if ok, err := op.Execute(ctx); err != nil || !ok {
		t.Fatalf("Execute: ok=%v err=%v", ok, err)
	}

	want := now.Add(time.Hour)
	if got := mb.m["k"].exp; !got.Equal(want) {
		t.Fatalf("entry expires at %v, want %v", got, want)
	}

	// readable before the deadline, gone after
	rd, _ := cc.Read([]string{"k"})
	if got, _ := rd.Execute(ctx); len(got) != 1 {
		t.Fatalf("expected hit before expiry, got %v", got)
	}
	now = now.Add(2 * time.Hour)
	rd2, _ := cc.Read([]string{"k"})
	if got, _ := rd2.Execute(ctx); len(got) != 0 {
		t.Fatalf("expected miss after expiry, got %v", got)
	}
}

// ==============================
// Degraded / invalid configurations
// ==============================

func TestDisabledAdapter(t *testing.T) {
	ctx := context.Background()
	mb := newMemBackend()
	cc := newTestCache(t, "", mb, func(o *Options[user]) { o.Disabled = true })
	defer cc.Close(ctx)

	if cc.Enabled() {
		t.Fatalf("disabled adapter reports enabled")
	}
	wr, _ := cc.Write(map[string]user{"a": {}}, Persist())
	if ok, err := wr.Execute(ctx); ok || err != nil {
		t.Fatalf("disabled write: ok=%v err=%v", ok, err)
	}
	rd, _ := cc.Read([]string{"a"})
	if got, err := rd.Execute(ctx); err != nil || len(got) != 0 {
		t.Fatalf("disabled read: got=%v err=%v", got, err)
	}
	inc, _ := cc.Increment("n", 1)
	if _, err := inc.Execute(ctx); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("disabled counter err=%v, want ErrUnavailable", err)
	}
}

func TestBackendDownDisables(t *testing.T) {
	mb := newMemBackend()
	mb.down = true
	cc := newTestCache(t, "", mb, nil)
	if cc.Enabled() {
		t.Fatalf("adapter must report disabled when the backend is unavailable")
	}
}

func TestBuilderValidation(t *testing.T) {
	cc := newTestCache(t, "", newMemBackend(), nil)

	if _, err := cc.Write(map[string]user{"": {}}, Persist()); !errors.Is(err, ErrEmptyKey) {
		t.Fatalf("empty write key err=%v", err)
	}
	if _, err := cc.Read([]string{"ok", ""}); !errors.Is(err, ErrEmptyKey) {
		t.Fatalf("empty read key err=%v", err)
	}
	if _, err := cc.Increment("", 1); !errors.Is(err, ErrEmptyKey) {
		t.Fatalf("empty counter key err=%v", err)
	}

	_, err := cc.Write(map[string]user{"k": {}}, In("every other tuesday"))
	var ee *ExpiryError
	if !errors.As(err, &ee) {
		t.Fatalf("malformed expression should fail at build, err=%v", err)
	}
}

func TestNewRejectsBadDefaultExpiry(t *testing.T) {
	_, err := New[user](Options[user]{
		Backend:       newMemBackend(),
		Codec:         cd.JSON[user]{},
		DefaultExpiry: In("+1 parsec"),
	})
	var ee *ExpiryError
	if !errors.As(err, &ee) {
		t.Fatalf("New must fail fast on a malformed default expiry, err=%v", err)
	}
}

// ==============================
// Self-heal
// ==============================

func TestSelfHealOnCorruptValue(t *testing.T) {
	ctx := context.Background()
	mb := newMemBackend()
	mb.m["ns:bad"] = memEntry{v: []byte("not-json")}
	hooks := &recHooks{}
	cc := newTestCache(t, "ns", mb, func(o *Options[user]) { o.Hooks = hooks })
	defer cc.Close(ctx)

	rd, _ := cc.Read([]string{"bad"})
	got, err := rd.Execute(ctx)
	if err != nil || len(got) != 0 {
		t.Fatalf("corrupt entry must read as a miss: got=%v err=%v", got, err)
	}
	if _, ok := mb.m["ns:bad"]; ok {
		t.Fatalf("corrupt entry was not deleted by self-heal")
	}
	if len(hooks.healed) != 1 || hooks.healed[0] != "ns:bad" {
		t.Fatalf("SelfHeal = %v", hooks.healed)
	}
}

// ==============================
// Handle inspection
// ==============================

func TestOpSurface(t *testing.T) {
	cc := newTestCache(t, "", newMemBackend(), nil)

	wr, _ := cc.Write(map[string]user{"b": {}, "a": {}}, Persist())
	rd, _ := cc.Read([]string{"x"})
	dl, _ := cc.Delete([]string{"y"})
	inc, _ := cc.Increment("n", 1)
	dec, _ := cc.Decrement("n", 1)

	ops := []Op{wr, rd, dl, inc, dec}
	kinds := []OpKind{OpWrite, OpRead, OpDelete, OpIncrement, OpDecrement}
	for i, op := range ops {
		if op.Kind() != kinds[i] {
			t.Fatalf("op %d kind=%v, want %v", i, op.Kind(), kinds[i])
		}
	}
	// write keys exposed in execution (ascending) order
	if ks := wr.Keys(); len(ks) != 2 || ks[0] != "a" || ks[1] != "b" {
		t.Fatalf("write keys %v, want [a b]", ks)
	}
}

func keysOf(m map[string]memEntry) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
