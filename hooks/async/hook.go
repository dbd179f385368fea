// Package asynchook decouples hook sinks from the cache hot path: events are
// queued to a bounded channel and delivered by worker goroutines. When the
// queue is full, events are dropped rather than blocking the caller.
//
// usage:
//
//	raw := sloghooks.New(slog.Default(), sloghooks.Options{SelfHealEvery: 10})
//	hooks := asynchook.New(raw, 1, 1000) // 1 worker; queue 1000 events
//	defer hooks.Close()
//
//	cache, _ := scopecache.New[User](scopecache.Options[User]{
//	    Backend: store,
//	    Codec:   codec.JSON[User]{},
//	    Scope:   "app:prod:user",
//	    Hooks:   hooks, // or `raw` if you don't want async
//	})
package asynchook

import (
	"sync"

	"github.com/unkn0wn-root/scopecache"
)

type Hooks struct {
	inner scopecache.Hooks
	q     chan func()
	wg    sync.WaitGroup
	once  sync.Once
}

var _ scopecache.Hooks = (*Hooks)(nil)

func New(inner scopecache.Hooks, workers, qlen int) *Hooks {
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}

	h := &Hooks{inner: inner, q: make(chan func(), qlen)}
	h.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer h.wg.Done()
			for f := range h.q {
				f()
			}
		}()
	}
	return h
}

func (h *Hooks) Close() {
	h.once.Do(func() {
		close(h.q)
		h.wg.Wait()
	})
}

func (h *Hooks) try(f func()) {
	select {
	case h.q <- f:
	default: // drop
	}
}

func (h *Hooks) SetRejected(k string) { h.try(func() { h.inner.SetRejected(k) }) }
func (h *Hooks) SelfHeal(k, r string) { h.try(func() { h.inner.SelfHeal(k, r) }) }
func (h *Hooks) ClearDenied(r string) { h.try(func() { h.inner.ClearDenied(r) }) }
func (h *Hooks) BatchAborted(kind scopecache.OpKind, k string, n int) {
	h.try(func() { h.inner.BatchAborted(kind, k, n) })
}
func (h *Hooks) ClearSegmentFailed(seg int, err error) {
	h.try(func() { h.inner.ClearSegmentFailed(seg, err) })
}
