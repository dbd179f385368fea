// Package local implements the in-process user-space backend: a sharded map
// with per-entry TTLs, atomic per-key counters, shard-per-segment clearing
// and an optional admin credential gate on clear.
//
// Expired entries are dropped lazily on access; eviction under memory
// pressure is not implemented (the process owns the memory).
package local

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"hash/fnv"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	be "github.com/unkn0wn-root/scopecache/backend"
)

const defaultShards = 8

var (
	ErrClosed    = errors.New("local: store closed")
	ErrForbidden = errors.New("local: invalid admin credentials")
)

type entry struct {
	val []byte
	exp time.Time // zero => no expiry
}

type shard struct {
	mu    sync.RWMutex
	items map[string]entry
}

// Config tunes the local store.
type Config struct {
	// Shards is the shard count and therefore the SegmentCount for Clear.
	// 0 => 8.
	Shards int

	// AdminUsername/AdminPassword activate the clear credential gate when
	// either is non-empty.
	AdminUsername string
	AdminPassword string

	// Clock overrides the time source (tests). nil => time.Now.
	Clock func() time.Time
}

// Store is an in-process Backend. The zero value is not usable; construct
// with New.
type Store struct {
	shards []*shard
	gate   *be.Credentials
	now    func() time.Time
	closed atomic.Bool
}

var _ be.Backend = (*Store)(nil)

func New(cfg Config) *Store {
	n := cfg.Shards
	if n <= 0 {
		n = defaultShards
	}
	s := &Store{shards: make([]*shard, n), now: cfg.Clock}
	for i := range s.shards {
		s.shards[i] = &shard{items: make(map[string]entry)}
	}
	if s.now == nil {
		s.now = time.Now
	}
	if cfg.AdminUsername != "" || cfg.AdminPassword != "" {
		s.gate = &be.Credentials{Username: cfg.AdminUsername, Password: cfg.AdminPassword}
	}
	return s
}

func (s *Store) shardFor(key string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return s.shards[h.Sum32()%uint32(len(s.shards))]
}

func (s *Store) Available() bool { return !s.closed.Load() }

func (s *Store) Set(_ context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	if s.closed.Load() {
		return false, ErrClosed
	}
	var exp time.Time
	if ttl > 0 {
		exp = s.now().Add(ttl)
	}
	sh := s.shardFor(key)
	sh.mu.Lock()
	sh.items[key] = entry{val: append([]byte(nil), value...), exp: exp}
	sh.mu.Unlock()
	return true, nil
}

func (s *Store) Get(_ context.Context, key string) ([]byte, bool, error) {
	if s.closed.Load() {
		return nil, false, ErrClosed
	}
	sh := s.shardFor(key)
	sh.mu.RLock()
	e, ok := sh.items[key]
	sh.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if s.expired(e) {
		sh.mu.Lock()
		if cur, ok := sh.items[key]; ok && s.expired(cur) {
			delete(sh.items, key)
		}
		sh.mu.Unlock()
		return nil, false, nil
	}
	return e.val, true, nil
}

func (s *Store) Unset(_ context.Context, key string) (bool, error) {
	if s.closed.Load() {
		return false, ErrClosed
	}
	sh := s.shardFor(key)
	sh.mu.Lock()
	e, ok := sh.items[key]
	if ok {
		delete(sh.items, key)
	}
	sh.mu.Unlock()
	// an already-expired entry counts as absent
	return ok && !s.expired(e), nil
}

// Increment is atomic per key (single shard lock). An absent, expired or
// non-numeric value counts as 0 before the offset is applied; the result may
// go negative. The entry's remaining expiry is preserved; a fresh counter
// persists.
func (s *Store) Increment(_ context.Context, key string, offset int64) (int64, error) {
	if s.closed.Load() {
		return 0, ErrClosed
	}
	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	var cur int64
	var exp time.Time
	if e, ok := sh.items[key]; ok && !s.expired(e) {
		exp = e.exp
		if n, err := strconv.ParseInt(string(e.val), 10, 64); err == nil {
			cur = n
		}
	}
	next := cur + offset
	sh.items[key] = entry{val: strconv.AppendInt(nil, next, 10), exp: exp}
	return next, nil
}

func (s *Store) SegmentCount() int { return len(s.shards) }

func (s *Store) AuthRequired() bool { return s.gate != nil }

func (s *Store) ClearSegment(_ context.Context, segment int, creds *be.Credentials) (bool, error) {
	if s.closed.Load() {
		return false, ErrClosed
	}
	if segment < 0 || segment >= len(s.shards) {
		return false, fmt.Errorf("local: segment %d out of range [0,%d)", segment, len(s.shards))
	}
	if s.gate != nil && !credsMatch(s.gate, creds) {
		return false, ErrForbidden
	}
	sh := s.shards[segment]
	sh.mu.Lock()
	sh.items = make(map[string]entry)
	sh.mu.Unlock()
	return true, nil
}

func (s *Store) Close(_ context.Context) error {
	s.closed.Store(true)
	return nil
}

// Len reports live (non-expired) entries across all shards.
func (s *Store) Len() int {
	n := 0
	for _, sh := range s.shards {
		sh.mu.RLock()
		for _, e := range sh.items {
			if !s.expired(e) {
				n++
			}
		}
		sh.mu.RUnlock()
	}
	return n
}

func (s *Store) expired(e entry) bool {
	return !e.exp.IsZero() && s.now().After(e.exp)
}

func credsMatch(want, got *be.Credentials) bool {
	if got == nil {
		return false
	}
	u := subtle.ConstantTimeCompare([]byte(want.Username), []byte(got.Username))
	p := subtle.ConstantTimeCompare([]byte(want.Password), []byte(got.Password))
	return u&p == 1
}
