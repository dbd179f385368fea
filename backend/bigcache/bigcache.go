// Package bigcache adapts allegro/bigcache to the scopecache backend
// capability. BigCache has no per-entry TTL; the global LifeWindow applies to
// every write, so per-operation expiries are advisory only with this backend.
package bigcache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	bc "github.com/allegro/bigcache/v3"

	be "github.com/unkn0wn-root/scopecache/backend"
)

type Store struct {
	c *bc.BigCache
}

var _ be.Backend = (*Store)(nil)

type Config struct {
	LifeWindow         time.Duration
	CleanWindow        time.Duration
	MaxEntriesInWindow int
	MaxEntrySize       int
	HardMaxCacheSizeMB int // ~ memory limit; 0 = unlimited
}

func New(cfg Config) (*Store, error) {
	conf := bc.DefaultConfig(cfg.LifeWindow)
	if cfg.CleanWindow > 0 {
		conf.CleanWindow = cfg.CleanWindow
	}
	if cfg.MaxEntriesInWindow > 0 {
		conf.MaxEntriesInWindow = cfg.MaxEntriesInWindow
	}
	if cfg.MaxEntrySize > 0 {
		conf.MaxEntrySize = cfg.MaxEntrySize
	}
	if cfg.HardMaxCacheSizeMB > 0 {
		conf.HardMaxCacheSize = cfg.HardMaxCacheSizeMB
	}
	c, err := bc.NewBigCache(conf)
	if err != nil {
		return nil, err
	}
	return &Store{c: c}, nil
}

func (s *Store) Available() bool { return true }

func (s *Store) Set(_ context.Context, key string, value []byte, _ time.Duration) (bool, error) {
	// per-entry TTL unsupported; global LifeWindow governs expiry
	return true, s.c.Set(key, value)
}

func (s *Store) Get(_ context.Context, key string) ([]byte, bool, error) {
	b, err := s.c.Get(key)
	if errors.Is(err, bc.ErrEntryNotFound) {
		return nil, false, nil
	}
	return b, err == nil, err
}

func (s *Store) Unset(_ context.Context, key string) (bool, error) {
	err := s.c.Delete(key)
	if errors.Is(err, bc.ErrEntryNotFound) {
		return false, nil
	}
	return err == nil, err
}

// Increment is read-modify-write; bigcache has no numeric primitive, so
// concurrent counters on the same key may lose updates.
func (s *Store) Increment(_ context.Context, key string, offset int64) (int64, error) {
	var cur int64
	if b, err := s.c.Get(key); err == nil {
		if n, err := strconv.ParseInt(string(b), 10, 64); err == nil {
			cur = n
		}
	}
	next := cur + offset
	if err := s.c.Set(key, strconv.AppendInt(nil, next, 10)); err != nil {
		return 0, err
	}
	return next, nil
}

func (s *Store) SegmentCount() int { return 1 }

func (s *Store) ClearSegment(_ context.Context, segment int, _ *be.Credentials) (bool, error) {
	if segment != 0 {
		return false, fmt.Errorf("bigcache: segment %d out of range", segment)
	}
	return true, s.c.Reset()
}

func (s *Store) AuthRequired() bool { return false }

func (s *Store) Close(_ context.Context) error {
	return s.c.Close()
}
