// Package redis adapts redis/go-redis to the scopecache backend capability.
//
// Counters use INCRBY: an absent key starts at 0 natively, but Redis errors
// on a non-numeric stored value instead of treating it as 0 - counter
// arithmetic is store-defined per the Backend contract. Clear flushes the
// whole logical database (single segment). Authentication lives in the
// client configuration, so no credential gate is exposed here.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	be "github.com/unkn0wn-root/scopecache/backend"
)

var ErrNilClient = errors.New("redis backend: nil client")

const pingTimeout = time.Second

type Store struct {
	rdb         goredis.UniversalClient
	closeClient bool
}

var _ be.Backend = (*Store)(nil)

type Config struct {
	Client      goredis.UniversalClient
	CloseClient bool // set true only if this backend exclusively owns the client
}

func New(cfg Config) (*Store, error) {
	if cfg.Client == nil {
		return nil, ErrNilClient
	}
	return &Store{rdb: cfg.Client, closeClient: cfg.CloseClient}, nil
}

func (s *Store) Available() bool {
	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	return s.rdb.Ping(ctx).Err() == nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		ttl = 0 // non-positive TTLs mean "no expiry" per the Backend contract
	}
	if err := s.rdb.Set(ctx, key, value, ttl).Err(); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := s.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil // miss
	}
	if err != nil {
		return nil, false, err // transport/server error
	}
	return b, true, nil
}

func (s *Store) Unset(ctx context.Context, key string) (bool, error) {
	n, err := s.rdb.Del(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *Store) Increment(ctx context.Context, key string, offset int64) (int64, error) {
	return s.rdb.IncrBy(ctx, key, offset).Result()
}

func (s *Store) SegmentCount() int { return 1 }

func (s *Store) ClearSegment(ctx context.Context, segment int, _ *be.Credentials) (bool, error) {
	if segment != 0 {
		return false, fmt.Errorf("redis backend: segment %d out of range", segment)
	}
	if err := s.rdb.FlushDB(ctx).Err(); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) AuthRequired() bool { return false }

func (s *Store) Close(_ context.Context) error {
	if s.closeClient {
		return s.rdb.Close()
	}
	return nil
}
