package scopecache

import "context"

// applyAll invokes fn for each key in order and stops at the first failure
// (fn returning false or an error). The overall result is true only when
// every invocation succeeded. Keys processed before a failure stay applied -
// there is no rollback. failedAt is the index of the failing key, -1 on
// success.
func applyAll(ctx context.Context, keys []string, fn func(ctx context.Context, i int, key string) (bool, error)) (ok bool, failedAt int, err error) {
	for i, k := range keys {
		ok, err := fn(ctx, i, k)
		if err != nil || !ok {
			return false, i, err
		}
	}
	return true, -1, nil
}

// collect invokes fn for every key regardless of individual outcomes and
// keeps only the keys fn reports as present. A miss is normal control flow,
// not an error.
func collect[T any](ctx context.Context, keys []string, fn func(ctx context.Context, key string) (T, bool)) map[string]T {
	out := make(map[string]T, len(keys))
	for _, k := range keys {
		if v, ok := fn(ctx, k); ok {
			out[k] = v
		}
	}
	return out
}
