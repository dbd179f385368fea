package scopecache

import "strings"

// scopeSep separates the scope prefix from the raw key.
const scopeSep = ":"

// scopeKey prefixes key with scope. Empty scope is the identity.
func scopeKey(scope, key string) string {
	if scope == "" {
		return key
	}
	return scope + scopeSep + key
}

// scopeKeys applies scopeKey to every key, preserving order. Empty scope
// returns the input slice untouched.
func scopeKeys(scope string, keys []string) []string {
	if scope == "" {
		return keys
	}
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = scope + scopeSep + k
	}
	return out
}

// unscopeKey is the exact inverse of scopeKey for keys this scope produced.
// ok is false for foreign keys that lack the prefix.
func unscopeKey(scope, key string) (raw string, ok bool) {
	if scope == "" {
		return key, true
	}
	return strings.CutPrefix(key, scope+scopeSep)
}

// unscopeResults rewrites result map keys back to caller keys. Values are
// never touched; foreign keys are dropped.
func unscopeResults[T any](scope string, in map[string]T) map[string]T {
	if scope == "" {
		return in
	}
	out := make(map[string]T, len(in))
	for k, v := range in {
		if raw, ok := unscopeKey(scope, k); ok {
			out[raw] = v
		}
	}
	return out
}
