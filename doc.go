// Package scopecache implements a backend-agnostic cache adapter with
// deferred operations, scoped key namespacing, flexible expiry inputs and
// best-effort batch semantics.
//
// Components:
//   - Backend: shared byte store with TTLs, per-key counters and a segmented
//     whole-store clear (e.g. the in-process local store, Ristretto,
//     BigCache, Redis).
//   - Codec[V]: (de)serializes V <-> []byte.
//   - Expiry: tagged expiry value (default / persist / duration / relative
//     expression / absolute instant) normalized to a backend TTL at execute
//     time.
//
// Every read/write/delete/counter method returns a deferred handle carrying
// its captured parameters; nothing touches the backend until the handle's
// Execute is called. This lets a dispatcher filter, log or compose operations
// before running them.
//
// Keys:
//
//	<scope>:<key>  - when a scope is configured
//	<key>          - when no scope is configured
//
// Batched writes and deletes are NOT transactional: keys are processed in a
// fixed order and the first per-key failure aborts the rest, leaving earlier
// keys committed. Treat every operation as advisory; a miss or a false result
// must never break caller correctness.
package scopecache
