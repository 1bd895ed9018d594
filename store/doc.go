// Package store is the thin adapter between shopauth and the backing key-value
// service (Redis). It exposes exactly the single-key primitives the session
// lifecycle and the bruteforce guard need: create-if-absent, field read,
// expiry, delete and increment.
//
// # Architecture boundaries
//
// The [Client] knows nothing about session kinds, tokens or payloads; callers
// pass fully namespaced keys and flat string fields. All correctness-critical
// invariants (token uniqueness, fail-safe promotion) are pushed down to the
// per-key atomicity Redis already provides. No in-process locks are used.
//
// # What this package must NOT do
//
//   - Import session, shopauth, or any package that re-imports them.
//   - Interpret field values.
//   - Retry operations; retry policy belongs to the caller.
package store
