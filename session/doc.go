// Package session implements the four session kinds used by the storefront and
// the transitions between them.
//
// # Kinds and namespaces
//
// Every kind lives in its own key namespace (sessions:registration,
// sessions:preauthentication, sessions:authenticated), so a token minted for one
// kind can never resolve as another. Records are Redis hashes with one field per
// payload attribute plus the csrf token.
//
// # Lifecycle
//
// Records are never mutated in place. A state change deletes one record and
// creates a new one under a fresh token (see [PreAuthenticationSession.Promote]).
// Expiry is owned by the store: a record past its TTL simply stops resolving.
//
// # Promotion ordering
//
// Promotion is delete-then-create across two keys and is not atomic as a pair.
// A crash in between leaves the user with no valid session at all, which is the
// intended failure direction: there is never a moment where both the old and the
// new token are valid.
//
// # What this package must NOT do
//
//   - Import shopauth, middleware, or httpapi.
//   - Hash, verify, or store primary credentials (that is the caller's job).
//   - Expose a record under a variant whose kind or role does not match it.
package session
