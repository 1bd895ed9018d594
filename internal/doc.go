// Package internal contains helper utilities that are intentionally private to shopauth,
// most importantly the session token generator.
//
// # Sub-packages
//
//   - audit: async event dispatch (Dispatcher + Sink implementations)
//   - limiters: the per-client bruteforce guard
//
// # What this package must NOT do
//
//   - Export types that appear in the public shopauth API.
//   - Be imported by any package outside the shopauth module.
package internal
