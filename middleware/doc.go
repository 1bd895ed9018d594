// Package middleware adapts shopauth.Engine to net/http.
//
// # Guards
//
//   - [RequireCustomer], [RequireAdministrator], [RequireAuthenticated]:
//     full sessions, by role.
//   - [RequirePreAuthentication]: a login waiting for its second factor.
//   - [RequireRegistration]: a signup waiting for its credential.
//   - [Bruteforce]: per-client attempt counting keyed on X-Real-IP.
//
// Each session guard reads the session cookie, resolves it through the
// Engine, checks the X-CSRF-Token header against the session's csrf token
// unless [WithoutCSRF] is given, and stores the typed session in the request
// context. Handlers read it back with [SessionFromContext].
//
// # What this package must NOT do
//
//   - Touch Redis directly (the Engine owns the session store).
//   - Distinguish expired, unknown and wrong-kind tokens to the client.
package middleware
