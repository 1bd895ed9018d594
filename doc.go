// Package shopauth is the storefront's session and authentication engine.
//
// An [Engine] owns four collaborators: a Redis-backed session store with three
// namespaces (registration, pre-authentication, authenticated), a per-client
// bruteforce guard, an Argon2id password hasher and a TOTP verifier. User
// accounts live behind the [UserDirectory] interface.
//
// # Flows
//
//   - [Engine.Authenticate] checks email and password, always creates a
//     pre-authentication session, and promotes it at once when the user has
//     no second factor.
//   - [Engine.AuthenticateSecondFactor] verifies a TOTP code and promotes. A
//     wrong code leaves the pre-authentication session in place.
//   - [Engine.BeginRegistration] and [Engine.CompleteRegistration] stage a
//     signup in a registration session and commit it to the directory.
//
// Promotion deletes before it creates. A failure between the two steps leaves
// the user with no valid session, never with two.
//
// # What this package must NOT do
//
//   - Mutate a stored session in place.
//   - Log passwords, codes, session tokens or csrf tokens.
//   - Decide HTTP status codes; see package httpapi.
package shopauth
