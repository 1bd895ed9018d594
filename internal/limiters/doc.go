// Package limiters counts credential attempts per client in Redis.
//
// [BruteforceGuard] keeps one counter per client. Attempts inside the window
// are allowed until the threshold; from then on every attempt is denied and
// pushes the penalty expiry forward, so a client that keeps retrying stays
// locked out.
//
// The guard only counts. Callers decide what a denial means.
package limiters
