// Package password verifies and hashes the primary credential.
//
// Hashes are Argon2id in PHC string format:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// [Policy] holds the length rule applied before any account write. Length is
// counted in bytes so the maximum also bounds the work handed to Argon2.
//
// This package never stores credentials and never logs plaintext.
package password
