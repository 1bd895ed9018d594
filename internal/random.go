package internal

import (
	"crypto/rand"
	"encoding/hex"
	"io"
)

// TokenBytes is the amount of CSPRNG output behind every session and csrf token.
const TokenBytes = 24

// TokenLength is the length of a hex-encoded token.
const TokenLength = TokenBytes * 2

var randomSource io.Reader = rand.Reader

// NewToken returns 24 bytes of CSPRNG output, hex-encoded.
//
// It panics when the randomness source fails: a token generator that cannot
// produce unguessable output must not hand out tokens at all.
func NewToken() string {
	var raw [TokenBytes]byte
	if _, err := io.ReadFull(randomSource, raw[:]); err != nil {
		panic("shopauth: os random source unavailable: " + err.Error())
	}
	return hex.EncodeToString(raw[:])
}

// IsToken reports whether s has the shape of a token produced by NewToken.
func IsToken(s string) bool {
	if len(s) != TokenLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
