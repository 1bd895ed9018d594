package password

import "errors"

var (
	// ErrTooShort rejects passwords below Policy.MinLength bytes.
	ErrTooShort = errors.New("password too short")
	// ErrTooLong rejects passwords above Policy.MaxLength bytes.
	ErrTooLong = errors.New("password too long")
)

// Policy is the storefront's password length rule. Lengths are in bytes:
// MaxLength bounds the input handed to Argon2.
type Policy struct {
	MinLength int
	MaxLength int
}

// DefaultPolicy allows 8 to 128 bytes.
func DefaultPolicy() Policy {
	return Policy{MinLength: 8, MaxLength: 128}
}

// Check reports whether plaintext satisfies p.
func (p Policy) Check(plaintext string) error {
	n := len(plaintext)
	if n < p.MinLength {
		return ErrTooShort
	}
	if p.MaxLength > 0 && n > p.MaxLength {
		return ErrTooLong
	}
	return nil
}
