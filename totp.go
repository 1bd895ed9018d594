package shopauth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/base32"
	"encoding/binary"
	"errors"
	"fmt"
	"hash"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const totpSecretBytes = 20

var totpEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

type totpVerifier struct {
	config TOTPConfig
}

func newTOTPVerifier(cfg TOTPConfig) *totpVerifier {
	if cfg.Algorithm == "" {
		cfg.Algorithm = "SHA1"
	}
	return &totpVerifier{config: cfg}
}

// GenerateSecret returns a fresh raw secret and its base32 form.
func (v *totpVerifier) GenerateSecret() ([]byte, string, error) {
	raw := make([]byte, totpSecretBytes)
	if _, err := rand.Read(raw); err != nil {
		return nil, "", err
	}
	return raw, totpEncoding.EncodeToString(raw), nil
}

// ProvisionURI renders the otpauth:// URI authenticator apps scan.
func (v *totpVerifier) ProvisionURI(secretBase32, account string) string {
	label := url.PathEscape(v.config.Issuer + ":" + account)

	q := url.Values{}
	q.Set("secret", secretBase32)
	q.Set("issuer", v.config.Issuer)
	q.Set("period", strconv.Itoa(v.config.Period))
	q.Set("digits", strconv.Itoa(v.config.Digits))
	q.Set("algorithm", strings.ToUpper(v.config.Algorithm))

	return "otpauth://totp/" + label + "?" + q.Encode()
}

// Verify reports whether code is valid for secret at now, allowing Skew steps
// either side. Malformed codes are simply invalid.
func (v *totpVerifier) Verify(secret []byte, code string, now time.Time) (bool, error) {
	if len(secret) == 0 {
		return false, errors.New("empty totp secret")
	}

	code = strings.TrimSpace(code)
	if len(code) != v.config.Digits || !isDigits(code) {
		return false, nil
	}

	current := now.Unix() / int64(v.config.Period)
	for step := -v.config.Skew; step <= v.config.Skew; step++ {
		counter := current + int64(step)
		if counter < 0 {
			continue
		}
		want, err := hotp(secret, counter, v.config.Digits, v.config.Algorithm)
		if err != nil {
			return false, err
		}
		if subtle.ConstantTimeCompare([]byte(want), []byte(code)) == 1 {
			return true, nil
		}
	}
	return false, nil
}

// TOTPCode returns the code for secret at t under cfg. Clients and the CLI
// use it; the engine itself only verifies.
func TOTPCode(secret []byte, t time.Time, cfg TOTPConfig) (string, error) {
	if cfg.Period <= 0 {
		return "", errors.New("totp period must be positive")
	}
	algorithm := cfg.Algorithm
	if algorithm == "" {
		algorithm = "SHA1"
	}
	return hotp(secret, t.Unix()/int64(cfg.Period), cfg.Digits, algorithm)
}

// hotp is RFC 4226 dynamic truncation over an HMAC of the big-endian counter.
func hotp(secret []byte, counter int64, digits int, algorithm string) (string, error) {
	hf, err := hmacFunc(algorithm)
	if err != nil {
		return "", err
	}

	var msg [8]byte
	binary.BigEndian.PutUint64(msg[:], uint64(counter))
	mac := hmac.New(hf, secret)
	_, _ = mac.Write(msg[:])
	sum := mac.Sum(nil)

	offset := sum[len(sum)-1] & 0x0f
	bin := binary.BigEndian.Uint32(sum[offset:offset+4]) & 0x7fffffff

	mod := uint32(1)
	for i := 0; i < digits; i++ {
		mod *= 10
	}
	return fmt.Sprintf("%0*d", digits, bin%mod), nil
}

func hmacFunc(algorithm string) (func() hash.Hash, error) {
	switch strings.ToUpper(algorithm) {
	case "", "SHA1":
		return sha1.New, nil
	case "SHA256":
		return sha256.New, nil
	case "SHA512":
		return sha512.New, nil
	default:
		return nil, fmt.Errorf("unsupported totp algorithm %q", algorithm)
	}
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return s != ""
}
