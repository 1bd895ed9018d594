package shopauth

import (
	"errors"
	"net/http"
	"strings"
	"time"
)

// Config is the engine's complete configuration. Start from DefaultConfig.
type Config struct {
	Session    SessionConfig
	Bruteforce BruteforceConfig
	Password   PasswordConfig
	TOTP       TOTPConfig
	Audit      AuditConfig
	Metrics    MetricsConfig
	Cookie     CookieConfig
}

// -------- Session config --------

// SessionConfig holds the per-kind expiry table and the token collision
// retry bound.
type SessionConfig struct {
	RegistrationTTL      time.Duration
	PreAuthenticationTTL time.Duration
	CustomerTTL          time.Duration
	AdministratorTTL     time.Duration
	MaxCreateAttempts    int
}

// BruteforceConfig is the escalating per-client attempt counter.
type BruteforceConfig struct {
	Threshold int
	Window    time.Duration
	Penalty   time.Duration
}

// -------- Credential config --------

// PasswordConfig holds the length policy and Argon2id cost parameters.
type PasswordConfig struct {
	MinLength   int
	MaxLength   int
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// TOTPConfig holds RFC 6238 parameters. Period and Skew are in steps.
type TOTPConfig struct {
	Issuer    string
	Digits    int
	Period    int
	Algorithm string
	Skew      int
}

// -------- Observability config --------

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls the in-process counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// -------- Cookie config --------

// CookieConfig names the session and csrf cookies and the csrf header.
// Secure may only be disabled for local development over plain HTTP.
type CookieConfig struct {
	SessionName string
	CSRFName    string
	CSRFHeader  string
	Path        string
	Secure      bool
	SameSite    http.SameSite
}

// DefaultConfig returns the storefront's production configuration.
func DefaultConfig() Config {
	return Config{
		Session: SessionConfig{
			RegistrationTTL:      600 * time.Second,
			PreAuthenticationTTL: 300 * time.Second,
			CustomerTTL:          7 * 24 * time.Hour,
			AdministratorTTL:     2 * time.Hour,
			MaxCreateAttempts:    1000,
		},
		Bruteforce: BruteforceConfig{
			Threshold: 5,
			Window:    10 * time.Second,
			Penalty:   60 * time.Second,
		},
		Password: PasswordConfig{
			MinLength:   8,
			MaxLength:   128,
			Memory:      64 * 1024,
			Time:        3,
			Parallelism: 2,
			SaltLength:  16,
			KeyLength:   32,
		},
		TOTP: TOTPConfig{
			Issuer:    "shop",
			Digits:    6,
			Period:    30,
			Algorithm: "SHA1",
			Skew:      1,
		},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: true,
		},
		Cookie: CookieConfig{
			SessionName: "session",
			CSRFName:    "session_csrf",
			CSRFHeader:  "X-CSRF-Token",
			Path:        "/",
			Secure:      true,
			SameSite:    http.SameSiteStrictMode,
		},
	}
}

// Validate checks c for values the engine cannot run with.
func (c *Config) Validate() error {
	// Session
	if c.Session.RegistrationTTL < time.Second ||
		c.Session.PreAuthenticationTTL < time.Second ||
		c.Session.CustomerTTL < time.Second ||
		c.Session.AdministratorTTL < time.Second {
		return errors.New("Session TTLs must be >= 1s")
	}
	if c.Session.MaxCreateAttempts <= 0 {
		return errors.New("Session MaxCreateAttempts must be > 0")
	}

	// Bruteforce
	if c.Bruteforce.Threshold <= 0 {
		return errors.New("Bruteforce Threshold must be > 0")
	}
	if c.Bruteforce.Window < time.Second || c.Bruteforce.Penalty < time.Second {
		return errors.New("Bruteforce Window and Penalty must be >= 1s")
	}
	if c.Bruteforce.Penalty < c.Bruteforce.Window {
		return errors.New("Bruteforce Penalty must be >= Window")
	}

	// Password
	if c.Password.MinLength < 1 {
		return errors.New("Password MinLength must be >= 1")
	}
	if c.Password.MaxLength < c.Password.MinLength {
		return errors.New("Password MaxLength must be >= MinLength")
	}
	if c.Password.Memory < 8*1024 {
		return errors.New("Password Memory must be >= 8192 KB")
	}
	if c.Password.Time < 1 || c.Password.Parallelism < 1 {
		return errors.New("Password Time and Parallelism must be >= 1")
	}
	if c.Password.SaltLength < 16 || c.Password.KeyLength < 16 {
		return errors.New("Password SaltLength and KeyLength must be >= 16")
	}

	// TOTP
	if c.TOTP.Digits < 6 || c.TOTP.Digits > 8 {
		return errors.New("TOTP Digits must be between 6 and 8")
	}
	if c.TOTP.Period <= 0 {
		return errors.New("TOTP Period must be > 0")
	}
	if c.TOTP.Skew < 0 || c.TOTP.Skew > 2 {
		return errors.New("TOTP Skew must be between 0 and 2")
	}
	if _, err := hmacFunc(c.TOTP.Algorithm); err != nil {
		return err
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when enabled")
	}

	// Cookie
	if strings.TrimSpace(c.Cookie.SessionName) == "" || strings.TrimSpace(c.Cookie.CSRFName) == "" {
		return errors.New("Cookie names must be set")
	}
	if c.Cookie.SessionName == c.Cookie.CSRFName {
		return errors.New("Cookie SessionName and CSRFName must differ")
	}
	if strings.TrimSpace(c.Cookie.CSRFHeader) == "" {
		return errors.New("Cookie CSRFHeader must be set")
	}
	if c.Cookie.SameSite == http.SameSiteNoneMode && !c.Cookie.Secure {
		return errors.New("Cookie SameSite=None requires Secure")
	}

	return nil
}
