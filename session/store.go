package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/shopauth/internal"
	"github.com/MrEthical07/shopauth/store"
)

// Backend is the subset of the store client the lifecycle depends on.
// *store.Client satisfies it; tests substitute stubs to force collisions,
// partial records and expiry.
type Backend interface {
	CreateIfAbsent(ctx context.Context, key string, fields []store.Field) error
	ReadFields(ctx context.Context, key string, names ...string) (map[string]string, error)
	SetExpiry(ctx context.Context, key string, ttl time.Duration) error
	Delete(ctx context.Context, key string) (bool, error)
}

// Policy holds the per-kind expiry table and the collision retry bound.
type Policy struct {
	RegistrationTTL      time.Duration
	PreAuthenticationTTL time.Duration
	CustomerTTL          time.Duration
	AdministratorTTL     time.Duration

	// MaxCreateAttempts bounds the token collision loop. In production the
	// loop runs once; the bound only trips when collisions are forced.
	MaxCreateAttempts int
}

// DefaultPolicy returns the storefront's fixed expiry policy.
func DefaultPolicy() Policy {
	return Policy{
		RegistrationTTL:      600 * time.Second,
		PreAuthenticationTTL: 300 * time.Second,
		CustomerTTL:          7 * 24 * time.Hour,
		AdministratorTTL:     2 * time.Hour,
		MaxCreateAttempts:    1000,
	}
}

// TTL returns the expiry applied to a new record carrying p.
func (p Policy) TTL(payload Payload) time.Duration {
	switch v := payload.(type) {
	case RegistrationData:
		return p.RegistrationTTL
	case PreAuthenticationData:
		return p.PreAuthenticationTTL
	case AuthenticatedData:
		if v.Admin {
			return p.AdministratorTTL
		}
		return p.CustomerTTL
	default:
		return 0
	}
}

// Store is the base session lifecycle: collision-resistant create, fetch by
// token, and idempotent delete. It holds no mutable state and is safe for
// concurrent use.
type Store struct {
	backend  Backend
	policy   Policy
	newToken func() string
}

// Option customises a Store.
type Option func(*Store)

// WithTokenSource replaces the CSPRNG token generator. Intended for tests that
// need to force collisions.
func WithTokenSource(fn func() string) Option {
	return func(s *Store) {
		if fn != nil {
			s.newToken = fn
		}
	}
}

// NewStore creates a lifecycle over backend. Zero policy fields fall back to
// DefaultPolicy.
func NewStore(backend Backend, policy Policy, opts ...Option) *Store {
	def := DefaultPolicy()
	if policy.RegistrationTTL <= 0 {
		policy.RegistrationTTL = def.RegistrationTTL
	}
	if policy.PreAuthenticationTTL <= 0 {
		policy.PreAuthenticationTTL = def.PreAuthenticationTTL
	}
	if policy.CustomerTTL <= 0 {
		policy.CustomerTTL = def.CustomerTTL
	}
	if policy.AdministratorTTL <= 0 {
		policy.AdministratorTTL = def.AdministratorTTL
	}
	if policy.MaxCreateAttempts <= 0 {
		policy.MaxCreateAttempts = def.MaxCreateAttempts
	}

	s := &Store{
		backend:  backend,
		policy:   policy,
		newToken: internal.NewToken,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Policy returns the effective expiry policy.
func (s *Store) Policy() Policy {
	return s.policy
}

// Create stores payload under a fresh token in its kind's namespace and
// applies the kind's TTL.
func (s *Store) Create(ctx context.Context, payload Payload) (*Record, error) {
	if payload == nil || !payload.Kind().valid() {
		return nil, fmt.Errorf("%w: nil payload", ErrInvalidPayload)
	}

	csrf := s.newToken()
	fields, err := Encode(payload, csrf)
	if err != nil {
		return nil, err
	}
	kind := payload.Kind()

	var token string
	for attempt := 0; ; attempt++ {
		if attempt >= s.policy.MaxCreateAttempts {
			return nil, fmt.Errorf("%w: %d attempts for %s", ErrTokenSpaceExhausted, attempt, kind)
		}

		candidate := s.newToken()
		err := s.backend.CreateIfAbsent(ctx, kind.Key(candidate), fields)
		if err == nil {
			token = candidate
			break
		}
		if errors.Is(err, store.ErrDuplicate) {
			continue
		}
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	ttl := s.policy.TTL(payload)
	if err := s.backend.SetExpiry(ctx, kind.Key(token), ttl); err != nil {
		// A record without expiry would outlive its policy; remove it and
		// report the failure rather than hand out an immortal token.
		_, _ = s.backend.Delete(context.WithoutCancel(ctx), kind.Key(token))
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	return &Record{
		Token:   token,
		CSRF:    csrf,
		Payload: payload,
		TTL:     ttl,
	}, nil
}

// Get loads the record stored under token in kind's namespace. Absent,
// expired, and partially present records all yield ErrNotFound.
func (s *Store) Get(ctx context.Context, kind Kind, token string) (*Record, error) {
	if !kind.valid() {
		return nil, ErrNotFound
	}
	if !internal.IsToken(token) {
		return nil, ErrNotFound
	}

	fields, err := s.backend.ReadFields(ctx, kind.Key(token), fieldNames(kind)...)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	payload, csrf, err := Decode(kind, fields)
	if err != nil {
		return nil, err
	}
	return &Record{Token: token, CSRF: csrf, Payload: payload}, nil
}

// Delete removes token from kind's namespace. Deleting an absent token
// succeeds.
func (s *Store) Delete(ctx context.Context, kind Kind, token string) error {
	_, err := s.take(ctx, kind, token)
	return err
}

// take deletes the record and reports whether this call removed it.
func (s *Store) take(ctx context.Context, kind Kind, token string) (bool, error) {
	if !kind.valid() || token == "" {
		return false, nil
	}
	removed, err := s.backend.Delete(ctx, kind.Key(token))
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return removed, nil
}
