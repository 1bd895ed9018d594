package session

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Session is implemented by every typed variant.
type Session interface {
	Token() string
	CSRFToken() string
	Kind() Kind
	Delete(ctx context.Context) error
}

type base struct {
	record Record
	store  *Store
}

// Token returns the opaque session token.
func (b *base) Token() string { return b.record.Token }

// CSRFToken returns the csrf token bound to this session at creation.
func (b *base) CSRFToken() string { return b.record.CSRF }

// Kind returns the namespace this session lives in.
func (b *base) Kind() Kind { return b.record.Kind() }

// TTL returns the expiry applied at creation, or zero for loaded sessions.
func (b *base) TTL() time.Duration { return b.record.TTL }

// Delete invalidates the token immediately. It is idempotent.
func (b *base) Delete(ctx context.Context) error {
	return b.store.Delete(ctx, b.record.Kind(), b.record.Token)
}

// -------- Registration --------

// RegistrationSession is a signup in progress.
type RegistrationSession struct {
	base
}

// AccountWriter is the slice of the user directory needed to commit a signup.
type AccountWriter interface {
	// CreateUser inserts a customer account and returns its id.
	CreateUser(ctx context.Context, data RegistrationData) (string, error)
	// SetCredential attaches the (already hashed) primary credential.
	SetCredential(ctx context.Context, userID, credential string) error
	// DeleteUser removes an account; used only for compensation.
	DeleteUser(ctx context.Context, userID string) error
}

// CreateRegistration starts a signup holding data.
func (s *Store) CreateRegistration(ctx context.Context, data RegistrationData) (*RegistrationSession, error) {
	rec, err := s.Create(ctx, data)
	if err != nil {
		return nil, err
	}
	return &RegistrationSession{base{record: *rec, store: s}}, nil
}

// GetRegistration resolves token as a registration session.
func (s *Store) GetRegistration(ctx context.Context, token string) (*RegistrationSession, error) {
	rec, err := s.Get(ctx, KindRegistration, token)
	if err != nil {
		return nil, err
	}
	return &RegistrationSession{base{record: *rec, store: s}}, nil
}

// Data returns the pending user-creation payload.
func (r *RegistrationSession) Data() RegistrationData {
	data, _ := r.record.Payload.(RegistrationData)
	return data
}

// Commit writes the pending user to accounts, attaches credential, and deletes
// the registration record.
//
// If attaching the credential fails the freshly created user is deleted again
// so no credential-less account is left behind, and the credential error is
// returned. The registration record survives a failed commit so the caller
// may retry within its TTL.
func (r *RegistrationSession) Commit(ctx context.Context, accounts AccountWriter, credential string) (string, error) {
	data, ok := r.record.Payload.(RegistrationData)
	if !ok {
		return "", fmt.Errorf("%w: registration token carries %T", ErrInconsistent, r.record.Payload)
	}

	userID, err := accounts.CreateUser(ctx, data)
	if err != nil {
		return "", err
	}

	if err := accounts.SetCredential(ctx, userID, credential); err != nil {
		if delErr := accounts.DeleteUser(context.WithoutCancel(ctx), userID); delErr != nil {
			return "", errors.Join(err, fmt.Errorf("rollback user %s: %w", userID, delErr))
		}
		return "", err
	}

	if err := r.Delete(ctx); err != nil {
		return userID, err
	}
	return userID, nil
}

// -------- Pre-authentication --------

// PreAuthenticationSession belongs to a user who still owes a second factor.
type PreAuthenticationSession struct {
	base
}

// CreatePreAuthentication records that userID passed primary verification.
func (s *Store) CreatePreAuthentication(ctx context.Context, userID string) (*PreAuthenticationSession, error) {
	rec, err := s.Create(ctx, PreAuthenticationData{UserID: userID})
	if err != nil {
		return nil, err
	}
	return &PreAuthenticationSession{base{record: *rec, store: s}}, nil
}

// GetPreAuthentication resolves token as a pre-authentication session.
func (s *Store) GetPreAuthentication(ctx context.Context, token string) (*PreAuthenticationSession, error) {
	rec, err := s.Get(ctx, KindPreAuthentication, token)
	if err != nil {
		return nil, err
	}
	return &PreAuthenticationSession{base{record: *rec, store: s}}, nil
}

// UserID returns the user halfway through authentication.
func (p *PreAuthenticationSession) UserID() string {
	data, _ := p.record.Payload.(PreAuthenticationData)
	return data.UserID
}

// Promote exchanges this session for a fully authenticated one.
//
// The pre-authentication record is deleted first and only the caller whose
// delete actually removed it may continue; a concurrent or repeated promotion
// of the same token gets ErrNotFound. The new record is created afterwards
// under a new token and csrf token, so a failure between the two steps leaves
// neither token valid.
func (p *PreAuthenticationSession) Promote(ctx context.Context, isAdmin bool) (*AuthenticatedSession, error) {
	data, ok := p.record.Payload.(PreAuthenticationData)
	if !ok || data.UserID == "" {
		return nil, fmt.Errorf("%w: preauthentication token carries %T", ErrInconsistent, p.record.Payload)
	}

	removed, err := p.store.take(ctx, KindPreAuthentication, p.record.Token)
	if err != nil {
		return nil, err
	}
	if !removed {
		return nil, ErrNotFound
	}

	rec, err := p.store.Create(ctx, AuthenticatedData{UserID: data.UserID, Admin: isAdmin})
	if err != nil {
		return nil, err
	}
	return &AuthenticatedSession{authenticated{base{record: *rec, store: p.store}}}, nil
}

// -------- Authenticated --------

type authenticated struct {
	base
}

func (a *authenticated) data() AuthenticatedData {
	data, _ := a.record.Payload.(AuthenticatedData)
	return data
}

// UserID returns the authenticated user.
func (a *authenticated) UserID() string { return a.data().UserID }

// AuthenticatedSession is the union of CustomerSession and
// AdministratorSession, resolved from the stored admin flag.
type AuthenticatedSession struct {
	authenticated
}

// CustomerSession is an authenticated session whose user is not an administrator.
type CustomerSession struct {
	authenticated
}

// AdministratorSession is an authenticated session whose user is an administrator.
type AdministratorSession struct {
	authenticated
}

// GetAuthenticated resolves token as an authenticated session of either role.
func (s *Store) GetAuthenticated(ctx context.Context, token string) (*AuthenticatedSession, error) {
	rec, err := s.Get(ctx, KindAuthenticated, token)
	if err != nil {
		return nil, err
	}
	return &AuthenticatedSession{authenticated{base{record: *rec, store: s}}}, nil
}

// GetCustomer resolves token only if it belongs to a customer.
func (s *Store) GetCustomer(ctx context.Context, token string) (*CustomerSession, error) {
	sess, err := s.GetAuthenticated(ctx, token)
	if err != nil {
		return nil, err
	}
	c, ok := sess.Customer()
	if !ok {
		return nil, ErrNotFound
	}
	return c, nil
}

// GetAdministrator resolves token only if it belongs to an administrator.
func (s *Store) GetAdministrator(ctx context.Context, token string) (*AdministratorSession, error) {
	sess, err := s.GetAuthenticated(ctx, token)
	if err != nil {
		return nil, err
	}
	a, ok := sess.Administrator()
	if !ok {
		return nil, ErrNotFound
	}
	return a, nil
}

// Role reports which variant this session resolves to.
func (a *AuthenticatedSession) Role() Role { return a.data().Role() }

// Customer narrows the union to the customer variant.
func (a *AuthenticatedSession) Customer() (*CustomerSession, bool) {
	if a.data().Admin {
		return nil, false
	}
	return &CustomerSession{a.authenticated}, true
}

// Administrator narrows the union to the administrator variant.
func (a *AuthenticatedSession) Administrator() (*AdministratorSession, bool) {
	if !a.data().Admin {
		return nil, false
	}
	return &AdministratorSession{a.authenticated}, true
}
