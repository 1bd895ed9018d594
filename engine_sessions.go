package shopauth

import (
	"context"

	"github.com/MrEthical07/shopauth/session"
)

// ResolveAuthenticated returns the authenticated session for token, of
// either role. Every kind of miss is ErrSessionNotFound.
func (e *Engine) ResolveAuthenticated(ctx context.Context, token string) (*session.AuthenticatedSession, error) {
	sess, err := e.sessions.GetAuthenticated(ctx, token)
	if err != nil {
		return nil, e.sessionError(ctx, "resolve authenticated session", err)
	}
	return sess, nil
}

// ResolveCustomer returns the session for token only if it is a customer's.
func (e *Engine) ResolveCustomer(ctx context.Context, token string) (*session.CustomerSession, error) {
	sess, err := e.sessions.GetCustomer(ctx, token)
	if err != nil {
		return nil, e.sessionError(ctx, "resolve customer session", err)
	}
	return sess, nil
}

// ResolveAdministrator returns the session for token only if it is an
// administrator's.
func (e *Engine) ResolveAdministrator(ctx context.Context, token string) (*session.AdministratorSession, error) {
	sess, err := e.sessions.GetAdministrator(ctx, token)
	if err != nil {
		return nil, e.sessionError(ctx, "resolve administrator session", err)
	}
	return sess, nil
}

// ResolvePreAuthentication returns the pre-authentication session for token.
func (e *Engine) ResolvePreAuthentication(ctx context.Context, token string) (*session.PreAuthenticationSession, error) {
	sess, err := e.sessions.GetPreAuthentication(ctx, token)
	if err != nil {
		return nil, e.sessionError(ctx, "resolve preauthentication session", err)
	}
	return sess, nil
}

// ResolveRegistration returns the registration session for token.
func (e *Engine) ResolveRegistration(ctx context.Context, token string) (*session.RegistrationSession, error) {
	sess, err := e.sessions.GetRegistration(ctx, token)
	if err != nil {
		return nil, e.sessionError(ctx, "resolve registration session", err)
	}
	return sess, nil
}

// CurrentUser loads the directory record behind an authenticated session.
func (e *Engine) CurrentUser(ctx context.Context, sess *session.AuthenticatedSession) (*UserRecord, error) {
	user, err := e.directory.FindByID(ctx, sess.UserID())
	if err != nil {
		return nil, e.directoryError(ctx, err)
	}
	return user, nil
}
