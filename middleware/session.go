package middleware

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net/http"

	"github.com/MrEthical07/shopauth"
	"github.com/MrEthical07/shopauth/session"
)

// Resolver loads a typed session from its token.
type Resolver[T session.Session] func(ctx context.Context, token string) (T, error)

type sessionContextKey[T session.Session] struct{}

// SessionFromContext returns the session stored by a guard of the same type.
func SessionFromContext[T session.Session](ctx context.Context) (T, bool) {
	sess, ok := ctx.Value(sessionContextKey[T]{}).(T)
	return sess, ok
}

type guardOptions struct {
	skipCSRF bool
}

// Option configures a session guard.
type Option func(*guardOptions)

// WithoutCSRF disables the csrf header check. Only use it on routes with no
// side effects.
func WithoutCSRF() Option {
	return func(o *guardOptions) { o.skipCSRF = true }
}

// RequireSession resolves the session cookie with resolve, checks csrf, and
// passes the typed session to next through the request context.
func RequireSession[T session.Session](cfg shopauth.CookieConfig, logger Logger, resolve Resolver[T], opts ...Option) func(http.Handler) http.Handler {
	var o guardOptions
	for _, opt := range opts {
		opt(&o)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(cfg.SessionName)
			if err != nil || cookie.Value == "" {
				WriteFailure(w, r, logger, shopauth.ErrSessionNotFound)
				return
			}

			sess, err := resolve(r.Context(), cookie.Value)
			if err != nil {
				WriteFailure(w, r, logger, err)
				return
			}

			if !o.skipCSRF {
				if err := checkCSRF(r.Header.Values(cfg.CSRFHeader), sess.CSRFToken()); err != nil {
					WriteFailure(w, r, logger, err)
					return
				}
			}

			ctx := context.WithValue(r.Context(), sessionContextKey[T]{}, sess)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func checkCSRF(values []string, want string) error {
	if len(values) == 0 {
		return fmt.Errorf("%w: header missing", shopauth.ErrCSRFMismatch)
	}
	got := values[0]
	if !visibleASCII(got) {
		return errMalformedCSRF
	}
	if want == "" || subtle.ConstantTimeCompare([]byte(got), []byte(want)) != 1 {
		return shopauth.ErrCSRFMismatch
	}
	return nil
}

// visibleASCII matches the header values a strict HTTP stack accepts as
// text: tab and printable ASCII.
func visibleASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\t' && (c < 0x20 || c > 0x7e) {
			return false
		}
	}
	return true
}

// -------- Engine guards --------

// RequireAuthenticated admits customers and administrators.
func RequireAuthenticated(engine *shopauth.Engine, opts ...Option) func(http.Handler) http.Handler {
	return RequireSession(engine.Config().Cookie, engine.Logger(), engine.ResolveAuthenticated, opts...)
}

// RequireCustomer admits only customer sessions.
func RequireCustomer(engine *shopauth.Engine, opts ...Option) func(http.Handler) http.Handler {
	return RequireSession(engine.Config().Cookie, engine.Logger(), engine.ResolveCustomer, opts...)
}

// RequireAdministrator admits only administrator sessions.
func RequireAdministrator(engine *shopauth.Engine, opts ...Option) func(http.Handler) http.Handler {
	return RequireSession(engine.Config().Cookie, engine.Logger(), engine.ResolveAdministrator, opts...)
}

// RequirePreAuthentication admits logins still owing a second factor.
func RequirePreAuthentication(engine *shopauth.Engine, opts ...Option) func(http.Handler) http.Handler {
	return RequireSession(engine.Config().Cookie, engine.Logger(), engine.ResolvePreAuthentication, opts...)
}

// RequireRegistration admits signups waiting for their credential.
func RequireRegistration(engine *shopauth.Engine, opts ...Option) func(http.Handler) http.Handler {
	return RequireSession(engine.Config().Cookie, engine.Logger(), engine.ResolveRegistration, opts...)
}
