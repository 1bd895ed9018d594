package middleware

import (
	"context"
	"fmt"
	"net/http"

	"github.com/MrEthical07/shopauth"
)

// ClientIPHeader carries the caller's address, set by the reverse proxy.
const ClientIPHeader = "X-Real-IP"

// Logger is the logging surface the middleware needs. *slog.Logger
// satisfies it.
type Logger interface {
	ErrorContext(ctx context.Context, msg string, args ...any)
}

// AttemptRecorder counts credential attempts per client.
type AttemptRecorder interface {
	RecordAttempt(ctx context.Context, clientID string) error
}

// ClientIP copies X-Real-IP into the request context for audit events. It
// never rejects a request.
func ClientIP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ip := r.Header.Get(ClientIPHeader); ip != "" {
			r = r.WithContext(shopauth.WithClientIP(r.Context(), ip))
		}
		next.ServeHTTP(w, r)
	})
}

// Bruteforce records one attempt per request keyed on X-Real-IP and rejects
// clients over the limit with 429. A missing header means the proxy is
// misconfigured and is answered with 500 rather than let through.
func Bruteforce(recorder AttemptRecorder, logger Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := r.Header.Get(ClientIPHeader)
			if ip == "" {
				WriteFailure(w, r, logger, fmt.Errorf("%w: no %s header", shopauth.ErrMissingClientIdentity, ClientIPHeader))
				return
			}

			r = r.WithContext(shopauth.WithClientIP(r.Context(), ip))
			if err := recorder.RecordAttempt(r.Context(), ip); err != nil {
				WriteFailure(w, r, logger, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
