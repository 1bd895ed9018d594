package shopauth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/MrEthical07/shopauth/internal/audit"
	"github.com/MrEthical07/shopauth/internal/limiters"
	"github.com/MrEthical07/shopauth/password"
	"github.com/MrEthical07/shopauth/session"
	"github.com/MrEthical07/shopauth/store"
)

// Engine runs the storefront's authentication flows. It holds no per-request
// state and is safe for concurrent use.
type Engine struct {
	config    Config
	store     *store.Client
	sessions  *session.Store
	guard     *limiters.BruteforceGuard
	directory UserDirectory
	hasher    *password.Argon2
	policy    password.Policy
	totp      *totpVerifier
	audit     *audit.Dispatcher
	metrics   *Metrics
	logger    *slog.Logger
	now       func() time.Time
}

// Close flushes pending audit events.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.audit.Close()
}

// Config returns a copy of the engine's configuration.
func (e *Engine) Config() Config {
	return e.config
}

// Logger returns the engine's logger.
func (e *Engine) Logger() *slog.Logger {
	return e.logger
}

// Sessions exposes the session store for callers that need typed lookups
// beyond the engine's Resolve helpers.
func (e *Engine) Sessions() *session.Store {
	return e.sessions
}

// Ping checks the session store is reachable.
func (e *Engine) Ping(ctx context.Context) error {
	if e == nil || e.store == nil {
		return ErrEngineNotReady
	}
	if err := e.store.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return nil
}

// AuditDropped returns how many audit events were dropped on backpressure.
func (e *Engine) AuditDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns the current counter values.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil {
		return NewMetrics(MetricsConfig{}).Snapshot()
	}
	return e.metrics.Snapshot()
}

// PrimaryMethods lists the supported primary credentials.
func (e *Engine) PrimaryMethods() []PrimaryMethod {
	return []PrimaryMethod{PrimaryPassword}
}

// Authenticate verifies email and plaintext against the directory.
//
// On success a pre-authentication session is always created first. A user
// without a second factor is promoted at once and the outcome carries the
// authenticated session; otherwise the outcome is Partial and carries the
// pre-authentication session. Wrong credentials give OutcomeFailure with a
// nil error; a non-nil error is always a storage or consistency failure.
func (e *Engine) Authenticate(ctx context.Context, email, plaintext string) (Outcome, error) {
	if e == nil {
		return Outcome{}, ErrEngineNotReady
	}
	start := time.Now()
	defer func() { e.metrics.Observe(MetricAuthenticateLatency, time.Since(start)) }()

	user, err := e.directory.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return e.loginFailure(ctx, "", "unknown_email"), nil
		}
		e.logger.ErrorContext(ctx, "user lookup failed", "error", err)
		return Outcome{}, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	if user.PasswordHash == "" {
		return e.loginFailure(ctx, user.ID, "no_credential"), nil
	}
	ok, err := e.hasher.Verify(plaintext, user.PasswordHash)
	if err != nil {
		// A stored hash we cannot parse is a data problem, not a client one,
		// but the client still just fails to log in.
		e.logger.ErrorContext(ctx, "stored credential unreadable", "user_id", user.ID, "error", err)
		return e.loginFailure(ctx, user.ID, "credential_unreadable"), nil
	}
	if !ok {
		return e.loginFailure(ctx, user.ID, "wrong_password"), nil
	}

	pre, err := e.sessions.CreatePreAuthentication(ctx, user.ID)
	if err != nil {
		return Outcome{}, e.sessionError(ctx, "create preauthentication session", err)
	}
	e.metrics.Inc(MetricSessionCreated)

	if user.HasSecondFactor() {
		e.metrics.Inc(MetricLoginPartial)
		e.emitAudit(ctx, audit.TypeLoginPartial, user.ID, true, "")
		return Outcome{Kind: OutcomePartial, PreAuthentication: pre}, nil
	}

	out, err := e.promote(ctx, pre, user.Admin)
	if err != nil {
		return Outcome{}, err
	}
	e.metrics.Inc(MetricLoginSuccess)
	e.emitAudit(ctx, audit.TypeLoginSuccess, user.ID, true, "")
	return out, nil
}

// SecondFactorMethods lists the second factors registered for the user
// behind pre.
func (e *Engine) SecondFactorMethods(ctx context.Context, pre *session.PreAuthenticationSession) ([]SecondFactorMethod, error) {
	user, err := e.directory.FindByID(ctx, pre.UserID())
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	methods := []SecondFactorMethod{}
	if user.HasSecondFactor() {
		methods = append(methods, SecondFactorTOTP)
	}
	return methods, nil
}

// AuthenticateSecondFactor verifies code against the user's TOTP secret and
// promotes pre on success. A wrong code gives OutcomeFailure and leaves pre
// valid so the client may retry until it expires.
func (e *Engine) AuthenticateSecondFactor(ctx context.Context, pre *session.PreAuthenticationSession, code string) (Outcome, error) {
	if e == nil {
		return Outcome{}, ErrEngineNotReady
	}
	userID := pre.UserID()

	user, err := e.directory.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return e.mfaFailure(ctx, userID, "unknown_user"), nil
		}
		e.logger.ErrorContext(ctx, "user lookup failed", "error", err)
		return Outcome{}, fmt.Errorf("%w: %v", ErrStorage, err)
	}
	if !user.HasSecondFactor() {
		return e.mfaFailure(ctx, userID, "no_second_factor"), nil
	}

	ok, err := e.totp.Verify(user.TOTPSecret, code, e.now())
	if err != nil {
		e.logger.ErrorContext(ctx, "totp verification failed", "user_id", userID, "error", err)
		return e.mfaFailure(ctx, userID, "secret_unusable"), nil
	}
	if !ok {
		return e.mfaFailure(ctx, userID, "wrong_code"), nil
	}

	out, err := e.promote(ctx, pre, user.Admin)
	if err != nil {
		return Outcome{}, err
	}
	e.metrics.Inc(MetricMFASuccess)
	e.emitAudit(ctx, audit.TypeMFASuccess, userID, true, "")
	return out, nil
}

// Logout invalidates sess immediately. Logging out twice is not an error.
func (e *Engine) Logout(ctx context.Context, sess session.Session) error {
	if err := sess.Delete(ctx); err != nil {
		return e.sessionError(ctx, "delete session", err)
	}
	e.metrics.Inc(MetricLogout)
	e.metrics.Inc(MetricSessionDeleted)

	userID := ""
	if a, ok := sess.(interface{ UserID() string }); ok {
		userID = a.UserID()
	}
	e.emitAudit(ctx, audit.TypeLogout, userID, true, "")
	return nil
}

// RecordAttempt counts one credential attempt for clientID and returns
// ErrBruteforceLockout once the client is over the threshold. An empty
// clientID is ErrMissingClientIdentity.
func (e *Engine) RecordAttempt(ctx context.Context, clientID string) error {
	if e == nil {
		return ErrEngineNotReady
	}
	allowed, err := e.guard.RecordAttempt(ctx, clientID)
	switch {
	case errors.Is(err, limiters.ErrMissingClient):
		return ErrMissingClientIdentity
	case err != nil:
		e.logger.ErrorContext(ctx, "bruteforce guard unavailable", "error", err)
		return fmt.Errorf("%w: %v", ErrStorage, err)
	case !allowed:
		e.metrics.Inc(MetricBruteforceLockout)
		e.emitAudit(ctx, audit.TypeBruteforceLockout, "", false, "")
		return ErrBruteforceLockout
	}
	return nil
}

func (e *Engine) promote(ctx context.Context, pre *session.PreAuthenticationSession, admin bool) (Outcome, error) {
	sess, err := pre.Promote(ctx, admin)
	if err != nil {
		return Outcome{}, e.sessionError(ctx, "promote session", err)
	}
	e.metrics.Inc(MetricSessionDeleted)
	e.metrics.Inc(MetricSessionCreated)

	kind := OutcomeSuccess
	if sess.Role() == session.RoleAdministrator {
		kind = OutcomeSuccessAdministrative
	}
	return Outcome{Kind: kind, Session: sess}, nil
}

func (e *Engine) loginFailure(ctx context.Context, userID, reason string) Outcome {
	e.metrics.Inc(MetricLoginFailure)
	e.emitAudit(ctx, audit.TypeLoginFailure, userID, false, reason)
	return Outcome{Kind: OutcomeFailure}
}

func (e *Engine) mfaFailure(ctx context.Context, userID, reason string) Outcome {
	e.metrics.Inc(MetricMFAFailure)
	e.emitAudit(ctx, audit.TypeMFAFailure, userID, false, reason)
	return Outcome{Kind: OutcomeFailure}
}

// sessionError maps session package errors onto the engine taxonomy and logs
// the ones that indicate a server-side problem.
func (e *Engine) sessionError(ctx context.Context, op string, err error) error {
	switch {
	case errors.Is(err, session.ErrNotFound):
		return ErrSessionNotFound
	case errors.Is(err, session.ErrInconsistent):
		e.logger.ErrorContext(ctx, op, "error", err)
		return fmt.Errorf("%w: %v", ErrPromotionInconsistency, err)
	default:
		e.logger.ErrorContext(ctx, op, "error", err)
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (e *Engine) directoryError(ctx context.Context, err error) error {
	if errors.Is(err, ErrUserNotFound) {
		return ErrUserNotFound
	}
	e.logger.ErrorContext(ctx, "user directory failed", "error", err)
	return fmt.Errorf("%w: %v", ErrStorage, err)
}
