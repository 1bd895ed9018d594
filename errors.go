package shopauth

import "errors"

var (
	// ErrStorage means the session store or user directory failed. Always an
	// internal error from the client's point of view.
	ErrStorage = errors.New("storage unavailable")
	// ErrSessionNotFound covers absent, expired, and wrong-kind or wrong-role
	// tokens. Callers must not tell these apart.
	ErrSessionNotFound = errors.New("session not found")
	// ErrCSRFMismatch means the session is valid but the csrf header is
	// missing or wrong.
	ErrCSRFMismatch = errors.New("csrf token mismatch")
	// ErrSecondFactorFailed means the confirmation code for a new second
	// factor was wrong. Nothing was stored.
	ErrSecondFactorFailed = errors.New("second factor verification failed")
	// ErrBruteforceLockout means the client is over its attempt threshold.
	ErrBruteforceLockout = errors.New("too many attempts")
	// ErrPromotionInconsistency means a stored record contradicted its
	// namespace during promotion or commit.
	ErrPromotionInconsistency = errors.New("session promotion inconsistency")
	// ErrInvalidCredentials is the error form of a Failure outcome: the
	// email, password or second factor code was wrong.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserNotFound is returned by UserDirectory lookups.
	ErrUserNotFound = errors.New("user not found")
	// ErrDuplicateEmail rejects signup for an address already in use.
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrInvalidRegistration rejects malformed signup details.
	ErrInvalidRegistration = errors.New("invalid registration details")
	// ErrPasswordTooShort rejects passwords under the policy minimum.
	ErrPasswordTooShort = errors.New("password too short")
	// ErrPasswordTooLong rejects passwords over the policy maximum.
	ErrPasswordTooLong = errors.New("password too long")
	// ErrMissingClientIdentity means no client identifier reached the
	// bruteforce guard. It is a deployment error, never a bypass.
	ErrMissingClientIdentity = errors.New("client identity missing")
	// ErrSecondFactorUnsupported is returned when enrolling a second factor
	// against a directory that cannot store one.
	ErrSecondFactorUnsupported = errors.New("second factor enrolment unsupported")
	// ErrInvalidSecondFactorSecret rejects a confirmation whose secret is not
	// unpadded base32.
	ErrInvalidSecondFactorSecret = errors.New("invalid second factor secret")
	// ErrEngineNotReady is returned by methods on a nil or unbuilt Engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)
