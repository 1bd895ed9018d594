package shopauth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/MrEthical07/shopauth/internal/audit"
)

// SecondFactorEnrolment is a generated TOTP secret that is not stored yet.
type SecondFactorEnrolment struct {
	// Secret is the unpadded base32 secret the client echoes back on confirm.
	Secret string `json:"secret"`
	// URI is the otpauth:// provisioning URI for authenticator apps.
	URI string `json:"uri"`
}

// NewSecondFactor generates a TOTP secret for userID. Nothing is stored:
// the secret only takes effect through ConfirmSecondFactor.
func (e *Engine) NewSecondFactor(ctx context.Context, userID string) (SecondFactorEnrolment, error) {
	if e == nil {
		return SecondFactorEnrolment{}, ErrEngineNotReady
	}
	if _, ok := e.directory.(SecondFactorStore); !ok {
		return SecondFactorEnrolment{}, ErrSecondFactorUnsupported
	}

	user, err := e.directory.FindByID(ctx, userID)
	if err != nil {
		return SecondFactorEnrolment{}, e.directoryError(ctx, err)
	}

	_, encoded, err := e.totp.GenerateSecret()
	if err != nil {
		return SecondFactorEnrolment{}, err
	}
	return SecondFactorEnrolment{
		Secret: encoded,
		URI:    e.totp.ProvisionURI(encoded, user.Email),
	}, nil
}

// ConfirmSecondFactor stores secret for userID once code shows the user's
// authenticator produces it. A wrong code returns ErrSecondFactorFailed and
// leaves the user's current second factor, if any, in place.
func (e *Engine) ConfirmSecondFactor(ctx context.Context, userID, secret, code string) error {
	if e == nil {
		return ErrEngineNotReady
	}
	enroller, ok := e.directory.(SecondFactorStore)
	if !ok {
		return ErrSecondFactorUnsupported
	}

	raw, err := totpEncoding.DecodeString(strings.ToUpper(strings.TrimSpace(secret)))
	if err != nil || len(raw) == 0 {
		return ErrInvalidSecondFactorSecret
	}

	valid, err := e.totp.Verify(raw, code, e.now())
	if err != nil {
		return fmt.Errorf("verify totp: %w", err)
	}
	if !valid {
		e.metrics.Inc(MetricMFAFailure)
		e.emitAudit(ctx, audit.TypeMFAEnrolment, userID, false, "wrong_code")
		return ErrSecondFactorFailed
	}

	if err := enroller.SetTOTPSecret(ctx, userID, raw); err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return ErrUserNotFound
		}
		e.logger.ErrorContext(ctx, "store totp secret failed", "user_id", userID, "error", err)
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}
	e.emitAudit(ctx, audit.TypeMFAEnrolment, userID, true, "")
	return nil
}
