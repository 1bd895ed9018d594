package shopauth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/MrEthical07/shopauth/internal/audit"
	"github.com/MrEthical07/shopauth/password"
	"github.com/MrEthical07/shopauth/session"
)

// BeginRegistration validates req and stages it in a registration session.
// Nothing is written to the directory until CompleteRegistration.
func (e *Engine) BeginRegistration(ctx context.Context, req RegistrationRequest) (*session.RegistrationSession, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}

	data, err := validateRegistration(req)
	if err != nil {
		return nil, err
	}

	if err := e.ensureEmailFree(ctx, data.Email); err != nil {
		return nil, err
	}

	reg, err := e.sessions.CreateRegistration(ctx, data)
	if err != nil {
		return nil, e.sessionError(ctx, "create registration session", err)
	}
	e.metrics.Inc(MetricSessionCreated)
	e.metrics.Inc(MetricRegistrationBegin)
	e.emitAudit(ctx, audit.TypeRegistrationBegin, "", true, "")
	return reg, nil
}

// CompleteRegistration checks the password policy, writes the staged user
// with the hashed password, and deletes reg. It returns the new user's id.
//
// If the password cannot be attached the new user is deleted again and the
// error is returned; reg stays valid for a retry.
func (e *Engine) CompleteRegistration(ctx context.Context, reg *session.RegistrationSession, plaintext string) (string, error) {
	if e == nil {
		return "", ErrEngineNotReady
	}

	switch err := e.policy.Check(plaintext); {
	case errors.Is(err, password.ErrTooShort):
		return "", ErrPasswordTooShort
	case errors.Is(err, password.ErrTooLong):
		return "", ErrPasswordTooLong
	}

	// The address may have been taken since BeginRegistration.
	if err := e.ensureEmailFree(ctx, reg.Data().Email); err != nil {
		return "", err
	}

	hash, err := e.hasher.Hash(plaintext)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}

	accounts := &trackingAccounts{UserDirectory: e.directory}
	userID, err := reg.Commit(ctx, accounts, hash)
	switch {
	case err == nil:
	case userID != "":
		// The user exists; only the registration record outlived the commit.
		// It expires on its own and its email is no longer free.
		e.logger.WarnContext(ctx, "registration session not deleted after commit", "user_id", userID, "error", err)
	case accounts.rolledBack:
		e.metrics.Inc(MetricRegistrationRollback)
		e.emitAudit(ctx, audit.TypeRegistrationRollback, accounts.createdID, false, "credential_write_failed")
		e.logger.ErrorContext(ctx, "registration rolled back", "error", err)
		return "", fmt.Errorf("%w: %v", ErrStorage, err)
	case errors.Is(err, ErrDuplicateEmail):
		return "", ErrDuplicateEmail
	case errors.Is(err, session.ErrInconsistent):
		return "", e.sessionError(ctx, "commit registration", err)
	case accounts.createdID != "":
		// The compensating delete failed too; the user is orphaned.
		e.logger.ErrorContext(ctx, "registration rollback failed", "user_id", accounts.createdID, "error", err)
		return "", fmt.Errorf("%w: %v", ErrStorage, err)
	default:
		e.logger.ErrorContext(ctx, "registration commit failed", "error", err)
		return "", fmt.Errorf("%w: %v", ErrStorage, err)
	}

	e.metrics.Inc(MetricSessionDeleted)
	e.metrics.Inc(MetricRegistrationCommit)
	e.emitAudit(ctx, audit.TypeRegistrationCommit, userID, true, "")
	return userID, nil
}

func (e *Engine) ensureEmailFree(ctx context.Context, email string) error {
	_, err := e.directory.FindByEmail(ctx, email)
	switch {
	case err == nil:
		return ErrDuplicateEmail
	case errors.Is(err, ErrUserNotFound):
		return nil
	default:
		e.logger.ErrorContext(ctx, "user lookup failed", "error", err)
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}
}

func validateRegistration(req RegistrationRequest) (session.RegistrationData, error) {
	data := session.RegistrationData{
		Email:    normalizeEmail(req.Email),
		Forename: strings.TrimSpace(req.Forename),
		Surname:  strings.TrimSpace(req.Surname),
		Address:  strings.TrimSpace(req.Address),
	}
	if data.Forename == "" || data.Surname == "" || data.Address == "" {
		return data, fmt.Errorf("%w: name and address are required", ErrInvalidRegistration)
	}
	addr, err := mail.ParseAddress(data.Email)
	if err != nil || addr.Address != data.Email {
		return data, fmt.Errorf("%w: malformed email", ErrInvalidRegistration)
	}
	return data, nil
}

// trackingAccounts records what Commit did to the directory so failures can
// be reported precisely.
type trackingAccounts struct {
	UserDirectory
	createdID  string
	rolledBack bool
}

func (t *trackingAccounts) CreateUser(ctx context.Context, data session.RegistrationData) (string, error) {
	id, err := t.UserDirectory.CreateUser(ctx, data)
	if err == nil {
		t.createdID = id
	}
	return id, err
}

func (t *trackingAccounts) DeleteUser(ctx context.Context, userID string) error {
	err := t.UserDirectory.DeleteUser(ctx, userID)
	if err == nil {
		t.rolledBack = true
	}
	return err
}
