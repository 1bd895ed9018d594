package shopauth

import (
	"context"

	"github.com/MrEthical07/shopauth/session"
)

// UserRecord is a user as the engine sees it. PasswordHash is a PHC string;
// an empty TOTPSecret means no second factor is registered.
type UserRecord struct {
	ID           string
	Email        string
	Forename     string
	Surname      string
	Address      string
	PasswordHash string
	TOTPSecret   []byte
	Admin        bool
}

// HasSecondFactor reports whether login must stop at pre-authentication.
func (u *UserRecord) HasSecondFactor() bool {
	return u != nil && len(u.TOTPSecret) > 0
}

// UserDirectory is the primary user store. Lookups return ErrUserNotFound
// for unknown users and CreateUser returns ErrDuplicateEmail for an address
// already in use.
type UserDirectory interface {
	FindByEmail(ctx context.Context, email string) (*UserRecord, error)
	FindByID(ctx context.Context, userID string) (*UserRecord, error)
	session.AccountWriter
}

// SecondFactorStore is implemented by directories that can hold TOTP secrets.
type SecondFactorStore interface {
	SetTOTPSecret(ctx context.Context, userID string, secret []byte) error
}

// OutcomeKind names the result of an authentication step.
type OutcomeKind uint8

const (
	// OutcomeFailure means the credentials were rejected.
	OutcomeFailure OutcomeKind = iota
	// OutcomePartial means the primary credential passed and a second factor
	// is still owed.
	OutcomePartial
	// OutcomeSuccess means a customer session was issued.
	OutcomeSuccess
	// OutcomeSuccessAdministrative means an administrator session was issued.
	OutcomeSuccessAdministrative
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomePartial:
		return "partial"
	case OutcomeSuccess:
		return "success"
	case OutcomeSuccessAdministrative:
		return "success_administrative"
	default:
		return "failure"
	}
}

// Outcome is returned by Authenticate and AuthenticateSecondFactor. Exactly
// one of PreAuthentication (Partial) or Session (Success*) is set; both are
// nil on Failure.
type Outcome struct {
	Kind              OutcomeKind
	PreAuthentication *session.PreAuthenticationSession
	Session           *session.AuthenticatedSession
}

// Err returns ErrInvalidCredentials for a Failure outcome and nil otherwise.
func (o Outcome) Err() error {
	if o.Kind == OutcomeFailure {
		return ErrInvalidCredentials
	}
	return nil
}

// Authenticated reports whether the outcome carries a full session.
func (o Outcome) Authenticated() bool {
	return o.Kind == OutcomeSuccess || o.Kind == OutcomeSuccessAdministrative
}

// RegistrationRequest carries the signup details held until commit.
type RegistrationRequest struct {
	Email    string `json:"email"`
	Forename string `json:"forename"`
	Surname  string `json:"surname"`
	Address  string `json:"address"`
}

// SecondFactorMethod names a second factor available to a user.
type SecondFactorMethod string

const (
	// SecondFactorTOTP is an RFC 6238 time-based code.
	SecondFactorTOTP SecondFactorMethod = "totp"
)

// PrimaryMethod names a supported primary credential.
type PrimaryMethod string

const (
	// PrimaryPassword is email plus password.
	PrimaryPassword PrimaryMethod = "password"
)
