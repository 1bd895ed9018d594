package session

import "time"

// Kind identifies a session namespace.
type Kind uint8

const (
	// KindRegistration holds a pending signup that is not yet in the user directory.
	KindRegistration Kind = iota + 1
	// KindPreAuthentication holds a user who passed the primary credential check
	// but still owes a second factor.
	KindPreAuthentication
	// KindAuthenticated holds a fully authenticated customer or administrator.
	KindAuthenticated
)

func (k Kind) String() string {
	switch k {
	case KindRegistration:
		return "registration"
	case KindPreAuthentication:
		return "preauthentication"
	case KindAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

func (k Kind) valid() bool {
	return k >= KindRegistration && k <= KindAuthenticated
}

// Key returns the namespaced store key for token.
func (k Kind) Key(token string) string {
	return "sessions:" + k.String() + ":" + token
}

// Role distinguishes the two authenticated variants.
type Role uint8

const (
	// RoleCustomer is a regular shopper.
	RoleCustomer Role = iota
	// RoleAdministrator may manage the catalogue and other users.
	RoleAdministrator
)

func (r Role) String() string {
	if r == RoleAdministrator {
		return "administrator"
	}
	return "customer"
}

// Payload is the closed set of per-kind record bodies. Only the three payload
// types in this package implement it.
type Payload interface {
	Kind() Kind
	isPayload()
}

// RegistrationData is the user-creation payload held until signup completes.
type RegistrationData struct {
	Email    string
	Forename string
	Surname  string
	Address  string
}

// PreAuthenticationData names the user who is halfway through logging in.
type PreAuthenticationData struct {
	UserID string
}

// AuthenticatedData names a logged-in user and their role.
type AuthenticatedData struct {
	UserID string
	Admin  bool
}

func (RegistrationData) Kind() Kind      { return KindRegistration }
func (PreAuthenticationData) Kind() Kind { return KindPreAuthentication }
func (AuthenticatedData) Kind() Kind     { return KindAuthenticated }

func (RegistrationData) isPayload()      {}
func (PreAuthenticationData) isPayload() {}
func (AuthenticatedData) isPayload()     {}

// Role reports the role encoded by the admin flag.
func (d AuthenticatedData) Role() Role {
	if d.Admin {
		return RoleAdministrator
	}
	return RoleCustomer
}

// Record is one stored session. The payload and csrf token are fixed for the
// life of the token.
type Record struct {
	Token   string
	CSRF    string
	Payload Payload

	// TTL is the expiry applied at creation. It is zero for records loaded
	// with Get, since the store alone tracks remaining lifetime.
	TTL time.Duration
}

// Kind is shorthand for r.Payload.Kind().
func (r *Record) Kind() Kind {
	if r == nil || r.Payload == nil {
		return 0
	}
	return r.Payload.Kind()
}
