package session

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/MrEthical07/shopauth/store"
)

const (
	fieldUserID   = "user_id"
	fieldAdmin    = "admin"
	fieldCSRF     = "csrf"
	fieldEmail    = "email"
	fieldForename = "forename"
	fieldSurname  = "surname"
	fieldAddress  = "address"
)

var (
	registrationFields      = []string{fieldEmail, fieldForename, fieldSurname, fieldAddress, fieldCSRF}
	preAuthenticationFields = []string{fieldUserID, fieldCSRF}
	authenticatedFields     = []string{fieldUserID, fieldAdmin, fieldCSRF}
)

func fieldNames(kind Kind) []string {
	switch kind {
	case KindRegistration:
		return registrationFields
	case KindPreAuthentication:
		return preAuthenticationFields
	case KindAuthenticated:
		return authenticatedFields
	default:
		return nil
	}
}

// Encode flattens a payload and its csrf token into store fields. The first
// field is always the kind's discriminating field (email or user_id).
func Encode(p Payload, csrf string) ([]store.Field, error) {
	if csrf == "" {
		return nil, fmt.Errorf("%w: empty csrf token", ErrInvalidPayload)
	}

	switch v := p.(type) {
	case RegistrationData:
		if strings.TrimSpace(v.Email) == "" {
			return nil, fmt.Errorf("%w: registration without email", ErrInvalidPayload)
		}
		return []store.Field{
			{Name: fieldEmail, Value: v.Email},
			{Name: fieldForename, Value: v.Forename},
			{Name: fieldSurname, Value: v.Surname},
			{Name: fieldAddress, Value: v.Address},
			{Name: fieldCSRF, Value: csrf},
		}, nil
	case PreAuthenticationData:
		if v.UserID == "" {
			return nil, fmt.Errorf("%w: preauthentication without user id", ErrInvalidPayload)
		}
		return []store.Field{
			{Name: fieldUserID, Value: v.UserID},
			{Name: fieldCSRF, Value: csrf},
		}, nil
	case AuthenticatedData:
		if v.UserID == "" {
			return nil, fmt.Errorf("%w: authenticated session without user id", ErrInvalidPayload)
		}
		return []store.Field{
			{Name: fieldUserID, Value: v.UserID},
			{Name: fieldAdmin, Value: strconv.FormatBool(v.Admin)},
			{Name: fieldCSRF, Value: csrf},
		}, nil
	default:
		return nil, fmt.Errorf("%w: unsupported payload %T", ErrInvalidPayload, p)
	}
}

// Decode rebuilds the payload for kind from stored fields. It returns
// ErrNotFound when any required field is absent, so a partially written or
// partially expired record is never surfaced.
func Decode(kind Kind, fields map[string]string) (Payload, string, error) {
	for _, name := range fieldNames(kind) {
		if _, ok := fields[name]; !ok {
			return nil, "", ErrNotFound
		}
	}
	csrf := fields[fieldCSRF]

	switch kind {
	case KindRegistration:
		return RegistrationData{
			Email:    fields[fieldEmail],
			Forename: fields[fieldForename],
			Surname:  fields[fieldSurname],
			Address:  fields[fieldAddress],
		}, csrf, nil
	case KindPreAuthentication:
		return PreAuthenticationData{UserID: fields[fieldUserID]}, csrf, nil
	case KindAuthenticated:
		admin, err := strconv.ParseBool(fields[fieldAdmin])
		if err != nil {
			return nil, "", fmt.Errorf("%w: admin flag %q", ErrInconsistent, fields[fieldAdmin])
		}
		return AuthenticatedData{UserID: fields[fieldUserID], Admin: admin}, csrf, nil
	default:
		return nil, "", fmt.Errorf("%w: unknown kind %d", ErrInconsistent, kind)
	}
}
