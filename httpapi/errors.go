package httpapi

import (
	"errors"
	"net/http"

	"github.com/MrEthical07/shopauth"
	"github.com/MrEthical07/shopauth/middleware"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	middleware.WriteJSON(w, status, v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	middleware.WriteError(w, status, msg)
}

// mapError writes the response for an engine error. Session, csrf and login
// errors are left to middleware.WriteFailure, which also hides anything
// unrecognised behind a logged 500.
func (a *API) mapError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, shopauth.ErrSecondFactorFailed):
		writeError(w, http.StatusForbidden, "second factor code incorrect")
	case errors.Is(err, shopauth.ErrInvalidSecondFactorSecret):
		writeError(w, http.StatusUnprocessableEntity, "second factor secret is not valid base32")
	case errors.Is(err, shopauth.ErrDuplicateEmail):
		writeError(w, http.StatusConflict, "email is already in use")
	case errors.Is(err, shopauth.ErrPasswordTooShort):
		writeError(w, http.StatusUnprocessableEntity, "password is too short")
	case errors.Is(err, shopauth.ErrPasswordTooLong):
		writeError(w, http.StatusUnprocessableEntity, "password is too long")
	case errors.Is(err, shopauth.ErrInvalidRegistration):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		middleware.WriteFailure(w, r, a.engine.Logger(), err)
	}
}
