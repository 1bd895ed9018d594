package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/MrEthical07/shopauth"
	"github.com/MrEthical07/shopauth/middleware"
	"github.com/MrEthical07/shopauth/session"
)

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SecondFactorRequest is the body of POST /auth/2fa.
type SecondFactorRequest struct {
	Code string `json:"code"`
}

// CredentialRequest is the body of POST /onboarding/credential.
type CredentialRequest struct {
	Password string `json:"password"`
}

// ConfirmSecondFactorRequest is the body of POST /users/self/2fa.
type ConfirmSecondFactorRequest struct {
	Secret string `json:"secret"`
	Code   string `json:"code"`
}

// OutcomeResponse reports how far a login got.
type OutcomeResponse struct {
	Outcome string `json:"outcome"`
}

// MethodsResponse lists authentication methods.
type MethodsResponse struct {
	Methods []string `json:"methods"`
}

// UserResponse is the public view of a user.
type UserResponse struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Forename string `json:"forename"`
	Surname  string `json:"surname"`
	Address  string `json:"address"`
	Admin    bool   `json:"admin"`
}

// RegistrationResponse is returned once a signup is committed.
type RegistrationResponse struct {
	UserID string `json:"user_id"`
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<16)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// Health reports whether the session store is reachable.
func (a *API) Health(w http.ResponseWriter, r *http.Request) {
	if err := a.engine.Ping(r.Context()); err != nil {
		a.mapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ListMethods lists the supported primary credentials.
func (a *API) ListMethods(w http.ResponseWriter, r *http.Request) {
	methods := a.engine.PrimaryMethods()
	resp := MethodsResponse{Methods: make([]string, len(methods))}
	for i, m := range methods {
		resp.Methods[i] = string(m)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Login verifies the primary credential and issues either a
// pre-authentication or a full session cookie.
func (a *API) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decode(w, r, &req) {
		return
	}

	out, err := a.engine.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		a.mapError(w, r, err)
		return
	}
	a.writeOutcome(w, r, out)
}

// ListSecondFactors lists the second factors the half-logged-in user has.
func (a *API) ListSecondFactors(w http.ResponseWriter, r *http.Request) {
	pre, _ := middleware.SessionFromContext[*session.PreAuthenticationSession](r.Context())
	methods, err := a.engine.SecondFactorMethods(r.Context(), pre)
	if err != nil {
		a.mapError(w, r, err)
		return
	}
	resp := MethodsResponse{Methods: make([]string, len(methods))}
	for i, m := range methods {
		resp.Methods[i] = string(m)
	}
	writeJSON(w, http.StatusOK, resp)
}

// SecondFactor checks a TOTP code and upgrades the session on success.
func (a *API) SecondFactor(w http.ResponseWriter, r *http.Request) {
	pre, _ := middleware.SessionFromContext[*session.PreAuthenticationSession](r.Context())
	var req SecondFactorRequest
	if !decode(w, r, &req) {
		return
	}

	out, err := a.engine.AuthenticateSecondFactor(r.Context(), pre, req.Code)
	if err != nil {
		a.mapError(w, r, err)
		return
	}
	a.writeOutcome(w, r, out)
}

func (a *API) writeOutcome(w http.ResponseWriter, r *http.Request, out shopauth.Outcome) {
	switch out.Kind {
	case shopauth.OutcomePartial:
		middleware.SetSessionCookies(w, a.cookies, out.PreAuthentication)
	case shopauth.OutcomeSuccess, shopauth.OutcomeSuccessAdministrative:
		middleware.SetSessionCookies(w, a.cookies, out.Session)
	default:
		a.mapError(w, r, out.Err())
		return
	}
	writeJSON(w, http.StatusOK, OutcomeResponse{Outcome: out.Kind.String()})
}

// Logout deletes the current session and its cookies.
func (a *API) Logout(w http.ResponseWriter, r *http.Request) {
	sess, _ := middleware.SessionFromContext[*session.AuthenticatedSession](r.Context())
	if err := a.engine.Logout(r.Context(), sess); err != nil {
		a.mapError(w, r, err)
		return
	}
	middleware.ClearSessionCookies(w, a.cookies)
	w.WriteHeader(http.StatusNoContent)
}

// Self returns the logged-in user.
func (a *API) Self(w http.ResponseWriter, r *http.Request) {
	sess, _ := middleware.SessionFromContext[*session.AuthenticatedSession](r.Context())
	user, err := a.engine.CurrentUser(r.Context(), sess)
	if err != nil {
		a.mapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, UserResponse{
		ID:       user.ID,
		Email:    user.Email,
		Forename: user.Forename,
		Surname:  user.Surname,
		Address:  user.Address,
		Admin:    user.Admin,
	})
}

// NewSecondFactor returns a fresh TOTP secret for the logged-in user. It is
// not stored until ConfirmSecondFactor succeeds.
func (a *API) NewSecondFactor(w http.ResponseWriter, r *http.Request) {
	sess, _ := middleware.SessionFromContext[*session.AuthenticatedSession](r.Context())
	enrolment, err := a.engine.NewSecondFactor(r.Context(), sess.UserID())
	if err != nil {
		a.mapError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, enrolment)
}

// ConfirmSecondFactor stores the secret from NewSecondFactor once the client
// proves it with a current code.
func (a *API) ConfirmSecondFactor(w http.ResponseWriter, r *http.Request) {
	sess, _ := middleware.SessionFromContext[*session.AuthenticatedSession](r.Context())
	var req ConfirmSecondFactorRequest
	if !decode(w, r, &req) {
		return
	}

	if err := a.engine.ConfirmSecondFactor(r.Context(), sess.UserID(), req.Secret, req.Code); err != nil {
		a.mapError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AdminPing answers only administrators.
func (a *API) AdminPing(w http.ResponseWriter, r *http.Request) {
	sess, _ := middleware.SessionFromContext[*session.AdministratorSession](r.Context())
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "user_id": sess.UserID()})
}

// BeginRegistration stages a signup and issues a registration cookie.
func (a *API) BeginRegistration(w http.ResponseWriter, r *http.Request) {
	var req shopauth.RegistrationRequest
	if !decode(w, r, &req) {
		return
	}

	reg, err := a.engine.BeginRegistration(r.Context(), req)
	if err != nil {
		a.mapError(w, r, err)
		return
	}
	middleware.SetSessionCookies(w, a.cookies, reg)
	w.WriteHeader(http.StatusCreated)
}

// CompleteRegistration attaches the password and writes the user.
func (a *API) CompleteRegistration(w http.ResponseWriter, r *http.Request) {
	reg, _ := middleware.SessionFromContext[*session.RegistrationSession](r.Context())
	var req CredentialRequest
	if !decode(w, r, &req) {
		return
	}

	userID, err := a.engine.CompleteRegistration(r.Context(), reg, req.Password)
	if err != nil {
		a.mapError(w, r, err)
		return
	}
	middleware.ClearSessionCookies(w, a.cookies)
	writeJSON(w, http.StatusCreated, RegistrationResponse{UserID: userID})
}
