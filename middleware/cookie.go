package middleware

import (
	"net/http"
	"time"

	"github.com/MrEthical07/shopauth"
	"github.com/MrEthical07/shopauth/session"
)

// SetSessionCookies issues the session cookie and its readable csrf
// companion for sess. Sessions that know their expiry get a matching
// Max-Age; otherwise the cookies last for the browser session.
func SetSessionCookies(w http.ResponseWriter, cfg shopauth.CookieConfig, sess session.Session) {
	maxAge := 0
	if t, ok := sess.(interface{ TTL() time.Duration }); ok && t.TTL() > 0 {
		maxAge = int(t.TTL() / time.Second)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     cfg.SessionName,
		Value:    sess.Token(),
		Path:     cfg.Path,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: cfg.SameSite,
	})
	// Not HttpOnly: client script echoes it back in the csrf header.
	http.SetCookie(w, &http.Cookie{
		Name:     cfg.CSRFName,
		Value:    sess.CSRFToken(),
		Path:     cfg.Path,
		MaxAge:   maxAge,
		HttpOnly: false,
		Secure:   cfg.Secure,
		SameSite: cfg.SameSite,
	})
}

// ClearSessionCookies expires both cookies.
func ClearSessionCookies(w http.ResponseWriter, cfg shopauth.CookieConfig) {
	for _, c := range []struct {
		name     string
		httpOnly bool
	}{{cfg.SessionName, true}, {cfg.CSRFName, false}} {
		http.SetCookie(w, &http.Cookie{
			Name:     c.name,
			Value:    "",
			Path:     cfg.Path,
			Expires:  time.Unix(0, 0),
			MaxAge:   -1,
			HttpOnly: c.httpOnly,
			Secure:   cfg.Secure,
			SameSite: cfg.SameSite,
		})
	}
}
