// Package httpapi serves the storefront's authentication routes over chi.
//
// Sessions travel in the session cookie; every state-changing route also
// requires the X-CSRF-Token header to echo the session_csrf cookie. Errors
// are JSON objects of the form {"message": "..."}.
package httpapi
