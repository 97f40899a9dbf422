package daemon

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"mediaflow/internal/catalog"
)

// ErrForbidden is returned by an Authorizer to deny access to an item.
var ErrForbidden = errors.New("forbidden")

// Authorizer decides whether the request may read item. Returning a non-nil
// error yields 403.
type Authorizer func(r *http.Request, item *catalog.Item) error

// AllowAll is the default Authorizer.
func AllowAll(*http.Request, *catalog.Item) error { return nil }

// authMiddleware returns a middleware that validates bearer tokens.
// If token is empty, no authentication is required and all requests pass through.
// Otherwise, requests must include "Authorization: Bearer <token>" or, for
// clients that cannot set headers (media elements, websockets), an
// access_token query parameter. Paths under any of the exempt prefixes skip
// the check.
func authMiddleware(token string, exempt ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if token == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, prefix := range exempt {
				if strings.HasPrefix(r.URL.Path, prefix) {
					next.ServeHTTP(w, r)
					return
				}
			}
			if !validToken(token, presentedToken(r)) {
				writeJSONError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func presentedToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return r.URL.Query().Get("access_token")
}

func validToken(want, got string) bool {
	if got == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(want), []byte(got)) == 1
}
