package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// AccessTokenCookie carries the access token for browser sessions.
const AccessTokenCookie = "access_token"

// TokenAuth requires the access token when token is non-empty, either as
// "Authorization: Bearer <token>" or in the AccessTokenCookie cookie.
// An empty token disables the check.
func TokenAuth(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if token == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := requestToken(r)
			if key == "" {
				http.Error(w, "missing access token", http.StatusUnauthorized)
				return
			}
			if !TokenMatches(key, token) {
				http.Error(w, "invalid access token", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Authorized reports whether r carries token. Always true for an empty token.
func Authorized(r *http.Request, token string) bool {
	if token == "" {
		return true
	}
	return TokenMatches(requestToken(r), token)
}

// TokenMatches compares in constant time.
func TokenMatches(key, token string) bool {
	if key == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(key), []byte(token)) == 1
}

func requestToken(r *http.Request) string {
	// Support both "Bearer <key>" and "<key>" formats
	if auth := r.Header.Get("Authorization"); auth != "" {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	if c, err := r.Cookie(AccessTokenCookie); err == nil {
		return c.Value
	}
	return ""
}
