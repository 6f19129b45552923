package middleware

import (
	"net/http"
	"strings"

	"github.com/rishta-app/rishta/internal/auth"
)

// Sign-in and verification-pending page paths the gate redirects to.
const (
	SignInPath = "/signin"
	VerifyPath = "/verify"
)

// Gate enforces session presence and verification status on a
// configured allow-list of protected path prefixes. Per request:
//
//	no/invalid token        -> redirect to sign-in
//	token, verified = false -> redirect to verification-pending
//	token, verified = true  -> forward
//
// All other paths bypass the gate.
func Gate(sessions *auth.SessionService, protectedPrefixes []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !isProtected(r.URL.Path, protectedPrefixes) {
				next.ServeHTTP(w, r)
				return
			}

			tokenString := TokenFromRequest(r)
			if tokenString == "" {
				http.Redirect(w, r, SignInPath, http.StatusFound)
				return
			}

			claims, err := sessions.ParseClaims(tokenString)
			if err != nil {
				// A token that fails signature or structural validation
				// is treated as absent.
				http.Redirect(w, r, SignInPath, http.StatusFound)
				return
			}

			if !claims.Verified {
				http.Redirect(w, r, VerifyPath, http.StatusFound)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func isProtected(path string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return true
		}
	}
	return false
}
