package middleware

import (
	"errors"
	"net/http"

	"github.com/gorilla/csrf"
	"github.com/ifeis/server/internal/api/problem"
)

// CSRFHeader carries the token both ways: responses to cookie sessions set
// it, and state-changing requests must echo it back.
const CSRFHeader = "X-CSRF-Token"

// CSRFProtection guards requests authenticated by the session cookie.
// Bearer-token and anonymous requests pass straight through since a browser
// never attaches those on its own. It must run after Sessions.
func CSRFProtection(authKey []byte, secure bool, env string) func(http.Handler) http.Handler {
	protect := csrf.Protect(authKey,
		csrf.Secure(secure),
		csrf.Path("/"),
		csrf.HttpOnly(true),
		csrf.SameSite(csrf.SameSiteLaxMode),
		csrf.RequestHeader(CSRFHeader),
		csrf.ErrorHandler(csrfErrorHandler(env)),
	)

	return func(next http.Handler) http.Handler {
		protected := protect(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set(CSRFHeader, csrf.Token(r))
			next.ServeHTTP(w, r)
		}))

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !SessionFrom(r.Context()).FromCookie {
				next.ServeHTTP(w, r)
				return
			}
			if !secure {
				r = csrf.PlaintextHTTPRequest(r)
			}
			protected.ServeHTTP(w, r)
		})
	}
}

func csrfErrorHandler(env string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reason := csrf.FailureReason(r)
		if reason == nil {
			reason = errors.New("csrf token invalid")
		}
		problem.Write(w, r, http.StatusForbidden, problem.Type("csrf-failure"), "CSRF token validation failed", reason, env)
	})
}
