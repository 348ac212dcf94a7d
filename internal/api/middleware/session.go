package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/ifeis/server/internal/api/problem"
	"github.com/ifeis/server/internal/auth"
)

type contextKeySession string

const sessionKey contextKeySession = "session"

// Session is the authenticated state of a request.
type Session struct {
	Caller auth.Caller
	// FromCookie is set when the credentials came from the session cookie,
	// which is what CSRF protection applies to.
	FromCookie bool
}

// Sessions resolves the caller from a Bearer token or, failing that, the
// session cookie. A bad Bearer token is rejected with 401; a bad cookie is
// cleared and the request continues anonymously.
func Sessions(manager *auth.SessionManager, cookieName string, secure bool, env string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var sess Session

			if header := strings.TrimSpace(r.Header.Get("Authorization")); header != "" {
				token, err := auth.TokenFromHeader(header)
				if err == nil {
					var claims *auth.Claims
					claims, err = manager.Validate(token)
					sess.Caller = auth.CallerFromClaims(claims)
				}
				if err != nil {
					problem.Write(w, r, http.StatusUnauthorized, problem.Type("unauthenticated"), "Invalid credentials", err, env)
					return
				}
			} else if cookie, err := r.Cookie(cookieName); err == nil && cookie.Value != "" {
				claims, err := manager.Validate(cookie.Value)
				if err != nil {
					ClearSessionCookie(w, cookieName, secure)
				} else {
					sess = Session{Caller: auth.CallerFromClaims(claims), FromCookie: true}
				}
			}

			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), sess)))
		})
	}
}

func WithSession(ctx context.Context, sess Session) context.Context {
	return context.WithValue(ctx, sessionKey, sess)
}

// SessionFrom returns the request session; the zero value is anonymous.
func SessionFrom(ctx context.Context) Session {
	sess, _ := ctx.Value(sessionKey).(Session)
	return sess
}

// CallerFrom is shorthand for SessionFrom(ctx).Caller.
func CallerFrom(ctx context.Context) auth.Caller {
	return SessionFrom(ctx).Caller
}

func SetSessionCookie(w http.ResponseWriter, name, token string, expiry time.Duration, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    token,
		Path:     "/",
		MaxAge:   int(expiry.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func ClearSessionCookie(w http.ResponseWriter, name string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// RequireCaller rejects the request unless check accepts the caller. Used
// with auth.RequireLogin and auth.RequireGod on routes outside any feis.
func RequireCaller(check func(auth.Caller) error, env string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := check(CallerFrom(r.Context())); err != nil {
				problem.Error(w, r, err, env)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
