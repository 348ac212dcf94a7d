package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ifeis/server/internal/auth"
	"github.com/stretchr/testify/require"
)

var testCSRFKey = []byte("12345678901234567890123456789012")

// withSession stands in for Sessions so the CSRF layer sees a caller.
func withSession(sess Session, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), sess)))
	})
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

var cookieSession = Session{Caller: auth.Caller{AccountID: "acct-1"}, FromCookie: true}

func TestCSRFProtection_BlocksCookieSessionWithoutToken(t *testing.T) {
	handler := withSession(cookieSession, CSRFProtection(testCSRFKey, false, "test")(okHandler()))

	for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodDelete} {
		req := httptest.NewRequest(method, "/api/feiseanna/1/events", strings.NewReader("{}"))
		req.Header.Set("Content-Type", "application/json")
		res := httptest.NewRecorder()

		handler.ServeHTTP(res, req)

		require.Equal(t, http.StatusForbidden, res.Code, method)
		require.Equal(t, "application/problem+json", res.Header().Get("Content-Type"))
		require.Contains(t, res.Body.String(), "csrf-failure")
	}
}

func TestCSRFProtection_SkipsBearerAndAnonymous(t *testing.T) {
	sessions := []Session{
		{},
		{Caller: auth.Caller{AccountID: "acct-1"}},
	}
	for _, sess := range sessions {
		handler := withSession(sess, CSRFProtection(testCSRFKey, false, "test")(okHandler()))
		req := httptest.NewRequest(http.MethodPost, "/api/contact", strings.NewReader("{}"))
		res := httptest.NewRecorder()

		handler.ServeHTTP(res, req)

		require.Equal(t, http.StatusOK, res.Code)
		require.Empty(t, res.Header().Get(CSRFHeader))
	}
}

func TestCSRFProtection_TokenRoundTrip(t *testing.T) {
	handler := withSession(cookieSession, CSRFProtection(testCSRFKey, false, "test")(okHandler()))

	getRes := httptest.NewRecorder()
	handler.ServeHTTP(getRes, httptest.NewRequest(http.MethodGet, "http://ifeis.test/api/accounts/me", nil))
	require.Equal(t, http.StatusOK, getRes.Code)

	token := getRes.Header().Get(CSRFHeader)
	require.NotEmpty(t, token)

	var csrfCookie *http.Cookie
	for _, c := range getRes.Result().Cookies() {
		if c.Name == "_gorilla_csrf" {
			csrfCookie = c
		}
	}
	require.NotNil(t, csrfCookie)
	require.True(t, csrfCookie.HttpOnly)
	require.Equal(t, "/", csrfCookie.Path)
	require.Equal(t, http.SameSiteLaxMode, csrfCookie.SameSite)

	postReq := httptest.NewRequest(http.MethodPut, "http://ifeis.test/api/accounts/me", strings.NewReader("{}"))
	postReq.AddCookie(csrfCookie)
	postReq.Header.Set(CSRFHeader, token)
	postRes := httptest.NewRecorder()
	handler.ServeHTTP(postRes, postReq)

	require.Equal(t, http.StatusOK, postRes.Code)
}

func TestCSRFProtection_InvalidTokenBlocked(t *testing.T) {
	handler := withSession(cookieSession, CSRFProtection(testCSRFKey, false, "test")(okHandler()))

	req := httptest.NewRequest(http.MethodPost, "/api/feiseanna", strings.NewReader(""))
	req.Header.Set(CSRFHeader, "invalid-token-12345")
	res := httptest.NewRecorder()

	handler.ServeHTTP(res, req)

	require.Equal(t, http.StatusForbidden, res.Code)
}
