package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ifeis/server/internal/api/middleware"
	"github.com/ifeis/server/internal/auth"
	"github.com/ifeis/server/internal/domain/feiseanna"
	"github.com/ifeis/server/internal/domain/grants"
	"github.com/stretchr/testify/require"
)

const (
	testAccount = "01HZX3M7Q0K4ZP4T9V6Y8B2C1D"
	testFeis    = "01HZX3M7Q0K4ZP4T9V6Y8B2C1E"
	testEvent   = "01HZX3M7Q0K4ZP4T9V6Y8B2C1F"
	testPerson  = "01HZX3M7Q0K4ZP4T9V6Y8B2C1G"
	testOther   = "01HZX3M7Q0K4ZP4T9V6Y8B2C1H"
)

// newRequest builds a request with an optional JSON body.
func newRequest(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

// asCaller attaches a logged-in session to the request.
func asCaller(req *http.Request, accountID string, god bool) *http.Request {
	ctx := middleware.WithSession(req.Context(), middleware.Session{
		Caller: auth.Caller{AccountID: accountID, God: god},
	})
	return req.WithContext(ctx)
}

// serve routes req through a mux holding a single pattern so path values
// resolve as they do in production.
func serve(pattern string, h http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	mux := http.NewServeMux()
	mux.HandleFunc(pattern, h)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

// serveGuarded is serve behind a feis guard with the given access.
func serveGuarded(pattern string, h http.HandlerFunc, req *http.Request, feis *feiseanna.Feis, roles ...grants.Role) *httptest.ResponseRecorder {
	mux := http.NewServeMux()
	mux.Handle(pattern, withAccess(feis, roles, h))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

// withAccess installs a resolved FeisAccess the way FeisGuard would.
func withAccess(feis *feiseanna.Feis, roles []grants.Role, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c := middleware.CallerFrom(r.Context())
		var held []grants.Grant
		for _, role := range roles {
			held = append(held, grants.Grant{FeisID: feis.ID, AccountID: c.AccountID, Role: role})
		}
		ctx := middleware.WithFeisAccess(r.Context(), auth.FeisAccess{Caller: c, Feis: feis, Grants: held})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(rec.Body).Decode(dst))
}
