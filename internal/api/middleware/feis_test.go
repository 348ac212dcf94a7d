package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ifeis/server/internal/auth"
	"github.com/ifeis/server/internal/domain/feiseanna"
	"github.com/ifeis/server/internal/domain/grants"
	"github.com/stretchr/testify/require"
)

type stubFeiseanna map[string]*feiseanna.Feis

func (s stubFeiseanna) One(_ context.Context, id string) (*feiseanna.Feis, error) {
	if f, ok := s[id]; ok {
		return f, nil
	}
	return nil, feiseanna.ErrNotFound
}

type stubGrants struct {
	byAccount map[string][]grants.Grant
	calls     int
}

func (s *stubGrants) For(_ context.Context, feisID, accountID string) ([]grants.Grant, error) {
	s.calls++
	return s.byAccount[accountID], nil
}

func guardedMux(guard *FeisGuard, checks ...Check) (*http.ServeMux, *auth.FeisAccess) {
	var seen auth.FeisAccess
	mux := http.NewServeMux()
	mux.Handle("POST /api/feiseanna/{fid}/events", guard.Require(checks...)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = FeisAccessFrom(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})))
	return mux, &seen
}

func serveAs(h http.Handler, caller auth.Caller, fid string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/feiseanna/"+fid+"/events", nil)
	req = req.WithContext(WithSession(req.Context(), Session{Caller: caller}))
	res := httptest.NewRecorder()
	h.ServeHTTP(res, req)
	return res
}

func TestFeisGuard(t *testing.T) {
	feis := stubFeiseanna{
		"open":   {ID: "open", IsPublic: true},
		"closed": {ID: "closed"},
		"final":  {ID: "final", IsFinalized: true},
	}
	gr := &stubGrants{byAccount: map[string][]grants.Grant{
		"chair":     {{Role: grants.RoleChair}},
		"tabulator": {{Role: grants.RoleTabulations}},
	}}
	guard := NewFeisGuard(feis, gr, "test")

	t.Run("unknown feis is 404", func(t *testing.T) {
		mux, _ := guardedMux(guard, auth.Readable)
		require.Equal(t, http.StatusNotFound, serveAs(mux, auth.Caller{}, "nope").Code)
	})

	t.Run("public feis readable anonymously", func(t *testing.T) {
		mux, seen := guardedMux(guard, auth.Readable)
		require.Equal(t, http.StatusNoContent, serveAs(mux, auth.Caller{}, "open").Code)
		require.Equal(t, "open", seen.Feis.ID)
	})

	t.Run("private feis needs login", func(t *testing.T) {
		mux, _ := guardedMux(guard, auth.Readable)
		require.Equal(t, http.StatusUnauthorized, serveAs(mux, auth.Caller{}, "closed").Code)
		require.Equal(t, http.StatusForbidden, serveAs(mux, auth.Caller{AccountID: "stranger"}, "closed").Code)
	})

	t.Run("grants are loaded for the caller", func(t *testing.T) {
		mux, seen := guardedMux(guard, auth.Writable, Role(grants.RoleTabulations))
		require.Equal(t, http.StatusNoContent, serveAs(mux, auth.Caller{AccountID: "tabulator"}, "closed").Code)
		require.Len(t, seen.Grants, 1)
	})

	t.Run("first failing check wins", func(t *testing.T) {
		mux, _ := guardedMux(guard, auth.Writable, auth.IsChair)
		require.Equal(t, http.StatusForbidden, serveAs(mux, auth.Caller{AccountID: "tabulator"}, "closed").Code)
		require.Equal(t, http.StatusNoContent, serveAs(mux, auth.Caller{AccountID: "chair"}, "closed").Code)
	})

	t.Run("finalized feis refuses writes", func(t *testing.T) {
		gr.byAccount["chair-final"] = []grants.Grant{{Role: grants.RoleChair}}
		mux, _ := guardedMux(guard, auth.Writable)
		res := serveAs(mux, auth.Caller{AccountID: "chair-final"}, "final")
		require.Equal(t, http.StatusBadRequest, res.Code)
		require.Contains(t, res.Body.String(), "Finalized feiseanna cannot be altered.")
		require.Equal(t, http.StatusNoContent, serveAs(mux, auth.Caller{AccountID: "god", God: true}, "final").Code)
	})

	t.Run("anonymous callers skip the grant lookup", func(t *testing.T) {
		before := gr.calls
		mux, _ := guardedMux(guard, auth.Readable)
		serveAs(mux, auth.Caller{}, "open")
		require.Equal(t, before, gr.calls)
	})
}
