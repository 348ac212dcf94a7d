package middleware

import (
	"context"
	"net/http"

	"github.com/ifeis/server/internal/api/problem"
	"github.com/ifeis/server/internal/auth"
	"github.com/ifeis/server/internal/domain/feiseanna"
	"github.com/ifeis/server/internal/domain/grants"
)

type contextKeyFeis string

const feisAccessKey contextKeyFeis = "feisAccess"

type FeisLoader interface {
	One(ctx context.Context, id string) (*feiseanna.Feis, error)
}

type GrantLoader interface {
	For(ctx context.Context, feisID, accountID string) ([]grants.Grant, error)
}

// Check is one access rule evaluated against the caller's standing on a feis.
type Check func(auth.FeisAccess) error

// FeisGuard loads the feis named by the {fid} path value together with the
// caller's grants on it, then applies access checks.
type FeisGuard struct {
	feiseanna FeisLoader
	grants    GrantLoader
	env       string
}

func NewFeisGuard(f FeisLoader, g GrantLoader, env string) *FeisGuard {
	return &FeisGuard{feiseanna: f, grants: g, env: env}
}

// Require wraps next so that it only runs when every check passes. The first
// failing check decides the response.
func (g *FeisGuard) Require(checks ...Check) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			access, err := g.load(r)
			if err != nil {
				problem.Error(w, r, err, g.env)
				return
			}
			for _, check := range checks {
				if err := check(access); err != nil {
					problem.Error(w, r, err, g.env)
					return
				}
			}
			next.ServeHTTP(w, r.WithContext(WithFeisAccess(r.Context(), access)))
		})
	}
}

// load reuses an access record an outer guard already stored.
func (g *FeisGuard) load(r *http.Request) (auth.FeisAccess, error) {
	fid := r.PathValue("fid")
	if access, ok := r.Context().Value(feisAccessKey).(auth.FeisAccess); ok && access.Feis != nil && access.Feis.ID == fid {
		return access, nil
	}

	access := auth.FeisAccess{Caller: CallerFrom(r.Context())}
	feis, err := g.feiseanna.One(r.Context(), fid)
	if err != nil {
		return access, err
	}
	access.Feis = feis

	if access.Caller.Authenticated() {
		access.Grants, err = g.grants.For(r.Context(), fid, access.Caller.AccountID)
		if err != nil {
			return access, err
		}
	}
	return access, nil
}

func WithFeisAccess(ctx context.Context, access auth.FeisAccess) context.Context {
	return context.WithValue(ctx, feisAccessKey, access)
}

// FeisAccessFrom returns what the guard loaded for this request.
func FeisAccessFrom(ctx context.Context) auth.FeisAccess {
	access, _ := ctx.Value(feisAccessKey).(auth.FeisAccess)
	return access
}

// Role adapts auth.HasRole to a Check.
func Role(role grants.Role) Check {
	return func(a auth.FeisAccess) error {
		return auth.HasRole(a, role)
	}
}
