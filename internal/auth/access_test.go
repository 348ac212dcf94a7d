package auth

import (
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/ifeis/server/internal/domain/errs"
	"github.com/ifeis/server/internal/domain/feiseanna"
	"github.com/ifeis/server/internal/domain/grants"
	"github.com/stretchr/testify/require"
)

func access(caller Caller, feis feiseanna.Feis, roles ...grants.Role) FeisAccess {
	a := FeisAccess{Caller: caller, Feis: &feis}
	for _, role := range roles {
		a.Grants = append(a.Grants, grants.Grant{FeisID: feis.ID, AccountID: caller.AccountID, Role: role})
	}
	return a
}

func TestReadable(t *testing.T) {
	private := feiseanna.Feis{ID: "f1"}
	public := feiseanna.Feis{ID: "f1", IsPublic: true}
	user := Caller{AccountID: "a1"}

	tests := []struct {
		name   string
		access FeisAccess
		want   error
	}{
		{"public to anonymous", access(Caller{}, public), nil},
		{"private to anonymous", access(Caller{}, private), errs.ErrUnauthenticated},
		{"private without grants", access(user, private), errs.ErrForbidden},
		{"private with a grant", access(user, private, grants.RoleStages), nil},
		{"private to god", access(Caller{AccountID: "g", God: true}, private), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Readable(tt.access)
			if tt.want == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestWritable(t *testing.T) {
	open := feiseanna.Feis{ID: "f1", IsPublic: true}
	finalized := feiseanna.Feis{ID: "f1", IsFinalized: true}
	user := Caller{AccountID: "a1"}
	god := Caller{AccountID: "g", God: true}

	require.ErrorIs(t, Writable(access(Caller{}, open)), errs.ErrUnauthenticated)
	require.ErrorIs(t, Writable(access(user, open)), errs.ErrForbidden)
	require.NoError(t, Writable(access(user, open, grants.RoleResults)))
	require.NoError(t, Writable(access(god, finalized)))

	err := Writable(access(user, finalized, grants.RoleChair))
	require.ErrorIs(t, err, errs.ErrInvalid)
	require.Equal(t, "Finalized feiseanna cannot be altered.", errs.Message(err))
}

func TestHasRole(t *testing.T) {
	feis := feiseanna.Feis{ID: "f1"}
	user := Caller{AccountID: "a1"}

	require.NoError(t, IsTabulator(access(user, feis, grants.RoleTabulations)))
	require.NoError(t, IsTabulator(access(user, feis, grants.RoleChair)), "chair holds every role")
	require.ErrorIs(t, IsTabulator(access(user, feis, grants.RoleStages)), errs.ErrForbidden)
	require.ErrorIs(t, IsChair(access(user, feis, grants.RoleRegistration)), errs.ErrForbidden)
	require.NoError(t, HasRole(access(user, feis, grants.RoleStages), ""), "any grant passes without a role")
	require.ErrorIs(t, HasRole(access(user, feis), ""), errs.ErrForbidden)
	require.NoError(t, IsSteward(access(Caller{AccountID: "g", God: true}, feis)))
	require.ErrorIs(t, IsAwarder(access(Caller{}, feis)), errs.ErrUnauthenticated)
}

func TestInvites(t *testing.T) {
	inv := &feiseanna.Invitation{ID: "i1", AccountID: "a1"}

	require.NoError(t, CanUseInvite(Caller{AccountID: "a1"}, inv))
	require.ErrorIs(t, CanUseInvite(Caller{AccountID: "a2"}, inv), errs.ErrForbidden)
	require.ErrorIs(t, CanUseInvite(Caller{AccountID: "g", God: true}, inv), errs.ErrForbidden)
	require.NoError(t, CanSeeInvite(Caller{AccountID: "g", God: true}, inv))
	require.ErrorIs(t, CanSeeInvite(Caller{}, inv), errs.ErrUnauthenticated)
}

func TestRouteGuards(t *testing.T) {
	require.ErrorIs(t, RequireLogin(Caller{}), errs.ErrUnauthenticated)
	require.NoError(t, RequireLogin(Caller{AccountID: "a1"}))
	require.ErrorIs(t, RequireGod(Caller{AccountID: "a1"}), errs.ErrForbidden)
	require.NoError(t, RequireGod(Caller{AccountID: "a1", God: true}))
	require.Equal(t, Caller{AccountID: "a1", God: true}, CallerFromClaims(&Claims{God: true, RegisteredClaims: jwtSubject("a1")}))
}

func jwtSubject(sub string) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{Subject: sub}
}
