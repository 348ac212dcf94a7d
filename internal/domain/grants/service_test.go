package grants

import (
	"context"
	"testing"

	"github.com/ifeis/server/internal/domain/accounts"
	"github.com/ifeis/server/internal/domain/errs"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type memoryRepository struct {
	grants map[string]Grant
}

func (r *memoryRepository) Create(_ context.Context, grant Grant) (*Grant, error) {
	for _, g := range r.grants {
		if g.FeisID == grant.FeisID && g.AccountID == grant.AccountID && g.Role == grant.Role {
			return &g, nil
		}
	}
	r.grants[grant.ID] = grant
	return &grant, nil
}

func (r *memoryRepository) Get(_ context.Context, id string) (*Grant, error) {
	g, ok := r.grants[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &g, nil
}

func (r *memoryRepository) ForAccount(_ context.Context, feisID, accountID string) ([]Grant, error) {
	var out []Grant
	for _, g := range r.grants {
		if g.FeisID == feisID && g.AccountID == accountID {
			out = append(out, g)
		}
	}
	return out, nil
}

func (r *memoryRepository) All(_ context.Context, feisID string) ([]Grant, error) {
	var out []Grant
	for _, g := range r.grants {
		if g.FeisID == feisID {
			out = append(out, g)
		}
	}
	return out, nil
}

func (r *memoryRepository) Delete(_ context.Context, id string) error {
	delete(r.grants, id)
	return nil
}

type stubMerger struct{}

func (stubMerger) MergeByEmail(_ context.Context, address, _, _ string) (*accounts.Person, bool, error) {
	return &accounts.Person{ID: "acct-" + address, Email: address, IsAccount: true}, true, nil
}

func newTestService() (*Service, *memoryRepository) {
	repo := &memoryRepository{grants: map[string]Grant{}}
	return NewService(repo, stubMerger{}, zerolog.Nop()), repo
}

func TestIncludes(t *testing.T) {
	tabs := []Grant{{Role: RoleTabulations}}
	chair := []Grant{{Role: RoleChair}}

	require.False(t, Includes(nil))
	require.True(t, Includes(tabs))
	require.True(t, Includes(tabs, RoleTabulations))
	require.False(t, Includes(tabs, RoleStages))
	require.True(t, Includes(chair, RoleStages))
	require.True(t, Includes(tabs, RoleStages, RoleTabulations))
}

func TestGrant_IsIdempotent(t *testing.T) {
	svc, repo := newTestService()

	first, err := svc.Grant(context.Background(), "feis", RoleStages, "acct", "chair")
	require.NoError(t, err)
	second, err := svc.Grant(context.Background(), "feis", RoleStages, "acct", "chair")
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)
	require.Len(t, repo.grants, 1)

	ok, err := svc.HasGrant(context.Background(), "feis", "acct", RoleStages)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = svc.HasGrant(context.Background(), "feis", "acct", RoleResults)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestGrant_UnknownRole(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.Grant(context.Background(), "feis", Role("janitor"), "acct", "chair")
	require.ErrorIs(t, err, errs.ErrInvalid)
}

func TestGrantByEmail_AttachesPerson(t *testing.T) {
	svc, _ := newTestService()

	grant, err := svc.GrantByEmail(context.Background(), "feis", RoleResults, "helper@example.com", "chair")
	require.NoError(t, err)
	require.Equal(t, "acct-helper@example.com", grant.AccountID)
	require.Equal(t, "helper@example.com", grant.Person.Email)
}

func TestRevoke_ChecksFeis(t *testing.T) {
	svc, repo := newTestService()
	grant, err := svc.Grant(context.Background(), "feis", RoleStages, "acct", "chair")
	require.NoError(t, err)

	require.ErrorIs(t, svc.Revoke(context.Background(), "other", grant.ID), errs.ErrNotFound)
	require.NoError(t, svc.Revoke(context.Background(), "feis", grant.ID))
	require.Empty(t, repo.grants)
}
