// Package grants assigns feis roles to accounts.
package grants

import (
	"context"
	"time"

	"github.com/ifeis/server/internal/domain/accounts"
	"github.com/ifeis/server/internal/domain/errs"
)

var ErrNotFound = errs.NotFound("grant not found")

type Role string

const (
	RoleChair        Role = "chair"
	RoleRegistration Role = "registration"
	RoleTabulations  Role = "tabulations"
	RoleResults      Role = "results"
	RoleStages       Role = "stages"
)

var knownRoles = map[Role]struct{}{
	RoleChair:        {},
	RoleRegistration: {},
	RoleTabulations:  {},
	RoleResults:      {},
	RoleStages:       {},
}

// ParseRole validates a role name received from a client.
func ParseRole(value string) (Role, error) {
	role := Role(value)
	if _, ok := knownRoles[role]; !ok {
		return "", errs.Invalid("Unknown role %q.", value)
	}
	return role, nil
}

type Grant struct {
	ID        string           `json:"id"`
	FeisID    string           `json:"feis_id"`
	AccountID string           `json:"account_id"`
	Role      Role             `json:"role"`
	GranterID string           `json:"granter_id,omitempty"`
	Person    *accounts.Person `json:"person,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}

// Includes reports whether any grant in list is one of roles, or chair.
// With no roles, any grant at all is enough.
func Includes(list []Grant, roles ...Role) bool {
	if len(list) == 0 {
		return false
	}
	if len(roles) == 0 {
		return true
	}
	for _, g := range list {
		if g.Role == RoleChair {
			return true
		}
		for _, role := range roles {
			if g.Role == role {
				return true
			}
		}
	}
	return false
}

type Repository interface {
	// Create inserts a grant; an identical (feis, account, role) grant is
	// returned unchanged.
	Create(ctx context.Context, grant Grant) (*Grant, error)
	Get(ctx context.Context, id string) (*Grant, error)
	ForAccount(ctx context.Context, feisID, accountID string) ([]Grant, error)
	// All lists every grant on a feis with its person, ordered by role.
	All(ctx context.Context, feisID string) ([]Grant, error)
	Delete(ctx context.Context, id string) error
}
