package auth

import (
	"github.com/ifeis/server/internal/domain/errs"
	"github.com/ifeis/server/internal/domain/feiseanna"
	"github.com/ifeis/server/internal/domain/grants"
)

var (
	ErrLoginRequired = errs.Unauthenticated("Authentication required.")
	ErrNotAllowed    = errs.Forbidden("You are not allowed to do that.")
	ErrFinalized     = errs.Invalid("Finalized feiseanna cannot be altered.")
)

// Caller is whoever made the request. The zero value is anonymous.
type Caller struct {
	AccountID string
	God       bool
}

func CallerFromClaims(claims *Claims) Caller {
	if claims == nil {
		return Caller{}
	}
	return Caller{AccountID: claims.Subject, God: claims.God}
}

func (c Caller) Authenticated() bool {
	return c.AccountID != ""
}

// FeisAccess is a caller's standing on one feis: the feis itself and the
// grants the caller holds on it. It is loaded once per request.
type FeisAccess struct {
	Caller Caller
	Feis   *feiseanna.Feis
	Grants []grants.Grant
}

func (a FeisAccess) Roles() []grants.Role {
	roles := make([]grants.Role, 0, len(a.Grants))
	for _, g := range a.Grants {
		roles = append(roles, g.Role)
	}
	return roles
}

func RequireLogin(c Caller) error {
	if !c.Authenticated() {
		return ErrLoginRequired
	}
	return nil
}

func RequireGod(c Caller) error {
	if err := RequireLogin(c); err != nil {
		return err
	}
	if !c.God {
		return ErrNotAllowed
	}
	return nil
}

// Readable lets anyone see a public feis. A private one is visible to gods
// and to callers holding any grant on it.
func Readable(a FeisAccess) error {
	if a.Feis.IsPublic {
		return nil
	}
	if !a.Caller.Authenticated() {
		return ErrLoginRequired
	}
	if a.Caller.God || len(a.Grants) > 0 {
		return nil
	}
	return ErrNotAllowed
}

// Writable requires a grant on the feis. Only gods can alter a finalized feis.
func Writable(a FeisAccess) error {
	if !a.Caller.Authenticated() {
		return ErrLoginRequired
	}
	if a.Caller.God {
		return nil
	}
	if len(a.Grants) == 0 {
		return ErrNotAllowed
	}
	if a.Feis.IsFinalized {
		return ErrFinalized
	}
	return nil
}

// HasRole passes gods and holders of role or chair. Without a role any grant
// will do.
func HasRole(a FeisAccess, role grants.Role) error {
	if !a.Caller.Authenticated() {
		return ErrLoginRequired
	}
	if a.Caller.God {
		return nil
	}
	var roles []grants.Role
	if role != "" {
		roles = append(roles, role)
	}
	if !grants.Includes(a.Grants, roles...) {
		return ErrNotAllowed
	}
	return nil
}

func IsChair(a FeisAccess) error     { return HasRole(a, grants.RoleChair) }
func IsRegistrar(a FeisAccess) error { return HasRole(a, grants.RoleRegistration) }
func IsTabulator(a FeisAccess) error { return HasRole(a, grants.RoleTabulations) }
func IsAwarder(a FeisAccess) error   { return HasRole(a, grants.RoleResults) }
func IsSteward(a FeisAccess) error   { return HasRole(a, grants.RoleStages) }

// CanUseInvite passes only the account the invitation was issued to.
func CanUseInvite(c Caller, inv *feiseanna.Invitation) error {
	if err := RequireLogin(c); err != nil {
		return err
	}
	if inv.AccountID != c.AccountID {
		return ErrNotAllowed
	}
	return nil
}

// CanSeeInvite also lets gods look at any invitation.
func CanSeeInvite(c Caller, inv *feiseanna.Invitation) error {
	if err := RequireLogin(c); err != nil {
		return err
	}
	if c.God {
		return nil
	}
	return CanUseInvite(c, inv)
}
