package grants

import (
	"context"
	"fmt"

	"github.com/ifeis/server/internal/domain/accounts"
	"github.com/ifeis/server/internal/domain/ids"
	"github.com/rs/zerolog"
)

// AccountMerger resolves an email address to an account, creating a
// placeholder account when needed.
type AccountMerger interface {
	MergeByEmail(ctx context.Context, address, fname, lname string) (*accounts.Person, bool, error)
}

type Service struct {
	repo     Repository
	accounts AccountMerger
	logger   zerolog.Logger
}

func NewService(repo Repository, accounts AccountMerger, logger zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		accounts: accounts,
		logger:   logger.With().Str("component", "grants").Logger(),
	}
}

// Grant gives accountID the role on feisID, recording who granted it.
func (s *Service) Grant(ctx context.Context, feisID string, role Role, accountID, granterID string) (*Grant, error) {
	if _, err := ParseRole(string(role)); err != nil {
		return nil, err
	}
	id, err := ids.NewULID()
	if err != nil {
		return nil, fmt.Errorf("generate grant id: %w", err)
	}
	grant, err := s.repo.Create(ctx, Grant{
		ID:        id,
		FeisID:    feisID,
		AccountID: accountID,
		Role:      role,
		GranterID: granterID,
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info().
		Str("feis_id", feisID).
		Str("account_id", accountID).
		Str("role", string(role)).
		Str("granter_id", granterID).
		Msg("grant created")
	return grant, nil
}

// GrantByEmail is Grant for someone who may not have an account yet.
func (s *Service) GrantByEmail(ctx context.Context, feisID string, role Role, address, granterID string) (*Grant, error) {
	if _, err := ParseRole(string(role)); err != nil {
		return nil, err
	}
	acct, _, err := s.accounts.MergeByEmail(ctx, address, "", "")
	if err != nil {
		return nil, err
	}
	grant, err := s.Grant(ctx, feisID, role, acct.ID, granterID)
	if err != nil {
		return nil, err
	}
	grant.Person = acct
	return grant, nil
}

func (s *Service) On(ctx context.Context, feisID string) ([]Grant, error) {
	return s.repo.All(ctx, feisID)
}

func (s *Service) For(ctx context.Context, feisID, accountID string) ([]Grant, error) {
	return s.repo.ForAccount(ctx, feisID, accountID)
}

// HasGrant reports whether accountID holds one of roles (or chair) on feisID.
func (s *Service) HasGrant(ctx context.Context, feisID, accountID string, roles ...Role) (bool, error) {
	list, err := s.repo.ForAccount(ctx, feisID, accountID)
	if err != nil {
		return false, err
	}
	return Includes(list, roles...), nil
}

// Revoke deletes a grant belonging to feisID.
func (s *Service) Revoke(ctx context.Context, feisID, grantID string) error {
	grant, err := s.repo.Get(ctx, grantID)
	if err != nil {
		return err
	}
	if grant.FeisID != feisID {
		return ErrNotFound
	}
	return s.repo.Delete(ctx, grantID)
}
