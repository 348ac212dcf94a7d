package postgres

import (
	"context"
	"fmt"

	"github.com/ifeis/server/internal/domain/accounts"
	"github.com/ifeis/server/internal/domain/grants"
	"github.com/jackc/pgx/v5"
)

// GrantRepository implements grants.Repository.
type GrantRepository struct {
	base
}

const grantColumns = `g.id, g.feis_id, g.account_id, g.role, COALESCE(g.granter_id, ''), g.created_at`

func scanGrant(row pgx.Row) (*grants.Grant, error) {
	var g grants.Grant
	if err := row.Scan(&g.ID, &g.FeisID, &g.AccountID, &g.Role, &g.GranterID, &g.CreatedAt); err != nil {
		return nil, err
	}
	return &g, nil
}

func (r *GrantRepository) Create(ctx context.Context, g grants.Grant) (*grants.Grant, error) {
	row := r.queryer().QueryRow(ctx, `
		INSERT INTO grants (id, feis_id, account_id, role, granter_id)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (feis_id, account_id, role) DO UPDATE SET role = grants.role
		RETURNING id, feis_id, account_id, role, COALESCE(granter_id, ''), created_at`,
		g.ID, g.FeisID, g.AccountID, g.Role, nullString(g.GranterID))
	created, err := scanGrant(row)
	if err != nil {
		if isViolation(err, codeForeignKeyViolation, "") {
			return nil, accounts.ErrNotFound
		}
		return nil, fmt.Errorf("create grant: %w", err)
	}
	return created, nil
}

func (r *GrantRepository) Get(ctx context.Context, id string) (*grants.Grant, error) {
	g, err := scanGrant(r.queryer().QueryRow(ctx, `SELECT `+grantColumns+` FROM grants g WHERE g.id = $1`, id))
	if err != nil {
		return nil, orNotFound(err, grants.ErrNotFound)
	}
	return g, nil
}

func (r *GrantRepository) ForAccount(ctx context.Context, feisID, accountID string) ([]grants.Grant, error) {
	rows, err := r.queryer().Query(ctx, `
		SELECT `+grantColumns+` FROM grants g
		 WHERE g.feis_id = $1 AND g.account_id = $2
		 ORDER BY g.role`, feisID, accountID)
	if err != nil {
		return nil, fmt.Errorf("list account grants: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (grants.Grant, error) {
		g, err := scanGrant(row)
		if err != nil {
			return grants.Grant{}, err
		}
		return *g, nil
	})
}

func (r *GrantRepository) All(ctx context.Context, feisID string) ([]grants.Grant, error) {
	rows, err := r.queryer().Query(ctx, `
		SELECT `+grantColumns+`, `+personColumns+`
		  FROM grants g
		  JOIN `+personFrom+` ON p.id = g.account_id
		 WHERE g.feis_id = $1
		 ORDER BY g.role, p.lname, p.fname, g.id`, feisID)
	if err != nil {
		return nil, fmt.Errorf("list feis grants: %w", err)
	}
	defer rows.Close()

	out := []grants.Grant{}
	for rows.Next() {
		var g grants.Grant
		var p accounts.Person
		dest, finish := personDest(&p)
		dest = append([]any{&g.ID, &g.FeisID, &g.AccountID, &g.Role, &g.GranterID, &g.CreatedAt}, dest...)
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		finish()
		g.Person = &p
		out = append(out, g)
	}
	return out, rows.Err()
}

func (r *GrantRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.queryer().Exec(ctx, `DELETE FROM grants WHERE id = $1`, id)
	return requireRow(tag, err, grants.ErrNotFound)
}
