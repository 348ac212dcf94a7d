package postgres

import (
	"context"
	"fmt"

	"github.com/ifeis/server/internal/domain/leads"
)

// LeadRepository implements leads.Repository.
type LeadRepository struct {
	base
}

func (r *LeadRepository) Create(ctx context.Context, l leads.Lead) (*leads.Lead, error) {
	created, err := one[leads.Lead](ctx, r.queryer(), nil, `
		INSERT INTO leads (id, account_id, fname, lname, email, phone, organisation, message)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, COALESCE(account_id, ''), fname, lname, email, phone, organisation, message, created_at`,
		l.ID, nullString(l.AccountID), l.FName, l.LName, l.Email, l.Phone, l.Organisation, l.Message)
	if err != nil {
		return nil, fmt.Errorf("create lead: %w", err)
	}
	return created, nil
}
