package postgres

import (
	"context"
	"fmt"

	"github.com/ifeis/server/internal/domain/feiseanna"
	"github.com/ifeis/server/internal/domain/resources"
	"github.com/jackc/pgx/v5"
)

// ResourceRepository implements resources.Repository. Every table scans
// positionally into its domain struct, so column lists follow field order.
type ResourceRepository struct {
	base
}

const (
	contactColumns       = `id, feis_id, name, role, email, phone, created_at`
	accommodationColumns = `id, feis_id, name, address, phone, url, rate, notes, created_at`
	attachmentColumns    = `id, feis_id, name, url, created_at`
)

// one runs a single-row query and maps a missing row to notFound.
func one[T any](ctx context.Context, q DBTX, notFound error, sql string, args ...any) (*T, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	v, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByPos[T])
	if err != nil {
		return nil, orNotFound(err, notFound)
	}
	return &v, nil
}

func all[T any](ctx context.Context, q DBTX, sql string, args ...any) ([]T, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByPos[T])
}

// Contacts

func (r *ResourceRepository) Contacts(ctx context.Context, feisID string) ([]resources.Contact, error) {
	list, err := all[resources.Contact](ctx, r.queryer(), `
		SELECT `+contactColumns+` FROM contacts WHERE feis_id = $1 ORDER BY name, id`, feisID)
	if err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}
	return list, nil
}

func (r *ResourceRepository) Contact(ctx context.Context, feisID, id string) (*resources.Contact, error) {
	return one[resources.Contact](ctx, r.queryer(), resources.ErrContactNotFound, `
		SELECT `+contactColumns+` FROM contacts WHERE feis_id = $1 AND id = $2`, feisID, id)
}

func (r *ResourceRepository) CreateContact(ctx context.Context, c resources.Contact) (*resources.Contact, error) {
	created, err := one[resources.Contact](ctx, r.queryer(), resources.ErrContactNotFound, `
		INSERT INTO contacts (id, feis_id, name, role, email, phone) VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+contactColumns, c.ID, c.FeisID, c.Name, c.Role, c.Email, c.Phone)
	if isViolation(err, codeForeignKeyViolation, "") {
		return nil, feiseanna.ErrNotFound
	}
	return created, err
}

func (r *ResourceRepository) UpdateContact(ctx context.Context, c resources.Contact) (*resources.Contact, error) {
	return one[resources.Contact](ctx, r.queryer(), resources.ErrContactNotFound, `
		UPDATE contacts SET name = $3, role = $4, email = $5, phone = $6
		 WHERE feis_id = $1 AND id = $2
		RETURNING `+contactColumns, c.FeisID, c.ID, c.Name, c.Role, c.Email, c.Phone)
}

func (r *ResourceRepository) DeleteContact(ctx context.Context, feisID, id string) error {
	tag, err := r.queryer().Exec(ctx, `DELETE FROM contacts WHERE feis_id = $1 AND id = $2`, feisID, id)
	return requireRow(tag, err, resources.ErrContactNotFound)
}

// Accommodations

func (r *ResourceRepository) Accommodations(ctx context.Context, feisID string) ([]resources.Accommodation, error) {
	list, err := all[resources.Accommodation](ctx, r.queryer(), `
		SELECT `+accommodationColumns+` FROM accommodations WHERE feis_id = $1 ORDER BY name, id`, feisID)
	if err != nil {
		return nil, fmt.Errorf("list accommodations: %w", err)
	}
	return list, nil
}

func (r *ResourceRepository) Accommodation(ctx context.Context, feisID, id string) (*resources.Accommodation, error) {
	return one[resources.Accommodation](ctx, r.queryer(), resources.ErrAccommodationNotFound, `
		SELECT `+accommodationColumns+` FROM accommodations WHERE feis_id = $1 AND id = $2`, feisID, id)
}

func (r *ResourceRepository) CreateAccommodation(ctx context.Context, a resources.Accommodation) (*resources.Accommodation, error) {
	created, err := one[resources.Accommodation](ctx, r.queryer(), resources.ErrAccommodationNotFound, `
		INSERT INTO accommodations (id, feis_id, name, address, phone, url, rate, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+accommodationColumns, a.ID, a.FeisID, a.Name, a.Address, a.Phone, a.URL, a.Rate, a.Notes)
	if isViolation(err, codeForeignKeyViolation, "") {
		return nil, feiseanna.ErrNotFound
	}
	return created, err
}

func (r *ResourceRepository) UpdateAccommodation(ctx context.Context, a resources.Accommodation) (*resources.Accommodation, error) {
	return one[resources.Accommodation](ctx, r.queryer(), resources.ErrAccommodationNotFound, `
		UPDATE accommodations
		   SET name = $3, address = $4, phone = $5, url = $6, rate = $7, notes = $8
		 WHERE feis_id = $1 AND id = $2
		RETURNING `+accommodationColumns, a.FeisID, a.ID, a.Name, a.Address, a.Phone, a.URL, a.Rate, a.Notes)
}

func (r *ResourceRepository) DeleteAccommodation(ctx context.Context, feisID, id string) error {
	tag, err := r.queryer().Exec(ctx, `DELETE FROM accommodations WHERE feis_id = $1 AND id = $2`, feisID, id)
	return requireRow(tag, err, resources.ErrAccommodationNotFound)
}

// Attachments

func (r *ResourceRepository) Attachments(ctx context.Context, feisID string) ([]resources.Attachment, error) {
	list, err := all[resources.Attachment](ctx, r.queryer(), `
		SELECT `+attachmentColumns+` FROM attachments WHERE feis_id = $1 ORDER BY name, id`, feisID)
	if err != nil {
		return nil, fmt.Errorf("list attachments: %w", err)
	}
	return list, nil
}

func (r *ResourceRepository) Attachment(ctx context.Context, feisID, id string) (*resources.Attachment, error) {
	return one[resources.Attachment](ctx, r.queryer(), resources.ErrAttachmentNotFound, `
		SELECT `+attachmentColumns+` FROM attachments WHERE feis_id = $1 AND id = $2`, feisID, id)
}

func (r *ResourceRepository) CreateAttachment(ctx context.Context, a resources.Attachment) (*resources.Attachment, error) {
	created, err := one[resources.Attachment](ctx, r.queryer(), resources.ErrAttachmentNotFound, `
		INSERT INTO attachments (id, feis_id, name, url) VALUES ($1, $2, $3, $4)
		RETURNING `+attachmentColumns, a.ID, a.FeisID, a.Name, a.URL)
	if isViolation(err, codeForeignKeyViolation, "") {
		return nil, feiseanna.ErrNotFound
	}
	return created, err
}

func (r *ResourceRepository) RenameAttachment(ctx context.Context, feisID, id, name string) (*resources.Attachment, error) {
	return one[resources.Attachment](ctx, r.queryer(), resources.ErrAttachmentNotFound, `
		UPDATE attachments SET name = $3 WHERE feis_id = $1 AND id = $2
		RETURNING `+attachmentColumns, feisID, id, name)
}

func (r *ResourceRepository) DeleteAttachment(ctx context.Context, feisID, id string) error {
	tag, err := r.queryer().Exec(ctx, `DELETE FROM attachments WHERE feis_id = $1 AND id = $2`, feisID, id)
	return requireRow(tag, err, resources.ErrAttachmentNotFound)
}
