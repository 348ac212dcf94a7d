package postgres

import (
	"context"
	"fmt"

	"github.com/ifeis/server/internal/domain/catalog"
	"github.com/jackc/pgx/v5"
)

// CatalogRepository implements catalog.Repository.
type CatalogRepository struct {
	base
}

func (r *CatalogRepository) ListSchools(ctx context.Context) ([]catalog.School, error) {
	rows, err := r.queryer().Query(ctx, `SELECT id, name, teacher, region, created_at FROM schools ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("list schools: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (catalog.School, error) {
		var s catalog.School
		err := row.Scan(&s.ID, &s.Name, &s.Teacher, &s.Region, &s.CreatedAt)
		return s, err
	})
}

func (r *CatalogRepository) GetSchool(ctx context.Context, id string) (*catalog.School, error) {
	var s catalog.School
	err := r.queryer().QueryRow(ctx, `SELECT id, name, teacher, region, created_at FROM schools WHERE id = $1`, id).
		Scan(&s.ID, &s.Name, &s.Teacher, &s.Region, &s.CreatedAt)
	if err != nil {
		return nil, orNotFound(err, catalog.ErrSchoolNotFound)
	}
	return &s, nil
}

func (r *CatalogRepository) CreateSchool(ctx context.Context, s catalog.School) (*catalog.School, error) {
	_, err := r.queryer().Exec(ctx, `INSERT INTO schools (id, name, teacher, region) VALUES ($1, $2, $3, $4)`,
		s.ID, s.Name, s.Teacher, s.Region)
	if err != nil {
		return nil, fmt.Errorf("create school: %w", err)
	}
	return r.GetSchool(ctx, s.ID)
}

func (r *CatalogRepository) UpdateSchool(ctx context.Context, s catalog.School) (*catalog.School, error) {
	tag, err := r.queryer().Exec(ctx, `UPDATE schools SET name = $2, teacher = $3, region = $4 WHERE id = $1`,
		s.ID, s.Name, s.Teacher, s.Region)
	if err := requireRow(tag, err, catalog.ErrSchoolNotFound); err != nil {
		return nil, err
	}
	return r.GetSchool(ctx, s.ID)
}

func (r *CatalogRepository) DeleteSchool(ctx context.Context, id string) error {
	tag, err := r.queryer().Exec(ctx, `DELETE FROM schools WHERE id = $1`, id)
	return requireRow(tag, err, catalog.ErrSchoolNotFound)
}

func (r *CatalogRepository) ListDances(ctx context.Context) ([]catalog.Dance, error) {
	rows, err := r.queryer().Query(ctx, `SELECT id, name, abbreviation, created_at FROM dances ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("list dances: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (catalog.Dance, error) {
		var d catalog.Dance
		err := row.Scan(&d.ID, &d.Name, &d.Abbreviation, &d.CreatedAt)
		return d, err
	})
}

func (r *CatalogRepository) GetDance(ctx context.Context, id string) (*catalog.Dance, error) {
	var d catalog.Dance
	err := r.queryer().QueryRow(ctx, `SELECT id, name, abbreviation, created_at FROM dances WHERE id = $1`, id).
		Scan(&d.ID, &d.Name, &d.Abbreviation, &d.CreatedAt)
	if err != nil {
		return nil, orNotFound(err, catalog.ErrDanceNotFound)
	}
	return &d, nil
}

func (r *CatalogRepository) CreateDance(ctx context.Context, d catalog.Dance) (*catalog.Dance, error) {
	_, err := r.queryer().Exec(ctx, `INSERT INTO dances (id, name, abbreviation) VALUES ($1, $2, $3)`,
		d.ID, d.Name, d.Abbreviation)
	if err != nil {
		return nil, fmt.Errorf("create dance: %w", err)
	}
	return r.GetDance(ctx, d.ID)
}

func (r *CatalogRepository) UpdateDance(ctx context.Context, d catalog.Dance) (*catalog.Dance, error) {
	tag, err := r.queryer().Exec(ctx, `UPDATE dances SET name = $2, abbreviation = $3 WHERE id = $1`,
		d.ID, d.Name, d.Abbreviation)
	if err := requireRow(tag, err, catalog.ErrDanceNotFound); err != nil {
		return nil, err
	}
	return r.GetDance(ctx, d.ID)
}

func (r *CatalogRepository) DeleteDance(ctx context.Context, id string) error {
	tag, err := r.queryer().Exec(ctx, `DELETE FROM dances WHERE id = $1`, id)
	return requireRow(tag, err, catalog.ErrDanceNotFound)
}

const adjudicatorColumns = `a.id, a.fname, a.lname, a.region, a.details, a.created_at`

func scanAdjudicator(row pgx.Row) (catalog.Adjudicator, error) {
	var a catalog.Adjudicator
	err := row.Scan(&a.ID, &a.FName, &a.LName, &a.Region, &a.Details, &a.CreatedAt)
	return a, err
}

func collectAdjudicators(rows pgx.Rows) ([]catalog.Adjudicator, error) {
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (catalog.Adjudicator, error) {
		return scanAdjudicator(row)
	})
}

func (r *CatalogRepository) ListAdjudicators(ctx context.Context) ([]catalog.Adjudicator, error) {
	rows, err := r.queryer().Query(ctx, `SELECT `+adjudicatorColumns+` FROM adjudicators a ORDER BY a.lname, a.fname, a.id`)
	if err != nil {
		return nil, fmt.Errorf("list adjudicators: %w", err)
	}
	return collectAdjudicators(rows)
}

func (r *CatalogRepository) GetAdjudicator(ctx context.Context, id string) (*catalog.Adjudicator, error) {
	a, err := scanAdjudicator(r.queryer().QueryRow(ctx, `SELECT `+adjudicatorColumns+` FROM adjudicators a WHERE a.id = $1`, id))
	if err != nil {
		return nil, orNotFound(err, catalog.ErrAdjudicatorNotFound)
	}
	return &a, nil
}

func (r *CatalogRepository) CreateAdjudicator(ctx context.Context, a catalog.Adjudicator) (*catalog.Adjudicator, error) {
	_, err := r.queryer().Exec(ctx, `INSERT INTO adjudicators (id, fname, lname, region, details) VALUES ($1, $2, $3, $4, $5)`,
		a.ID, a.FName, a.LName, a.Region, a.Details)
	if err != nil {
		return nil, fmt.Errorf("create adjudicator: %w", err)
	}
	return r.GetAdjudicator(ctx, a.ID)
}

func (r *CatalogRepository) UpdateAdjudicator(ctx context.Context, a catalog.Adjudicator) (*catalog.Adjudicator, error) {
	tag, err := r.queryer().Exec(ctx, `UPDATE adjudicators SET fname = $2, lname = $3, region = $4, details = $5 WHERE id = $1`,
		a.ID, a.FName, a.LName, a.Region, a.Details)
	if err := requireRow(tag, err, catalog.ErrAdjudicatorNotFound); err != nil {
		return nil, err
	}
	return r.GetAdjudicator(ctx, a.ID)
}

func (r *CatalogRepository) DeleteAdjudicator(ctx context.Context, id string) error {
	tag, err := r.queryer().Exec(ctx, `DELETE FROM adjudicators WHERE id = $1`, id)
	return requireRow(tag, err, catalog.ErrAdjudicatorNotFound)
}

func (r *CatalogRepository) FeisAdjudicators(ctx context.Context, feisID string) ([]catalog.Adjudicator, error) {
	rows, err := r.queryer().Query(ctx, `
		SELECT `+adjudicatorColumns+`
		  FROM feis_adjudicators fa
		  JOIN adjudicators a ON a.id = fa.adjudicator_id
		 WHERE fa.feis_id = $1
		 ORDER BY a.lname, a.fname, a.id`, feisID)
	if err != nil {
		return nil, fmt.Errorf("list feis adjudicators: %w", err)
	}
	return collectAdjudicators(rows)
}

func (r *CatalogRepository) AttachAdjudicator(ctx context.Context, feisID, adjudicatorID string) error {
	_, err := r.queryer().Exec(ctx, `
		INSERT INTO feis_adjudicators (feis_id, adjudicator_id) VALUES ($1, $2)
		ON CONFLICT DO NOTHING`, feisID, adjudicatorID)
	if err != nil {
		return fmt.Errorf("attach adjudicator: %w", err)
	}
	return nil
}

func (r *CatalogRepository) DetachAdjudicator(ctx context.Context, feisID, adjudicatorID string) error {
	tag, err := r.queryer().Exec(ctx, `DELETE FROM feis_adjudicators WHERE feis_id = $1 AND adjudicator_id = $2`, feisID, adjudicatorID)
	return requireRow(tag, err, catalog.ErrAdjudicatorNotFound)
}
