package postgres

import (
	"context"
	"fmt"

	"github.com/ifeis/server/internal/domain/accounts"
	"github.com/ifeis/server/internal/domain/catalog"
	"github.com/jackc/pgx/v5"
)

// AccountRepository implements accounts.Repository.
type AccountRepository struct {
	base
}

// personColumns selects a person with their school from
// "persons p LEFT JOIN schools s".
const personColumns = `
	p.id, COALESCE(p.account_id, ''), p.is_account, p.email, p.fname, p.lname,
	p.gender, p.dob, p.phone, p.address, p.city, p.state, p.zip, p.country,
	p.is_god, p.welcomed, p.created_at,
	s.id, COALESCE(s.name, ''), COALESCE(s.teacher, ''), COALESCE(s.region, '')`

const personFrom = `persons p LEFT JOIN schools s ON s.id = p.school_id`

// personDest returns the scan targets for personColumns and a function that
// finishes p once the row has been scanned.
func personDest(p *accounts.Person) ([]any, func()) {
	var email, schoolID *string
	var school catalog.School
	dest := []any{
		&p.ID, &p.AccountID, &p.IsAccount, &email, &p.FName, &p.LName,
		&p.Gender, &p.DOB, &p.Phone, &p.Address, &p.City, &p.State, &p.Zip, &p.Country,
		&p.IsGod, &p.Welcomed, &p.CreatedAt,
		&schoolID, &school.Name, &school.Teacher, &school.Region,
	}
	return dest, func() {
		p.Email = derefString(email)
		if schoolID != nil {
			school.ID = *schoolID
			p.SchoolID = *schoolID
			p.School = &school
		}
	}
}

func scanPerson(row pgx.Row) (*accounts.Person, error) {
	var p accounts.Person
	dest, finish := personDest(&p)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	finish()
	return &p, nil
}

func scanPeople(rows pgx.Rows) ([]accounts.Person, error) {
	defer rows.Close()
	out := []accounts.Person{}
	for rows.Next() {
		p, err := scanPerson(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (r *AccountRepository) Get(ctx context.Context, id string) (*accounts.Person, error) {
	row := r.queryer().QueryRow(ctx, `SELECT `+personColumns+` FROM `+personFrom+` WHERE p.id = $1 AND p.is_account`, id)
	p, err := scanPerson(row)
	if err != nil {
		return nil, orNotFound(err, accounts.ErrNotFound)
	}
	return p, nil
}

func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*accounts.Person, error) {
	row := r.queryer().QueryRow(ctx, `SELECT `+personColumns+` FROM `+personFrom+` WHERE lower(p.email) = lower($1) AND p.is_account`, email)
	p, err := scanPerson(row)
	if err != nil {
		return nil, orNotFound(err, accounts.ErrNotFound)
	}
	return p, nil
}

func (r *AccountRepository) GetByIdentity(ctx context.Context, provider, subject string) (*accounts.Person, error) {
	row := r.queryer().QueryRow(ctx, `
		SELECT `+personColumns+`
		  FROM identities i
		  JOIN `+personFrom+` ON p.id = i.account_id
		 WHERE i.provider = $1 AND i.subject = $2`, provider, subject)
	p, err := scanPerson(row)
	if err != nil {
		return nil, orNotFound(err, accounts.ErrNotFound)
	}
	return p, nil
}

func (r *AccountRepository) GetPerson(ctx context.Context, id string) (*accounts.Person, error) {
	row := r.queryer().QueryRow(ctx, `SELECT `+personColumns+` FROM `+personFrom+` WHERE p.id = $1`, id)
	p, err := scanPerson(row)
	if err != nil {
		return nil, orNotFound(err, accounts.ErrPersonNotFound)
	}
	return p, nil
}

// UpsertByEmail relies on the partial unique index on lower(email); the
// no-op update makes RETURNING yield the existing row.
func (r *AccountRepository) UpsertByEmail(ctx context.Context, p accounts.Person) (*accounts.Person, bool, error) {
	var id string
	var created bool
	err := r.queryer().QueryRow(ctx, `
		INSERT INTO persons (id, is_account, email, fname, lname)
		VALUES ($1, true, $2, $3, $4)
		ON CONFLICT (lower(email)) WHERE is_account
		DO UPDATE SET email = persons.email
		RETURNING id, (xmax = 0)`,
		p.ID, p.Email, p.FName, p.LName,
	).Scan(&id, &created)
	if err != nil {
		return nil, false, fmt.Errorf("upsert account: %w", err)
	}
	acct, err := r.Get(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return acct, created, nil
}

func (r *AccountRepository) LinkIdentity(ctx context.Context, accountID, provider, subject string) error {
	_, err := r.queryer().Exec(ctx, `
		INSERT INTO identities (provider, subject, account_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (provider, subject) DO UPDATE SET account_id = EXCLUDED.account_id`,
		provider, subject, accountID)
	if err != nil {
		return fmt.Errorf("link identity: %w", err)
	}
	return nil
}

func (r *AccountRepository) FillName(ctx context.Context, accountID, fname, lname string) error {
	_, err := r.queryer().Exec(ctx, `
		UPDATE persons
		   SET fname = CASE WHEN fname = '' THEN $2 ELSE fname END,
		       lname = CASE WHEN lname = '' THEN $3 ELSE lname END
		 WHERE id = $1`, accountID, fname, lname)
	if err != nil {
		return fmt.Errorf("fill account name: %w", err)
	}
	return nil
}

func (r *AccountRepository) MarkWelcomed(ctx context.Context, accountID string) error {
	tag, err := r.queryer().Exec(ctx, `UPDATE persons SET welcomed = true WHERE id = $1`, accountID)
	return requireRow(tag, err, accounts.ErrNotFound)
}

func (r *AccountRepository) Update(ctx context.Context, id string, u accounts.AccountUpdate) (*accounts.Person, error) {
	tag, err := r.queryer().Exec(ctx, `
		UPDATE persons
		   SET fname = $2, lname = $3, phone = $4, address = $5,
		       city = $6, state = $7, zip = $8, country = $9
		 WHERE id = $1 AND is_account`,
		id, u.FName, u.LName, u.Phone, u.Address, u.City, u.State, u.Zip, u.Country)
	if err := requireRow(tag, err, accounts.ErrNotFound); err != nil {
		return nil, err
	}
	return r.Get(ctx, id)
}

func (r *AccountRepository) Dependents(ctx context.Context, accountID string) ([]accounts.Person, error) {
	rows, err := r.queryer().Query(ctx, `
		SELECT `+personColumns+` FROM `+personFrom+`
		 WHERE p.account_id = $1
		 ORDER BY p.fname, p.lname, p.id`, accountID)
	if err != nil {
		return nil, fmt.Errorf("list dependents: %w", err)
	}
	return scanPeople(rows)
}

func (r *AccountRepository) CreateDependent(ctx context.Context, p accounts.Person) (*accounts.Person, error) {
	_, err := r.queryer().Exec(ctx, `
		INSERT INTO persons (id, account_id, is_account, fname, lname, gender, dob, school_id)
		VALUES ($1, $2, false, $3, $4, $5, $6, $7)`,
		p.ID, p.AccountID, p.FName, p.LName, p.Gender, p.DOB, nullString(p.SchoolID))
	if err != nil {
		if isViolation(err, codeForeignKeyViolation, "") {
			return nil, catalog.ErrSchoolNotFound
		}
		return nil, fmt.Errorf("create dependent: %w", err)
	}
	return r.GetPerson(ctx, p.ID)
}

// UpdateDependent only touches people belonging to p.AccountID.
func (r *AccountRepository) UpdateDependent(ctx context.Context, p accounts.Person) (*accounts.Person, error) {
	tag, err := r.queryer().Exec(ctx, `
		UPDATE persons
		   SET fname = $3, lname = $4, gender = $5, dob = $6, school_id = $7
		 WHERE id = $1 AND account_id = $2`,
		p.ID, p.AccountID, p.FName, p.LName, p.Gender, p.DOB, nullString(p.SchoolID))
	if err != nil && isViolation(err, codeForeignKeyViolation, "") {
		return nil, catalog.ErrSchoolNotFound
	}
	if err := requireRow(tag, err, accounts.ErrPersonNotFound); err != nil {
		return nil, err
	}
	return r.GetPerson(ctx, p.ID)
}

// SaveStripeAccount replaces any payee already connected to the feis.
func (r *AccountRepository) SaveStripeAccount(ctx context.Context, s accounts.StripeAccount) error {
	_, err := r.queryer().Exec(ctx, `
		INSERT INTO stripe_accounts (id, feis_id, account_id, access_token, stripe_user, livemode)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (feis_id) DO UPDATE
		   SET account_id = EXCLUDED.account_id,
		       access_token = EXCLUDED.access_token,
		       stripe_user = EXCLUDED.stripe_user,
		       livemode = EXCLUDED.livemode`,
		s.ID, s.FeisID, s.AccountID, s.AccessToken, s.StripeUser, s.Livemode)
	if err != nil {
		return fmt.Errorf("save stripe account: %w", err)
	}
	return nil
}
