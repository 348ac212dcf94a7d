package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ifeis/server/internal/domain/accounts"
	"github.com/ifeis/server/internal/domain/events"
	"github.com/ifeis/server/internal/domain/feiseanna"
	"github.com/ifeis/server/internal/domain/grants"
	"github.com/jackc/pgx/v5"
)

// FeisRepository implements feiseanna.Repository.
type FeisRepository struct {
	base
}

func (r *FeisRepository) WithTransaction(ctx context.Context, fn func(txRepo feiseanna.Repository) error) error {
	return r.withTx(ctx, func(tx base) error {
		return fn(&FeisRepository{tx})
	})
}

// Invitations

const invitationColumns = `i.id, i.account_id, i.fee, i.deposit, i.used, i.invalid, i.reminded_at, i.created_at`

func invitationDest(inv *feiseanna.Invitation) []any {
	return []any{&inv.ID, &inv.AccountID, &inv.Fee, &inv.Deposit, &inv.Used, &inv.Invalid, &inv.RemindedAt, &inv.CreatedAt}
}

func scanInvitation(row pgx.Row) (*feiseanna.Invitation, error) {
	var inv feiseanna.Invitation
	if err := row.Scan(invitationDest(&inv)...); err != nil {
		return nil, err
	}
	return &inv, nil
}

// collectInvitations scans invitationColumns followed by personColumns.
func collectInvitations(rows pgx.Rows) ([]feiseanna.Invitation, error) {
	defer rows.Close()
	out := []feiseanna.Invitation{}
	for rows.Next() {
		var inv feiseanna.Invitation
		var p accounts.Person
		pdest, finish := personDest(&p)
		if err := rows.Scan(append(invitationDest(&inv), pdest...)...); err != nil {
			return nil, err
		}
		finish()
		inv.Person = &p
		out = append(out, inv)
	}
	return out, rows.Err()
}

func (r *FeisRepository) CreateInvitation(ctx context.Context, inv feiseanna.Invitation) (*feiseanna.Invitation, error) {
	created, err := scanInvitation(r.queryer().QueryRow(ctx, `
		INSERT INTO invitations AS i (id, account_id, fee, deposit) VALUES ($1, $2, $3, $4)
		RETURNING `+invitationColumns, inv.ID, inv.AccountID, inv.Fee, inv.Deposit))
	if isViolation(err, codeForeignKeyViolation, "") {
		return nil, accounts.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("create invitation: %w", err)
	}
	return created, nil
}

func (r *FeisRepository) Invitations(ctx context.Context) ([]feiseanna.Invitation, error) {
	rows, err := r.queryer().Query(ctx, `
		SELECT `+invitationColumns+`, `+personColumns+`
		  FROM invitations i
		  JOIN `+personFrom+` ON p.id = i.account_id
		 ORDER BY i.created_at DESC, i.id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list invitations: %w", err)
	}
	return collectInvitations(rows)
}

func (r *FeisRepository) Invitation(ctx context.Context, id string) (*feiseanna.Invitation, error) {
	inv, err := scanInvitation(r.queryer().QueryRow(ctx, `SELECT `+invitationColumns+` FROM invitations i WHERE i.id = $1`, id))
	if err != nil {
		return nil, orNotFound(err, feiseanna.ErrInvitationNotFound)
	}
	return inv, nil
}

func (r *FeisRepository) LockInvitation(ctx context.Context, id string) (*feiseanna.Invitation, error) {
	inv, err := scanInvitation(r.queryer().QueryRow(ctx, `SELECT `+invitationColumns+` FROM invitations i WHERE i.id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, orNotFound(err, feiseanna.ErrInvitationNotFound)
	}
	return inv, nil
}

func (r *FeisRepository) InvalidateInvitation(ctx context.Context, id string) (bool, error) {
	var used bool
	err := r.queryer().QueryRow(ctx, `
		UPDATE invitations SET invalid = NOT used
		 WHERE id = $1
		RETURNING used`, id).Scan(&used)
	if err != nil {
		return false, orNotFound(err, feiseanna.ErrInvitationNotFound)
	}
	return !used, nil
}

func (r *FeisRepository) MarkInvitationUsed(ctx context.Context, id string) error {
	tag, err := r.queryer().Exec(ctx, `UPDATE invitations SET used = true WHERE id = $1`, id)
	return requireRow(tag, err, feiseanna.ErrInvitationNotFound)
}

func (r *FeisRepository) StaleInvitations(ctx context.Context, cutoff time.Time) ([]feiseanna.Invitation, error) {
	rows, err := r.queryer().Query(ctx, `
		SELECT `+invitationColumns+`, `+personColumns+`
		  FROM invitations i
		  JOIN `+personFrom+` ON p.id = i.account_id
		 WHERE NOT i.used AND NOT i.invalid AND i.reminded_at IS NULL AND i.created_at < $1
		 ORDER BY i.created_at, i.id`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("list stale invitations: %w", err)
	}
	return collectInvitations(rows)
}

func (r *FeisRepository) MarkReminded(ctx context.Context, id string, at time.Time) error {
	tag, err := r.queryer().Exec(ctx, `UPDATE invitations SET reminded_at = $2 WHERE id = $1`, id, at)
	return requireRow(tag, err, feiseanna.ErrInvitationNotFound)
}

// Templates

func scanTemplate(row pgx.Row) (*feiseanna.Template, error) {
	var t feiseanna.Template
	var raw []byte
	if err := row.Scan(&t.ID, &t.Name, &raw); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, &t.Events); err != nil {
		return nil, fmt.Errorf("decode template %s: %w", t.ID, err)
	}
	return &t, nil
}

func (r *FeisRepository) Templates(ctx context.Context) ([]feiseanna.Template, error) {
	rows, err := r.queryer().Query(ctx, `SELECT id, name, events FROM templates ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (feiseanna.Template, error) {
		t, err := scanTemplate(row)
		if err != nil {
			return feiseanna.Template{}, err
		}
		return *t, nil
	})
}

func (r *FeisRepository) Template(ctx context.Context, id string) (*feiseanna.Template, error) {
	t, err := scanTemplate(r.queryer().QueryRow(ctx, `SELECT id, name, events FROM templates WHERE id = $1`, id))
	if err != nil {
		return nil, orNotFound(err, feiseanna.ErrTemplateNotFound)
	}
	return t, nil
}

func (r *FeisRepository) SaveTemplate(ctx context.Context, t feiseanna.Template) (*feiseanna.Template, error) {
	list := t.Events
	if list == nil {
		list = []events.Input{}
	}
	raw, err := json.Marshal(list)
	if err != nil {
		return nil, fmt.Errorf("encode template events: %w", err)
	}
	saved, err := scanTemplate(r.queryer().QueryRow(ctx, `
		INSERT INTO templates (id, name, events) VALUES ($1, $2, $3)
		ON CONFLICT (name) DO UPDATE SET events = EXCLUDED.events
		RETURNING id, name, events`, t.ID, t.Name, raw))
	if err != nil {
		return nil, fmt.Errorf("save template: %w", err)
	}
	return saved, nil
}

// Feiseanna

const feisColumns = `
	f.id, f.name, f.slug, f.tz, f.dt_start, f.dt_end, f.dt_reg_start, f.dt_reg_end, f.dt_reg_late,
	f.is_public, f.is_syllabus_public, f.is_schedule_public, f.is_finalized, f.url, f.description,
	f.event_fee, f.acct_fee, f.acct_max, f.late_fee, f.loc_name, f.loc_addr, COALESCE(f.invite_id, ''),
	(SELECT count(*) FROM registered rc WHERE rc.feis_id = f.id),
	EXISTS (SELECT 1 FROM stripe_accounts sa WHERE sa.feis_id = f.id),
	f.created_at`

func feisDest(f *feiseanna.Feis) []any {
	return []any{
		&f.ID, &f.Name, &f.Slug, &f.TZ, &f.DtStart, &f.DtEnd, &f.DtRegStart, &f.DtRegEnd, &f.DtRegLate,
		&f.IsPublic, &f.IsSyllabusPublic, &f.IsSchedulePublic, &f.IsFinalized, &f.URL, &f.Description,
		&f.EventFee, &f.AcctFee, &f.AcctMax, &f.LateFee, &f.LocName, &f.LocAddr, &f.InviteID,
		&f.NumParticipants, &f.IsPayee,
		&f.CreatedAt,
	}
}

func scanFeis(row pgx.Row) (*feiseanna.Feis, error) {
	var f feiseanna.Feis
	if err := row.Scan(feisDest(&f)...); err != nil {
		return nil, err
	}
	return &f, nil
}

func collectFeiseanna(rows pgx.Rows) ([]feiseanna.Feis, error) {
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (feiseanna.Feis, error) {
		f, err := scanFeis(row)
		if err != nil {
			return feiseanna.Feis{}, err
		}
		return *f, nil
	})
}

func (r *FeisRepository) Get(ctx context.Context, id string) (*feiseanna.Feis, error) {
	f, err := scanFeis(r.queryer().QueryRow(ctx, `SELECT `+feisColumns+` FROM feiseanna f WHERE f.id = $1`, id))
	if err != nil {
		return nil, orNotFound(err, feiseanna.ErrNotFound)
	}
	return f, nil
}

func (r *FeisRepository) Lock(ctx context.Context, id string) (*feiseanna.Feis, error) {
	f, err := scanFeis(r.queryer().QueryRow(ctx, `SELECT `+feisColumns+` FROM feiseanna f WHERE f.id = $1 FOR UPDATE OF f`, id))
	if err != nil {
		return nil, orNotFound(err, feiseanna.ErrNotFound)
	}
	return f, nil
}

func (r *FeisRepository) Public(ctx context.Context, includePast bool, now time.Time) ([]feiseanna.Feis, error) {
	rows, err := r.queryer().Query(ctx, `
		SELECT `+feisColumns+`
		  FROM feiseanna f
		 WHERE f.is_public
		   AND ($1 OR f.dt_end IS NULL OR f.dt_end >= $2)
		 ORDER BY f.dt_start DESC NULLS LAST, f.id`, includePast, now)
	if err != nil {
		return nil, fmt.Errorf("list public feiseanna: %w", err)
	}
	return collectFeiseanna(rows)
}

func (r *FeisRepository) GrantedTo(ctx context.Context, accountID string) ([]feiseanna.Summary, error) {
	rows, err := r.queryer().Query(ctx, `
		SELECT `+feisColumns+`, array_agg(g.role ORDER BY g.role)
		  FROM feiseanna f
		  JOIN grants g ON g.feis_id = f.id
		 WHERE g.account_id = $1
		 GROUP BY f.id
		 ORDER BY f.dt_start DESC NULLS LAST, f.id`, accountID)
	if err != nil {
		return nil, fmt.Errorf("list granted feiseanna: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (feiseanna.Summary, error) {
		var s feiseanna.Summary
		var roles []string
		if err := row.Scan(append(feisDest(&s.Feis), &roles)...); err != nil {
			return s, err
		}
		s.Grants = make([]grants.Role, 0, len(roles))
		for _, role := range roles {
			s.Grants = append(s.Grants, grants.Role(role))
		}
		return s, nil
	})
}

// SavedBy lists starred feiseanna. Registered is set when anyone on the
// account holds a competitor number there.
func (r *FeisRepository) SavedBy(ctx context.Context, accountID string) ([]feiseanna.Summary, error) {
	rows, err := r.queryer().Query(ctx, `
		SELECT `+feisColumns+`,
		       EXISTS (
				SELECT 1
				  FROM registered rg
				  JOIN persons p ON p.id = rg.person_id
				 WHERE rg.feis_id = f.id AND COALESCE(p.account_id, p.id) = $1
		       )
		  FROM feiseanna f
		  JOIN saved sv ON sv.feis_id = f.id
		 WHERE sv.account_id = $1
		 ORDER BY f.dt_start DESC NULLS LAST, f.id`, accountID)
	if err != nil {
		return nil, fmt.Errorf("list saved feiseanna: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (feiseanna.Summary, error) {
		s := feiseanna.Summary{Saved: true}
		err := row.Scan(append(feisDest(&s.Feis), &s.Registered)...)
		return s, err
	})
}

func (r *FeisRepository) Create(ctx context.Context, f feiseanna.Feis) error {
	_, err := r.queryer().Exec(ctx, `
		INSERT INTO feiseanna (id, name, slug, tz, is_public, invite_id)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		f.ID, f.Name, f.Slug, f.TZ, f.IsPublic, nullString(f.InviteID))
	if err != nil {
		return fmt.Errorf("create feis: %w", err)
	}
	return nil
}

func (r *FeisRepository) GrantChair(ctx context.Context, grantID, feisID, accountID string) error {
	_, err := r.queryer().Exec(ctx, `
		INSERT INTO grants (id, feis_id, account_id, role) VALUES ($1, $2, $3, $4)
		ON CONFLICT (feis_id, account_id, role) DO NOTHING`,
		grantID, feisID, accountID, grants.RoleChair)
	if err != nil {
		return fmt.Errorf("grant chair: %w", err)
	}
	return nil
}

func (r *FeisRepository) InsertEvents(ctx context.Context, list []events.Event) error {
	if len(list) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, e := range list {
		batch.Queue(`
			INSERT INTO events (id, feis_id, name, code, level, age, type, age_min, age_max,
			                    fee, exclude_from_max, recall, places, rounds, details)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
			e.ID, e.FeisID, e.Name, e.Code, e.Level, e.Age, e.Type, e.AgeMin, e.AgeMax,
			e.Fee, e.ExcludeFromMax, e.Recall, e.Places, e.Rounds, e.Details)
	}
	if err := r.queryer().SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert template events: %w", err)
	}
	return nil
}

func (r *FeisRepository) Update(ctx context.Context, f feiseanna.Feis) (*feiseanna.Feis, error) {
	tag, err := r.queryer().Exec(ctx, `
		UPDATE feiseanna
		   SET name = $2, slug = $3, tz = $4, dt_start = $5, dt_end = $6, dt_reg_start = $7,
		       dt_reg_end = $8, dt_reg_late = $9, is_public = $10, is_syllabus_public = $11,
		       is_schedule_public = $12, url = $13, description = $14, event_fee = $15,
		       acct_fee = $16, acct_max = $17, late_fee = $18, loc_name = $19, loc_addr = $20
		 WHERE id = $1`,
		f.ID, f.Name, f.Slug, f.TZ, f.DtStart, f.DtEnd, f.DtRegStart,
		f.DtRegEnd, f.DtRegLate, f.IsPublic, f.IsSyllabusPublic,
		f.IsSchedulePublic, f.URL, f.Description, f.EventFee,
		f.AcctFee, f.AcctMax, f.LateFee, f.LocName, f.LocAddr)
	if err := requireRow(tag, err, feiseanna.ErrNotFound); err != nil {
		return nil, err
	}
	return r.Get(ctx, f.ID)
}

func (r *FeisRepository) SetFinalized(ctx context.Context, id string) (*feiseanna.Feis, error) {
	tag, err := r.queryer().Exec(ctx, `UPDATE feiseanna SET is_finalized = true WHERE id = $1`, id)
	if err := requireRow(tag, err, feiseanna.ErrNotFound); err != nil {
		return nil, err
	}
	return r.Get(ctx, id)
}

func (r *FeisRepository) SetPublic(ctx context.Context, id string, public bool) (*feiseanna.Feis, error) {
	tag, err := r.queryer().Exec(ctx, `UPDATE feiseanna SET is_public = $2 WHERE id = $1`, id, public)
	if err := requireRow(tag, err, feiseanna.ErrNotFound); err != nil {
		return nil, err
	}
	return r.Get(ctx, id)
}

// Participants and results

const registeredFrom = `registered rg JOIN ` + personFrom + ` ON p.id = rg.person_id`

func scanRegistered(rows pgx.Rows) ([]events.Competitor, error) {
	defer rows.Close()
	out := []events.Competitor{}
	for rows.Next() {
		var c events.Competitor
		dest, finish := personDest(&c.Person)
		if err := rows.Scan(append(dest, &c.Competitor)...); err != nil {
			return nil, err
		}
		finish()
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *FeisRepository) Participants(ctx context.Context, feisID, filter string, offset, limit int) ([]events.Competitor, error) {
	rows, err := r.queryer().Query(ctx, `
		SELECT `+personColumns+`, rg.competitor
		  FROM `+registeredFrom+`
		 WHERE rg.feis_id = $1
		   AND ($2::text = '' OR p.fname ILIKE '%' || $2 || '%'
		                      OR p.lname ILIKE '%' || $2 || '%'
		                      OR rg.competitor::text = $2)
		 ORDER BY rg.competitor, p.id
		OFFSET $3
		 LIMIT $4`, feisID, filter, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("list feis participants: %w", err)
	}
	return scanRegistered(rows)
}

func (r *FeisRepository) Participant(ctx context.Context, feisID string, num int) (*events.Competitor, error) {
	rows, err := r.queryer().Query(ctx, `
		SELECT `+personColumns+`, rg.competitor
		  FROM `+registeredFrom+`
		 WHERE rg.feis_id = $1 AND rg.competitor = $2`, feisID, num)
	if err != nil {
		return nil, fmt.Errorf("load feis participant: %w", err)
	}
	list, err := scanRegistered(rows)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, feiseanna.ErrParticipantMissing
	}
	return &list[0], nil
}

func (r *FeisRepository) AccountsWithoutPayment(ctx context.Context, feisID string) ([]accounts.Person, error) {
	rows, err := r.queryer().Query(ctx, `
		SELECT `+personColumns+`
		  FROM saved sv
		  JOIN `+personFrom+` ON p.id = sv.account_id
		 WHERE sv.feis_id = $1
		   AND EXISTS (
				SELECT 1
				  FROM registered rg
				  JOIN persons d ON d.id = rg.person_id
				 WHERE rg.feis_id = sv.feis_id AND COALESCE(d.account_id, d.id) = sv.account_id
		   )
		   AND NOT EXISTS (
				SELECT 1 FROM payments py
				 WHERE py.feis_id = sv.feis_id AND py.account_id = sv.account_id AND py.paid
		   )
		 ORDER BY p.lname, p.fname, p.id`, feisID)
	if err != nil {
		return nil, fmt.Errorf("list accounts without payment: %w", err)
	}
	return scanPeople(rows)
}

func (r *FeisRepository) CompetitorsBySchool(ctx context.Context, feisID string) ([]feiseanna.SchoolCount, error) {
	rows, err := r.queryer().Query(ctx, `
		SELECT COALESCE(s.id, ''), COALESCE(s.name, ''),
		       count(*),
		       count(*) FILTER (WHERE pay.paid),
		       count(*) FILTER (WHERE NOT pay.paid)
		  FROM registered rg
		  JOIN persons p ON p.id = rg.person_id
		  LEFT JOIN schools s ON s.id = p.school_id
		  CROSS JOIN LATERAL (
			SELECT EXISTS (
				SELECT 1 FROM payments py
				 WHERE py.feis_id = rg.feis_id
				   AND py.account_id = COALESCE(p.account_id, p.id)
				   AND py.paid
			) AS paid
		  ) pay
		 WHERE rg.feis_id = $1
		 GROUP BY s.id, s.name
		 ORDER BY count(*) DESC, s.name NULLS LAST`, feisID)
	if err != nil {
		return nil, fmt.Errorf("count competitors by school: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (feiseanna.SchoolCount, error) {
		var c feiseanna.SchoolCount
		err := row.Scan(&c.ID, &c.Name, &c.Participants, &c.Paid, &c.Unpaid)
		return c, err
	})
}

func (r *FeisRepository) ScoresForPerson(ctx context.Context, feisID, personID string) ([]feiseanna.PersonResult, error) {
	rows, err := r.queryer().Query(ctx, `
		SELECT `+eventColumns+`,
		       pa.id, pa.event_id, pa.person_id, pa."order", pa.is_checked_in, pa.collected,
		       pa.placement, pa.total, pa.computed_total, pa.placed
		  FROM participants pa
		  JOIN events e ON e.id = pa.event_id
		 WHERE e.feis_id = $1 AND pa.person_id = $2 AND e.is_in_results
		 ORDER BY e.name, e.id`, feisID, personID)
	if err != nil {
		return nil, fmt.Errorf("list person scores: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (feiseanna.PersonResult, error) {
		var res feiseanna.PersonResult
		if err := row.Scan(append(eventDest(&res.Event), participantDest(&res.Score)...)...); err != nil {
			return res, err
		}
		res.Event = res.Event.WithStatus()
		return res, nil
	})
}

// Starring

func (r *FeisRepository) Star(ctx context.Context, feisID, accountID string) error {
	_, err := r.queryer().Exec(ctx, `
		INSERT INTO saved (feis_id, account_id) VALUES ($1, $2)
		ON CONFLICT (feis_id, account_id) DO NOTHING`, feisID, accountID)
	if isViolation(err, codeForeignKeyViolation, "saved_feis_id_fkey") {
		return feiseanna.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("star feis: %w", err)
	}
	return nil
}

func (r *FeisRepository) HasRegistrations(ctx context.Context, feisID, accountID string) (bool, error) {
	var has bool
	err := r.queryer().QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1
			  FROM participants pa
			  JOIN events e ON e.id = pa.event_id
			  JOIN persons p ON p.id = pa.person_id
			 WHERE e.feis_id = $1 AND COALESCE(p.account_id, p.id) = $2
		)`, feisID, accountID).Scan(&has)
	if err != nil {
		return false, fmt.Errorf("check registrations: %w", err)
	}
	return has, nil
}

func (r *FeisRepository) Unstar(ctx context.Context, feisID, accountID string) error {
	_, err := r.queryer().Exec(ctx, `DELETE FROM saved WHERE feis_id = $1 AND account_id = $2`, feisID, accountID)
	if err != nil {
		return fmt.Errorf("unstar feis: %w", err)
	}
	return nil
}
