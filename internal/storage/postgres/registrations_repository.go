package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/ifeis/server/internal/domain/events"
	"github.com/ifeis/server/internal/domain/feiseanna"
	"github.com/ifeis/server/internal/domain/ids"
	"github.com/ifeis/server/internal/domain/registrations"
	"github.com/jackc/pgx/v5"
)

// RegistrationRepository implements registrations.Repository.
type RegistrationRepository struct {
	base
}

func (r *RegistrationRepository) WithTransaction(ctx context.Context, fn func(txRepo registrations.Repository) error) error {
	return r.withTx(ctx, func(tx base) error {
		return fn(&RegistrationRepository{tx})
	})
}

// All lists the person's entries in the feis's active events. Merged and
// split events keep their participant rows, so they are filtered here.
func (r *RegistrationRepository) All(ctx context.Context, feisID, personID string) ([]events.Participant, error) {
	rows, err := r.queryer().Query(ctx, `
		SELECT pa.id, pa.event_id, pa.person_id, pa."order", pa.is_checked_in, pa.collected,
		       pa.placement, pa.total, pa.computed_total, pa.placed, rg.competitor, `+eventColumns+`
		  FROM participants pa
		  JOIN events e ON e.id = pa.event_id
		  LEFT JOIN registered rg ON rg.feis_id = e.feis_id AND rg.person_id = pa.person_id
		 WHERE e.feis_id = $1 AND pa.person_id = $2 AND NOT e.inactive
		 ORDER BY e.name, e.id`, feisID, personID)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	defer rows.Close()

	out := []events.Participant{}
	for rows.Next() {
		var reg events.Participant
		var e events.Event
		dest := append(participantDest(&reg), &reg.Competitor)
		dest = append(dest, eventDest(&e)...)
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		e = e.WithStatus()
		reg.Event = &e
		out = append(out, reg)
	}
	return out, rows.Err()
}

func (r *RegistrationRepository) LockFeis(ctx context.Context, feisID string) (*registrations.FeisDates, error) {
	var f registrations.FeisDates
	err := r.queryer().QueryRow(ctx, `SELECT id, dt_reg_late FROM feiseanna WHERE id = $1 FOR UPDATE`, feisID).Scan(&f.ID, &f.RegLate)
	if err != nil {
		return nil, orNotFound(err, feiseanna.ErrNotFound)
	}
	return &f, nil
}

func (r *RegistrationRepository) OwnerOf(ctx context.Context, personID string) (string, error) {
	var owner string
	err := r.queryer().QueryRow(ctx, `SELECT COALESCE(account_id, id) FROM persons WHERE id = $1`, personID).Scan(&owner)
	if err != nil {
		return "", orNotFound(err, registrations.ErrPersonUnknown)
	}
	return owner, nil
}

func (r *RegistrationRepository) EnsureSaved(ctx context.Context, feisID, accountID string, assessLateFee bool) error {
	_, err := r.queryer().Exec(ctx, `
		INSERT INTO saved (feis_id, account_id, assess_late_fee) VALUES ($1, $2, $3)
		ON CONFLICT (feis_id, account_id) DO NOTHING`, feisID, accountID, assessLateFee)
	if err != nil {
		return fmt.Errorf("save feis: %w", err)
	}
	return nil
}

// EnsureRegistered must run with the feis locked; numbers are the highest
// in use plus one.
func (r *RegistrationRepository) EnsureRegistered(ctx context.Context, feisID, personID string) (int, error) {
	var num int
	err := r.queryer().QueryRow(ctx, `SELECT competitor FROM registered WHERE feis_id = $1 AND person_id = $2`, feisID, personID).Scan(&num)
	if err == nil {
		return num, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("load competitor number: %w", err)
	}

	err = r.queryer().QueryRow(ctx, `
		INSERT INTO registered (feis_id, person_id, competitor)
		SELECT $1, $2, COALESCE(max(competitor) + 1, $3)
		  FROM registered
		 WHERE feis_id = $1
		RETURNING competitor`, feisID, personID, registrations.FirstNumber).Scan(&num)
	if err != nil {
		return 0, fmt.Errorf("assign competitor number: %w", err)
	}
	return num, nil
}

func (r *RegistrationRepository) Participate(ctx context.Context, feisID, eventID, personID string) (*events.Participant, error) {
	var inactive bool
	err := r.queryer().QueryRow(ctx, `SELECT inactive FROM events WHERE feis_id = $1 AND id = $2`, feisID, eventID).Scan(&inactive)
	if err != nil {
		return nil, orNotFound(err, events.ErrNotFound)
	}
	if inactive {
		return nil, events.ErrInactive
	}

	_, err = r.queryer().Exec(ctx, `
		INSERT INTO participants (id, event_id, person_id)
		SELECT $3, e.id, $2
		  FROM events e
		 WHERE e.feis_id = $4 AND e.id = $1
		ON CONFLICT (event_id, person_id) DO NOTHING`,
		eventID, personID, ids.MustULID(), feisID)
	if isViolation(err, codeForeignKeyViolation, "") {
		return nil, registrations.ErrPersonUnknown
	}
	if err != nil {
		return nil, fmt.Errorf("enter event: %w", err)
	}
	return (&EventRepository{r.base}).Participant(ctx, feisID, eventID, personID)
}

func (r *RegistrationRepository) Delete(ctx context.Context, feisID, eventID, personID string) error {
	tag, err := r.queryer().Exec(ctx, `
		DELETE FROM participants pa
		 USING events e
		 WHERE e.id = pa.event_id AND e.feis_id = $1 AND pa.event_id = $2 AND pa.person_id = $3`,
		feisID, eventID, personID)
	return requireRow(tag, err, events.ErrParticipantNotFound)
}

func (r *RegistrationRepository) NumberInUse(ctx context.Context, feisID, personID string, num int) (bool, error) {
	var taken bool
	err := r.queryer().QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM registered WHERE feis_id = $1 AND competitor = $2 AND person_id <> $3)`,
		feisID, num, personID).Scan(&taken)
	if err != nil {
		return false, fmt.Errorf("check competitor number: %w", err)
	}
	return taken, nil
}

func (r *RegistrationRepository) SetNumber(ctx context.Context, feisID, personID string, num int) (*events.Competitor, error) {
	tag, err := r.queryer().Exec(ctx, `UPDATE registered SET competitor = $3 WHERE feis_id = $1 AND person_id = $2`, feisID, personID, num)
	if isViolation(err, codeUniqueViolation, "") {
		return nil, registrations.ErrNumberInUse
	}
	if err := requireRow(tag, err, registrations.ErrNotRegistered); err != nil {
		return nil, err
	}

	p, err := (&AccountRepository{r.base}).GetPerson(ctx, personID)
	if err != nil {
		return nil, err
	}
	return &events.Competitor{Person: *p, Competitor: &num}, nil
}
