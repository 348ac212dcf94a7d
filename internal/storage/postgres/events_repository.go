package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/ifeis/server/internal/domain/events"
	"github.com/ifeis/server/internal/domain/ids"
	"github.com/jackc/pgx/v5"
)

// EventRepository implements events.Repository.
type EventRepository struct {
	base
}

func (r *EventRepository) WithTransaction(ctx context.Context, fn func(txRepo events.Repository) error) error {
	return r.withTx(ctx, func(tx base) error {
		return fn(&EventRepository{tx})
	})
}

const eventColumns = `
	e.id, e.feis_id, e.name, e.code, e.level, e.age, e.type, e.age_min, e.age_max,
	e.fee, e.exclude_from_max, e.recall, e.places, e.rounds, e.details,
	e.is_ci_opened, e.is_ci_closed, e.is_in_tabs, e.is_in_qa, e.is_in_results,
	e.is_announced, e.prntd_recall, e.prntd_places, e.inactive, e.created_at,
	(SELECT count(*) FROM participants pc WHERE pc.event_id = e.id)`

func eventDest(e *events.Event) []any {
	return []any{
		&e.ID, &e.FeisID, &e.Name, &e.Code, &e.Level, &e.Age, &e.Type, &e.AgeMin, &e.AgeMax,
		&e.Fee, &e.ExcludeFromMax, &e.Recall, &e.Places, &e.Rounds, &e.Details,
		&e.CIOpened, &e.CIClosed, &e.InTabs, &e.InQA, &e.InResults,
		&e.Announced, &e.PrintedRecall, &e.PrintedPlaces, &e.Inactive, &e.CreatedAt,
		&e.Participants,
	}
}

func scanEvent(row pgx.Row) (*events.Event, error) {
	var e events.Event
	if err := row.Scan(eventDest(&e)...); err != nil {
		return nil, err
	}
	e = e.WithStatus()
	return &e, nil
}

// statsJoin counts an event's participants by gender and by whether their
// account has paid anything at the feis.
const statsJoin = `
	LEFT JOIN LATERAL (
		SELECT count(*) FILTER (WHERE pe.gender = 'F') AS females,
		       count(*) FILTER (WHERE pe.gender = 'M') AS males,
		       count(*) FILTER (WHERE pay.paid) AS paid,
		       count(*) FILTER (WHERE NOT pay.paid) AS unpaid
		  FROM participants pa
		  JOIN persons pe ON pe.id = pa.person_id
		  CROSS JOIN LATERAL (
			SELECT EXISTS (
				SELECT 1 FROM payments py
				 WHERE py.feis_id = e.feis_id
				   AND py.account_id = COALESCE(pe.account_id, pe.id)
				   AND py.paid
			) AS paid
		  ) pay
		 WHERE pa.event_id = e.id
	) st ON true`

func (r *EventRepository) Get(ctx context.Context, feisID, id string) (*events.Event, error) {
	e, err := scanEvent(r.queryer().QueryRow(ctx, `SELECT `+eventColumns+` FROM events e WHERE e.feis_id = $1 AND e.id = $2`, feisID, id))
	if err != nil {
		return nil, orNotFound(err, events.ErrNotFound)
	}
	return e, nil
}

func (r *EventRepository) Create(ctx context.Context, e events.Event) (*events.Event, error) {
	_, err := r.queryer().Exec(ctx, `
		INSERT INTO events (id, feis_id, name, code, level, age, type, age_min, age_max,
		                    fee, exclude_from_max, recall, places, rounds, details)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		e.ID, e.FeisID, e.Name, e.Code, e.Level, e.Age, e.Type, e.AgeMin, e.AgeMax,
		e.Fee, e.ExcludeFromMax, e.Recall, e.Places, e.Rounds, e.Details)
	if err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}
	return r.Get(ctx, e.FeisID, e.ID)
}

func (r *EventRepository) Update(ctx context.Context, e events.Event) (*events.Event, error) {
	tag, err := r.queryer().Exec(ctx, `
		UPDATE events
		   SET name = $3, code = $4, level = $5, age = $6, type = $7, age_min = $8, age_max = $9,
		       fee = $10, exclude_from_max = $11, recall = $12, places = $13, rounds = $14, details = $15
		 WHERE feis_id = $1 AND id = $2`,
		e.FeisID, e.ID, e.Name, e.Code, e.Level, e.Age, e.Type, e.AgeMin, e.AgeMax,
		e.Fee, e.ExcludeFromMax, e.Recall, e.Places, e.Rounds, e.Details)
	if err := requireRow(tag, err, events.ErrNotFound); err != nil {
		return nil, err
	}
	return r.Get(ctx, e.FeisID, e.ID)
}

func (r *EventRepository) Delete(ctx context.Context, feisID, id string) error {
	return r.inTx(ctx, func(tx base) error {
		if err := unschedule(ctx, tx, feisID, id); err != nil {
			return err
		}
		t, err := tx.queryer().Exec(ctx, `DELETE FROM events WHERE feis_id = $1 AND id = $2`, feisID, id)
		return requireRow(t, err, events.ErrNotFound)
	})
}

func (r *EventRepository) Query(ctx context.Context, feisID string, q events.Query) ([]events.Event, error) {
	var champs, age *int
	if q.ChampsApplies() {
		champs = q.Champs
	}
	if q.AgeApplies() {
		age = q.Age
	}

	columns := eventColumns
	join := ""
	if q.Stats {
		columns += `, st.females, st.males, st.paid, st.unpaid`
		join = statsJoin
	}

	rows, err := r.queryer().Query(ctx, `
		SELECT `+columns+`
		  FROM events e `+join+`
		 WHERE e.feis_id = $1
		   AND NOT e.inactive
		   AND ($2::text = '' OR e.type = $2)
		   AND ($3::text = '' OR e.name ILIKE '%' || $3 || '%'
		                OR e.code ILIKE '%' || $3 || '%'
		                OR e.level ILIKE '%' || $3 || '%'
		                OR e.age ILIKE '%' || $3 || '%'
		                OR (CASE e.type WHEN 'F' THEN 'figures'
		                                WHEN 'G' THEN 'grades'
		                                WHEN 'C' THEN 'championships'
		                                ELSE 'specials' END) ILIKE '%' || $3 || '%')
		   AND ($4::int IS NULL
		        OR ($4 = 1 AND e.type <> 'G')
		        OR ($4 = 0 AND e.type <> 'C')
		        OR $4 NOT IN (0, 1))
		   AND ($5::int IS NULL
		        OR ((e.age_min IS NULL OR e.age_min <= $5) AND (e.age_max IS NULL OR e.age_max >= $5)))
		   AND (NOT $6::boolean OR CASE $7::text
		        WHEN 'PND' THEN NOT e.is_ci_opened AND NOT e.is_ci_closed
		        WHEN 'CI' THEN e.is_ci_opened AND NOT e.is_ci_closed
		        WHEN 'RCL' THEN e.is_in_results AND e.recall AND NOT e.is_announced
		        WHEN 'RES' THEN e.is_in_results AND (NOT e.recall OR e.is_announced)
		        WHEN 'QA' THEN e.is_in_qa AND NOT e.is_in_results
		        WHEN 'ADJ' THEN e.is_ci_closed AND NOT e.is_in_tabs
		        WHEN 'TABS' THEN e.is_in_tabs AND NOT e.is_in_qa
		        ELSE false END)
		   AND (NOT $8::boolean OR e.recall)
		 ORDER BY e.name, e.id
		OFFSET $9
		 LIMIT NULLIF($10::int, 0)`,
		feisID, q.Type, q.Filter, champs, age, q.StatusSet, string(q.Status), q.Recall, q.Skip, q.Limit)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	out := []events.Event{}
	for rows.Next() {
		var e events.Event
		dest := eventDest(&e)
		var stats events.Stats
		if q.Stats {
			dest = append(dest, &stats.Females, &stats.Males, &stats.Paid, &stats.Unpaid)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		if q.Stats {
			e.Stats = &stats
		}
		out = append(out, e.WithStatus())
	}
	return out, rows.Err()
}

// competitorColumns selects a participant with their person, school and
// feis number from participants pa joined to events e, persons p, schools s
// and registered rg.
const competitorColumns = personColumns + `, rg.competitor,
	pa.id, pa.event_id, pa.person_id, pa."order", pa.is_checked_in, pa.collected,
	pa.placement, pa.total, pa.computed_total, pa.placed`

const competitorFrom = `participants pa
	JOIN events e ON e.id = pa.event_id
	JOIN ` + personFrom + ` ON p.id = pa.person_id
	LEFT JOIN registered rg ON rg.feis_id = e.feis_id AND rg.person_id = pa.person_id`

func participantDest(reg *events.Participant) []any {
	return []any{
		&reg.ID, &reg.EventID, &reg.PersonID, &reg.Order, &reg.CheckedIn, &reg.Collected,
		&reg.Placement, &reg.Total, &reg.ComputedTotal, &reg.Placed,
	}
}

func scanCompetitors(rows pgx.Rows) ([]events.Competitor, error) {
	defer rows.Close()
	out := []events.Competitor{}
	for rows.Next() {
		var c events.Competitor
		dest, finish := personDest(&c.Person)
		dest = append(dest, &c.Competitor)
		dest = append(dest, participantDest(&c.Reg)...)
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		finish()
		c.Reg.Competitor = c.Competitor
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *EventRepository) Participants(ctx context.Context, feisID, eventID string) ([]events.Competitor, error) {
	rows, err := r.queryer().Query(ctx, `
		SELECT `+competitorColumns+`
		  FROM `+competitorFrom+`
		 WHERE e.feis_id = $1 AND pa.event_id = $2
		 ORDER BY pa."order" NULLS LAST, rg.competitor NULLS LAST, p.lname, p.fname, p.id`, feisID, eventID)
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	return scanCompetitors(rows)
}

// ApplyTransition writes the flags of t and returns the updated event.
func (r *EventRepository) ApplyTransition(ctx context.Context, feisID, eventID string, t events.Transition) (*events.Event, error) {
	sets := make([]string, 0, len(t))
	args := []any{feisID, eventID}
	for _, flag := range events.Flags {
		value, ok := t[flag]
		if !ok {
			continue
		}
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", flag, len(args)))
	}
	if len(sets) == 0 {
		return r.Get(ctx, feisID, eventID)
	}

	tag, err := r.queryer().Exec(ctx, `UPDATE events SET `+strings.Join(sets, ", ")+` WHERE feis_id = $1 AND id = $2`, args...)
	if err := requireRow(tag, err, events.ErrNotFound); err != nil {
		return nil, err
	}
	return r.Get(ctx, feisID, eventID)
}

func (r *EventRepository) LinkTransform(ctx context.Context, fromID, toID string) error {
	_, err := r.queryer().Exec(ctx, `
		INSERT INTO event_transforms (from_id, to_id) VALUES ($1, $2)
		ON CONFLICT DO NOTHING`, fromID, toID)
	if err != nil {
		return fmt.Errorf("link event transform: %w", err)
	}
	return nil
}

func (r *EventRepository) CopyParticipants(ctx context.Context, toEventID string, fromEventIDs, personIDs []string) (int, error) {
	rows, err := r.queryer().Query(ctx, `
		SELECT DISTINCT person_id
		  FROM participants
		 WHERE event_id = ANY($1)
		   AND ($2::text[] IS NULL OR person_id = ANY($2))
		 ORDER BY person_id`, fromEventIDs, personIDs)
	if err != nil {
		return 0, fmt.Errorf("select participants to copy: %w", err)
	}
	persons, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return 0, err
	}
	if len(persons) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, personID := range persons {
		batch.Queue(`
			INSERT INTO participants (id, event_id, person_id) VALUES ($1, $2, $3)
			ON CONFLICT (event_id, person_id) DO NOTHING`,
			ids.MustULID(), toEventID, personID)
	}
	if err := r.queryer().SendBatch(ctx, batch).Close(); err != nil {
		return 0, fmt.Errorf("copy participants: %w", err)
	}
	return len(persons), nil
}

func (r *EventRepository) Deactivate(ctx context.Context, feisID, id string) error {
	return r.inTx(ctx, func(tx base) error {
		t, err := tx.queryer().Exec(ctx, `UPDATE events SET inactive = true WHERE feis_id = $1 AND id = $2 AND NOT inactive`, feisID, id)
		if err != nil {
			return fmt.Errorf("deactivate event: %w", err)
		}
		if t.RowsAffected() == 0 {
			if _, err := (&EventRepository{tx}).Get(ctx, feisID, id); err != nil {
				return err
			}
			return events.ErrInactive
		}
		return unschedule(ctx, tx, feisID, id)
	})
}

func (r *EventRepository) Participant(ctx context.Context, feisID, eventID, personID string) (*events.Participant, error) {
	var reg events.Participant
	var competitor *int
	dest := append(participantDest(&reg), &competitor)
	err := r.queryer().QueryRow(ctx, `
		SELECT pa.id, pa.event_id, pa.person_id, pa."order", pa.is_checked_in, pa.collected,
		       pa.placement, pa.total, pa.computed_total, pa.placed, rg.competitor
		  FROM participants pa
		  JOIN events e ON e.id = pa.event_id
		  LEFT JOIN registered rg ON rg.feis_id = e.feis_id AND rg.person_id = pa.person_id
		 WHERE e.feis_id = $1 AND pa.event_id = $2 AND pa.person_id = $3`,
		feisID, eventID, personID).Scan(dest...)
	if err != nil {
		return nil, orNotFound(err, events.ErrParticipantNotFound)
	}
	reg.Competitor = competitor
	return &reg, nil
}

func (r *EventRepository) UpdateParticipant(ctx context.Context, feisID, eventID, personID string, u events.RegistrationUpdate) error {
	tag, err := r.queryer().Exec(ctx, `
		UPDATE participants pa
		   SET "order" = $4, is_checked_in = $5, collected = $6
		  FROM events e
		 WHERE e.id = pa.event_id AND e.feis_id = $1 AND pa.event_id = $2 AND pa.person_id = $3`,
		feisID, eventID, personID, u.Order, u.CheckedIn, u.Collected)
	return requireRow(tag, err, events.ErrParticipantNotFound)
}

func (r *EventRepository) SetCheckedIn(ctx context.Context, feisID, eventID, personID string, checkedIn bool) error {
	return r.setParticipantFlag(ctx, "is_checked_in", feisID, eventID, personID, checkedIn)
}

func (r *EventRepository) SetCollected(ctx context.Context, feisID, eventID, personID string, collected bool) error {
	return r.setParticipantFlag(ctx, "collected", feisID, eventID, personID, collected)
}

func (r *EventRepository) setParticipantFlag(ctx context.Context, column, feisID, eventID, personID string, value bool) error {
	tag, err := r.queryer().Exec(ctx, `
		UPDATE participants pa
		   SET `+column+` = $4
		  FROM events e
		 WHERE e.id = pa.event_id AND e.feis_id = $1 AND pa.event_id = $2 AND pa.person_id = $3`,
		feisID, eventID, personID, value)
	return requireRow(tag, err, events.ErrParticipantNotFound)
}

// OrderParticipants fails without changes when any listed person is not a
// participant.
func (r *EventRepository) OrderParticipants(ctx context.Context, feisID, eventID string, order []events.OrderEntry) error {
	return r.inTx(ctx, func(tx base) error {
		for _, entry := range order {
			t, err := tx.queryer().Exec(ctx, `
				UPDATE participants pa
				   SET "order" = $4
				  FROM events e
				 WHERE e.id = pa.event_id AND e.feis_id = $1 AND pa.event_id = $2 AND pa.person_id = $3`,
				feisID, eventID, entry.PersonID, entry.Order)
			if err := requireRow(t, err, events.ErrParticipantNotFound); err != nil {
				return err
			}
		}
		return nil
	})
}
