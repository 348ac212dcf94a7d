package postgres

import (
	"context"
	"fmt"

	"github.com/ifeis/server/internal/domain/events"
	"github.com/ifeis/server/internal/domain/stages"
	"github.com/jackc/pgx/v5"
)

// StageRepository implements stages.Repository.
type StageRepository struct {
	base
}

func (r *StageRepository) WithTransaction(ctx context.Context, fn func(txRepo stages.Repository) error) error {
	return r.withTx(ctx, func(tx base) error {
		return fn(&StageRepository{tx})
	})
}

const stageColumns = `st.id, st.feis_id, st.name, st.details, COALESCE(st.head_id, ''), st.created_at`

func scanStage(row pgx.Row) (*stages.Stage, error) {
	var s stages.Stage
	if err := row.Scan(&s.ID, &s.FeisID, &s.Name, &s.Details, &s.HeadID, &s.CreatedAt); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *StageRepository) All(ctx context.Context, feisID string) ([]stages.Stage, error) {
	rows, err := r.queryer().Query(ctx, `SELECT `+stageColumns+` FROM stages st WHERE st.feis_id = $1 ORDER BY st.name, st.id`, feisID)
	if err != nil {
		return nil, fmt.Errorf("list stages: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (stages.Stage, error) {
		s, err := scanStage(row)
		if err != nil {
			return stages.Stage{}, err
		}
		return *s, nil
	})
}

func (r *StageRepository) Get(ctx context.Context, feisID, id string) (*stages.Stage, error) {
	s, err := scanStage(r.queryer().QueryRow(ctx, `SELECT `+stageColumns+` FROM stages st WHERE st.feis_id = $1 AND st.id = $2`, feisID, id))
	if err != nil {
		return nil, orNotFound(err, stages.ErrNotFound)
	}
	return s, nil
}

func (r *StageRepository) Lock(ctx context.Context, feisID, id string) (*stages.Stage, error) {
	s, err := scanStage(r.queryer().QueryRow(ctx, `SELECT `+stageColumns+` FROM stages st WHERE st.feis_id = $1 AND st.id = $2 FOR UPDATE`, feisID, id))
	if err != nil {
		return nil, orNotFound(err, stages.ErrNotFound)
	}
	return s, nil
}

func (r *StageRepository) Create(ctx context.Context, s stages.Stage) (*stages.Stage, error) {
	created, err := scanStage(r.queryer().QueryRow(ctx, `
		INSERT INTO stages AS st (id, feis_id, name, details) VALUES ($1, $2, $3, $4)
		RETURNING `+stageColumns, s.ID, s.FeisID, s.Name, s.Details))
	if err != nil {
		return nil, fmt.Errorf("create stage: %w", err)
	}
	return created, nil
}

func (r *StageRepository) Update(ctx context.Context, s stages.Stage) (*stages.Stage, error) {
	updated, err := scanStage(r.queryer().QueryRow(ctx, `
		UPDATE stages AS st SET name = $3, details = $4
		 WHERE st.feis_id = $1 AND st.id = $2
		RETURNING `+stageColumns, s.FeisID, s.ID, s.Name, s.Details))
	if err != nil {
		return nil, orNotFound(err, stages.ErrNotFound)
	}
	return updated, nil
}

// Delete drops the stage; its items go with it through the cascade.
func (r *StageRepository) Delete(ctx context.Context, feisID, id string) error {
	tag, err := r.queryer().Exec(ctx, `DELETE FROM stages WHERE feis_id = $1 AND id = $2`, feisID, id)
	return requireRow(tag, err, stages.ErrNotFound)
}

const itemColumns = `si.id, si.event_id IS NULL, si.name, COALESCE(si.event_id, ''), COALESCE(si.next_id, ''),
	e.id IS NOT NULL, ` + nullableEventColumns

// nullableEventColumns mirrors eventColumns for a LEFT JOIN where the event
// may be missing.
const nullableEventColumns = `
	COALESCE(e.id, ''), COALESCE(e.feis_id, ''), COALESCE(e.name, ''), COALESCE(e.code, ''),
	COALESCE(e.level, ''), COALESCE(e.age, ''), COALESCE(e.type, ''), e.age_min, e.age_max,
	e.fee, COALESCE(e.exclude_from_max, false), COALESCE(e.recall, false), e.places, e.rounds,
	COALESCE(e.details, ''),
	COALESCE(e.is_ci_opened, false), COALESCE(e.is_ci_closed, false), COALESCE(e.is_in_tabs, false),
	COALESCE(e.is_in_qa, false), COALESCE(e.is_in_results, false), COALESCE(e.is_announced, false),
	COALESCE(e.prntd_recall, false), COALESCE(e.prntd_places, false), COALESCE(e.inactive, false),
	COALESCE(e.created_at, 'epoch'::timestamptz),
	(SELECT count(*) FROM participants pc WHERE pc.event_id = e.id)`

func scanItems(rows pgx.Rows) ([]stages.Item, error) {
	defer rows.Close()
	out := []stages.Item{}
	for rows.Next() {
		var item stages.Item
		var hasEvent bool
		var e events.Event
		dest := append([]any{&item.ID, &item.Placeholder, &item.Name, &item.EventID, &item.NextID, &hasEvent}, eventDest(&e)...)
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		if hasEvent {
			e = e.WithStatus()
			item.Event = &e
			item.Participants = e.Participants
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

func (r *StageRepository) Items(ctx context.Context, stageID string) ([]stages.Item, error) {
	rows, err := r.queryer().Query(ctx, `
		SELECT `+itemColumns+`
		  FROM stage_items si
		  LEFT JOIN events e ON e.id = si.event_id
		 WHERE si.stage_id = $1
		 ORDER BY si.id`, stageID)
	if err != nil {
		return nil, fmt.Errorf("list stage items: %w", err)
	}
	return scanItems(rows)
}

func (r *StageRepository) Unscheduled(ctx context.Context, feisID string) ([]stages.Item, error) {
	rows, err := r.queryer().Query(ctx, `
		SELECT `+eventColumns+`
		  FROM events e
		 WHERE e.feis_id = $1
		   AND NOT e.inactive
		   AND NOT EXISTS (SELECT 1 FROM stage_items si WHERE si.event_id = e.id)
		 ORDER BY e.name, e.id`, feisID)
	if err != nil {
		return nil, fmt.Errorf("list unscheduled events: %w", err)
	}
	defer rows.Close()

	out := []stages.Item{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, stages.Item{ID: e.ID, EventID: e.ID, Participants: e.Participants, Event: e})
	}
	return out, rows.Err()
}

func (r *StageRepository) LockEvent(ctx context.Context, feisID, eventID string) (bool, error) {
	var inactive bool
	err := r.queryer().QueryRow(ctx, `SELECT inactive FROM events WHERE feis_id = $1 AND id = $2 FOR SHARE`, feisID, eventID).Scan(&inactive)
	if err != nil {
		return false, orNotFound(err, events.ErrNotFound)
	}
	return inactive, nil
}

func (r *StageRepository) StageOf(ctx context.Context, feisID, eventID string) (string, error) {
	var stageID string
	err := r.queryer().QueryRow(ctx, `
		SELECT si.stage_id
		  FROM stage_items si
		  JOIN stages st ON st.id = si.stage_id
		 WHERE st.feis_id = $1 AND si.event_id = $2`, feisID, eventID).Scan(&stageID)
	if err == pgx.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("find stage of event: %w", err)
	}
	return stageID, nil
}

func (r *StageRepository) InsertItem(ctx context.Context, stageID string, item stages.Item) error {
	var eventID *string
	if !item.Placeholder {
		eventID = &item.ID
	}
	_, err := r.queryer().Exec(ctx, `
		INSERT INTO stage_items (id, stage_id, event_id, name, next_id)
		VALUES ($1, $2, $3, $4, $5)`,
		item.ID, stageID, eventID, item.Name, nullString(item.NextID))
	if isViolation(err, codeUniqueViolation, "stage_items_event_id_key") {
		return stages.ErrAlreadyScheduled
	}
	if err != nil {
		return fmt.Errorf("insert stage item: %w", err)
	}
	return nil
}

func (r *StageRepository) DeleteItem(ctx context.Context, stageID, itemID string) error {
	tag, err := r.queryer().Exec(ctx, `DELETE FROM stage_items WHERE stage_id = $1 AND id = $2`, stageID, itemID)
	return requireRow(tag, err, stages.ErrPlaceholderNotFound)
}

func (r *StageRepository) SaveLinks(ctx context.Context, stageID, head string, links []stages.Link) error {
	return saveLinks(ctx, r.base, stageID, head, links)
}

// saveLinks writes every pointer in one batch. The pointer constraints are
// deferred, so the order of the updates does not matter.
func saveLinks(ctx context.Context, b base, stageID, head string, links []stages.Link) error {
	batch := &pgx.Batch{}
	batch.Queue(`UPDATE stages SET head_id = $2 WHERE id = $1`, stageID, nullString(head))
	for _, link := range links {
		batch.Queue(`UPDATE stage_items SET next_id = $3 WHERE stage_id = $1 AND id = $2`,
			stageID, link.ID, nullString(link.NextID))
	}
	if err := b.queryer().SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("save stage links: %w", err)
	}
	return nil
}

// unschedule takes an event off whatever stage holds it and relinks the
// remaining items. It must run inside a transaction.
func unschedule(ctx context.Context, tx base, feisID, eventID string) error {
	repo := &StageRepository{tx}
	stageID, err := repo.StageOf(ctx, feisID, eventID)
	if err != nil || stageID == "" {
		return err
	}
	stage, err := repo.Lock(ctx, feisID, stageID)
	if err != nil {
		return err
	}
	items, err := repo.Items(ctx, stageID)
	if err != nil {
		return err
	}
	schedule, err := stages.BuildSchedule(stageID, stage.HeadID, items)
	if err != nil {
		return err
	}
	if !schedule.Remove(eventID) {
		return nil
	}
	if err := repo.DeleteItem(ctx, stageID, eventID); err != nil {
		return err
	}
	return saveLinks(ctx, tx, stageID, schedule.Head(), schedule.Links())
}
