package postgres

import (
	"context"
	"fmt"

	"github.com/ifeis/server/internal/domain/catalog"
	"github.com/ifeis/server/internal/domain/events"
	"github.com/ifeis/server/internal/domain/scores"
	"github.com/jackc/pgx/v5"
)

// ScoreRepository implements scores.Repository.
type ScoreRepository struct {
	base
}

func (r *ScoreRepository) WithTransaction(ctx context.Context, fn func(txRepo scores.Repository) error) error {
	return r.withTx(ctx, func(tx base) error {
		return fn(&ScoreRepository{tx})
	})
}

func (r *ScoreRepository) Event(ctx context.Context, feisID, eventID string, lock bool) (*events.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events e WHERE e.feis_id = $1 AND e.id = $2`
	if lock {
		query += ` FOR UPDATE OF e`
	}
	e, err := scanEvent(r.queryer().QueryRow(ctx, query, feisID, eventID))
	if err != nil {
		return nil, orNotFound(err, events.ErrNotFound)
	}
	return e, nil
}

func (r *ScoreRepository) Participants(ctx context.Context, feisID, eventID string) ([]events.Competitor, error) {
	return (&EventRepository{r.base}).Participants(ctx, feisID, eventID)
}

func (r *ScoreRepository) IsParticipant(ctx context.Context, eventID, personID string) (bool, error) {
	var ok bool
	err := r.queryer().QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM participants WHERE event_id = $1 AND person_id = $2)`,
		eventID, personID).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("check participant: %w", err)
	}
	return ok, nil
}

const scoreColumns = `sc.id, sc.event_id, sc.adjudicator_id, sc.person_id, sc.round, sc.value, sc.comments, sc.created_at`

func scanScore(row pgx.Row) (*scores.Score, error) {
	var s scores.Score
	if err := row.Scan(&s.ID, &s.EventID, &s.AdjudicatorID, &s.PersonID, &s.Round, &s.Value, &s.Comments, &s.CreatedAt); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *ScoreRepository) Scoresheet(ctx context.Context, eventID, adjudicatorID string) ([]scores.SheetRow, error) {
	rows, err := r.queryer().Query(ctx, `
		SELECT `+scoreColumns+`, rg.competitor
		  FROM scores sc
		  JOIN events e ON e.id = sc.event_id
		  LEFT JOIN participants pa ON pa.event_id = sc.event_id AND pa.person_id = sc.person_id
		  LEFT JOIN registered rg ON rg.feis_id = e.feis_id AND rg.person_id = sc.person_id
		 WHERE sc.event_id = $1 AND sc.adjudicator_id = $2
		 ORDER BY pa."order" NULLS LAST, rg.competitor NULLS LAST, sc.person_id, sc.round, sc.id`,
		eventID, adjudicatorID)
	if err != nil {
		return nil, fmt.Errorf("load scoresheet: %w", err)
	}
	defer rows.Close()

	out := []scores.SheetRow{}
	for rows.Next() {
		var s scores.Score
		var competitor *int
		if err := rows.Scan(&s.ID, &s.EventID, &s.AdjudicatorID, &s.PersonID, &s.Round, &s.Value, &s.Comments, &s.CreatedAt, &competitor); err != nil {
			return nil, err
		}
		if n := len(out); n > 0 && out[n-1].PersonID == s.PersonID {
			out[n-1].Scores = append(out[n-1].Scores, s)
			continue
		}
		out = append(out, scores.SheetRow{PersonID: s.PersonID, Competitor: competitor, Scores: []scores.Score{s}})
	}
	return out, rows.Err()
}

func (r *ScoreRepository) Create(ctx context.Context, s scores.Score) (*scores.Score, error) {
	created, err := scanScore(r.queryer().QueryRow(ctx, `
		INSERT INTO scores AS sc (id, event_id, adjudicator_id, person_id, round, value, comments)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+scoreColumns,
		s.ID, s.EventID, s.AdjudicatorID, s.PersonID, s.Round, s.Value, s.Comments))
	if isViolation(err, codeForeignKeyViolation, "scores_adjudicator_id_fkey") {
		return nil, catalog.ErrAdjudicatorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("create score: %w", err)
	}
	return created, nil
}

func (r *ScoreRepository) Update(ctx context.Context, s scores.Score) (*scores.Score, error) {
	updated, err := scanScore(r.queryer().QueryRow(ctx, `
		UPDATE scores AS sc SET round = $3, value = $4, comments = $5
		 WHERE sc.event_id = $1 AND sc.id = $2
		RETURNING `+scoreColumns,
		s.EventID, s.ID, s.Round, s.Value, s.Comments))
	if err != nil {
		return nil, orNotFound(err, scores.ErrNotFound)
	}
	return updated, nil
}

func (r *ScoreRepository) Delete(ctx context.Context, eventID, scoreID string) error {
	tag, err := r.queryer().Exec(ctx, `DELETE FROM scores WHERE event_id = $1 AND id = $2`, eventID, scoreID)
	return requireRow(tag, err, scores.ErrNotFound)
}

func (r *ScoreRepository) DeleteAll(ctx context.Context, eventID, adjudicatorID string) (int64, error) {
	tag, err := r.queryer().Exec(ctx, `DELETE FROM scores WHERE event_id = $1 AND adjudicator_id = $2`, eventID, adjudicatorID)
	if err != nil {
		return 0, fmt.Errorf("clear scoresheet: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *ScoreRepository) Adjudicators(ctx context.Context, eventID string) ([]catalog.Adjudicator, error) {
	rows, err := r.queryer().Query(ctx, `
		SELECT `+adjudicatorColumns+`
		  FROM adjudicators a
		 WHERE EXISTS (SELECT 1 FROM scores sc WHERE sc.event_id = $1 AND sc.adjudicator_id = a.id)
		 ORDER BY a.lname, a.fname, a.id`, eventID)
	if err != nil {
		return nil, fmt.Errorf("list event adjudicators: %w", err)
	}
	return collectAdjudicators(rows)
}

func (r *ScoreRepository) SavePlacements(ctx context.Context, eventID string, records []scores.Stored) error {
	if len(records) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, rec := range records {
		batch.Queue(`
			UPDATE participants
			   SET placement = $3, total = $4, computed_total = $5, placed = $6
			 WHERE event_id = $1 AND person_id = $2`,
			eventID, rec.PersonID, rec.Placement, rec.Total, rec.ComputedTotal, rec.Placed)
	}
	if err := r.queryer().SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("save placements: %w", err)
	}
	return nil
}

func (r *ScoreRepository) Placements(ctx context.Context, eventID string) ([]events.Competitor, error) {
	rows, err := r.queryer().Query(ctx, `
		SELECT `+competitorColumns+`
		  FROM `+competitorFrom+`
		 WHERE pa.event_id = $1 AND pa.placement IS NOT NULL
		 ORDER BY pa.placement, rg.competitor NULLS LAST, p.id`, eventID)
	if err != nil {
		return nil, fmt.Errorf("list placements: %w", err)
	}
	return scanCompetitors(rows)
}
