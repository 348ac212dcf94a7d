package scores

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ifeis/server/internal/domain/catalog"
	"github.com/ifeis/server/internal/domain/errs"
	"github.com/ifeis/server/internal/domain/events"
	"github.com/ifeis/server/internal/domain/ids"
	"github.com/ifeis/server/internal/metrics"
	"github.com/ifeis/server/internal/sanitize"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// maxConcurrentSheets bounds the scoresheet loads of one calculation.
const maxConcurrentSheets = 4

type Service struct {
	repo      Repository
	validator *validator.Validate
	logger    zerolog.Logger
}

func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{
		repo:      repo,
		validator: validator.New(),
		logger:    logger.With().Str("component", "scores").Logger(),
	}
}

// All returns an adjudicator's scoresheet for an event.
func (s *Service) All(ctx context.Context, feisID, eventID, adjudicatorID string) ([]SheetRow, error) {
	if _, err := s.repo.Event(ctx, feisID, eventID, false); err != nil {
		return nil, err
	}
	return s.repo.Scoresheet(ctx, eventID, adjudicatorID)
}

func (s *Service) Create(ctx context.Context, feisID, eventID, adjudicatorID, personID string, input Input) (*Score, error) {
	if err := s.validate(&input); err != nil {
		return nil, err
	}
	if _, err := s.repo.Event(ctx, feisID, eventID, false); err != nil {
		return nil, err
	}
	ok, err := s.repo.IsParticipant(ctx, eventID, personID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrParticipantNotFound
	}

	id, err := ids.NewULID()
	if err != nil {
		return nil, fmt.Errorf("generate score id: %w", err)
	}
	return s.repo.Create(ctx, Score{
		ID:            id,
		EventID:       eventID,
		AdjudicatorID: adjudicatorID,
		PersonID:      personID,
		Round:         input.Round,
		Value:         input.Value,
		Comments:      input.Comments,
		CreatedAt:     time.Now().UTC(),
	})
}

func (s *Service) Update(ctx context.Context, feisID, eventID, adjudicatorID, scoreID string, input Input) (*Score, error) {
	if err := s.validate(&input); err != nil {
		return nil, err
	}
	if _, err := s.repo.Event(ctx, feisID, eventID, false); err != nil {
		return nil, err
	}
	return s.repo.Update(ctx, Score{
		ID:            scoreID,
		EventID:       eventID,
		AdjudicatorID: adjudicatorID,
		Round:         input.Round,
		Value:         input.Value,
		Comments:      input.Comments,
	})
}

func (s *Service) Delete(ctx context.Context, feisID, eventID, scoreID string) error {
	if _, err := s.repo.Event(ctx, feisID, eventID, false); err != nil {
		return err
	}
	return s.repo.Delete(ctx, eventID, scoreID)
}

// DeleteAll clears an adjudicator's scoresheet for the event.
func (s *Service) DeleteAll(ctx context.Context, feisID, eventID, adjudicatorID string) error {
	if _, err := s.repo.Event(ctx, feisID, eventID, false); err != nil {
		return err
	}
	n, err := s.repo.DeleteAll(ctx, eventID, adjudicatorID)
	if err != nil {
		return err
	}
	s.logger.Info().
		Str("event_id", eventID).
		Str("adjudicator_id", adjudicatorID).
		Int64("deleted", n).
		Msg("scoresheet cleared")
	return nil
}

// Adjudicators lists who has scored the event.
func (s *Service) Adjudicators(ctx context.Context, feisID, eventID string) ([]catalog.Adjudicator, error) {
	if _, err := s.repo.Event(ctx, feisID, eventID, false); err != nil {
		return nil, err
	}
	return s.repo.Adjudicators(ctx, eventID)
}

// CalculatePlacements ranks the event from its scoresheets. Per-adjudicator
// marks are kept only with details.
func (s *Service) CalculatePlacements(ctx context.Context, feisID, eventID string, details bool) ([]Result, error) {
	results, err := s.calculate(ctx, s.repo, feisID, eventID, false, true)
	if err != nil {
		return nil, err
	}
	if !details {
		for i := range results {
			results[i].Marks = nil
		}
	}
	return results, nil
}

// CachePlacements stores the current placements on every participant of the
// event. Participants without scores are cleared. Running it twice leaves
// the same state.
func (s *Service) CachePlacements(ctx context.Context, feisID, eventID string) ([]Stored, error) {
	start := time.Now()
	var records []Stored
	err := s.repo.WithTransaction(ctx, func(tx Repository) error {
		results, err := s.calculate(ctx, tx, feisID, eventID, true, false)
		if err != nil {
			return err
		}
		participants, err := tx.Participants(ctx, feisID, eventID)
		if err != nil {
			return err
		}
		records = storedRecords(participants, results)
		return tx.SavePlacements(ctx, eventID, records)
	})
	if err != nil {
		return nil, err
	}

	metrics.PlacementsCached.Inc()
	metrics.PlacementDuration.Observe(time.Since(start).Seconds())
	s.logger.Info().Str("feis_id", feisID).Str("event_id", eventID).Int("participants", len(records)).Msg("placements cached")
	return records, nil
}

// Placements returns the cached placements once results may be shown: the
// event is in results and, for recall events, the recall was announced.
func (s *Service) Placements(ctx context.Context, feisID, eventID string) ([]events.Competitor, error) {
	event, err := s.repo.Event(ctx, feisID, eventID, false)
	if err != nil {
		return nil, err
	}
	if !event.InResults || (event.Recall && !event.Announced) {
		return []events.Competitor{}, nil
	}
	return s.repo.Placements(ctx, eventID)
}

// calculate loads everything the calculator needs. A transaction cannot run
// queries in parallel, so scoresheets are only loaded concurrently outside
// one.
func (s *Service) calculate(ctx context.Context, repo Repository, feisID, eventID string, lock, concurrent bool) ([]Result, error) {
	event, err := repo.Event(ctx, feisID, eventID, lock)
	if err != nil {
		return nil, err
	}
	participants, err := repo.Participants(ctx, feisID, eventID)
	if err != nil {
		return nil, err
	}
	adjudicators, err := repo.Adjudicators(ctx, eventID)
	if err != nil {
		return nil, err
	}

	sheets := make([][]SheetRow, len(adjudicators))
	if concurrent {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(maxConcurrentSheets)
		for i, adj := range adjudicators {
			g.Go(func() error {
				rows, err := repo.Scoresheet(gctx, eventID, adj.ID)
				if err != nil {
					return fmt.Errorf("load scoresheet of %s: %w", adj.ID, err)
				}
				sheets[i] = rows
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	} else {
		for i, adj := range adjudicators {
			if sheets[i], err = repo.Scoresheet(ctx, eventID, adj.ID); err != nil {
				return nil, fmt.Errorf("load scoresheet of %s: %w", adj.ID, err)
			}
		}
	}

	calc := NewCalculator(*event, participants)
	for i, adj := range adjudicators {
		calc.AddScoresheet(adj.ID, sheets[i])
	}
	return calc.Calculate(), nil
}

func storedRecords(participants []events.Competitor, results []Result) []Stored {
	byPerson := make(map[string]Result, len(results))
	for _, r := range results {
		byPerson[r.PersonID] = r
	}

	records := make([]Stored, 0, len(participants))
	for _, p := range participants {
		rec := Stored{PersonID: p.ID, Competitor: p.Competitor}
		if r, ok := byPerson[p.ID]; ok {
			placement, total, computed := r.Placement, r.Total, r.ComputedTotal
			rec.Placement = &placement
			rec.Total = &total
			rec.ComputedTotal = &computed
			rec.Placed = r.Placed
		}
		records = append(records, rec)
	}
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i].Placement, records[j].Placement
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return *a < *b
		}
	})
	return records
}

func (s *Service) validate(input *Input) error {
	input.Comments = sanitize.Text(input.Comments)
	if err := s.validator.Struct(input); err != nil {
		return errs.Validation(err)
	}
	return nil
}
