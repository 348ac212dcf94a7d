package events

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/ifeis/server/internal/domain/errs"
	"github.com/ifeis/server/internal/domain/ids"
	"github.com/ifeis/server/internal/sanitize"
	"github.com/rs/zerolog"
)

type Service struct {
	repo       Repository
	placements PlacementQueue
	validator  *validator.Validate
	logger     zerolog.Logger
}

// NewService builds the events service. placements may be nil, in which
// case placements are only cached on request.
func NewService(repo Repository, placements PlacementQueue, logger zerolog.Logger) *Service {
	return &Service{
		repo:       repo,
		placements: placements,
		validator:  validator.New(),
		logger:     logger.With().Str("component", "events").Logger(),
	}
}

func (s *Service) One(ctx context.Context, feisID, id string) (*Event, error) {
	return s.repo.Get(ctx, feisID, id)
}

func (s *Service) Query(ctx context.Context, feisID string, q Query) ([]Event, error) {
	return s.repo.Query(ctx, feisID, q)
}

func (s *Service) Create(ctx context.Context, feisID string, input Input) (*Event, error) {
	e, err := s.fromInput(feisID, input)
	if err != nil {
		return nil, err
	}
	if e.ID, err = ids.NewULID(); err != nil {
		return nil, fmt.Errorf("generate event id: %w", err)
	}
	return s.repo.Create(ctx, e)
}

// Update replaces the syllabus fields of an event, keeping its workflow flags.
func (s *Service) Update(ctx context.Context, feisID, id string, input Input) (*Event, error) {
	e, err := s.fromInput(feisID, input)
	if err != nil {
		return nil, err
	}
	e.ID = id
	return s.repo.Update(ctx, e)
}

func (s *Service) Delete(ctx context.Context, feisID, id string) error {
	if _, err := s.repo.Get(ctx, feisID, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, feisID, id)
}

func (s *Service) Participants(ctx context.Context, feisID, eventID string) ([]Competitor, error) {
	if _, err := s.repo.Get(ctx, feisID, eventID); err != nil {
		return nil, err
	}
	return s.repo.Participants(ctx, feisID, eventID)
}

// PrintQueue lists results whose placements or recalls have not been printed.
func (s *Service) PrintQueue(ctx context.Context, feisID string) (*PrintQueue, error) {
	results, err := s.repo.Query(ctx, feisID, Query{Status: StatusResults, StatusSet: true})
	if err != nil {
		return nil, err
	}
	recalls, err := s.repo.Query(ctx, feisID, Query{Status: StatusRecall, StatusSet: true})
	if err != nil {
		return nil, err
	}

	queue := &PrintQueue{Placements: []Event{}, Recall: []Event{}}
	for _, e := range results {
		if !e.PrintedPlaces {
			queue.Placements = append(queue.Placements, e)
		}
	}
	for _, e := range recalls {
		if !e.PrintedRecall {
			queue.Recall = append(queue.Recall, e)
		}
	}
	return queue, nil
}

// Merge combines two events into a new one. Both originals become inactive
// and leave their stages; every participant of either is entered once in
// the merged event.
func (s *Service) Merge(ctx context.Context, feisID, aID, bID string, input Input) (*Event, error) {
	if aID == bID {
		return nil, errs.Invalid("An event cannot be merged with itself.")
	}
	merged, err := s.fromInput(feisID, input)
	if err != nil {
		return nil, err
	}
	if merged.ID, err = ids.NewULID(); err != nil {
		return nil, fmt.Errorf("generate event id: %w", err)
	}

	var created *Event
	err = s.repo.WithTransaction(ctx, func(tx Repository) error {
		for _, id := range []string{aID, bID} {
			if err := requireActive(ctx, tx, feisID, id); err != nil {
				return err
			}
		}

		var err error
		if created, err = tx.Create(ctx, merged); err != nil {
			return err
		}
		for _, id := range []string{aID, bID} {
			if err := tx.LinkTransform(ctx, id, created.ID); err != nil {
				return err
			}
		}
		if created.Participants, err = tx.CopyParticipants(ctx, created.ID, []string{aID, bID}, nil); err != nil {
			return err
		}
		for _, id := range []string{aID, bID} {
			if err := tx.Deactivate(ctx, feisID, id); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("feis_id", feisID).
		Strs("from", []string{aID, bID}).
		Str("to", created.ID).
		Int("participants", created.Participants).
		Msg("events merged")
	return created, nil
}

// Split replaces an event with two new ones. Each listed person moves to the
// event they are listed for, provided they were a participant of the
// original; the original becomes inactive and leaves its stage.
func (s *Service) Split(ctx context.Context, feisID, eventID string, input1 Input, persons1 []string, input2 Input, persons2 []string) ([]Event, error) {
	first, err := s.fromInput(feisID, input1)
	if err != nil {
		return nil, err
	}
	second, err := s.fromInput(feisID, input2)
	if err != nil {
		return nil, err
	}
	if first.ID, err = ids.NewULID(); err != nil {
		return nil, fmt.Errorf("generate event id: %w", err)
	}
	if second.ID, err = ids.NewULID(); err != nil {
		return nil, fmt.Errorf("generate event id: %w", err)
	}
	if persons1 == nil {
		persons1 = []string{}
	}
	if persons2 == nil {
		persons2 = []string{}
	}

	var out []Event
	err = s.repo.WithTransaction(ctx, func(tx Repository) error {
		if err := requireActive(ctx, tx, feisID, eventID); err != nil {
			return err
		}
		for _, pair := range []struct {
			event   Event
			persons []string
		}{{first, persons1}, {second, persons2}} {
			created, err := tx.Create(ctx, pair.event)
			if err != nil {
				return err
			}
			if err := tx.LinkTransform(ctx, eventID, created.ID); err != nil {
				return err
			}
			if created.Participants, err = tx.CopyParticipants(ctx, created.ID, []string{eventID}, pair.persons); err != nil {
				return err
			}
			out = append(out, *created)
		}
		return tx.Deactivate(ctx, feisID, eventID)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("feis_id", feisID).
		Str("from", eventID).
		Strs("to", []string{out[0].ID, out[1].ID}).
		Msg("event split")
	return out, nil
}

func (s *Service) OpenCheckIn(ctx context.Context, feisID, eventID string) (*Event, error) {
	return s.transition(ctx, feisID, eventID, OpenCheckIn)
}

func (s *Service) CloseCheckIn(ctx context.Context, feisID, eventID string) (*Event, error) {
	return s.transition(ctx, feisID, eventID, CloseCheckIn)
}

func (s *Service) CheckInToTabs(ctx context.Context, feisID, eventID string) (*Event, error) {
	return s.transition(ctx, feisID, eventID, CheckInToTabs)
}

// Reset returns an event to pending, keeping participants and scores.
func (s *Service) Reset(ctx context.Context, feisID, eventID string) (*Event, error) {
	return s.transition(ctx, feisID, eventID, Reset)
}

// SendToQA moves an event to QA, withdrawing any published results.
func (s *Service) SendToQA(ctx context.Context, feisID, eventID string) (*Event, error) {
	return s.transition(ctx, feisID, eventID, SendToQA)
}

// SendToResults publishes an event's results and schedules placement caching.
func (s *Service) SendToResults(ctx context.Context, feisID, eventID string) (*Event, error) {
	e, err := s.transition(ctx, feisID, eventID, SendToResults)
	if err != nil {
		return nil, err
	}
	if s.placements != nil {
		if err := s.placements.EnqueueCachePlacements(ctx, feisID, eventID); err != nil {
			s.logger.Error().Err(err).Str("event_id", eventID).Msg("failed to queue placement caching")
		}
	}
	return e, nil
}

func (s *Service) SetAnnounced(ctx context.Context, feisID, eventID string) (*Event, error) {
	return s.transition(ctx, feisID, eventID, SetAnnounced)
}

func (s *Service) SetRecallsPrinted(ctx context.Context, feisID, eventID string) (*Event, error) {
	return s.transition(ctx, feisID, eventID, SetRecallsPrinted)
}

func (s *Service) SetPlacementsPrinted(ctx context.Context, feisID, eventID string) (*Event, error) {
	return s.transition(ctx, feisID, eventID, SetPlacementsPrinted)
}

func (s *Service) transition(ctx context.Context, feisID, eventID string, t Transition) (*Event, error) {
	e, err := s.repo.ApplyTransition(ctx, feisID, eventID, t)
	if err != nil {
		return nil, err
	}
	s.logger.Debug().
		Str("feis_id", feisID).
		Str("event_id", eventID).
		Str("status", string(e.Status)).
		Msg("event transition")
	return e, nil
}

func (s *Service) Checkin(ctx context.Context, feisID, eventID, personID string) (*Participant, error) {
	if err := s.repo.SetCheckedIn(ctx, feisID, eventID, personID, true); err != nil {
		return nil, err
	}
	return s.repo.Participant(ctx, feisID, eventID, personID)
}

func (s *Service) Checkout(ctx context.Context, feisID, eventID, personID string) (*Participant, error) {
	if err := s.repo.SetCheckedIn(ctx, feisID, eventID, personID, false); err != nil {
		return nil, err
	}
	return s.repo.Participant(ctx, feisID, eventID, personID)
}

func (s *Service) UpdateRegistration(ctx context.Context, feisID, eventID, personID string, update RegistrationUpdate) (*Participant, error) {
	if update.Order != nil && *update.Order < 0 {
		return nil, errs.Invalid("Order must not be negative.")
	}
	if err := s.repo.UpdateParticipant(ctx, feisID, eventID, personID, update); err != nil {
		return nil, err
	}
	return s.repo.Participant(ctx, feisID, eventID, personID)
}

// OrderParticipants sets the dance order; people not listed keep theirs.
func (s *Service) OrderParticipants(ctx context.Context, feisID, eventID string, order []OrderEntry) ([]Competitor, error) {
	seen := make(map[string]struct{}, len(order))
	for _, entry := range order {
		if entry.PersonID == "" {
			return nil, errs.Invalid("Each entry needs an id.")
		}
		if _, dup := seen[entry.PersonID]; dup {
			return nil, errs.Invalid("Person %s is listed twice.", entry.PersonID)
		}
		seen[entry.PersonID] = struct{}{}
	}
	if _, err := s.repo.Get(ctx, feisID, eventID); err != nil {
		return nil, err
	}
	if err := s.repo.OrderParticipants(ctx, feisID, eventID, order); err != nil {
		return nil, err
	}
	return s.repo.Participants(ctx, feisID, eventID)
}

func (s *Service) CollectAward(ctx context.Context, feisID, eventID, personID string) error {
	return s.repo.SetCollected(ctx, feisID, eventID, personID, true)
}

func (s *Service) ReturnAward(ctx context.Context, feisID, eventID, personID string) error {
	return s.repo.SetCollected(ctx, feisID, eventID, personID, false)
}

func (s *Service) fromInput(feisID string, input Input) (Event, error) {
	input.Name = sanitize.Text(input.Name)
	if err := s.validator.Struct(input); err != nil {
		return Event{}, errs.Validation(err)
	}
	if input.AgeMin != nil && input.AgeMax != nil && *input.AgeMin > *input.AgeMax {
		return Event{}, errs.Invalid("age_min must not exceed age_max.")
	}
	e := Event{
		FeisID:         feisID,
		Name:           input.Name,
		Code:           sanitize.Text(input.Code),
		Level:          sanitize.Text(input.Level),
		Age:            sanitize.Text(input.Age),
		Type:           sanitize.Text(input.Type),
		AgeMin:         input.AgeMin,
		AgeMax:         input.AgeMax,
		Fee:            input.Fee,
		ExcludeFromMax: input.ExcludeFromMax,
		Recall:         input.Recall,
		Places:         input.Places,
		Rounds:         input.Rounds,
		Details:        sanitize.Text(input.Details),
	}
	return e.WithStatus(), nil
}

func requireActive(ctx context.Context, repo Repository, feisID, id string) error {
	e, err := repo.Get(ctx, feisID, id)
	if err != nil {
		return err
	}
	if e.Inactive {
		return ErrInactive
	}
	return nil
}
