package stages

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/ifeis/server/internal/domain/errs"
	"github.com/ifeis/server/internal/domain/ids"
	"github.com/ifeis/server/internal/metrics"
	"github.com/ifeis/server/internal/sanitize"
	"github.com/rs/zerolog"
)

type Service struct {
	repo      Repository
	validator *validator.Validate
	logger    zerolog.Logger
}

func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{
		repo:      repo,
		validator: validator.New(),
		logger:    logger.With().Str("component", "stages").Logger(),
	}
}

func (s *Service) All(ctx context.Context, feisID string) ([]Stage, error) {
	return s.repo.All(ctx, feisID)
}

// One returns the stage with its schedule.
func (s *Service) One(ctx context.Context, feisID, id string) (*Stage, error) {
	stage, err := s.repo.Get(ctx, feisID, id)
	if err != nil {
		return nil, err
	}
	schedule, err := s.load(ctx, s.repo, stage)
	if err != nil {
		return nil, err
	}
	stage.Events = schedule.Items()
	return stage, nil
}

func (s *Service) Create(ctx context.Context, feisID string, input Input) (*Stage, error) {
	if err := s.validate(&input); err != nil {
		return nil, err
	}
	id, err := ids.NewULID()
	if err != nil {
		return nil, fmt.Errorf("generate stage id: %w", err)
	}
	stage, err := s.repo.Create(ctx, Stage{ID: id, FeisID: feisID, Name: input.Name, Details: input.Details})
	if err != nil {
		return nil, err
	}
	stage.Events = []Item{}
	return stage, nil
}

func (s *Service) Update(ctx context.Context, feisID, id string, input Input) (*Stage, error) {
	if err := s.validate(&input); err != nil {
		return nil, err
	}
	if _, err := s.repo.Update(ctx, Stage{ID: id, FeisID: feisID, Name: input.Name, Details: input.Details}); err != nil {
		return nil, err
	}
	return s.One(ctx, feisID, id)
}

// Events lists the active events not yet scheduled on any stage.
func (s *Service) Events(ctx context.Context, feisID string) ([]Item, error) {
	return s.repo.Unscheduled(ctx, feisID)
}

// Schedule returns the stage's items in running order.
func (s *Service) Schedule(ctx context.Context, feisID, id string) ([]Item, error) {
	stage, err := s.One(ctx, feisID, id)
	if err != nil {
		return nil, err
	}
	return stage.Events, nil
}

// AttachEvent schedules an event between two neighbouring items.
func (s *Service) AttachEvent(ctx context.Context, feisID, stageID string, req AttachRequest) (*Stage, error) {
	if req.EventID == "" {
		return nil, errs.Invalid("An event is required.")
	}
	err := s.edit(ctx, feisID, stageID, "attach_event", func(tx Repository, schedule *Schedule) error {
		inactive, err := tx.LockEvent(ctx, feisID, req.EventID)
		if err != nil {
			return err
		}
		if inactive {
			return ErrInactiveEvent
		}
		current, err := tx.StageOf(ctx, feisID, req.EventID)
		if err != nil {
			return err
		}
		if current != "" {
			return ErrAlreadyScheduled
		}

		item := Item{ID: req.EventID, EventID: req.EventID}
		if err := schedule.InsertBetween(req.Before, req.After, item); err != nil {
			return err
		}
		return tx.InsertItem(ctx, stageID, item)
	})
	if err != nil {
		return nil, err
	}
	return s.One(ctx, feisID, stageID)
}

// AttachPlaceholder adds a named gap between two neighbouring items.
func (s *Service) AttachPlaceholder(ctx context.Context, feisID, stageID string, req AttachRequest) (*Stage, error) {
	req.Name = sanitize.Text(req.Name)
	if err := s.validator.Struct(req); err != nil {
		return nil, errs.Validation(err)
	}
	id, err := ids.NewULID()
	if err != nil {
		return nil, fmt.Errorf("generate placeholder id: %w", err)
	}
	err = s.edit(ctx, feisID, stageID, "attach_placeholder", func(tx Repository, schedule *Schedule) error {
		item := Item{ID: id, Placeholder: true, Name: req.Name}
		if err := schedule.InsertBetween(req.Before, req.After, item); err != nil {
			return err
		}
		return tx.InsertItem(ctx, stageID, item)
	})
	if err != nil {
		return nil, err
	}
	return s.One(ctx, feisID, stageID)
}

// DetachEvent takes an event off its stage. stageID may be empty, in which
// case the stage is looked up. Detaching an unscheduled event does nothing
// and returns a nil stage.
func (s *Service) DetachEvent(ctx context.Context, feisID, stageID, eventID string) (*Stage, error) {
	if stageID == "" {
		found, err := s.repo.StageOf(ctx, feisID, eventID)
		if err != nil {
			return nil, err
		}
		if found == "" {
			return nil, nil
		}
		stageID = found
	}

	err := s.edit(ctx, feisID, stageID, "detach_event", func(tx Repository, schedule *Schedule) error {
		item, ok := schedule.Item(eventID)
		if !ok || item.Placeholder {
			return nil
		}
		schedule.Remove(eventID)
		return tx.DeleteItem(ctx, stageID, eventID)
	})
	if err != nil {
		return nil, err
	}
	return s.One(ctx, feisID, stageID)
}

func (s *Service) DetachPlaceholder(ctx context.Context, feisID, stageID, itemID string) (*Stage, error) {
	err := s.edit(ctx, feisID, stageID, "detach_placeholder", func(tx Repository, schedule *Schedule) error {
		item, ok := schedule.Item(itemID)
		if !ok || !item.Placeholder {
			return ErrPlaceholderNotFound
		}
		schedule.Remove(itemID)
		return tx.DeleteItem(ctx, stageID, itemID)
	})
	if err != nil {
		return nil, err
	}
	return s.One(ctx, feisID, stageID)
}

// Remove deletes a stage. Its events return to the unscheduled list.
func (s *Service) Remove(ctx context.Context, feisID, id string) error {
	err := s.repo.WithTransaction(ctx, func(tx Repository) error {
		if _, err := tx.Lock(ctx, feisID, id); err != nil {
			return err
		}
		return tx.Delete(ctx, feisID, id)
	})
	if err != nil {
		return err
	}
	metrics.StageEdits.WithLabelValues("remove").Inc()
	s.logger.Info().Str("feis_id", feisID).Str("stage_id", id).Msg("stage removed")
	return nil
}

// edit runs fn against the locked schedule of a stage and stores the
// resulting links in the same transaction.
func (s *Service) edit(ctx context.Context, feisID, stageID, op string, fn func(tx Repository, schedule *Schedule) error) error {
	err := s.repo.WithTransaction(ctx, func(tx Repository) error {
		stage, err := tx.Lock(ctx, feisID, stageID)
		if err != nil {
			return err
		}
		schedule, err := s.load(ctx, tx, stage)
		if err != nil {
			return err
		}
		before := schedule.Len()
		if err := fn(tx, schedule); err != nil {
			return err
		}
		if schedule.Len() == before {
			return nil
		}
		return tx.SaveLinks(ctx, stageID, schedule.Head(), schedule.Links())
	})
	if err != nil {
		if errors.Is(err, ErrCorruptSchedule) {
			s.logger.Error().Err(err).Str("stage_id", stageID).Str("operation", op).Msg("refusing to edit corrupt stage")
		}
		return err
	}
	metrics.StageEdits.WithLabelValues(op).Inc()
	s.logger.Debug().Str("feis_id", feisID).Str("stage_id", stageID).Str("operation", op).Msg("stage edited")
	return nil
}

func (s *Service) load(ctx context.Context, repo Repository, stage *Stage) (*Schedule, error) {
	items, err := repo.Items(ctx, stage.ID)
	if err != nil {
		return nil, err
	}
	return BuildSchedule(stage.ID, stage.HeadID, items)
}

func (s *Service) validate(input *Input) error {
	input.Name = sanitize.Text(input.Name)
	input.Details = sanitize.Text(input.Details)
	if err := s.validator.Struct(input); err != nil {
		return errs.Validation(err)
	}
	return nil
}
