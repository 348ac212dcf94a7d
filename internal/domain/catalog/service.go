package catalog

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/ifeis/server/internal/domain/errs"
	"github.com/ifeis/server/internal/domain/ids"
	"github.com/ifeis/server/internal/sanitize"
)

type Service struct {
	repo      Repository
	validator *validator.Validate
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, validator: validator.New()}
}

func (s *Service) validate(input any) error {
	if err := s.validator.Struct(input); err != nil {
		return errs.Validation(err)
	}
	return nil
}

func (s *Service) Schools(ctx context.Context) ([]School, error) {
	return s.repo.ListSchools(ctx)
}

func (s *Service) School(ctx context.Context, id string) (*School, error) {
	return s.repo.GetSchool(ctx, id)
}

func (s *Service) CreateSchool(ctx context.Context, input SchoolInput) (*School, error) {
	if err := s.validate(input); err != nil {
		return nil, err
	}
	id, err := ids.NewULID()
	if err != nil {
		return nil, fmt.Errorf("generate school id: %w", err)
	}
	return s.repo.CreateSchool(ctx, School{
		ID:      id,
		Name:    sanitize.Text(input.Name),
		Teacher: sanitize.Text(input.Teacher),
		Region:  sanitize.Text(input.Region),
	})
}

func (s *Service) UpdateSchool(ctx context.Context, id string, input SchoolInput) (*School, error) {
	if err := s.validate(input); err != nil {
		return nil, err
	}
	return s.repo.UpdateSchool(ctx, School{
		ID:      id,
		Name:    sanitize.Text(input.Name),
		Teacher: sanitize.Text(input.Teacher),
		Region:  sanitize.Text(input.Region),
	})
}

func (s *Service) DeleteSchool(ctx context.Context, id string) error {
	return s.repo.DeleteSchool(ctx, id)
}

func (s *Service) Dances(ctx context.Context) ([]Dance, error) {
	return s.repo.ListDances(ctx)
}

func (s *Service) Dance(ctx context.Context, id string) (*Dance, error) {
	return s.repo.GetDance(ctx, id)
}

func (s *Service) CreateDance(ctx context.Context, input DanceInput) (*Dance, error) {
	if err := s.validate(input); err != nil {
		return nil, err
	}
	id, err := ids.NewULID()
	if err != nil {
		return nil, fmt.Errorf("generate dance id: %w", err)
	}
	return s.repo.CreateDance(ctx, Dance{
		ID:           id,
		Name:         sanitize.Text(input.Name),
		Abbreviation: sanitize.Text(input.Abbreviation),
	})
}

func (s *Service) UpdateDance(ctx context.Context, id string, input DanceInput) (*Dance, error) {
	if err := s.validate(input); err != nil {
		return nil, err
	}
	return s.repo.UpdateDance(ctx, Dance{
		ID:           id,
		Name:         sanitize.Text(input.Name),
		Abbreviation: sanitize.Text(input.Abbreviation),
	})
}

func (s *Service) DeleteDance(ctx context.Context, id string) error {
	return s.repo.DeleteDance(ctx, id)
}

func (s *Service) Adjudicators(ctx context.Context) ([]Adjudicator, error) {
	return s.repo.ListAdjudicators(ctx)
}

func (s *Service) Adjudicator(ctx context.Context, id string) (*Adjudicator, error) {
	return s.repo.GetAdjudicator(ctx, id)
}

func (s *Service) CreateAdjudicator(ctx context.Context, input AdjudicatorInput) (*Adjudicator, error) {
	if err := s.validate(input); err != nil {
		return nil, err
	}
	id, err := ids.NewULID()
	if err != nil {
		return nil, fmt.Errorf("generate adjudicator id: %w", err)
	}
	return s.repo.CreateAdjudicator(ctx, adjudicatorFromInput(id, input))
}

func (s *Service) UpdateAdjudicator(ctx context.Context, id string, input AdjudicatorInput) (*Adjudicator, error) {
	if err := s.validate(input); err != nil {
		return nil, err
	}
	return s.repo.UpdateAdjudicator(ctx, adjudicatorFromInput(id, input))
}

func (s *Service) DeleteAdjudicator(ctx context.Context, id string) error {
	return s.repo.DeleteAdjudicator(ctx, id)
}

func (s *Service) FeisAdjudicators(ctx context.Context, feisID string) ([]Adjudicator, error) {
	return s.repo.FeisAdjudicators(ctx, feisID)
}

// AttachAdjudicator books an adjudicator for a feis. Attaching twice is a no-op.
func (s *Service) AttachAdjudicator(ctx context.Context, feisID, adjudicatorID string) (*Adjudicator, error) {
	adj, err := s.repo.GetAdjudicator(ctx, adjudicatorID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.AttachAdjudicator(ctx, feisID, adjudicatorID); err != nil {
		return nil, err
	}
	return adj, nil
}

func (s *Service) DetachAdjudicator(ctx context.Context, feisID, adjudicatorID string) error {
	return s.repo.DetachAdjudicator(ctx, feisID, adjudicatorID)
}

func adjudicatorFromInput(id string, input AdjudicatorInput) Adjudicator {
	return Adjudicator{
		ID:      id,
		FName:   sanitize.Text(input.FName),
		LName:   sanitize.Text(input.LName),
		Region:  sanitize.Text(input.Region),
		Details: sanitize.Text(input.Details),
	}
}
