package resources

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

func newID(kind string) (string, error) {
	id, err := ids.NewULID()
	if err != nil {
		return "", fmt.Errorf("generate %s id: %w", kind, err)
	}
	return id, nil
}

func (s *Service) Contacts(ctx context.Context, feisID string) ([]Contact, error) {
	return s.repo.Contacts(ctx, feisID)
}

func (s *Service) Contact(ctx context.Context, feisID, id string) (*Contact, error) {
	return s.repo.Contact(ctx, feisID, id)
}

func (s *Service) CreateContact(ctx context.Context, feisID string, input ContactInput) (*Contact, error) {
	if err := s.validate(input); err != nil {
		return nil, err
	}
	id, err := newID("contact")
	if err != nil {
		return nil, err
	}
	return s.repo.CreateContact(ctx, contactFromInput(feisID, id, input))
}

func (s *Service) UpdateContact(ctx context.Context, feisID, id string, input ContactInput) (*Contact, error) {
	if err := s.validate(input); err != nil {
		return nil, err
	}
	return s.repo.UpdateContact(ctx, contactFromInput(feisID, id, input))
}

func (s *Service) DeleteContact(ctx context.Context, feisID, id string) error {
	return s.repo.DeleteContact(ctx, feisID, id)
}

func contactFromInput(feisID, id string, input ContactInput) Contact {
	return Contact{
		ID:     id,
		FeisID: feisID,
		Name:   sanitize.Text(input.Name),
		Role:   sanitize.Text(input.Role),
		Email:  sanitize.Text(input.Email),
		Phone:  sanitize.Text(input.Phone),
	}
}

func (s *Service) Accommodations(ctx context.Context, feisID string) ([]Accommodation, error) {
	return s.repo.Accommodations(ctx, feisID)
}

func (s *Service) Accommodation(ctx context.Context, feisID, id string) (*Accommodation, error) {
	return s.repo.Accommodation(ctx, feisID, id)
}

func (s *Service) CreateAccommodation(ctx context.Context, feisID string, input AccommodationInput) (*Accommodation, error) {
	if err := s.validate(input); err != nil {
		return nil, err
	}
	id, err := newID("accommodation")
	if err != nil {
		return nil, err
	}
	return s.repo.CreateAccommodation(ctx, accommodationFromInput(feisID, id, input))
}

func (s *Service) UpdateAccommodation(ctx context.Context, feisID, id string, input AccommodationInput) (*Accommodation, error) {
	if err := s.validate(input); err != nil {
		return nil, err
	}
	return s.repo.UpdateAccommodation(ctx, accommodationFromInput(feisID, id, input))
}

func (s *Service) DeleteAccommodation(ctx context.Context, feisID, id string) error {
	return s.repo.DeleteAccommodation(ctx, feisID, id)
}

func accommodationFromInput(feisID, id string, input AccommodationInput) Accommodation {
	return Accommodation{
		ID:      id,
		FeisID:  feisID,
		Name:    sanitize.Text(input.Name),
		Address: sanitize.Text(input.Address),
		Phone:   sanitize.Text(input.Phone),
		URL:     input.URL,
		Rate:    sanitize.Text(input.Rate),
		Notes:   sanitize.Text(input.Notes),
	}
}

func (s *Service) Attachments(ctx context.Context, feisID string) ([]Attachment, error) {
	return s.repo.Attachments(ctx, feisID)
}

func (s *Service) Attachment(ctx context.Context, feisID, id string) (*Attachment, error) {
	return s.repo.Attachment(ctx, feisID, id)
}

// CreateAttachment records a document that has already been uploaded.
func (s *Service) CreateAttachment(ctx context.Context, feisID string, input AttachmentInput) (*Attachment, error) {
	if err := s.validate(input); err != nil {
		return nil, err
	}
	id, err := newID("attachment")
	if err != nil {
		return nil, err
	}
	return s.repo.CreateAttachment(ctx, Attachment{
		ID:     id,
		FeisID: feisID,
		Name:   sanitize.Text(input.Name),
		URL:    input.URL,
	})
}

func (s *Service) RenameAttachment(ctx context.Context, feisID, id string, input AttachmentRename) (*Attachment, error) {
	if err := s.validate(input); err != nil {
		return nil, err
	}
	return s.repo.RenameAttachment(ctx, feisID, id, sanitize.Text(input.Name))
}

func (s *Service) DeleteAttachment(ctx context.Context, feisID, id string) error {
	return s.repo.DeleteAttachment(ctx, feisID, id)
}
