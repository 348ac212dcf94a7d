// Package leads records enquiries from people interested in running a feis
// on the platform and forwards them to the iFeis team.
package leads

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ifeis/server/internal/domain/accounts"
	"github.com/ifeis/server/internal/domain/errs"
	"github.com/ifeis/server/internal/domain/ids"
	"github.com/ifeis/server/internal/email"
	"github.com/ifeis/server/internal/sanitize"
	"github.com/rs/zerolog"
)

type Lead struct {
	ID           string    `json:"id"`
	AccountID    string    `json:"account_id"`
	FName        string    `json:"fname"`
	LName        string    `json:"lname"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone,omitempty"`
	Organisation string    `json:"organisation,omitempty"`
	Message      string    `json:"message,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

type Input struct {
	FName        string `json:"fname" validate:"required,max=100"`
	LName        string `json:"lname" validate:"max=100"`
	Email        string `json:"email" validate:"required,email"`
	Phone        string `json:"phone" validate:"max=50"`
	Organisation string `json:"organisation" validate:"max=200"`
	Message      string `json:"message" validate:"max=5000"`
}

type Repository interface {
	Create(ctx context.Context, lead Lead) (*Lead, error)
}

type AccountMerger interface {
	MergeByEmail(ctx context.Context, address, fname, lname string) (*accounts.Person, bool, error)
}

type Service struct {
	repo      Repository
	accounts  AccountMerger
	mail      email.Queue
	contactTo string
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewService forwards every lead to contactTo.
func NewService(repo Repository, accts AccountMerger, mail email.Queue, contactTo string, logger zerolog.Logger) *Service {
	return &Service{
		repo:      repo,
		accounts:  accts,
		mail:      mail,
		contactTo: contactTo,
		validator: validator.New(),
		logger:    logger.With().Str("component", "leads").Logger(),
	}
}

func (s *Service) Create(ctx context.Context, input Input) (*Lead, error) {
	if err := s.validator.Struct(input); err != nil {
		return nil, errs.Validation(err)
	}
	lead := Lead{
		FName:        sanitize.Text(input.FName),
		LName:        sanitize.Text(input.LName),
		Email:        sanitize.Text(input.Email),
		Phone:        sanitize.Text(input.Phone),
		Organisation: sanitize.Text(input.Organisation),
		Message:      sanitize.Text(input.Message),
	}

	person, _, err := s.accounts.MergeByEmail(ctx, lead.Email, lead.FName, lead.LName)
	if err != nil {
		return nil, err
	}
	lead.AccountID = person.ID
	if lead.ID, err = ids.NewULID(); err != nil {
		return nil, fmt.Errorf("generate lead id: %w", err)
	}

	saved, err := s.repo.Create(ctx, lead)
	if err != nil {
		return nil, err
	}

	err = s.mail.Enqueue(ctx, email.Message{
		Template: email.TemplateLeadAcquisition,
		Subject:  fmt.Sprintf("New lead: %s %s", lead.FName, lead.LName),
		To:       s.contactTo,
		Data: map[string]any{
			"Name":         person.FullName(),
			"Email":        lead.Email,
			"Phone":        lead.Phone,
			"Organisation": lead.Organisation,
			"Message":      lead.Message,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("queue lead email: %w", err)
	}

	s.logger.Info().Str("lead_id", saved.ID).Str("account_id", saved.AccountID).Msg("lead received")
	return saved, nil
}
