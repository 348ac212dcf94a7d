package accounts

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/ifeis/server/internal/domain/errs"
	"github.com/ifeis/server/internal/domain/ids"
	"github.com/ifeis/server/internal/email"
	"github.com/ifeis/server/internal/sanitize"
	"github.com/rs/zerolog"
)

type Service struct {
	repo      Repository
	mail      email.Queue
	validator *validator.Validate
	logger    zerolog.Logger
}

func NewService(repo Repository, mail email.Queue, logger zerolog.Logger) *Service {
	return &Service{
		repo:      repo,
		mail:      mail,
		validator: validator.New(),
		logger:    logger.With().Str("component", "accounts").Logger(),
	}
}

func (s *Service) Get(ctx context.Context, id string) (*Person, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) GetByEmail(ctx context.Context, address string) (*Person, error) {
	return s.repo.GetByEmail(ctx, normalizeEmail(address))
}

func (s *Service) Person(ctx context.Context, id string) (*Person, error) {
	return s.repo.GetPerson(ctx, id)
}

func (s *Service) Update(ctx context.Context, id string, update AccountUpdate) (*Person, error) {
	update = AccountUpdate{
		FName:   sanitize.Text(update.FName),
		LName:   sanitize.Text(update.LName),
		Phone:   sanitize.Text(update.Phone),
		Address: sanitize.Text(update.Address),
		City:    sanitize.Text(update.City),
		State:   sanitize.Text(update.State),
		Zip:     sanitize.Text(update.Zip),
		Country: sanitize.Text(update.Country),
	}
	if err := s.validator.Struct(update); err != nil {
		return nil, errs.Validation(err)
	}
	return s.repo.Update(ctx, id, update)
}

func (s *Service) Dependents(ctx context.Context, accountID string) ([]Person, error) {
	return s.repo.Dependents(ctx, accountID)
}

// FromPerson returns the account responsible for a person: the owning
// account of a dependent, or the person itself when it is an account.
func (s *Service) FromPerson(ctx context.Context, personID string) (*Person, error) {
	p, err := s.repo.GetPerson(ctx, personID)
	if err != nil {
		return nil, err
	}
	if p.IsAccount || p.AccountID == "" {
		return s.repo.Get(ctx, p.ID)
	}
	return s.repo.Get(ctx, p.AccountID)
}

func (s *Service) CreateDependent(ctx context.Context, accountID string, input DependentInput) (*Person, error) {
	p, err := s.dependentFromInput(accountID, input)
	if err != nil {
		return nil, err
	}
	if p.ID, err = ids.NewULID(); err != nil {
		return nil, fmt.Errorf("generate person id: %w", err)
	}
	return s.repo.CreateDependent(ctx, p)
}

// UpdateDependent replaces a dependent's details. The dependent must belong
// to accountID.
func (s *Service) UpdateDependent(ctx context.Context, accountID, personID string, input DependentInput) (*Person, error) {
	p, err := s.dependentFromInput(accountID, input)
	if err != nil {
		return nil, err
	}
	p.ID = personID
	return s.repo.UpdateDependent(ctx, p)
}

func (s *Service) dependentFromInput(accountID string, input DependentInput) (Person, error) {
	input.FName = sanitize.Text(input.FName)
	input.LName = sanitize.Text(input.LName)
	input.Gender = strings.ToUpper(strings.TrimSpace(input.Gender))
	if err := s.validator.Struct(input); err != nil {
		return Person{}, errs.Validation(err)
	}
	return Person{
		AccountID: accountID,
		FName:     input.FName,
		LName:     input.LName,
		Gender:    input.Gender,
		DOB:       input.DOB,
		SchoolID:  input.SchoolID,
	}, nil
}

// ConnectStripe records the Connect access token that makes accountID the
// payee for feisID.
func (s *Service) ConnectStripe(ctx context.Context, accountID, feisID string, stripe StripeAccount) error {
	id, err := ids.NewULID()
	if err != nil {
		return fmt.Errorf("generate stripe account id: %w", err)
	}
	stripe.ID = id
	stripe.AccountID = accountID
	stripe.FeisID = feisID
	if err := s.repo.SaveStripeAccount(ctx, stripe); err != nil {
		return err
	}
	s.logger.Info().
		Str("account_id", accountID).
		Str("feis_id", feisID).
		Bool("livemode", stripe.Livemode).
		Msg("stripe account connected")
	return nil
}

// MergeByEmail returns the account for address, creating a placeholder
// account when nobody has used it yet.
func (s *Service) MergeByEmail(ctx context.Context, address, fname, lname string) (*Person, bool, error) {
	address = normalizeEmail(address)
	if err := s.validator.Var(address, "required,email"); err != nil {
		return nil, false, errs.Invalid("A valid email address is required.")
	}
	id, err := ids.NewULID()
	if err != nil {
		return nil, false, fmt.Errorf("generate account id: %w", err)
	}
	return s.repo.UpsertByEmail(ctx, Person{
		ID:        id,
		IsAccount: true,
		Email:     address,
		FName:     sanitize.Text(fname),
		LName:     sanitize.Text(lname),
	})
}

// GetOrCreate resolves the account behind a provider login. Accounts are
// matched by identity first, then by email; a missing name is filled from
// the profile. The first login of an account queues the welcome email.
func (s *Service) GetOrCreate(ctx context.Context, profile Profile) (*Person, error) {
	if acct, err := s.repo.GetByIdentity(ctx, profile.Provider, profile.Subject); err == nil {
		return acct, nil
	} else if !errors.Is(err, errs.ErrNotFound) {
		return nil, err
	}

	acct, created, err := s.MergeByEmail(ctx, profile.Email, profile.FName, profile.LName)
	if err != nil {
		return nil, err
	}
	if err := s.repo.LinkIdentity(ctx, acct.ID, profile.Provider, profile.Subject); err != nil {
		return nil, err
	}
	if !created && (acct.FName == "" || acct.LName == "") {
		if err := s.repo.FillName(ctx, acct.ID, sanitize.Text(profile.FName), sanitize.Text(profile.LName)); err != nil {
			return nil, err
		}
		if acct.FName == "" {
			acct.FName = sanitize.Text(profile.FName)
		}
		if acct.LName == "" {
			acct.LName = sanitize.Text(profile.LName)
		}
	}

	if !acct.Welcomed {
		if err := s.mail.Enqueue(ctx, email.Message{
			Template: email.TemplateWelcome,
			Subject:  "Welcome to iFeis!",
			To:       acct.Email,
			Data:     map[string]any{"FName": acct.FName, "LName": acct.LName},
		}); err != nil {
			return nil, fmt.Errorf("queue welcome email: %w", err)
		}
		if err := s.repo.MarkWelcomed(ctx, acct.ID); err != nil {
			return nil, err
		}
		acct.Welcomed = true
	}

	s.logger.Info().
		Str("account_id", acct.ID).
		Str("provider", profile.Provider).
		Bool("created", created).
		Msg("account login")
	return acct, nil
}

func normalizeEmail(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}
