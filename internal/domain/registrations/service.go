package registrations

import (
	"context"
	"time"

	"github.com/ifeis/server/internal/domain/errs"
	"github.com/ifeis/server/internal/domain/events"
	"github.com/rs/zerolog"
)

type Service struct {
	repo   Repository
	now    func() time.Time
	logger zerolog.Logger
}

func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		now:    time.Now,
		logger: logger.With().Str("component", "registrations").Logger(),
	}
}

// All lists the active events the person is entered in.
func (s *Service) All(ctx context.Context, feisID, personID string) ([]events.Participant, error) {
	return s.repo.All(ctx, feisID, personID)
}

// Create enters a person into an event. The owning account saves the feis,
// with the late fee assessed once registration has gone late, and the person
// gets a competitor number if they have none yet.
func (s *Service) Create(ctx context.Context, feisID, personID, eventID string) (*events.Participant, error) {
	var reg *events.Participant
	err := s.repo.WithTransaction(ctx, func(tx Repository) error {
		feis, err := tx.LockFeis(ctx, feisID)
		if err != nil {
			return err
		}
		accountID, err := tx.OwnerOf(ctx, personID)
		if err != nil {
			return err
		}
		late := feis.RegLate != nil && s.now().After(*feis.RegLate)
		if err := tx.EnsureSaved(ctx, feisID, accountID, late); err != nil {
			return err
		}
		num, err := tx.EnsureRegistered(ctx, feisID, personID)
		if err != nil {
			return err
		}
		if reg, err = tx.Participate(ctx, feisID, eventID, personID); err != nil {
			return err
		}
		reg.Competitor = &num
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug().Str("feis_id", feisID).Str("event_id", eventID).Str("person_id", personID).Msg("registered")
	return reg, nil
}

func (s *Service) Delete(ctx context.Context, feisID, personID, eventID string) error {
	return s.repo.Delete(ctx, feisID, eventID, personID)
}

// ChangeNum gives a registered person a different competitor number.
// Asking for the number they already hold is a no-op.
func (s *Service) ChangeNum(ctx context.Context, feisID, personID string, num int) (*events.Competitor, error) {
	if num < 1 {
		return nil, errs.Invalid("Competitor numbers must be positive.")
	}
	var out *events.Competitor
	err := s.repo.WithTransaction(ctx, func(tx Repository) error {
		if _, err := tx.LockFeis(ctx, feisID); err != nil {
			return err
		}
		taken, err := tx.NumberInUse(ctx, feisID, personID, num)
		if err != nil {
			return err
		}
		if taken {
			return ErrNumberInUse
		}
		out, err = tx.SetNumber(ctx, feisID, personID, num)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
