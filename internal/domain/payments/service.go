package payments

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ifeis/server/internal/domain/errs"
	"github.com/ifeis/server/internal/domain/ids"
	"github.com/ifeis/server/internal/metrics"
	"github.com/ifeis/server/internal/sanitize"
	"github.com/rs/zerolog"
)

type Repository interface {
	// Ledger returns nil when the account has not saved the feis.
	Ledger(ctx context.Context, feisID, accountID string) (*Ledger, error)
	// Ledgers returns a ledger for every feis where the account has
	// active participations.
	Ledgers(ctx context.Context, accountID string) ([]Ledger, error)
	Credits(ctx context.Context, feisID, accountID string) ([]Payment, error)
	Record(ctx context.Context, p Payment) (*Payment, error)
	Recent(ctx context.Context, accountID string) ([]Payment, error)
	Summary(ctx context.Context, feisID string) (*Summary, error)
	// Payee returns nil when the feis has no connected Stripe account.
	Payee(ctx context.Context, feisID, accountID string) (*Payee, error)
}

// Charger creates card charges with the payment processor.
type Charger interface {
	Charge(ctx context.Context, req ChargeRequest) (*Charge, error)
}

type CreditInput struct {
	Amount      int64  `json:"amt" validate:"gt=0"`
	Description string `json:"description" validate:"max=500"`
}

type CardInput struct {
	Amount int64  `json:"amt" validate:"gt=0"`
	Token  string `json:"token" validate:"required"`
}

type Service struct {
	repo      Repository
	charger   Charger
	validator *validator.Validate
	now       func() time.Time
	logger    zerolog.Logger
}

func NewService(repo Repository, charger Charger, logger zerolog.Logger) *Service {
	return &Service{
		repo:      repo,
		charger:   charger,
		validator: validator.New(),
		now:       time.Now,
		logger:    logger.With().Str("component", "payments").Logger(),
	}
}

func (s *Service) Debits(ctx context.Context, feisID, accountID string) ([]Fee, error) {
	ledger, err := s.repo.Ledger(ctx, feisID, accountID)
	if err != nil {
		return nil, err
	}
	if ledger == nil {
		return []Fee{}, nil
	}
	return Debits(*ledger, s.now()), nil
}

func (s *Service) Credits(ctx context.Context, feisID, accountID string) ([]Payment, error) {
	return s.repo.Credits(ctx, feisID, accountID)
}

// Credit records a payment taken outside the platform.
func (s *Service) Credit(ctx context.Context, feisID, accountID string, input CreditInput) (*Payment, error) {
	input.Description = sanitize.Text(input.Description)
	if err := s.validator.Struct(input); err != nil {
		return nil, errs.Validation(err)
	}
	id, err := ids.NewULID()
	if err != nil {
		return nil, fmt.Errorf("generate payment id: %w", err)
	}
	return s.record(ctx, Payment{
		ID:          id,
		FeisID:      feisID,
		AccountID:   accountID,
		Amount:      input.Amount,
		Description: input.Description,
		Medium:      MediumOffline,
		Paid:        true,
		Currency:    Currency,
	})
}

// CreditFromStripe charges a card on behalf of the feis and records the
// payment. The platform's share of the invitation fee is taken as an
// application fee until it has been paid in full.
func (s *Service) CreditFromStripe(ctx context.Context, feisID, accountID string, input CardInput) (*Payment, error) {
	if err := s.validator.Struct(input); err != nil {
		return nil, errs.Validation(err)
	}
	payee, err := s.repo.Payee(ctx, feisID, accountID)
	if err != nil {
		return nil, err
	}
	if payee == nil || payee.AccessToken == "" {
		return nil, ErrCannotAcceptPayments
	}

	id, err := ids.NewULID()
	if err != nil {
		return nil, fmt.Errorf("generate payment id: %w", err)
	}
	appFee := ApplicationFee(input.Amount, payee.InviteFee, payee.FeesPaid)
	charge, err := s.charger.Charge(ctx, ChargeRequest{
		AccessToken:         payee.AccessToken,
		Amount:              input.Amount,
		ApplicationFee:      appFee,
		Source:              input.Token,
		Currency:            Currency,
		StatementDescriptor: StatementDescriptor(payee.FeisName),
		Description:         fmt.Sprintf("[%s] %s %s", payee.FeisName, payee.FName, payee.LName),
		ReceiptEmail:        payee.Email,
		Metadata: map[string]string{
			"payment_id":       id,
			"ifeis_account_id": accountID,
			"email_address":    payee.Email,
			"fname":            payee.FName,
			"lname":            payee.LName,
		},
	})
	if err != nil {
		metrics.PaymentFailures.WithLabelValues(MediumCard).Inc()
		return nil, fmt.Errorf("charge card: %w", err)
	}

	return s.record(ctx, Payment{
		ID:        id,
		FeisID:    feisID,
		AccountID: accountID,
		Amount:    input.Amount,
		IFeisFee:  appFee,
		Medium:    MediumCard,
		Vendor:    VendorStripe,
		VendorID:  charge.ID,
		Livemode:  charge.Livemode,
		Paid:      charge.Paid,
		Currency:  charge.Currency,
	})
}

// Due lists every feis where the account still owes money.
func (s *Service) Due(ctx context.Context, accountID string) ([]Balance, error) {
	ledgers, err := s.repo.Ledgers(ctx, accountID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	out := []Balance{}
	for _, l := range ledgers {
		if b := Outstanding(l, now); b.Balance > 0 {
			out = append(out, b)
		}
	}
	return out, nil
}

// Recent lists the account's payments, newest first.
func (s *Service) Recent(ctx context.Context, accountID string) ([]Payment, error) {
	return s.repo.Recent(ctx, accountID)
}

func (s *Service) Summary(ctx context.Context, feisID string) (*Summary, error) {
	return s.repo.Summary(ctx, feisID)
}

func (s *Service) record(ctx context.Context, p Payment) (*Payment, error) {
	saved, err := s.repo.Record(ctx, p)
	if err != nil {
		if p.Medium == MediumCard {
			// the card was charged; the payment must be reconciled by hand
			s.logger.Error().Err(err).
				Str("payment_id", p.ID).
				Str("vendor_id", p.VendorID).
				Int64("amount", p.Amount).
				Msg("charged card but failed to record payment")
		}
		return nil, err
	}
	metrics.PaymentsRecorded.WithLabelValues(p.Medium).Inc()
	metrics.PaymentAmount.WithLabelValues(p.Medium).Add(float64(p.Amount))
	s.logger.Info().
		Str("feis_id", p.FeisID).
		Str("account_id", p.AccountID).
		Str("medium", p.Medium).
		Int64("amount", p.Amount).
		Msg("payment recorded")
	return saved, nil
}
