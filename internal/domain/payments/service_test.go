package payments

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ifeis/server/internal/domain/errs"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type stubRepository struct {
	Repository
	payee    *Payee
	ledgers  []Ledger
	recorded []Payment
}

func (r *stubRepository) Payee(context.Context, string, string) (*Payee, error) {
	return r.payee, nil
}

func (r *stubRepository) Ledgers(context.Context, string) ([]Ledger, error) {
	return r.ledgers, nil
}

func (r *stubRepository) Ledger(context.Context, string, string) (*Ledger, error) {
	if len(r.ledgers) == 0 {
		return nil, nil
	}
	return &r.ledgers[0], nil
}

func (r *stubRepository) Record(_ context.Context, p Payment) (*Payment, error) {
	p.CreatedAt = time.Now()
	r.recorded = append(r.recorded, p)
	return &p, nil
}

type stubCharger struct {
	req ChargeRequest
	err error
}

func (c *stubCharger) Charge(_ context.Context, req ChargeRequest) (*Charge, error) {
	c.req = req
	if c.err != nil {
		return nil, c.err
	}
	return &Charge{ID: "ch_123", Paid: true, Currency: "usd"}, nil
}

func TestCreditFromStripe(t *testing.T) {
	repo := &stubRepository{payee: &Payee{
		FeisName:    "Feis Ceoil",
		AccessToken: "sk_connected",
		InviteFee:   10000,
		FeesPaid:    9000,
		Email:       "parent@example.com",
		FName:       "Nora",
		LName:       "Byrne",
	}}
	charger := &stubCharger{}
	svc := NewService(repo, charger, zerolog.Nop())

	p, err := svc.CreditFromStripe(context.Background(), "feis", "acct", CardInput{Amount: 5000, Token: "tok_visa"})
	require.NoError(t, err)
	require.Equal(t, int64(1000), p.IFeisFee)
	require.Equal(t, MediumCard, p.Medium)
	require.Equal(t, "ch_123", p.VendorID)
	require.True(t, p.Paid)

	require.Equal(t, "sk_connected", charger.req.AccessToken)
	require.Equal(t, int64(5000), charger.req.Amount)
	require.Equal(t, int64(1000), charger.req.ApplicationFee)
	require.Equal(t, "iFeis: Feis Ceoil", charger.req.StatementDescriptor)
	require.Equal(t, "[Feis Ceoil] Nora Byrne", charger.req.Description)
	require.Equal(t, p.ID, charger.req.Metadata["payment_id"])
}

func TestCreditFromStripe_NoPayee(t *testing.T) {
	svc := NewService(&stubRepository{}, &stubCharger{}, zerolog.Nop())
	_, err := svc.CreditFromStripe(context.Background(), "feis", "acct", CardInput{Amount: 5000, Token: "tok"})
	require.ErrorIs(t, err, ErrCannotAcceptPayments)
	require.Equal(t, "This feis cannot accept payments yet.", errs.Message(err))
}

func TestCreditFromStripe_ChargeFails(t *testing.T) {
	repo := &stubRepository{payee: &Payee{AccessToken: "sk"}}
	svc := NewService(repo, &stubCharger{err: errors.New("card declined")}, zerolog.Nop())
	_, err := svc.CreditFromStripe(context.Background(), "feis", "acct", CardInput{Amount: 5000, Token: "tok"})
	require.ErrorContains(t, err, "card declined")
	require.Empty(t, repo.recorded)
}

func TestCredit(t *testing.T) {
	repo := &stubRepository{}
	svc := NewService(repo, nil, zerolog.Nop())

	p, err := svc.Credit(context.Background(), "feis", "acct", CreditInput{Amount: 2500, Description: "cash at the door"})
	require.NoError(t, err)
	require.Equal(t, MediumOffline, p.Medium)
	require.Zero(t, p.IFeisFee)
	require.True(t, p.Paid)

	_, err = svc.Credit(context.Background(), "feis", "acct", CreditInput{Amount: 0})
	require.ErrorIs(t, err, errs.ErrInvalid)
}

func TestDue(t *testing.T) {
	owing := ledger()
	settled := ledger()
	settled.Feis.ID = "settled"
	settled.Credits = 100000
	svc := NewService(&stubRepository{ledgers: []Ledger{owing, settled}}, nil, zerolog.Nop())
	svc.now = func() time.Time { return before }

	due, err := svc.Due(context.Background(), "acct")
	require.NoError(t, err)
	require.Len(t, due, 1)
	require.Equal(t, "feis", due[0].Feis.ID)
	require.Equal(t, int64(4000), due[0].Balance)
}

func TestDebits_NotSaved(t *testing.T) {
	svc := NewService(&stubRepository{}, nil, zerolog.Nop())
	fees, err := svc.Debits(context.Background(), "feis", "acct")
	require.NoError(t, err)
	require.Empty(t, fees)
}
