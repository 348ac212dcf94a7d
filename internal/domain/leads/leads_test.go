package leads

import (
	"context"
	"testing"

	"github.com/ifeis/server/internal/domain/accounts"
	"github.com/ifeis/server/internal/domain/errs"
	"github.com/ifeis/server/internal/email"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type stubRepository struct {
	leads []Lead
}

func (r *stubRepository) Create(_ context.Context, lead Lead) (*Lead, error) {
	r.leads = append(r.leads, lead)
	return &lead, nil
}

type stubAccounts struct{}

func (stubAccounts) MergeByEmail(_ context.Context, address, fname, lname string) (*accounts.Person, bool, error) {
	return &accounts.Person{ID: "acct-1", Email: address, FName: fname, LName: lname}, true, nil
}

type recordingQueue struct {
	sent []email.Message
}

func (q *recordingQueue) Enqueue(_ context.Context, msg email.Message) error {
	q.sent = append(q.sent, msg)
	return nil
}

func TestCreate(t *testing.T) {
	repo := &stubRepository{}
	mail := &recordingQueue{}
	svc := NewService(repo, stubAccounts{}, mail, "team@ifeis.net", zerolog.Nop())

	lead, err := svc.Create(context.Background(), Input{
		FName:        "Maeve",
		LName:        "Walsh",
		Email:        "maeve@example.com",
		Organisation: "Walsh Academy",
		Message:      "We'd like to run our feis <script>x</script>on iFeis.",
	})
	require.NoError(t, err)
	require.Equal(t, "acct-1", lead.AccountID)
	require.NotContains(t, lead.Message, "<script>")
	require.Len(t, repo.leads, 1)

	require.Len(t, mail.sent, 1)
	msg := mail.sent[0]
	require.Equal(t, email.TemplateLeadAcquisition, msg.Template)
	require.Equal(t, "team@ifeis.net", msg.To)
	require.Equal(t, "Maeve Walsh", msg.Data["Name"])
	require.Equal(t, "Walsh Academy", msg.Data["Organisation"])
}

func TestCreate_Invalid(t *testing.T) {
	repo := &stubRepository{}
	mail := &recordingQueue{}
	svc := NewService(repo, stubAccounts{}, mail, "team@ifeis.net", zerolog.Nop())

	_, err := svc.Create(context.Background(), Input{FName: "Maeve"})
	require.ErrorIs(t, err, errs.ErrInvalid)
	require.Empty(t, repo.leads)
	require.Empty(t, mail.sent)
}
