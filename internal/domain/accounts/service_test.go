package accounts

import (
	"context"
	"testing"

	"github.com/ifeis/server/internal/domain/errs"
	"github.com/ifeis/server/internal/email"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type recordingQueue struct {
	messages []email.Message
}

func (q *recordingQueue) Enqueue(_ context.Context, msg email.Message) error {
	q.messages = append(q.messages, msg)
	return nil
}

type memoryRepository struct {
	Repository
	people     map[string]*Person
	identities map[string]string
	stripe     []StripeAccount
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{people: map[string]*Person{}, identities: map[string]string{}}
}

func (r *memoryRepository) Get(_ context.Context, id string) (*Person, error) {
	p, ok := r.people[id]
	if !ok || !p.IsAccount {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *memoryRepository) GetPerson(_ context.Context, id string) (*Person, error) {
	p, ok := r.people[id]
	if !ok {
		return nil, ErrPersonNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *memoryRepository) GetByIdentity(ctx context.Context, provider, subject string) (*Person, error) {
	id, ok := r.identities[provider+":"+subject]
	if !ok {
		return nil, ErrNotFound
	}
	return r.Get(ctx, id)
}

func (r *memoryRepository) UpsertByEmail(_ context.Context, p Person) (*Person, bool, error) {
	for _, existing := range r.people {
		if existing.Email == p.Email {
			cp := *existing
			return &cp, false, nil
		}
	}
	r.people[p.ID] = &p
	cp := p
	return &cp, true, nil
}

func (r *memoryRepository) LinkIdentity(_ context.Context, accountID, provider, subject string) error {
	r.identities[provider+":"+subject] = accountID
	return nil
}

func (r *memoryRepository) FillName(_ context.Context, accountID, fname, lname string) error {
	p := r.people[accountID]
	if p.FName == "" {
		p.FName = fname
	}
	if p.LName == "" {
		p.LName = lname
	}
	return nil
}

func (r *memoryRepository) MarkWelcomed(_ context.Context, accountID string) error {
	r.people[accountID].Welcomed = true
	return nil
}

func (r *memoryRepository) CreateDependent(_ context.Context, p Person) (*Person, error) {
	r.people[p.ID] = &p
	return &p, nil
}

func (r *memoryRepository) SaveStripeAccount(_ context.Context, stripe StripeAccount) error {
	r.stripe = append(r.stripe, stripe)
	return nil
}

func newTestService() (*Service, *memoryRepository, *recordingQueue) {
	repo := newMemoryRepository()
	queue := &recordingQueue{}
	return NewService(repo, queue, zerolog.Nop()), repo, queue
}

func TestGetOrCreate_NewAccountGetsWelcome(t *testing.T) {
	svc, _, queue := newTestService()
	profile := Profile{Provider: "google", Subject: "g-1", Email: " Aoife@Example.com ", FName: "Aoife", LName: "Byrne"}

	acct, err := svc.GetOrCreate(context.Background(), profile)
	require.NoError(t, err)
	require.Equal(t, "aoife@example.com", acct.Email)
	require.Len(t, queue.messages, 1)
	require.Equal(t, email.TemplateWelcome, queue.messages[0].Template)
	require.Equal(t, "aoife@example.com", queue.messages[0].To)

	again, err := svc.GetOrCreate(context.Background(), profile)
	require.NoError(t, err)
	require.Equal(t, acct.ID, again.ID)
	require.Len(t, queue.messages, 1)
}

func TestGetOrCreate_PlaceholderIsWelcomedAndNamed(t *testing.T) {
	svc, repo, queue := newTestService()

	placeholder, created, err := svc.MergeByEmail(context.Background(), "chair@example.com", "", "")
	require.NoError(t, err)
	require.True(t, created)

	acct, err := svc.GetOrCreate(context.Background(), Profile{Provider: "google", Subject: "g-2", Email: "chair@example.com", FName: "Ciara", LName: "Walsh"})
	require.NoError(t, err)
	require.Equal(t, placeholder.ID, acct.ID)
	require.Equal(t, "Ciara", repo.people[acct.ID].FName)
	require.Len(t, queue.messages, 1)
}

func TestMergeByEmail_RejectsInvalidAddress(t *testing.T) {
	svc, _, _ := newTestService()

	_, _, err := svc.MergeByEmail(context.Background(), "nope", "", "")
	require.ErrorIs(t, err, errs.ErrInvalid)
}

func TestFromPerson(t *testing.T) {
	svc, repo, _ := newTestService()
	repo.people["acct"] = &Person{ID: "acct", IsAccount: true, Email: "p@example.com"}
	repo.people["kid"] = &Person{ID: "kid", AccountID: "acct"}

	acct, err := svc.FromPerson(context.Background(), "kid")
	require.NoError(t, err)
	require.Equal(t, "acct", acct.ID)

	self, err := svc.FromPerson(context.Background(), "acct")
	require.NoError(t, err)
	require.Equal(t, "acct", self.ID)

	_, err = svc.FromPerson(context.Background(), "missing")
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestCreateDependent_Validates(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.CreateDependent(context.Background(), "acct", DependentInput{FName: "Liam", LName: "Doyle", Gender: "x", SchoolID: "s"})
	require.ErrorIs(t, err, errs.ErrInvalid)

	p, err := svc.CreateDependent(context.Background(), "acct", DependentInput{FName: "Liam", LName: "Doyle", Gender: "m", SchoolID: "s"})
	require.NoError(t, err)
	require.Equal(t, "M", p.Gender)
	require.Equal(t, "acct", p.AccountID)
	require.NotEmpty(t, p.ID)
}

func TestConnectStripe(t *testing.T) {
	svc, repo, _ := newTestService()

	err := svc.ConnectStripe(context.Background(), "acct", "feis", StripeAccount{AccessToken: "sk_test", StripeUser: "acct_1"})
	require.NoError(t, err)
	require.Len(t, repo.stripe, 1)
	require.Equal(t, "feis", repo.stripe[0].FeisID)
	require.Equal(t, "acct", repo.stripe[0].AccountID)
}

func TestFullName(t *testing.T) {
	require.Equal(t, "Aoife Byrne", Person{FName: "Aoife", LName: "Byrne"}.FullName())
	require.Equal(t, "Byrne", Person{LName: "Byrne"}.FullName())
}
