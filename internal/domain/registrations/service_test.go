package registrations

import (
	"context"
	"testing"
	"time"

	"github.com/ifeis/server/internal/domain/errs"
	"github.com/ifeis/server/internal/domain/events"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type memoryRepository struct {
	regLate      *time.Time
	owners       map[string]string
	saved        map[string]bool // account id -> assess late fee
	numbers      map[string]int
	participants map[[2]string]bool
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{
		owners:       map[string]string{"acct": "acct", "kid": "acct", "other": "other"},
		saved:        map[string]bool{},
		numbers:      map[string]int{},
		participants: map[[2]string]bool{},
	}
}

func (r *memoryRepository) All(_ context.Context, _, personID string) ([]events.Participant, error) {
	var out []events.Participant
	for key := range r.participants {
		if key[1] == personID {
			out = append(out, events.Participant{EventID: key[0], PersonID: personID})
		}
	}
	return out, nil
}

func (r *memoryRepository) LockFeis(_ context.Context, feisID string) (*FeisDates, error) {
	if feisID != "feis" {
		return nil, errs.NotFound("feis not found")
	}
	return &FeisDates{ID: feisID, RegLate: r.regLate}, nil
}

func (r *memoryRepository) OwnerOf(_ context.Context, personID string) (string, error) {
	owner, ok := r.owners[personID]
	if !ok {
		return "", ErrPersonUnknown
	}
	return owner, nil
}

func (r *memoryRepository) EnsureSaved(_ context.Context, _, accountID string, late bool) error {
	if _, ok := r.saved[accountID]; !ok {
		r.saved[accountID] = late
	}
	return nil
}

func (r *memoryRepository) EnsureRegistered(_ context.Context, _, personID string) (int, error) {
	if num, ok := r.numbers[personID]; ok {
		return num, nil
	}
	next := FirstNumber
	for _, n := range r.numbers {
		if n >= next {
			next = n + 1
		}
	}
	r.numbers[personID] = next
	return next, nil
}

func (r *memoryRepository) Participate(_ context.Context, _, eventID, personID string) (*events.Participant, error) {
	switch eventID {
	case "missing":
		return nil, events.ErrNotFound
	case "merged":
		return nil, events.ErrInactive
	}
	r.participants[[2]string{eventID, personID}] = true
	return &events.Participant{EventID: eventID, PersonID: personID}, nil
}

func (r *memoryRepository) Delete(_ context.Context, _, eventID, personID string) error {
	key := [2]string{eventID, personID}
	if !r.participants[key] {
		return events.ErrParticipantNotFound
	}
	delete(r.participants, key)
	return nil
}

func (r *memoryRepository) NumberInUse(_ context.Context, _, personID string, num int) (bool, error) {
	for pid, n := range r.numbers {
		if n == num && pid != personID {
			return true, nil
		}
	}
	return false, nil
}

func (r *memoryRepository) SetNumber(_ context.Context, _, personID string, num int) (*events.Competitor, error) {
	if _, ok := r.numbers[personID]; !ok {
		return nil, ErrNotRegistered
	}
	r.numbers[personID] = num
	c := &events.Competitor{Competitor: &num}
	c.ID = personID
	return c, nil
}

func (r *memoryRepository) WithTransaction(_ context.Context, fn func(txRepo Repository) error) error {
	return fn(r)
}

func TestCreate_NumbersAndSaves(t *testing.T) {
	repo := newMemoryRepository()
	svc := NewService(repo, zerolog.Nop())
	ctx := context.Background()

	reg, err := svc.Create(ctx, "feis", "kid", "e1")
	require.NoError(t, err)
	require.Equal(t, FirstNumber, *reg.Competitor)
	require.Contains(t, repo.saved, "acct", "the owning account saves the feis")
	require.False(t, repo.saved["acct"])

	reg, err = svc.Create(ctx, "feis", "kid", "e2")
	require.NoError(t, err)
	require.Equal(t, FirstNumber, *reg.Competitor, "a person keeps their number")

	reg, err = svc.Create(ctx, "feis", "acct", "e1")
	require.NoError(t, err)
	require.Equal(t, FirstNumber+1, *reg.Competitor)

	list, err := svc.All(ctx, "feis", "kid")
	require.NoError(t, err)
	require.Len(t, list, 2)
}

func TestCreate_LateFee(t *testing.T) {
	repo := newMemoryRepository()
	late := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	repo.regLate = &late
	svc := NewService(repo, zerolog.Nop())
	svc.now = func() time.Time { return late.Add(time.Hour) }

	_, err := svc.Create(context.Background(), "feis", "other", "e1")
	require.NoError(t, err)
	require.True(t, repo.saved["other"])
}

func TestCreate_Errors(t *testing.T) {
	svc := NewService(newMemoryRepository(), zerolog.Nop())
	ctx := context.Background()

	_, err := svc.Create(ctx, "nope", "kid", "e1")
	require.ErrorIs(t, err, errs.ErrNotFound)

	_, err = svc.Create(ctx, "feis", "ghost", "e1")
	require.ErrorIs(t, err, ErrPersonUnknown)

	_, err = svc.Create(ctx, "feis", "kid", "missing")
	require.ErrorIs(t, err, events.ErrNotFound)

	_, err = svc.Create(ctx, "feis", "kid", "merged")
	require.ErrorIs(t, err, events.ErrInactive)
}

func TestChangeNum(t *testing.T) {
	repo := newMemoryRepository()
	svc := NewService(repo, zerolog.Nop())
	ctx := context.Background()
	_, err := svc.Create(ctx, "feis", "kid", "e1")
	require.NoError(t, err)
	_, err = svc.Create(ctx, "feis", "acct", "e1")
	require.NoError(t, err)

	_, err = svc.ChangeNum(ctx, "feis", "acct", FirstNumber)
	require.ErrorIs(t, err, ErrNumberInUse)
	require.Equal(t, "Competitor number already in use.", errs.Message(err))

	c, err := svc.ChangeNum(ctx, "feis", "acct", 500)
	require.NoError(t, err)
	require.Equal(t, 500, *c.Competitor)

	// keeping the current number succeeds
	c, err = svc.ChangeNum(ctx, "feis", "acct", 500)
	require.NoError(t, err)
	require.Equal(t, 500, *c.Competitor)

	_, err = svc.ChangeNum(ctx, "feis", "other", 600)
	require.ErrorIs(t, err, ErrNotRegistered)

	_, err = svc.ChangeNum(ctx, "feis", "acct", 0)
	require.ErrorIs(t, err, errs.ErrInvalid)
}

func TestDelete(t *testing.T) {
	repo := newMemoryRepository()
	svc := NewService(repo, zerolog.Nop())
	_, err := svc.Create(context.Background(), "feis", "kid", "e1")
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), "feis", "kid", "e1"))
	require.ErrorIs(t, svc.Delete(context.Background(), "feis", "kid", "e1"), events.ErrParticipantNotFound)
}
