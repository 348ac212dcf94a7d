package catalog

import (
	"context"
	"testing"

	"github.com/ifeis/server/internal/domain/errs"
	"github.com/stretchr/testify/require"
)

// stubRepository keeps schools and adjudicators in memory. Methods a test
// does not need fall through to the nil embedded interface.
type stubRepository struct {
	Repository
	schools      map[string]School
	adjudicators map[string]Adjudicator
	attached     map[string][]string
}

func newStubRepository() *stubRepository {
	return &stubRepository{
		schools:      map[string]School{},
		adjudicators: map[string]Adjudicator{},
		attached:     map[string][]string{},
	}
}

func (r *stubRepository) CreateSchool(_ context.Context, school School) (*School, error) {
	r.schools[school.ID] = school
	return &school, nil
}

func (r *stubRepository) UpdateSchool(_ context.Context, school School) (*School, error) {
	if _, ok := r.schools[school.ID]; !ok {
		return nil, ErrSchoolNotFound
	}
	r.schools[school.ID] = school
	return &school, nil
}

func (r *stubRepository) CreateAdjudicator(_ context.Context, adj Adjudicator) (*Adjudicator, error) {
	r.adjudicators[adj.ID] = adj
	return &adj, nil
}

func (r *stubRepository) GetAdjudicator(_ context.Context, id string) (*Adjudicator, error) {
	adj, ok := r.adjudicators[id]
	if !ok {
		return nil, ErrAdjudicatorNotFound
	}
	return &adj, nil
}

func (r *stubRepository) AttachAdjudicator(_ context.Context, feisID, adjudicatorID string) error {
	r.attached[feisID] = append(r.attached[feisID], adjudicatorID)
	return nil
}

func TestCreateSchool_SanitizesAndAssignsID(t *testing.T) {
	repo := newStubRepository()
	svc := NewService(repo)

	school, err := svc.CreateSchool(context.Background(), SchoolInput{
		Name:    "<b>Scoil Rince</b> Ní Bhriain",
		Teacher: "Máire Ní Bhriain",
	})
	require.NoError(t, err)
	require.NotEmpty(t, school.ID)
	require.Equal(t, "Scoil Rince Ní Bhriain", school.Name)
	require.Contains(t, repo.schools, school.ID)
}

func TestCreateSchool_RequiresName(t *testing.T) {
	svc := NewService(newStubRepository())

	_, err := svc.CreateSchool(context.Background(), SchoolInput{})
	require.ErrorIs(t, err, errs.ErrInvalid)
}

func TestUpdateSchool_NotFound(t *testing.T) {
	svc := NewService(newStubRepository())

	_, err := svc.UpdateSchool(context.Background(), "missing", SchoolInput{Name: "x"})
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestAttachAdjudicator(t *testing.T) {
	repo := newStubRepository()
	svc := NewService(repo)

	adj, err := svc.CreateAdjudicator(context.Background(), AdjudicatorInput{FName: "Pádraig", LName: "Kelly"})
	require.NoError(t, err)

	got, err := svc.AttachAdjudicator(context.Background(), "feis-1", adj.ID)
	require.NoError(t, err)
	require.Equal(t, "Kelly", got.LName)
	require.Equal(t, []string{adj.ID}, repo.attached["feis-1"])

	_, err = svc.AttachAdjudicator(context.Background(), "feis-1", "missing")
	require.ErrorIs(t, err, errs.ErrNotFound)
}
