package scores

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/ifeis/server/internal/domain/catalog"
	"github.com/ifeis/server/internal/domain/errs"
	"github.com/ifeis/server/internal/domain/events"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type memoryRepository struct {
	mu           sync.Mutex
	event        events.Event
	participants []events.Competitor
	scores       map[string]Score
	stored       map[string]Stored
	saves        int
}

func newMemoryRepository(personIDs ...string) *memoryRepository {
	return &memoryRepository{
		event:        events.Event{ID: "event", FeisID: "feis", InResults: true},
		participants: competitors(personIDs...),
		scores:       map[string]Score{},
		stored:       map[string]Stored{},
	}
}

func (r *memoryRepository) Event(_ context.Context, feisID, eventID string, _ bool) (*events.Event, error) {
	if feisID != r.event.FeisID || eventID != r.event.ID {
		return nil, events.ErrNotFound
	}
	e := r.event
	return &e, nil
}

func (r *memoryRepository) Participants(context.Context, string, string) ([]events.Competitor, error) {
	return r.participants, nil
}

func (r *memoryRepository) IsParticipant(_ context.Context, _, personID string) (bool, error) {
	for _, p := range r.participants {
		if p.ID == personID {
			return true, nil
		}
	}
	return false, nil
}

func (r *memoryRepository) Scoresheet(_ context.Context, _, adjudicatorID string) ([]SheetRow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rows := map[string]*SheetRow{}
	var order []string
	for _, s := range r.scores {
		if s.AdjudicatorID != adjudicatorID {
			continue
		}
		if rows[s.PersonID] == nil {
			rows[s.PersonID] = &SheetRow{PersonID: s.PersonID}
			order = append(order, s.PersonID)
		}
		rows[s.PersonID].Scores = append(rows[s.PersonID].Scores, s)
	}
	sort.Strings(order)
	out := make([]SheetRow, 0, len(order))
	for _, id := range order {
		out = append(out, *rows[id])
	}
	return out, nil
}

func (r *memoryRepository) Create(_ context.Context, s Score) (*Score, error) {
	r.scores[s.ID] = s
	return &s, nil
}

func (r *memoryRepository) Update(_ context.Context, s Score) (*Score, error) {
	old, ok := r.scores[s.ID]
	if !ok || old.AdjudicatorID != s.AdjudicatorID {
		return nil, ErrNotFound
	}
	s.PersonID, s.CreatedAt = old.PersonID, old.CreatedAt
	r.scores[s.ID] = s
	return &s, nil
}

func (r *memoryRepository) Delete(_ context.Context, _, scoreID string) error {
	if _, ok := r.scores[scoreID]; !ok {
		return ErrNotFound
	}
	delete(r.scores, scoreID)
	return nil
}

func (r *memoryRepository) DeleteAll(_ context.Context, _, adjudicatorID string) (int64, error) {
	var n int64
	for id, s := range r.scores {
		if s.AdjudicatorID == adjudicatorID {
			delete(r.scores, id)
			n++
		}
	}
	return n, nil
}

func (r *memoryRepository) Adjudicators(context.Context, string) ([]catalog.Adjudicator, error) {
	seen := map[string]bool{}
	var out []catalog.Adjudicator
	for _, s := range r.scores {
		if !seen[s.AdjudicatorID] {
			seen[s.AdjudicatorID] = true
			out = append(out, catalog.Adjudicator{ID: s.AdjudicatorID, LName: s.AdjudicatorID})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LName < out[j].LName })
	return out, nil
}

func (r *memoryRepository) SavePlacements(_ context.Context, _ string, records []Stored) error {
	r.saves++
	for _, rec := range records {
		r.stored[rec.PersonID] = rec
	}
	return nil
}

func (r *memoryRepository) Placements(context.Context, string) ([]events.Competitor, error) {
	var out []events.Competitor
	for _, p := range r.participants {
		if rec, ok := r.stored[p.ID]; ok && rec.Placement != nil {
			c := p
			c.Reg.Placement = rec.Placement
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return *out[i].Reg.Placement < *out[j].Reg.Placement })
	return out, nil
}

func (r *memoryRepository) WithTransaction(_ context.Context, fn func(txRepo Repository) error) error {
	return fn(r)
}

func scoreAll(t *testing.T, svc *Service, adjudicatorID string, values map[string]float64) {
	t.Helper()
	for personID, v := range values {
		_, err := svc.Create(context.Background(), "feis", "event", adjudicatorID, personID, Input{Round: 1, Value: v})
		require.NoError(t, err)
	}
}

func TestCreate(t *testing.T) {
	repo := newMemoryRepository("p1")
	svc := NewService(repo, zerolog.Nop())

	s, err := svc.Create(context.Background(), "feis", "event", "adj", "p1", Input{Round: 1, Value: 72.5, Comments: "<i>nice</i> turnout"})
	require.NoError(t, err)
	require.NotEmpty(t, s.ID)
	require.False(t, s.CreatedAt.IsZero())
	require.Equal(t, "nice turnout", s.Comments)

	_, err = svc.Create(context.Background(), "feis", "event", "adj", "stranger", Input{Round: 1, Value: 50})
	require.ErrorIs(t, err, ErrParticipantNotFound)

	_, err = svc.Create(context.Background(), "feis", "event", "adj", "p1", Input{Round: 0, Value: 50})
	require.ErrorIs(t, err, errs.ErrInvalid)

	_, err = svc.Create(context.Background(), "other", "event", "adj", "p1", Input{Round: 1, Value: 50})
	require.True(t, errors.Is(err, errs.ErrNotFound))
}

func TestCachePlacements_Idempotent(t *testing.T) {
	repo := newMemoryRepository("p1", "p2", "p3")
	svc := NewService(repo, zerolog.Nop())
	scoreAll(t, svc, "adj1", map[string]float64{"p1": 80, "p2": 90})
	scoreAll(t, svc, "adj2", map[string]float64{"p1": 85, "p2": 70})

	first, err := svc.CachePlacements(context.Background(), "feis", "event")
	require.NoError(t, err)
	snapshot := map[string]Stored{}
	for k, v := range repo.stored {
		snapshot[k] = v
	}

	second, err := svc.CachePlacements(context.Background(), "feis", "event")
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, snapshot, repo.stored)
	require.Equal(t, 2, repo.saves)

	require.Len(t, first, 3)
	require.Equal(t, "p3", first[2].PersonID, "unscored participants sort last")
	require.Nil(t, first[2].Placement)
	require.False(t, first[2].Placed)
	require.Equal(t, 1, *first[0].Placement)
}

func TestCachePlacements_ClearsRemovedScores(t *testing.T) {
	repo := newMemoryRepository("p1", "p2")
	svc := NewService(repo, zerolog.Nop())
	scoreAll(t, svc, "adj1", map[string]float64{"p1": 80, "p2": 90})

	_, err := svc.CachePlacements(context.Background(), "feis", "event")
	require.NoError(t, err)
	require.NotNil(t, repo.stored["p1"].Placement)

	require.NoError(t, svc.DeleteAll(context.Background(), "feis", "event", "adj1"))
	_, err = svc.CachePlacements(context.Background(), "feis", "event")
	require.NoError(t, err)
	require.Nil(t, repo.stored["p1"].Placement)
	require.Nil(t, repo.stored["p2"].ComputedTotal)
}

func TestCalculatePlacements_Details(t *testing.T) {
	repo := newMemoryRepository("p1", "p2", "p3")
	svc := NewService(repo, zerolog.Nop())
	scoreAll(t, svc, "adj1", map[string]float64{"p1": 80, "p2": 90, "p3": 70})
	scoreAll(t, svc, "adj2", map[string]float64{"p1": 85, "p2": 70, "p3": 60})
	scoreAll(t, svc, "adj3", map[string]float64{"p1": 60, "p2": 95, "p3": 99})

	plain, err := svc.CalculatePlacements(context.Background(), "feis", "event", false)
	require.NoError(t, err)
	require.Len(t, plain, 3)
	for _, r := range plain {
		require.Nil(t, r.Marks)
	}
	for i := 1; i < len(plain); i++ {
		require.LessOrEqual(t, plain[i-1].Placement, plain[i].Placement)
	}

	detailed, err := svc.CalculatePlacements(context.Background(), "feis", "event", true)
	require.NoError(t, err)
	for _, r := range detailed {
		require.Len(t, r.Marks, 3)
		require.Equal(t, "adj1", r.Marks[0].AdjudicatorID)
	}
}

func TestPlacements_Visibility(t *testing.T) {
	repo := newMemoryRepository("p1")
	svc := NewService(repo, zerolog.Nop())
	scoreAll(t, svc, "adj1", map[string]float64{"p1": 80})
	_, err := svc.CachePlacements(context.Background(), "feis", "event")
	require.NoError(t, err)

	list, err := svc.Placements(context.Background(), "feis", "event")
	require.NoError(t, err)
	require.Len(t, list, 1)

	repo.event.Recall = true
	list, err = svc.Placements(context.Background(), "feis", "event")
	require.NoError(t, err)
	require.Empty(t, list, "recall not announced yet")

	repo.event.Announced = true
	list, err = svc.Placements(context.Background(), "feis", "event")
	require.NoError(t, err)
	require.Len(t, list, 1)

	repo.event.InResults = false
	list, err = svc.Placements(context.Background(), "feis", "event")
	require.NoError(t, err)
	require.Empty(t, list)
}

func TestUpdateAndDelete(t *testing.T) {
	repo := newMemoryRepository("p1")
	svc := NewService(repo, zerolog.Nop())
	s, err := svc.Create(context.Background(), "feis", "event", "adj", "p1", Input{Round: 1, Value: 60})
	require.NoError(t, err)

	updated, err := svc.Update(context.Background(), "feis", "event", "adj", s.ID, Input{Round: 2, Value: 65})
	require.NoError(t, err)
	require.Equal(t, "p1", updated.PersonID)
	require.Equal(t, 65.0, updated.Value)

	_, err = svc.Update(context.Background(), "feis", "event", "other-adj", s.ID, Input{Round: 1, Value: 1})
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, svc.Delete(context.Background(), "feis", "event", s.ID))
	require.ErrorIs(t, svc.Delete(context.Background(), "feis", "event", s.ID), ErrNotFound)
}
