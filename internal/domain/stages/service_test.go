package stages

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/ifeis/server/internal/domain/errs"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type memoryRepository struct {
	stages   map[string]Stage
	items    map[string]map[string]Item // stage id -> item id -> item
	inactive map[string]bool
	events   map[string]bool
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{
		stages:   map[string]Stage{},
		items:    map[string]map[string]Item{},
		inactive: map[string]bool{},
		events:   map[string]bool{},
	}
}

func (r *memoryRepository) All(_ context.Context, feisID string) ([]Stage, error) {
	var out []Stage
	for _, s := range r.stages {
		if s.FeisID == feisID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *memoryRepository) Get(_ context.Context, feisID, id string) (*Stage, error) {
	s, ok := r.stages[id]
	if !ok || s.FeisID != feisID {
		return nil, ErrNotFound
	}
	return &s, nil
}

func (r *memoryRepository) Create(_ context.Context, s Stage) (*Stage, error) {
	r.stages[s.ID] = s
	r.items[s.ID] = map[string]Item{}
	return &s, nil
}

func (r *memoryRepository) Update(ctx context.Context, s Stage) (*Stage, error) {
	old, err := r.Get(ctx, s.FeisID, s.ID)
	if err != nil {
		return nil, err
	}
	old.Name, old.Details = s.Name, s.Details
	r.stages[s.ID] = *old
	return old, nil
}

func (r *memoryRepository) Delete(_ context.Context, _, id string) error {
	delete(r.stages, id)
	delete(r.items, id)
	return nil
}

func (r *memoryRepository) Items(_ context.Context, stageID string) ([]Item, error) {
	var out []Item
	for _, item := range r.items[stageID] {
		out = append(out, item)
	}
	return out, nil
}

func (r *memoryRepository) Unscheduled(ctx context.Context, feisID string) ([]Item, error) {
	var out []Item
	for id := range r.events {
		stage, _ := r.StageOf(ctx, feisID, id)
		if stage == "" && !r.inactive[id] {
			out = append(out, Item{ID: id})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memoryRepository) Lock(ctx context.Context, feisID, id string) (*Stage, error) {
	return r.Get(ctx, feisID, id)
}

func (r *memoryRepository) LockEvent(_ context.Context, _, eventID string) (bool, error) {
	if !r.events[eventID] {
		return false, errs.NotFound("event not found")
	}
	return r.inactive[eventID], nil
}

func (r *memoryRepository) StageOf(_ context.Context, _, eventID string) (string, error) {
	for stageID, items := range r.items {
		if item, ok := items[eventID]; ok && !item.Placeholder {
			return stageID, nil
		}
	}
	return "", nil
}

func (r *memoryRepository) InsertItem(_ context.Context, stageID string, item Item) error {
	r.items[stageID][item.ID] = item
	return nil
}

func (r *memoryRepository) DeleteItem(_ context.Context, stageID, itemID string) error {
	delete(r.items[stageID], itemID)
	return nil
}

func (r *memoryRepository) SaveLinks(_ context.Context, stageID, head string, links []Link) error {
	s := r.stages[stageID]
	s.HeadID = head
	r.stages[stageID] = s
	for _, link := range links {
		item := r.items[stageID][link.ID]
		item.NextID = link.NextID
		r.items[stageID][link.ID] = item
	}
	return nil
}

func (r *memoryRepository) WithTransaction(_ context.Context, fn func(txRepo Repository) error) error {
	stages := make(map[string]Stage, len(r.stages))
	for k, v := range r.stages {
		stages[k] = v
	}
	items := make(map[string]map[string]Item, len(r.items))
	for k, v := range r.items {
		copied := make(map[string]Item, len(v))
		for id, item := range v {
			copied[id] = item
		}
		items[k] = copied
	}
	if err := fn(r); err != nil {
		r.stages, r.items = stages, items
		return err
	}
	return nil
}

func setup(t *testing.T) (*Service, *memoryRepository, *Stage) {
	t.Helper()
	repo := newMemoryRepository()
	for _, id := range []string{"e1", "e2", "e3", "e4"} {
		repo.events[id] = true
	}
	svc := NewService(repo, zerolog.Nop())
	stage, err := svc.Create(context.Background(), "feis", Input{Name: "Stage A"})
	require.NoError(t, err)
	require.Empty(t, stage.Events)
	return svc, repo, stage
}

func TestAttachAndDetach(t *testing.T) {
	ctx := context.Background()
	svc, _, stage := setup(t)

	_, err := svc.AttachEvent(ctx, "feis", stage.ID, AttachRequest{EventID: "e1"})
	require.NoError(t, err)
	_, err = svc.AttachEvent(ctx, "feis", stage.ID, AttachRequest{Before: "e1", After: Sentinel, EventID: "e3"})
	require.NoError(t, err)
	got, err := svc.AttachPlaceholder(ctx, "feis", stage.ID, AttachRequest{Before: "e1", After: "e3", Name: "Lunch"})
	require.NoError(t, err)
	require.Len(t, got.Events, 3)
	lunch := got.Events[1]
	require.True(t, lunch.Placeholder)
	require.Equal(t, "Lunch", lunch.Name)

	got, err = svc.AttachEvent(ctx, "feis", stage.ID, AttachRequest{Before: "", After: "e1", EventID: "e2"})
	require.NoError(t, err)
	require.Equal(t, []string{"e2", "e1", lunch.ID, "e3"}, itemIDs(got.Events))

	got, err = svc.DetachPlaceholder(ctx, "feis", stage.ID, lunch.ID)
	require.NoError(t, err)
	require.Equal(t, []string{"e2", "e1", "e3"}, itemIDs(got.Events))

	got, err = svc.DetachEvent(ctx, "feis", "", "e1")
	require.NoError(t, err)
	require.Equal(t, []string{"e2", "e3"}, itemIDs(got.Events))

	unscheduled, err := svc.Events(ctx, "feis")
	require.NoError(t, err)
	require.Equal(t, []string{"e1", "e4"}, itemIDs(unscheduled))
}

func TestAttachEvent_OnlyOneStage(t *testing.T) {
	ctx := context.Background()
	svc, _, stage := setup(t)
	other, err := svc.Create(ctx, "feis", Input{Name: "Stage B"})
	require.NoError(t, err)

	_, err = svc.AttachEvent(ctx, "feis", stage.ID, AttachRequest{EventID: "e1"})
	require.NoError(t, err)

	_, err = svc.AttachEvent(ctx, "feis", other.ID, AttachRequest{EventID: "e1"})
	require.ErrorIs(t, err, ErrAlreadyScheduled)
	require.Equal(t, "Events cannot be attached to multiple stages.", errs.Message(err))

	_, err = svc.AttachEvent(ctx, "feis", stage.ID, AttachRequest{Before: "e1", EventID: "e1"})
	require.ErrorIs(t, err, ErrAlreadyScheduled)
}

func TestAttachEvent_Rejections(t *testing.T) {
	ctx := context.Background()
	svc, repo, stage := setup(t)
	repo.inactive["e4"] = true

	_, err := svc.AttachEvent(ctx, "feis", stage.ID, AttachRequest{EventID: "e4"})
	require.ErrorIs(t, err, ErrInactiveEvent)

	_, err = svc.AttachEvent(ctx, "feis", stage.ID, AttachRequest{EventID: "nope"})
	require.ErrorIs(t, err, errs.ErrNotFound)

	_, err = svc.AttachEvent(ctx, "feis", "missing", AttachRequest{EventID: "e1"})
	require.ErrorIs(t, err, ErrNotFound)

	_, err = svc.AttachEvent(ctx, "feis", stage.ID, AttachRequest{EventID: "e1"})
	require.NoError(t, err)
	_, err = svc.AttachEvent(ctx, "feis", stage.ID, AttachRequest{EventID: "e2"})
	require.ErrorIs(t, err, ErrNotAdjacent)

	got, err := svc.One(ctx, "feis", stage.ID)
	require.NoError(t, err)
	require.Equal(t, []string{"e1"}, itemIDs(got.Events))
}

func TestDetachEvent_Unscheduled(t *testing.T) {
	svc, _, _ := setup(t)
	got, err := svc.DetachEvent(context.Background(), "feis", "", "e1")
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestDetachPlaceholder_RejectsEvents(t *testing.T) {
	ctx := context.Background()
	svc, _, stage := setup(t)
	_, err := svc.AttachEvent(ctx, "feis", stage.ID, AttachRequest{EventID: "e1"})
	require.NoError(t, err)

	_, err = svc.DetachPlaceholder(ctx, "feis", stage.ID, "e1")
	require.ErrorIs(t, err, ErrPlaceholderNotFound)
}

func TestRemove(t *testing.T) {
	ctx := context.Background()
	svc, _, stage := setup(t)
	_, err := svc.AttachEvent(ctx, "feis", stage.ID, AttachRequest{EventID: "e1"})
	require.NoError(t, err)

	require.NoError(t, svc.Remove(ctx, "feis", stage.ID))
	_, err = svc.One(ctx, "feis", stage.ID)
	require.True(t, errors.Is(err, ErrNotFound))

	unscheduled, err := svc.Events(ctx, "feis")
	require.NoError(t, err)
	require.Contains(t, itemIDs(unscheduled), "e1")
}

func TestOne_CorruptSchedule(t *testing.T) {
	ctx := context.Background()
	svc, repo, stage := setup(t)
	repo.items[stage.ID]["x"] = Item{ID: "x", NextID: "x"}
	s := repo.stages[stage.ID]
	s.HeadID = "x"
	repo.stages[stage.ID] = s

	_, err := svc.One(ctx, "feis", stage.ID)
	require.ErrorIs(t, err, ErrCorruptSchedule)

	_, err = svc.AttachEvent(ctx, "feis", stage.ID, AttachRequest{Before: "x", EventID: "e1"})
	require.ErrorIs(t, err, ErrCorruptSchedule)
}

func TestCreate_Validates(t *testing.T) {
	svc, _, _ := setup(t)
	_, err := svc.Create(context.Background(), "feis", Input{Name: "   "})
	require.ErrorIs(t, err, errs.ErrInvalid)
}
