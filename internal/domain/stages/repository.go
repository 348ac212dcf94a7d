package stages

import "context"

type Repository interface {
	All(ctx context.Context, feisID string) ([]Stage, error)
	Get(ctx context.Context, feisID, id string) (*Stage, error)
	Create(ctx context.Context, s Stage) (*Stage, error)
	Update(ctx context.Context, s Stage) (*Stage, error)
	// Delete removes the stage and its items. Placeholders are destroyed and
	// events become unscheduled.
	Delete(ctx context.Context, feisID, id string) error

	// Items returns every item of a stage in storage order, with event
	// details and participant counts filled in.
	Items(ctx context.Context, stageID string) ([]Item, error)
	// Unscheduled lists active events of the feis that are on no stage.
	Unscheduled(ctx context.Context, feisID string) ([]Item, error)

	// Lock loads the stage and holds its row lock until the transaction ends.
	Lock(ctx context.Context, feisID, id string) (*Stage, error)
	// LockEvent holds a share lock on the event and reports whether it is
	// inactive.
	LockEvent(ctx context.Context, feisID, eventID string) (inactive bool, err error)
	// StageOf returns the stage holding the event, or "" when unscheduled.
	StageOf(ctx context.Context, feisID, eventID string) (string, error)
	InsertItem(ctx context.Context, stageID string, item Item) error
	DeleteItem(ctx context.Context, stageID, itemID string) error
	// SaveLinks rewrites the head of the stage and the next pointer of
	// every listed item.
	SaveLinks(ctx context.Context, stageID, head string, links []Link) error

	WithTransaction(ctx context.Context, fn func(txRepo Repository) error) error
}
