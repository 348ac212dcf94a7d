package events

import "context"

type Repository interface {
	Get(ctx context.Context, feisID, id string) (*Event, error)
	Create(ctx context.Context, e Event) (*Event, error)
	Update(ctx context.Context, e Event) (*Event, error)
	// Delete unschedules the event and removes it with its participants and scores.
	Delete(ctx context.Context, feisID, id string) error
	Query(ctx context.Context, feisID string, q Query) ([]Event, error)
	Participants(ctx context.Context, feisID, eventID string) ([]Competitor, error)
	ApplyTransition(ctx context.Context, feisID, eventID string, t Transition) (*Event, error)

	// LinkTransform records that from was merged or split into to.
	LinkTransform(ctx context.Context, fromID, toID string) error
	// CopyParticipants enters into toEventID every participant of the
	// fromEventIDs, or only those in personIDs when it is non-nil. Each
	// person is entered once.
	CopyParticipants(ctx context.Context, toEventID string, fromEventIDs, personIDs []string) (int, error)
	// Deactivate marks the event inactive and removes it from its stage. It
	// returns ErrInactive when the event already was, so two transactions
	// cannot both retire the same event.
	Deactivate(ctx context.Context, feisID, id string) error

	Participant(ctx context.Context, feisID, eventID, personID string) (*Participant, error)
	UpdateParticipant(ctx context.Context, feisID, eventID, personID string, update RegistrationUpdate) error
	SetCheckedIn(ctx context.Context, feisID, eventID, personID string, checkedIn bool) error
	SetCollected(ctx context.Context, feisID, eventID, personID string, collected bool) error
	OrderParticipants(ctx context.Context, feisID, eventID string, order []OrderEntry) error

	WithTransaction(ctx context.Context, fn func(txRepo Repository) error) error
}

// PlacementQueue schedules placement caching once an event reaches results.
type PlacementQueue interface {
	EnqueueCachePlacements(ctx context.Context, feisID, eventID string) error
}
