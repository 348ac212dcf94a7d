package scores

import (
	"context"

	"github.com/ifeis/server/internal/domain/catalog"
	"github.com/ifeis/server/internal/domain/events"
)

type Repository interface {
	// Event loads the event; with lock it also holds the row until the
	// transaction ends.
	Event(ctx context.Context, feisID, eventID string, lock bool) (*events.Event, error)
	Participants(ctx context.Context, feisID, eventID string) ([]events.Competitor, error)
	IsParticipant(ctx context.Context, eventID, personID string) (bool, error)

	// Scoresheet returns one row per scored person, ordered by dance order,
	// competitor number, then person.
	Scoresheet(ctx context.Context, eventID, adjudicatorID string) ([]SheetRow, error)
	Create(ctx context.Context, s Score) (*Score, error)
	Update(ctx context.Context, s Score) (*Score, error)
	Delete(ctx context.Context, eventID, scoreID string) error
	DeleteAll(ctx context.Context, eventID, adjudicatorID string) (int64, error)
	Adjudicators(ctx context.Context, eventID string) ([]catalog.Adjudicator, error)

	// SavePlacements writes every record onto its participant.
	SavePlacements(ctx context.Context, eventID string, records []Stored) error
	// Placements lists participants with a placement, best first.
	Placements(ctx context.Context, eventID string) ([]events.Competitor, error)

	WithTransaction(ctx context.Context, fn func(txRepo Repository) error) error
}
