package feiseanna

import (
	"context"
	"time"

	"github.com/ifeis/server/internal/domain/accounts"
	"github.com/ifeis/server/internal/domain/events"
)

type Repository interface {
	CreateInvitation(ctx context.Context, inv Invitation) (*Invitation, error)
	Invitations(ctx context.Context) ([]Invitation, error)
	Invitation(ctx context.Context, id string) (*Invitation, error)
	// LockInvitation loads the invitation and holds it until the
	// transaction ends.
	LockInvitation(ctx context.Context, id string) (*Invitation, error)
	// InvalidateInvitation returns false when the invitation was used.
	InvalidateInvitation(ctx context.Context, id string) (bool, error)
	MarkInvitationUsed(ctx context.Context, id string) error
	// StaleInvitations lists unused, valid invitations created before
	// cutoff that were never reminded.
	StaleInvitations(ctx context.Context, cutoff time.Time) ([]Invitation, error)
	MarkReminded(ctx context.Context, id string, at time.Time) error

	Templates(ctx context.Context) ([]Template, error)
	Template(ctx context.Context, id string) (*Template, error)
	// SaveTemplate inserts or replaces the template with the same name.
	SaveTemplate(ctx context.Context, t Template) (*Template, error)

	Get(ctx context.Context, id string) (*Feis, error)
	// Public lists public feiseanna, excluding those that ended before
	// now unless includePast is set.
	Public(ctx context.Context, includePast bool, now time.Time) ([]Feis, error)
	GrantedTo(ctx context.Context, accountID string) ([]Summary, error)
	SavedBy(ctx context.Context, accountID string) ([]Summary, error)

	Create(ctx context.Context, f Feis) error
	GrantChair(ctx context.Context, grantID, feisID, accountID string) error
	InsertEvents(ctx context.Context, list []events.Event) error
	// Lock loads the feis and holds its row until the transaction ends.
	Lock(ctx context.Context, id string) (*Feis, error)
	// Update writes every editable column of f.
	Update(ctx context.Context, f Feis) (*Feis, error)
	SetFinalized(ctx context.Context, id string) (*Feis, error)
	SetPublic(ctx context.Context, id string, public bool) (*Feis, error)

	Participants(ctx context.Context, feisID, filter string, offset, limit int) ([]events.Competitor, error)
	Participant(ctx context.Context, feisID string, num int) (*events.Competitor, error)
	AccountsWithoutPayment(ctx context.Context, feisID string) ([]accounts.Person, error)
	CompetitorsBySchool(ctx context.Context, feisID string) ([]SchoolCount, error)
	ScoresForPerson(ctx context.Context, feisID, personID string) ([]PersonResult, error)

	Star(ctx context.Context, feisID, accountID string) error
	HasRegistrations(ctx context.Context, feisID, accountID string) (bool, error)
	Unstar(ctx context.Context, feisID, accountID string) error

	WithTransaction(ctx context.Context, fn func(txRepo Repository) error) error
}
