// Package registrations enters people into the events of a feis and hands
// out their competitor numbers.
package registrations

import (
	"context"
	"time"

	"github.com/ifeis/server/internal/domain/errs"
	"github.com/ifeis/server/internal/domain/events"
)

// FirstNumber is the competitor number given to the first person
// registered at a feis.
const FirstNumber = 101

var (
	ErrNumberInUse   = errs.Invalid("Competitor number already in use.")
	ErrNotRegistered = errs.NotFound("person is not registered at this feis")
	ErrPersonUnknown = errs.NotFound("person not found")
)

// FeisDates is the part of a feis that registration depends on.
type FeisDates struct {
	ID      string
	RegLate *time.Time
}

type Repository interface {
	All(ctx context.Context, feisID, personID string) ([]events.Participant, error)
	// LockFeis holds the feis row so competitor numbers are handed out one
	// at a time.
	LockFeis(ctx context.Context, feisID string) (*FeisDates, error)
	// OwnerOf returns the account a person belongs to; accounts own themselves.
	OwnerOf(ctx context.Context, personID string) (string, error)
	// EnsureSaved stars the feis for the account unless it already is.
	EnsureSaved(ctx context.Context, feisID, accountID string, assessLateFee bool) error
	// EnsureRegistered gives the person the next competitor number unless
	// they already have one, and returns it.
	EnsureRegistered(ctx context.Context, feisID, personID string) (int, error)
	// Participate enters the person into the event once. Inactive events
	// fail with events.ErrInactive.
	Participate(ctx context.Context, feisID, eventID, personID string) (*events.Participant, error)
	Delete(ctx context.Context, feisID, eventID, personID string) error
	// NumberInUse reports whether someone other than personID holds num.
	NumberInUse(ctx context.Context, feisID, personID string, num int) (bool, error)
	SetNumber(ctx context.Context, feisID, personID string, num int) (*events.Competitor, error)

	WithTransaction(ctx context.Context, fn func(txRepo Repository) error) error
}
