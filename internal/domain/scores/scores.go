// Package scores records adjudicators' scoresheets and turns them into
// placements.
package scores

import (
	"time"

	"github.com/ifeis/server/internal/domain/errs"
)

var (
	ErrNotFound            = errs.NotFound("score not found")
	ErrParticipantNotFound = errs.NotFound("Scores can only be given to participants of the event.")
)

// Score is one adjudicator's mark for one person in one round.
type Score struct {
	ID            string    `json:"id"`
	EventID       string    `json:"event_id"`
	AdjudicatorID string    `json:"adjudicator"`
	PersonID      string    `json:"person"`
	Round         int       `json:"round"`
	Value         float64   `json:"value"`
	Comments      string    `json:"comments,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

type Input struct {
	Round    int     `json:"round" validate:"min=1,max=10"`
	Value    float64 `json:"value" validate:"min=0,max=1000"`
	Comments string  `json:"comments" validate:"max=2000"`
}

// SheetRow is one person's line on an adjudicator's scoresheet, with the
// scores ordered by round.
type SheetRow struct {
	PersonID   string  `json:"person"`
	Competitor *int    `json:"competitor"`
	Scores     []Score `json:"scores"`
}

// Stored is what gets written onto a participant record. Participants
// without scores keep nil values and are not placed.
type Stored struct {
	PersonID      string   `json:"id"`
	Competitor    *int     `json:"competitor"`
	Placement     *int     `json:"placement"`
	Total         *float64 `json:"total"`
	ComputedTotal *float64 `json:"computed_total"`
	Placed        bool     `json:"placed"`
}
