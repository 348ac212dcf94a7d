// Package stages schedules events onto the stages of a feis. A stage keeps
// its items as a singly linked list that starts at the stage's head and
// whose last item points back to the stage.
package stages

import (
	"time"

	"github.com/ifeis/server/internal/domain/errs"
	"github.com/ifeis/server/internal/domain/events"
)

// Sentinel is the item id clients send to mean "the stage itself".
const Sentinel = "FAKE"

var (
	ErrNotFound            = errs.NotFound("stage not found")
	ErrPlaceholderNotFound = errs.NotFound("placeholder not found")
	ErrAlreadyScheduled    = errs.Invalid("Events cannot be attached to multiple stages.")
	ErrInactiveEvent       = errs.Invalid("Inactive events cannot be scheduled.")
	ErrNotAdjacent         = errs.Invalid("Items can only be inserted between neighbours.")
)

type Stage struct {
	ID      string `json:"id"`
	FeisID  string `json:"feis_id"`
	Name    string `json:"name"`
	Details string `json:"details,omitempty"`
	// HeadID is the first item, or "" for an empty stage.
	HeadID    string    `json:"-"`
	Events    []Item    `json:"events"`
	CreatedAt time.Time `json:"created_at"`
}

type Input struct {
	Name    string `json:"name" validate:"required,max=100"`
	Details string `json:"details" validate:"max=1000"`
}

// Item is one slot of a schedule: an event or a named placeholder such as a
// lunch break. Event items share the event's id.
type Item struct {
	ID           string        `json:"id"`
	Placeholder  bool          `json:"placeholder"`
	Name         string        `json:"name,omitempty"`
	Participants int           `json:"participants"`
	Event        *events.Event `json:"event,omitempty"`
	EventID      string        `json:"-"`
	// NextID is the following item, or "" when the item is last.
	NextID string `json:"-"`
}

// AttachRequest positions a new item between two neighbours. Before and
// After are item ids; "" or Sentinel stand for the stage.
type AttachRequest struct {
	Before  string `json:"before"`
	After   string `json:"after"`
	EventID string `json:"event"`
	Name    string `json:"name" validate:"max=100"`
}

// Link is the stored pointer of one item.
type Link struct {
	ID     string
	NextID string
}
