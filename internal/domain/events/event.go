// Package events manages the competitions run at a feis: their syllabus
// details, the check-in to results workflow, participants, and the merge
// and split operations that restructure them.
package events

import (
	"time"

	"github.com/ifeis/server/internal/domain/accounts"
	"github.com/ifeis/server/internal/domain/errs"
)

var (
	ErrNotFound            = errs.NotFound("event not found")
	ErrParticipantNotFound = errs.NotFound("participant not found")
	ErrInactive            = errs.Invalid("Inactive events cannot be changed.")
)

// Type codes used in the syllabus.
const (
	TypeFigures       = "F"
	TypeGrades        = "G"
	TypeChampionships = "C"
)

// TypeName is the human name of a type code; anything unknown is a special.
func TypeName(code string) string {
	switch code {
	case TypeFigures:
		return "figures"
	case TypeGrades:
		return "grades"
	case TypeChampionships:
		return "championships"
	default:
		return "specials"
	}
}

type Status string

const (
	StatusPending      Status = "PND"
	StatusCheckIn      Status = "CI"
	StatusAdjudication Status = "ADJ"
	StatusTabs         Status = "TABS"
	StatusQA           Status = "QA"
	StatusRecall       Status = "RCL"
	StatusResults      Status = "RES"
)

// ParseStatus accepts a status code from a query string. ok is false for
// unknown codes.
func ParseStatus(value string) (Status, bool) {
	switch s := Status(value); s {
	case StatusPending, StatusCheckIn, StatusAdjudication, StatusTabs, StatusQA, StatusRecall, StatusResults:
		return s, true
	}
	return "", false
}

type Event struct {
	ID             string `json:"id"`
	FeisID         string `json:"feis_id"`
	Name           string `json:"name"`
	Code           string `json:"event,omitempty"`
	Level          string `json:"level,omitempty"`
	Age            string `json:"age,omitempty"`
	Type           string `json:"type,omitempty"`
	AgeMin         *int   `json:"age_min,omitempty"`
	AgeMax         *int   `json:"age_max,omitempty"`
	Fee            *int64 `json:"fee,omitempty"`
	ExcludeFromMax bool   `json:"exclude_from_max"`
	Recall         bool   `json:"recall"`
	Places         *int   `json:"places,omitempty"`
	Rounds         *int   `json:"rounds,omitempty"`
	Details        string `json:"details,omitempty"`
	CIOpened       bool   `json:"is_ci_opened"`
	CIClosed       bool   `json:"is_ci_closed"`
	InTabs         bool   `json:"is_in_tabs"`
	InQA           bool   `json:"is_in_qa"`
	InResults      bool   `json:"is_in_results"`
	Announced      bool   `json:"is_announced"`
	PrintedRecall  bool   `json:"prntd_recall"`
	PrintedPlaces  bool   `json:"prntd_places"`
	Inactive       bool   `json:"inactive"`
	Status         Status `json:"status"`
	Participants   int    `json:"participants"`
	*Stats
	CreatedAt time.Time `json:"created_at"`
}

// Stats breaks the participant count down for the registration desk.
type Stats struct {
	Females int `json:"females"`
	Males   int `json:"males"`
	Paid    int `json:"paid"`
	Unpaid  int `json:"unpaid"`
}

// DeriveStatus computes where an event is in the day's workflow. The first
// matching rule wins; an open check-in outranks everything else.
func (e Event) DeriveStatus() Status {
	switch {
	case e.CIOpened:
		return StatusCheckIn
	case e.InResults && e.Recall && e.Announced:
		return StatusResults
	case e.InResults && e.Recall:
		return StatusRecall
	case e.InResults:
		return StatusResults
	case e.InQA:
		return StatusQA
	case e.InTabs:
		return StatusTabs
	case e.CIClosed:
		return StatusAdjudication
	default:
		return StatusPending
	}
}

// WithStatus returns e with Status filled in.
func (e Event) WithStatus() Event {
	e.Status = e.DeriveStatus()
	return e
}

// Input is the syllabus part of an event that clients create and replace.
type Input struct {
	Name           string `json:"name" validate:"required,max=200"`
	Code           string `json:"event" validate:"max=50"`
	Level          string `json:"level" validate:"max=50"`
	Age            string `json:"age" validate:"max=50"`
	Type           string `json:"type" validate:"max=10"`
	AgeMin         *int   `json:"age_min" validate:"omitempty,min=0,max=120"`
	AgeMax         *int   `json:"age_max" validate:"omitempty,min=0,max=120"`
	Fee            *int64 `json:"fee" validate:"omitempty,min=0"`
	ExcludeFromMax bool   `json:"exclude_from_max"`
	Recall         bool   `json:"recall"`
	Places         *int   `json:"places" validate:"omitempty,min=0"`
	Rounds         *int   `json:"rounds" validate:"omitempty,min=1,max=10"`
	Details        string `json:"details" validate:"max=2000"`
}

// Participant is a person's entry in one event.
type Participant struct {
	ID            string           `json:"id"`
	EventID       string           `json:"event_id"`
	PersonID      string           `json:"person_id"`
	Order         *int             `json:"order,omitempty"`
	CheckedIn     bool             `json:"is_checked_in"`
	Collected     bool             `json:"collected"`
	Placement     *int             `json:"placement,omitempty"`
	Total         *float64         `json:"total,omitempty"`
	ComputedTotal *float64         `json:"computed_total,omitempty"`
	Placed        bool             `json:"placed"`
	Event         *Event           `json:"event,omitempty"`
	Person        *accounts.Person `json:"person,omitempty"`
	Competitor    *int             `json:"competitor,omitempty"`
}

// Competitor is a participant as listed on an event: the person, their
// school and feis number, and the participant record itself.
type Competitor struct {
	accounts.Person
	Competitor *int        `json:"competitor"`
	Reg        Participant `json:"reg"`
}

// RegistrationUpdate replaces the mutable part of a participant record.
type RegistrationUpdate struct {
	Order     *int `json:"order"`
	CheckedIn bool `json:"is_checked_in"`
	Collected bool `json:"collected"`
}

// OrderEntry sets the dance order of one person.
type OrderEntry struct {
	PersonID string `json:"id"`
	Order    int    `json:"order"`
}

// PrintQueue lists results still waiting to be printed.
type PrintQueue struct {
	Placements []Event `json:"placements"`
	Recall     []Event `json:"recall"`
}
