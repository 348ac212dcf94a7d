// Package feiseanna manages feiseanna themselves: the invitations that allow
// a feis to be created, syllabus templates, publication, and the read
// models that span a whole feis.
package feiseanna

import (
	"time"
	_ "time/tzdata" // timezone validation must not depend on the host zoneinfo

	"github.com/ifeis/server/internal/domain/accounts"
	"github.com/ifeis/server/internal/domain/errs"
	"github.com/ifeis/server/internal/domain/events"
	"github.com/ifeis/server/internal/domain/grants"
)

var (
	ErrNotFound           = errs.NotFound("feis not found")
	ErrInvitationNotFound = errs.NotFound("invitation not found")
	ErrTemplateNotFound   = errs.NotFound("template not found")
	ErrParticipantMissing = errs.NotFound("participant not found")
	ErrInvitationUsed     = errs.Invalid("This invitation can no longer be used.")
	ErrInvitationNotYours = errs.Forbidden("This invitation is for someone else.")
	ErrStillRegistered    = errs.Invalid("A feis with registrations cannot be unstarred.")
)

// DefaultParticipantLimit is the page size of Participants.
const DefaultParticipantLimit = 25

type Feis struct {
	ID               string     `json:"id"`
	Name             string     `json:"name"`
	Slug             string     `json:"slug"`
	TZ               string     `json:"tz"`
	DtStart          *time.Time `json:"dt_start,omitempty"`
	DtEnd            *time.Time `json:"dt_end,omitempty"`
	DtRegStart       *time.Time `json:"dt_reg_start,omitempty"`
	DtRegEnd         *time.Time `json:"dt_reg_end,omitempty"`
	DtRegLate        *time.Time `json:"dt_reg_late,omitempty"`
	IsPublic         bool       `json:"is_public"`
	IsSyllabusPublic bool       `json:"is_syllabus_public"`
	IsSchedulePublic bool       `json:"is_schedule_public"`
	IsFinalized      bool       `json:"is_finalized"`
	URL              string     `json:"url,omitempty"`
	Description      string     `json:"description,omitempty"`
	EventFee         *int64     `json:"event_fee,omitempty"`
	AcctFee          *int64     `json:"acct_fee,omitempty"`
	AcctMax          *int64     `json:"acct_max,omitempty"`
	LateFee          *int64     `json:"late_fee,omitempty"`
	LocName          string     `json:"loc_name,omitempty"`
	LocAddr          string     `json:"loc_addr,omitempty"`
	InviteID         string     `json:"-"`
	NumParticipants  int        `json:"num_participants"`
	IsPayee          bool       `json:"is_payee"`
	CreatedAt        time.Time  `json:"created_at"`
}

// Update is a partial edit of a feis. Nil fields keep their stored value.
type Update struct {
	Name             *string    `json:"name" validate:"omitempty,min=1,max=200"`
	TZ               *string    `json:"tz" validate:"omitempty,timezone"`
	DtStart          *time.Time `json:"dt_start"`
	DtEnd            *time.Time `json:"dt_end"`
	DtRegStart       *time.Time `json:"dt_reg_start"`
	DtRegEnd         *time.Time `json:"dt_reg_end"`
	DtRegLate        *time.Time `json:"dt_reg_late"`
	IsPublic         *bool      `json:"is_public"`
	IsSyllabusPublic *bool      `json:"is_syllabus_public"`
	IsSchedulePublic *bool      `json:"is_schedule_public"`
	URL              *string    `json:"url"`
	Description      *string    `json:"description" validate:"omitempty,max=20000"`
	EventFee         *int64     `json:"event_fee" validate:"omitempty,min=0"`
	AcctFee          *int64     `json:"acct_fee" validate:"omitempty,min=0"`
	AcctMax          *int64     `json:"acct_max" validate:"omitempty,min=0"`
	LateFee          *int64     `json:"late_fee" validate:"omitempty,min=0"`
	LocName          *string    `json:"loc_name" validate:"omitempty,max=200"`
	LocAddr          *string    `json:"loc_addr" validate:"omitempty,max=500"`
}

// urlField validates a feis URL; empty clears it.
type urlField struct {
	URL string `validate:"omitempty,http_url,max=500"`
}

// apply copies the fields present in u onto f.
func (u Update) apply(f Feis) Feis {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	setFlag := func(dst *bool, src *bool) {
		if src != nil {
			*dst = *src
		}
	}
	setTime := func(dst **time.Time, src *time.Time) {
		if src != nil {
			*dst = src
		}
	}
	setMoney := func(dst **int64, src *int64) {
		if src != nil {
			*dst = src
		}
	}

	set(&f.Name, u.Name)
	set(&f.TZ, u.TZ)
	set(&f.URL, u.URL)
	set(&f.Description, u.Description)
	set(&f.LocName, u.LocName)
	set(&f.LocAddr, u.LocAddr)
	setFlag(&f.IsPublic, u.IsPublic)
	setFlag(&f.IsSyllabusPublic, u.IsSyllabusPublic)
	setFlag(&f.IsSchedulePublic, u.IsSchedulePublic)
	setTime(&f.DtStart, u.DtStart)
	setTime(&f.DtEnd, u.DtEnd)
	setTime(&f.DtRegStart, u.DtRegStart)
	setTime(&f.DtRegEnd, u.DtRegEnd)
	setTime(&f.DtRegLate, u.DtRegLate)
	setMoney(&f.EventFee, u.EventFee)
	setMoney(&f.AcctFee, u.AcctFee)
	setMoney(&f.AcctMax, u.AcctMax)
	setMoney(&f.LateFee, u.LateFee)
	return f
}

type CreateInput struct {
	InviteID   string `json:"id" validate:"required"`
	Name       string `json:"name" validate:"required,max=200"`
	TZ         string `json:"tz" validate:"required,timezone"`
	TemplateID string `json:"template_id"`
}

// Invitation allows one account to create one feis.
type Invitation struct {
	ID         string           `json:"id"`
	AccountID  string           `json:"account_id"`
	Fee        int64            `json:"fee"`
	Deposit    int64            `json:"deposit"`
	Used       bool             `json:"used"`
	Invalid    bool             `json:"invalid"`
	Person     *accounts.Person `json:"person,omitempty"`
	RemindedAt *time.Time       `json:"reminded_at,omitempty"`
	CreatedAt  time.Time        `json:"created_at"`
}

type InvitationInput struct {
	Email   string `json:"email" validate:"required,email"`
	FName   string `json:"fname" validate:"max=100"`
	LName   string `json:"lname" validate:"max=100"`
	Fee     int64  `json:"fee" validate:"min=0"`
	Deposit int64  `json:"deposit" validate:"min=0"`
}

// Template is a reusable syllabus copied into new feiseanna.
type Template struct {
	ID     string         `json:"id"`
	Name   string         `json:"name"`
	Events []events.Input `json:"events,omitempty"`
}

// Summary is a feis as seen by one account.
type Summary struct {
	Feis       Feis          `json:"feis"`
	Grants     []grants.Role `json:"grants"`
	Saved      bool          `json:"saved"`
	Registered bool          `json:"registered"`
	Balance    int64         `json:"balance"`
}

// SchoolCount tallies a school's dancers at a feis.
type SchoolCount struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Participants int    `json:"participants"`
	Paid         int    `json:"paid"`
	Unpaid       int    `json:"unpaid"`
}

// PersonResult is an event in results with one person's participant record.
type PersonResult struct {
	events.Event
	Score events.Participant `json:"score"`
}
