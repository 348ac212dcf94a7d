// Package catalog manages the global reference data shared by every feis:
// dance schools, dances and adjudicators.
package catalog

import (
	"context"
	"time"

	"github.com/ifeis/server/internal/domain/errs"
)

var (
	ErrSchoolNotFound      = errs.NotFound("school not found")
	ErrDanceNotFound       = errs.NotFound("dance not found")
	ErrAdjudicatorNotFound = errs.NotFound("adjudicator not found")
)

type School struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Teacher   string    `json:"teacher,omitempty"`
	Region    string    `json:"region,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type SchoolInput struct {
	Name    string `json:"name" validate:"required,max=200"`
	Teacher string `json:"teacher" validate:"max=200"`
	Region  string `json:"region" validate:"max=100"`
}

type Dance struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Abbreviation string    `json:"abbreviation,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

type DanceInput struct {
	Name         string `json:"name" validate:"required,max=100"`
	Abbreviation string `json:"abbreviation" validate:"max=20"`
}

type Adjudicator struct {
	ID        string    `json:"id"`
	FName     string    `json:"fname"`
	LName     string    `json:"lname"`
	Region    string    `json:"region,omitempty"`
	Details   string    `json:"details,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type AdjudicatorInput struct {
	FName   string `json:"fname" validate:"required,max=100"`
	LName   string `json:"lname" validate:"required,max=100"`
	Region  string `json:"region" validate:"max=100"`
	Details string `json:"details" validate:"max=2000"`
}

type Repository interface {
	ListSchools(ctx context.Context) ([]School, error)
	GetSchool(ctx context.Context, id string) (*School, error)
	CreateSchool(ctx context.Context, school School) (*School, error)
	UpdateSchool(ctx context.Context, school School) (*School, error)
	DeleteSchool(ctx context.Context, id string) error

	ListDances(ctx context.Context) ([]Dance, error)
	GetDance(ctx context.Context, id string) (*Dance, error)
	CreateDance(ctx context.Context, dance Dance) (*Dance, error)
	UpdateDance(ctx context.Context, dance Dance) (*Dance, error)
	DeleteDance(ctx context.Context, id string) error

	ListAdjudicators(ctx context.Context) ([]Adjudicator, error)
	GetAdjudicator(ctx context.Context, id string) (*Adjudicator, error)
	CreateAdjudicator(ctx context.Context, adj Adjudicator) (*Adjudicator, error)
	UpdateAdjudicator(ctx context.Context, adj Adjudicator) (*Adjudicator, error)
	DeleteAdjudicator(ctx context.Context, id string) error

	// FeisAdjudicators lists the adjudicators booked for a feis by lname, fname.
	FeisAdjudicators(ctx context.Context, feisID string) ([]Adjudicator, error)
	AttachAdjudicator(ctx context.Context, feisID, adjudicatorID string) error
	DetachAdjudicator(ctx context.Context, feisID, adjudicatorID string) error
}
