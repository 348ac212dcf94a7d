// Package accounts manages people: accounts that can log in and the dependents
// registered under them.
package accounts

import (
	"context"
	"time"

	"github.com/ifeis/server/internal/domain/catalog"
	"github.com/ifeis/server/internal/domain/errs"
)

var (
	ErrNotFound       = errs.NotFound("account not found")
	ErrPersonNotFound = errs.NotFound("person not found")
)

// Person is an account holder or a dependent. Dependents carry AccountID.
type Person struct {
	ID        string          `json:"id"`
	AccountID string          `json:"account_id,omitempty"`
	IsAccount bool            `json:"is_account"`
	Email     string          `json:"email,omitempty"`
	FName     string          `json:"fname"`
	LName     string          `json:"lname"`
	Gender    string          `json:"gender,omitempty"`
	DOB       *time.Time      `json:"dob,omitempty"`
	Phone     string          `json:"phone,omitempty"`
	Address   string          `json:"address,omitempty"`
	City      string          `json:"city,omitempty"`
	State     string          `json:"state,omitempty"`
	Zip       string          `json:"zip,omitempty"`
	Country   string          `json:"country,omitempty"`
	IsGod     bool            `json:"is_god,omitempty"`
	SchoolID  string          `json:"-"`
	School    *catalog.School `json:"school,omitempty"`
	Welcomed  bool            `json:"-"`
	CreatedAt time.Time       `json:"created_at"`
}

// FullName is "fname lname" as printed on receipts and scoresheets.
func (p Person) FullName() string {
	switch {
	case p.FName == "":
		return p.LName
	case p.LName == "":
		return p.FName
	default:
		return p.FName + " " + p.LName
	}
}

// AccountUpdate lists the fields an account holder may change on themselves.
type AccountUpdate struct {
	FName   string `json:"fname" validate:"required,max=100"`
	LName   string `json:"lname" validate:"required,max=100"`
	Phone   string `json:"phone" validate:"max=40"`
	Address string `json:"address" validate:"max=200"`
	City    string `json:"city" validate:"max=100"`
	State   string `json:"state" validate:"max=100"`
	Zip     string `json:"zip" validate:"max=20"`
	Country string `json:"country" validate:"max=100"`
}

type DependentInput struct {
	FName    string     `json:"fname" validate:"required,max=100"`
	LName    string     `json:"lname" validate:"required,max=100"`
	Gender   string     `json:"gender" validate:"omitempty,oneof=F M"`
	DOB      *time.Time `json:"dob"`
	SchoolID string     `json:"school" validate:"required"`
}

// Profile is what an identity provider tells us about a user at login.
type Profile struct {
	Provider string
	Subject  string
	Email    string
	FName    string
	LName    string
}

// StripeAccount is the Connect account that receives payments for a feis.
type StripeAccount struct {
	ID          string
	FeisID      string
	AccountID   string
	AccessToken string
	StripeUser  string
	Livemode    bool
}

type Repository interface {
	Get(ctx context.Context, id string) (*Person, error)
	GetByEmail(ctx context.Context, email string) (*Person, error)
	GetByIdentity(ctx context.Context, provider, subject string) (*Person, error)
	GetPerson(ctx context.Context, id string) (*Person, error)
	// UpsertByEmail returns the account for email, creating it from p when
	// none exists. created reports whether a row was inserted.
	UpsertByEmail(ctx context.Context, p Person) (account *Person, created bool, err error)
	LinkIdentity(ctx context.Context, accountID, provider, subject string) error
	FillName(ctx context.Context, accountID, fname, lname string) error
	MarkWelcomed(ctx context.Context, accountID string) error
	Update(ctx context.Context, id string, update AccountUpdate) (*Person, error)
	Dependents(ctx context.Context, accountID string) ([]Person, error)
	CreateDependent(ctx context.Context, p Person) (*Person, error)
	UpdateDependent(ctx context.Context, p Person) (*Person, error)
	SaveStripeAccount(ctx context.Context, stripe StripeAccount) error
}
