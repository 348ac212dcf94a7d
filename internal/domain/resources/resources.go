// Package resources holds the information pages a feis publishes beside its
// syllabus: contacts, nearby accommodations and attached documents.
package resources

import (
	"context"
	"time"

	"github.com/ifeis/server/internal/domain/errs"
)

var (
	ErrContactNotFound       = errs.NotFound("contact not found")
	ErrAccommodationNotFound = errs.NotFound("accommodation not found")
	ErrAttachmentNotFound    = errs.NotFound("attachment not found")
)

type Contact struct {
	ID        string    `json:"id"`
	FeisID    string    `json:"feis_id"`
	Name      string    `json:"name"`
	Role      string    `json:"role,omitempty"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type ContactInput struct {
	Name  string `json:"name" validate:"required,max=200"`
	Role  string `json:"role" validate:"max=100"`
	Email string `json:"email" validate:"omitempty,email"`
	Phone string `json:"phone" validate:"max=50"`
}

type Accommodation struct {
	ID        string    `json:"id"`
	FeisID    string    `json:"feis_id"`
	Name      string    `json:"name"`
	Address   string    `json:"address,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	URL       string    `json:"url,omitempty"`
	Rate      string    `json:"rate,omitempty"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type AccommodationInput struct {
	Name    string `json:"name" validate:"required,max=200"`
	Address string `json:"address" validate:"max=500"`
	Phone   string `json:"phone" validate:"max=50"`
	URL     string `json:"url" validate:"omitempty,http_url,max=500"`
	Rate    string `json:"rate" validate:"max=100"`
	Notes   string `json:"notes" validate:"max=2000"`
}

// Attachment points at a document stored outside the service.
type Attachment struct {
	ID        string    `json:"id"`
	FeisID    string    `json:"feis_id"`
	Name      string    `json:"name"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"created_at"`
}

type AttachmentInput struct {
	Name string `json:"name" validate:"required,max=200"`
	URL  string `json:"url" validate:"required,http_url,max=1000"`
}

// AttachmentRename is the only change allowed once a document is attached.
type AttachmentRename struct {
	Name string `json:"name" validate:"required,max=200"`
}

// Repository methods are scoped by feis; a record of another feis is not found.
type Repository interface {
	Contacts(ctx context.Context, feisID string) ([]Contact, error)
	Contact(ctx context.Context, feisID, id string) (*Contact, error)
	CreateContact(ctx context.Context, c Contact) (*Contact, error)
	UpdateContact(ctx context.Context, c Contact) (*Contact, error)
	DeleteContact(ctx context.Context, feisID, id string) error

	Accommodations(ctx context.Context, feisID string) ([]Accommodation, error)
	Accommodation(ctx context.Context, feisID, id string) (*Accommodation, error)
	CreateAccommodation(ctx context.Context, a Accommodation) (*Accommodation, error)
	UpdateAccommodation(ctx context.Context, a Accommodation) (*Accommodation, error)
	DeleteAccommodation(ctx context.Context, feisID, id string) error

	Attachments(ctx context.Context, feisID string) ([]Attachment, error)
	Attachment(ctx context.Context, feisID, id string) (*Attachment, error)
	CreateAttachment(ctx context.Context, a Attachment) (*Attachment, error)
	RenameAttachment(ctx context.Context, feisID, id, name string) (*Attachment, error)
	DeleteAttachment(ctx context.Context, feisID, id string) error
}
