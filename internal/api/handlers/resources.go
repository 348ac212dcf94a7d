package handlers

import (
	"context"
	"net/http"

	"github.com/ifeis/server/internal/domain/resources"
)

type ResourceService interface {
	Contacts(ctx context.Context, feisID string) ([]resources.Contact, error)
	Contact(ctx context.Context, feisID, id string) (*resources.Contact, error)
	CreateContact(ctx context.Context, feisID string, input resources.ContactInput) (*resources.Contact, error)
	UpdateContact(ctx context.Context, feisID, id string, input resources.ContactInput) (*resources.Contact, error)
	DeleteContact(ctx context.Context, feisID, id string) error

	Accommodations(ctx context.Context, feisID string) ([]resources.Accommodation, error)
	Accommodation(ctx context.Context, feisID, id string) (*resources.Accommodation, error)
	CreateAccommodation(ctx context.Context, feisID string, input resources.AccommodationInput) (*resources.Accommodation, error)
	UpdateAccommodation(ctx context.Context, feisID, id string, input resources.AccommodationInput) (*resources.Accommodation, error)
	DeleteAccommodation(ctx context.Context, feisID, id string) error

	Attachments(ctx context.Context, feisID string) ([]resources.Attachment, error)
	Attachment(ctx context.Context, feisID, id string) (*resources.Attachment, error)
	CreateAttachment(ctx context.Context, feisID string, input resources.AttachmentInput) (*resources.Attachment, error)
	RenameAttachment(ctx context.Context, feisID, id string, input resources.AttachmentRename) (*resources.Attachment, error)
	DeleteAttachment(ctx context.Context, feisID, id string) error
}

// ResourcesHandler serves a feis's contacts, accommodations and attachments.
type ResourcesHandler struct {
	base
	svc ResourceService
}

func NewResourcesHandler(svc ResourceService, env string) *ResourcesHandler {
	return &ResourcesHandler{base: base{Env: env}, svc: svc}
}

func (h *ResourcesHandler) Contacts(w http.ResponseWriter, r *http.Request) {
	respondList(w, r, h.base, func() ([]resources.Contact, error) { return h.svc.Contacts(r.Context(), feisID(r)) })
}

func (h *ResourcesHandler) Contact(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondOne(w, r, h.base, http.StatusOK, func() (*resources.Contact, error) { return h.svc.Contact(r.Context(), feisID(r), id) })
}

func (h *ResourcesHandler) CreateContact(w http.ResponseWriter, r *http.Request) {
	respondBody(w, r, h.base, http.StatusCreated, func(in resources.ContactInput) (*resources.Contact, error) {
		return h.svc.CreateContact(r.Context(), feisID(r), in)
	})
}

func (h *ResourcesHandler) UpdateContact(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondBody(w, r, h.base, http.StatusOK, func(in resources.ContactInput) (*resources.Contact, error) {
		return h.svc.UpdateContact(r.Context(), feisID(r), id, in)
	})
}

func (h *ResourcesHandler) DeleteContact(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondDone(w, r, h.base, func() error { return h.svc.DeleteContact(r.Context(), feisID(r), id) })
}

func (h *ResourcesHandler) Accommodations(w http.ResponseWriter, r *http.Request) {
	respondList(w, r, h.base, func() ([]resources.Accommodation, error) {
		return h.svc.Accommodations(r.Context(), feisID(r))
	})
}

func (h *ResourcesHandler) Accommodation(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondOne(w, r, h.base, http.StatusOK, func() (*resources.Accommodation, error) {
		return h.svc.Accommodation(r.Context(), feisID(r), id)
	})
}

func (h *ResourcesHandler) CreateAccommodation(w http.ResponseWriter, r *http.Request) {
	respondBody(w, r, h.base, http.StatusCreated, func(in resources.AccommodationInput) (*resources.Accommodation, error) {
		return h.svc.CreateAccommodation(r.Context(), feisID(r), in)
	})
}

func (h *ResourcesHandler) UpdateAccommodation(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondBody(w, r, h.base, http.StatusOK, func(in resources.AccommodationInput) (*resources.Accommodation, error) {
		return h.svc.UpdateAccommodation(r.Context(), feisID(r), id, in)
	})
}

func (h *ResourcesHandler) DeleteAccommodation(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondDone(w, r, h.base, func() error { return h.svc.DeleteAccommodation(r.Context(), feisID(r), id) })
}

func (h *ResourcesHandler) Attachments(w http.ResponseWriter, r *http.Request) {
	respondList(w, r, h.base, func() ([]resources.Attachment, error) {
		return h.svc.Attachments(r.Context(), feisID(r))
	})
}

func (h *ResourcesHandler) Attachment(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondOne(w, r, h.base, http.StatusOK, func() (*resources.Attachment, error) {
		return h.svc.Attachment(r.Context(), feisID(r), id)
	})
}

// CreateAttachment records an uploaded file by its public URL.
func (h *ResourcesHandler) CreateAttachment(w http.ResponseWriter, r *http.Request) {
	respondBody(w, r, h.base, http.StatusCreated, func(in resources.AttachmentInput) (*resources.Attachment, error) {
		return h.svc.CreateAttachment(r.Context(), feisID(r), in)
	})
}

func (h *ResourcesHandler) RenameAttachment(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondBody(w, r, h.base, http.StatusOK, func(in resources.AttachmentRename) (*resources.Attachment, error) {
		return h.svc.RenameAttachment(r.Context(), feisID(r), id, in)
	})
}

func (h *ResourcesHandler) DeleteAttachment(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondDone(w, r, h.base, func() error { return h.svc.DeleteAttachment(r.Context(), feisID(r), id) })
}
