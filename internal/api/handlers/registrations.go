package handlers

import (
	"context"
	"net/http"

	"github.com/ifeis/server/internal/api/middleware"
	"github.com/ifeis/server/internal/auth"
	"github.com/ifeis/server/internal/domain/accounts"
	"github.com/ifeis/server/internal/domain/errs"
	"github.com/ifeis/server/internal/domain/events"
	"github.com/ifeis/server/internal/domain/ids"
)

type RegistrationService interface {
	All(ctx context.Context, feisID, personID string) ([]events.Participant, error)
	Create(ctx context.Context, feisID, personID, eventID string) (*events.Participant, error)
	Delete(ctx context.Context, feisID, personID, eventID string) error
	ChangeNum(ctx context.Context, feisID, personID string, num int) (*events.Competitor, error)
}

type PersonOwner interface {
	FromPerson(ctx context.Context, personID string) (*accounts.Person, error)
}

// RegistrationsHandler enters people into events. Account holders manage
// their own household; registration staff manage anyone.
type RegistrationsHandler struct {
	base
	svc    RegistrationService
	owners PersonOwner
}

func NewRegistrationsHandler(svc RegistrationService, owners PersonOwner, env string) *RegistrationsHandler {
	return &RegistrationsHandler{base: base{Env: env}, svc: svc, owners: owners}
}

func (h *RegistrationsHandler) All(w http.ResponseWriter, r *http.Request) {
	pid, ok := h.person(w, r)
	if !ok {
		return
	}
	respondList(w, r, h.base, func() ([]events.Participant, error) {
		return h.svc.All(r.Context(), feisID(r), pid)
	})
}

func (h *RegistrationsHandler) Create(w http.ResponseWriter, r *http.Request) {
	pid, ok := h.person(w, r)
	if !ok {
		return
	}
	var body struct {
		EventID string `json:"event_id"`
	}
	if err := decodeJSON(r, &body); err != nil {
		h.fail(w, r, err)
		return
	}
	if !ids.IsULID(body.EventID) {
		h.fail(w, r, errs.Invalid("%s", FieldError{Field: "event_id", Message: "invalid ULID"}.Error()))
		return
	}
	respondOne(w, r, h.base, http.StatusCreated, func() (*events.Participant, error) {
		return h.svc.Create(r.Context(), feisID(r), pid, body.EventID)
	})
}

// ChangeNum reassigns a competitor number. Staff only.
func (h *RegistrationsHandler) ChangeNum(w http.ResponseWriter, r *http.Request) {
	pid, err := idParam(r, "pid")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := auth.IsRegistrar(middleware.FeisAccessFrom(r.Context())); err != nil {
		h.fail(w, r, err)
		return
	}
	var body struct {
		Num int `json:"num"`
	}
	if err := decodeJSON(r, &body); err != nil {
		h.fail(w, r, err)
		return
	}
	if body.Num <= 0 {
		h.fail(w, r, errs.Invalid("%s", FieldError{Field: "num", Message: "must be positive"}.Error()))
		return
	}
	respondOne(w, r, h.base, http.StatusOK, func() (*events.Competitor, error) {
		return h.svc.ChangeNum(r.Context(), feisID(r), pid, body.Num)
	})
}

func (h *RegistrationsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	pid, ok := h.person(w, r)
	if !ok {
		return
	}
	eid, err := idParam(r, "eid")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondDone(w, r, h.base, func() error { return h.svc.Delete(r.Context(), feisID(r), pid, eid) })
}

// person resolves {pid} and checks the caller owns that person or works
// registration.
func (h *RegistrationsHandler) person(w http.ResponseWriter, r *http.Request) (string, bool) {
	pid, err := idParam(r, "pid")
	if err != nil {
		h.fail(w, r, err)
		return "", false
	}
	access := middleware.FeisAccessFrom(r.Context())
	if err := auth.RequireLogin(access.Caller); err != nil {
		h.fail(w, r, err)
		return "", false
	}
	if auth.IsRegistrar(access) == nil {
		return pid, true
	}
	owner, err := h.owners.FromPerson(r.Context(), pid)
	if err != nil {
		h.fail(w, r, err)
		return "", false
	}
	if owner.ID != access.Caller.AccountID {
		h.fail(w, r, auth.ErrNotAllowed)
		return "", false
	}
	return pid, true
}
