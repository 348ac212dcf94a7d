package handlers

import (
	"context"
	"net/http"

	"github.com/ifeis/server/internal/domain/leads"
)

type LeadService interface {
	Create(ctx context.Context, input leads.Input) (*leads.Lead, error)
}

// LeadsHandler takes contact-form submissions from the public site.
type LeadsHandler struct {
	base
	svc LeadService
}

func NewLeadsHandler(svc LeadService, env string) *LeadsHandler {
	return &LeadsHandler{base: base{Env: env}, svc: svc}
}

func (h *LeadsHandler) Create(w http.ResponseWriter, r *http.Request) {
	respondBody(w, r, h.base, http.StatusCreated, func(in leads.Input) (*leads.Lead, error) {
		return h.svc.Create(r.Context(), in)
	})
}
