package handlers

import (
	"context"
	"net/http"

	"github.com/ifeis/server/internal/domain/catalog"
)

type CatalogService interface {
	Schools(ctx context.Context) ([]catalog.School, error)
	School(ctx context.Context, id string) (*catalog.School, error)
	CreateSchool(ctx context.Context, input catalog.SchoolInput) (*catalog.School, error)
	UpdateSchool(ctx context.Context, id string, input catalog.SchoolInput) (*catalog.School, error)
	DeleteSchool(ctx context.Context, id string) error

	Dances(ctx context.Context) ([]catalog.Dance, error)
	Dance(ctx context.Context, id string) (*catalog.Dance, error)
	CreateDance(ctx context.Context, input catalog.DanceInput) (*catalog.Dance, error)
	UpdateDance(ctx context.Context, id string, input catalog.DanceInput) (*catalog.Dance, error)
	DeleteDance(ctx context.Context, id string) error

	Adjudicators(ctx context.Context) ([]catalog.Adjudicator, error)
	Adjudicator(ctx context.Context, id string) (*catalog.Adjudicator, error)
	CreateAdjudicator(ctx context.Context, input catalog.AdjudicatorInput) (*catalog.Adjudicator, error)
	UpdateAdjudicator(ctx context.Context, id string, input catalog.AdjudicatorInput) (*catalog.Adjudicator, error)
	DeleteAdjudicator(ctx context.Context, id string) error
}

// CatalogHandler serves the global schools, dances and adjudicators lists.
// The router only lets gods reach the write methods.
type CatalogHandler struct {
	base
	svc CatalogService
}

func NewCatalogHandler(svc CatalogService, env string) *CatalogHandler {
	return &CatalogHandler{base: base{Env: env}, svc: svc}
}

func (h *CatalogHandler) Schools(w http.ResponseWriter, r *http.Request) {
	respondList(w, r, h.base, func() ([]catalog.School, error) { return h.svc.Schools(r.Context()) })
}

func (h *CatalogHandler) School(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondOne(w, r, h.base, http.StatusOK, func() (*catalog.School, error) { return h.svc.School(r.Context(), id) })
}

func (h *CatalogHandler) CreateSchool(w http.ResponseWriter, r *http.Request) {
	respondBody(w, r, h.base, http.StatusCreated, func(in catalog.SchoolInput) (*catalog.School, error) {
		return h.svc.CreateSchool(r.Context(), in)
	})
}

func (h *CatalogHandler) UpdateSchool(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondBody(w, r, h.base, http.StatusOK, func(in catalog.SchoolInput) (*catalog.School, error) {
		return h.svc.UpdateSchool(r.Context(), id, in)
	})
}

func (h *CatalogHandler) DeleteSchool(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondDone(w, r, h.base, func() error { return h.svc.DeleteSchool(r.Context(), id) })
}

func (h *CatalogHandler) Dances(w http.ResponseWriter, r *http.Request) {
	respondList(w, r, h.base, func() ([]catalog.Dance, error) { return h.svc.Dances(r.Context()) })
}

func (h *CatalogHandler) Dance(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondOne(w, r, h.base, http.StatusOK, func() (*catalog.Dance, error) { return h.svc.Dance(r.Context(), id) })
}

func (h *CatalogHandler) CreateDance(w http.ResponseWriter, r *http.Request) {
	respondBody(w, r, h.base, http.StatusCreated, func(in catalog.DanceInput) (*catalog.Dance, error) {
		return h.svc.CreateDance(r.Context(), in)
	})
}

func (h *CatalogHandler) UpdateDance(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondBody(w, r, h.base, http.StatusOK, func(in catalog.DanceInput) (*catalog.Dance, error) {
		return h.svc.UpdateDance(r.Context(), id, in)
	})
}

func (h *CatalogHandler) DeleteDance(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondDone(w, r, h.base, func() error { return h.svc.DeleteDance(r.Context(), id) })
}

func (h *CatalogHandler) Adjudicators(w http.ResponseWriter, r *http.Request) {
	respondList(w, r, h.base, func() ([]catalog.Adjudicator, error) { return h.svc.Adjudicators(r.Context()) })
}

func (h *CatalogHandler) Adjudicator(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondOne(w, r, h.base, http.StatusOK, func() (*catalog.Adjudicator, error) { return h.svc.Adjudicator(r.Context(), id) })
}

func (h *CatalogHandler) CreateAdjudicator(w http.ResponseWriter, r *http.Request) {
	respondBody(w, r, h.base, http.StatusCreated, func(in catalog.AdjudicatorInput) (*catalog.Adjudicator, error) {
		return h.svc.CreateAdjudicator(r.Context(), in)
	})
}

func (h *CatalogHandler) UpdateAdjudicator(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondBody(w, r, h.base, http.StatusOK, func(in catalog.AdjudicatorInput) (*catalog.Adjudicator, error) {
		return h.svc.UpdateAdjudicator(r.Context(), id, in)
	})
}

func (h *CatalogHandler) DeleteAdjudicator(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondDone(w, r, h.base, func() error { return h.svc.DeleteAdjudicator(r.Context(), id) })
}
