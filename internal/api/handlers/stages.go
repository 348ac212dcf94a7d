package handlers

import (
	"context"
	"net/http"

	"github.com/ifeis/server/internal/domain/stages"
)

type StageService interface {
	All(ctx context.Context, feisID string) ([]stages.Stage, error)
	One(ctx context.Context, feisID, id string) (*stages.Stage, error)
	Create(ctx context.Context, feisID string, input stages.Input) (*stages.Stage, error)
	Update(ctx context.Context, feisID, id string, input stages.Input) (*stages.Stage, error)
	Remove(ctx context.Context, feisID, id string) error
	Events(ctx context.Context, feisID string) ([]stages.Item, error)
	Schedule(ctx context.Context, feisID, id string) ([]stages.Item, error)
	AttachEvent(ctx context.Context, feisID, stageID string, req stages.AttachRequest) (*stages.Stage, error)
	AttachPlaceholder(ctx context.Context, feisID, stageID string, req stages.AttachRequest) (*stages.Stage, error)
	DetachEvent(ctx context.Context, feisID, stageID, eventID string) (*stages.Stage, error)
	DetachPlaceholder(ctx context.Context, feisID, stageID, itemID string) (*stages.Stage, error)
}

// StagesHandler edits the running order of each stage.
type StagesHandler struct {
	base
	svc StageService
}

func NewStagesHandler(svc StageService, env string) *StagesHandler {
	return &StagesHandler{base: base{Env: env}, svc: svc}
}

func (h *StagesHandler) All(w http.ResponseWriter, r *http.Request) {
	respondList(w, r, h.base, func() ([]stages.Stage, error) { return h.svc.All(r.Context(), feisID(r)) })
}

func (h *StagesHandler) Create(w http.ResponseWriter, r *http.Request) {
	respondBody(w, r, h.base, http.StatusCreated, func(in stages.Input) (*stages.Stage, error) {
		return h.svc.Create(r.Context(), feisID(r), in)
	})
}

// Unscheduled lists the active events not yet on any stage.
func (h *StagesHandler) Unscheduled(w http.ResponseWriter, r *http.Request) {
	respondList(w, r, h.base, func() ([]stages.Item, error) { return h.svc.Events(r.Context(), feisID(r)) })
}

func (h *StagesHandler) Get(w http.ResponseWriter, r *http.Request) {
	sid, err := idParam(r, "sid")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondOne(w, r, h.base, http.StatusOK, func() (*stages.Stage, error) { return h.svc.One(r.Context(), feisID(r), sid) })
}

func (h *StagesHandler) Update(w http.ResponseWriter, r *http.Request) {
	sid, err := idParam(r, "sid")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondBody(w, r, h.base, http.StatusOK, func(in stages.Input) (*stages.Stage, error) {
		return h.svc.Update(r.Context(), feisID(r), sid, in)
	})
}

func (h *StagesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	sid, err := idParam(r, "sid")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondDone(w, r, h.base, func() error { return h.svc.Remove(r.Context(), feisID(r), sid) })
}

func (h *StagesHandler) Schedule(w http.ResponseWriter, r *http.Request) {
	sid, err := idParam(r, "sid")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondList(w, r, h.base, func() ([]stages.Item, error) { return h.svc.Schedule(r.Context(), feisID(r), sid) })
}

func (h *StagesHandler) AttachEvent(w http.ResponseWriter, r *http.Request) {
	sid, err := idParam(r, "sid")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondBody(w, r, h.base, http.StatusOK, func(in stages.AttachRequest) (*stages.Stage, error) {
		return h.svc.AttachEvent(r.Context(), feisID(r), sid, in)
	})
}

func (h *StagesHandler) AttachPlaceholder(w http.ResponseWriter, r *http.Request) {
	sid, err := idParam(r, "sid")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondBody(w, r, h.base, http.StatusOK, func(in stages.AttachRequest) (*stages.Stage, error) {
		return h.svc.AttachPlaceholder(r.Context(), feisID(r), sid, in)
	})
}

func (h *StagesHandler) DetachEvent(w http.ResponseWriter, r *http.Request) {
	keys, err := idParams(r, "sid", "eid")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondOne(w, r, h.base, http.StatusOK, func() (*stages.Stage, error) {
		return h.svc.DetachEvent(r.Context(), feisID(r), keys[0], keys[1])
	})
}

func (h *StagesHandler) DetachPlaceholder(w http.ResponseWriter, r *http.Request) {
	keys, err := idParams(r, "sid", "iid")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondOne(w, r, h.base, http.StatusOK, func() (*stages.Stage, error) {
		return h.svc.DetachPlaceholder(r.Context(), feisID(r), keys[0], keys[1])
	})
}
