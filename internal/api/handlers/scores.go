package handlers

import (
	"context"
	"net/http"

	"github.com/ifeis/server/internal/domain/catalog"
	"github.com/ifeis/server/internal/domain/events"
	"github.com/ifeis/server/internal/domain/scores"
)

type ScoreService interface {
	All(ctx context.Context, feisID, eventID, adjudicatorID string) ([]scores.SheetRow, error)
	Create(ctx context.Context, feisID, eventID, adjudicatorID, personID string, input scores.Input) (*scores.Score, error)
	Update(ctx context.Context, feisID, eventID, adjudicatorID, scoreID string, input scores.Input) (*scores.Score, error)
	Delete(ctx context.Context, feisID, eventID, scoreID string) error
	DeleteAll(ctx context.Context, feisID, eventID, adjudicatorID string) error
	Adjudicators(ctx context.Context, feisID, eventID string) ([]catalog.Adjudicator, error)
	CachePlacements(ctx context.Context, feisID, eventID string) ([]scores.Stored, error)
	Placements(ctx context.Context, feisID, eventID string) ([]events.Competitor, error)
}

// ScoresHandler takes adjudicators' marks and publishes placements.
type ScoresHandler struct {
	base
	svc ScoreService
}

func NewScoresHandler(svc ScoreService, env string) *ScoresHandler {
	return &ScoresHandler{base: base{Env: env}, svc: svc}
}

// Adjudicators lists who has scored the event so far.
func (h *ScoresHandler) Adjudicators(w http.ResponseWriter, r *http.Request) {
	eid, err := idParam(r, "eid")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondList(w, r, h.base, func() ([]catalog.Adjudicator, error) {
		return h.svc.Adjudicators(r.Context(), feisID(r), eid)
	})
}

// Sheet returns one adjudicator's scoresheet for the event.
func (h *ScoresHandler) Sheet(w http.ResponseWriter, r *http.Request) {
	keys, err := idParams(r, "eid", "aid")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondList(w, r, h.base, func() ([]scores.SheetRow, error) {
		return h.svc.All(r.Context(), feisID(r), keys[0], keys[1])
	})
}

func (h *ScoresHandler) ClearSheet(w http.ResponseWriter, r *http.Request) {
	keys, err := idParams(r, "eid", "aid")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondDone(w, r, h.base, func() error { return h.svc.DeleteAll(r.Context(), feisID(r), keys[0], keys[1]) })
}

func (h *ScoresHandler) Create(w http.ResponseWriter, r *http.Request) {
	keys, err := idParams(r, "eid", "aid", "pid")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondBody(w, r, h.base, http.StatusCreated, func(in scores.Input) (*scores.Score, error) {
		return h.svc.Create(r.Context(), feisID(r), keys[0], keys[1], keys[2], in)
	})
}

func (h *ScoresHandler) Update(w http.ResponseWriter, r *http.Request) {
	keys, err := idParams(r, "eid", "aid", "sid")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondBody(w, r, h.base, http.StatusOK, func(in scores.Input) (*scores.Score, error) {
		return h.svc.Update(r.Context(), feisID(r), keys[0], keys[1], keys[2], in)
	})
}

func (h *ScoresHandler) Delete(w http.ResponseWriter, r *http.Request) {
	keys, err := idParams(r, "eid", "sid")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondDone(w, r, h.base, func() error { return h.svc.Delete(r.Context(), feisID(r), keys[0], keys[1]) })
}

// Placements returns the published results of the event.
func (h *ScoresHandler) Placements(w http.ResponseWriter, r *http.Request) {
	eid, err := idParam(r, "eid")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondList(w, r, h.base, func() ([]events.Competitor, error) {
		return h.svc.Placements(r.Context(), feisID(r), eid)
	})
}

// CachePlacements recomputes placements and stores them on the participants.
func (h *ScoresHandler) CachePlacements(w http.ResponseWriter, r *http.Request) {
	eid, err := idParam(r, "eid")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondList(w, r, h.base, func() ([]scores.Stored, error) {
		return h.svc.CachePlacements(r.Context(), feisID(r), eid)
	})
}
