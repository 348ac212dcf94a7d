package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/ifeis/server/internal/domain/errs"
	"github.com/ifeis/server/internal/domain/events"
)

type EventService interface {
	One(ctx context.Context, feisID, id string) (*events.Event, error)
	Query(ctx context.Context, feisID string, q events.Query) ([]events.Event, error)
	Create(ctx context.Context, feisID string, input events.Input) (*events.Event, error)
	Update(ctx context.Context, feisID, id string, input events.Input) (*events.Event, error)
	Delete(ctx context.Context, feisID, id string) error
	Participants(ctx context.Context, feisID, eventID string) ([]events.Competitor, error)
	Merge(ctx context.Context, feisID, aID, bID string, input events.Input) (*events.Event, error)
	Split(ctx context.Context, feisID, eventID string, input1 events.Input, persons1 []string, input2 events.Input, persons2 []string) ([]events.Event, error)

	OpenCheckIn(ctx context.Context, feisID, eventID string) (*events.Event, error)
	CloseCheckIn(ctx context.Context, feisID, eventID string) (*events.Event, error)
	CheckInToTabs(ctx context.Context, feisID, eventID string) (*events.Event, error)
	Reset(ctx context.Context, feisID, eventID string) (*events.Event, error)
	SendToQA(ctx context.Context, feisID, eventID string) (*events.Event, error)
	SendToResults(ctx context.Context, feisID, eventID string) (*events.Event, error)
	SetAnnounced(ctx context.Context, feisID, eventID string) (*events.Event, error)
	SetRecallsPrinted(ctx context.Context, feisID, eventID string) (*events.Event, error)
	SetPlacementsPrinted(ctx context.Context, feisID, eventID string) (*events.Event, error)

	Checkin(ctx context.Context, feisID, eventID, personID string) (*events.Participant, error)
	Checkout(ctx context.Context, feisID, eventID, personID string) (*events.Participant, error)
	UpdateRegistration(ctx context.Context, feisID, eventID, personID string, update events.RegistrationUpdate) (*events.Participant, error)
	OrderParticipants(ctx context.Context, feisID, eventID string, order []events.OrderEntry) ([]events.Competitor, error)
	CollectAward(ctx context.Context, feisID, eventID, personID string) error
	ReturnAward(ctx context.Context, feisID, eventID, personID string) error
}

// EventsHandler serves the events of a feis and moves them through the
// day's workflow.
type EventsHandler struct {
	base
	svc EventService
}

func NewEventsHandler(svc EventService, env string) *EventsHandler {
	return &EventsHandler{base: base{Env: env}, svc: svc}
}

// Query lists active events matching the query string filters.
func (h *EventsHandler) Query(w http.ResponseWriter, r *http.Request) {
	q, err := events.ParseQuery(r.URL.Query())
	if err != nil {
		var fe events.FilterError
		if errors.As(err, &fe) {
			err = errs.Invalid("%s", fe.Error())
		}
		h.fail(w, r, err)
		return
	}
	respondList(w, r, h.base, func() ([]events.Event, error) { return h.svc.Query(r.Context(), feisID(r), q) })
}

func (h *EventsHandler) Create(w http.ResponseWriter, r *http.Request) {
	respondBody(w, r, h.base, http.StatusCreated, func(in events.Input) (*events.Event, error) {
		return h.svc.Create(r.Context(), feisID(r), in)
	})
}

func (h *EventsHandler) Get(w http.ResponseWriter, r *http.Request) {
	eid, err := idParam(r, "eid")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondOne(w, r, h.base, http.StatusOK, func() (*events.Event, error) { return h.svc.One(r.Context(), feisID(r), eid) })
}

func (h *EventsHandler) Update(w http.ResponseWriter, r *http.Request) {
	eid, err := idParam(r, "eid")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondBody(w, r, h.base, http.StatusOK, func(in events.Input) (*events.Event, error) {
		return h.svc.Update(r.Context(), feisID(r), eid, in)
	})
}

func (h *EventsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	eid, err := idParam(r, "eid")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondDone(w, r, h.base, func() error { return h.svc.Delete(r.Context(), feisID(r), eid) })
}

func (h *EventsHandler) Participants(w http.ResponseWriter, r *http.Request) {
	eid, err := idParam(r, "eid")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondList(w, r, h.base, func() ([]events.Competitor, error) {
		return h.svc.Participants(r.Context(), feisID(r), eid)
	})
}

// transition runs one of the flag operations against {eid}.
func (h *EventsHandler) transition(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, feisID, eventID string) (*events.Event, error)) {
	eid, err := idParam(r, "eid")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondOne(w, r, h.base, http.StatusOK, func() (*events.Event, error) { return op(r.Context(), feisID(r), eid) })
}

func (h *EventsHandler) Open(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.svc.OpenCheckIn)
}

func (h *EventsHandler) Close(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.svc.CloseCheckIn)
}

func (h *EventsHandler) CheckIn(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.svc.CheckInToTabs)
}

func (h *EventsHandler) Reset(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.svc.Reset)
}

func (h *EventsHandler) SendToQA(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.svc.SendToQA)
}

func (h *EventsHandler) SendToResults(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.svc.SendToResults)
}

func (h *EventsHandler) SetAnnounced(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.svc.SetAnnounced)
}

func (h *EventsHandler) RecallsPrinted(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.svc.SetRecallsPrinted)
}

func (h *EventsHandler) PlacementsPrinted(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.svc.SetPlacementsPrinted)
}

func (h *EventsHandler) OrderParticipants(w http.ResponseWriter, r *http.Request) {
	eid, err := idParam(r, "eid")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var order []events.OrderEntry
	if err := decodeJSON(r, &order); err != nil {
		h.fail(w, r, err)
		return
	}
	respondList(w, r, h.base, func() ([]events.Competitor, error) {
		return h.svc.OrderParticipants(r.Context(), feisID(r), eid, order)
	})
}

func (h *EventsHandler) UpdateRegistration(w http.ResponseWriter, r *http.Request) {
	keys, err := idParams(r, "eid", "pid")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondBody(w, r, h.base, http.StatusOK, func(in events.RegistrationUpdate) (*events.Participant, error) {
		return h.svc.UpdateRegistration(r.Context(), feisID(r), keys[0], keys[1], in)
	})
}

func (h *EventsHandler) participantOp(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, feisID, eventID, personID string) (*events.Participant, error)) {
	keys, err := idParams(r, "eid", "pid")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondOne(w, r, h.base, http.StatusOK, func() (*events.Participant, error) {
		return op(r.Context(), feisID(r), keys[0], keys[1])
	})
}

func (h *EventsHandler) CheckinParticipant(w http.ResponseWriter, r *http.Request) {
	h.participantOp(w, r, h.svc.Checkin)
}

func (h *EventsHandler) CheckoutParticipant(w http.ResponseWriter, r *http.Request) {
	h.participantOp(w, r, h.svc.Checkout)
}

type splitRequest struct {
	Props1   events.Input `json:"props1"`
	Persons1 []string     `json:"persons1"`
	Props2   events.Input `json:"props2"`
	Persons2 []string     `json:"persons2"`
}

// Split replaces an event with two, moving the listed people into each.
func (h *EventsHandler) Split(w http.ResponseWriter, r *http.Request) {
	eid, err := idParam(r, "eid")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var body splitRequest
	if err := decodeJSON(r, &body); err != nil {
		h.fail(w, r, err)
		return
	}
	respondList(w, r, h.base, func() ([]events.Event, error) {
		return h.svc.Split(r.Context(), feisID(r), eid, body.Props1, body.Persons1, body.Props2, body.Persons2)
	})
}

// Merge folds {eid} and {mid} into a new event described by props.
func (h *EventsHandler) Merge(w http.ResponseWriter, r *http.Request) {
	keys, err := idParams(r, "eid", "mid")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var body struct {
		Props events.Input `json:"props"`
	}
	if err := decodeJSON(r, &body); err != nil {
		h.fail(w, r, err)
		return
	}
	respondOne(w, r, h.base, http.StatusCreated, func() (*events.Event, error) {
		return h.svc.Merge(r.Context(), feisID(r), keys[0], keys[1], body.Props)
	})
}

func (h *EventsHandler) CollectAward(w http.ResponseWriter, r *http.Request) {
	keys, err := idParams(r, "eid", "pid")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondDone(w, r, h.base, func() error { return h.svc.CollectAward(r.Context(), feisID(r), keys[0], keys[1]) })
}

func (h *EventsHandler) ReturnAward(w http.ResponseWriter, r *http.Request) {
	keys, err := idParams(r, "eid", "pid")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondDone(w, r, h.base, func() error { return h.svc.ReturnAward(r.Context(), feisID(r), keys[0], keys[1]) })
}
