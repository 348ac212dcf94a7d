package handlers

import (
	"context"
	"net/http"

	"github.com/ifeis/server/internal/api/middleware"
	"github.com/ifeis/server/internal/auth"
	"github.com/ifeis/server/internal/domain/accounts"
	"github.com/ifeis/server/internal/domain/catalog"
	"github.com/ifeis/server/internal/domain/events"
	"github.com/ifeis/server/internal/domain/feiseanna"
	"github.com/ifeis/server/internal/domain/grants"
)

type FeisService interface {
	All(ctx context.Context, accountID string, includePast bool) ([]feiseanna.Summary, error)
	ForUser(ctx context.Context, accountID string) ([]feiseanna.Summary, error)
	Templates(ctx context.Context) ([]feiseanna.Template, error)
	Create(ctx context.Context, accountID string, input feiseanna.CreateInput) (*feiseanna.Feis, error)
	Update(ctx context.Context, id string, u feiseanna.Update) (*feiseanna.Feis, error)
	Finalize(ctx context.Context, id string) (*feiseanna.Feis, error)
	Publish(ctx context.Context, id string) (*feiseanna.Feis, error)
	Unpublish(ctx context.Context, id string) (*feiseanna.Feis, error)

	Participants(ctx context.Context, feisID, filter string, offset, limit int) ([]events.Competitor, error)
	Participant(ctx context.Context, feisID string, num int) (*events.Competitor, error)
	AccountsWithoutPayment(ctx context.Context, feisID string) ([]accounts.Person, error)
	CompetitorsBySchool(ctx context.Context, feisID string) ([]feiseanna.SchoolCount, error)
	ScoresForPerson(ctx context.Context, feisID, personID string) ([]feiseanna.PersonResult, error)
	PlacementsForPerson(ctx context.Context, feisID, personID string) ([]feiseanna.PersonResult, error)

	CreateInvitation(ctx context.Context, input feiseanna.InvitationInput) (*feiseanna.Invitation, error)
	Invitations(ctx context.Context) ([]feiseanna.Invitation, error)
	Invitation(ctx context.Context, id string) (*feiseanna.Invitation, error)
	InvalidateInvitation(ctx context.Context, id string) (*feiseanna.Invitation, error)
}

type PersonnelService interface {
	GrantByEmail(ctx context.Context, feisID string, role grants.Role, address, granterID string) (*grants.Grant, error)
	On(ctx context.Context, feisID string) ([]grants.Grant, error)
	For(ctx context.Context, feisID, accountID string) ([]grants.Grant, error)
	Revoke(ctx context.Context, feisID, grantID string) error
}

type AdjudicatorRoster interface {
	FeisAdjudicators(ctx context.Context, feisID string) ([]catalog.Adjudicator, error)
	AttachAdjudicator(ctx context.Context, feisID, adjudicatorID string) (*catalog.Adjudicator, error)
	DetachAdjudicator(ctx context.Context, feisID, adjudicatorID string) error
}

type PrintQueuer interface {
	PrintQueue(ctx context.Context, feisID string) (*events.PrintQueue, error)
}

// FeiseannaHandler serves /api/feiseanna and the feis-level reports under it.
// Routes below /{fid} run behind a FeisGuard, so the feis is already loaded
// and the caller checked when these methods run.
type FeiseannaHandler struct {
	base
	feis      FeisService
	personnel PersonnelService
	roster    AdjudicatorRoster
	queue     PrintQueuer
}

func NewFeiseannaHandler(feis FeisService, personnel PersonnelService, roster AdjudicatorRoster, queue PrintQueuer, env string) *FeiseannaHandler {
	return &FeiseannaHandler{base: base{Env: env}, feis: feis, personnel: personnel, roster: roster, queue: queue}
}

func feisID(r *http.Request) string {
	if access := middleware.FeisAccessFrom(r.Context()); access.Feis != nil {
		return access.Feis.ID
	}
	return pathParam(r, "fid")
}

// List returns public feiseanna merged with the caller's own. Past events
// are hidden unless include_past is set.
func (h *FeiseannaHandler) List(w http.ResponseWriter, r *http.Request) {
	respondList(w, r, h.base, func() ([]feiseanna.Summary, error) {
		return h.feis.All(r.Context(), caller(r).AccountID, queryBool(r, "include_past"))
	})
}

// Create turns an invitation into a new feis owned by the caller.
func (h *FeiseannaHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in feiseanna.CreateInput
	if err := decodeJSON(r, &in); err != nil {
		h.fail(w, r, err)
		return
	}
	c := caller(r)
	inv, err := h.feis.Invitation(r.Context(), in.InviteID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := auth.CanUseInvite(c, inv); err != nil {
		h.fail(w, r, err)
		return
	}
	respondOne(w, r, h.base, http.StatusCreated, func() (*feiseanna.Feis, error) {
		return h.feis.Create(r.Context(), c.AccountID, in)
	})
}

func (h *FeiseannaHandler) Mine(w http.ResponseWriter, r *http.Request) {
	respondList(w, r, h.base, func() ([]feiseanna.Summary, error) {
		return h.feis.ForUser(r.Context(), caller(r).AccountID)
	})
}

func (h *FeiseannaHandler) Templates(w http.ResponseWriter, r *http.Request) {
	respondList(w, r, h.base, func() ([]feiseanna.Template, error) { return h.feis.Templates(r.Context()) })
}

func (h *FeiseannaHandler) Get(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, middleware.FeisAccessFrom(r.Context()).Feis)
}

// Update changes the fields present in the body; the rest are kept.
func (h *FeiseannaHandler) Update(w http.ResponseWriter, r *http.Request) {
	respondBody(w, r, h.base, http.StatusOK, func(in feiseanna.Update) (*feiseanna.Feis, error) {
		return h.feis.Update(r.Context(), feisID(r), in)
	})
}

func (h *FeiseannaHandler) Finalize(w http.ResponseWriter, r *http.Request) {
	respondOne(w, r, h.base, http.StatusOK, func() (*feiseanna.Feis, error) { return h.feis.Finalize(r.Context(), feisID(r)) })
}

func (h *FeiseannaHandler) Publish(w http.ResponseWriter, r *http.Request) {
	respondOne(w, r, h.base, http.StatusOK, func() (*feiseanna.Feis, error) { return h.feis.Publish(r.Context(), feisID(r)) })
}

func (h *FeiseannaHandler) Unpublish(w http.ResponseWriter, r *http.Request) {
	respondOne(w, r, h.base, http.StatusOK, func() (*feiseanna.Feis, error) { return h.feis.Unpublish(r.Context(), feisID(r)) })
}

// Participants pages through competitors, optionally filtered by name or
// number.
func (h *FeiseannaHandler) Participants(w http.ResponseWriter, r *http.Request) {
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	limit, err := queryInt(r, "limit", feiseanna.DefaultParticipantLimit)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	filter := r.URL.Query().Get("filter")
	respondList(w, r, h.base, func() ([]events.Competitor, error) {
		return h.feis.Participants(r.Context(), feisID(r), filter, offset, limit)
	})
}

func (h *FeiseannaHandler) Participant(w http.ResponseWriter, r *http.Request) {
	num, err := intParam(r, "num")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondOne(w, r, h.base, http.StatusOK, func() (*events.Competitor, error) {
		return h.feis.Participant(r.Context(), feisID(r), num)
	})
}

func (h *FeiseannaHandler) AccountsWithoutPayment(w http.ResponseWriter, r *http.Request) {
	respondList(w, r, h.base, func() ([]accounts.Person, error) {
		return h.feis.AccountsWithoutPayment(r.Context(), feisID(r))
	})
}

func (h *FeiseannaHandler) ParticipantsBySchool(w http.ResponseWriter, r *http.Request) {
	respondList(w, r, h.base, func() ([]feiseanna.SchoolCount, error) {
		return h.feis.CompetitorsBySchool(r.Context(), feisID(r))
	})
}

func (h *FeiseannaHandler) ScoresForPerson(w http.ResponseWriter, r *http.Request) {
	pid, err := idParam(r, "pid")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondList(w, r, h.base, func() ([]feiseanna.PersonResult, error) {
		return h.feis.ScoresForPerson(r.Context(), feisID(r), pid)
	})
}

func (h *FeiseannaHandler) PlacementsForPerson(w http.ResponseWriter, r *http.Request) {
	pid, err := idParam(r, "pid")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondList(w, r, h.base, func() ([]feiseanna.PersonResult, error) {
		return h.feis.PlacementsForPerson(r.Context(), feisID(r), pid)
	})
}

func (h *FeiseannaHandler) Adjudicators(w http.ResponseWriter, r *http.Request) {
	respondList(w, r, h.base, func() ([]catalog.Adjudicator, error) {
		return h.roster.FeisAdjudicators(r.Context(), feisID(r))
	})
}

func (h *FeiseannaHandler) AttachAdjudicator(w http.ResponseWriter, r *http.Request) {
	aid, err := idParam(r, "aid")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondOne(w, r, h.base, http.StatusOK, func() (*catalog.Adjudicator, error) {
		return h.roster.AttachAdjudicator(r.Context(), feisID(r), aid)
	})
}

func (h *FeiseannaHandler) DetachAdjudicator(w http.ResponseWriter, r *http.Request) {
	aid, err := idParam(r, "aid")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondDone(w, r, h.base, func() error { return h.roster.DetachAdjudicator(r.Context(), feisID(r), aid) })
}

func (h *FeiseannaHandler) Personnel(w http.ResponseWriter, r *http.Request) {
	respondList(w, r, h.base, func() ([]grants.Grant, error) { return h.personnel.On(r.Context(), feisID(r)) })
}

// AddPersonnel grants a role to whoever owns the email, creating a
// placeholder account when nobody does.
func (h *FeiseannaHandler) AddPersonnel(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Role  string `json:"role"`
		Email string `json:"email"`
	}
	if err := decodeJSON(r, &body); err != nil {
		h.fail(w, r, err)
		return
	}
	role, err := grants.ParseRole(body.Role)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondOne(w, r, h.base, http.StatusCreated, func() (*grants.Grant, error) {
		return h.personnel.GrantByEmail(r.Context(), feisID(r), role, body.Email, caller(r).AccountID)
	})
}

// MyPersonnel lists the caller's own grants. An unknown feis simply yields
// an empty list.
func (h *FeiseannaHandler) MyPersonnel(w http.ResponseWriter, r *http.Request) {
	fid, err := idParam(r, "fid")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondList(w, r, h.base, func() ([]grants.Grant, error) {
		return h.personnel.For(r.Context(), fid, caller(r).AccountID)
	})
}

func (h *FeiseannaHandler) RemovePersonnel(w http.ResponseWriter, r *http.Request) {
	gid, err := idParam(r, "gid")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondDone(w, r, h.base, func() error { return h.personnel.Revoke(r.Context(), feisID(r), gid) })
}

// ResultsQueue lists events waiting for their recall or placement sheets.
func (h *FeiseannaHandler) ResultsQueue(w http.ResponseWriter, r *http.Request) {
	respondOne(w, r, h.base, http.StatusOK, func() (*events.PrintQueue, error) {
		return h.queue.PrintQueue(r.Context(), feisID(r))
	})
}

func (h *FeiseannaHandler) Invitations(w http.ResponseWriter, r *http.Request) {
	respondList(w, r, h.base, func() ([]feiseanna.Invitation, error) { return h.feis.Invitations(r.Context()) })
}

func (h *FeiseannaHandler) CreateInvitation(w http.ResponseWriter, r *http.Request) {
	respondBody(w, r, h.base, http.StatusCreated, func(in feiseanna.InvitationInput) (*feiseanna.Invitation, error) {
		return h.feis.CreateInvitation(r.Context(), in)
	})
}

// Invitation shows an invitation to the account it was issued to, or a god.
func (h *FeiseannaHandler) Invitation(w http.ResponseWriter, r *http.Request) {
	iid, err := idParam(r, "iid")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	inv, err := h.feis.Invitation(r.Context(), iid)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := auth.CanSeeInvite(caller(r), inv); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

func (h *FeiseannaHandler) InvalidateInvitation(w http.ResponseWriter, r *http.Request) {
	iid, err := idParam(r, "iid")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondOne(w, r, h.base, http.StatusOK, func() (*feiseanna.Invitation, error) {
		return h.feis.InvalidateInvitation(r.Context(), iid)
	})
}
