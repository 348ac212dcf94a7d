package handlers

import (
	"context"
	"net/http"

	"github.com/ifeis/server/internal/api/middleware"
	"github.com/ifeis/server/internal/auth"
	"github.com/ifeis/server/internal/domain/accounts"
	"github.com/ifeis/server/internal/domain/errs"
	"github.com/ifeis/server/internal/domain/feiseanna"
	"github.com/ifeis/server/internal/domain/ids"
	"github.com/ifeis/server/internal/domain/payments"
)

type AccountService interface {
	Get(ctx context.Context, id string) (*accounts.Person, error)
	Update(ctx context.Context, id string, update accounts.AccountUpdate) (*accounts.Person, error)
	Dependents(ctx context.Context, accountID string) ([]accounts.Person, error)
	FromPerson(ctx context.Context, personID string) (*accounts.Person, error)
	CreateDependent(ctx context.Context, accountID string, input accounts.DependentInput) (*accounts.Person, error)
	UpdateDependent(ctx context.Context, accountID, personID string, input accounts.DependentInput) (*accounts.Person, error)
}

type AccountPayments interface {
	Due(ctx context.Context, accountID string) ([]payments.Balance, error)
	Recent(ctx context.Context, accountID string) ([]payments.Payment, error)
}

type StarService interface {
	ForUser(ctx context.Context, accountID string) ([]feiseanna.Summary, error)
	Star(ctx context.Context, feisID, accountID string) (*feiseanna.Feis, error)
	Unstar(ctx context.Context, feisID, accountID string) error
}

// AccountsHandler serves /api/accounts.
type AccountsHandler struct {
	base
	accounts AccountService
	payments AccountPayments
	stars    StarService
	feis     middleware.FeisLoader
	grants   middleware.GrantLoader
}

func NewAccountsHandler(accts AccountService, pay AccountPayments, stars StarService, feis middleware.FeisLoader, g middleware.GrantLoader, env string) *AccountsHandler {
	return &AccountsHandler{base: base{Env: env}, accounts: accts, payments: pay, stars: stars, feis: feis, grants: g}
}

// selfOrGod lets an account see its own records. Gods see everyone's.
func selfOrGod(c auth.Caller, accountID string) error {
	if err := auth.RequireLogin(c); err != nil {
		return err
	}
	if c.God || c.AccountID == accountID {
		return nil
	}
	return errs.Forbidden("You do not have access to this account.")
}

func (h *AccountsHandler) Me(w http.ResponseWriter, r *http.Request) {
	person, err := h.accounts.Get(r.Context(), caller(r).AccountID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, person)
}

func (h *AccountsHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	var in accounts.AccountUpdate
	if err := decodeJSON(r, &in); err != nil {
		h.fail(w, r, err)
		return
	}
	person, err := h.accounts.Update(r.Context(), caller(r).AccountID, in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, person)
}

func (h *AccountsHandler) MyDependents(w http.ResponseWriter, r *http.Request) {
	h.writeDependents(w, r, caller(r).AccountID)
}

func (h *AccountsHandler) CreateDependent(w http.ResponseWriter, r *http.Request) {
	var in accounts.DependentInput
	if err := decodeJSON(r, &in); err != nil {
		h.fail(w, r, err)
		return
	}
	person, err := h.accounts.CreateDependent(r.Context(), caller(r).AccountID, in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, person)
}

func (h *AccountsHandler) UpdateDependent(w http.ResponseWriter, r *http.Request) {
	pid, err := idParam(r, "pid")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var in accounts.DependentInput
	if err := decodeJSON(r, &in); err != nil {
		h.fail(w, r, err)
		return
	}
	person, err := h.accounts.UpdateDependent(r.Context(), caller(r).AccountID, pid, in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, person)
}

// ForPerson returns the account a person belongs to.
func (h *AccountsHandler) ForPerson(w http.ResponseWriter, r *http.Request) {
	pid, err := idParam(r, "pid")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	person, err := h.accounts.FromPerson(r.Context(), pid)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, person)
}

func (h *AccountsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	person, err := h.accounts.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, person)
}

func (h *AccountsHandler) Dependents(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "aid")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := selfOrGod(caller(r), id); err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeDependents(w, r, id)
}

func (h *AccountsHandler) writeDependents(w http.ResponseWriter, r *http.Request, accountID string) {
	list, err := h.accounts.Dependents(r.Context(), accountID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if list == nil {
		list = []accounts.Person{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *AccountsHandler) Payments(w http.ResponseWriter, r *http.Request) {
	aid, ok := h.ownAccount(w, r)
	if !ok {
		return
	}
	list, err := h.payments.Recent(r.Context(), aid)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if list == nil {
		list = []payments.Payment{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *AccountsHandler) PaymentsDue(w http.ResponseWriter, r *http.Request) {
	aid, ok := h.ownAccount(w, r)
	if !ok {
		return
	}
	list, err := h.payments.Due(r.Context(), aid)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if list == nil {
		list = []payments.Balance{}
	}
	writeJSON(w, http.StatusOK, list)
}

// Feiseanna lists what the account organises, has saved or registered at.
func (h *AccountsHandler) Feiseanna(w http.ResponseWriter, r *http.Request) {
	aid, ok := h.ownAccount(w, r)
	if !ok {
		return
	}
	list, err := h.stars.ForUser(r.Context(), aid)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if list == nil {
		list = []feiseanna.Summary{}
	}
	writeJSON(w, http.StatusOK, list)
}

// Star saves the feis named in the body. The feis must be readable.
func (h *AccountsHandler) Star(w http.ResponseWriter, r *http.Request) {
	aid, ok := h.ownAccount(w, r)
	if !ok {
		return
	}
	var body struct {
		ID string `json:"id"`
	}
	if err := decodeJSON(r, &body); err != nil {
		h.fail(w, r, err)
		return
	}
	if !ids.IsULID(body.ID) {
		h.fail(w, r, errs.Invalid("%s", FieldError{Field: "id", Message: "invalid ULID"}.Error()))
		return
	}

	access := auth.FeisAccess{Caller: caller(r)}
	feis, err := h.feis.One(r.Context(), body.ID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	access.Feis = feis
	if access.Grants, err = h.grants.For(r.Context(), body.ID, access.Caller.AccountID); err != nil {
		h.fail(w, r, err)
		return
	}
	if err := auth.Readable(access); err != nil {
		h.fail(w, r, err)
		return
	}

	starred, err := h.stars.Star(r.Context(), body.ID, aid)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, starred)
}

func (h *AccountsHandler) Unstar(w http.ResponseWriter, r *http.Request) {
	aid, ok := h.ownAccount(w, r)
	if !ok {
		return
	}
	fid, err := idParam(r, "fid")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.stars.Unstar(r.Context(), fid, aid); err != nil {
		h.fail(w, r, err)
		return
	}
	noContent(w)
}

// ownAccount resolves {aid} and checks the caller may act for it.
func (h *AccountsHandler) ownAccount(w http.ResponseWriter, r *http.Request) (string, bool) {
	aid, err := idParam(r, "aid")
	if err == nil {
		err = selfOrGod(caller(r), aid)
	}
	if err != nil {
		h.fail(w, r, err)
		return "", false
	}
	return aid, true
}
