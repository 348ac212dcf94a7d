package handlers

import (
	"context"
	"net/http"

	"github.com/ifeis/server/internal/api/middleware"
	"github.com/ifeis/server/internal/auth"
	"github.com/ifeis/server/internal/domain/payments"
)

type PaymentService interface {
	Debits(ctx context.Context, feisID, accountID string) ([]payments.Fee, error)
	Credits(ctx context.Context, feisID, accountID string) ([]payments.Payment, error)
	Credit(ctx context.Context, feisID, accountID string, input payments.CreditInput) (*payments.Payment, error)
	CreditFromStripe(ctx context.Context, feisID, accountID string, input payments.CardInput) (*payments.Payment, error)
	Summary(ctx context.Context, feisID string) (*payments.Summary, error)
}

// PaymentsHandler serves the per-feis ledger of an account.
type PaymentsHandler struct {
	base
	svc PaymentService
}

func NewPaymentsHandler(svc PaymentService, env string) *PaymentsHandler {
	return &PaymentsHandler{base: base{Env: env}, svc: svc}
}

type creditRequest struct {
	Amount      int64  `json:"amt"`
	Description string `json:"description"`
	StripeToken string `json:"stripe_token"`
}

func (h *PaymentsHandler) Credits(w http.ResponseWriter, r *http.Request) {
	aid, ok := h.ledgerAccount(w, r)
	if !ok {
		return
	}
	respondList(w, r, h.base, func() ([]payments.Payment, error) {
		return h.svc.Credits(r.Context(), feisID(r), aid)
	})
}

func (h *PaymentsHandler) Debits(w http.ResponseWriter, r *http.Request) {
	aid, ok := h.ledgerAccount(w, r)
	if !ok {
		return
	}
	respondList(w, r, h.base, func() ([]payments.Fee, error) {
		return h.svc.Debits(r.Context(), feisID(r), aid)
	})
}

// AddCredit charges a card when a Stripe token is sent. Without one it
// records an offline payment, which only registration staff may do.
func (h *PaymentsHandler) AddCredit(w http.ResponseWriter, r *http.Request) {
	aid, ok := h.ledgerAccount(w, r)
	if !ok {
		return
	}
	var body creditRequest
	if err := decodeJSON(r, &body); err != nil {
		h.fail(w, r, err)
		return
	}

	if body.StripeToken != "" {
		respondOne(w, r, h.base, http.StatusCreated, func() (*payments.Payment, error) {
			return h.svc.CreditFromStripe(r.Context(), feisID(r), aid, payments.CardInput{Amount: body.Amount, Token: body.StripeToken})
		})
		return
	}
	if err := auth.IsRegistrar(middleware.FeisAccessFrom(r.Context())); err != nil {
		h.fail(w, r, err)
		return
	}
	respondOne(w, r, h.base, http.StatusCreated, func() (*payments.Payment, error) {
		return h.svc.Credit(r.Context(), feisID(r), aid, payments.CreditInput{Amount: body.Amount, Description: body.Description})
	})
}

func (h *PaymentsHandler) Summary(w http.ResponseWriter, r *http.Request) {
	respondOne(w, r, h.base, http.StatusOK, func() (*payments.Summary, error) {
		return h.svc.Summary(r.Context(), feisID(r))
	})
}

// ledgerAccount resolves {aid}. The account may read its own ledger;
// anyone else needs the registration role.
func (h *PaymentsHandler) ledgerAccount(w http.ResponseWriter, r *http.Request) (string, bool) {
	aid, err := idParam(r, "aid")
	if err != nil {
		h.fail(w, r, err)
		return "", false
	}
	access := middleware.FeisAccessFrom(r.Context())
	if err := auth.RequireLogin(access.Caller); err != nil {
		h.fail(w, r, err)
		return "", false
	}
	if access.Caller.AccountID != aid {
		if err := auth.IsRegistrar(access); err != nil {
			h.fail(w, r, err)
			return "", false
		}
	}
	return aid, true
}
