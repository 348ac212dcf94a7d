package handlers

import (
	"context"
	"net/http"

	"github.com/ifeis/server/internal/domain/accounts"
	"github.com/ifeis/server/internal/domain/errs"
	"github.com/ifeis/server/internal/domain/grants"
	"github.com/ifeis/server/internal/domain/ids"
	"github.com/ifeis/server/internal/payments/stripe"
	"github.com/rs/zerolog"
)

type StripeConnect interface {
	AuthorizeURL(state, redirectURI string) string
	ExchangeCode(ctx context.Context, code string) (*stripe.Connection, error)
}

type PayeeStore interface {
	ConnectStripe(ctx context.Context, accountID, feisID string, account accounts.StripeAccount) error
}

type GrantChecker interface {
	HasGrant(ctx context.Context, feisID, accountID string, roles ...grants.Role) (bool, error)
}

// StripeHandler connects a feis to the chair's Stripe account so it can take
// card payments.
type StripeHandler struct {
	base
	connect StripeConnect
	payees  PayeeStore
	grants  GrantChecker
	baseURL string
	logger  zerolog.Logger
}

func NewStripeHandler(connect StripeConnect, payees PayeeStore, g GrantChecker, baseURL, env string, logger zerolog.Logger) *StripeHandler {
	return &StripeHandler{
		base:    base{Env: env},
		connect: connect,
		payees:  payees,
		grants:  g,
		baseURL: baseURL,
		logger:  logger.With().Str("handler", "stripe").Logger(),
	}
}

// Authorize redirects to Stripe Connect. The feis id travels as the state.
func (h *StripeHandler) Authorize(w http.ResponseWriter, r *http.Request) {
	fid, err := idParam(r, "fid")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	http.Redirect(w, r, h.connect.AuthorizeURL(fid, h.baseURL+"/api/stripe/callback"), http.StatusFound)
}

// Callback stores the connected account as the feis payee and sends the
// browser back to the app whatever happened.
func (h *StripeHandler) Callback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if e := q.Get("error"); e != "" {
		h.logger.Warn().Str("error", e).Str("description", q.Get("error_description")).Msg("stripe connect refused")
		http.Redirect(w, r, loginDone, http.StatusFound)
		return
	}

	fid := q.Get("state")
	if !ids.IsULID(fid) {
		h.fail(w, r, errs.Invalid("%s", FieldError{Field: "state", Message: "invalid ULID"}.Error()))
		return
	}
	c := caller(r)
	if !c.God {
		chair, err := h.grants.HasGrant(r.Context(), fid, c.AccountID, grants.RoleChair)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		if !chair {
			h.fail(w, r, errs.Forbidden("Only the chair can connect payments."))
			return
		}
	}

	conn, err := h.connect.ExchangeCode(r.Context(), q.Get("code"))
	if err != nil {
		h.logger.Error().Err(err).Str("feis_id", fid).Msg("stripe code exchange failed")
		http.Redirect(w, r, loginDone, http.StatusFound)
		return
	}
	err = h.payees.ConnectStripe(r.Context(), c.AccountID, fid, accounts.StripeAccount{
		AccessToken: conn.AccessToken,
		StripeUser:  conn.StripeUser,
		Livemode:    conn.Livemode,
	})
	if err != nil {
		h.logger.Error().Err(err).Str("feis_id", fid).Msg("failed to store stripe payee")
	}
	http.Redirect(w, r, loginDone, http.StatusFound)
}
