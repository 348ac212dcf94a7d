package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/ifeis/server/internal/api/middleware"
	"github.com/ifeis/server/internal/auth/oauth"
	"github.com/ifeis/server/internal/domain/accounts"
	"github.com/ifeis/server/internal/domain/errs"
	"github.com/rs/zerolog"
)

const (
	stateCookieName = "oauth_state"
	loginDone       = "/login/redirect"
	loginFailed     = "/login?error=oauth_failed"
)

type GoogleAuth interface {
	Configured() bool
	GenerateAuthURL(state string) string
	ExchangeCode(ctx context.Context, code string) (string, error)
	FetchUserProfile(ctx context.Context, accessToken string) (*oauth.GoogleUser, error)
}

type AccountResolver interface {
	GetOrCreate(ctx context.Context, profile accounts.Profile) (*accounts.Person, error)
}

type TokenIssuer interface {
	Generate(accountID string, god bool) (string, error)
}

// AuthHandler logs people in through Google and hands out session tokens.
type AuthHandler struct {
	base
	google   GoogleAuth
	accounts AccountResolver
	tokens   TokenIssuer
	cookie   CookieSettings
	logger   zerolog.Logger
}

// CookieSettings names the session cookie and its lifetime.
type CookieSettings struct {
	Name   string
	Secure bool
	Expiry time.Duration
}

func NewAuthHandler(google GoogleAuth, accts AccountResolver, tokens TokenIssuer, cookie CookieSettings, env string, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		base:     base{Env: env},
		google:   google,
		accounts: accts,
		tokens:   tokens,
		cookie:   cookie,
		logger:   logger.With().Str("handler", "auth").Logger(),
	}
}

// Status answers GET /api with whether the caller is logged in.
func (h *AuthHandler) Status(w http.ResponseWriter, r *http.Request) {
	c := caller(r)
	payload := map[string]any{"authenticated": c.Authenticated()}
	if c.Authenticated() {
		payload["account_id"] = c.AccountID
	}
	writeJSON(w, http.StatusOK, payload)
}

// GoogleLogin handles GET /login/google. The state is kept in a short-lived
// cookie and checked on the way back.
func (h *AuthHandler) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	if !h.google.Configured() {
		http.Redirect(w, r, loginFailed, http.StatusFound)
		return
	}
	state, err := oauth.GenerateState()
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to generate oauth state")
		http.Redirect(w, r, loginFailed, http.StatusFound)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/",
		MaxAge:   300,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, h.google.GenerateAuthURL(state), http.StatusFound)
}

// GoogleCallback handles GET /login/google/callback.
func (h *AuthHandler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	stateCookie, err := r.Cookie(stateCookieName)
	if err != nil {
		h.logger.Warn().Msg("oauth state cookie missing")
		http.Redirect(w, r, loginFailed, http.StatusFound)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})

	q := r.URL.Query()
	if state := q.Get("state"); state == "" || state != stateCookie.Value {
		h.logger.Warn().Msg("oauth state mismatch")
		http.Redirect(w, r, loginFailed, http.StatusFound)
		return
	}
	if errParam := q.Get("error"); errParam != "" {
		h.logger.Warn().Str("error", errParam).Msg("google oauth error")
		http.Redirect(w, r, loginFailed, http.StatusFound)
		return
	}
	code := q.Get("code")
	if code == "" {
		http.Redirect(w, r, loginFailed, http.StatusFound)
		return
	}

	accessToken, err := h.google.ExchangeCode(r.Context(), code)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to exchange oauth code")
		http.Redirect(w, r, loginFailed, http.StatusFound)
		return
	}
	user, err := h.google.FetchUserProfile(r.Context(), accessToken)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to fetch google profile")
		http.Redirect(w, r, loginFailed, http.StatusFound)
		return
	}

	if err := h.login(w, r, user.Profile()); err != nil {
		h.logger.Error().Err(err).Msg("login failed")
		http.Redirect(w, r, loginFailed, http.StatusFound)
		return
	}
	http.Redirect(w, r, loginDone, http.StatusFound)
}

// DevLogin handles GET /login/dev/{email}. It is only mounted in
// development.
func (h *AuthHandler) DevLogin(w http.ResponseWriter, r *http.Request) {
	address := strings.ToLower(pathParam(r, "email"))
	if !strings.Contains(address, "@") {
		h.fail(w, r, errs.Invalid("a valid email address is required"))
		return
	}
	profile := accounts.Profile{Provider: "dev", Subject: address, Email: address}
	if err := h.login(w, r, profile); err != nil {
		h.fail(w, r, err)
		return
	}
	http.Redirect(w, r, loginDone, http.StatusFound)
}

// Logout handles GET /logout.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	middleware.ClearSessionCookie(w, h.cookie.Name, h.cookie.Secure)
	http.Redirect(w, r, "/", http.StatusFound)
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request, profile accounts.Profile) error {
	person, err := h.accounts.GetOrCreate(r.Context(), profile)
	if err != nil {
		return err
	}
	token, err := h.tokens.Generate(person.ID, person.IsGod)
	if err != nil {
		return err
	}
	middleware.SetSessionCookie(w, h.cookie.Name, token, h.cookie.Expiry, h.cookie.Secure)
	h.logger.Info().Str("account_id", person.ID).Str("provider", profile.Provider).Msg("logged in")
	return nil
}
