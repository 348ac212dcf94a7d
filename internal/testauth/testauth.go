// Package testauth signs session tokens for tests and local development.
// It must never be used by production code.
//
// Tokens are signed with a key derived from the same secret the server uses,
// so a server started with SESSION_SECRET=DevSecret accepts them.
package testauth

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/ifeis/server/internal/auth"
)

// DevSecret matches the SESSION_SECRET in .env.example.
const DevSecret = "dev_session_secret_change_me_in_production"

// Authenticator issues Bearer tokens for arbitrary accounts.
type Authenticator struct {
	manager *auth.SessionManager
}

type Config struct {
	// Secret defaults to SESSION_SECRET, then DevSecret.
	Secret string
	// Issuer must match the server's base URL for tokens to validate there.
	Issuer string
	Expiry time.Duration
}

func NewAuthenticator(cfg Config) (*Authenticator, error) {
	secret := cfg.Secret
	if secret == "" {
		secret = os.Getenv("SESSION_SECRET")
	}
	if secret == "" {
		secret = DevSecret
	}
	if cfg.Issuer == "" {
		cfg.Issuer = "http://localhost:8000"
	}
	if cfg.Expiry <= 0 {
		cfg.Expiry = time.Hour
	}

	key, err := auth.DeriveSessionKey([]byte(secret))
	if err != nil {
		return nil, fmt.Errorf("derive session key: %w", err)
	}
	return &Authenticator{manager: auth.NewSessionManager(key, cfg.Expiry, cfg.Issuer)}, nil
}

// Manager returns the session manager, for wiring into middleware.Sessions.
func (a *Authenticator) Manager() *auth.SessionManager {
	return a.manager
}

// Header returns an Authorization header value for the account.
func (a *Authenticator) Header(accountID string, god bool) (string, error) {
	token, err := a.manager.Generate(accountID, god)
	if err != nil {
		return "", err
	}
	return "Bearer " + token, nil
}

// AddAuth authenticates req as the account.
func (a *Authenticator) AddAuth(req *http.Request, accountID string, god bool) error {
	header, err := a.Header(accountID, god)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", header)
	return nil
}
