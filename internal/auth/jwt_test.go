package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func testManager(t *testing.T) *SessionManager {
	t.Helper()
	key, err := DeriveSessionKey([]byte("secret"))
	if err != nil {
		t.Fatalf("derive key: %v", err)
	}
	return NewSessionManager(key, time.Hour, "ifeis")
}

func TestSessionGenerateValidate(t *testing.T) {
	manager := testManager(t)
	token, err := manager.Generate("acct-1", true)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	claims, err := manager.Validate(token)
	if err != nil {
		t.Fatalf("validate token: %v", err)
	}
	if claims.Subject != "acct-1" || !claims.God {
		t.Fatalf("unexpected claims: %#v", claims)
	}
}

func TestSessionGenerateInvalid(t *testing.T) {
	manager := testManager(t)
	if _, err := manager.Generate("", false); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected invalid token error, got %v", err)
	}
}

func TestSessionValidateMissing(t *testing.T) {
	manager := testManager(t)
	if _, err := manager.Validate(""); !errors.Is(err, ErrMissingToken) {
		t.Fatalf("expected missing token error, got %v", err)
	}
}

func TestSessionValidateRejectsOtherKeys(t *testing.T) {
	manager := testManager(t)
	other := NewSessionManager([]byte("raw-secret-not-derived"), time.Hour, "ifeis")
	token, err := other.Generate("acct-1", false)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	if _, err := manager.Validate(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected invalid token error, got %v", err)
	}
}

func TestSessionValidateRejectsExpired(t *testing.T) {
	manager := testManager(t)
	claims := &Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "acct-1",
		Issuer:    "ifeis",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
	}}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(manager.key)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	if _, err := manager.Validate(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected invalid token error, got %v", err)
	}
}

func TestTokenFromHeader(t *testing.T) {
	if _, err := TokenFromHeader("nope"); !errors.Is(err, ErrMissingToken) {
		t.Fatalf("expected missing token error, got %v", err)
	}
	if token, err := TokenFromHeader("Bearer token"); err != nil || token != "token" {
		t.Fatalf("expected token, got %s err %v", token, err)
	}
}
