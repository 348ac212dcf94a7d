package email

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/ifeis/server/internal/config"
	"github.com/resend/resend-go/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func newResendService(t *testing.T, handler http.HandlerFunc) *Service {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := resend.NewClient("test-api-key")
	baseURL, err := url.Parse(server.URL)
	require.NoError(t, err)
	client.BaseURL = baseURL

	svc := newTestService(t, config.EmailConfig{
		Enabled:      true,
		Provider:     "resend",
		From:         "iFeis <noreply@ifeis.test>",
		ResendAPIKey: "test-api-key",
	})
	svc.resendClient = client
	return svc
}

func TestSend_ViaResend(t *testing.T) {
	var got resend.SendEmailRequest
	svc := newResendService(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/emails", r.URL.Path)
		require.Equal(t, "Bearer test-api-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "email-123"})
	})

	err := svc.Send(context.Background(), Message{
		Template: TemplateWelcome,
		Subject:  "Welcome to iFeis",
		To:       "dancer@example.com",
		Data:     map[string]any{"FName": "Niamh"},
	})
	require.NoError(t, err)
	require.Equal(t, []string{"dancer@example.com"}, got.To)
	require.Equal(t, "Welcome to iFeis", got.Subject)
	require.Contains(t, got.Html, "Niamh")
	require.Contains(t, got.Text, "Niamh")
}

func TestSendViaResend_RateLimitError(t *testing.T) {
	svc := newResendService(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-RateLimit-Limit", "100")
		w.Header().Set("X-RateLimit-Remaining", "0")
		w.Header().Set("X-RateLimit-Reset", "60")
		w.WriteHeader(http.StatusTooManyRequests)
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "Rate limit exceeded"})
	})

	err := svc.sendViaResend(context.Background(), rendered{to: "dancer@example.com", subject: "Subject", html: "<p>body</p>", text: "body"})
	var limited *RateLimitedError
	require.ErrorAs(t, err, &limited)
	require.Equal(t, 60*time.Second, limited.RetryAfter)
}

func TestSendViaResend_ServerError(t *testing.T) {
	svc := newResendService(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "boom"})
	})

	err := svc.sendViaResend(context.Background(), rendered{to: "dancer@example.com", subject: "Subject"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "resend API error")
	var limited *RateLimitedError
	require.False(t, errors.As(err, &limited))
}

func TestSendViaResend_NoClient(t *testing.T) {
	svc := &Service{logger: zerolog.Nop()}

	err := svc.sendViaResend(context.Background(), rendered{to: "dancer@example.com"})
	require.EqualError(t, err, "resend client not initialized")
}
