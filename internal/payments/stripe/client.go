// Package stripe talks to the Stripe REST API: card charges on behalf of a
// connected feis account, and the Connect OAuth exchange that links one.
package stripe

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ifeis/server/internal/config"
	"github.com/ifeis/server/internal/domain/payments"
)

type Client struct {
	cfg        config.StripeConfig
	httpClient *http.Client
}

func NewClient(cfg config.StripeConfig) *Client {
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Error is an error object returned by the Stripe API.
type Error struct {
	Status  int
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("stripe %s (%s): %s", e.Type, e.Code, e.Message)
	}
	return fmt.Sprintf("stripe %s: %s", e.Type, e.Message)
}

// Charge creates a charge on the connected account whose access token is
// given, taking the application fee for the platform.
func (c *Client) Charge(ctx context.Context, req payments.ChargeRequest) (*payments.Charge, error) {
	form := url.Values{
		"amount":               {strconv.FormatInt(req.Amount, 10)},
		"currency":             {req.Currency},
		"source":               {req.Source},
		"statement_descriptor": {req.StatementDescriptor},
		"description":          {req.Description},
	}
	if req.ApplicationFee > 0 {
		form.Set("application_fee", strconv.FormatInt(req.ApplicationFee, 10))
	}
	if req.ReceiptEmail != "" {
		form.Set("receipt_email", req.ReceiptEmail)
	}
	for k, v := range req.Metadata {
		form.Set("metadata["+k+"]", v)
	}

	var resp struct {
		ID       string `json:"id"`
		Paid     bool   `json:"paid"`
		Livemode bool   `json:"livemode"`
		Currency string `json:"currency"`
	}
	if err := c.post(ctx, c.cfg.APIBaseURL+"/v1/charges", req.AccessToken, form, &resp); err != nil {
		return nil, err
	}
	return &payments.Charge{ID: resp.ID, Paid: resp.Paid, Livemode: resp.Livemode, Currency: resp.Currency}, nil
}

// AuthorizeURL sends a chair to Stripe to connect an account. The state
// comes back on the callback unchanged.
func (c *Client) AuthorizeURL(state, redirectURI string) string {
	params := url.Values{
		"response_type": {"code"},
		"client_id":     {c.cfg.ClientID},
		"scope":         {"read_write"},
		"state":         {state},
	}
	if redirectURI != "" {
		params.Set("redirect_uri", redirectURI)
	}
	return c.cfg.ConnectBaseURL + "/oauth/authorize?" + params.Encode()
}

// Connection is the result of a Connect OAuth exchange.
type Connection struct {
	AccessToken string `json:"access_token"`
	StripeUser  string `json:"stripe_user_id"`
	Livemode    bool   `json:"livemode"`
}

func (c *Client) ExchangeCode(ctx context.Context, code string) (*Connection, error) {
	form := url.Values{
		"grant_type": {"authorization_code"},
		"code":       {code},
	}
	var conn Connection
	if err := c.post(ctx, c.cfg.ConnectBaseURL+"/oauth/token", c.cfg.SecretKey, form, &conn); err != nil {
		return nil, err
	}
	if conn.AccessToken == "" {
		return nil, fmt.Errorf("no access token in stripe connect response")
	}
	return &conn, nil
}

func (c *Client) post(ctx context.Context, endpoint, key string, form url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create stripe request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+key)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("stripe request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read stripe response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return decodeError(resp.StatusCode, body)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode stripe response: %w", err)
	}
	return nil
}

// decodeError handles both API errors ({"error": {...}}) and Connect OAuth
// errors ({"error": "...", "error_description": "..."}).
func decodeError(status int, body []byte) error {
	var api struct {
		Error *Error `json:"error"`
	}
	if err := json.Unmarshal(body, &api); err == nil && api.Error != nil {
		api.Error.Status = status
		return api.Error
	}
	var oauth struct {
		Error       string `json:"error"`
		Description string `json:"error_description"`
	}
	if err := json.Unmarshal(body, &oauth); err == nil && oauth.Error != "" {
		return &Error{Status: status, Type: "oauth_error", Code: oauth.Error, Message: oauth.Description}
	}
	return &Error{Status: status, Type: "api_error", Message: strings.TrimSpace(string(body))}
}
