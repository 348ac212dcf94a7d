package email

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	htmltemplate "html/template"
	"net/mail"
	"strings"
	texttemplate "text/template"
	"time"

	"github.com/ifeis/server/internal/config"
	"github.com/resend/resend-go/v2"
	"github.com/rs/zerolog"
)

//go:embed templates/*.html templates/*.txt
var templateFS embed.FS

// Template names understood by Send.
const (
	TemplateWelcome         = "welcome"
	TemplateFeisInvite      = "feis-invite"
	TemplateFeisInviteNew   = "feis-invite-new"
	TemplateLeadAcquisition = "lead-acquisition"
)

var knownTemplates = map[string]struct{}{
	TemplateWelcome:         {},
	TemplateFeisInvite:      {},
	TemplateFeisInviteNew:   {},
	TemplateLeadAcquisition: {},
}

// ErrBadRecipient marks a message that can never be delivered.
var ErrBadRecipient = errors.New("invalid recipient email")

// Message is one outbound email. Data is rendered into both the HTML and the
// plain-text variant of Template; BaseURL and CurrentYear are always set.
type Message struct {
	Template string         `json:"template"`
	Subject  string         `json:"subject"`
	To       string         `json:"to"`
	Data     map[string]any `json:"data,omitempty"`
}

// Queue accepts messages for asynchronous delivery.
type Queue interface {
	Enqueue(ctx context.Context, msg Message) error
}

// Service renders templates and delivers them through the configured provider.
type Service struct {
	config       config.EmailConfig
	baseURL      string
	provider     string
	html         *htmltemplate.Template
	text         *texttemplate.Template
	resendClient *resend.Client
	logger       zerolog.Logger
}

func NewService(cfg config.EmailConfig, baseURL string, logger zerolog.Logger) (*Service, error) {
	if cfg.Enabled {
		if err := validateEmailAddress(cfg.From); err != nil {
			return nil, fmt.Errorf("invalid sender email in config: %w", err)
		}
	}

	html, err := htmltemplate.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse html email templates: %w", err)
	}
	text, err := texttemplate.ParseFS(templateFS, "templates/*.txt")
	if err != nil {
		return nil, fmt.Errorf("failed to parse text email templates: %w", err)
	}

	svc := &Service{
		config:   cfg,
		baseURL:  baseURL,
		provider: strings.ToLower(cfg.Provider),
		html:     html,
		text:     text,
		logger:   logger.With().Str("component", "email").Logger(),
	}
	if svc.provider == "resend" {
		svc.resendClient = resend.NewClient(cfg.ResendAPIKey)
	}
	return svc, nil
}

// Send renders msg and delivers it immediately.
func (s *Service) Send(ctx context.Context, msg Message) error {
	if _, ok := knownTemplates[msg.Template]; !ok {
		return fmt.Errorf("unknown email template %q", msg.Template)
	}
	if err := validateEmailAddress(msg.To); err != nil {
		return fmt.Errorf("%w: %w", ErrBadRecipient, err)
	}

	htmlBody, textBody, err := s.render(msg)
	if err != nil {
		return err
	}

	if !s.config.Enabled {
		s.logger.Info().
			Str("to", msg.To).
			Str("template", msg.Template).
			Msg("email service disabled, skipping email")
		return nil
	}

	switch s.provider {
	case "resend":
		return s.sendViaResend(ctx, rendered{to: msg.To, subject: msg.Subject, html: htmlBody, text: textBody})
	default:
		s.logger.Info().
			Str("to", msg.To).
			Str("subject", msg.Subject).
			Str("template", msg.Template).
			Msg("email logged")
		return nil
	}
}

func (s *Service) render(msg Message) (string, string, error) {
	data := make(map[string]any, len(msg.Data)+2)
	for k, v := range msg.Data {
		data[k] = v
	}
	data["BaseURL"] = s.baseURL
	data["CurrentYear"] = time.Now().Year()

	var htmlBuf bytes.Buffer
	if err := s.html.ExecuteTemplate(&htmlBuf, msg.Template+".html", data); err != nil {
		return "", "", fmt.Errorf("failed to execute template %s: %w", msg.Template, err)
	}
	var textBuf bytes.Buffer
	if err := s.text.ExecuteTemplate(&textBuf, msg.Template+".txt", data); err != nil {
		return "", "", fmt.Errorf("failed to execute template %s: %w", msg.Template, err)
	}
	return htmlBuf.String(), textBuf.String(), nil
}

// validateEmailAddress validates an email address for format and header injection attempts
func validateEmailAddress(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil {
		return fmt.Errorf("invalid email format: %w", err)
	}
	if strings.ContainsAny(addr.Address, "\r\n") {
		return fmt.Errorf("invalid email address: contains newline characters")
	}
	return nil
}
