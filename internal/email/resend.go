package email

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/resend/resend-go/v2"
)

// defaultRateLimitWait applies when Resend omits a usable reset header.
const defaultRateLimitWait = time.Minute

// RateLimitedError reports that Resend refused the message for now. The
// email worker snoozes the job for RetryAfter instead of counting a failure.
type RateLimitedError struct {
	RetryAfter time.Duration
	Err        error
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("email rate limited, retry in %s: %v", e.RetryAfter, e.Err)
}

func (e *RateLimitedError) Unwrap() error { return e.Err }

type rendered struct {
	to, subject, html, text string
}

func (s *Service) sendViaResend(ctx context.Context, msg rendered) error {
	if s.resendClient == nil {
		return errors.New("resend client not initialized")
	}

	sent, err := s.resendClient.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    s.config.From,
		To:      []string{msg.to},
		Subject: msg.subject,
		Html:    msg.html,
		Text:    msg.text,
	})
	if err != nil {
		var limited *resend.RateLimitError
		if errors.As(err, &limited) {
			wait := defaultRateLimitWait
			if secs, convErr := strconv.Atoi(limited.Reset); convErr == nil && secs > 0 {
				wait = time.Duration(secs) * time.Second
			}
			s.logger.Warn().Str("remaining", limited.Remaining).Dur("retry_after", wait).Msg("resend rate limit hit")
			return &RateLimitedError{RetryAfter: wait, Err: err}
		}
		return fmt.Errorf("resend API error: %w", err)
	}

	s.logger.Info().Str("email_id", sent.Id).Str("to", msg.to).Msg("email sent")
	return nil
}
