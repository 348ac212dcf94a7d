package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ifeis/server/internal/domain/scores"
	"github.com/ifeis/server/internal/email"
	"github.com/ifeis/server/internal/metrics"
	"github.com/riverqueue/river"
	"github.com/rs/zerolog"
)

// EmailArgs carries one rendered-on-delivery message.
type EmailArgs struct {
	Message email.Message `json:"message"`
}

func (EmailArgs) Kind() string { return JobKindEmail }

// CachePlacementsArgs asks for an event's placements to be stored.
type CachePlacementsArgs struct {
	FeisID  string `json:"feis_id"`
	EventID string `json:"event_id"`
}

func (CachePlacementsArgs) Kind() string { return JobKindCachePlacements }

type InvitationRemindersArgs struct{}

func (InvitationRemindersArgs) Kind() string { return JobKindInvitationReminders }

type Sender interface {
	Send(ctx context.Context, msg email.Message) error
}

type PlacementCacher interface {
	CachePlacements(ctx context.Context, feisID, eventID string) ([]scores.Stored, error)
}

type InvitationReminder interface {
	RemindStale(ctx context.Context, after time.Duration) (int, error)
}

// EmailWorker delivers queued emails.
type EmailWorker struct {
	river.WorkerDefaults[EmailArgs]
	Sender Sender
}

func (EmailWorker) Kind() string { return JobKindEmail }

func (w EmailWorker) Work(ctx context.Context, job *river.Job[EmailArgs]) error {
	if w.Sender == nil {
		return fmt.Errorf("email sender not configured")
	}
	msg := job.Args.Message
	if err := w.Sender.Send(ctx, msg); err != nil {
		var limited *email.RateLimitedError
		if errors.As(err, &limited) {
			metrics.EmailsSent.WithLabelValues(msg.Template, "snoozed").Inc()
			return river.JobSnooze(limited.RetryAfter)
		}
		metrics.EmailsSent.WithLabelValues(msg.Template, "error").Inc()
		if errors.Is(err, email.ErrBadRecipient) {
			return river.JobCancel(err)
		}
		return fmt.Errorf("send %s email: %w", msg.Template, err)
	}
	metrics.EmailsSent.WithLabelValues(msg.Template, "success").Inc()
	return nil
}

// CachePlacementsWorker stores computed placements once an event reaches
// results. Recomputing is idempotent, so retries are safe.
type CachePlacementsWorker struct {
	river.WorkerDefaults[CachePlacementsArgs]
	Placements PlacementCacher
	Logger     zerolog.Logger
}

func (CachePlacementsWorker) Kind() string { return JobKindCachePlacements }

func (w CachePlacementsWorker) Work(ctx context.Context, job *river.Job[CachePlacementsArgs]) error {
	if w.Placements == nil {
		return fmt.Errorf("placement service not configured")
	}
	stored, err := w.Placements.CachePlacements(ctx, job.Args.FeisID, job.Args.EventID)
	if err != nil {
		return fmt.Errorf("cache placements for event %s: %w", job.Args.EventID, err)
	}
	w.Logger.Info().
		Str("feis_id", job.Args.FeisID).
		Str("event_id", job.Args.EventID).
		Int("participants", len(stored)).
		Msg("placements cached")
	return nil
}

// InvitationRemindersWorker re-sends invitations nobody has used.
type InvitationRemindersWorker struct {
	river.WorkerDefaults[InvitationRemindersArgs]
	Invitations InvitationReminder
	After       time.Duration
	Logger      zerolog.Logger
}

func (InvitationRemindersWorker) Kind() string { return JobKindInvitationReminders }

func (w InvitationRemindersWorker) Work(ctx context.Context, job *river.Job[InvitationRemindersArgs]) error {
	if w.Invitations == nil {
		return fmt.Errorf("invitation service not configured")
	}
	sent, err := w.Invitations.RemindStale(ctx, w.After)
	if err != nil {
		return fmt.Errorf("remind stale invitations: %w", err)
	}
	if sent > 0 {
		w.Logger.Info().Int("reminders", sent).Msg("invitation reminders sent")
	}
	return nil
}

// Dependencies are the services the workers call into.
type Dependencies struct {
	Sender        Sender
	Placements    PlacementCacher
	Invitations   InvitationReminder
	ReminderAfter time.Duration
	Logger        zerolog.Logger
}

func NewWorkers(deps Dependencies) *river.Workers {
	logger := deps.Logger.With().Str("component", "jobs").Logger()
	workers := river.NewWorkers()
	river.AddWorker[EmailArgs](workers, EmailWorker{Sender: deps.Sender})
	river.AddWorker[CachePlacementsArgs](workers, CachePlacementsWorker{Placements: deps.Placements, Logger: logger})
	river.AddWorker[InvitationRemindersArgs](workers, InvitationRemindersWorker{
		Invitations: deps.Invitations,
		After:       deps.ReminderAfter,
		Logger:      logger,
	})
	return workers
}
