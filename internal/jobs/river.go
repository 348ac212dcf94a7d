package jobs

import (
	"context"
	"log/slog"
	"math"
	"os"
	"time"

	"github.com/ifeis/server/internal/config"
	"github.com/ifeis/server/internal/metrics"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivertype"
	"github.com/rs/zerolog"
)

const (
	JobKindEmail               = "email"
	JobKindCachePlacements     = "cache_placements"
	JobKindInvitationReminders = "invitation_reminders"
)

const (
	QueueEmail   = "email"
	QueueResults = "results"
)

// ReminderInterval is how often stale invitations are looked for.
const ReminderInterval = 6 * time.Hour

// RetryConfig controls per-kind retry behavior.
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// RetryPolicy implements River's ClientRetryPolicy with per-kind exponential backoff.
type RetryPolicy struct {
	Default RetryConfig
	ByKind  map[string]RetryConfig
}

// NewRetryPolicy builds the retry schedule from the configured attempt
// counts.
func NewRetryPolicy(cfg config.JobsConfig) *RetryPolicy {
	return &RetryPolicy{
		Default: RetryConfig{
			MaxAttempts: 5,
			BaseDelay:   30 * time.Second,
			MaxDelay:    30 * time.Minute,
		},
		ByKind: map[string]RetryConfig{
			JobKindEmail: {
				MaxAttempts: atLeastOne(cfg.RetryEmail),
				BaseDelay:   1 * time.Minute,
				MaxDelay:    1 * time.Hour,
			},
			// Results are wanted on the day; retry quickly.
			JobKindCachePlacements: {
				MaxAttempts: atLeastOne(cfg.RetryPlacements),
				BaseDelay:   5 * time.Second,
				MaxDelay:    1 * time.Minute,
			},
			JobKindInvitationReminders: {
				MaxAttempts: 1,
			},
		},
	}
}

// NextRetry determines the next retry time for a failed job.
func (p *RetryPolicy) NextRetry(job *rivertype.JobRow) time.Time {
	cfg := p.configFor(job.Kind)
	if cfg.BaseDelay == 0 {
		return time.Now()
	}

	attempt := job.Attempt
	if attempt < 1 {
		attempt = 1
	}

	delay := time.Duration(float64(cfg.BaseDelay) * math.Pow(2, float64(attempt-1)))
	if cfg.MaxDelay > 0 && delay > cfg.MaxDelay {
		delay = cfg.MaxDelay
	}

	if job.AttemptedAt != nil {
		return job.AttemptedAt.Add(delay)
	}
	return time.Now().Add(delay)
}

// InsertOpts returns the insert options for a job kind.
func (p *RetryPolicy) InsertOpts(kind, queue string) *river.InsertOpts {
	return &river.InsertOpts{MaxAttempts: p.configFor(kind).MaxAttempts, Queue: queue}
}

func (p *RetryPolicy) configFor(kind string) RetryConfig {
	if p == nil {
		return RetryConfig{MaxAttempts: 5, BaseDelay: 1 * time.Minute, MaxDelay: 1 * time.Hour}
	}
	if cfg, ok := p.ByKind[kind]; ok {
		return cfg
	}
	return p.Default
}

func atLeastOne(n int) int {
	if n < 1 {
		return 1
	}
	return n
}

// NewClientConfig builds a River client configuration with retry policy.
func NewClientConfig(workers *river.Workers, policy *RetryPolicy, logger *slog.Logger, hooks []rivertype.Hook, periodicJobs []*river.PeriodicJob) *river.Config {
	cfg := &river.Config{
		Workers:      workers,
		RetryPolicy:  policy,
		MaxAttempts:  policy.Default.MaxAttempts,
		PeriodicJobs: periodicJobs,
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: 5},
			QueueEmail:         {MaxWorkers: 5},
			QueueResults:       {MaxWorkers: 10},
		},
		Hooks: hooks,
	}
	if logger != nil {
		cfg.Logger = logger
		cfg.ErrorHandler = NewErrorHandler(logger, countDiscarded)
	}
	return cfg
}

func countDiscarded(_ context.Context, job *rivertype.JobRow, _ error) {
	metrics.RiverJobsDiscarded.WithLabelValues(job.Kind, job.Queue).Inc()
}

// NewClient creates a River client using pgx v5.
func NewClient(pool *pgxpool.Pool, workers *river.Workers, policy *RetryPolicy, logger *slog.Logger, hooks []rivertype.Hook, periodicJobs []*river.PeriodicJob) (*river.Client[pgx.Tx], error) {
	return river.NewClient(riverpgxv5.New(pool), NewClientConfig(workers, policy, logger, hooks, periodicJobs))
}

// NewInsertOnlyClient creates a client that can enqueue but never works
// jobs, for CLI commands.
func NewInsertOnlyClient(pool *pgxpool.Pool, policy *RetryPolicy) (*river.Client[pgx.Tx], error) {
	return river.NewClient(riverpgxv5.New(pool), &river.Config{RetryPolicy: policy})
}

// NewPeriodicJobs schedules the invitation reminder sweep.
func NewPeriodicJobs() []*river.PeriodicJob {
	return []*river.PeriodicJob{
		river.NewPeriodicJob(
			river.PeriodicInterval(ReminderInterval),
			func() (river.JobArgs, *river.InsertOpts) {
				return InvitationRemindersArgs{}, nil
			},
			&river.PeriodicJobOpts{RunOnStart: false},
		),
	}
}

// NewLogger returns the slog logger River writes its own events to, at the
// same level as the zerolog process logger.
func NewLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch config.ParseLevel(level) {
	case zerolog.TraceLevel, zerolog.DebugLevel:
		lvl = slog.LevelDebug
	case zerolog.WarnLevel:
		lvl = slog.LevelWarn
	case zerolog.ErrorLevel, zerolog.FatalLevel, zerolog.PanicLevel:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})).With("component", "river")
}
