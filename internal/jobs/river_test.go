package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ifeis/server/internal/config"
	"github.com/riverqueue/river/rivertype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRetryPolicy_UsesConfiguredAttempts(t *testing.T) {
	policy := NewRetryPolicy(config.JobsConfig{RetryEmail: 7, RetryPlacements: 2})

	assert.Equal(t, 7, policy.ByKind[JobKindEmail].MaxAttempts)
	assert.Equal(t, 2, policy.ByKind[JobKindCachePlacements].MaxAttempts)
	assert.Equal(t, 1, policy.ByKind[JobKindInvitationReminders].MaxAttempts)
}

func TestNewRetryPolicy_ClampsToOneAttempt(t *testing.T) {
	policy := NewRetryPolicy(config.JobsConfig{})
	assert.Equal(t, 1, policy.ByKind[JobKindEmail].MaxAttempts)
	assert.Equal(t, 1, policy.ByKind[JobKindCachePlacements].MaxAttempts)
}

func TestRetryPolicy_NextRetry(t *testing.T) {
	policy := NewRetryPolicy(config.JobsConfig{RetryEmail: 5, RetryPlacements: 3})
	attempted := time.Date(2026, 3, 17, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		kind    string
		attempt int
		want    time.Duration
	}{
		{name: "email first retry", kind: JobKindEmail, attempt: 1, want: time.Minute},
		{name: "email doubles", kind: JobKindEmail, attempt: 3, want: 4 * time.Minute},
		{name: "email capped", kind: JobKindEmail, attempt: 12, want: time.Hour},
		{name: "placements quick", kind: JobKindCachePlacements, attempt: 2, want: 10 * time.Second},
		{name: "placements capped", kind: JobKindCachePlacements, attempt: 9, want: time.Minute},
		{name: "unknown kind uses default", kind: "other", attempt: 1, want: 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := &rivertype.JobRow{Kind: tt.kind, Attempt: tt.attempt, AttemptedAt: &attempted}
			assert.Equal(t, attempted.Add(tt.want), policy.NextRetry(job))
		})
	}
}

func TestRetryPolicy_NoDelayRetriesNow(t *testing.T) {
	policy := NewRetryPolicy(config.JobsConfig{})
	before := time.Now()
	next := policy.NextRetry(&rivertype.JobRow{Kind: JobKindInvitationReminders, Attempt: 1})
	assert.False(t, next.Before(before))
}

func TestRetryPolicy_InsertOpts(t *testing.T) {
	policy := NewRetryPolicy(config.JobsConfig{RetryEmail: 4})
	opts := policy.InsertOpts(JobKindEmail, QueueEmail)
	assert.Equal(t, 4, opts.MaxAttempts)
	assert.Equal(t, QueueEmail, opts.Queue)
}

func TestNewClientConfig(t *testing.T) {
	policy := NewRetryPolicy(config.JobsConfig{RetryEmail: 3, RetryPlacements: 3})
	cfg := NewClientConfig(NewWorkers(Dependencies{}), policy, NewLogger("warn"), nil, NewPeriodicJobs())

	require.NotNil(t, cfg.ErrorHandler)
	assert.Equal(t, policy.Default.MaxAttempts, cfg.MaxAttempts)
	assert.Len(t, cfg.PeriodicJobs, 1)
	assert.Contains(t, cfg.Queues, QueueEmail)
	assert.Contains(t, cfg.Queues, QueueResults)
}

func TestErrorHandler_Notifies(t *testing.T) {
	var got error
	h := NewErrorHandler(NewLogger("error"), func(_ context.Context, _ *rivertype.JobRow, err error) {
		got = err
	})

	job := &rivertype.JobRow{ID: 1, Kind: JobKindEmail, Attempt: 1, MaxAttempts: 3}
	assert.Nil(t, h.HandleError(context.Background(), job, errors.New("smtp down")))
	assert.EqualError(t, got, "smtp down")

	assert.Nil(t, h.HandlePanic(context.Background(), job, "boom", "trace"))
	assert.EqualError(t, got, "panic: boom")
}
