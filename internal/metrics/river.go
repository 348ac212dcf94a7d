package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"
)

var (
	RiverJobsQueued = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "river_jobs_queued_total",
			Help:      "Total number of River jobs queued",
		},
		[]string{"kind", "queue"},
	)

	RiverJobsInFlight = promauto.With(Registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "river_jobs_in_flight",
			Help:      "Current number of River jobs executing",
		},
		[]string{"kind", "queue"},
	)

	RiverJobDuration = promauto.With(Registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "river_job_duration_seconds",
			Help:      "River job execution duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300},
		},
		[]string{"kind", "queue"},
	)

	// RiverJobsCompleted counts finished attempts by result: success, error,
	// snoozed or cancelled.
	RiverJobsCompleted = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "river_jobs_completed_total",
			Help:      "Total number of River job attempts completed",
		},
		[]string{"kind", "queue", "result"},
	)

	RiverJobsDiscarded = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "river_jobs_discarded_total",
			Help:      "River jobs that failed their last attempt",
		},
		[]string{"kind", "queue"},
	)
)

// RiverMetricsHook feeds the River metrics. The attempt's duration is
// measured from the row's AttemptedAt, so the hook keeps no state.
type RiverMetricsHook struct {
	river.HookDefaults
}

func NewRiverMetricsHook() *RiverMetricsHook {
	return &RiverMetricsHook{}
}

func (h *RiverMetricsHook) InsertBegin(ctx context.Context, params *rivertype.JobInsertParams) error {
	RiverJobsQueued.WithLabelValues(params.Kind, params.Queue).Inc()
	return nil
}

func (h *RiverMetricsHook) WorkBegin(ctx context.Context, job *rivertype.JobRow) error {
	RiverJobsInFlight.WithLabelValues(job.Kind, job.Queue).Inc()
	return nil
}

func (h *RiverMetricsHook) WorkEnd(ctx context.Context, job *rivertype.JobRow, err error) error {
	RiverJobsInFlight.WithLabelValues(job.Kind, job.Queue).Dec()
	if job.AttemptedAt != nil {
		RiverJobDuration.WithLabelValues(job.Kind, job.Queue).Observe(time.Since(*job.AttemptedAt).Seconds())
	}
	RiverJobsCompleted.WithLabelValues(job.Kind, job.Queue, jobResult(err)).Inc()
	return nil
}

func jobResult(err error) string {
	var snooze *rivertype.JobSnoozeError
	var cancel *rivertype.JobCancelError
	switch {
	case err == nil:
		return "success"
	case errors.As(err, &snooze):
		return "snoozed"
	case errors.As(err, &cancel):
		return "cancelled"
	default:
		return "error"
	}
}
