package jobs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"
)

// AlertFunc is told about jobs River is giving up on.
type AlertFunc func(ctx context.Context, job *rivertype.JobRow, err error)

// ErrorHandler logs failed attempts. Attempts River will retry are warnings.
// The final attempt is an error and is also passed to Notify, since a lost
// invitation email or an uncached result needs someone to look at it.
type ErrorHandler struct {
	Logger *slog.Logger
	Notify AlertFunc
}

func NewErrorHandler(logger *slog.Logger, notify AlertFunc) *ErrorHandler {
	return &ErrorHandler{Logger: logger, Notify: notify}
}

func (h *ErrorHandler) HandleError(ctx context.Context, job *rivertype.JobRow, err error) *river.ErrorHandlerResult {
	h.handle(ctx, job, err, "")
	return nil
}

// HandlePanic treats a panic like any other failure so the job is retried.
func (h *ErrorHandler) HandlePanic(ctx context.Context, job *rivertype.JobRow, panicVal any, trace string) *river.ErrorHandlerResult {
	h.handle(ctx, job, fmt.Errorf("panic: %v", panicVal), trace)
	return nil
}

func (h *ErrorHandler) handle(ctx context.Context, job *rivertype.JobRow, err error, trace string) {
	final := job.Attempt >= job.MaxAttempts
	if h.Logger != nil {
		level, msg := slog.LevelWarn, "job attempt failed"
		if final {
			level, msg = slog.LevelError, "job failed permanently"
		}
		attrs := []any{"job_id", job.ID, "kind", job.Kind, "queue", job.Queue,
			"attempt", job.Attempt, "max_attempts", job.MaxAttempts, "error", err}
		if trace != "" {
			attrs = append(attrs, "trace", trace)
		}
		h.Logger.Log(ctx, level, msg, attrs...)
	}
	if final && h.Notify != nil {
		h.Notify(ctx, job, err)
	}
}
