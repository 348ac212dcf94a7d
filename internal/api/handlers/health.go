package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
)

// HealthCheck is the readiness report.
type HealthCheck struct {
	Status    string                 `json:"status"`
	Version   string                 `json:"version"`
	GitCommit string                 `json:"git_commit"`
	Checks    map[string]CheckResult `json:"checks"`
	Timestamp string                 `json:"timestamp"`
}

type CheckResult struct {
	Status    string         `json:"status"`
	Message   string         `json:"message,omitempty"`
	LatencyMs int64          `json:"latency_ms,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
}

// HealthDB is the slice of pgxpool.Pool the checks use.
type HealthDB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// HealthChecker reports on the database, the migration state and the job
// queue. jobsEnabled is false when the server runs without River workers.
type HealthChecker struct {
	db          HealthDB
	jobsEnabled bool
	version     string
	gitCommit   string
}

func NewHealthChecker(db HealthDB, jobsEnabled bool, version, gitCommit string) *HealthChecker {
	return &HealthChecker{
		db:          db,
		jobsEnabled: jobsEnabled,
		version:     version,
		gitCommit:   gitCommit,
	}
}

// Health runs every check and answers 503 when any of them fails.
func (h *HealthChecker) Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "shutting_down"})
			return
		default:
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		checks := map[string]CheckResult{
			"database":   h.checkDatabase(ctx),
			"migrations": h.checkMigrations(ctx),
			"job_queue":  h.checkJobQueue(ctx),
		}
		status, code := overallStatus(checks)

		writeJSON(w, code, HealthCheck{
			Status:    status,
			Version:   h.version,
			GitCommit: h.gitCommit,
			Checks:    checks,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		})
	}
}

func overallStatus(checks map[string]CheckResult) (string, int) {
	status := "healthy"
	for _, check := range checks {
		switch check.Status {
		case "fail":
			return "unhealthy", http.StatusServiceUnavailable
		case "warn":
			status = "degraded"
		}
	}
	return status, http.StatusOK
}

func (h *HealthChecker) checkDatabase(ctx context.Context) CheckResult {
	if h.db == nil {
		return CheckResult{Status: "fail", Message: "Database pool not initialized"}
	}

	start := time.Now()
	dbCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	var one int
	err := h.db.QueryRow(dbCtx, "SELECT 1").Scan(&one)
	latency := time.Since(start).Milliseconds()
	if err != nil {
		message := "Database query failed"
		switch {
		case dbCtx.Err() == context.DeadlineExceeded:
			message = "Database query timed out after 2 seconds"
		case strings.Contains(err.Error(), "connection refused"):
			message = "Database connection refused"
		case strings.Contains(err.Error(), "authentication failed"):
			message = "Database authentication failed"
		}
		return CheckResult{Status: "fail", Message: message, LatencyMs: latency, Details: map[string]any{"error": err.Error()}}
	}
	return CheckResult{Status: "pass", Message: "PostgreSQL connection successful", LatencyMs: latency}
}

// checkMigrations fails on a dirty golang-migrate state; the exact version
// changes with every release and is only reported.
func (h *HealthChecker) checkMigrations(ctx context.Context) CheckResult {
	if h.db == nil {
		return CheckResult{Status: "fail", Message: "Database pool not initialized"}
	}

	start := time.Now()
	migCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	var version int64
	var dirty bool
	err := h.db.QueryRow(migCtx, `SELECT version, dirty FROM schema_migrations ORDER BY version DESC LIMIT 1`).Scan(&version, &dirty)
	latency := time.Since(start).Milliseconds()
	if err != nil {
		return CheckResult{Status: "fail", Message: "Failed to query migration version", LatencyMs: latency, Details: map[string]any{"error": err.Error()}}
	}
	if dirty {
		return CheckResult{
			Status:    "fail",
			Message:   "Database in dirty migration state - manual intervention required",
			LatencyMs: latency,
			Details:   map[string]any{"version": version, "dirty": true},
		}
	}
	return CheckResult{
		Status:    "pass",
		Message:   fmt.Sprintf("Migrations applied successfully (version %d)", version),
		LatencyMs: latency,
		Details:   map[string]any{"version": version},
	}
}

func (h *HealthChecker) checkJobQueue(ctx context.Context) CheckResult {
	if !h.jobsEnabled || h.db == nil {
		return CheckResult{Status: "warn", Message: "Job queue not running"}
	}

	start := time.Now()
	jobCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	var available, retryable int64
	err := h.db.QueryRow(jobCtx, `
		SELECT count(*) FILTER (WHERE state = 'available'), count(*) FILTER (WHERE state = 'retryable')
		  FROM river_job`).Scan(&available, &retryable)
	latency := time.Since(start).Milliseconds()
	if err != nil {
		return CheckResult{Status: "fail", Message: "Failed to query job queue", LatencyMs: latency, Details: map[string]any{"error": err.Error()}}
	}
	return CheckResult{
		Status:    "pass",
		Message:   "River job queue operational",
		LatencyMs: latency,
		Details:   map[string]any{"available": available, "retryable": retryable},
	}
}

// Healthz is the liveness probe; it never touches the database.
func Healthz() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})
}
