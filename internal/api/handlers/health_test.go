package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// stubRow scans canned values or fails with err.
type stubRow struct {
	values []any
	err    error
}

func (r stubRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	for i, d := range dest {
		switch p := d.(type) {
		case *int:
			*p = r.values[i].(int)
		case *int64:
			*p = r.values[i].(int64)
		case *bool:
			*p = r.values[i].(bool)
		}
	}
	return nil
}

type stubHealthDB struct {
	rows map[string]stubRow
}

func (s stubHealthDB) QueryRow(_ context.Context, sql string, _ ...any) pgx.Row {
	for prefix, row := range s.rows {
		if strings.Contains(sql, prefix) {
			return row
		}
	}
	return stubRow{err: errors.New("unexpected query")}
}

func healthyDB() stubHealthDB {
	return stubHealthDB{rows: map[string]stubRow{
		"SELECT 1":          {values: []any{1}},
		"schema_migrations": {values: []any{int64(7), false}},
		"river_job":         {values: []any{int64(2), int64(0)}},
	}}
}

func runHealth(t *testing.T, checker *HealthChecker) (int, HealthCheck) {
	t.Helper()
	w := httptest.NewRecorder()
	checker.Health().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	var response HealthCheck
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	return w.Code, response
}

func TestHealthCheck_AllHealthy(t *testing.T) {
	code, response := runHealth(t, NewHealthChecker(healthyDB(), true, "0.1.0", "test-commit"))

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "healthy", response.Status)
	assert.Equal(t, "0.1.0", response.Version)
	assert.Equal(t, "test-commit", response.GitCommit)
	_, err := time.Parse(time.RFC3339, response.Timestamp)
	assert.NoError(t, err)
	for _, name := range []string{"database", "migrations", "job_queue"} {
		assert.Equal(t, "pass", response.Checks[name].Status, name)
	}
}

func TestHealthCheck_JobsDisabledIsDegraded(t *testing.T) {
	code, response := runHealth(t, NewHealthChecker(healthyDB(), false, "0.1.0", "c"))

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "degraded", response.Status)
	assert.Equal(t, "warn", response.Checks["job_queue"].Status)
}

func TestHealthCheck_DirtyMigrations(t *testing.T) {
	db := healthyDB()
	db.rows["schema_migrations"] = stubRow{values: []any{int64(7), true}}

	code, response := runHealth(t, NewHealthChecker(db, true, "0.1.0", "c"))

	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "unhealthy", response.Status)
	assert.Contains(t, response.Checks["migrations"].Message, "dirty")
}

func TestHealthCheck_DatabaseFailure(t *testing.T) {
	code, response := runHealth(t, NewHealthChecker(nil, false, "0.1.0", "test-commit"))

	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "unhealthy", response.Status)
	assert.Equal(t, "fail", response.Checks["database"].Status)
}

func TestHealthCheck_ConnectionRefused(t *testing.T) {
	db := stubHealthDB{rows: map[string]stubRow{
		"SELECT 1": {err: errors.New("dial tcp 127.0.0.1:5432: connect: connection refused")},
	}}

	_, response := runHealth(t, NewHealthChecker(db, false, "0.1.0", "c"))

	assert.Equal(t, "Database connection refused", response.Checks["database"].Message)
}

func TestOverallStatus(t *testing.T) {
	tests := []struct {
		name   string
		checks map[string]CheckResult
		status string
		code   int
	}{
		{"all pass", map[string]CheckResult{"a": {Status: "pass"}, "b": {Status: "pass"}}, "healthy", http.StatusOK},
		{"one warn", map[string]CheckResult{"a": {Status: "pass"}, "b": {Status: "warn"}}, "degraded", http.StatusOK},
		{"warn and fail", map[string]CheckResult{"a": {Status: "warn"}, "b": {Status: "fail"}}, "unhealthy", http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, code := overallStatus(tt.checks)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, code)
		})
	}
}

func TestHealthz(t *testing.T) {
	w := httptest.NewRecorder()
	Healthz().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestHealthCheck_AgainstPostgres(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("ifeis_test"),
		tcpostgres.WithUsername("ifeis"),
		tcpostgres.WithPassword("ifeis-test-password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(container) })

	dbURL, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	pool, err := pgxpool.New(ctx, dbURL)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	_, err = pool.Exec(ctx, `CREATE TABLE schema_migrations (version BIGINT PRIMARY KEY, dirty BOOLEAN NOT NULL)`)
	require.NoError(t, err)
	_, err = pool.Exec(ctx, `INSERT INTO schema_migrations VALUES (3, false)`)
	require.NoError(t, err)

	code, response := runHealth(t, NewHealthChecker(pool, false, "0.1.0", "c"))

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "pass", response.Checks["database"].Status)
	assert.Equal(t, "pass", response.Checks["migrations"].Status)
}
