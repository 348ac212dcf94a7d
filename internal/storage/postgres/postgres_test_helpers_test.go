package postgres

import (
	"context"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ifeis/server/internal/domain/ids"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

var (
	sharedOnce      sync.Once
	sharedInitErr   error
	sharedContainer *postgres.PostgresContainer
	sharedPool      *pgxpool.Pool
	sharedDBURL     string
)

const sharedContainerName = "ifeis-storage-db"

func TestMain(m *testing.M) {
	code := m.Run()
	cleanupShared()
	os.Exit(code)
}

func setupPostgres(t *testing.T) *Repository {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping database test in short mode")
	}

	initShared(t)
	resetDatabase(t, sharedPool)

	repo, err := NewRepository(sharedPool)
	require.NoError(t, err)
	return repo
}

func initShared(t *testing.T) {
	t.Helper()
	sharedOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		// The container is reused across packages by name; ryuk would reap it
		// when the first package finishes.
		_ = os.Setenv("TESTCONTAINERS_RYUK_DISABLED", "true")

		container, err := postgres.Run(
			ctx,
			"postgres:16-alpine",
			postgres.WithDatabase("ifeis"),
			postgres.WithUsername("ifeis"),
			postgres.WithPassword("ifeis_dev"),
			testcontainers.WithReuseByName(sharedContainerName),
		)
		if err != nil {
			sharedInitErr = err
			return
		}
		sharedContainer = container

		dbURL, err := container.ConnectionString(ctx, "sslmode=disable")
		if err != nil {
			sharedInitErr = err
			return
		}
		sharedDBURL = dbURL

		if err := migrateWithRetry(Migrator{DatabaseURL: dbURL}, 10*time.Second); err != nil {
			sharedInitErr = err
			return
		}

		pool, err := pgxpool.New(ctx, dbURL)
		if err != nil {
			sharedInitErr = err
			return
		}
		if err := MigrateRiver(ctx, pool); err != nil {
			sharedInitErr = err
			return
		}
		sharedPool = pool
	})

	require.NoError(t, sharedInitErr)
}

func cleanupShared() {
	if sharedPool != nil {
		sharedPool.Close()
	}
}

func resetDatabase(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()
	require.NotNil(t, pool, "shared pool is nil")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	rows, err := pool.Query(ctx, `
SELECT tablename
  FROM pg_tables
 WHERE schemaname = 'public'
   AND tablename <> 'schema_migrations'
   AND tablename NOT LIKE 'river%'
 ORDER BY tablename;
`)
	require.NoError(t, err)
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		safe := strings.ReplaceAll(name, "\"", "\"\"")
		tables = append(tables, "\"public\".\""+safe+"\"")
	}
	require.NoError(t, rows.Err())
	if len(tables) == 0 {
		return
	}

	_, err = pool.Exec(ctx, "TRUNCATE TABLE "+strings.Join(tables, ", ")+" CASCADE;")
	require.NoError(t, err)
}

// fixture is a feis with one chair account, ready for events.
type fixture struct {
	FeisID    string
	AccountID string
}

func seedFeis(t *testing.T, ctx context.Context, repo *Repository) fixture {
	t.Helper()
	f := fixture{FeisID: ids.MustULID(), AccountID: insertAccount(t, ctx, repo, "chair@example.com")}
	_, err := repo.Pool().Exec(ctx, `INSERT INTO feiseanna (id, name, slug, tz) VALUES ($1, 'Feis Test', 'feis-test', 'America/New_York')`, f.FeisID)
	require.NoError(t, err)
	return f
}

func insertAccount(t *testing.T, ctx context.Context, repo *Repository, email string) string {
	t.Helper()
	id := ids.MustULID()
	_, err := repo.Pool().Exec(ctx, `INSERT INTO persons (id, is_account, email, fname, lname) VALUES ($1, true, $2, 'Aoife', 'Byrne')`, id, email)
	require.NoError(t, err)
	return id
}

func insertDependent(t *testing.T, ctx context.Context, repo *Repository, accountID, fname, gender string) string {
	t.Helper()
	id := ids.MustULID()
	_, err := repo.Pool().Exec(ctx, `INSERT INTO persons (id, account_id, fname, lname, gender) VALUES ($1, $2, $3, 'Byrne', $4)`, id, accountID, fname, gender)
	require.NoError(t, err)
	return id
}

func insertEvent(t *testing.T, ctx context.Context, repo *Repository, feisID, name string) string {
	t.Helper()
	id := ids.MustULID()
	_, err := repo.Pool().Exec(ctx, `INSERT INTO events (id, feis_id, name, type) VALUES ($1, $2, $3, 'G')`, id, feisID, name)
	require.NoError(t, err)
	return id
}

// migrateWithRetry waits out the window where the container accepts
// connections but the database is still starting.
func migrateWithRetry(m Migrator, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		err := m.Up()
		if err == nil || time.Now().After(deadline) {
			return err
		}
		time.Sleep(500 * time.Millisecond)
	}
}
