package repository_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"litscope/internal/config"
	"litscope/internal/models"
	"litscope/internal/repository"
)

// TestStore_Postgres_RoundTrip exercises the Store against a real
// PostgreSQL instance rather than the in-memory SQLite fixture used by
// the rest of this package's tests. Skipped unless -short is absent and
// a container runtime is reachable, since it spins up a real container.
func TestStore_Postgres_RoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container-backed postgres test in short mode")
	}

	ctx := context.Background()

	pgContainer, err := postgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:16-alpine"),
		postgres.WithDatabase("litscope_test"),
		postgres.WithUsername("litscope"),
		postgres.WithPassword("litscope"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Skipf("docker not available for postgres container test: %v", err)
	}
	t.Cleanup(func() { _ = pgContainer.Terminate(ctx) })

	host, err := pgContainer.Host(ctx)
	require.NoError(t, err)
	port, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	cfg := &config.Config{}
	cfg.Database.Type = "postgres"
	cfg.Database.PostgreSQL.DSN = fmt.Sprintf(
		"host=%s port=%d user=litscope password=litscope dbname=litscope_test sslmode=disable",
		host, port.Int(),
	)
	cfg.Database.PostgreSQL.MaxConns = 5
	cfg.Database.PostgreSQL.MaxIdle = 2
	cfg.Database.PostgreSQL.AutoMigrate = true

	store, err := repository.NewStore(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	require.NoError(t, store.Ping(ctx))

	id, created, err := store.Articles().UpsertArticle(ctx, &models.Article{PMID: "pg-1", Title: "Postgres backed article"})
	require.NoError(t, err)
	require.True(t, created)

	fetched, err := store.Articles().GetArticle(ctx, "pg-1")
	require.NoError(t, err)
	require.Equal(t, id, fetched.ID)
}
