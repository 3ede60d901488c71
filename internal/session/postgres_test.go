package session

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"jauth/internal/database"
)

// Интеграционные тесты строчного бэкенда:
// - поднимают PostgreSQL через testcontainers-go (postgres:16-alpine);
// - применяют встроенную миграцию refresh_sessions;
// - прогоняют общий набор свойств Store и проверяют необратимость истечения.
//
// Запуск локально:
//   GO_TEST_INTEGRATION=1 go test ./internal/session -v -race -count=1

func readMigration(t *testing.T, name string) string {
	t.Helper()
	b, err := database.FS.ReadFile("migrations/" + name)
	require.NoError(t, err, "read migration %s", name)
	return string(b)
}

// startPostgres поднимает временный PostgreSQL и возвращает пул с применённой
// миграцией refresh_sessions. Без GO_TEST_INTEGRATION тест пропускается.
func startPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if os.Getenv("GO_TEST_INTEGRATION") == "" {
		t.Skip("integration tests are disabled (set GO_TEST_INTEGRATION=1)")
	}

	ctx := context.Background()
	req := tc.ContainerRequest{
		Image:        "postgres:16-alpine",
		Env:          map[string]string{"POSTGRES_USER": "user", "POSTGRES_PASSWORD": "pass", "POSTGRES_DB": "db"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Terminate(context.Background()) })

	host, _ := c.Host(ctx)
	port, _ := c.MappedPort(ctx, "5432/tcp")
	dsn := fmt.Sprintf("postgres://user:pass@%s:%s/db?sslmode=disable", host, port.Port())

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	_, err = pool.Exec(ctx, readMigration(t, "2_init_refresh_sessions.up.sql"))
	require.NoError(t, err)

	return pool
}

func TestIntegration_PostgresStore_Suite(t *testing.T) {
	pool := startPostgres(t)
	runStoreSuite(t, NewPostgresStore(pool, time.Hour))
}

func TestIntegration_PostgresStore_ExpiryIsPermanent(t *testing.T) {
	pool := startPostgres(t)
	store := NewPostgresStore(pool, 150*time.Millisecond)
	ctx := context.Background()

	token, err := store.Create(ctx, uuid.New())
	require.NoError(t, err)

	time.Sleep(200 * time.Millisecond)

	// Первый resolve после истечения удаляет строку как побочный эффект.
	_, err = store.Resolve(ctx, token)
	require.ErrorIs(t, err, ErrNotFound)

	var n int
	require.NoError(t, pool.QueryRow(ctx,
		`SELECT count(*) FROM refresh_sessions WHERE token = $1`, token).Scan(&n))
	require.Zero(t, n)

	_, err = store.Resolve(ctx, token)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestIntegration_PostgresStore_DeleteExpired(t *testing.T) {
	pool := startPostgres(t)
	store := NewPostgresStore(pool, 100*time.Millisecond)
	ctx := context.Background()

	_, err := store.Create(ctx, uuid.New())
	require.NoError(t, err)
	expired, err := store.Create(ctx, uuid.New())
	require.NoError(t, err)

	time.Sleep(150 * time.Millisecond)

	// Вторая сессия с большим TTL переживает чистку.
	longStore := NewPostgresStore(pool, time.Hour)
	alive, err := longStore.Create(ctx, uuid.New())
	require.NoError(t, err)

	require.NoError(t, store.DeleteExpired(ctx, time.Now().UTC()))

	_, err = store.Resolve(ctx, expired)
	require.ErrorIs(t, err, ErrNotFound)

	_, err = longStore.Resolve(ctx, alive)
	require.NoError(t, err)
}
