package postgres

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
	"jauth/internal/models"
	"jauth/internal/storage"
)

// Интеграционные тесты репозитория аккаунтов: настоящий PostgreSQL через
// testcontainers-go, уникальность обеспечивается реальными индексами.
//
// Запуск локально:
//   GO_TEST_INTEGRATION=1 go test ./internal/storage/postgres -v -race -count=1

func startStorage(t *testing.T) *Storage {
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

	migration, err := database.FS.ReadFile("migrations/1_init_users.up.sql")
	require.NoError(t, err)
	_, err = pool.Exec(ctx, string(migration))
	require.NoError(t, err)

	st, err := New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(st.Close)

	return st
}

func TestIntegration_EmailUser_CreateAndLookup(t *testing.T) {
	st := startStorage(t)
	ctx := context.Background()

	created, err := st.CreateEmailUser(ctx, "alice1", "alice@example.com", "hashed-pw", map[string]any{"nickname": "al"})
	require.NoError(t, err)
	require.Equal(t, models.UserTypeEmail, created.Type)
	require.Equal(t, models.UserStatusNormal, created.Status)
	require.False(t, created.IsEmailVerified)

	byID, err := st.UserByID(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, created.ID, byID.ID)
	require.Equal(t, "al", byID.Extra["nickname"])

	byAccount, err := st.UserByAccount(ctx, "alice1")
	require.NoError(t, err)
	require.Equal(t, created.ID, byAccount.ID)

	_, err = st.UserByAccount(ctx, "ghost")
	require.ErrorIs(t, err, storage.ErrNotFound)

	_, err = st.UserByID(ctx, uuid.New())
	require.ErrorIs(t, err, storage.ErrNotFound)
}

// Логин занят навсегда: дубль даёт ErrAlreadyExists даже после «удаления».
func TestIntegration_EmailUser_AccountUniqueAcrossStatuses(t *testing.T) {
	st := startStorage(t)
	ctx := context.Background()

	created, err := st.CreateEmailUser(ctx, "bob1", "", "hashed-pw", nil)
	require.NoError(t, err)

	_, err = st.CreateEmailUser(ctx, "bob1", "", "other-pw", nil)
	require.ErrorIs(t, err, storage.ErrAlreadyExists)

	deleted := models.UserStatusDeleted
	_, err = st.UpdateUser(ctx, created.ID, storage.UserUpdate{Status: &deleted})
	require.NoError(t, err)

	_, err = st.CreateEmailUser(ctx, "bob1", "", "other-pw", nil)
	require.ErrorIs(t, err, storage.ErrAlreadyExists)

	// Сам аккаунт при этом по логину всё ещё находится (любой статус).
	found, err := st.UserByAccount(ctx, "bob1")
	require.NoError(t, err)
	require.Equal(t, models.UserStatusDeleted, found.Status)
}

// Пара (тип, внешний id) уникальна только среди NORMAL: после отзыва
// аккаунта та же идентичность регистрируется заново.
func TestIntegration_ThirdPartyUser_UniqueAmongNormalOnly(t *testing.T) {
	st := startStorage(t)
	ctx := context.Background()

	created, err := st.CreateThirdPartyUser(ctx, models.UserTypeKakao, "kakao-1", "k@example.com", nil)
	require.NoError(t, err)

	_, err = st.CreateThirdPartyUser(ctx, models.UserTypeKakao, "kakao-1", "", nil)
	require.ErrorIs(t, err, storage.ErrAlreadyExists)

	// Тот же внешний id у другого провайдера — не конфликт.
	other, err := st.CreateThirdPartyUser(ctx, models.UserTypeGoogle, "kakao-1", "", nil)
	require.NoError(t, err)
	require.NotEqual(t, created.ID, other.ID)

	withdrawn := models.UserStatusWithdrawn
	_, err = st.UpdateUser(ctx, created.ID, storage.UserUpdate{Status: &withdrawn})
	require.NoError(t, err)

	// Отозванный аккаунт не виден по внешнему id...
	_, err = st.UserByThirdPartyID(ctx, models.UserTypeKakao, "kakao-1")
	require.ErrorIs(t, err, storage.ErrNotFound)

	// ...и не блокирует повторную регистрацию.
	again, err := st.CreateThirdPartyUser(ctx, models.UserTypeKakao, "kakao-1", "", nil)
	require.NoError(t, err)

	found, err := st.UserByThirdPartyID(ctx, models.UserTypeKakao, "kakao-1")
	require.NoError(t, err)
	require.Equal(t, again.ID, found.ID)
}

func TestIntegration_UpdateUser(t *testing.T) {
	st := startStorage(t)
	ctx := context.Background()

	created, err := st.CreateEmailUser(ctx, "carol1", "carol@example.com", "hashed-pw", nil)
	require.NoError(t, err)

	newEmail := "carol2@example.com"
	verified := true
	affected, err := st.UpdateUser(ctx, created.ID, storage.UserUpdate{
		Email:           &newEmail,
		IsEmailVerified: &verified,
		Extra:           map[string]any{"lang": "en"},
	})
	require.NoError(t, err)
	require.EqualValues(t, 1, affected)

	updated, err := st.UserByID(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, newEmail, updated.Email)
	require.True(t, updated.IsEmailVerified)
	require.Equal(t, "en", updated.Extra["lang"])
	// Нетронутые поля сохраняются.
	require.Equal(t, "hashed-pw", updated.HashedPassword)
	require.True(t, updated.ModifiedAt.After(updated.CreatedAt) || updated.ModifiedAt.Equal(updated.CreatedAt))

	// Обновление несуществующего аккаунта — ноль затронутых строк, не ошибка.
	affected, err = st.UpdateUser(ctx, uuid.New(), storage.UserUpdate{Email: &newEmail})
	require.NoError(t, err)
	require.Zero(t, affected)
}
