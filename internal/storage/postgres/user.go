package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"jauth/internal/models"
	"jauth/internal/storage"
)

const userColumns = `
	id, email, account, hashed_password, third_party_user_id,
	type, status, is_email_verified, extra, created_at, modified_at
`

func scanUser(row pgx.Row) (*models.User, error) {
	var user models.User
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Account,
		&user.HashedPassword,
		&user.ThirdPartyUserID,
		&user.Type,
		&user.Status,
		&user.IsEmailVerified,
		&user.Extra,
		&user.CreatedAt,
		&user.ModifiedAt,
	)
	if err != nil {
		return nil, err
	}

	return &user, nil
}

func (s *Storage) insertUser(ctx context.Context, op string, user *models.User) (*models.User, error) {
	query := `
		INSERT INTO users(` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := s.db.Exec(ctx, query,
		user.ID,
		user.Email,
		user.Account,
		user.HashedPassword,
		user.ThirdPartyUserID,
		user.Type,
		user.Status,
		user.IsEmailVerified,
		user.Extra,
		user.CreatedAt,
		user.ModifiedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return user, nil
}

// CreateEmailUser создаёт локальный аккаунт (провайдер EMAIL).
func (s *Storage) CreateEmailUser(ctx context.Context, account, email, hashedPassword string, extra map[string]any) (*models.User, error) {
	const op = "storage.postgres.CreateEmailUser"

	if extra == nil {
		extra = map[string]any{}
	}

	now := time.Now().UTC()
	return s.insertUser(ctx, op, &models.User{
		ID:              uuid.New(),
		Email:           email,
		Account:         account,
		HashedPassword:  hashedPassword,
		Type:            models.UserTypeEmail,
		Status:          models.UserStatusNormal,
		IsEmailVerified: false,
		Extra:           extra,
		CreatedAt:       now,
		ModifiedAt:      now,
	})
}

// CreateThirdPartyUser создаёт аккаунт внешнего провайдера.
func (s *Storage) CreateThirdPartyUser(ctx context.Context, userType models.UserType, thirdPartyUserID, email string, extra map[string]any) (*models.User, error) {
	const op = "storage.postgres.CreateThirdPartyUser"

	if extra == nil {
		extra = map[string]any{}
	}

	now := time.Now().UTC()
	return s.insertUser(ctx, op, &models.User{
		ID:               uuid.New(),
		Email:            email,
		ThirdPartyUserID: thirdPartyUserID,
		Type:             userType,
		Status:           models.UserStatusNormal,
		Extra:            extra,
		CreatedAt:        now,
		ModifiedAt:       now,
	})
}

// UserByID находит аккаунт по идентификатору.
func (s *Storage) UserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	const op = "storage.postgres.UserByID"

	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE id = $1
	`

	user, err := scanUser(s.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return user, nil
}

// UserByAccount находит аккаунт по логину. Статус не фильтруется:
// логин занят навсегда, даже если аккаунт удалён.
func (s *Storage) UserByAccount(ctx context.Context, account string) (*models.User, error) {
	const op = "storage.postgres.UserByAccount"

	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE account = $1
		ORDER BY modified_at, created_at
	`

	user, err := scanUser(s.db.QueryRow(ctx, query, account))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return user, nil
}

// UserByThirdPartyID находит аккаунт по (тип, внешний id) среди NORMAL.
// WITHDRAWN/DELETED намеренно не видны: их внешний id не должен блокировать
// повторную регистрацию.
func (s *Storage) UserByThirdPartyID(ctx context.Context, userType models.UserType, thirdPartyUserID string) (*models.User, error) {
	const op = "storage.postgres.UserByThirdPartyID"

	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE type = $1 AND third_party_user_id = $2 AND status = $3
	`

	user, err := scanUser(s.db.QueryRow(ctx, query, userType, thirdPartyUserID, models.UserStatusNormal))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return user, nil
}

// UpdateUser применяет частичное обновление; modified_at всегда обновляется.
func (s *Storage) UpdateUser(ctx context.Context, id uuid.UUID, upd storage.UserUpdate) (int64, error) {
	const op = "storage.postgres.UpdateUser"

	sets := []string{"modified_at = $1"}
	args := []any{time.Now().UTC()}

	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if upd.Email != nil {
		add("email", *upd.Email)
	}
	if upd.HashedPassword != nil {
		add("hashed_password", *upd.HashedPassword)
	}
	if upd.IsEmailVerified != nil {
		add("is_email_verified", *upd.IsEmailVerified)
	}
	if upd.Status != nil {
		add("status", *upd.Status)
	}
	if upd.Extra != nil {
		add("extra", upd.Extra)
	}

	args = append(args, id)
	query := fmt.Sprintf(`UPDATE users SET %s WHERE id = $%d`,
		strings.Join(sets, ", "), len(args))

	cmdTag, err := s.db.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return cmdTag.RowsAffected(), nil
}
