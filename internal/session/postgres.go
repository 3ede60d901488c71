package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore — строчный бэкенд refresh-сессий. У строк нет нативного
// истечения: валидность считается как created_at + TTL > now в момент
// Resolve, просроченная строка тут же удаляется, так что истечение
// необратимо, как и в Redis-бэкенде.
type PostgresStore struct {
	db  *pgxpool.Pool
	ttl time.Duration
}

// NewPostgresStore оборачивает существующий пул; таблицу создаёт миграция.
func NewPostgresStore(db *pgxpool.Pool, ttl time.Duration) *PostgresStore {
	return &PostgresStore{db: db, ttl: ttl}
}

// Create выпускает новый токен и сохраняет строку сессии.
// Коллизия первичного ключа практически невозможна, но на всякий случай
// генерация повторяется, как при сохранении любого случайного секрета.
func (s *PostgresStore) Create(ctx context.Context, userID uuid.UUID) (string, error) {
	const (
		op          = "session.postgres.Create"
		maxAttempts = 5
	)

	query := `
		INSERT INTO refresh_sessions(token, user_id, created_at)
		VALUES ($1, $2, $3)
	`

	for attempt := 0; attempt < maxAttempts; attempt++ {
		token, err := newToken()
		if err != nil {
			return "", fmt.Errorf("%s: %w", op, err)
		}

		_, err = s.db.Exec(ctx, query, token, userID, time.Now().UTC())
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
				continue
			}

			return "", fmt.Errorf("%s: %w", op, err)
		}

		return token, nil
	}

	return "", fmt.Errorf("%s: token collision attempts exhausted", op)
}

// Resolve возвращает аккаунт токена; просроченная строка удаляется на месте.
func (s *PostgresStore) Resolve(ctx context.Context, token string) (uuid.UUID, error) {
	const op = "session.postgres.Resolve"

	query := `
		SELECT user_id, created_at
		FROM refresh_sessions
		WHERE token = $1
	`

	var (
		userID    uuid.UUID
		createdAt time.Time
	)
	err := s.db.QueryRow(ctx, query, token).Scan(&userID, &createdAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}

		return uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}

	if !time.Now().UTC().Before(createdAt.Add(s.ttl)) {
		if err := s.Invalidate(ctx, token); err != nil {
			return uuid.Nil, fmt.Errorf("%s: %w", op, err)
		}

		return uuid.Nil, fmt.Errorf("%s: %w", op, ErrNotFound)
	}

	return userID, nil
}

// Invalidate удаляет сессию; идемпотентна.
func (s *PostgresStore) Invalidate(ctx context.Context, token string) error {
	const op = "session.postgres.Invalidate"

	_, err := s.db.Exec(ctx, `DELETE FROM refresh_sessions WHERE token = $1`, token)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// DeleteExpired удаляет все просроченные сессии; используется фоновым джанитором.
func (s *PostgresStore) DeleteExpired(ctx context.Context, now time.Time) error {
	const op = "session.postgres.DeleteExpired"

	cutoff := now.Add(-s.ttl)
	_, err := s.db.Exec(ctx, `DELETE FROM refresh_sessions WHERE created_at <= $1`, cutoff)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Close — пул принадлежит вызывающему, закрывать нечего.
func (s *PostgresStore) Close() error { return nil }

var _ Store = (*PostgresStore)(nil)
