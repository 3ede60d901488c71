package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "jauth:rt:"

// RedisStore — бэкенд refresh-сессий поверх Redis. Истечение обеспечивает
// сам Redis через TTL ключа.
type RedisStore struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore создаёт клиент Redis из URL (например, redis://:pass@host:6379/0)
// и проверяет соединение. Пустой prefix заменяется на "jauth:rt:".
func NewRedisStore(ctx context.Context, redisURL, prefix string, ttl time.Duration) (*RedisStore, error) {
	const op = "session.redis.NewRedisStore"

	if prefix == "" {
		prefix = defaultKeyPrefix
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rdb := redis.NewClient(opt)

	// Fail-fast на старте.
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &RedisStore{rdb: rdb, prefix: prefix, ttl: ttl}, nil
}

// NewRedisStoreWithClient оборачивает готовый клиент (тесты, внешний пул).
func NewRedisStoreWithClient(rdb *redis.Client, prefix string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = defaultKeyPrefix
	}

	return &RedisStore{rdb: rdb, prefix: prefix, ttl: ttl}
}

func (s *RedisStore) key(token string) string { return s.prefix + token }

// Create выпускает новый токен и кладёт его в Redis с TTL.
func (s *RedisStore) Create(ctx context.Context, userID uuid.UUID) (string, error) {
	const op = "session.redis.Create"

	token, err := newToken()
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	if err := s.rdb.Set(ctx, s.key(token), userID.String(), s.ttl).Err(); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return token, nil
}

// Resolve возвращает аккаунт токена. Истёкший ключ Redis удаляет сам,
// поэтому здесь достаточно отличить отсутствие от ошибки.
func (s *RedisStore) Resolve(ctx context.Context, token string) (uuid.UUID, error) {
	const op = "session.redis.Resolve"

	val, err := s.rdb.Get(ctx, s.key(token)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return uuid.Nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}

		return uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}

	userID, err := uuid.Parse(val)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}

	return userID, nil
}

// Invalidate удаляет сессию; отсутствие ключа — не ошибка.
func (s *RedisStore) Invalidate(ctx context.Context, token string) error {
	const op = "session.redis.Invalidate"

	if err := s.rdb.Del(ctx, s.key(token)).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Close закрывает клиент Redis.
func (s *RedisStore) Close() error { return s.rdb.Close() }

var _ Store = (*RedisStore)(nil)
