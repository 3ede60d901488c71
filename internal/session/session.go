// session управляет refresh-сессиями: непрозрачный неугадываемый токен,
// привязанный к одному аккаунту, с фиксированным сроком жизни.
//
// В отличие от подписанных клеймов refresh-токен не несёт срок действия в
// себе, поэтому истечение обязано обеспечивать хранилище. Два равноценных
// бэкенда: Redis (нативный TTL) и строки PostgreSQL (срок вычисляется при
// чтении, просроченная строка немедленно удаляется). Снаружи оба ведут себя
// одинаково.
package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrNotFound — сессия отсутствует, истекла или была инвалидирована.
var ErrNotFound = errors.New("refresh session not found")

// Store — контракт хранилища refresh-сессий.
type Store interface {
	// Create выпускает новый токен, привязанный к аккаунту, со сроком TTL от текущего момента.
	Create(ctx context.Context, userID uuid.UUID) (string, error)
	// Resolve возвращает аккаунт токена; ErrNotFound, если токена нет или срок вышел.
	// Просроченный токен инвалидируется как побочный эффект — повторный Resolve
	// также вернёт ErrNotFound независимо от бэкенда.
	Resolve(ctx context.Context, token string) (uuid.UUID, error)
	// Invalidate удаляет сессию; идемпотентна.
	Invalidate(ctx context.Context, token string) error
	// Close освобождает ресурсы бэкенда.
	Close() error
}

// newToken генерирует непрозрачный токен: 32 случайных байта в base64url.
func newToken() (string, error) {
	const op = "session.session.newToken"

	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return base64.RawURLEncoding.EncodeToString(b), nil
}
