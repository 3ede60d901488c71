// storage задаёт контракт работы с хранилищем аккаунтов.
//
// Все проверки уникальности в конечном счёте опираются на ограничения БД:
// гонка двух одновременных регистраций разрешается на уровне уникального
// индекса, проигравший получает ErrAlreadyExists. Фильтр «только NORMAL»
// для поиска по внешнему идентификатору живёт здесь, а не в вызывающих:
// иначе устаревший third_party_user_id отозванного аккаунта молча блокировал
// бы повторную регистрацию.
package storage

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"jauth/internal/models"
)

var (
	// ErrNotFound — запись не найдена.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists — нарушение уникальности (account / (type, third_party_user_id)).
	ErrAlreadyExists = errors.New("already exists")
)

// UserUpdate — частичное обновление аккаунта. nil-поле остаётся нетронутым.
type UserUpdate struct {
	Email           *string
	HashedPassword  *string
	IsEmailVerified *bool
	Status          *models.UserStatus
	Extra           map[string]any
}

// UserStorage выполняет операции над аккаунтами.
type UserStorage interface {
	// UserByID находит аккаунт по идентификатору.
	UserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	// UserByAccount находит аккаунт по логину (любой статус).
	UserByAccount(ctx context.Context, account string) (*models.User, error)
	// UserByThirdPartyID находит аккаунт по (тип, внешний id) среди NORMAL.
	UserByThirdPartyID(ctx context.Context, userType models.UserType, thirdPartyUserID string) (*models.User, error)
	// CreateEmailUser создаёт локальный аккаунт; ErrAlreadyExists при занятом логине.
	CreateEmailUser(ctx context.Context, account, email, hashedPassword string, extra map[string]any) (*models.User, error)
	// CreateThirdPartyUser создаёт аккаунт внешнего провайдера;
	// ErrAlreadyExists при занятой паре (тип, внешний id).
	CreateThirdPartyUser(ctx context.Context, userType models.UserType, thirdPartyUserID, email string, extra map[string]any) (*models.User, error)
	// UpdateUser применяет частичное обновление и возвращает число затронутых строк.
	UpdateUser(ctx context.Context, id uuid.UUID, upd UserUpdate) (int64, error)
}

// Storage задаёт полный контракт работы с БД.
type Storage interface {
	UserStorage
	Close()
}
