package models

import (
	"time"

	"github.com/google/uuid"
)

// UserType — источник идентичности пользователя.
type UserType int

const (
	UserTypeUnknown UserType = iota
	UserTypeEmail
	UserTypeGoogle
	UserTypeApple
	UserTypeFacebook
	UserTypeKakao
)

// String возвращает текстовое представление типа.
func (t UserType) String() string {
	switch t {
	case UserTypeEmail:
		return "EMAIL"
	case UserTypeGoogle:
		return "GOOGLE"
	case UserTypeApple:
		return "APPLE"
	case UserTypeFacebook:
		return "FACEBOOK"
	case UserTypeKakao:
		return "KAKAO"
	default:
		return "UNKNOWN"
	}
}

// IsThirdParty сообщает, что идентичность выдана внешним провайдером.
func (t UserType) IsThirdParty() bool {
	switch t {
	case UserTypeGoogle, UserTypeApple, UserTypeFacebook, UserTypeKakao:
		return true
	default:
		return false
	}
}

// Valid сообщает, что значение входит в множество известных типов.
func (t UserType) Valid() bool {
	return t == UserTypeEmail || t.IsThirdParty()
}

// UserStatus — жизненный цикл аккаунта. Аккаунты никогда не удаляются
// физически: удаление — это переход статуса.
type UserStatus int

const (
	UserStatusNormal UserStatus = iota
	UserStatusDeleted
	UserStatusWithdrawn
)

// String возвращает текстовое представление статуса.
func (s UserStatus) String() string {
	switch s {
	case UserStatusNormal:
		return "NORMAL"
	case UserStatusDeleted:
		return "DELETED"
	case UserStatusWithdrawn:
		return "WITHDRAWN"
	default:
		return "UNKNOWN"
	}
}

// User — модель аккаунта.
//
// Инварианты:
//   - для Type == EMAIL заполнены Account и HashedPassword, ThirdPartyUserID пуст;
//   - для внешних провайдеров заполнен ThirdPartyUserID, Account и HashedPassword пусты;
//   - Account уникален среди всех аккаунтов;
//   - (Type, ThirdPartyUserID) уникальна среди аккаунтов со статусом NORMAL.
type User struct {
	ID               uuid.UUID
	Email            string
	Account          string
	HashedPassword   string
	ThirdPartyUserID string
	Type             UserType
	Status           UserStatus
	IsEmailVerified  bool
	Extra            map[string]any
	CreatedAt        time.Time
	ModifiedAt       time.Time
}
