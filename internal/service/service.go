// service содержит бизнес-логику: регистрацию и аутентификацию аккаунтов
// (локальных и через внешних провайдеров), выпуск/ротацию refresh-сессий,
// служебные токены подтверждения почты и сброса пароля, операции профиля.
//
// Основные аспекты:
//   - Service не хранит состояние запроса; экземпляр безопасен для
//     конкурентного использования при потокобезопасных зависимостях.
//   - Ошибки возвращаются сентинелами и далее маппятся транспортом на
//     HTTP-статусы (см. комментарии к переменным ошибок ниже).
//   - Уникальность аккаунтов в конечном счёте обеспечивает БД: гонки
//     одновременных регистраций разрешаются уникальными индексами.
package service

import (
	"context"
	"errors"
	"time"

	"jauth/internal/callback"
	"jauth/internal/config"
	"jauth/internal/metrics"
	"jauth/internal/models"
	"jauth/internal/session"
	"jauth/internal/storage"
	"jauth/internal/thirdparty"
)

var (
	// ErrInvalidCredentials — пара логин/пароль неверна или аккаунт не найден.
	// Транспорт: HTTP 401. Причина (нет аккаунта / не тот пароль) не раскрывается.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidToken — токен некорректен по формату/подписи, выдан не для
	// этого назначения или refresh-сессия отсутствует. Транспорт: HTTP 401.
	ErrInvalidToken = errors.New("invalid token")

	// ErrTokenExpired — срок действия токена истёк. Транспорт: HTTP 401.
	ErrTokenExpired = errors.New("token expired")

	// ErrThirdPartyTokenVerify — внешний провайдер не подтвердил токен.
	// Транспорт: HTTP 401.
	ErrThirdPartyTokenVerify = errors.New("third party token verify failed")

	// ErrUserNotFound — аккаунт не существует. Транспорт: HTTP 404.
	ErrUserNotFound = errors.New("user not found")

	// ErrAccountTaken — логин или пара (провайдер, внешний id) уже заняты.
	// Транспорт: HTTP 409.
	ErrAccountTaken = errors.New("account already taken")

	// ErrInvalidAccount — логин не проходит политику (только буквы и цифры).
	// Транспорт: HTTP 400.
	ErrInvalidAccount = errors.New("invalid account format")

	// ErrInvalidEmail — e-mail имеет некорректный формат. Транспорт: HTTP 400.
	ErrInvalidEmail = errors.New("invalid email format")

	// ErrWeakPassword — пароль короче минимальной длины. Транспорт: HTTP 400.
	ErrWeakPassword = errors.New("password is too weak")

	// ErrEmptyPassword — пароль пустой. Транспорт: HTTP 400.
	ErrEmptyPassword = errors.New("password is empty")

	// ErrInvalidUserType — тип идентичности неизвестен или не подходит
	// для операции (например, EMAIL в third-party входе). Транспорт: HTTP 400.
	ErrInvalidUserType = errors.New("invalid user type")

	// ErrOnlyEmailUser — операция применима только к локальным аккаунтам
	// (смена/сброс пароля). Транспорт: HTTP 400.
	ErrOnlyEmailUser = errors.New("operation is allowed for email users only")

	// ErrPermissionDenied — внутренний API-ключ не входит в список доверенных.
	// Транспорт: HTTP 403.
	ErrPermissionDenied = errors.New("permission denied")
)

// Service описывает бизнес-логику сервиса аутентификации.
type Service struct {
	storage   storage.Storage
	sessions  session.Store
	providers thirdparty.Registry
	cfg       config.AuthConfig

	notifier *callback.Notifier // может быть nil, если слушатели не настроены
	metrics  *metrics.Metrics   // может быть nil, если метрики не сконфигурированы
}

// New создаёт новый экземпляр Service.
func New(st storage.Storage, sessions session.Store, providers thirdparty.Registry, cfg config.AuthConfig) *Service {
	return &Service{
		storage:   st,
		sessions:  sessions,
		providers: providers,
		cfg:       cfg,
	}
}

// SetNotifier устанавливает рассыльщик событий аккаунтов (опционально).
func (s *Service) SetNotifier(n *callback.Notifier) {
	s.notifier = n
}

// SetMetrics устанавливает счётчики Prometheus (опционально).
func (s *Service) SetMetrics(m *metrics.Metrics) {
	s.metrics = m
}

// notify асинхронно доставляет событие аккаунта, если слушатели настроены.
// Доставка отвязана от контекста запроса: ответ клиенту от неё не зависит.
func (s *Service) notify(event callback.Event, user *models.User) {
	if s.notifier == nil {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		s.notifier.Notify(ctx, event, user)
	}()
}
