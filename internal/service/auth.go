package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode"

	"golang.org/x/crypto/bcrypt"

	"jauth/internal/callback"
	"jauth/internal/models"
	"jauth/internal/session"
	"jauth/internal/storage"
	"jauth/internal/thirdparty"
	"jauth/internal/token"
)

// SignupEmail регистрирует локальный аккаунт (логин + пароль).
// E-mail опционален; при занятом логине возвращает ErrAccountTaken.
func (s *Service) SignupEmail(ctx context.Context, account, email, password string, extra map[string]any) (*models.User, error) {
	const op = "service.auth.SignupEmail"

	account = strings.TrimSpace(account)
	if err := validateAccount(account); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := validatePassword(password); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	normEmail := ""
	if strings.TrimSpace(email) != "" {
		var err error
		normEmail, err = validateEmail(email)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	hashedPassword, err := hashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	user, err := s.storage.CreateEmailUser(ctx, account, normEmail, hashedPassword, extra)
	if err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			return nil, fmt.Errorf("%s: %w", op, ErrAccountTaken)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if s.metrics != nil {
		s.metrics.SignupsTotal.WithLabelValues(user.Type.String()).Inc()
	}
	s.notify(callback.EventUserCreate, user)

	return user, nil
}

// SignupThirdParty регистрирует аккаунт по токену внешнего провайдера.
// Идентичность подтверждается у провайдера до какой-либо записи в БД;
// занятая пара (провайдер, внешний id) среди NORMAL — ErrAccountTaken.
func (s *Service) SignupThirdParty(ctx context.Context, userType models.UserType, providerToken string, extra map[string]any) (*models.User, error) {
	const op = "service.auth.SignupThirdParty"

	tpUser, err := s.verifyThirdParty(ctx, userType, providerToken)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	user, err := s.storage.CreateThirdPartyUser(ctx, userType, tpUser.ID, tpUser.Email, extra)
	if err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			return nil, fmt.Errorf("%s: %w", op, ErrAccountTaken)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if tpUser.IsEmailVerified {
		verified := true
		if _, err := s.storage.UpdateUser(ctx, user.ID, storage.UserUpdate{IsEmailVerified: &verified}); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		user.IsEmailVerified = true
	}

	if s.metrics != nil {
		s.metrics.SignupsTotal.WithLabelValues(user.Type.String()).Inc()
	}
	s.notify(callback.EventUserCreate, user)

	return user, nil
}

// LoginEmail выполняет вход по логину и паролю.
// Любая причина отказа (нет аккаунта, не тот пароль, аккаунт не NORMAL)
// даёт одинаковый ErrInvalidCredentials.
func (s *Service) LoginEmail(ctx context.Context, account, password string) (*models.TokenPair, error) {
	const op = "service.auth.LoginEmail"

	account = strings.TrimSpace(account)
	if account == "" || password == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	user, err := s.storage.UserByAccount(ctx, account)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if user.Status != models.UserStatusNormal || !checkPassword(user.HashedPassword, password) {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	pair, err := s.issueTokenPair(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if s.metrics != nil {
		s.metrics.LoginsTotal.WithLabelValues(user.Type.String()).Inc()
	}

	return pair, nil
}

// LoginThirdParty выполняет вход по токену внешнего провайдера.
// Аккаунт должен существовать: автоматической регистрации нет,
// отсутствующий аккаунт — ErrUserNotFound.
func (s *Service) LoginThirdParty(ctx context.Context, userType models.UserType, providerToken string) (*models.TokenPair, error) {
	const op = "service.auth.LoginThirdParty"

	tpUser, err := s.verifyThirdParty(ctx, userType, providerToken)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	user, err := s.storage.UserByThirdPartyID(ctx, userType, tpUser.ID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	pair, err := s.issueTokenPair(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if s.metrics != nil {
		s.metrics.LoginsTotal.WithLabelValues(user.Type.String()).Inc()
	}

	return pair, nil
}

// Refresh обменивает refresh-токен на новую пару. Старая сессия
// инвалидируется до выпуска новой (ротация): каждый refresh-токен
// срабатывает не более одного раза.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*models.TokenPair, error) {
	const op = "service.auth.Refresh"

	userID, err := s.sessions.Resolve(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	user, err := s.storage.UserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if user.Status != models.UserStatusNormal {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	if err := s.sessions.Invalidate(ctx, refreshToken); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	pair, err := s.issueTokenPair(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if s.metrics != nil {
		s.metrics.RefreshRotationsTotal.Inc()
	}

	return pair, nil
}

// Logout инвалидирует refresh-сессию. Идемпотентен: повторный выход
// с тем же токеном — не ошибка.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	const op = "service.auth.Logout"

	if err := s.sessions.Invalidate(ctx, refreshToken); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// VerifySession проверяет bearer-токен из заголовка Authorization и
// возвращает сессионный клейм. В БД не ходит: подпись и срок — единственные
// проверки, это осознанный компромисс скорости против мгновенного отзыва.
func (s *Service) VerifySession(ctx context.Context, authorization string) (*token.Claim, error) {
	const op = "service.auth.VerifySession"

	claim, err := token.FromAuthorization(authorization, s.cfg.JWTSecret)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapTokenErr(err))
	}

	return claim, nil
}

// verifyThirdParty подтверждает токен у провайдера и возвращает
// каноническую идентичность.
func (s *Service) verifyThirdParty(ctx context.Context, userType models.UserType, providerToken string) (*models.ThirdPartyUser, error) {
	const op = "service.auth.verifyThirdParty"

	getter, ok := s.providers.Get(userType)
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidUserType)
	}

	tpUser, err := getter.GetUser(ctx, providerToken)
	if err != nil {
		if s.metrics != nil {
			s.metrics.ProviderFailuresTotal.WithLabelValues(userType.String()).Inc()
		}

		if errors.Is(err, thirdparty.ErrTokenVerify) {
			return nil, fmt.Errorf("%s: %w", op, ErrThirdPartyTokenVerify)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return tpUser, nil
}

// issueTokenPair выпускает access-токен и новую refresh-сессию.
func (s *Service) issueTokenPair(ctx context.Context, user *models.User) (*models.TokenPair, error) {
	const op = "service.auth.issueTokenPair"

	now := time.Now().UTC()
	expiresAt := now.Add(s.cfg.AccessTokenTTL)

	accessToken, err := token.Issue(token.Claim{
		UserID:    user.ID,
		UserType:  user.Type,
		Issuer:    token.IssuerSession,
		ExpiresAt: expiresAt,
	}, s.cfg.JWTSecret)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	refreshToken, err := s.sessions.Create(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &models.TokenPair{
		AccessToken:     accessToken,
		RefreshToken:    refreshToken,
		AccessExpiresAt: expiresAt,
	}, nil
}

// mapTokenErr переводит ошибки кодека токенов в сентинелы сервиса.
func mapTokenErr(err error) error {
	switch {
	case errors.Is(err, token.ErrTokenExpired):
		return ErrTokenExpired
	case errors.Is(err, token.ErrWrongIssuer),
		errors.Is(err, token.ErrInvalidToken),
		errors.Is(err, token.ErrTokenNotDelivered):
		return ErrInvalidToken
	default:
		return err
	}
}

// hashPassword хэширует пароль с помощью bcrypt.
func hashPassword(password string) (string, error) {
	const op = "service.auth.hashPassword"

	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return string(bytes), nil
}

// checkPassword сравнивает пароль с хэшем.
func checkPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// validateAccount проверяет политику логина: непустой, только буквы и цифры.
func validateAccount(account string) error {
	if account == "" {
		return ErrInvalidAccount
	}

	for _, r := range account {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return ErrInvalidAccount
		}
	}

	return nil
}

// validateEmail проверяет базовый формат e-mail и нормализует регистр.
func validateEmail(raw string) (string, error) {
	email := strings.TrimSpace(raw)
	if email == "" {
		return "", ErrInvalidEmail
	}

	if _, err := mail.ParseAddress(email); err != nil {
		return "", ErrInvalidEmail
	}

	return strings.ToLower(email), nil
}

// validatePassword проверяет минимальные требования: длина >= 8 символов.
func validatePassword(pw string) error {
	if len(pw) == 0 {
		return ErrEmptyPassword
	}

	if len([]rune(pw)) < 8 {
		return ErrWeakPassword
	}

	return nil
}
