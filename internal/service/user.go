package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"jauth/internal/callback"
	"jauth/internal/models"
	"jauth/internal/storage"
	"jauth/internal/token"
)

// ProfileUpdate — изменяемые владельцем поля профиля. nil-поле не трогается.
type ProfileUpdate struct {
	Email *string
	Extra map[string]any
}

// UserByID возвращает аккаунт по идентификатору.
func (s *Service) UserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	const op = "service.user.UserByID"

	user, err := s.storage.UserByID(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return user, nil
}

// UpdateMyself применяет изменения профиля владельца. Смена e-mail
// сбрасывает флаг подтверждения: новый адрес подтверждён не был.
func (s *Service) UpdateMyself(ctx context.Context, userID uuid.UUID, upd ProfileUpdate) (*models.User, error) {
	const op = "service.user.UpdateMyself"

	stUpd := storage.UserUpdate{Extra: upd.Extra}

	if upd.Email != nil {
		normEmail, err := validateEmail(*upd.Email)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		verified := false
		stUpd.Email = &normEmail
		stUpd.IsEmailVerified = &verified
	}

	affected, err := s.storage.UpdateUser(ctx, userID, stUpd)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if affected == 0 {
		return nil, fmt.Errorf("%s: %w", op, ErrUserNotFound)
	}

	user, err := s.storage.UserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.notify(callback.EventUserUpdate, user)

	return user, nil
}

// ChangePassword меняет пароль локального аккаунта после проверки текущего.
func (s *Service) ChangePassword(ctx context.Context, userID uuid.UUID, currentPassword, newPassword string) error {
	const op = "service.user.ChangePassword"

	user, err := s.UserByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if user.Type != models.UserTypeEmail {
		return fmt.Errorf("%s: %w", op, ErrOnlyEmailUser)
	}

	if !checkPassword(user.HashedPassword, currentPassword) {
		return fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	if err := validatePassword(newPassword); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	hashed, err := hashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if _, err := s.storage.UpdateUser(ctx, userID, storage.UserUpdate{HashedPassword: &hashed}); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// IssueEmailVerifyToken выпускает одноразовый токен подтверждения e-mail.
// Доступен только внутренним вызовам по доверенному API-ключу: сервис сам
// письма не отправляет, доставка токена — забота вызывающего.
func (s *Service) IssueEmailVerifyToken(ctx context.Context, apiKey string, userID uuid.UUID) (string, error) {
	const op = "service.user.IssueEmailVerifyToken"

	if !s.internalKeyAllowed(apiKey) {
		return "", fmt.Errorf("%s: %w", op, ErrPermissionDenied)
	}

	user, err := s.UserByID(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	if strings.TrimSpace(user.Email) == "" {
		return "", fmt.Errorf("%s: %w", op, ErrInvalidEmail)
	}

	signed, err := token.Issue(token.Claim{
		UserID:    user.ID,
		UserType:  user.Type,
		Issuer:    token.IssuerEmailVerify,
		ExpiresAt: time.Now().UTC().Add(s.cfg.TempTokenTTL),
	}, s.cfg.JWTSecret)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	if s.metrics != nil {
		s.metrics.TempTokensTotal.WithLabelValues("email_verify").Inc()
	}

	return signed, nil
}

// IssuePasswordResetToken выпускает одноразовый токен сброса пароля по логину.
// Доступен только внутренним вызовам; применим только к локальным аккаунтам.
func (s *Service) IssuePasswordResetToken(ctx context.Context, apiKey, account string) (string, error) {
	const op = "service.user.IssuePasswordResetToken"

	if !s.internalKeyAllowed(apiKey) {
		return "", fmt.Errorf("%s: %w", op, ErrPermissionDenied)
	}

	user, err := s.storage.UserByAccount(ctx, strings.TrimSpace(account))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return "", fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}

		return "", fmt.Errorf("%s: %w", op, err)
	}

	if user.Type != models.UserTypeEmail {
		return "", fmt.Errorf("%s: %w", op, ErrOnlyEmailUser)
	}

	signed, err := token.Issue(token.Claim{
		UserID:    user.ID,
		UserType:  user.Type,
		Issuer:    token.IssuerPasswordReset,
		ExpiresAt: time.Now().UTC().Add(s.cfg.TempTokenTTL),
	}, s.cfg.JWTSecret)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	if s.metrics != nil {
		s.metrics.TempTokensTotal.WithLabelValues("password_reset").Inc()
	}

	return signed, nil
}

// VerifyEmail помечает e-mail подтверждённым по предъявленному токену
// подтверждения. Сессионный токен здесь не принимается: назначение клейма
// проверяется по issuer.
func (s *Service) VerifyEmail(ctx context.Context, tempToken string) (*models.User, error) {
	const op = "service.user.VerifyEmail"

	claim, err := token.Parse(tempToken, s.cfg.JWTSecret, token.IssuerEmailVerify)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapTokenErr(err))
	}

	verified := true
	affected, err := s.storage.UpdateUser(ctx, claim.UserID, storage.UserUpdate{IsEmailVerified: &verified})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if affected == 0 {
		return nil, fmt.Errorf("%s: %w", op, ErrUserNotFound)
	}

	user, err := s.storage.UserByID(ctx, claim.UserID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.notify(callback.EventUserUpdate, user)

	return user, nil
}

// ResetPassword устанавливает новый пароль по предъявленному токену сброса.
func (s *Service) ResetPassword(ctx context.Context, tempToken, newPassword string) error {
	const op = "service.user.ResetPassword"

	claim, err := token.Parse(tempToken, s.cfg.JWTSecret, token.IssuerPasswordReset)
	if err != nil {
		return fmt.Errorf("%s: %w", op, mapTokenErr(err))
	}

	if err := validatePassword(newPassword); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	user, err := s.UserByID(ctx, claim.UserID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if user.Type != models.UserTypeEmail {
		return fmt.Errorf("%s: %w", op, ErrOnlyEmailUser)
	}

	hashed, err := hashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if _, err := s.storage.UpdateUser(ctx, user.ID, storage.UserUpdate{HashedPassword: &hashed}); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// internalKeyAllowed проверяет точное вхождение ключа в доверенный список.
func (s *Service) internalKeyAllowed(apiKey string) bool {
	if apiKey == "" {
		return false
	}

	for _, k := range s.cfg.InternalAPIKeys {
		if k == apiKey {
			return true
		}
	}

	return false
}
