package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"jauth/internal/config"
	"jauth/internal/models"
	"jauth/internal/session"
	"jauth/internal/storage"
	"jauth/internal/thirdparty"
	"jauth/internal/token"
	"jauth/mocks"
)

func testCfg() config.AuthConfig {
	return config.AuthConfig{
		JWTSecret:       "unit-secret",
		AccessTokenTTL:  30 * time.Second,
		RefreshTokenTTL: 24 * time.Hour,
		TempTokenTTL:    10 * time.Minute,
		InternalAPIKeys: []string{"internal-key"},
	}
}

type svcDeps struct {
	st     *mocks.MockStorage
	sess   *mocks.MockStore
	google *mocks.MockUserGetter
}

func newSvc(t *testing.T) (*Service, svcDeps, *gomock.Controller) {
	t.Helper()

	ctrl := gomock.NewController(t)
	deps := svcDeps{
		st:     mocks.NewMockStorage(ctrl),
		sess:   mocks.NewMockStore(ctrl),
		google: mocks.NewMockUserGetter(ctrl),
	}

	providers := thirdparty.Registry{
		models.UserTypeGoogle: deps.google,
	}

	svc := New(deps.st, deps.sess, providers, testCfg())

	return svc, deps, ctrl
}

func mustHashPW(t *testing.T, pw string) string {
	t.Helper()
	h, err := hashPassword(pw)
	require.NoError(t, err)
	return h
}

func normalUser(t *testing.T, userType models.UserType) *models.User {
	t.Helper()

	u := &models.User{
		ID:     uuid.New(),
		Type:   userType,
		Status: models.UserStatusNormal,
	}
	if userType == models.UserTypeEmail {
		u.Account = "alice1"
		u.HashedPassword = mustHashPW(t, "longenough1")
	} else {
		u.ThirdPartyUserID = "tp-123"
	}

	return u
}

func TestSignupEmail_OK(t *testing.T) {
	t.Parallel()

	svc, deps, ctrl := newSvc(t)
	defer ctrl.Finish()

	ctx := context.Background()
	created := normalUser(t, models.UserTypeEmail)
	created.Email = "alice@example.com"

	deps.st.EXPECT().
		CreateEmailUser(gomock.Any(), "alice1", "alice@example.com", gomock.Any(), gomock.Any()).
		Return(created, nil)

	user, err := svc.SignupEmail(ctx, " alice1 ", "Alice@Example.COM", "longenough1", map[string]any{"nickname": "al"})
	require.NoError(t, err)
	require.Equal(t, created.ID, user.ID)
}

func TestSignupEmail_Validation(t *testing.T) {
	t.Parallel()

	svc, _, ctrl := newSvc(t)
	defer ctrl.Finish()

	ctx := context.Background()

	_, err := svc.SignupEmail(ctx, "bad account!", "a@b.c", "longenough1", nil)
	require.ErrorIs(t, err, ErrInvalidAccount)

	_, err = svc.SignupEmail(ctx, "", "a@b.c", "longenough1", nil)
	require.ErrorIs(t, err, ErrInvalidAccount)

	_, err = svc.SignupEmail(ctx, "alice1", "a@b.c", "short", nil)
	require.ErrorIs(t, err, ErrWeakPassword)

	_, err = svc.SignupEmail(ctx, "alice1", "a@b.c", "", nil)
	require.ErrorIs(t, err, ErrEmptyPassword)

	_, err = svc.SignupEmail(ctx, "alice1", "not-an-email", "longenough1", nil)
	require.ErrorIs(t, err, ErrInvalidEmail)
}

func TestSignupEmail_AccountTaken(t *testing.T) {
	t.Parallel()

	svc, deps, ctrl := newSvc(t)
	defer ctrl.Finish()

	deps.st.EXPECT().
		CreateEmailUser(gomock.Any(), "alice1", "", gomock.Any(), gomock.Any()).
		Return(nil, storage.ErrAlreadyExists)

	_, err := svc.SignupEmail(context.Background(), "alice1", "", "longenough1", nil)
	require.ErrorIs(t, err, ErrAccountTaken)
}

func TestSignupThirdParty_OK(t *testing.T) {
	t.Parallel()

	svc, deps, ctrl := newSvc(t)
	defer ctrl.Finish()

	created := normalUser(t, models.UserTypeGoogle)
	created.Email = "g@example.com"

	deps.google.EXPECT().
		GetUser(gomock.Any(), "provider-token").
		Return(&models.ThirdPartyUser{
			ID:              "tp-123",
			Email:           "g@example.com",
			IsEmailVerified: true,
			Type:            models.UserTypeGoogle,
		}, nil)
	deps.st.EXPECT().
		CreateThirdPartyUser(gomock.Any(), models.UserTypeGoogle, "tp-123", "g@example.com", gomock.Any()).
		Return(created, nil)
	deps.st.EXPECT().
		UpdateUser(gomock.Any(), created.ID, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ uuid.UUID, upd storage.UserUpdate) (int64, error) {
			require.NotNil(t, upd.IsEmailVerified)
			require.True(t, *upd.IsEmailVerified)
			return 1, nil
		})

	user, err := svc.SignupThirdParty(context.Background(), models.UserTypeGoogle, "provider-token", nil)
	require.NoError(t, err)
	require.True(t, user.IsEmailVerified)
}

func TestSignupThirdParty_VerifyFailed(t *testing.T) {
	t.Parallel()

	svc, deps, ctrl := newSvc(t)
	defer ctrl.Finish()

	deps.google.EXPECT().
		GetUser(gomock.Any(), "bad-token").
		Return(nil, thirdparty.ErrTokenVerify)

	_, err := svc.SignupThirdParty(context.Background(), models.UserTypeGoogle, "bad-token", nil)
	require.ErrorIs(t, err, ErrThirdPartyTokenVerify)
}

func TestSignupThirdParty_UnknownType(t *testing.T) {
	t.Parallel()

	svc, _, ctrl := newSvc(t)
	defer ctrl.Finish()

	_, err := svc.SignupThirdParty(context.Background(), models.UserTypeEmail, "token", nil)
	require.ErrorIs(t, err, ErrInvalidUserType)
}

func TestSignupThirdParty_Taken(t *testing.T) {
	t.Parallel()

	svc, deps, ctrl := newSvc(t)
	defer ctrl.Finish()

	deps.google.EXPECT().
		GetUser(gomock.Any(), "provider-token").
		Return(&models.ThirdPartyUser{ID: "tp-123", Type: models.UserTypeGoogle}, nil)
	deps.st.EXPECT().
		CreateThirdPartyUser(gomock.Any(), models.UserTypeGoogle, "tp-123", "", gomock.Any()).
		Return(nil, storage.ErrAlreadyExists)

	_, err := svc.SignupThirdParty(context.Background(), models.UserTypeGoogle, "provider-token", nil)
	require.ErrorIs(t, err, ErrAccountTaken)
}

func TestLoginEmail_OK(t *testing.T) {
	t.Parallel()

	svc, deps, ctrl := newSvc(t)
	defer ctrl.Finish()

	user := normalUser(t, models.UserTypeEmail)

	deps.st.EXPECT().UserByAccount(gomock.Any(), "alice1").Return(user, nil)
	deps.sess.EXPECT().Create(gomock.Any(), user.ID).Return("refresh-1", nil)

	pair, err := svc.LoginEmail(context.Background(), "alice1", "longenough1")
	require.NoError(t, err)
	require.Equal(t, "refresh-1", pair.RefreshToken)

	claim, err := token.Parse(pair.AccessToken, testCfg().JWTSecret, token.IssuerSession)
	require.NoError(t, err)
	require.Equal(t, user.ID, claim.UserID)
	require.Equal(t, models.UserTypeEmail, claim.UserType)
	require.WithinDuration(t, pair.AccessExpiresAt, claim.ExpiresAt, time.Second)
}

func TestLoginEmail_InvalidCredentials(t *testing.T) {
	t.Parallel()

	svc, deps, ctrl := newSvc(t)
	defer ctrl.Finish()

	ctx := context.Background()

	// Нет аккаунта.
	deps.st.EXPECT().UserByAccount(gomock.Any(), "ghost").Return(nil, storage.ErrNotFound)
	_, err := svc.LoginEmail(ctx, "ghost", "longenough1")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	// Не тот пароль.
	user := normalUser(t, models.UserTypeEmail)
	deps.st.EXPECT().UserByAccount(gomock.Any(), "alice1").Return(user, nil)
	_, err = svc.LoginEmail(ctx, "alice1", "wrong-password")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	// Аккаунт не NORMAL.
	deleted := normalUser(t, models.UserTypeEmail)
	deleted.Status = models.UserStatusDeleted
	deps.st.EXPECT().UserByAccount(gomock.Any(), "alice1").Return(deleted, nil)
	_, err = svc.LoginEmail(ctx, "alice1", "longenough1")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	// Пустой ввод не доходит до хранилища.
	_, err = svc.LoginEmail(ctx, "", "longenough1")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginThirdParty_OK(t *testing.T) {
	t.Parallel()

	svc, deps, ctrl := newSvc(t)
	defer ctrl.Finish()

	user := normalUser(t, models.UserTypeGoogle)

	deps.google.EXPECT().
		GetUser(gomock.Any(), "provider-token").
		Return(&models.ThirdPartyUser{ID: "tp-123", Type: models.UserTypeGoogle}, nil)
	deps.st.EXPECT().
		UserByThirdPartyID(gomock.Any(), models.UserTypeGoogle, "tp-123").
		Return(user, nil)
	deps.sess.EXPECT().Create(gomock.Any(), user.ID).Return("refresh-2", nil)

	pair, err := svc.LoginThirdParty(context.Background(), models.UserTypeGoogle, "provider-token")
	require.NoError(t, err)
	require.Equal(t, "refresh-2", pair.RefreshToken)
}

// Вход без регистрации не создаёт аккаунт.
func TestLoginThirdParty_NoAccount(t *testing.T) {
	t.Parallel()

	svc, deps, ctrl := newSvc(t)
	defer ctrl.Finish()

	deps.google.EXPECT().
		GetUser(gomock.Any(), "provider-token").
		Return(&models.ThirdPartyUser{ID: "tp-123", Type: models.UserTypeGoogle}, nil)
	deps.st.EXPECT().
		UserByThirdPartyID(gomock.Any(), models.UserTypeGoogle, "tp-123").
		Return(nil, storage.ErrNotFound)

	_, err := svc.LoginThirdParty(context.Background(), models.UserTypeGoogle, "provider-token")
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestRefresh_RotatesSession(t *testing.T) {
	t.Parallel()

	svc, deps, ctrl := newSvc(t)
	defer ctrl.Finish()

	user := normalUser(t, models.UserTypeEmail)

	gomock.InOrder(
		deps.sess.EXPECT().Resolve(gomock.Any(), "old-refresh").Return(user.ID, nil),
		deps.st.EXPECT().UserByID(gomock.Any(), user.ID).Return(user, nil),
		deps.sess.EXPECT().Invalidate(gomock.Any(), "old-refresh").Return(nil),
		deps.sess.EXPECT().Create(gomock.Any(), user.ID).Return("new-refresh", nil),
	)

	pair, err := svc.Refresh(context.Background(), "old-refresh")
	require.NoError(t, err)
	require.Equal(t, "new-refresh", pair.RefreshToken)
}

func TestRefresh_UnknownToken(t *testing.T) {
	t.Parallel()

	svc, deps, ctrl := newSvc(t)
	defer ctrl.Finish()

	deps.sess.EXPECT().Resolve(gomock.Any(), "ghost").Return(uuid.Nil, session.ErrNotFound)

	_, err := svc.Refresh(context.Background(), "ghost")
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestRefresh_NonNormalUser(t *testing.T) {
	t.Parallel()

	svc, deps, ctrl := newSvc(t)
	defer ctrl.Finish()

	user := normalUser(t, models.UserTypeEmail)
	user.Status = models.UserStatusWithdrawn

	deps.sess.EXPECT().Resolve(gomock.Any(), "old-refresh").Return(user.ID, nil)
	deps.st.EXPECT().UserByID(gomock.Any(), user.ID).Return(user, nil)

	_, err := svc.Refresh(context.Background(), "old-refresh")
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestLogout_Idempotent(t *testing.T) {
	t.Parallel()

	svc, deps, ctrl := newSvc(t)
	defer ctrl.Finish()

	deps.sess.EXPECT().Invalidate(gomock.Any(), "refresh-1").Return(nil).Times(2)

	require.NoError(t, svc.Logout(context.Background(), "refresh-1"))
	require.NoError(t, svc.Logout(context.Background(), "refresh-1"))
}

func TestVerifySession(t *testing.T) {
	t.Parallel()

	svc, _, ctrl := newSvc(t)
	defer ctrl.Finish()

	ctx := context.Background()
	userID := uuid.New()

	valid, err := token.Issue(token.Claim{
		UserID:    userID,
		UserType:  models.UserTypeEmail,
		Issuer:    token.IssuerSession,
		ExpiresAt: time.Now().UTC().Add(time.Minute),
	}, testCfg().JWTSecret)
	require.NoError(t, err)

	claim, err := svc.VerifySession(ctx, "Bearer "+valid)
	require.NoError(t, err)
	require.Equal(t, userID, claim.UserID)

	// Просроченный токен.
	expired, err := token.Issue(token.Claim{
		UserID:    userID,
		UserType:  models.UserTypeEmail,
		Issuer:    token.IssuerSession,
		ExpiresAt: time.Now().UTC().Add(-time.Minute),
	}, testCfg().JWTSecret)
	require.NoError(t, err)

	_, err = svc.VerifySession(ctx, "Bearer "+expired)
	require.ErrorIs(t, err, ErrTokenExpired)

	// Служебный токен не принимается как сессионный.
	temp, err := token.Issue(token.Claim{
		UserID:    userID,
		UserType:  models.UserTypeEmail,
		Issuer:    token.IssuerEmailVerify,
		ExpiresAt: time.Now().UTC().Add(time.Minute),
	}, testCfg().JWTSecret)
	require.NoError(t, err)

	_, err = svc.VerifySession(ctx, "Bearer "+temp)
	require.ErrorIs(t, err, ErrInvalidToken)

	// Нет заголовка / не bearer.
	_, err = svc.VerifySession(ctx, "")
	require.ErrorIs(t, err, ErrInvalidToken)

	_, err = svc.VerifySession(ctx, "Basic abc")
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyThirdParty_UnexpectedProviderError(t *testing.T) {
	t.Parallel()

	svc, deps, ctrl := newSvc(t)
	defer ctrl.Finish()

	bang := errors.New("network down")
	deps.google.EXPECT().GetUser(gomock.Any(), "token").Return(nil, bang)

	_, err := svc.LoginThirdParty(context.Background(), models.UserTypeGoogle, "token")
	require.ErrorIs(t, err, bang)
	require.NotErrorIs(t, err, ErrThirdPartyTokenVerify)
}
