// token реализует кодек подписанных клеймов: выпуск и разбор компактных
// JWT (HS256, общий секрет) с привязкой к назначению через iss.
//
// Каждый вид клейма фиксирует собственную константу issuer; клейм,
// разобранный под чужим ожидаемым issuer, отклоняется даже при валидной
// подписи. Это единственное, что отделяет токен «ссылка для подтверждения
// почты» от полноценного сессионного токена, когда оба подписаны одним
// секретом.
package token

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"jauth/internal/models"
)

// Константы issuer, по одной на назначение клейма.
const (
	// IssuerSession — обычный сессионный (bearer) токен.
	IssuerSession = "jauth"
	// IssuerEmailVerify — одноразовый токен подтверждения e-mail.
	IssuerEmailVerify = "jauth-temp-email"
	// IssuerPasswordReset — одноразовый токен сброса пароля.
	IssuerPasswordReset = "jauth-temp-password-reset"
)

var (
	// ErrInvalidToken — подпись не сходится или структура токена не разбирается.
	ErrInvalidToken = errors.New("invalid token")

	// ErrWrongIssuer — подпись валидна, но issuer не совпадает с ожидаемым
	// назначением (попытка предъявить токен не по назначению).
	ErrWrongIssuer = errors.New("unexpected token issuer")

	// ErrTokenExpired — срок действия истёк. Граница включительная:
	// exp == текущая секунда уже считается просроченным.
	ErrTokenExpired = errors.New("token expired")

	// ErrTokenNotDelivered — в запросе нет корректного заголовка
	// Authorization: Bearer <token>.
	ErrTokenNotDelivered = errors.New("token is not delivered")
)

// Claim — расшифрованное содержимое подписанного токена.
type Claim struct {
	// UserID — субъект клейма.
	UserID uuid.UUID
	// UserType — тип аккаунта субъекта.
	UserType models.UserType
	// Issuer — назначение клейма (одна из констант Issuer*).
	Issuer string
	// ExpiresAt — момент истечения (UTC, точность до секунды).
	ExpiresAt time.Time
}

// wireClaims — представление клейма на проводе. Имена полей id/type/iss/exp
// совпадают с историческим форматом, поэтому уже выданные токены остаются
// валидными.
type wireClaims struct {
	ID   string `json:"id"`
	Type int    `json:"type"`
	jwt.RegisteredClaims
}

// Issue сериализует клейм в подписанный токен.
func Issue(c Claim, secret string) (string, error) {
	const op = "token.token.Issue"

	wc := wireClaims{
		ID:   c.UserID.String(),
		Type: int(c.UserType),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.Issuer,
			ExpiresAt: jwt.NewNumericDate(c.ExpiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, wc).SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return signed, nil
}

// Parse проверяет подпись и восстанавливает клейм.
//
// Порядок проверок фиксирован: подпись -> issuer -> срок действия.
// Ошибки различимы: ErrInvalidToken, ErrWrongIssuer, ErrTokenExpired.
// Срок действия проверяется явно (включительная граница), а не валидатором
// jwt-библиотеки, который считает exp == now ещё валидным и добавляет leeway.
func Parse(tokenStr, secret, expectedIssuer string) (*Claim, error) {
	const op = "token.token.Parse"

	parsed, err := jwt.ParseWithClaims(tokenStr, &wireClaims{},
		func(t *jwt.Token) (interface{}, error) {
			if t.Method != jwt.SigningMethodHS256 {
				return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
			}

			return []byte(secret), nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	wc, ok := parsed.Claims.(*wireClaims)
	if !ok || !parsed.Valid {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	if wc.Issuer != expectedIssuer {
		return nil, fmt.Errorf("%s: %w", op, ErrWrongIssuer)
	}

	if wc.ExpiresAt == nil {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}
	if !time.Now().UTC().Before(wc.ExpiresAt.Time) {
		return nil, fmt.Errorf("%s: %w", op, ErrTokenExpired)
	}

	uid, err := uuid.Parse(wc.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}

	return &Claim{
		UserID:    uid,
		UserType:  models.UserType(wc.Type),
		Issuer:    wc.Issuer,
		ExpiresAt: wc.ExpiresAt.Time.UTC(),
	}, nil
}

// FromAuthorization извлекает сессионный клейм из заголовка Authorization
// по соглашению "Bearer <token>". Отсутствие или неверный формат заголовка —
// ErrTokenNotDelivered; дальше ошибки Parse пробрасываются как есть.
func FromAuthorization(header, secret string) (*Claim, error) {
	const (
		op     = "token.token.FromAuthorization"
		bearer = "Bearer "
	)

	if header == "" || !strings.HasPrefix(header, bearer) {
		return nil, fmt.Errorf("%s: %w", op, ErrTokenNotDelivered)
	}

	return Parse(strings.TrimPrefix(header, bearer), secret, IssuerSession)
}
