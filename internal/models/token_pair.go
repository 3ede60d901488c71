package models

import "time"

// TokenPair — пара токенов, выдаваемая при логине и обновлении.
//
//   - AccessToken — короткоживущий JWT для авторизации запросов;
//   - RefreshToken — случайный секрет; клиент предъявляет его, чтобы
//     выпустить новую пару, на каждом обновлении он ротируется;
//   - AccessExpiresAt — момент истечения access-токена (UTC).
type TokenPair struct {
	AccessToken     string
	RefreshToken    string
	AccessExpiresAt time.Time
}
