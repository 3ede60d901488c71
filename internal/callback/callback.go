// callback доставляет события жизненного цикла аккаунта (создание,
// обновление) внешним слушателям: POST JSON на каждый настроенный URL.
//
// Доставка строго best-effort: ошибки глотаются (только лог), результат
// операции, породившей событие, от доставки не зависит. URL слушателей
// задаются оператором в конфигурации, поэтому исходящий клиент по
// умолчанию собран через safeurl — приватные адресные диапазоны и
// метаданные облака недостижимы.
package callback

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/doyensec/safeurl"

	"jauth/internal/config"
	"jauth/internal/models"
)

// Event — вид события.
type Event string

const (
	EventUserCreate Event = "jauth.user.create"
	EventUserUpdate Event = "jauth.user.update"
)

// message — снапшот аккаунта, отправляемый слушателю.
type message struct {
	Type                 string         `json:"type"`
	IssuedAt             int64          `json:"issued_at"`
	Token                string         `json:"token"`
	UserID               string         `json:"user__id"`
	UserEmail            string         `json:"user__email"`
	UserThirdPartyUserID string         `json:"user__third_party_user_id"`
	UserType             string         `json:"user__type"`
	UserStatus           string         `json:"user__status"`
	UserIsEmailVerified  bool           `json:"user__is_email_verified"`
	UserExtra            map[string]any `json:"user__extra"`
}

// Notifier рассылает события по настроенным получателям.
type Notifier struct {
	client  *http.Client
	targets []config.CallbackTarget
	log     *slog.Logger
}

// New создаёт Notifier с SSRF-безопасным исходящим клиентом.
func New(targets []config.CallbackTarget, lg *slog.Logger) *Notifier {
	cfg := safeurl.GetConfigBuilder().
		SetTimeout(10 * time.Second).
		SetAllowedSchemes("http", "https").
		SetAllowedPorts(80, 443).
		Build()

	return NewWithClient(safeurl.Client(cfg).Client, targets, lg)
}

// NewWithClient позволяет подменить клиент (тесты, внутренняя сеть).
func NewWithClient(client *http.Client, targets []config.CallbackTarget, lg *slog.Logger) *Notifier {
	if lg == nil {
		lg = slog.Default()
	}

	return &Notifier{client: client, targets: targets, log: lg}
}

// Notify доставляет событие всем получателям. Ошибки не возвращаются —
// только логируются; вызывающие запускают доставку в отдельной горутине.
func (n *Notifier) Notify(ctx context.Context, event Event, user *models.User) {
	const op = "callback.callback.Notify"

	if len(n.targets) == 0 {
		return
	}

	for _, target := range n.targets {
		msg := message{
			Type:                 string(event),
			IssuedAt:             time.Now().UTC().Unix(),
			Token:                target.Token,
			UserID:               user.ID.String(),
			UserEmail:            user.Email,
			UserThirdPartyUserID: user.ThirdPartyUserID,
			UserType:             user.Type.String(),
			UserStatus:           user.Status.String(),
			UserIsEmailVerified:  user.IsEmailVerified,
			UserExtra:            user.Extra,
		}

		if err := n.post(ctx, target.URL, msg); err != nil {
			n.log.Warn("callback_delivery_failed",
				slog.String("op", op),
				slog.String("event", string(event)),
				slog.String("url", target.URL),
				slog.String("err", err.Error()),
			)
		}
	}
}

func (n *Notifier) post(ctx context.Context, url string, msg message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return nil
}
