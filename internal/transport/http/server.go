// Пакет http реализует HTTP-транспорт сервиса: маршрутизацию, разбор
// запросов, единый JSON-конверт ответов и маппинг ошибок бизнес-логики
// на HTTP-статусы. Бизнес-решения здесь не принимаются.
//
// Формат ответа: {"success": bool, "result": ..., "reason": ...}.
// При success=false result отсутствует, reason — человекочитаемая причина.
package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/cors"

	"jauth/internal/models"
	"jauth/internal/service"
)

// Server связывает маршруты с бизнес-логикой.
type Server struct {
	svc *service.Service
	log *slog.Logger
}

// NewRouter собирает полный http.Handler сервиса: middleware (request id,
// контекстный логгер, recover, таймаут), CORS и все маршруты.
// metricsHandler (например promhttp) монтируется на /metrics, nil — без метрик.
func NewRouter(svc *service.Service, lg *slog.Logger, timeout time.Duration, metricsHandler http.Handler) http.Handler {
	if lg == nil {
		lg = slog.Default()
	}

	s := &Server{svc: svc, log: lg}

	r := chi.NewRouter()
	r.Use(RequestLogger(lg))
	r.Use(Recover)
	r.Use(Timeout(timeout))

	r.Get("/livez", s.handleHealth)
	r.Get("/healthz", s.handleHealth)
	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}

	r.Route("/users", func(r chi.Router) {
		r.Post("/email", s.handleSignupEmail)
		r.Post("/third_party", s.handleSignupThirdParty)
		r.Get("/-/self", s.handleMyself)
		r.Put("/-/self", s.handleUpdateMyself)
		r.Get("/-/{user_id}", s.handleUserByID)
		r.Put("/email/self/password", s.handleChangePassword)
		r.Post("/email/verify", s.handleVerifyEmail)
		r.Post("/email/password_reset", s.handleResetPassword)
	})

	r.Route("/token", func(r chi.Router) {
		r.Post("/email", s.handleLoginEmail)
		r.Post("/third_party", s.handleLoginThirdParty)
		r.Put("/", s.handleRefresh)
		r.Delete("/", s.handleLogout)
		r.Get("/self", s.handleTokenSelf)
	})

	r.Route("/internal", func(r chi.Router) {
		r.Post("/token/email_verify", s.handleIssueEmailVerifyToken)
		r.Post("/token/password_reset", s.handleIssuePasswordResetToken)
	})

	return cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowedHeaders: []string{"*"},
	}).Handler(r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondResult(w, http.StatusOK, "ok")
}

// envelope — единый конверт ответа.
type envelope struct {
	Success bool   `json:"success"`
	Result  any    `json:"result,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

func respondResult(w http.ResponseWriter, status int, result any) {
	writeJSON(w, status, envelope{Success: true, Result: result})
}

func respondReason(w http.ResponseWriter, status int, reason string) {
	writeJSON(w, status, envelope{Success: false, Reason: reason})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// respondErr переводит ошибку бизнес-логики в HTTP-статус и причину.
// Нераспознанные ошибки не раскрываются клиенту.
func (s *Server) respondErr(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidAccount),
		errors.Is(err, service.ErrInvalidEmail),
		errors.Is(err, service.ErrWeakPassword),
		errors.Is(err, service.ErrEmptyPassword),
		errors.Is(err, service.ErrInvalidUserType),
		errors.Is(err, service.ErrOnlyEmailUser):
		respondReason(w, http.StatusBadRequest, userFacingReason(err))
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrInvalidToken),
		errors.Is(err, service.ErrTokenExpired),
		errors.Is(err, service.ErrThirdPartyTokenVerify):
		respondReason(w, http.StatusUnauthorized, userFacingReason(err))
	case errors.Is(err, service.ErrPermissionDenied):
		respondReason(w, http.StatusForbidden, userFacingReason(err))
	case errors.Is(err, service.ErrUserNotFound):
		respondReason(w, http.StatusNotFound, userFacingReason(err))
	case errors.Is(err, service.ErrAccountTaken):
		respondReason(w, http.StatusConflict, userFacingReason(err))
	default:
		s.log.Error("internal_error",
			slog.String("path", r.URL.Path),
			slog.String("err", err.Error()),
		)
		respondReason(w, http.StatusInternalServerError, "internal server error")
	}
}

// userFacingReason отдаёт текст сентинела без внутренних op-префиксов.
func userFacingReason(err error) string {
	for _, sentinel := range []error{
		service.ErrInvalidAccount,
		service.ErrInvalidEmail,
		service.ErrWeakPassword,
		service.ErrEmptyPassword,
		service.ErrInvalidUserType,
		service.ErrOnlyEmailUser,
		service.ErrInvalidCredentials,
		service.ErrInvalidToken,
		service.ErrTokenExpired,
		service.ErrThirdPartyTokenVerify,
		service.ErrPermissionDenied,
		service.ErrUserNotFound,
		service.ErrAccountTaken,
	} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}

	return "internal server error"
}

// decodeJSON разбирает тело запроса; пустое или битое тело — ошибка формата.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	return dec.Decode(dst)
}

// userView — представление аккаунта в ответах. account отдаётся только
// локальным аккаунтам, third_party_user_id — только внешним.
type userView struct {
	ID               string         `json:"id"`
	Email            string         `json:"email"`
	Type             int            `json:"type"`
	Status           int            `json:"status"`
	Extra            map[string]any `json:"extra"`
	IsEmailVerified  bool           `json:"is_email_verified"`
	CreatedAt        time.Time      `json:"created_at"`
	ModifiedAt       time.Time      `json:"modified_at"`
	Account          string         `json:"account,omitempty"`
	ThirdPartyUserID string         `json:"third_party_user_id,omitempty"`
}

func toUserView(u *models.User) userView {
	v := userView{
		ID:              u.ID.String(),
		Email:           u.Email,
		Type:            int(u.Type),
		Status:          int(u.Status),
		Extra:           u.Extra,
		IsEmailVerified: u.IsEmailVerified,
		CreatedAt:       u.CreatedAt,
		ModifiedAt:      u.ModifiedAt,
	}

	if u.Type == models.UserTypeEmail {
		v.Account = u.Account
	} else {
		v.ThirdPartyUserID = u.ThirdPartyUserID
	}

	return v
}
