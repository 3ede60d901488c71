// metrics — счётчики Prometheus для ключевых операций аутентификации.
// Регистратор инжектируется, глобальный DefaultRegisterer не используется.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics агрегирует счётчики сервиса.
type Metrics struct {
	// SignupsTotal — успешные регистрации по типу идентичности.
	SignupsTotal *prometheus.CounterVec
	// LoginsTotal — успешные входы по типу идентичности.
	LoginsTotal *prometheus.CounterVec
	// RefreshRotationsTotal — успешные ротации refresh-сессий.
	RefreshRotationsTotal prometheus.Counter
	// ProviderFailuresTotal — отказы проверки токена у внешнего провайдера.
	ProviderFailuresTotal *prometheus.CounterVec
	// TempTokensTotal — выпущенные служебные токены по назначению.
	TempTokensTotal *prometheus.CounterVec
}

// New регистрирует счётчики на reg и возвращает набор.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		SignupsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "jauth",
			Name:      "signups_total",
			Help:      "Successful account registrations by identity type.",
		}, []string{"type"}),
		LoginsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "jauth",
			Name:      "logins_total",
			Help:      "Successful logins by identity type.",
		}, []string{"type"}),
		RefreshRotationsTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: "jauth",
			Name:      "refresh_rotations_total",
			Help:      "Successful refresh session rotations.",
		}),
		ProviderFailuresTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "jauth",
			Name:      "provider_failures_total",
			Help:      "Third party token verification failures by provider.",
		}, []string{"provider"}),
		TempTokensTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "jauth",
			Name:      "temp_tokens_total",
			Help:      "Issued purpose scoped temporary tokens by purpose.",
		}, []string{"purpose"}),
	}
}
