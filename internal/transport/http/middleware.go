package http

import (
	"context"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"jauth/internal/pkg/log"
)

// statusWriter запоминает записанный статус для итоговой логзаписи.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// RequestLogger обогащает контекст логгером с request_id/method/path/peer
// и пишет одну итоговую строку уровня Info на запрос.
//
// request_id берётся из входящего X-Request-Id, иначе генерируется UUID.
// Чувствительные данные (тела, заголовки авторизации) в лог не попадают.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	if base == nil {
		base = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			rid := r.Header.Get("X-Request-Id")
			if rid == "" {
				rid = uuid.NewString()
			}

			l := base.With(
				slog.String("request_id", rid),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("peer", r.RemoteAddr),
			)

			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			w.Header().Set("X-Request-Id", rid)

			next.ServeHTTP(sw, r.WithContext(log.Into(r.Context(), l)))

			l.Info("http",
				slog.Int("status", sw.status),
				slog.Duration("dur", time.Since(start)),
			)
		})
	}
}

// Recover перехватывает паники обработчиков: пишет Error со стеком и
// отвечает клиенту нейтральным 500 без внутренних деталей.
func Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.From(r.Context()).Error("panic_recovered",
					slog.String("path", r.URL.Path),
					slog.Any("panic", rec),
					slog.String("stack", string(debug.Stack())),
				)

				respondReason(w, http.StatusInternalServerError, "internal server error")
			}
		}()

		next.ServeHTTP(w, r)
	})
}

// Timeout ограничивает длительность обработки запроса дедлайном контекста.
// Нулевой таймаут отключает ограничение.
func Timeout(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if d <= 0 {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
