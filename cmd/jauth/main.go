package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"jauth/internal/callback"
	"jauth/internal/config"
	"jauth/internal/database"
	"jauth/internal/metrics"
	"jauth/internal/service"
	"jauth/internal/session"
	"jauth/internal/storage/postgres"
	"jauth/internal/thirdparty"
	transport "jauth/internal/transport/http"
)

// Константы для определения окружения.
const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "path to config file")
	flag.Parse()

	cfg := config.MustLoad(configPath)

	log := setupLogger(cfg.Env)
	slog.SetDefault(log)
	log.Info("starting application", "env", cfg.Env)

	// Корневой контекст по сигналам.
	rootCtx, rootCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer rootCancel()

	// Миграции применяются на старте: схема всегда соответствует бинарю.
	if err := database.RunMigrations(cfg.DB.DatabaseURL); err != nil {
		log.Error("migrations_failed", slog.String("err", err.Error()))
		os.Exit(1)
	}
	log.Info("migrations_applied")

	// Подключение к БД c таймаутом.
	dbCtx, dbCancel := context.WithTimeout(rootCtx, 10*time.Second)
	str, err := postgres.New(dbCtx, cfg.DB.DatabaseURL)
	dbCancel()
	if err != nil {
		log.Error("postgres_connect_failed", slog.String("err", err.Error()))
		os.Exit(1)
	}
	defer str.Close()
	log.Info("postgres_connected")

	// Бэкенд refresh-сессий: Redis при заданном URL, иначе строки PostgreSQL.
	sessions, pgSessions, err := setupSessions(rootCtx, cfg, str)
	if err != nil {
		log.Error("session_store_failed", slog.String("err", err.Error()))
		os.Exit(1)
	}
	defer func() { _ = sessions.Close() }()

	// Метрики: собственный регистратор + стандартные коллекторы.
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	// Сервис.
	srvc := service.New(str, sessions, thirdparty.NewRegistry(nil), cfg.Auth)
	srvc.SetMetrics(m)
	if len(cfg.Callbacks) > 0 {
		srvc.SetNotifier(callback.New(cfg.Callbacks, log))
	}
	log.Info("service_initialized")

	// Фоновая очистка просроченных refresh-сессий (только строчный бэкенд:
	// у Redis срок обеспечивает нативный TTL).
	if pgSessions != nil {
		startRefreshJanitor(rootCtx, pgSessions, log, 30*time.Minute)
	}

	handler := transport.NewRouter(srvc, log, cfg.Timeouts.Service,
		promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	httpAddr := cfg.HTTP.Addr()
	httpSrv := &http.Server{
		Addr:              httpAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErrCh := make(chan error, 1)
	go func() {
		log.Info("http_listen_start", slog.String("addr", httpAddr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErrCh <- err
		}
		close(serveErrCh)
	}()

	// Ожидание сигнала завершения или фатальной ошибки сервера.
	select {
	case <-rootCtx.Done():
		log.Info("shutdown_requested")
	case err := <-serveErrCh:
		if err != nil {
			log.Error("http_serve_failed", slog.String("err", err.Error()))
		}
	}

	// Graceful stop с таймаутом.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http_force_stop", slog.String("err", err.Error()))
	}

	log.Info("service_stopped")
}

// setupSessions выбирает бэкенд refresh-сессий по конфигурации.
// Второе значение не nil только для строчного бэкенда — его обслуживает janitor.
func setupSessions(ctx context.Context, cfg *config.Config, str *postgres.Storage) (session.Store, *session.PostgresStore, error) {
	if cfg.Redis.RedisURL != "" {
		redisCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()

		store, err := session.NewRedisStore(redisCtx, cfg.Redis.RedisURL, "", cfg.Auth.RefreshTokenTTL)
		if err != nil {
			return nil, nil, err
		}

		return store, nil, nil
	}

	store := session.NewPostgresStore(str.Pool(), cfg.Auth.RefreshTokenTTL)
	return store, store, nil
}

// setupLogger настраивает slog по окружению.
func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	default:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	}

	return log
}

// startRefreshJanitor запускает фоновую задачу, которая периодически удаляет
// просроченные refresh-сессии из строчного бэкенда.
func startRefreshJanitor(ctx context.Context, store *session.PostgresStore, log *slog.Logger, period time.Duration) {
	if period <= 0 {
		return
	}

	go func() {
		t := time.NewTicker(period)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				if err := store.DeleteExpired(ctx, time.Now().UTC()); err != nil {
					log.Error("refresh_janitor_failed", slog.String("err", err.Error()))
				}
			}
		}
	}()
}
