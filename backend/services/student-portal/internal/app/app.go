package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	libredis "tuitionpay/backend/libs/redis"
	"tuitionpay/backend/services/student-portal/internal/clients"
	"tuitionpay/backend/services/student-portal/internal/config"
	"tuitionpay/backend/services/student-portal/internal/db"
	httpserver "tuitionpay/backend/services/student-portal/internal/http"
	"tuitionpay/backend/services/student-portal/internal/http/handlers"
	"tuitionpay/backend/services/student-portal/internal/http/middleware"
	"tuitionpay/backend/services/student-portal/internal/notify"
	"tuitionpay/backend/services/student-portal/internal/service"
	"tuitionpay/backend/services/student-portal/internal/storage"
	"tuitionpay/backend/services/student-portal/internal/store"
)

// App wires student portal dependencies for one client profile.
type App struct {
	cfg     *config.Config
	kv      storage.KV
	store   *store.Store
	service *service.PortalService
	logger  *zap.Logger
	closers []func() error
}

// New constructs application graph. Nothing is read from storage until Initialize.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	a := &App{cfg: cfg, logger: logger}

	kv, err := a.openStorage(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.kv = kv

	httpClient := clients.NewDefaultHTTPClient(cfg.HTTPTimeout())
	payments := clients.NewPaymentClient(cfg.API.BaseURL, httpClient)
	admin := clients.NewAdminClient(cfg.API.BaseURL, httpClient)

	a.store = store.New(kv, payments, logger.Named("store"))
	a.service = service.NewPortalService(a.store, payments, admin, cfg.WatchInterval(), logger.Named("portal"))
	return a, nil
}

func (a *App) openStorage(ctx context.Context) (storage.KV, error) {
	cfg := a.cfg
	switch cfg.Storage.Driver {
	case config.DriverMemory:
		return storage.NewMemoryKV(), nil
	case config.DriverFile:
		dir, err := cfg.StorageDir()
		if err != nil {
			return nil, err
		}
		kv, err := storage.NewFileKV(dir, cfg.Profile, storage.NewSealer(cfg.Storage.File.Passphrase))
		if err != nil {
			return nil, err
		}
		a.logger.Debug("file storage", zap.String("path", kv.Path()))
		return kv, nil
	case config.DriverRedis:
		client, err := libredis.NewRedisClient(ctx, libredis.Options{
			Addr:     cfg.Storage.Redis.Addr,
			Password: cfg.Storage.Redis.Password,
			DB:       cfg.Storage.Redis.DB,
		})
		if err != nil {
			return nil, fmt.Errorf("app: connect redis: %w", err)
		}
		a.closers = append(a.closers, client.Close)
		return storage.NewRedisKV(client, cfg.Profile, cfg.RedisTTL()), nil
	case config.DriverPostgres:
		sqlDB, err := db.NewPostgres(ctx, cfg.Storage.Postgres.DSN)
		if err != nil {
			return nil, fmt.Errorf("app: connect postgres: %w", err)
		}
		a.closers = append(a.closers, sqlDB.Close)
		kv := storage.NewPostgresKV(sqlDB, cfg.Profile)
		if err := kv.EnsureSchema(ctx); err != nil {
			return nil, fmt.Errorf("app: ensure schema: %w", err)
		}
		return kv, nil
	default:
		return nil, fmt.Errorf("app: unknown storage driver %q", cfg.Storage.Driver)
	}
}

// Service returns the portal service.
func (a *App) Service() *service.PortalService {
	return a.service
}

// Initialize restores the persisted session. A corrupted or expired session is
// cleared and reported, but leaves the app usable.
func (a *App) Initialize(ctx context.Context) error {
	return a.store.Initialize(ctx)
}

// Serve runs the local JSON API and, when configured, the notification listener
// until ctx is cancelled. The session is restored in the background; routes answer
// 503 until that has finished.
func (a *App) Serve(ctx context.Context) error {
	logger := a.logger
	st := a.store

	router := httpserver.NewRouter(httpserver.RouterDeps{
		SessionHandlers: handlers.NewSessionHandlers(a.service, logger),
		CartHandlers:    handlers.NewCartHandlers(a.service, logger),
		PaymentHandlers: handlers.NewPaymentHandlers(a.service, logger),
		AdminHandlers:   handlers.NewAdminHandlers(a.service, logger),
		HealthHandler:   handlers.NewHealthHandler(st.Loading),
		Loading:         st.Loading,
	})
	server := httpserver.NewServer(
		a.cfg.HTTPAddress(),
		router,
		logger,
		middleware.RecoveryMiddleware(logger),
		middleware.LoggingMiddleware(logger),
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Run(ctx)
	})
	g.Go(func() error {
		if err := a.Initialize(ctx); err != nil {
			if errors.Is(err, store.ErrSessionCorrupted) || errors.Is(err, store.ErrSessionExpired) {
				logger.Warn("starting without a session", zap.Error(err))
			} else {
				return err
			}
		}
		return a.listen(ctx)
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (a *App) listen(ctx context.Context) error {
	listener := notify.NewListener(a.cfg.Notify.URL, a.store, a.cfg.NotifyBackoff(), a.logger.Named("notify"))
	if !listener.Enabled() {
		return nil
	}
	return listener.Run(ctx)
}

// Close releases acquired resources.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("failed to close resource", zap.Error(err))
		}
	}
	a.closers = nil
}
