// Package app assembles the client from configuration: gateway, session
// store, media uploader and the services on top of them. Both front ends start
// here.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/timmy/crafto/internal/config"
	"github.com/timmy/crafto/internal/gateway"
	"github.com/timmy/crafto/internal/logger"
	"github.com/timmy/crafto/internal/media"
	"github.com/timmy/crafto/internal/repository"
	"github.com/timmy/crafto/internal/service"
	"github.com/timmy/crafto/internal/session"
	"github.com/timmy/crafto/internal/storage"
)

// App holds the wired components.
type App struct {
	Config     *config.Config
	Gateway    *gateway.Client
	Store      session.Store
	Uploader   service.MediaUploader
	Auth       *service.AuthService
	Workspaces *service.Workspaces
	Logger     *logger.Logger

	closers []func() error
}

// New wires every component selected by cfg.
// Parameters:
//   - ctx: used for startup checks (redis ping, bucket check).
//   - cfg: loaded configuration.
//   - log: base logger.
//
// Returns:
//   - *App: wired application; call Close when done.
//   - error: non-nil if any backend cannot be initialized.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (*App, error) {
	if log == nil {
		log = logger.GetDefault()
	}
	a := &App{Config: cfg, Logger: log}

	client, err := gateway.New(&gateway.Config{
		BaseURL:        cfg.API.BaseURL,
		UploadEndpoint: cfg.Upload.Endpoint,
		UploadField:    cfg.Upload.FormField,
		UploadShape:    gateway.UploadShape(cfg.Upload.ResponseShape),
		Timeout:        cfg.API.Timeout,
		UserAgent:      cfg.API.UserAgent,
	})
	if err != nil {
		return nil, err
	}
	a.Gateway = client

	if a.Store, err = a.openStore(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}
	if a.Uploader, err = a.openUploader(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}

	a.Auth = service.NewAuthService(client, log)
	a.Workspaces = service.NewWorkspaces(client, client, a.Uploader, service.WorkspaceConfig{
		PageSize:     cfg.Feed.PageSize,
		SearchAuthor: cfg.Feed.SearchAuthor,
		Upload: media.Limits{
			MaxBytes:  cfg.Upload.MaxBytes,
			MaxPixels: cfg.Upload.MaxPixels,
		},
	})

	log.WithFields(logger.Fields{
		"api":             cfg.API.BaseURL,
		"session_backend": cfg.Session.Backend,
		"upload_backend":  cfg.Upload.Backend,
	}).Debug("Client wired")
	return a, nil
}

func (a *App) openStore(ctx context.Context) (session.Store, error) {
	cfg := a.Config
	switch cfg.Session.Backend {
	case "memory":
		return session.NewMemoryStore(), nil
	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		a.OnClose(rdb.Close)
		if err := rdb.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Redis.Addr, err)
		}
		return session.NewRedisStore(rdb, cfg.Redis.KeyPrefix, cfg.Redis.TTL), nil
	default:
		db, err := repository.InitDB(&cfg.Database)
		if err != nil {
			return nil, err
		}
		if sqlDB, err := db.DB(); err == nil {
			a.OnClose(sqlDB.Close)
		}
		return repository.NewCredentialRepository(db), nil
	}
}

func (a *App) openUploader(ctx context.Context) (service.MediaUploader, error) {
	cfg := a.Config
	if cfg.Upload.Backend != "s3" {
		return a.Gateway, nil
	}
	store, err := storage.NewStorage(&cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	if err := store.EnsureBucket(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure storage bucket: %w", err)
	}
	return storage.NewMediaHost(store, cfg.Storage.Prefix), nil
}

// Session binds the configured store to key.
func (a *App) Session(key string) *session.Session {
	return session.New(a.Store, key)
}

// OnClose registers fn to run on Close. Functions run in reverse order.
func (a *App) OnClose(fn func() error) {
	a.closers = append(a.closers, fn)
}

// Close releases database and redis connections. Calling it again is a no-op.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
