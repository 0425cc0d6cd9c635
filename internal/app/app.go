// Package app assembles the Sharecode services from configuration.
package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/sharecode/sharecode-backend/internal/auth"
	"github.com/sharecode/sharecode-backend/internal/cache"
	"github.com/sharecode/sharecode-backend/internal/config"
	"github.com/sharecode/sharecode-backend/internal/email"
	"github.com/sharecode/sharecode-backend/internal/event"
	"github.com/sharecode/sharecode-backend/internal/handler"
	"github.com/sharecode/sharecode-backend/internal/metrics"
	"github.com/sharecode/sharecode-backend/internal/notification"
	"github.com/sharecode/sharecode-backend/internal/service"
	"github.com/sharecode/sharecode-backend/internal/storage"
)

// App holds the wired components of one process.
type App struct {
	Config     *config.Config
	Storage    *storage.Storage
	Cache      *cache.ResourceCache
	Metrics    *metrics.Metrics
	Dispatcher *event.Dispatcher
	Tokens     *auth.TokenManager
	Users      *service.UserService
	Snippets   *service.SnippetService
	Commands   *service.Registry

	logger zerolog.Logger
}

// Options overrides collaborators, mainly for tests.
type Options struct {
	// Mail replaces the logging mail client.
	Mail email.Client
}

// New opens storage and builds every service.
func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger, opts Options) (*App, error) {
	store, err := storage.Open(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}

	tokens, err := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.AccessTokenTTL, cfg.Auth.RefreshTokenTTL)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

	resources := cache.NewResourceCache(store.Cache, cfg.Cache.Prefix, logger)
	dispatcher := event.NewDispatcher(m, logger)

	mail := opts.Mail
	if mail == nil {
		mail = email.NewLogClient(cfg.Email.From, logger)
	}
	notification.NewNotifier(mail, resources, notification.Config{
		VerificationTokenTTL: cfg.Auth.VerificationTokenTTL,
		ResetTokenTTL:        cfg.Auth.ResetTokenTTL,
		LinkBaseURL:          cfg.Email.LinkBaseURL,
	}, logger).Register(dispatcher)

	repos := store.Repositories
	users := service.NewUserService(repos.User, repos.Snippet, resources, tokens, dispatcher, service.UserServiceConfig{
		BcryptCost:        cfg.Auth.BcryptCost,
		MaxFailedLogins:   cfg.Auth.MaxFailedLogins,
		FailedLoginWindow: cfg.Auth.FailedLoginWindow,
		IsAdmin:           cfg.Auth.IsAdmin,
	}, logger)
	snippets := service.NewSnippetService(repos.Snippet, repos.Comment, resources, cfg.Cache.SnippetTTL, logger)

	return &App{
		Config:     cfg,
		Storage:    store,
		Cache:      resources,
		Metrics:    m,
		Dispatcher: dispatcher,
		Tokens:     tokens,
		Users:      users,
		Snippets:   snippets,
		Commands:   service.NewCommandRegistry(users, snippets),
		logger:     logger,
	}, nil
}

// Router builds the HTTP router over the services.
func (a *App) Router() *handler.Router {
	return handler.NewRouter(handler.RouterConfig{
		Commands:    a.Commands,
		Users:       a.Users,
		Snippets:    a.Snippets,
		Tokens:      a.Tokens,
		Metrics:     a.Metrics,
		MetricsPath: a.Config.Metrics.Path,
		Health:      a.Storage.DB,
		MaxBodySize: a.Config.Server.MaxBodySize,
		Logger:      a.logger,
	})
}

// Close waits for in-flight event handlers, then closes storage.
func (a *App) Close() error {
	a.Dispatcher.Wait()
	a.logger.Info().Str("component", "app").Msg("event handlers drained")
	return a.Storage.Close()
}
