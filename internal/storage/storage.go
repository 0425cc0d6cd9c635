// Package storage opens the persistence and cache backends selected by
// configuration.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/sharecode/sharecode-backend/internal/cache/memory"
	"github.com/sharecode/sharecode-backend/internal/cache/redis"
	"github.com/sharecode/sharecode-backend/internal/config"
	"github.com/sharecode/sharecode-backend/internal/repository"
	"github.com/sharecode/sharecode-backend/internal/repository/postgres"
	"github.com/sharecode/sharecode-backend/internal/repository/sqlite"
)

// memorySweepInterval is how often the in-process cache drops expired items.
const memorySweepInterval = time.Minute

// Storage bundles the repositories with the handles that must be closed.
type Storage struct {
	Repositories repository.Repositories

	// DB answers health checks.
	DB repository.DatabaseHealth

	Cache repository.Cache

	closers []func() error
}

// Open connects the database driver named in cfg.Database and the cache.
// Embedded SQLite databases are migrated on open; PostgreSQL schemas are
// managed by sharecode-migrate.
func Open(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*Storage, error) {
	s := &Storage{}

	if err := s.openDatabase(ctx, cfg.Database, logger); err != nil {
		return nil, err
	}
	if err := s.openCache(ctx, cfg.Redis, logger); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

func (s *Storage) openDatabase(ctx context.Context, cfg config.DatabaseConfig, logger zerolog.Logger) error {
	log := logger.With().Str("component", "database").Str("driver", cfg.Driver).Logger()

	switch cfg.Driver {
	case "postgres":
		db, err := postgres.NewDB(ctx, cfg, log)
		if err != nil {
			return err
		}
		s.DB = db
		s.closers = append(s.closers, db.Close)
		s.Repositories = repository.Repositories{
			User:    postgres.NewUserRepository(db),
			Snippet: postgres.NewSnippetRepository(db),
			Comment: postgres.NewCommentRepository(db),
		}

	case "sqlite":
		db, err := sqlite.NewDB(ctx, sqlite.ConfigFrom(cfg), log)
		if err != nil {
			return err
		}
		s.DB = db
		s.closers = append(s.closers, db.Close)
		if err := db.Migrate(ctx); err != nil {
			_ = s.Close()
			return fmt.Errorf("failed to migrate sqlite database: %w", err)
		}
		s.Repositories = repository.Repositories{
			User:    sqlite.NewUserRepository(db),
			Snippet: sqlite.NewSnippetRepository(db),
			Comment: sqlite.NewCommentRepository(db),
		}

	default:
		return fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
	return nil
}

func (s *Storage) openCache(ctx context.Context, cfg config.RedisConfig, logger zerolog.Logger) error {
	log := logger.With().Str("component", "cache").Logger()

	if !cfg.Enabled {
		c := memory.NewCache(memorySweepInterval)
		s.Cache = c
		s.closers = append(s.closers, c.Close)
		log.Info().Msg("redis disabled, using in-process cache")
		return nil
	}

	c, err := redis.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	s.Cache = c
	s.closers = append(s.closers, c.Close)
	return nil
}

// Close releases every opened backend in reverse order.
func (s *Storage) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}
