package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/lgulliver/blogshelf/internal/common"
	"github.com/lgulliver/blogshelf/pkg/config"
)

// Repositories bundles the repositories and the connections behind them.
// The process entry point owns it and must call Close on shutdown.
type Repositories struct {
	Blogs  BlogRepository
	Emails EmailRepository

	pingers []func(ctx context.Context) error
	closers []func() error
}

// Open connects to the configured database driver and, when enabled,
// puts a Redis cache in front of the blog repository
func Open(ctx context.Context, cfg *config.Config) (*Repositories, error) {
	repos := &Repositories{}

	switch cfg.Database.Driver {
	case config.DriverMongo:
		mdb, err := common.NewMongoDatabase(ctx, &cfg.Database)
		if err != nil {
			return nil, err
		}
		repos.addHandle(mdb.Ping, mdb.Close)

		blogs := NewMongoBlogRepository(mdb.DB)
		if err := blogs.EnsureIndexes(ctx); err != nil {
			repos.Close()
			return nil, err
		}
		repos.Blogs = blogs
		repos.Emails = NewMongoEmailRepository(mdb.DB)

	case config.DriverPostgres:
		db, err := common.NewDatabase(&cfg.Database)
		if err != nil {
			return nil, err
		}
		repos.addHandle(db.Ping, db.Close)

		if err := db.Migrate(); err != nil {
			repos.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		repos.Blogs = NewGormBlogRepository(db.DB)
		repos.Emails = NewGormEmailRepository(db.DB)

	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Database.Driver)
	}

	if cfg.Redis.Enabled {
		cache, err := common.NewCache(&cfg.Redis)
		if err != nil {
			repos.Close()
			return nil, err
		}
		repos.addHandle(cache.Ping, cache.Close)
		repos.Blogs = NewCachedBlogRepository(repos.Blogs, cache, cfg.Redis.TTL)
		log.Info().Str("addr", cfg.Redis.RedisAddr()).Dur("ttl", cfg.Redis.TTL).Msg("blog cache enabled")
	}

	log.Info().Str("driver", cfg.Database.Driver).Msg("repositories opened")
	return repos, nil
}

func (r *Repositories) addHandle(ping func(ctx context.Context) error, closeFn func() error) {
	r.pingers = append(r.pingers, ping)
	r.closers = append(r.closers, closeFn)
}

// Ping checks every underlying connection
func (r *Repositories) Ping(ctx context.Context) error {
	for _, ping := range r.pingers {
		if err := ping(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Close releases every underlying connection in reverse order of opening
func (r *Repositories) Close() error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	r.closers = nil
	return errors.Join(errs...)
}
