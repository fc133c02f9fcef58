package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/lgulliver/blogshelf/internal/repository"
	"github.com/lgulliver/blogshelf/pkg/config"
)

// migrate prepares the configured database without starting the server:
// postgres tables are auto-migrated and mongo indexes are created.
func main() {
	var (
		configPath = flag.String("config", "", "Path to a YAML config file (environment is used when empty)")
		timeout    = flag.Duration("timeout", 30*time.Second, "Time allowed for connecting and migrating")
	)
	flag.Parse()

	cfg := config.LoadFromEnv()
	if *configPath != "" {
		loaded, err := config.LoadFromFile(*configPath)
		if err != nil {
			log.Fatal().Err(err).Str("path", *configPath).Msg("Failed to load configuration")
		}
		cfg = loaded
	}

	level, err := zerolog.ParseLevel(cfg.Logging.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if cfg.Logging.Format == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	if err := run(cfg, *timeout); err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Database.Driver).Msg("Migration failed")
	}
	log.Info().Str("driver", cfg.Database.Driver).Msg("Migrations completed successfully")
}

func run(cfg *config.Config, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Redis plays no part in schema preparation
	cfg.Redis.Enabled = false

	repos, err := repository.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer repos.Close()

	return repos.Ping(ctx)
}
