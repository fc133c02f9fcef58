package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/lgulliver/blogshelf/cmd/blog-server/middleware"
	"github.com/lgulliver/blogshelf/cmd/blog-server/routes"
	"github.com/lgulliver/blogshelf/internal/blog"
	"github.com/lgulliver/blogshelf/internal/repository"
	"github.com/lgulliver/blogshelf/internal/storage"
	"github.com/lgulliver/blogshelf/internal/subscription"
	"github.com/lgulliver/blogshelf/internal/web"
	"github.com/lgulliver/blogshelf/pkg/config"
)

// multipart framing allowance on top of the image limit
const multipartOverhead = 1 << 20

func main() {
	configPath := flag.String("config", "", "path to a YAML config file (environment variables override it)")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	setupLogging(cfg.Logging)

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	log.Info().Msg("starting blog server")

	ctx := context.Background()

	// Initialize repositories
	repos, err := repository.Open(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open repositories")
	}
	defer repos.Close()

	// Initialize storage
	storageFactory := storage.NewStorageFactory(&cfg.Storage)
	assetStore, err := storageFactory.CreateStorage()
	if err != nil {
		log.Fatal().Err(err).Str("type", cfg.Storage.Type).Msg("failed to initialize storage")
	}

	// Initialize services
	blogService := blog.NewService(repos.Blogs, assetStore, &cfg.Blog)
	subscriptionService := subscription.NewService(repos.Emails)

	router, err := setupRouter(cfg, blogService, subscriptionService, repos)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to set up router")
	}

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("addr", server.Addr).Str("storage", cfg.Storage.Type).Str("database", cfg.Database.Driver).Msg("listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	// Give outstanding requests 30 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	} else {
		log.Info().Msg("server shutdown complete")
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.LoadFromEnv(), nil
	}
	return config.LoadFromFile(path)
}

func setupLogging(cfg config.LoggingConfig) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	if cfg.Format == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
}

func setupRouter(cfg *config.Config, blogService routes.BlogServiceInterface, subscriptionService routes.SubscriptionServiceInterface, checker routes.HealthChecker) (*gin.Engine, error) {
	// Set Gin mode based on log level
	if zerolog.GlobalLevel() <= zerolog.DebugLevel {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.MaxMultipartMemory = cfg.Storage.MaxUploadBytes + multipartOverhead

	// Middleware
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())
	router.Use(middleware.CORS())

	templates, err := web.Templates()
	if err != nil {
		return nil, err
	}
	router.SetHTMLTemplate(templates)
	router.StaticFS("/static", web.Static())

	// Local uploads are served straight from disk
	if cfg.Storage.Type == config.StorageLocal {
		router.Static(cfg.Storage.PublicPrefix, cfg.Storage.LocalPath)
	}

	routes.HealthRoutes(router, checker)

	api := router.Group("/api")
	api.Use(middleware.BodyLimit(cfg.Storage.MaxUploadBytes + multipartOverhead))
	{
		routes.BlogRoutes(api, blogService)
		routes.EmailRoutes(api, subscriptionService)
	}

	routes.PageRoutes(router, blogService, subscriptionService, cfg.Storage.MaxUploadBytes)

	return router, nil
}
