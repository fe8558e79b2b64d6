package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"portfolioParadise/internal/api"
	"portfolioParadise/internal/auth"
	"portfolioParadise/internal/config"
	"portfolioParadise/internal/database"
	"portfolioParadise/internal/notify"
	"portfolioParadise/internal/portfolio"
	"portfolioParadise/internal/sanitize"
	"portfolioParadise/internal/storage"
	"portfolioParadise/internal/tasks"
)

func main() {
	cfg := config.MustLoad()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	ctx := context.Background()

	db, err := database.InitDatabase(cfg.Database)
	if err != nil {
		log.Fatalf("init database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("auto migrate: %v", err)
	}
	logger.Info("database ready",
		slog.String("host", cfg.Database.Host),
		slog.Int("port", cfg.Database.Port),
		slog.String("db", cfg.Database.Name),
	)

	storageClient, err := storage.NewClient(ctx, cfg.MinIO)
	if err != nil {
		log.Fatalf("init storage client: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr()})
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error("close redis client failed", slog.Any("error", err))
		}
	}()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatalf("ping redis: %v", err)
	}

	asynqClient := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.Redis.Addr()})
	defer asynqClient.Close()

	authService, err := loadAuthService(cfg.Auth)
	if err != nil {
		log.Fatalf("init auth service: %v", err)
	}

	svc, err := portfolio.NewService(portfolio.Options{
		Store:           database.NewStore(db),
		Blobs:           storageClient,
		Purger:          tasks.NewEnqueuer(asynqClient, logger),
		Notify:          notify.NewPublisher(redisClient),
		Hasher:          auth.NewBcryptHasher(),
		Sanitizer:       sanitize.NewHTML(),
		Logger:          logger,
		Timeout:         cfg.Share.StoreTimeout,
		MaxFileSize:     cfg.Uploads.MaxBytes,
		MaxFilesPerPage: cfg.Uploads.MaxFilesPerPage,
	})
	if err != nil {
		log.Fatalf("init portfolio service: %v", err)
	}

	if n, err := svc.SeedTemplates(ctx); err != nil {
		log.Fatalf("seed page templates: %v", err)
	} else if n > 0 {
		logger.Info("page templates seeded", slog.Int("count", n))
	}

	router := api.NewRouter(logger)
	api.RegisterRoutes(router, api.Deps{
		Service:                 svc,
		Validator:               authService,
		Redis:                   redisClient,
		Logger:                  logger,
		ClamdAddr:               cfg.Uploads.ClamdAddr,
		MaxUploadBytes:          cfg.Uploads.MaxBytes,
		PasswordAttemptsPerHour: cfg.Share.PasswordAttemptsPerHour,
		AllowedOrigins:          cfg.API.AllowedOrigins,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.API.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("api listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("failed to start api server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down api server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("api server forced to shutdown", slog.Any("error", err))
	}
}

func loadAuthService(cfg config.AuthConfig) (*auth.AuthService, error) {
	publicPEM, err := os.ReadFile(cfg.PublicKeyPath)
	if err != nil {
		return nil, fmt.Errorf("read public key: %w", err)
	}
	var privatePEM []byte
	if cfg.PrivateKeyPath != "" {
		if privatePEM, err = os.ReadFile(cfg.PrivateKeyPath); err != nil {
			return nil, fmt.Errorf("read private key: %w", err)
		}
	}
	return auth.NewAuthService(publicPEM, privatePEM, cfg.TokenTTL)
}
