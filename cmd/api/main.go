package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/uptrace/bun"

	"github.com/maybewheel/maybewheel/internal/auth"
	"github.com/maybewheel/maybewheel/internal/config"
	"github.com/maybewheel/maybewheel/internal/database"
	"github.com/maybewheel/maybewheel/internal/decision"
	httpServer "github.com/maybewheel/maybewheel/internal/http"
	"github.com/maybewheel/maybewheel/internal/logging"
	"github.com/maybewheel/maybewheel/internal/poll"
	"github.com/maybewheel/maybewheel/internal/session"
	"github.com/maybewheel/maybewheel/internal/user"
)

// @title           Maybewheel API
// @version         1.0
// @description     Decision-assistance API: session authentication, community polls, and decision history.

// @host      localhost:8080
// @BasePath  /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the session token.

func main() {
	if err := run(); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := logging.NewLogger(cfg.Server.IsDevelopment())
	logger.Info("starting application",
		"env", cfg.Server.Env,
		"port", cfg.Server.Port,
	)

	db, err := initDB(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	redisClient, err := initRedis(cfg.Redis)
	if err != nil {
		return fmt.Errorf("failed to initialize redis: %w", err)
	}
	defer redisClient.Close()

	// Credential store
	userRepo := user.NewRepository(db)
	sessionRepo := session.NewRepository(db)

	// Auth core
	hasher := auth.NewPasswordHasher(cfg.Auth.BcryptCost)
	authService := auth.NewService(userRepo, sessionRepo, hasher, logger, cfg.Auth.SessionTTL)
	authHandler := auth.NewHandler(authService, logger)
	authMiddleware := auth.NewMiddleware(authService, logger)

	// Community polls
	pollRepo := poll.NewRepository(db)
	voteGuard := poll.NewRedisVoteGuard(redisClient)
	pollService := poll.NewService(pollRepo, voteGuard, logger)
	pollHandler := poll.NewHandler(pollService, logger)

	// Decision history
	decisionRepo := decision.NewRepository(db)
	decisionHandler := decision.NewHandler(decisionRepo, logger)

	router := httpServer.NewRouter(cfg, authHandler, authMiddleware, pollHandler, decisionHandler, logger)

	server := httpServer.NewServer(
		":"+cfg.Server.Port,
		router,
		cfg.Server.ReadTimeout,
		cfg.Server.WriteTimeout,
		logger,
	)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- server.Start()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		logger.Info("received signal", "signal", sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// initDB initializes the database connection and returns a Bun DB instance
func initDB(cfg config.DatabaseConfig) (*bun.DB, error) {
	sqlDB, err := sql.Open("postgres", cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)

	return database.NewBunDB(sqlDB), nil
}

// initRedis initializes the Redis connection and returns a Redis client
func initRedis(cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return client, nil
}
