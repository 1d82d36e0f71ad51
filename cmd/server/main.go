package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/nekogravitycat/cleaner-booking-backend/internal/app"
	"github.com/nekogravitycat/cleaner-booking-backend/internal/config"
	"github.com/nekogravitycat/cleaner-booking-backend/internal/db"
	"github.com/nekogravitycat/cleaner-booking-backend/internal/events"
	"github.com/nekogravitycat/cleaner-booking-backend/internal/logger"
	"github.com/nekogravitycat/cleaner-booking-backend/internal/realtime"
	"github.com/nekogravitycat/cleaner-booking-backend/internal/user"
)

func main() {
	// For receiving Ctrl+C / SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	zl, err := logger.New(cfg.IsProduction, cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	// Connect DB, or load the seed directory for the memory backend
	var (
		pool      *pgxpool.Pool
		seedUsers []*user.User
	)
	if cfg.StorageBackend == config.StoragePostgres {
		pool, err = db.NewPool(ctx, cfg.DBDSN, cfg.DBMaxConns)
		if err != nil {
			zl.Fatal("failed to connect to db", zap.Error(err))
		}
		defer pool.Close()
	} else {
		seedUsers, err = user.LoadSeedFile(cfg.SeedUsersFile)
		if err != nil {
			zl.Fatal("failed to load seed users", zap.Error(err))
		}
		zl.Warn("using in-memory storage, data is lost on restart",
			zap.String("seed_file", cfg.SeedUsersFile), zap.Int("users", len(seedUsers)))
	}

	// Redis relay for multi-instance live events
	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient, err = realtime.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			zl.Fatal("failed to connect to redis", zap.Error(err))
		}
		defer redisClient.Close()
	}

	// Integration events
	publisher := events.NewNopPublisher()
	if cfg.RabbitMQURL != "" {
		publisher, err = events.NewAMQPPublisher(cfg.RabbitMQURL, cfg.RabbitMQExchange)
		if err != nil {
			zl.Fatal("failed to connect to rabbitmq", zap.Error(err))
		}
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			zl.Warn("failed to close event publisher", zap.Error(err))
		}
	}()

	container := app.NewContainer(app.Config{
		IsProduction:     cfg.IsProduction,
		ProdOrigins:      cfg.ProdOrigins,
		Log:              zl,
		DBPool:           pool,
		SeedUsers:        seedUsers,
		JWTSecret:        cfg.JWTSecret,
		JWTTTL:           cfg.JWTAccessTokenTTL,
		Redis:            redisClient,
		Publisher:        publisher,
		RateLimitPerMin:  cfg.RateLimitPerMin,
		RateLimitBurst:   cfg.RateLimitBurst,
		WSAllowedOrigins: cfg.WSAllowedOrigins,
	})

	if container.Relay != nil {
		go func() {
			if err := container.Relay.Run(ctx); err != nil {
				zl.Error("live event relay stopped", zap.Error(err))
			}
		}()
	}

	// Use http.Server for graceful shutdown
	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           container.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Run server in separate goroutine
	go func() {
		zl.Info("server running", zap.String("addr", cfg.HTTPAddr), zap.String("storage", cfg.StorageBackend))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("server error", zap.Error(err))
		}
	}()

	// Wait for Ctrl+C
	<-ctx.Done()
	zl.Info("shutdown signal received")

	// Create a shutdown context with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Shutdown HTTP server. Hijacked websocket connections are not tracked by
	// Shutdown; they close when the process exits.
	if err := server.Shutdown(shutdownCtx); err != nil {
		zl.Warn("server forced to shutdown", zap.Error(err))
	}

	zl.Info("server exited gracefully")
}
