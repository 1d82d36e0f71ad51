package app

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/nekogravitycat/cleaner-booking-backend/internal/api"
	"github.com/nekogravitycat/cleaner-booking-backend/internal/auth"
	"github.com/nekogravitycat/cleaner-booking-backend/internal/booking"
	"github.com/nekogravitycat/cleaner-booking-backend/internal/events"
	"github.com/nekogravitycat/cleaner-booking-backend/internal/notification"
	"github.com/nekogravitycat/cleaner-booking-backend/internal/realtime"
	"github.com/nekogravitycat/cleaner-booking-backend/internal/user"
)

// Config holds the dependencies and settings required to start the application.
type Config struct {
	IsProduction bool
	ProdOrigins  string
	Log          *zap.Logger

	// DBPool selects the postgres stores. Nil means in-memory stores seeded with SeedUsers.
	DBPool    *pgxpool.Pool
	SeedUsers []*user.User

	JWTSecret string
	JWTTTL    time.Duration

	// Redis is optional. When set, live events fan out through it to every instance.
	Redis        *redis.Client
	RedisChannel string

	Publisher events.Publisher

	RateLimitPerMin  int
	RateLimitBurst   int
	WSAllowedOrigins []string
}

// Container holds the initialized components that are needed externally.
type Container struct {
	Router         *gin.Engine
	JWTManager     *auth.JWTManager
	Hub            *realtime.Hub
	Relay          *realtime.RedisRelay // nil without Redis
	BookingService booking.Service
}

// NewContainer initializes all modules and returns the container.
func NewContainer(cfg Config) *Container {
	log := cfg.Log
	if log == nil {
		log = zap.NewNop()
	}

	// Init Components
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTTTL)

	// Storage
	var (
		userRepo         user.Repository
		notificationRepo notification.Repository
		bookingRepo      booking.Repository
	)
	if cfg.DBPool != nil {
		userRepo = user.NewPgxRepository(cfg.DBPool)
		notificationRepo = notification.NewPgxRepository(cfg.DBPool)
		bookingRepo = booking.NewPgxRepository(cfg.DBPool)
	} else {
		userRepo = user.NewMemoryRepository(cfg.SeedUsers...)
		notificationRepo = notification.NewMemoryRepository()
		bookingRepo = booking.NewMemoryRepository()
	}

	// Live sessions
	hub := realtime.NewHub(log.Named("realtime"))
	var (
		broadcaster realtime.Broadcaster = hub
		relay       *realtime.RedisRelay
	)
	if cfg.Redis != nil {
		relay = realtime.NewRedisRelay(cfg.Redis, cfg.RedisChannel, hub, log.Named("relay"))
		broadcaster = relay
	}

	// User Module
	userService := user.NewService(userRepo)

	// Notification Module
	notificationService := notification.NewService(notificationRepo)

	// Booking Module
	bookingService := booking.NewService(
		bookingRepo,
		userService,
		notificationService,
		broadcaster,
		cfg.Publisher,
		log.Named("booking"),
	)

	// Health reflects the database only; Redis and RabbitMQ are best-effort.
	var health func(ctx context.Context) error
	if cfg.DBPool != nil {
		health = cfg.DBPool.Ping
	}

	// API Router Config
	routerParams := api.Config{
		IsProduction:        cfg.IsProduction,
		ProdOrigins:         cfg.ProdOrigins,
		Log:                 log.Named("http"),
		JWTManager:          jwtManager,
		UserService:         userService,
		BookingService:      bookingService,
		NotificationService: notificationService,
		Hub:                 hub,
		WSAllowedOrigins:    cfg.WSAllowedOrigins,
		RateLimitPerMin:     cfg.RateLimitPerMin,
		RateLimitBurst:      cfg.RateLimitBurst,
		HealthCheck:         health,
	}

	// Router
	router := api.NewRouter(routerParams)

	return &Container{
		Router:         router,
		JWTManager:     jwtManager,
		Hub:            hub,
		Relay:          relay,
		BookingService: bookingService,
	}
}
