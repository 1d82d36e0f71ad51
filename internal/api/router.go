package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nekogravitycat/cleaner-booking-backend/internal/auth"
	"github.com/nekogravitycat/cleaner-booking-backend/internal/booking"
	bookingHttp "github.com/nekogravitycat/cleaner-booking-backend/internal/booking/http"
	"github.com/nekogravitycat/cleaner-booking-backend/internal/notification"
	notificationHttp "github.com/nekogravitycat/cleaner-booking-backend/internal/notification/http"
	"github.com/nekogravitycat/cleaner-booking-backend/internal/realtime"
	realtimeHttp "github.com/nekogravitycat/cleaner-booking-backend/internal/realtime/http"
	"github.com/nekogravitycat/cleaner-booking-backend/internal/user"
	userHttp "github.com/nekogravitycat/cleaner-booking-backend/internal/user/http"
)

// Config holds everything the router needs.
type Config struct {
	IsProduction bool
	ProdOrigins  string
	Log          *zap.Logger

	JWTManager          *auth.JWTManager
	UserService         user.Service
	BookingService      booking.Service
	NotificationService notification.Service
	Hub                 *realtime.Hub
	WSAllowedOrigins    []string

	RateLimitPerMin int
	RateLimitBurst  int

	// HealthCheck reports whether backing stores are reachable. Nil means always healthy.
	HealthCheck func(ctx context.Context) error
}

// NewRouter initializes the HTTP router engine.
// It is responsible for assembling middleware (CORS, Logger, Auth) and registering routes for various modules.
func NewRouter(cfg Config) *gin.Engine {
	if cfg.IsProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global Middleware:
	// - RequestLogger: one structured line per request.
	// - Recovery: Captures panics to prevent server crashes and returns a 500 error.
	r.Use(RequestLogger(cfg.Log), gin.Recovery())

	// Configure CORS (Cross-Origin Resource Sharing).
	corsConfig := cors.DefaultConfig()
	if cfg.IsProduction && cfg.ProdOrigins != "" {
		corsConfig.AllowOrigins = splitOrigins(cfg.ProdOrigins)
	} else {
		corsConfig.AllowOrigins = []string{
			"http://localhost:3000", // Web app
			"http://localhost:8081", // Swagger
		}
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	r.Use(cors.New(corsConfig))

	r.GET("/healthz", healthHandler(cfg.HealthCheck))

	// authMiddleware: Validates if the request contains a valid JWT.
	authMiddleware := auth.AuthRequired(cfg.JWTManager)
	writeLimiter := NewRateLimiter(cfg.RateLimitPerMin, cfg.RateLimitBurst, cfg.Log).Middleware()

	// Initialize HTTP Handlers for each module (injecting Service dependencies).
	userHandler := userHttp.NewHandler(cfg.UserService)
	bookingHandler := bookingHttp.NewHandler(cfg.BookingService)
	notificationHandler := notificationHttp.NewHandler(cfg.NotificationService)
	realtimeHandler := realtimeHttp.NewHandler(cfg.Hub, cfg.WSAllowedOrigins, cfg.Log)

	// Register API routes under /v1
	v1 := r.Group("/v1")
	{
		userHttp.RegisterRoutes(v1, userHandler, authMiddleware)
		bookingHttp.RegisterRoutes(v1, bookingHandler, authMiddleware, writeLimiter)
		notificationHttp.RegisterRoutes(v1, notificationHandler, authMiddleware)
		realtimeHttp.RegisterRoutes(v1, realtimeHandler, authMiddleware)
	}

	return r
}

func healthHandler(check func(ctx context.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		if check != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := check(ctx); err != nil {
				_ = c.Error(err)
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

func splitOrigins(s string) []string {
	var out []string
	for _, o := range strings.Split(s, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
