package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/comitanigiacomo/kanso-tracker/docs"
	"github.com/comitanigiacomo/kanso-tracker/internal/adapters/handler/http/middleware"
)

// Pinger is satisfied by *sqlx.DB and *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// BreakerStater reports a circuit breaker state for /health.
type BreakerStater interface {
	State() string
}

type RateLimitOptions struct {
	Enabled  bool
	Requests int
	Window   time.Duration
}

type RouterDependencies struct {
	AuthHandler      *AuthHandler
	HabitHandler     *HabitHandler
	CheckInHandler   *CheckInHandler
	AnalyticsHandler *AnalyticsHandler
	StatsHandler     *StatsHandler
	Tokens           middleware.TokenValidator

	// Storage is nil for the in-memory driver.
	Storage     Pinger
	StorageName string
	Redis       *redis.Client
	ReportCache BreakerStater

	RateLimit RateLimitOptions
	StartTime time.Time
}

func NewRouter(deps RouterDependencies) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger(), middleware.Metrics())

	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, X-Timezone")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	})

	router.GET("/health", healthHandler(deps))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	apiV1 := router.Group("/api/v1")
	if deps.RateLimit.Enabled {
		var rdb redis.Cmdable
		if deps.Redis != nil {
			rdb = deps.Redis
		}
		apiV1.Use(middleware.RateLimiterMiddleware(rdb, deps.RateLimit.Requests, deps.RateLimit.Window))
	}

	deps.AuthHandler.RegisterRoutes(apiV1)

	protected := apiV1.Group("")
	protected.Use(middleware.AuthMiddleware(deps.Tokens))
	{
		deps.HabitHandler.RegisterRoutes(protected)
		deps.CheckInHandler.RegisterRoutes(protected)
		deps.AnalyticsHandler.RegisterRoutes(protected)
		deps.StatsHandler.RegisterRoutes(protected)
	}

	return router
}

// healthHandler reports 503 only when the primary storage is down. Redis is
// optional: the caches and the rate limiter degrade without it.
func healthHandler(deps RouterDependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		storageStatus := "connected"
		if deps.Storage != nil {
			if err := deps.Storage.PingContext(ctx); err != nil {
				storageStatus = "unreachable"
			}
		}

		redisStatus := "disabled"
		if deps.Redis != nil {
			redisStatus = "connected"
			if err := deps.Redis.Ping(ctx).Err(); err != nil {
				redisStatus = "unreachable"
			}
		}

		body := gin.H{
			"status":  "ok",
			"storage": gin.H{"driver": deps.StorageName, "status": storageStatus},
			"redis":   redisStatus,
			"uptime":  time.Since(deps.StartTime).String(),
		}
		if deps.ReportCache != nil {
			body["report_cache"] = deps.ReportCache.State()
		}

		statusCode := http.StatusOK
		if storageStatus == "unreachable" {
			statusCode = http.StatusServiceUnavailable
			body["status"] = "degraded"
		}

		c.JSON(statusCode, body)
	}
}
