package routes

import (
	"petii/api/handlers"
	"petii/api/middleware"
	"petii/services"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/ulule/limiter/v3"
)

var defaultOrigins = []string{"http://localhost:3000", "http://localhost:19006"}

type Options struct {
	ServiceName string
	Tokens      *services.TokenIssuer
	// Limiter is applied to /api/ routes when set.
	Limiter        *limiter.Limiter
	AllowedOrigins []string
	// UploadsDir is served under /uploads when media is stored on local disk.
	UploadsDir string
}

// NewRouter собирает gin engine со всеми маршрутами и общими middleware.
func NewRouter(opts Options) (*gin.Engine, error) {
	if err := handlers.RegisterValidators(); err != nil {
		return nil, err
	}

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = defaultOrigins
	}

	router := gin.New()
	router.MaxMultipartMemory = 32 << 20
	router.Use(middleware.AccessLogger(gin.DefaultWriter))
	router.Use(gin.Recovery())
	router.Use(middleware.SecurityHeaders())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH"},
		AllowHeaders:     []string{"Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Range", "X-Content-Range", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           10 * time.Minute,
	}))
	router.Use(middleware.PrometheusMiddleware(opts.ServiceName))

	if opts.Limiter != nil {
		limited := middleware.RateLimitMiddleware(opts.Limiter, opts.ServiceName)
		router.Use(func(c *gin.Context) {
			if strings.HasPrefix(c.Request.URL.Path, "/api/") {
				limited(c)
				return
			}
			c.Next()
		})
	}

	router.GET("/health", handlers.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	if opts.UploadsDir != "" {
		router.Static("/uploads", opts.UploadsDir)
	}

	PublicApi(router, opts.Tokens)
	DialogApi(router, opts.Tokens)
	return router, nil
}
