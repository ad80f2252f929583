// Package api wires the HTTP surface together
package api

import (
	"fmt"
	"time"

	"pindrop/pin-api/app/image"
	"pindrop/pin-api/app/pin"
	"pindrop/pin-api/app/root"
	"pindrop/pin-api/app/upload"
	"pindrop/pin-api/app/user"
	"pindrop/pin-api/aws"
	"pindrop/pin-api/db"
	"pindrop/pin-api/internal"
	"pindrop/pin-api/internal/billing"
	"pindrop/pin-api/internal/quota"
	"pindrop/pin-api/internal/service"
	"pindrop/pin-api/middleware"

	cache "github.com/chenyahui/gin-cache"
	"github.com/chenyahui/gin-cache/persist"
	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	gray  = "\x1b[90m"
	reset = "\x1b[0m"
)

var store = persist.NewMemoryStore(time.Minute)

type API struct {
	Deps   *internal.Deps
	Router *gin.Engine
}

func NewRouter() (*API, error) {
	makeLogger()

	conn, err := db.New()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database, %w", err)
	}

	s3, err := aws.NewS3()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize S3 client, %w", err)
	}

	var b billing.Provider = billing.Disabled{}
	if viper.GetBool("polar.enabled") {
		b = billing.NewPolarClient()
	}

	deps := &internal.Deps{
		DB:      conn,
		S3:      s3,
		Billing: b,
		Pins:    service.NewPinService(conn, s3, b, quota.DefaultTable()),
		Uploads: service.NewUploadCoordinator(s3),
	}

	a := &API{Deps: deps}

	router := gin.New()
	a.Router = router

	router.Use(
		cors.New(cors.Config{
			AllowOrigins:     []string{viper.GetString("host.cors_origin")},
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "TurnstileToken"},
			ExposeHeaders:    []string{"Content-Length"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}),
		gin.Recovery(),
		middleware.NewRequestIDMiddleware(),
		ginzap.GinzapWithConfig(zap.L(), &ginzap.Config{
			TimeFormat: "15:04:05.000",
			UTC:        true,
			Skipper: func(c *gin.Context) bool {
				return c.Request.Method == "HEAD"
			},
			Context: func(c *gin.Context) []zapcore.Field {
				fields := []zapcore.Field{}

				if v := c.GetString("requestID"); v != "" {
					fields = append(fields, zap.String("request_id", v))
				}

				if v := c.GetString("userID"); v != "" {
					fields = append(fields, zap.String("userID", v))
				}

				return fields
			},
		}),
	)

	router.HandleMethodNotAllowed = true
	a.Router.MaxMultipartMemory = 5 << 20

	jwt := middleware.NewJWTMiddleware(conn)
	turnstile := middleware.NewTurnstileMiddleware()
	lookupLimiter := middleware.RateLimiterMiddleware(middleware.RateLimiterConfig{
		RequestsPerSecond: 5,
		Burst:             10,
	})
	maxUploadSize := viper.GetInt64("upload.max_size")

	main := router.Group("/api")
	{
		// HEAD /api/heartbeat		-> Used to check if the server is alive
		main.HEAD("/heartbeat", root.Heartbeat)

		// HEAD /api/validate		-> Validates a JWT token
		main.HEAD("/validate", jwt, root.Validate)
	}

	pins := main.Group("/pins")
	{
		// GET /api/pins/:code		-> Resolves a pin by its 6-digit code
		pins.GET("/:code", lookupLimiter, turnstile, cacheFor(30), func(c *gin.Context) { pin.Fetch(c, deps) })

		// GET /api/pins		-> Returns the caller's pins, newest first
		pins.GET("", jwt, func(c *gin.Context) { pin.FetchBulk(c, deps) })

		// POST /api/pins		-> Creates a new pin
		pins.POST("", jwt, middleware.BodySizeLimiter(1<<20), func(c *gin.Context) { pin.Create(c, deps) })

		// DELETE /api/pins/:id		-> Deletes a pin owned by the caller
		pins.DELETE("/:id", jwt, func(c *gin.Context) { pin.Delete(c, deps) })
	}

	uploads := main.Group("/uploads", jwt)
	{
		// POST /api/uploads		-> Begins a two-phase file upload
		uploads.POST("", middleware.BodySizeLimiter(1<<20), func(c *gin.Context) { upload.Begin(c, deps) })

		// POST /api/uploads/finalize	-> Syncs metadata after the direct transfer
		uploads.POST("/finalize", middleware.BodySizeLimiter(1<<20), func(c *gin.Context) { upload.Finalize(c, deps) })
	}

	images := main.Group("/images", jwt)
	{
		// POST /api/images		-> Relays a pin image to object storage
		images.POST("", middleware.BodySizeLimiter(maxUploadSize), func(c *gin.Context) { image.Upload(c, deps) })
	}

	users := main.Group("/users", jwt)
	{
		// GET /api/users/quota		-> Returns plan, usage and pin expiry overview
		users.GET("/quota", func(c *gin.Context) { user.Quota(c, deps) })
	}

	service.StartScheduler(deps.Pins)

	return a, nil
}

func makeLogger() {
	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cfg.EncoderConfig.EncodeTime = func(t time.Time, pae zapcore.PrimitiveArrayEncoder) {
		pae.AppendString(gray + t.Format("15:04:05.000") + reset)
	}
	cfg.EncoderConfig.EncodeCaller = func(ec zapcore.EntryCaller, pae zapcore.PrimitiveArrayEncoder) {
		pae.AppendString(gray + ec.TrimmedPath() + reset)
	}

	cfg.DisableStacktrace = true

	log, _ := cfg.Build()
	zap.ReplaceGlobals(log)
}

func cacheFor(sec int) gin.HandlerFunc {
	return cache.CacheByRequestURI(store, time.Second*time.Duration(sec))
}
