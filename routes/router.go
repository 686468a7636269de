package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"spinledger/config"
	"spinledger/controllers"
	"spinledger/ledger"
	"spinledger/middleware"
	"spinledger/utils"
)

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(db *gorm.DB, store *ledger.Store, issuer *ledger.Issuer, prizes *ledger.PrizeSource, broadcaster *ledger.Broadcaster) *gin.Engine {
	cfg := config.Get()
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	// Replace default console logger with file-based zap logger
	gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
	if err == nil {
		r.Use(utils.Ginzap(gl, time.RFC3339, true))
		r.Use(utils.RecoveryWithZap(gl, false))
	} else {
		// fallback to default recovery if logger failed to init
		r.Use(gin.Recovery())
	}

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}

	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}

	r.Use(cors.New(corsCfg))

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})

	spinController := controllers.NewSpinController(store, issuer, prizes)
	codeController := controllers.NewCodeController(store)
	adminController := controllers.NewAdminController(store, prizes)
	eventsController := controllers.NewEventsController(broadcaster, utils.Sugar)

	api := r.Group("/api/v1")

	spinGroup := api.Group("/spin")
	spinGroup.GET("/prizes", spinController.ListPrizes)
	spinGroup.GET("/events", eventsController.Stream)
	spinGroup.Use(middleware.RateLimitMiddleware())
	spinGroup.POST("/eligibility", spinController.CheckEligibility)
	spinGroup.POST("", spinController.Spin)

	codesGroup := api.Group("/codes")
	codesGroup.Use(middleware.RateLimitMiddleware())
	codesGroup.POST("/redeem", codeController.Redeem)

	adminGroup := api.Group("/admin")
	adminGroup.POST("/login", middleware.RateLimitMiddleware(), adminController.Login)

	adminProtected := adminGroup.Group("")
	adminProtected.Use(middleware.AdminRequired())
	adminProtected.GET("/codes/:code", adminController.LookupCode)
	adminProtected.PUT("/prizes", adminController.ReplacePrizes)

	r.NoRoute(func(ctx *gin.Context) {
		utils.Error(ctx, http.StatusNotFound, 40400, "route not found")
	})

	return r
}
