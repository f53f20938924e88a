package handlers

import (
	"io"
	"time"

	"fleet-ops-api/config"
	"fleet-ops-api/middleware"
	"fleet-ops-api/services"

	ginlog "github.com/gin-contrib/logger"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

type Dependencies struct {
	Config    *config.Config
	Predictor Predictor
	DB        *gorm.DB
	Cache     *services.CacheService
	Queue     ValidationQueue
	// LogOutput receives request logs; nil disables request logging.
	LogOutput io.Writer
}

func NewRouter(deps Dependencies) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	if deps.LogOutput != nil {
		router.Use(ginlog.SetLogger(
			ginlog.WithWriter(deps.LogOutput),
			ginlog.WithUTC(true),
			ginlog.WithSkipPath([]string{"/health", "/metrics"}),
		))
	}
	router.Use(middleware.SetupCORS(deps.Config.CORS))

	router.GET("/", Index)
	router.GET("/health", Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	prediction := NewPredictionHandler(deps.Predictor)
	router.POST("/predict", middleware.RateLimit(deps.Config.RateLimit), prediction.Predict)

	charts := NewChartsHandler(deps.DB, deps.Cache, chartTTL(deps.Config))
	chartGroup := router.Group("/charts")
	{
		chartGroup.GET("/drug-test-trends", charts.DrugTestTrends)
		chartGroup.GET("/drivers-over-3-violations", charts.DriversOverThreeViolations)
		chartGroup.GET("/credential-validity", charts.CredentialValidity)
		chartGroup.GET("/monthly-infractions", charts.MonthlyInfractions)
	}

	router.GET("/ws/predictions", LivePredictions(deps.Cache))

	validation := NewCredentialValidationHandler(deps.Queue)
	router.POST("/drivers/:id/credential-validation", validation.Enqueue)

	return router
}

func chartTTL(cfg *config.Config) time.Duration {
	if cfg.Charts.CacheTTL <= 0 {
		return 30 * time.Second
	}
	return cfg.Charts.CacheTTL
}
