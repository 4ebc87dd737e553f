package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/dineops-backend/internal/http/handlers"
	httpMW "github.com/yungbote/dineops-backend/internal/http/middleware"
	"github.com/yungbote/dineops-backend/internal/observability"
	"github.com/yungbote/dineops-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log         *logger.Logger
	Metrics     *observability.Metrics
	ServiceName string

	PlatformAuth *httpMW.PlatformAuth
	// QRRateLimit guards the public claim endpoint; nil disables it.
	QRRateLimit gin.HandlerFunc

	HealthHandler          *httpH.HealthHandler
	LoyaltyTrackerHandler  *httpH.LoyaltyTrackerHandler
	QRClaimHandler         *httpH.QRClaimHandler
	ABTestHandler          *httpH.ABTestHandler
	PlatformMetricsHandler *httpH.PlatformMetricsHandler
	ProgramHandler         *httpH.ProgramHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.AttachClientData())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS())

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
		r.GET("/readyz", cfg.HealthHandler.Ready)
	}

	fn := r.Group("/functions")
	{
		if cfg.LoyaltyTrackerHandler != nil {
			fn.POST("/loyalty-tracker", cfg.LoyaltyTrackerHandler.Handle)
		}
		if cfg.QRClaimHandler != nil {
			claim := []gin.HandlerFunc{}
			if cfg.QRRateLimit != nil {
				claim = append(claim, cfg.QRRateLimit)
			}
			claim = append(claim, cfg.QRClaimHandler.Claim)
			fn.POST("/loyalty-qr-claim", claim...)
		}
		if cfg.ABTestHandler != nil {
			fn.POST("/loyalty-ab-test", cfg.ABTestHandler.Handle)
		}
		if cfg.PlatformMetricsHandler != nil {
			guard := cfg.PlatformAuth.RequirePlatformOwner()
			fn.GET("/platform-metrics", guard, cfg.PlatformMetricsHandler.Snapshot)
			fn.POST("/platform-metrics", guard, cfg.PlatformMetricsHandler.Snapshot)
		}
	}

	api := r.Group("/api")
	api.Use(cfg.PlatformAuth.RequirePlatformOwner())
	{
		if cfg.ProgramHandler != nil {
			api.GET("/loyalty/programs/:id", cfg.ProgramHandler.GetProgram)
			api.PUT("/loyalty/programs/:id/settings", cfg.ProgramHandler.UpdateSettings)
		}
	}

	return r
}
