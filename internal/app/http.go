package app

import (
	"context"

	"github.com/gin-gonic/gin"

	apphttp "github.com/yungbote/dineops-backend/internal/http"
	httpH "github.com/yungbote/dineops-backend/internal/http/handlers"
	httpMW "github.com/yungbote/dineops-backend/internal/http/middleware"
	"github.com/yungbote/dineops-backend/internal/observability"
	"github.com/yungbote/dineops-backend/internal/platform/logger"
)

type Handlers struct {
	Health          *httpH.HealthHandler
	LoyaltyTracker  *httpH.LoyaltyTrackerHandler
	QRClaim         *httpH.QRClaimHandler
	ABTest          *httpH.ABTestHandler
	PlatformMetrics *httpH.PlatformMetricsHandler
	Program         *httpH.ProgramHandler
}

type Middleware struct {
	PlatformAuth *httpMW.PlatformAuth
	QRRateLimit  gin.HandlerFunc
}

func wireHandlers(log *logger.Logger, services Services, ready func(context.Context) error) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:          httpH.NewHealthHandler(ready),
		LoyaltyTracker:  httpH.NewLoyaltyTrackerHandler(services.Tracker),
		QRClaim:         httpH.NewQRClaimHandler(services.QRClaims),
		ABTest:          httpH.NewABTestHandler(services.ABTests),
		PlatformMetrics: httpH.NewPlatformMetricsHandler(services.PlatformMetrics),
		Program:         httpH.NewProgramHandler(services.Programs),
	}
}

func wireMiddleware(log *logger.Logger, cfg Config, clients Clients, metrics *observability.Metrics) Middleware {
	log.Info("Wiring middleware...")
	return Middleware{
		PlatformAuth: httpMW.NewPlatformAuth(log, cfg.PlatformJWTSecret),
		QRRateLimit: httpMW.RateLimit(log, clients.Cache, metrics, httpMW.RateLimitConfig{
			Name:   "qr_claim",
			Limit:  cfg.QRRateLimit,
			Window: cfg.QRRateWindow,
		}),
	}
}

func wireServer(log *logger.Logger, cfg Config, handlers Handlers, middleware Middleware, metrics *observability.Metrics, tracing bool) *apphttp.Server {
	if cfg.LogMode != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	serviceName := ""
	if tracing {
		serviceName = cfg.ServiceName
	}
	return apphttp.NewServer(":"+cfg.Port, apphttp.RouterConfig{
		Log:                    log,
		Metrics:                metrics,
		ServiceName:            serviceName,
		PlatformAuth:           middleware.PlatformAuth,
		QRRateLimit:            middleware.QRRateLimit,
		HealthHandler:          handlers.Health,
		LoyaltyTrackerHandler:  handlers.LoyaltyTracker,
		QRClaimHandler:         handlers.QRClaim,
		ABTestHandler:          handlers.ABTest,
		PlatformMetricsHandler: handlers.PlatformMetrics,
		ProgramHandler:         handlers.Program,
	})
}
