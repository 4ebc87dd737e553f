package middleware

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/dineops-backend/internal/http/response"
	"github.com/yungbote/dineops-backend/internal/observability"
	"github.com/yungbote/dineops-backend/internal/platform/cache"
	"github.com/yungbote/dineops-backend/internal/platform/logger"
)

type RateLimitConfig struct {
	Name   string
	Limit  int64
	Window time.Duration
	Now    func() time.Time
}

// RateLimit is a fixed-window counter per client IP kept in the shared cache.
// A cache failure lets the request through.
func RateLimit(log *logger.Logger, c cache.Cache, m *observability.Metrics, cfg RateLimitConfig) gin.HandlerFunc {
	if c == nil || cfg.Limit <= 0 || cfg.Window <= 0 {
		return func(ctx *gin.Context) { ctx.Next() }
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	log = log.With("Middleware", "RateLimit", "limiter", cfg.Name)
	return func(ctx *gin.Context) {
		window := cfg.Now().UnixNano() / int64(cfg.Window)
		key := "ratelimit:" + cfg.Name + ":" + ctx.ClientIP() + ":" + strconv.FormatInt(window, 10)
		n, err := c.Incr(ctx.Request.Context(), key, cfg.Window)
		if err != nil {
			log.Warn("rate limit counter unavailable", "error", err)
			ctx.Next()
			return
		}
		if n > cfg.Limit {
			m.IncRateLimited(cfg.Name)
			ctx.Header("Retry-After", strconv.Itoa(int(cfg.Window.Seconds())))
			response.RespondError(ctx, http.StatusTooManyRequests, "rate_limited", errors.New("Too many requests, please try again later"))
			return
		}
		ctx.Next()
	}
}
