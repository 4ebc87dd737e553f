package middleware

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORS answers every origin. The loyalty functions are called from restaurant
// sites and QR landing pages on arbitrary domains, so no credentials are allowed.
func CORS() gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders:    []string{"Authorization", "Content-Type", "X-Client-Info", "Apikey", "X-Request-Id"},
		ExposeHeaders:   []string{headerTraceID, headerRequestID},
		MaxAge:          12 * time.Hour,
	})
}
