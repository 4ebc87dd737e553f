package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/yungbote/dineops-backend/internal/http/response"
	"github.com/yungbote/dineops-backend/internal/platform/logger"
)

const RolePlatformOwner = "platform_owner"

// PlatformClaims is what the console's identity provider puts in the token.
type PlatformClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

type PlatformAuth struct {
	log    *logger.Logger
	secret []byte
}

// NewPlatformAuth returns nil when secret is empty; RequirePlatformOwner on a
// nil *PlatformAuth lets every request through.
func NewPlatformAuth(log *logger.Logger, secret string) *PlatformAuth {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil
	}
	return &PlatformAuth{log: log.With("Middleware", "PlatformAuth"), secret: []byte(secret)}
}

func (pa *PlatformAuth) RequirePlatformOwner() gin.HandlerFunc {
	if pa == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		raw := bearerToken(c)
		if raw == "" {
			response.RespondError(c, http.StatusUnauthorized, "unauthorized", errors.New("missing or invalid token"))
			return
		}
		claims, err := pa.parse(raw)
		if err != nil {
			pa.log.Debug("platform token rejected", "error", err)
			response.RespondError(c, http.StatusUnauthorized, "unauthorized", errors.New("missing or invalid token"))
			return
		}
		if claims.Role != RolePlatformOwner {
			response.RespondError(c, http.StatusForbidden, "forbidden", errors.New("forbidden"))
			return
		}
		c.Next()
	}
}

func (pa *PlatformAuth) parse(raw string) (*PlatformClaims, error) {
	claims := &PlatformClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return pa.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}
	return claims, nil
}

func bearerToken(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}
