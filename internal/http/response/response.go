package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/dineops-backend/internal/platform/apierr"
)

// ErrorBody is the flat error envelope the loyalty functions answer with.
// Clients read Error directly; Code is informational.
type ErrorBody struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = apierr.Message(err)
	}
	c.AbortWithStatusJSON(status, ErrorBody{Error: msg, Code: code})
}

// RespondAPIError classifies err by its aggregate code.
func RespondAPIError(c *gin.Context, err error) {
	ae := apierr.FromError(err)
	RespondError(c, ae.Status, ae.Code, err)
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}
