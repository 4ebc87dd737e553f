package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	domainagg "github.com/yungbote/dineops-backend/internal/domain/aggregates"
	"github.com/yungbote/dineops-backend/internal/http/response"
	"github.com/yungbote/dineops-backend/internal/services"
)

type QRClaimHandler struct {
	claims services.QRClaimService
}

func NewQRClaimHandler(claims services.QRClaimService) *QRClaimHandler {
	return &QRClaimHandler{claims: claims}
}

// POST /functions/loyalty-qr-claim
//
// 404 unknown campaign, 400 window/limit/validation, 409 lost a concurrent
// write (safe to retry), 500 anything else including an unreadable body.
func (h *QRClaimHandler) Claim(c *gin.Context) {
	var req services.QRClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusInternalServerError, string(domainagg.CodeInternal), errors.New("Invalid JSON body"))
		return
	}
	res, err := h.claims.Claim(c.Request.Context(), req)
	if err != nil {
		_ = c.Error(err)
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, res)
}
