package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	domainagg "github.com/yungbote/dineops-backend/internal/domain/aggregates"
	"github.com/yungbote/dineops-backend/internal/http/middleware"
	"github.com/yungbote/dineops-backend/internal/http/response"
)

// actionEnvelope is the {action, data} body shared by the tracker and A/B
// functions.
type actionEnvelope struct {
	Action string          `json:"action"`
	Data   json.RawMessage `json:"data"`
}

var errUnknownAction = domainagg.Validation("handlers.action", "Unknown action")

func bindEnvelope(c *gin.Context) (*actionEnvelope, bool) {
	var env actionEnvelope
	if err := c.ShouldBindJSON(&env); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_json", errors.New("Invalid JSON body"))
		return nil, false
	}
	env.Action = strings.TrimSpace(env.Action)
	c.Set(middleware.ActionKey, env.Action)
	return &env, true
}

// runAction decodes data into Req, calls fn and answers 200 or 400. Every
// failure class maps to 400 on the action endpoints; Code tells them apart.
func runAction[Req any, Resp any](c *gin.Context, data json.RawMessage, fn func(context.Context, Req) (Resp, error)) {
	var req Req
	if len(bytes.TrimSpace(data)) > 0 && !bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		if err := json.Unmarshal(data, &req); err != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_json", errors.New("Invalid action data"))
			return
		}
	}
	resp, err := fn(c.Request.Context(), req)
	if err != nil {
		actionError(c, err)
		return
	}
	response.RespondOK(c, resp)
}

func actionError(c *gin.Context, err error) {
	code := domainagg.CodeOf(err)
	if code == "" {
		code = domainagg.CodeInternal
	}
	_ = c.Error(err)
	response.RespondError(c, http.StatusBadRequest, string(code), err)
}
