package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/dineops-backend/internal/http/response"
	"github.com/yungbote/dineops-backend/internal/services"
)

const maxSettingsBody = 1 << 20

type ProgramHandler struct {
	programs services.ProgramSettingsService
}

func NewProgramHandler(programs services.ProgramSettingsService) *ProgramHandler {
	return &ProgramHandler{programs: programs}
}

// GET /api/loyalty/programs/:id
func (h *ProgramHandler) GetProgram(c *gin.Context) {
	programID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_program_id", err)
		return
	}
	snap, err := h.programs.Get(c.Request.Context(), programID)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"program": snap.Program, "settings": snap.Settings})
}

// PUT /api/loyalty/programs/:id/settings
func (h *ProgramHandler) UpdateSettings(c *gin.Context) {
	programID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_program_id", err)
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxSettingsBody)
	raw, err := c.GetRawData()
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", errors.New("settings body could not be read"))
		return
	}
	snap, err := h.programs.UpdateSettings(c.Request.Context(), programID, raw)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"program": snap.Program, "settings": snap.Settings})
}
