package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/dineops-backend/internal/services"
)

type ABTestHandler struct {
	tests services.ABTestService
}

func NewABTestHandler(tests services.ABTestService) *ABTestHandler {
	return &ABTestHandler{tests: tests}
}

// POST /functions/loyalty-ab-test
func (h *ABTestHandler) Handle(c *gin.Context) {
	env, ok := bindEnvelope(c)
	if !ok {
		return
	}
	switch env.Action {
	case "assign_variant":
		runAction(c, env.Data, h.tests.AssignVariant)
	case "get_variant":
		runAction(c, env.Data, h.tests.GetVariant)
	case "track_conversion":
		runAction(c, env.Data, h.tests.TrackConversion)
	case "calculate_results":
		runAction(c, env.Data, h.tests.CalculateResults)
	default:
		actionError(c, errUnknownAction)
	}
}
