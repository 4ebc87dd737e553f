package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/dineops-backend/internal/services"
)

type LoyaltyTrackerHandler struct {
	tracker services.LoyaltyTrackerService
}

func NewLoyaltyTrackerHandler(tracker services.LoyaltyTrackerService) *LoyaltyTrackerHandler {
	return &LoyaltyTrackerHandler{tracker: tracker}
}

// POST /functions/loyalty-tracker
func (h *LoyaltyTrackerHandler) Handle(c *gin.Context) {
	env, ok := bindEnvelope(c)
	if !ok {
		return
	}
	switch env.Action {
	case "track_purchase":
		runAction(c, env.Data, h.tracker.TrackPurchase)
	case "award_points":
		runAction(c, env.Data, h.tracker.AwardPoints)
	case "redeem_points":
		runAction(c, env.Data, h.tracker.RedeemPoints)
	case "process_referral":
		runAction(c, env.Data, h.tracker.ProcessReferral)
	case "update_tier":
		runAction(c, env.Data, h.tracker.UpdateTier)
	default:
		actionError(c, errUnknownAction)
	}
}
