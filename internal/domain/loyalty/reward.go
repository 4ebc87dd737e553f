package loyalty

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Reward is what a QR claim hands back to the customer. Only points rewards
// touch the ledger; the rest are informational.
type Reward struct {
	Type        string           `json:"type"`
	Points      int              `json:"points,omitempty"`
	Percentage  *decimal.Decimal `json:"percentage,omitempty"`
	Amount      *decimal.Decimal `json:"amount,omitempty"`
	ItemName    string           `json:"item_name,omitempty"`
	BuyQuantity int              `json:"buy_quantity,omitempty"`
	GetQuantity int              `json:"get_quantity,omitempty"`
}

type rewardSettings struct {
	Points      int              `json:"points"`
	Percentage  *decimal.Decimal `json:"percentage"`
	Amount      *decimal.Decimal `json:"amount"`
	ItemName    string           `json:"item_name"`
	BuyQuantity int              `json:"buy_quantity"`
	GetQuantity int              `json:"get_quantity"`
}

// ComputeReward dispatches on campaign type. Unknown types fall back to a
// flat defaultPoints reward.
func ComputeReward(campaignType string, raw []byte, defaultPoints int) (Reward, error) {
	var rs rewardSettings
	if len(strings.TrimSpace(string(raw))) > 0 && string(raw) != "null" {
		if err := json.Unmarshal(raw, &rs); err != nil {
			return Reward{}, fmt.Errorf("parse reward settings: %w", err)
		}
	}
	switch campaignType {
	case CampaignPointsReward:
		return Reward{Type: "points", Points: rs.Points}, nil
	case CampaignPercentageDiscount:
		return Reward{Type: CampaignPercentageDiscount, Percentage: rs.Percentage}, nil
	case CampaignFixedDiscount:
		return Reward{Type: CampaignFixedDiscount, Amount: rs.Amount}, nil
	case CampaignFreeItem:
		return Reward{Type: CampaignFreeItem, ItemName: rs.ItemName}, nil
	case CampaignBuyXGetY:
		return Reward{
			Type:        CampaignBuyXGetY,
			BuyQuantity: rs.BuyQuantity,
			GetQuantity: rs.GetQuantity,
			ItemName:    rs.ItemName,
		}, nil
	default:
		return Reward{Type: "points", Points: defaultPoints}, nil
	}
}

// PointsAwarded is never negative.
func (r Reward) PointsAwarded() int {
	if r.Type != "points" || r.Points < 0 {
		return 0
	}
	return r.Points
}

func (r Reward) Message() string {
	if p := r.PointsAwarded(); p > 0 {
		return fmt.Sprintf("Congratulations! You earned %d points!", p)
	}
	return "Reward claimed successfully!"
}
