package loyalty

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Evaluation is the outcome of running a program's rules against one purchase.
type Evaluation struct {
	PointsEarned int
	AppliedRules []string
}

// EvaluateRules sums the contribution of every active rule. Contributions are
// additive so list order does not change the total.
func EvaluateRules(rules []Rule, orderAmount decimal.Decimal) Evaluation {
	out := Evaluation{AppliedRules: []string{}}
	for _, r := range rules {
		if !r.IsActive {
			continue
		}
		switch r.Type {
		case RuleSpend:
			threshold := decimal.Zero
			if r.Condition.Value != nil {
				threshold = *r.Condition.Value
			}
			if orderAmount.LessThan(threshold) {
				continue
			}
			out.PointsEarned += spendPoints(orderAmount, r.Action)
		case RuleVisit:
			out.PointsEarned += int(r.Action.Value.IntPart())
		default:
			continue
		}
		out.AppliedRules = append(out.AppliedRules, r.ID)
	}
	return out
}

// floor(amount * value) * multiplier, truncated toward zero. Points are whole
// numbers, so a fractional multiplier drops the remainder (25 * 1.5 = 37).
func spendPoints(amount decimal.Decimal, action RuleAction) int {
	base := amount.Mul(action.Value).Floor()
	mult := decimal.NewFromInt(1)
	if action.Multiplier != nil {
		mult = *action.Multiplier
	}
	return int(base.Mul(mult).IntPart())
}

// PurchaseReason renders the ledger reason for an earn transaction.
func PurchaseReason(applied []string) string {
	if len(applied) == 0 {
		return "Purchase - no rules applied"
	}
	return "Purchase - applied rules: " + strings.Join(applied, ", ")
}
