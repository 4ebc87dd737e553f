package loyalty

import (
	"sort"
	"strings"
)

const (
	TierBronze = "bronze"
	TierSilver = "silver"
	TierGold   = "gold"
)

func IsKnownTier(tier string) bool {
	switch strings.ToLower(strings.TrimSpace(tier)) {
	case TierBronze, TierSilver, TierGold:
		return true
	default:
		return false
	}
}

// DeriveTier picks the highest tier whose threshold lifetime points have reached.
// Bronze is the floor.
func DeriveTier(lifetimePoints int, thresholds map[string]int) string {
	type step struct {
		tier      string
		threshold int
	}
	steps := make([]step, 0, len(thresholds))
	for tier, threshold := range thresholds {
		steps = append(steps, step{tier: strings.ToLower(tier), threshold: threshold})
	}
	sort.Slice(steps, func(i, j int) bool {
		if steps[i].threshold == steps[j].threshold {
			return steps[i].tier < steps[j].tier
		}
		return steps[i].threshold < steps[j].threshold
	})
	out := TierBronze
	for _, s := range steps {
		if lifetimePoints >= s.threshold {
			out = s.tier
		}
	}
	return out
}
