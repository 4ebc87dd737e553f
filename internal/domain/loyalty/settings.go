package loyalty

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	RuleSpend = "spend"
	RuleVisit = "visit"
)

// Settings is the JSON document stored on loyalty_program.settings.
type Settings struct {
	Rules    []Rule            `json:"rules"`
	Referral *ReferralSettings `json:"referral,omitempty"`
	Tiers    map[string]int    `json:"tiers,omitempty"`
}

type Rule struct {
	ID        string        `json:"id"`
	Name      string        `json:"name,omitempty"`
	Type      string        `json:"type"`
	IsActive  bool          `json:"isActive"`
	Condition RuleCondition `json:"condition"`
	Action    RuleAction    `json:"action"`
}

type RuleCondition struct {
	Value *decimal.Decimal `json:"value,omitempty"`
}

type RuleAction struct {
	Value      decimal.Decimal  `json:"value"`
	Multiplier *decimal.Decimal `json:"multiplier,omitempty"`
}

type ReferralSettings struct {
	Enabled        bool `json:"enabled"`
	ReferrerPoints int  `json:"referrerPoints"`
	RefereePoints  int  `json:"refereePoints"`
}

// ParseSettings decodes a settings document. Empty input yields zero settings.
func ParseSettings(raw []byte) (Settings, error) {
	var s Settings
	if len(strings.TrimSpace(string(raw))) == 0 || string(raw) == "null" {
		return s, nil
	}
	if err := json.Unmarshal(raw, &s); err != nil {
		return Settings{}, fmt.Errorf("parse loyalty settings: %w", err)
	}
	return s, nil
}

// Validate checks a settings document before it is stored.
func (s Settings) Validate() error {
	var errs []error
	seen := map[string]bool{}
	for i, r := range s.Rules {
		id := strings.TrimSpace(r.ID)
		if id == "" {
			errs = append(errs, fmt.Errorf("rules[%d]: missing id", i))
		} else if seen[id] {
			errs = append(errs, fmt.Errorf("rules[%d]: duplicate id %q", i, id))
		}
		seen[id] = true
		switch r.Type {
		case RuleSpend, RuleVisit:
		default:
			errs = append(errs, fmt.Errorf("rules[%d]: unknown type %q", i, r.Type))
		}
		if r.Action.Value.IsNegative() {
			errs = append(errs, fmt.Errorf("rules[%d]: action.value must be >= 0", i))
		}
		if r.Action.Multiplier != nil && r.Action.Multiplier.IsNegative() {
			errs = append(errs, fmt.Errorf("rules[%d]: action.multiplier must be >= 0", i))
		}
	}
	if s.Referral != nil && (s.Referral.ReferrerPoints < 0 || s.Referral.RefereePoints < 0) {
		errs = append(errs, errors.New("referral points must be >= 0"))
	}
	for tier, threshold := range s.Tiers {
		if !IsKnownTier(tier) {
			errs = append(errs, fmt.Errorf("tiers: unknown tier %q", tier))
		}
		if threshold < 0 {
			errs = append(errs, fmt.Errorf("tiers: %s threshold must be >= 0", tier))
		}
	}
	return errors.Join(errs...)
}
