package loyalty

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrCampaignNotStarted   = errors.New("Campaign has not started yet")
	ErrCampaignExpired      = errors.New("Campaign has expired")
	ErrCustomerLimitReached = errors.New("You have reached the maximum uses for this campaign")
	ErrCampaignLimitReached = errors.New("This campaign has reached its maximum number of uses")
	ErrDailyLimitReached    = errors.New("Daily limit reached for this campaign")
)

// CheckWindow accepts claims in [startsAt, expiresAt). Either bound may be open.
func CheckWindow(startsAt, expiresAt *time.Time, now time.Time) error {
	if startsAt != nil && now.Before(*startsAt) {
		return ErrCampaignNotStarted
	}
	if expiresAt != nil && !now.Before(*expiresAt) {
		return ErrCampaignExpired
	}
	return nil
}

// UsageLimits is the JSON document stored on qr_campaign.usage_limits.
// A missing or non-positive limit means unlimited.
type UsageLimits struct {
	MaxUsesPerCustomer *int `json:"max_uses_per_customer,omitempty"`
	TotalMaxUses       *int `json:"total_max_uses,omitempty"`
	DailyLimit         *int `json:"daily_limit,omitempty"`
}

func ParseUsageLimits(raw []byte) (UsageLimits, error) {
	var l UsageLimits
	if len(strings.TrimSpace(string(raw))) == 0 || string(raw) == "null" {
		return l, nil
	}
	if err := json.Unmarshal(raw, &l); err != nil {
		return UsageLimits{}, fmt.Errorf("parse usage limits: %w", err)
	}
	return l, nil
}

// UsageCounts are the claim counts observed while the campaign row is locked.
type UsageCounts struct {
	Customer      int64
	Campaign      int64
	CustomerToday int64
}

func (l UsageLimits) Check(c UsageCounts) error {
	if limitReached(l.MaxUsesPerCustomer, c.Customer) {
		return ErrCustomerLimitReached
	}
	if limitReached(l.TotalMaxUses, c.Campaign) {
		return ErrCampaignLimitReached
	}
	if limitReached(l.DailyLimit, c.CustomerToday) {
		return ErrDailyLimitReached
	}
	return nil
}

func limitReached(limit *int, count int64) bool {
	return limit != nil && *limit > 0 && count >= int64(*limit)
}
