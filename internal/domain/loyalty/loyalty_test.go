package loyalty

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestCustomerHashNormalizes(t *testing.T) {
	a := CustomerHash(" Jane@Example.com ", "+1 (555) 010-0000")
	b := CustomerHash("jane@example.com", "15550100000")
	if a != b {
		t.Fatalf("expected equal hashes: %s vs %s", a, b)
	}
	if len(a) != 64 {
		t.Fatalf("hash length: want=64 got=%d", len(a))
	}
	if CustomerHash("jane@example.com", "") == a {
		t.Fatalf("phone must participate in the hash")
	}
}

func TestCheckWindowBoundaries(t *testing.T) {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)

	if err := CheckWindow(&start, &end, end); !errors.Is(err, ErrCampaignExpired) {
		t.Fatalf("at expires_at: want=%v got=%v", ErrCampaignExpired, err)
	}
	if err := CheckWindow(&start, &end, end.Add(-time.Second)); err != nil {
		t.Fatalf("one second before expiry: %v", err)
	}
	if err := CheckWindow(&start, &end, start.Add(-time.Second)); !errors.Is(err, ErrCampaignNotStarted) {
		t.Fatalf("before start: want=%v got=%v", ErrCampaignNotStarted, err)
	}
	if err := CheckWindow(&start, &end, start); err != nil {
		t.Fatalf("at start: %v", err)
	}
	if err := CheckWindow(nil, nil, end.Add(1000*time.Hour)); err != nil {
		t.Fatalf("open window: %v", err)
	}
}

func TestUsageLimitsCheckOrder(t *testing.T) {
	one, five := 1, 5
	l := UsageLimits{MaxUsesPerCustomer: &one, TotalMaxUses: &five, DailyLimit: &one}

	if err := l.Check(UsageCounts{}); err != nil {
		t.Fatalf("fresh counts: %v", err)
	}
	if err := l.Check(UsageCounts{Customer: 1, Campaign: 5, CustomerToday: 1}); !errors.Is(err, ErrCustomerLimitReached) {
		t.Fatalf("customer limit first: got=%v", err)
	}
	l.MaxUsesPerCustomer = nil
	if err := l.Check(UsageCounts{Customer: 1, Campaign: 5}); !errors.Is(err, ErrCampaignLimitReached) {
		t.Fatalf("campaign limit: got=%v", err)
	}
	if err := l.Check(UsageCounts{Customer: 1, Campaign: 2, CustomerToday: 1}); !errors.Is(err, ErrDailyLimitReached) {
		t.Fatalf("daily limit: got=%v", err)
	}
}

func TestUsageLimitsNonPositiveMeansUnlimited(t *testing.T) {
	l, err := ParseUsageLimits([]byte(`{"max_uses_per_customer": 0}`))
	if err != nil {
		t.Fatalf("ParseUsageLimits: %v", err)
	}
	if err := l.Check(UsageCounts{Customer: 99}); err != nil {
		t.Fatalf("zero limit should not block: %v", err)
	}
}

func TestComputeReward(t *testing.T) {
	cases := []struct {
		typ     string
		raw     string
		points  int
		rtype   string
		message string
	}{
		{CampaignPointsReward, `{"points": 40}`, 40, "points", "Congratulations! You earned 40 points!"},
		{CampaignPercentageDiscount, `{"percentage": 15}`, 0, CampaignPercentageDiscount, "Reward claimed successfully!"},
		{CampaignFixedDiscount, `{"amount": 5.5}`, 0, CampaignFixedDiscount, "Reward claimed successfully!"},
		{CampaignFreeItem, `{"item_name": "Espresso"}`, 0, CampaignFreeItem, "Reward claimed successfully!"},
		{CampaignBuyXGetY, `{"buy_quantity": 2, "get_quantity": 1}`, 0, CampaignBuyXGetY, "Reward claimed successfully!"},
		{"mystery", ``, 10, "points", "Congratulations! You earned 10 points!"},
	}
	for _, tc := range cases {
		r, err := ComputeReward(tc.typ, []byte(tc.raw), 10)
		if err != nil {
			t.Fatalf("%s: %v", tc.typ, err)
		}
		if r.PointsAwarded() != tc.points {
			t.Fatalf("%s points: want=%d got=%d", tc.typ, tc.points, r.PointsAwarded())
		}
		if r.Type != tc.rtype {
			t.Fatalf("%s type: want=%s got=%s", tc.typ, tc.rtype, r.Type)
		}
		if r.Message() != tc.message {
			t.Fatalf("%s message: want=%q got=%q", tc.typ, tc.message, r.Message())
		}
	}
}

func TestComputeRewardDescriptors(t *testing.T) {
	r, _ := ComputeReward(CampaignFixedDiscount, []byte(`{"amount": 5.5}`), 10)
	if r.Amount == nil || !r.Amount.Equal(decimal.RequireFromString("5.5")) {
		t.Fatalf("amount: got=%v", r.Amount)
	}
	r, _ = ComputeReward(CampaignBuyXGetY, []byte(`{"buy_quantity": 2, "get_quantity": 1, "item_name": "Taco"}`), 10)
	if r.BuyQuantity != 2 || r.GetQuantity != 1 || r.ItemName != "Taco" {
		t.Fatalf("bxgy: %+v", r)
	}
}

func TestDeriveTier(t *testing.T) {
	d := MustDefaults()
	th := d.TierThresholds(Settings{})
	cases := map[int]string{0: TierBronze, 499: TierBronze, 500: TierSilver, 1499: TierSilver, 1500: TierGold, 9000: TierGold}
	for lifetime, want := range cases {
		if got := DeriveTier(lifetime, th); got != want {
			t.Fatalf("lifetime=%d: want=%s got=%s", lifetime, want, got)
		}
	}
	override := d.TierThresholds(Settings{Tiers: map[string]int{"gold": 3000}})
	if got := DeriveTier(2000, override); got != TierSilver {
		t.Fatalf("override: want=silver got=%s", got)
	}
}

func TestDefaults(t *testing.T) {
	d := MustDefaults()
	if d.QRDefaultPoints() != 10 {
		t.Fatalf("qr default: want=10 got=%d", d.QRDefaultPoints())
	}
	ref := d.ReferralFor(Settings{})
	if ref.Enabled {
		t.Fatalf("referral should default to disabled")
	}
	ref = d.ReferralFor(Settings{Referral: &ReferralSettings{Enabled: true, ReferrerPoints: 50}})
	if !ref.Enabled || ref.ReferrerPoints != 50 {
		t.Fatalf("program referral not used: %+v", ref)
	}
	if d.ProgramSettingsTTL() != 60*time.Second {
		t.Fatalf("settings ttl: got=%v", d.ProgramSettingsTTL())
	}
}

func TestUTCDayBounds(t *testing.T) {
	loc := time.FixedZone("x", -5*3600)
	ts := time.Date(2026, 5, 1, 22, 30, 0, 0, loc) // 03:30 UTC on May 2
	start, end := UTCDayBounds(ts)
	if DayKey(start) != "2026-05-02" {
		t.Fatalf("start: got=%s", DayKey(start))
	}
	if end.Sub(start) != 24*time.Hour {
		t.Fatalf("span: got=%v", end.Sub(start))
	}
	parsed, err := ParseDay("2026-05-02")
	if err != nil || !parsed.Equal(start) {
		t.Fatalf("ParseDay: got=%v err=%v", parsed, err)
	}
}
