package loyalty

import (
	"reflect"
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func TestEvaluateRulesAdditive(t *testing.T) {
	rules := []Rule{
		{ID: "a", Type: RuleSpend, IsActive: true, Condition: RuleCondition{Value: dec("20")}, Action: RuleAction{Value: decimal.NewFromInt(1)}},
		{ID: "b", Type: RuleSpend, IsActive: true, Condition: RuleCondition{Value: dec("40")}, Action: RuleAction{Value: decimal.RequireFromString("0.5"), Multiplier: dec("2")}},
	}
	got := EvaluateRules(rules, decimal.NewFromInt(50))
	if got.PointsEarned != 100 {
		t.Fatalf("points: want=100 got=%d", got.PointsEarned)
	}
	if !reflect.DeepEqual(got.AppliedRules, []string{"a", "b"}) {
		t.Fatalf("applied: want=[a b] got=%v", got.AppliedRules)
	}

	reversed := EvaluateRules([]Rule{rules[1], rules[0]}, decimal.NewFromInt(50))
	if reversed.PointsEarned != got.PointsEarned {
		t.Fatalf("order changed total: %d vs %d", reversed.PointsEarned, got.PointsEarned)
	}
}

func TestEvaluateRulesThresholdAndInactive(t *testing.T) {
	rules := []Rule{
		{ID: "spend", Type: RuleSpend, IsActive: true, Condition: RuleCondition{Value: dec("10")}, Action: RuleAction{Value: decimal.NewFromInt(1)}},
		{ID: "off", Type: RuleVisit, IsActive: false, Action: RuleAction{Value: decimal.NewFromInt(100)}},
		{ID: "visit", Type: RuleVisit, IsActive: true, Action: RuleAction{Value: decimal.NewFromInt(5)}},
		{ID: "weird", Type: "birthday", IsActive: true, Action: RuleAction{Value: decimal.NewFromInt(7)}},
	}

	cases := []struct {
		amount  string
		points  int
		applied []string
	}{
		{"9.99", 5, []string{"visit"}},
		{"10", 15, []string{"spend", "visit"}},
		{"25.75", 30, []string{"spend", "visit"}},
	}
	for _, tc := range cases {
		got := EvaluateRules(rules, decimal.RequireFromString(tc.amount))
		if got.PointsEarned != tc.points {
			t.Fatalf("amount=%s points: want=%d got=%d", tc.amount, tc.points, got.PointsEarned)
		}
		if !reflect.DeepEqual(got.AppliedRules, tc.applied) {
			t.Fatalf("amount=%s applied: want=%v got=%v", tc.amount, tc.applied, got.AppliedRules)
		}
	}
}

func TestEvaluateRulesFloorsBeforeMultiplier(t *testing.T) {
	rules := []Rule{{ID: "r", Type: RuleSpend, IsActive: true, Action: RuleAction{Value: decimal.RequireFromString("0.3"), Multiplier: dec("3")}}}
	// floor(12.5 * 0.3) = 3, then * 3
	got := EvaluateRules(rules, decimal.RequireFromString("12.5"))
	if got.PointsEarned != 9 {
		t.Fatalf("points: want=9 got=%d", got.PointsEarned)
	}
}

func TestPurchaseReason(t *testing.T) {
	if got := PurchaseReason(nil); got != "Purchase - no rules applied" {
		t.Fatalf("empty: got=%q", got)
	}
	if got := PurchaseReason([]string{"r1", "r2"}); got != "Purchase - applied rules: r1, r2" {
		t.Fatalf("applied: got=%q", got)
	}
}

func TestParseSettingsFromProgramJSON(t *testing.T) {
	raw := []byte(`{
		"rules": [{"id":"r1","type":"spend","isActive":true,"condition":{"value":10},"action":{"value":1,"multiplier":2}}],
		"referral": {"enabled": true, "referrerPoints": 50, "refereePoints": 25},
		"tiers": {"gold": 2000}
	}`)
	s, err := ParseSettings(raw)
	if err != nil {
		t.Fatalf("ParseSettings: %v", err)
	}
	if len(s.Rules) != 1 || !s.Rules[0].Condition.Value.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("rules: %+v", s.Rules)
	}
	if s.Referral == nil || s.Referral.ReferrerPoints != 50 || s.Referral.RefereePoints != 25 {
		t.Fatalf("referral: %+v", s.Referral)
	}
	if err := s.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	empty, err := ParseSettings(nil)
	if err != nil || len(empty.Rules) != 0 || empty.Referral != nil {
		t.Fatalf("empty settings: %+v err=%v", empty, err)
	}
}

func TestSettingsValidateRejectsBadRules(t *testing.T) {
	s := Settings{Rules: []Rule{
		{ID: "", Type: RuleSpend},
		{ID: "x", Type: "lottery"},
		{ID: "x", Type: RuleVisit, Action: RuleAction{Value: decimal.NewFromInt(-1)}},
	}, Tiers: map[string]int{"platinum": 10}}
	if err := s.Validate(); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestEvaluateRulesTruncatesFractionalPoints(t *testing.T) {
	cases := []struct {
		name   string
		rule   Rule
		amount string
		points int
	}{
		{"fractional multiplier", Rule{ID: "m", Type: RuleSpend, IsActive: true, Action: RuleAction{Value: decimal.NewFromInt(1), Multiplier: dec("1.5")}}, "25", 37},
		{"fractional base", Rule{ID: "b", Type: RuleSpend, IsActive: true, Action: RuleAction{Value: decimal.RequireFromString("0.3")}}, "25", 7},
		{"base floored before multiplier", Rule{ID: "f", Type: RuleSpend, IsActive: true, Action: RuleAction{Value: decimal.NewFromInt(1), Multiplier: dec("2")}}, "10.99", 20},
		{"fractional visit", Rule{ID: "v", Type: RuleVisit, IsActive: true, Action: RuleAction{Value: decimal.RequireFromString("2.9")}}, "0", 2},
	}
	for _, tc := range cases {
		got := EvaluateRules([]Rule{tc.rule}, decimal.RequireFromString(tc.amount))
		if got.PointsEarned != tc.points {
			t.Fatalf("%s: want=%d got=%d", tc.name, tc.points, got.PointsEarned)
		}
	}
}
