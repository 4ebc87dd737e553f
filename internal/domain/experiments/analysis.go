package experiments

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

const (
	SignificanceSignificant    = "significant"
	SignificanceNotSignificant = "not_significant"
	SignificanceInsufficient   = "insufficient_data"
)

const (
	// chi-squared critical value, p < 0.05 with one degree of freedom
	chiSquaredCritical = 3.84
	minAssignments     = 100
	minConversions     = 10
)

// PickVariant buckets a uniform sample in [0,100) against a traffic split in
// percent. Splits outside 0..100 are clamped.
func PickVariant(sample, trafficSplit int) string {
	if trafficSplit < 0 {
		trafficSplit = 0
	}
	if trafficSplit > 100 {
		trafficSplit = 100
	}
	if sample < trafficSplit {
		return VariantTreatment
	}
	return VariantControl
}

// Counts are the raw tallies for one bucket.
type Counts struct {
	Assignments int64
	Conversions int64
	Value       decimal.Decimal
}

type VariantResult struct {
	Assignments    int64           `json:"assignments"`
	Conversions    int64           `json:"conversions"`
	ConversionRate float64         `json:"conversion_rate"`
	TotalValue     decimal.Decimal `json:"total_value"`
}

type Results struct {
	Control          VariantResult `json:"control"`
	Variant          VariantResult `json:"variant"`
	Improvement      float64       `json:"improvement"`
	ChiSquared       float64       `json:"chi_squared"`
	Significance     string        `json:"significance"`
	TotalAssignments int64         `json:"total_assignments"`
	TotalConversions int64         `json:"total_conversions"`
	CalculatedAt     time.Time     `json:"calculated_at"`
}

// Analyze computes conversion rates, relative improvement and a simplified
// chi-squared statistic against a pooled conversion rate.
func Analyze(control, variant Counts, now time.Time) Results {
	controlRate := rate(control)
	variantRate := rate(variant)

	improvement := 0.0
	if controlRate != 0 {
		improvement = (variantRate - controlRate) / controlRate * 100
	}

	totalAssignments := control.Assignments + variant.Assignments
	totalConversions := control.Conversions + variant.Conversions
	chi := chiSquared(control, variant)

	significance := SignificanceNotSignificant
	switch {
	case totalAssignments <= minAssignments || totalConversions <= minConversions:
		significance = SignificanceInsufficient
	case chi > chiSquaredCritical:
		significance = SignificanceSignificant
	}

	return Results{
		Control:          variantResult(control, controlRate),
		Variant:          variantResult(variant, variantRate),
		Improvement:      round(improvement, 2),
		ChiSquared:       round(chi, 4),
		Significance:     significance,
		TotalAssignments: totalAssignments,
		TotalConversions: totalConversions,
		CalculatedAt:     now.UTC(),
	}
}

func rate(c Counts) float64 {
	if c.Assignments <= 0 {
		return 0
	}
	return float64(c.Conversions) / float64(c.Assignments) * 100
}

// sum over buckets of (observed - expected)^2 / expected, where expected
// conversions assume the pooled rate in both buckets.
func chiSquared(groups ...Counts) float64 {
	var n, conv int64
	for _, g := range groups {
		n += g.Assignments
		conv += g.Conversions
	}
	if n == 0 || conv == 0 {
		return 0
	}
	pooled := float64(conv) / float64(n)
	chi := 0.0
	for _, g := range groups {
		expected := float64(g.Assignments) * pooled
		if expected == 0 {
			continue
		}
		diff := float64(g.Conversions) - expected
		chi += diff * diff / expected
	}
	return chi
}

func variantResult(c Counts, r float64) VariantResult {
	return VariantResult{
		Assignments:    c.Assignments,
		Conversions:    c.Conversions,
		ConversionRate: round(r, 2),
		TotalValue:     c.Value,
	}
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
