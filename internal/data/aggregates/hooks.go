package aggregates

import (
	"strings"
	"time"
	"unicode"

	"github.com/yungbote/dineops-backend/internal/observability"
)

// Hooks receives one callback per aggregate write, plus one per retry and
// per version conflict. Op names look like "LoyaltyAccount.RedeemPoints".
type Hooks interface {
	ObserveOperation(op, status string, dur time.Duration)
	IncConflict(op string)
	IncRetry(op string)
}

type noopHooks struct{}

func (noopHooks) ObserveOperation(string, string, time.Duration) {}
func (noopHooks) IncConflict(string)                             {}
func (noopHooks) IncRetry(string)                                {}

type metricsHooks struct {
	m *observability.Metrics
}

// NewObservabilityHooks reports aggregate writes to m under snake_case
// operation labels. A nil m yields no-op hooks.
func NewObservabilityHooks(m *observability.Metrics) Hooks {
	if m == nil {
		return noopHooks{}
	}
	return metricsHooks{m: m}
}

func (h metricsHooks) ObserveOperation(op, status string, dur time.Duration) {
	h.m.ObserveAggregateOperation(OperationLabel(op), status, dur)
}

func (h metricsHooks) IncConflict(op string) { h.m.IncAggregateConflict(OperationLabel(op)) }
func (h metricsHooks) IncRetry(op string)    { h.m.IncAggregateRetry(OperationLabel(op)) }

// OperationLabel turns "QRClaim.Claim" into "qr_claim.claim".
func OperationLabel(op string) string {
	op = strings.TrimSpace(op)
	if op == "" {
		return "unknown"
	}
	runes := []rune(op)
	var b strings.Builder
	b.Grow(len(op) + 8)
	for i, r := range runes {
		switch {
		case unicode.IsUpper(r):
			if i > 0 {
				prev := runes[i-1]
				nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
				if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
					b.WriteByte('_')
				}
			}
			b.WriteRune(unicode.ToLower(r))
		case r == ' ' || r == '-':
			b.WriteByte('_')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
