package loyalty

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode"
)

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizePhone keeps digits only so "+1 (555) 010-0000" and "15550100000" match.
func NormalizePhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// CustomerHash is the join key for a customer under a program. Raw contact
// details are never stored.
func CustomerHash(email, phone string) string {
	sum := sha256.Sum256([]byte(NormalizeEmail(email) + NormalizePhone(phone)))
	return hex.EncodeToString(sum[:])
}
