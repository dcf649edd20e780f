package compliance

import (
	"crypto/sha256"
	"fmt"
	"regexp"
	"strings"
)

var (
	emailRe = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	// Matches 9 to 14 digit numbers with optional country code and separators,
	// but not ISO dates.
	phoneRe = regexp.MustCompile(`\+?\(?\d{2,4}\)?[\s.-]?\d{3,5}[\s.-]?\d{4,5}`)
)

// HashPhone returns the hex SHA-256 of a phone number with separators removed,
// so "+91 98765 43210" and "+919876543210" hash alike.
func HashPhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r == '+' || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return ""
	}
	return fmt.Sprintf("%x", sha256.Sum256([]byte(b.String())))
}

// ScrubPII replaces emails with [EMAIL] and phone numbers with [PHONE].
// Names are kept so reviewers can follow the conversation.
func ScrubPII(text string) string {
	text = emailRe.ReplaceAllString(text, "[EMAIL]")
	return phoneRe.ReplaceAllString(text, "[PHONE]")
}
