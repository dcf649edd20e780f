package conversation

import (
	"fmt"
	"regexp"

	"github.com/wolfman30/frontdesk-ai/internal/clinic"
)

var emergencyPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bchest\s+(pain|tightness|pressure)\b`),
	regexp.MustCompile(`(?i)\b(difficulty|trouble|can'?t|cannot|hard)\s+(breathing|breathe)\b`),
	regexp.MustCompile(`(?i)\bshort(ness)?\s+of\s+breath\b`),
	regexp.MustCompile(`(?i)\b(unconscious|passed\s+out|fainted|not\s+responding|unresponsive)\b`),
	regexp.MustCompile(`(?i)\b(heavy|severe|a\s+lot\s+of|won'?t\s+stop)\s+bleeding\b`),
	regexp.MustCompile(`(?i)\bbleeding\s+(heavily|a\s+lot|won'?t\s+stop)\b`),
	regexp.MustCompile(`(?i)\b(severe|serious|bad)\s+head\s+injury\b`),
	regexp.MustCompile(`(?i)\bstroke\b|\bface\s+(is\s+)?drooping\b|\bslurred\s+speech\b`),
	regexp.MustCompile(`(?i)\bheart\s+attack\b|\bseizure\b`),
}

// DetectEmergency reports whether a patient message describes symptoms that
// need emergency services rather than an appointment.
func DetectEmergency(text string) bool {
	for _, re := range emergencyPatterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// EmergencyScript is the fixed reply for emergencies.
func EmergencyScript(p *clinic.Profile) string {
	line := orDefault(p.EmergencyLine, "112")
	return fmt.Sprintf("This sounds like a medical emergency! Please call %s NOW or go to the nearest emergency room immediately. Do not wait for an appointment.", line)
}
