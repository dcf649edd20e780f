package conversation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/frontdesk-ai/internal/clinic"
)

func testProfile() *clinic.Profile {
	return &clinic.Profile{
		Name:          "Green Leaf Clinic",
		DoctorName:    "Dr. Mehta",
		Address:       "12 Park Road",
		Phone:         "+91 90000 00000",
		Timezone:      "Asia/Kolkata",
		Fees:          clinic.Fees{FirstVisit: "₹500", FollowUp: "₹300", Online: "₹400"},
		Services:      []string{"Diet Consultation", "Thyroid Diet Plan"},
		Slots:         []string{"10:00 AM", "11:00 AM", "2:00 PM"},
		BotName:       "Aria",
		EmergencyLine: "112",
	}
}

func TestBuildSystemPrompt(t *testing.T) {
	// 20:00 UTC is already the next day in Kolkata.
	now := time.Date(2025, 6, 1, 20, 0, 0, 0, time.UTC)

	prompt, err := BuildSystemPrompt(testProfile(), now)
	require.NoError(t, err)

	assert.Contains(t, prompt, "You are Aria, the AI receptionist at Green Leaf Clinic.")
	assert.Contains(t, prompt, "Today is Monday, 2025-06-02")
	assert.Contains(t, prompt, "First visit  : ₹500")
	assert.Contains(t, prompt, "  - Thyroid Diet Plan")
	assert.Contains(t, prompt, "Appointment slots: 10:00 AM, 11:00 AM, 2:00 PM")
	assert.Contains(t, prompt, "Please call 112 NOW")
	assert.Contains(t, prompt, `ACTION: {"type":"book"`)
	assert.Contains(t, prompt, "Please consult Dr. Mehta during your visit.")
}

func TestWelcome(t *testing.T) {
	p := testProfile()
	p.BotName = ""
	assert.Contains(t, Welcome(p), "I'm Aria from Green Leaf Clinic")
}
