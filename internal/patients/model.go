package patients

import (
	"errors"
	"strings"
	"time"
)

// ErrNotFound is returned when no profile exists for a phone number.
var ErrNotFound = errors.New("patients: not found")

// ErrInvalidPhone is returned when a profile is written without a phone.
var ErrInvalidPhone = errors.New("patients: phone is required")

// Patient is the phone-keyed profile used for notifications and history views.
type Patient struct {
	ID        int64     `json:"id"`
	Phone     string    `json:"phone"`
	Name      string    `json:"name"`
	Age       string    `json:"age,omitempty"`
	Email     string    `json:"email,omitempty"`
	Notes     string    `json:"notes,omitempty"`
	Concerns  []string  `json:"concerns"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UpsertRequest writes a profile. Empty fields keep the stored value;
// concerns are merged into the stored list.
type UpsertRequest struct {
	Phone    string   `json:"phone"`
	Name     string   `json:"name,omitempty"`
	Age      string   `json:"age,omitempty"`
	Email    string   `json:"email,omitempty"`
	Notes    string   `json:"notes,omitempty"`
	Concerns []string `json:"concerns,omitempty"`
}

func (r *UpsertRequest) normalize() {
	r.Phone = strings.TrimSpace(r.Phone)
	r.Name = strings.TrimSpace(r.Name)
	r.Age = strings.TrimSpace(r.Age)
	r.Email = strings.TrimSpace(r.Email)
	r.Notes = strings.TrimSpace(r.Notes)
	r.Concerns = mergeConcerns(nil, r.Concerns)
}

// mergeConcerns appends new entries to existing, skipping blanks and repeats.
func mergeConcerns(existing, add []string) []string {
	out := make([]string, 0, len(existing)+len(add))
	seen := make(map[string]struct{}, len(existing)+len(add))
	for _, list := range [][]string{existing, add} {
		for _, c := range list {
			c = strings.TrimSpace(c)
			if c == "" {
				continue
			}
			key := strings.ToLower(c)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, c)
		}
	}
	return out
}
