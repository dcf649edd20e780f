package conversation

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ActionType names a ledger operation the model asked for.
type ActionType string

const (
	ActionSlots      ActionType = "slots"
	ActionBook       ActionType = "book"
	ActionCancel     ActionType = "cancel"
	ActionReschedule ActionType = "reschedule"
)

// Action is the payload of an "ACTION: {...}" line in a model reply.
type Action struct {
	Type    ActionType `json:"type"`
	Name    string     `json:"name,omitempty"`
	Phone   string     `json:"phone,omitempty"`
	Age     string     `json:"age,omitempty"`
	Concern string     `json:"concern,omitempty"`
	Email   string     `json:"email,omitempty"`
	Date    string     `json:"date,omitempty"`
	Time    string     `json:"time,omitempty"`
	NewDate string     `json:"new_date,omitempty"`
	NewTime string     `json:"new_time,omitempty"`
}

var errMalformedAction = errors.New("conversation: malformed action")

const actionPrefix = "ACTION:"

// ExtractAction removes every ACTION line from reply and returns the
// remaining text with the last action found. A line that does not decode is
// still removed and reported as an error, so raw JSON never reaches a patient.
func ExtractAction(reply string) (string, *Action, error) {
	lines := strings.Split(reply, "\n")
	kept := lines[:0]
	var (
		action *Action
		err    error
	)
	for _, line := range lines {
		payload, ok := actionPayload(line)
		if !ok {
			kept = append(kept, line)
			continue
		}
		var a Action
		if decodeErr := json.Unmarshal([]byte(payload), &a); decodeErr != nil {
			err = fmt.Errorf("%w: %v", errMalformedAction, decodeErr)
			continue
		}
		a.Type = ActionType(strings.ToLower(strings.TrimSpace(string(a.Type))))
		if !a.Type.valid() {
			err = fmt.Errorf("%w: unknown type %q", errMalformedAction, a.Type)
			continue
		}
		action, err = &a, nil
	}
	return strings.TrimSpace(strings.Join(kept, "\n")), action, err
}

func actionPayload(line string) (string, bool) {
	s := strings.Trim(strings.TrimSpace(line), "`*")
	s = strings.TrimSpace(s)
	if len(s) < len(actionPrefix) || !strings.EqualFold(s[:len(actionPrefix)], actionPrefix) {
		return "", false
	}
	// Markdown emphasis may close after the prefix, as in "**ACTION:** {...}".
	return strings.Trim(s[len(actionPrefix):], "`* \t"), true
}

func (t ActionType) valid() bool {
	switch t {
	case ActionSlots, ActionBook, ActionCancel, ActionReschedule:
		return true
	}
	return false
}
