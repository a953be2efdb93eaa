package models

import "strings"

// MatchMode selects how an AutoReply trigger is compared with message text.
type MatchMode string

const (
	MatchEquals   MatchMode = "equals"
	MatchContains MatchMode = "contains"
)

// AutoReply is a keyword rule: when a group message matches Trigger, the
// bot answers with the rendered Reply.
type AutoReply struct {
	ID      int64
	GroupID string
	Mode    MatchMode
	Trigger string
	Reply   string
	Enabled bool
}

// Matches reports whether text triggers the rule. Comparison is
// case-insensitive on trimmed text.
func (r *AutoReply) Matches(text string) bool {
	if !r.Enabled || r.Trigger == "" {
		return false
	}
	text = strings.ToLower(strings.TrimSpace(text))
	trigger := strings.ToLower(strings.TrimSpace(r.Trigger))
	switch r.Mode {
	case MatchContains:
		return strings.Contains(text, trigger)
	default:
		return text == trigger
	}
}
