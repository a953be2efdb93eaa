package models

// Group is a chat scope the bot has observed. It is created lazily on
// the first event from a previously unseen chat and then edited by an
// operator through the admin RPC.
type Group struct {
	// ID is the opaque stable identifier of the chat.
	ID string

	// Name is the display name of the chat.
	Name string

	// CustomFields is the ordered list of attribute names the operator
	// collects for members of this group (e.g. "region", "price").
	CustomFields []string

	// CheckinTemplate is rendered and sent after a successful check-in.
	// Empty means the built-in default.
	CheckinTemplate string

	// RosterTemplate is rendered once per member in today's roster
	// listing. Empty means the built-in default.
	RosterTemplate string

	// WelcomeTemplate is sent when new members join. Empty disables it.
	WelcomeTemplate string

	// ReactionGlyph is the emoji used to acknowledge messages from
	// active roster members.
	ReactionGlyph string

	// AutoReact enables the acknowledgment reaction.
	AutoReact bool

	// CaptchaEnabled mutes new members until they answer a button
	// challenge.
	CaptchaEnabled bool

	// CreatedAt is the Unix timestamp when the group was first seen.
	CreatedAt int64

	// UpdatedAt is the Unix timestamp of the last operator edit.
	UpdatedAt int64
}

// HasField reports whether name is one of the group's declared custom fields.
func (g *Group) HasField(name string) bool {
	for _, f := range g.CustomFields {
		if f == name {
			return true
		}
	}
	return false
}
