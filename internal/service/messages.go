package service

// Messages of the rollcall.v1 admin API. Field tags drive both the JSON
// encoding and request validation.

// Admin authentication

type LoginRequest struct {
	AdminID  string `json:"admin_id" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	Token string `json:"token"`
	// ExpiresAt is the token expiry in Unix seconds.
	ExpiresAt int64 `json:"expires_at"`
}

// Groups

type Group struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	CustomFields    []string `json:"custom_fields"`
	CheckinTemplate string   `json:"checkin_template"`
	RosterTemplate  string   `json:"roster_template"`
	WelcomeTemplate string   `json:"welcome_template"`
	ReactionGlyph   string   `json:"reaction_glyph"`
	AutoReact       bool     `json:"auto_react"`
	CaptchaEnabled  bool     `json:"captcha_enabled"`
	CreatedAt       int64    `json:"created_at"`
	UpdatedAt       int64    `json:"updated_at"`
}

type ListGroupsRequest struct{}

type ListGroupsResponse struct {
	Groups []*Group `json:"groups"`
}

type GetGroupRequest struct {
	GroupID string `json:"group_id" validate:"required"`
}

type GetGroupResponse struct {
	Group *Group `json:"group"`
}

// UpdateGroupRequest replaces every operator-editable group setting.
type UpdateGroupRequest struct {
	GroupID         string   `json:"group_id" validate:"required"`
	CustomFields    []string `json:"custom_fields" validate:"max=32,unique,dive,required,max=64,fieldname"`
	CheckinTemplate string   `json:"checkin_template" validate:"max=4096"`
	RosterTemplate  string   `json:"roster_template" validate:"max=1024"`
	WelcomeTemplate string   `json:"welcome_template" validate:"max=4096"`
	ReactionGlyph   string   `json:"reaction_glyph" validate:"max=16"`
	AutoReact       bool     `json:"auto_react"`
	CaptchaEnabled  bool     `json:"captcha_enabled"`
}

type UpdateGroupResponse struct {
	Group *Group `json:"group"`
	// UnknownPlaceholders lists template placeholders that are neither a
	// built-in nor a custom field. They render as empty text.
	UnknownPlaceholders []string `json:"unknown_placeholders,omitempty"`
}

// Members

type Member struct {
	GroupID    string            `json:"group_id"`
	MemberID   string            `json:"member_id"`
	Name       string            `json:"name"`
	Attributes map[string]string `json:"attributes"`
	SortKey    int               `json:"sort_key"`
	// ExpiresAt is the expiry in Unix seconds; 0 means never.
	ExpiresAt int64 `json:"expires_at"`
	// Status is "active" or "expired" at the time of the call.
	Status    string `json:"status"`
	UpdatedAt int64  `json:"updated_at"`
}

// UpsertMemberRequest writes a whole roster entry. Attributes replace the
// stored bag; every key must be one of the group's custom fields.
type UpsertMemberRequest struct {
	GroupID    string            `json:"group_id" validate:"required"`
	MemberID   string            `json:"member_id" validate:"required,max=64"`
	Name       string            `json:"name" validate:"required,max=128"`
	Attributes map[string]string `json:"attributes" validate:"max=32,dive,keys,required,fieldname,endkeys,max=1024"`
	SortKey    int               `json:"sort_key"`
	ExpiresAt  int64             `json:"expires_at" validate:"min=0"`
}

type UpsertMemberResponse struct {
	Member *Member `json:"member"`
}

type GetMemberRequest struct {
	GroupID  string `json:"group_id" validate:"required"`
	MemberID string `json:"member_id" validate:"required"`
}

type GetMemberResponse struct {
	Member *Member `json:"member"`
}

type DeleteMemberRequest struct {
	GroupID  string `json:"group_id" validate:"required"`
	MemberID string `json:"member_id" validate:"required"`
}

type DeleteMemberResponse struct{}

type ListMembersRequest struct {
	GroupID string `json:"group_id" validate:"required"`
	Filter  string `json:"filter" validate:"max=128"`
}

type ListMembersResponse struct {
	Members []*Member `json:"members"`
}

// Check-ins

type GetMemberStatsRequest struct {
	GroupID  string `json:"group_id" validate:"required"`
	MemberID string `json:"member_id" validate:"required"`
}

type GetMemberStatsResponse struct {
	Streak int `json:"streak"`
	Total  int `json:"total"`
}

type ListCheckinsRequest struct {
	GroupID string `json:"group_id" validate:"required"`
	// Day is YYYY-MM-DD; empty means today.
	Day string `json:"day" validate:"omitempty,datetime=2006-01-02"`
}

type CheckinEntry struct {
	Member *Member `json:"member"`
	Streak int     `json:"streak"`
	Total  int     `json:"total"`
}

type ListCheckinsResponse struct {
	Day     string          `json:"day"`
	Entries []*CheckinEntry `json:"entries"`
}

// Auto-replies

type AutoReply struct {
	ID      int64  `json:"id"`
	GroupID string `json:"group_id"`
	Mode    string `json:"mode"`
	Trigger string `json:"trigger"`
	Reply   string `json:"reply"`
	Enabled bool   `json:"enabled"`
}

type CreateAutoReplyRequest struct {
	GroupID string `json:"group_id" validate:"required"`
	Mode    string `json:"mode" validate:"omitempty,oneof=equals contains"`
	Trigger string `json:"trigger" validate:"required,max=256"`
	Reply   string `json:"reply" validate:"required,max=4096"`
	Enabled bool   `json:"enabled"`
}

type CreateAutoReplyResponse struct {
	AutoReply *AutoReply `json:"auto_reply"`
}

type ListAutoRepliesRequest struct {
	GroupID string `json:"group_id" validate:"required"`
}

type ListAutoRepliesResponse struct {
	AutoReplies []*AutoReply `json:"auto_replies"`
}

type DeleteAutoReplyRequest struct {
	GroupID string `json:"group_id" validate:"required"`
	ID      int64  `json:"id" validate:"required,gt=0"`
}

type DeleteAutoReplyResponse struct{}

// Templates

// PreviewTemplateRequest renders a template as the check-in reply would.
// An empty MemberID renders with built-in variables only.
type PreviewTemplateRequest struct {
	GroupID  string `json:"group_id" validate:"required"`
	MemberID string `json:"member_id"`
	Template string `json:"template" validate:"required,max=4096"`
}

type PreviewTemplateResponse struct {
	Text string `json:"text"`
}
