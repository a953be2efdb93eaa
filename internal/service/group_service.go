package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"connectrpc.com/connect"

	"github.com/mmynk/rollcall/internal/access"
	"github.com/mmynk/rollcall/internal/clock"
	"github.com/mmynk/rollcall/internal/middleware"
	"github.com/mmynk/rollcall/internal/models"
	"github.com/mmynk/rollcall/internal/render"
	"github.com/mmynk/rollcall/internal/roster"
	"github.com/mmynk/rollcall/internal/storage"
)

// RosterReader is the read side of the roster service used by the admin
// API.
type RosterReader interface {
	Today() models.Day
	CheckedIn(ctx context.Context, groupID string, day models.Day) ([]roster.Entry, error)
	Stats(ctx context.Context, groupID, memberID string) (streak, total int, err error)
	Preview(ctx context.Context, groupID, memberID, tmpl string) (string, error)
}

// RosterAdminService implements the RosterAdminService RPC interface:
// group settings, roster entries, check-in history and auto-replies.
type RosterAdminService struct {
	store  storage.Store
	roster RosterReader
	clock  clock.Clock
	logger *slog.Logger
}

// NewRosterAdminService creates a RosterAdminService.
func NewRosterAdminService(store storage.Store, rosterSvc RosterReader, clk clock.Clock, logger *slog.Logger) *RosterAdminService {
	if clk == nil {
		clk = clock.Real()
	}
	return &RosterAdminService{store: store, roster: rosterSvc, clock: clk, logger: logger}
}

// ListGroups retrieves all groups the bot has seen.
func (s *RosterAdminService) ListGroups(ctx context.Context, req *connect.Request[ListGroupsRequest]) (*connect.Response[ListGroupsResponse], error) {
	groups, err := s.store.ListGroups(ctx)
	if err != nil {
		s.logger.Error("ListGroups failed", "error", err)
		return nil, toConnectError(err)
	}

	out := make([]*Group, len(groups))
	for i, g := range groups {
		out[i] = toGroup(g)
	}
	return connect.NewResponse(&ListGroupsResponse{Groups: out}), nil
}

// GetGroup retrieves a group by ID.
func (s *RosterAdminService) GetGroup(ctx context.Context, req *connect.Request[GetGroupRequest]) (*connect.Response[GetGroupResponse], error) {
	group, err := s.store.GetGroup(ctx, req.Msg.GroupID)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&GetGroupResponse{Group: toGroup(group)}), nil
}

// UpdateGroup replaces a group's settings.
func (s *RosterAdminService) UpdateGroup(ctx context.Context, req *connect.Request[UpdateGroupRequest]) (*connect.Response[UpdateGroupResponse], error) {
	s.logger.Info("UpdateGroup request received",
		"group_id", req.Msg.GroupID,
		"admin_id", middleware.GetAdminID(ctx),
		"fields_count", len(req.Msg.CustomFields),
	)

	group, err := s.store.GetGroup(ctx, req.Msg.GroupID)
	if err != nil {
		return nil, toConnectError(err)
	}

	group.CustomFields = req.Msg.CustomFields
	group.CheckinTemplate = req.Msg.CheckinTemplate
	group.RosterTemplate = req.Msg.RosterTemplate
	group.WelcomeTemplate = req.Msg.WelcomeTemplate
	group.ReactionGlyph = req.Msg.ReactionGlyph
	group.AutoReact = req.Msg.AutoReact
	group.CaptchaEnabled = req.Msg.CaptchaEnabled

	if err := s.store.UpdateGroup(ctx, group); err != nil {
		s.logger.Error("UpdateGroup failed", "error", err)
		return nil, toConnectError(err)
	}

	// Fetch updated group to get UpdatedAt
	updated, err := s.store.GetGroup(ctx, group.ID)
	if err != nil {
		return nil, toConnectError(err)
	}

	return connect.NewResponse(&UpdateGroupResponse{
		Group:               toGroup(updated),
		UnknownPlaceholders: unknownPlaceholders(updated),
	}), nil
}

// UpsertMember creates or replaces a roster entry.
func (s *RosterAdminService) UpsertMember(ctx context.Context, req *connect.Request[UpsertMemberRequest]) (*connect.Response[UpsertMemberResponse], error) {
	msg := req.Msg
	s.logger.Info("UpsertMember request received",
		"group_id", msg.GroupID,
		"member_id", msg.MemberID,
		"admin_id", middleware.GetAdminID(ctx),
	)

	group, err := s.store.GetGroup(ctx, msg.GroupID)
	if err != nil {
		return nil, toConnectError(err)
	}

	attrs := make(models.Attributes, len(msg.Attributes))
	for k, v := range msg.Attributes {
		if !group.HasField(k) {
			return nil, connect.NewError(connect.CodeInvalidArgument,
				fmt.Errorf("attribute %q is not a custom field of group %s", k, group.ID))
		}
		if v != "" {
			attrs[k] = v
		}
	}

	member := &models.Member{
		GroupID:    msg.GroupID,
		ID:         msg.MemberID,
		Name:       strings.TrimSpace(msg.Name),
		Attributes: attrs,
		SortKey:    msg.SortKey,
	}
	if msg.ExpiresAt > 0 {
		member.ExpiresAt = time.Unix(msg.ExpiresAt, 0)
	}

	if err := s.store.UpsertMember(ctx, member); err != nil {
		s.logger.Error("UpsertMember failed", "error", err)
		return nil, toConnectError(err)
	}

	stored, err := s.store.GetMember(ctx, msg.GroupID, msg.MemberID)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&UpsertMemberResponse{Member: s.toMember(stored)}), nil
}

// GetMember retrieves a roster entry.
func (s *RosterAdminService) GetMember(ctx context.Context, req *connect.Request[GetMemberRequest]) (*connect.Response[GetMemberResponse], error) {
	member, err := s.store.GetMember(ctx, req.Msg.GroupID, req.Msg.MemberID)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&GetMemberResponse{Member: s.toMember(member)}), nil
}

// DeleteMember removes a roster entry. Check-in history is kept.
func (s *RosterAdminService) DeleteMember(ctx context.Context, req *connect.Request[DeleteMemberRequest]) (*connect.Response[DeleteMemberResponse], error) {
	s.logger.Info("DeleteMember request received",
		"group_id", req.Msg.GroupID,
		"member_id", req.Msg.MemberID,
		"admin_id", middleware.GetAdminID(ctx),
	)

	if err := s.store.DeleteMember(ctx, req.Msg.GroupID, req.Msg.MemberID); err != nil {
		s.logger.Error("DeleteMember failed", "error", err)
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&DeleteMemberResponse{}), nil
}

// ListMembers returns a group's roster, highest sort key first.
func (s *RosterAdminService) ListMembers(ctx context.Context, req *connect.Request[ListMembersRequest]) (*connect.Response[ListMembersResponse], error) {
	if _, err := s.store.GetGroup(ctx, req.Msg.GroupID); err != nil {
		return nil, toConnectError(err)
	}
	members, err := s.store.ListMembers(ctx, req.Msg.GroupID, req.Msg.Filter)
	if err != nil {
		s.logger.Error("ListMembers failed", "error", err)
		return nil, toConnectError(err)
	}

	out := make([]*Member, len(members))
	for i, m := range members {
		out[i] = s.toMember(m)
	}
	return connect.NewResponse(&ListMembersResponse{Members: out}), nil
}

// GetMemberStats returns a member's current streak and lifetime total.
func (s *RosterAdminService) GetMemberStats(ctx context.Context, req *connect.Request[GetMemberStatsRequest]) (*connect.Response[GetMemberStatsResponse], error) {
	if _, err := s.store.GetMember(ctx, req.Msg.GroupID, req.Msg.MemberID); err != nil {
		return nil, toConnectError(err)
	}
	streak, total, err := s.roster.Stats(ctx, req.Msg.GroupID, req.Msg.MemberID)
	if err != nil {
		s.logger.Error("GetMemberStats failed", "error", err)
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&GetMemberStatsResponse{Streak: streak, Total: total}), nil
}

// ListCheckins returns the roster for a day as the bot would list it.
func (s *RosterAdminService) ListCheckins(ctx context.Context, req *connect.Request[ListCheckinsRequest]) (*connect.Response[ListCheckinsResponse], error) {
	day := s.roster.Today()
	if req.Msg.Day != "" {
		parsed, err := models.ParseDay(req.Msg.Day)
		if err != nil {
			return nil, connect.NewError(connect.CodeInvalidArgument, err)
		}
		day = parsed
	}

	if _, err := s.store.GetGroup(ctx, req.Msg.GroupID); err != nil {
		return nil, toConnectError(err)
	}
	entries, err := s.roster.CheckedIn(ctx, req.Msg.GroupID, day)
	if err != nil {
		s.logger.Error("ListCheckins failed", "error", err)
		return nil, toConnectError(err)
	}

	out := make([]*CheckinEntry, len(entries))
	for i, e := range entries {
		out[i] = &CheckinEntry{Member: s.toMember(e.Member), Streak: e.Streak, Total: e.Total}
	}
	return connect.NewResponse(&ListCheckinsResponse{Day: day.String(), Entries: out}), nil
}

// CreateAutoReply adds a keyword rule to a group.
func (s *RosterAdminService) CreateAutoReply(ctx context.Context, req *connect.Request[CreateAutoReplyRequest]) (*connect.Response[CreateAutoReplyResponse], error) {
	s.logger.Info("CreateAutoReply request received",
		"group_id", req.Msg.GroupID,
		"trigger", req.Msg.Trigger,
		"admin_id", middleware.GetAdminID(ctx),
	)

	if _, err := s.store.GetGroup(ctx, req.Msg.GroupID); err != nil {
		return nil, toConnectError(err)
	}

	reply := &models.AutoReply{
		GroupID: req.Msg.GroupID,
		Mode:    models.MatchMode(req.Msg.Mode),
		Trigger: strings.TrimSpace(req.Msg.Trigger),
		Reply:   req.Msg.Reply,
		Enabled: req.Msg.Enabled,
	}
	if err := s.store.CreateAutoReply(ctx, reply); err != nil {
		s.logger.Error("CreateAutoReply failed", "error", err)
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&CreateAutoReplyResponse{AutoReply: toAutoReply(reply)}), nil
}

// ListAutoReplies returns a group's keyword rules in creation order.
func (s *RosterAdminService) ListAutoReplies(ctx context.Context, req *connect.Request[ListAutoRepliesRequest]) (*connect.Response[ListAutoRepliesResponse], error) {
	replies, err := s.store.ListAutoReplies(ctx, req.Msg.GroupID)
	if err != nil {
		s.logger.Error("ListAutoReplies failed", "error", err)
		return nil, toConnectError(err)
	}

	out := make([]*AutoReply, len(replies))
	for i, r := range replies {
		out[i] = toAutoReply(r)
	}
	return connect.NewResponse(&ListAutoRepliesResponse{AutoReplies: out}), nil
}

// DeleteAutoReply removes a keyword rule.
func (s *RosterAdminService) DeleteAutoReply(ctx context.Context, req *connect.Request[DeleteAutoReplyRequest]) (*connect.Response[DeleteAutoReplyResponse], error) {
	s.logger.Info("DeleteAutoReply request received",
		"group_id", req.Msg.GroupID,
		"id", req.Msg.ID,
		"admin_id", middleware.GetAdminID(ctx),
	)

	if err := s.store.DeleteAutoReply(ctx, req.Msg.GroupID, req.Msg.ID); err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&DeleteAutoReplyResponse{}), nil
}

// PreviewTemplate renders a template without sending it.
func (s *RosterAdminService) PreviewTemplate(ctx context.Context, req *connect.Request[PreviewTemplateRequest]) (*connect.Response[PreviewTemplateResponse], error) {
	text, err := s.roster.Preview(ctx, req.Msg.GroupID, req.Msg.MemberID, req.Msg.Template)
	if err != nil {
		return nil, toConnectError(err)
	}
	return connect.NewResponse(&PreviewTemplateResponse{Text: text}), nil
}

func toConnectError(err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return connect.NewError(connect.CodeNotFound, err)
	}
	return connect.NewError(connect.CodeInternal, err)
}

func toGroup(g *models.Group) *Group {
	fields := g.CustomFields
	if fields == nil {
		fields = []string{}
	}
	return &Group{
		ID:              g.ID,
		Name:            g.Name,
		CustomFields:    fields,
		CheckinTemplate: g.CheckinTemplate,
		RosterTemplate:  g.RosterTemplate,
		WelcomeTemplate: g.WelcomeTemplate,
		ReactionGlyph:   g.ReactionGlyph,
		AutoReact:       g.AutoReact,
		CaptchaEnabled:  g.CaptchaEnabled,
		CreatedAt:       g.CreatedAt,
		UpdatedAt:       g.UpdatedAt,
	}
}

func (s *RosterAdminService) toMember(m *models.Member) *Member {
	out := &Member{
		GroupID:    m.GroupID,
		MemberID:   m.ID,
		Name:       m.Name,
		Attributes: m.Attributes.Clone(),
		SortKey:    m.SortKey,
		Status:     "active",
		UpdatedAt:  m.UpdatedAt,
	}
	if !m.ExpiresAt.IsZero() {
		out.ExpiresAt = m.ExpiresAt.Unix()
	}
	if access.Evaluate(m.ExpiresAt, s.clock.Now()) == access.Expired {
		out.Status = "expired"
	}
	return out
}

func toAutoReply(r *models.AutoReply) *AutoReply {
	return &AutoReply{
		ID:      r.ID,
		GroupID: r.GroupID,
		Mode:    string(r.Mode),
		Trigger: r.Trigger,
		Reply:   r.Reply,
		Enabled: r.Enabled,
	}
}

// unknownPlaceholders lists placeholders in the group's templates that
// match neither a built-in nor a custom field.
func unknownPlaceholders(g *models.Group) []string {
	var out []string
	seen := make(map[string]bool)
	for _, tmpl := range []string{g.CheckinTemplate, g.RosterTemplate, g.WelcomeTemplate} {
		for _, name := range render.Placeholders(tmpl) {
			if render.IsBuiltin(name) || g.HasField(name) || seen[name] {
				continue
			}
			seen[name] = true
			out = append(out, name)
		}
	}
	return out
}
