package roster

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/mmynk/rollcall/internal/access"
	"github.com/mmynk/rollcall/internal/events"
	"github.com/mmynk/rollcall/internal/metrics"
	"github.com/mmynk/rollcall/internal/models"
	"github.com/mmynk/rollcall/internal/render"
	"github.com/mmynk/rollcall/internal/storage"
)

// HandleMessage runs one inbound message through the roster state
// machine. Store failures abort the event; platform failures are logged
// and only surfaced (as ErrSendFailed) for the primary reply.
func (s *Service) HandleMessage(ctx context.Context, msg Message) (Outcome, error) {
	ctx, span := tracer.Start(ctx, "roster.HandleMessage")
	defer span.End()
	span.SetAttributes(
		attribute.String("group.id", msg.GroupID),
		attribute.String("member.id", msg.MemberID),
	)

	outcome, err := s.handle(ctx, msg)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	if outcome != "" {
		span.SetAttributes(attribute.String("outcome", string(outcome)))
		metrics.Events.WithLabelValues(string(outcome)).Inc()
	}
	return outcome, err
}

func (s *Service) handle(ctx context.Context, msg Message) (Outcome, error) {
	group, err := s.store.EnsureGroup(ctx, msg.GroupID, msg.GroupName)
	if err != nil {
		return "", fmt.Errorf("failed to load group: %w", err)
	}

	member, err := s.store.GetMember(ctx, msg.GroupID, msg.MemberID)
	if errors.Is(err, storage.ErrNotFound) {
		return OutcomeIgnored, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to load member: %w", err)
	}

	cmd := s.commands.match(msg.Text)
	now := s.clock.Now()

	if access.Evaluate(member.ExpiresAt, now) == access.Expired {
		s.enforceExpiry(ctx, group, member, cmd == commandCheckin)
		return OutcomeExpired, nil
	}

	switch cmd {
	case commandCheckin:
		return s.checkin(ctx, group, member, now)
	case commandRoster:
		return s.listRoster(ctx, group, now)
	}

	if group.AutoReact && group.ReactionGlyph != "" && msg.MessageID != "" {
		if err := s.port.ReactToMessage(ctx, group.ID, msg.MessageID, group.ReactionGlyph); err != nil {
			s.platformFailure("react", group.ID, member.ID, err)
		}
		return OutcomeAcknowledged, nil
	}
	return OutcomePassive, nil
}

// enforceExpiry restricts an expired member. It is re-applied on every
// interaction; the platform treats a repeated restriction as a no-op.
func (s *Service) enforceExpiry(ctx context.Context, group *models.Group, member *models.Member, notify bool) {
	s.logger.Info("member access expired",
		"group_id", group.ID, "member_id", member.ID, "expires_at", member.ExpiresAt)

	if err := s.port.RestrictMember(ctx, group.ID, member.ID); err != nil {
		s.platformFailure("restrict", group.ID, member.ID, err)
	}
	if !notify {
		return
	}

	text := s.renderOr(s.texts.Expired, DefaultTexts().Expired, member.Attributes, s.memberVars(group, member, s.Today()))
	if _, err := s.port.SendMessage(ctx, group.ID, text); err != nil {
		s.platformFailure("send", group.ID, member.ID, err)
	}
}

func (s *Service) checkin(ctx context.Context, group *models.Group, member *models.Member, now time.Time) (Outcome, error) {
	day := models.DayOf(now.In(s.loc))

	result, err := s.store.RecordCheckin(ctx, group.ID, member.ID, day)
	if err != nil {
		return "", fmt.Errorf("failed to record checkin: %w", err)
	}
	metrics.Checkins.WithLabelValues(result.String()).Inc()

	streak, total := s.stats(ctx, group.ID, member.ID, day)
	vars := s.memberVars(group, member, day)
	vars[render.VarStreak] = strconv.Itoa(streak)
	vars[render.VarTotal] = strconv.Itoa(total)

	if result == models.AlreadyRecorded {
		text := s.renderOr(s.texts.AlreadyCheckedIn, DefaultTexts().AlreadyCheckedIn, member.Attributes, vars)
		if err := s.send(ctx, group.ID, text); err != nil {
			return OutcomeAlreadyCheckedIn, err
		}
		return OutcomeAlreadyCheckedIn, nil
	}

	s.logger.Info("member checked in",
		"group_id", group.ID, "member_id", member.ID, "day", day, "streak", streak)

	ev := events.NewCheckinEvent(group.ID, member.ID, day.String(), streak, total, now)
	if err := s.publisher.PublishCheckin(ctx, ev); err != nil {
		s.logger.Warn("failed to publish checkin event", "event_id", ev.ID, "error", err)
	}

	text := s.renderOr(group.CheckinTemplate, s.texts.DefaultCheckin, member.Attributes, vars)
	if err := s.send(ctx, group.ID, text); err != nil {
		return OutcomeCheckedIn, err
	}
	return OutcomeCheckedIn, nil
}

// Preview renders tmpl for a member of group as the check-in reply would,
// using the member's current stats. An empty memberID renders with
// built-ins only.
func (s *Service) Preview(ctx context.Context, groupID, memberID, tmpl string) (string, error) {
	group, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		return "", err
	}

	day := s.Today()
	if memberID == "" {
		return render.Render(tmpl, nil, render.Vars{
			render.VarGroup: group.Name,
			render.VarDate:  day.String(),
		}), nil
	}

	member, err := s.store.GetMember(ctx, groupID, memberID)
	if err != nil {
		return "", err
	}
	streak, total := s.stats(ctx, groupID, memberID, day)
	vars := s.memberVars(group, member, day)
	vars[render.VarStreak] = strconv.Itoa(streak)
	vars[render.VarTotal] = strconv.Itoa(total)
	return render.Render(tmpl, member.Attributes, vars), nil
}

// Stats returns the member's current streak ending today and lifetime
// check-in count.
func (s *Service) Stats(ctx context.Context, groupID, memberID string) (streak, total int, err error) {
	day := s.Today()
	if streak, err = s.store.Streak(ctx, groupID, memberID, day); err != nil {
		return 0, 0, err
	}
	if total, err = s.store.CountLifetime(ctx, groupID, memberID); err != nil {
		return 0, 0, err
	}
	return streak, total, nil
}

// stats is Stats for a known day with failures logged and zeroed; a
// reply with a missing streak beats no reply.
func (s *Service) stats(ctx context.Context, groupID, memberID string, day models.Day) (streak, total int) {
	var err error
	if streak, err = s.store.Streak(ctx, groupID, memberID, day); err != nil {
		s.logger.Warn("failed to compute streak", "group_id", groupID, "member_id", memberID, "error", err)
	}
	if total, err = s.store.CountLifetime(ctx, groupID, memberID); err != nil {
		s.logger.Warn("failed to count checkins", "group_id", groupID, "member_id", memberID, "error", err)
	}
	return streak, total
}

func (s *Service) memberVars(group *models.Group, member *models.Member, day models.Day) render.Vars {
	status := s.texts.StatusGlyph
	if access.Evaluate(member.ExpiresAt, s.clock.Now()) == access.Expired {
		status = "⛔"
	}
	return render.Vars{
		render.VarName:   member.Name,
		render.VarUser:   member.Name,
		render.VarStatus: status,
		render.VarGroup:  group.Name,
		render.VarDate:   day.String(),
	}
}

// renderOr renders tmpl, or fallback when tmpl is empty or renders to
// nothing but whitespace.
func (s *Service) renderOr(tmpl, fallback string, attrs map[string]string, vars render.Vars) string {
	if strings.TrimSpace(tmpl) != "" {
		if out := render.Render(tmpl, attrs, vars); strings.TrimSpace(out) != "" {
			return out
		}
		metrics.RenderFallbacks.Inc()
		s.logger.Warn("template rendered blank, using default", "template", tmpl)
	}
	return render.Render(fallback, attrs, vars)
}

// send delivers a primary reply.
func (s *Service) send(ctx context.Context, groupID, text string) error {
	if _, err := s.port.SendMessage(ctx, groupID, text); err != nil {
		metrics.PlatformFailures.WithLabelValues("send").Inc()
		return fmt.Errorf("%w: %w", ErrSendFailed, err)
	}
	return nil
}

func (s *Service) platformFailure(op, groupID, memberID string, err error) {
	metrics.PlatformFailures.WithLabelValues(op).Inc()
	s.logger.Warn("platform call failed",
		slog.String("op", op), slog.String("group_id", groupID), slog.String("member_id", memberID), slog.Any("error", err))
}
