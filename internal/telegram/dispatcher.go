package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/mmynk/rollcall/internal/dedup"
	"github.com/mmynk/rollcall/internal/metrics"
	"github.com/mmynk/rollcall/internal/roster"
)

// RosterHandler handles group events for roster members.
type RosterHandler interface {
	HandleMessage(ctx context.Context, msg roster.Message) (roster.Outcome, error)
	Welcome(ctx context.Context, groupID, groupName string, joiners []roster.Joiner) error
	AnswerChallenge(ctx context.Context, a roster.ChallengeAnswer) (roster.ChallengeResult, error)
}

// Sender is the outbound Bot API surface the dispatcher uses.
type Sender interface {
	roster.NotificationPort
	AnswerCallback(ctx context.Context, callbackID, text string, alert bool) error
	EditMessage(ctx context.Context, groupID, messageID, text string) error
}

// Replier finds keyword auto-replies.
type Replier interface {
	Reply(ctx context.Context, groupID, groupName, senderName, text string) (string, bool, error)
}

// DispatcherConfig wires a Dispatcher.
type DispatcherConfig struct {
	Roster  RosterHandler
	Replies Replier
	Sender  Sender
	Dedup   dedup.Store
	// DedupTTL is how long an update ID stays claimed.
	DedupTTL time.Duration
	Logger   *slog.Logger
}

// Dispatcher turns Bot API updates into roster events.
type Dispatcher struct {
	roster   RosterHandler
	replies  Replier
	sender   Sender
	dedup    dedup.Store
	dedupTTL time.Duration
	logger   *slog.Logger
}

// NewDispatcher creates a Dispatcher. Replies and Dedup are optional.
func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	if cfg.DedupTTL <= 0 {
		cfg.DedupTTL = 24 * time.Hour
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Dispatcher{
		roster:   cfg.Roster,
		replies:  cfg.Replies,
		sender:   cfg.Sender,
		dedup:    cfg.Dedup,
		dedupTTL: cfg.DedupTTL,
		logger:   cfg.Logger,
	}
}

// Run handles updates one at a time until ctx is cancelled or the
// channel is closed. Per-update failures are logged and do not stop the
// loop.
func (d *Dispatcher) Run(ctx context.Context, updates <-chan tgbotapi.Update) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if err := d.HandleUpdate(ctx, update); err != nil {
				d.logger.Error("failed to handle update", "update_id", update.UpdateID, "error", err)
			}
		}
	}
}

// HandleUpdate processes a single update. Only group and supergroup
// messages and join check button presses are handled.
func (d *Dispatcher) HandleUpdate(ctx context.Context, update tgbotapi.Update) error {
	if cb := update.CallbackQuery; cb != nil {
		if !d.claim(ctx, update.UpdateID) {
			return nil
		}
		return d.handleCallback(ctx, cb)
	}

	m := update.Message
	if m == nil || m.Chat == nil || !(m.Chat.IsGroup() || m.Chat.IsSuperGroup()) {
		return nil
	}
	if !d.claim(ctx, update.UpdateID) {
		return nil
	}

	groupID := strconv.FormatInt(m.Chat.ID, 10)

	if len(m.NewChatMembers) > 0 {
		var joiners []roster.Joiner
		for i := range m.NewChatMembers {
			if u := &m.NewChatMembers[i]; !u.IsBot {
				joiners = append(joiners, roster.Joiner{
					MemberID: strconv.FormatInt(u.ID, 10),
					Name:     displayName(u),
				})
			}
		}
		if len(joiners) == 0 {
			return nil
		}
		if err := d.roster.Welcome(ctx, groupID, m.Chat.Title, joiners); err != nil {
			return fmt.Errorf("welcome: %w", err)
		}
		return nil
	}

	if m.From == nil || m.From.IsBot {
		return nil
	}
	text := m.Text
	if text == "" {
		text = m.Caption
	}

	msg := roster.Message{
		GroupID:    groupID,
		GroupName:  m.Chat.Title,
		MemberID:   strconv.FormatInt(m.From.ID, 10),
		SenderName: displayName(m.From),
		MessageID:  strconv.Itoa(m.MessageID),
		Text:       text,
	}
	outcome, err := d.roster.HandleMessage(ctx, msg)
	if err != nil {
		return err
	}
	if outcome.IsCommand() || outcome == roster.OutcomeExpired {
		return nil
	}
	return d.autoReply(ctx, msg)
}

func (d *Dispatcher) autoReply(ctx context.Context, msg roster.Message) error {
	if d.replies == nil {
		return nil
	}
	reply, ok, err := d.replies.Reply(ctx, msg.GroupID, msg.GroupName, msg.SenderName, msg.Text)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	if _, err := d.sender.SendMessage(ctx, msg.GroupID, reply); err != nil {
		metrics.PlatformFailures.WithLabelValues("send").Inc()
		return fmt.Errorf("failed to send auto reply: %w", err)
	}
	return nil
}

// handleCallback resolves a press on a join check button. Wrong or
// foreign presses get a popup; a correct one replaces the check with the
// confirmation.
func (d *Dispatcher) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	memberID, choice, ok := parseChallengeData(cb.Data)
	if !ok || cb.From == nil || cb.Message == nil || cb.Message.Chat == nil {
		d.answer(ctx, cb.ID, "", false)
		return nil
	}
	groupID := strconv.FormatInt(cb.Message.Chat.ID, 10)

	result, err := d.roster.AnswerChallenge(ctx, roster.ChallengeAnswer{
		GroupID:   groupID,
		MemberID:  memberID,
		PresserID: strconv.FormatInt(cb.From.ID, 10),
		Name:      displayName(cb.From),
		Choice:    choice,
	})
	if err != nil {
		d.answer(ctx, cb.ID, "", false)
		return fmt.Errorf("join check: %w", err)
	}
	if !result.Passed {
		d.answer(ctx, cb.ID, result.Text, true)
		return nil
	}

	d.answer(ctx, cb.ID, "", false)
	if err := d.sender.EditMessage(ctx, groupID, strconv.Itoa(cb.Message.MessageID), result.Text); err != nil {
		metrics.PlatformFailures.WithLabelValues("edit").Inc()
		return fmt.Errorf("failed to confirm join check: %w", err)
	}
	return nil
}

// answer acknowledges a button press. Failures only leave the client's
// spinner running, so they are logged.
func (d *Dispatcher) answer(ctx context.Context, callbackID, text string, alert bool) {
	if err := d.sender.AnswerCallback(ctx, callbackID, text, alert); err != nil {
		metrics.PlatformFailures.WithLabelValues("callback").Inc()
		d.logger.Warn("failed to answer callback", "callback_id", callbackID, "error", err)
	}
}

// claim reports whether the update is seen for the first time. A dedup
// backend failure lets the update through.
func (d *Dispatcher) claim(ctx context.Context, updateID int) bool {
	if d.dedup == nil {
		return true
	}
	first, err := d.dedup.PutNX(ctx, "update:"+strconv.Itoa(updateID), d.dedupTTL)
	if err != nil {
		d.logger.Warn("dedup unavailable", "update_id", updateID, "error", err)
		return true
	}
	if !first {
		metrics.DuplicateUpdates.Inc()
		d.logger.Debug("dropping redelivered update", "update_id", updateID)
	}
	return first
}

func displayName(u *tgbotapi.User) string {
	if name := strings.TrimSpace(u.FirstName + " " + u.LastName); name != "" {
		return name
	}
	if u.UserName != "" {
		return u.UserName
	}
	return strconv.FormatInt(u.ID, 10)
}
