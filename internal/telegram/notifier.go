// Package telegram connects the roster service to the Telegram Bot API.
package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/mmynk/rollcall/internal/roster"
)

// BotAPI is the part of *tgbotapi.BotAPI the adapter calls.
type BotAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	MakeRequest(endpoint string, params tgbotapi.Params) (*tgbotapi.APIResponse, error)
}

// Connect authenticates with the Bot API and starts long polling.
// Stop polling with bot.StopReceivingUpdates.
func Connect(token string, pollTimeout time.Duration, logger *slog.Logger) (*tgbotapi.BotAPI, tgbotapi.UpdatesChannel, error) {
	if err := tgbotapi.SetLogger(slog.NewLogLogger(logger.Handler(), slog.LevelWarn)); err != nil {
		return nil, nil, fmt.Errorf("failed to set bot logger: %w", err)
	}

	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to telegram: %w", err)
	}
	logger.Info("authorized with telegram", "username", bot.Self.UserName)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = int(pollTimeout / time.Second)
	u.AllowedUpdates = []string{"message", "callback_query"}
	return bot, bot.GetUpdatesChan(u), nil
}

// Notifier sends roster replies through the Bot API. Group and member
// IDs are Telegram's numeric chat and user IDs in decimal.
type Notifier struct {
	bot BotAPI
}

// NewNotifier creates a Notifier.
func NewNotifier(bot BotAPI) *Notifier {
	return &Notifier{bot: bot}
}

// SendMessage posts an HTML-formatted message to the chat.
func (n *Notifier) SendMessage(_ context.Context, groupID, text string) (string, error) {
	chatID, err := parseID("chat", groupID)
	if err != nil {
		return "", err
	}

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true

	sent, err := n.bot.Send(msg)
	if err != nil {
		return "", fmt.Errorf("sendMessage: %w", err)
	}
	return strconv.Itoa(sent.MessageID), nil
}

type reactionType struct {
	Type  string `json:"type"`
	Emoji string `json:"emoji"`
}

// ReactToMessage sets glyph as the bot's reaction on the message.
func (n *Notifier) ReactToMessage(_ context.Context, groupID, messageID, glyph string) error {
	if _, err := parseID("chat", groupID); err != nil {
		return err
	}
	if _, err := parseID("message", messageID); err != nil {
		return err
	}

	reaction, err := json.Marshal([]reactionType{{Type: "emoji", Emoji: glyph}})
	if err != nil {
		return fmt.Errorf("failed to encode reaction: %w", err)
	}
	params := tgbotapi.Params{
		"chat_id":    groupID,
		"message_id": messageID,
		"reaction":   string(reaction),
	}
	if _, err := n.bot.MakeRequest("setMessageReaction", params); err != nil {
		return fmt.Errorf("setMessageReaction: %w", err)
	}
	return nil
}

// RestrictMember removes every permission from the member, which stops
// them from posting. The restriction has no end date.
func (n *Notifier) RestrictMember(_ context.Context, groupID, memberID string) error {
	chatID, err := parseID("chat", groupID)
	if err != nil {
		return err
	}
	userID, err := parseID("user", memberID)
	if err != nil {
		return err
	}

	restrict := tgbotapi.RestrictChatMemberConfig{
		ChatMemberConfig: tgbotapi.ChatMemberConfig{ChatID: chatID, UserID: userID},
		Permissions:      &tgbotapi.ChatPermissions{},
	}
	if _, err := n.bot.Request(restrict); err != nil {
		return fmt.Errorf("restrictChatMember: %w", err)
	}
	return nil
}

// LiftRestriction gives the member back the permissions of a regular
// participant.
func (n *Notifier) LiftRestriction(_ context.Context, groupID, memberID string) error {
	chatID, err := parseID("chat", groupID)
	if err != nil {
		return err
	}
	userID, err := parseID("user", memberID)
	if err != nil {
		return err
	}

	restrict := tgbotapi.RestrictChatMemberConfig{
		ChatMemberConfig: tgbotapi.ChatMemberConfig{ChatID: chatID, UserID: userID},
		Permissions: &tgbotapi.ChatPermissions{
			CanSendMessages:       true,
			CanSendMediaMessages:  true,
			CanSendPolls:          true,
			CanSendOtherMessages:  true,
			CanAddWebPagePreviews: true,
			CanInviteUsers:        true,
		},
	}
	if _, err := n.bot.Request(restrict); err != nil {
		return fmt.Errorf("restrictChatMember: %w", err)
	}
	return nil
}

// challengePrefix marks callback data produced by SendChallenge.
const challengePrefix = "captcha:"

func challengeData(memberID, option string) string {
	return challengePrefix + memberID + ":" + option
}

// parseChallengeData splits callback data into the challenged member and
// the pressed option.
func parseChallengeData(data string) (memberID, option string, ok bool) {
	rest, ok := strings.CutPrefix(data, challengePrefix)
	if !ok {
		return "", "", false
	}
	memberID, option, ok = strings.Cut(rest, ":")
	if !ok || memberID == "" || option == "" {
		return "", "", false
	}
	return memberID, option, true
}

// SendChallenge posts the join check with its options as one row of
// inline buttons.
func (n *Notifier) SendChallenge(_ context.Context, groupID string, ch roster.Challenge) (string, error) {
	chatID, err := parseID("chat", groupID)
	if err != nil {
		return "", err
	}

	row := make([]tgbotapi.InlineKeyboardButton, len(ch.Options))
	for i, opt := range ch.Options {
		row[i] = tgbotapi.NewInlineKeyboardButtonData(opt, challengeData(ch.MemberID, opt))
	}
	msg := tgbotapi.NewMessage(chatID, ch.Text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(row)

	sent, err := n.bot.Send(msg)
	if err != nil {
		return "", fmt.Errorf("sendMessage: %w", err)
	}
	return strconv.Itoa(sent.MessageID), nil
}

// AnswerCallback stops the client's progress indicator on a button press.
// A non-empty text is shown to the presser, as a popup when alert is set.
func (n *Notifier) AnswerCallback(_ context.Context, callbackID, text string, alert bool) error {
	cb := tgbotapi.NewCallback(callbackID, text)
	cb.ShowAlert = alert
	if _, err := n.bot.Request(cb); err != nil {
		return fmt.Errorf("answerCallbackQuery: %w", err)
	}
	return nil
}

// EditMessage replaces the text of a message and removes its buttons.
func (n *Notifier) EditMessage(_ context.Context, groupID, messageID, text string) error {
	chatID, err := parseID("chat", groupID)
	if err != nil {
		return err
	}
	msgID, err := parseID("message", messageID)
	if err != nil {
		return err
	}

	edit := tgbotapi.NewEditMessageText(chatID, int(msgID), text)
	edit.ParseMode = tgbotapi.ModeHTML
	if _, err := n.bot.Request(edit); err != nil {
		return fmt.Errorf("editMessageText: %w", err)
	}
	return nil
}

func parseID(kind, s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s id %q: %w", kind, s, err)
	}
	return id, nil
}
