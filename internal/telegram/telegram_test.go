package telegram

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/mmynk/rollcall/internal/clock"
	"github.com/mmynk/rollcall/internal/dedup"
	"github.com/mmynk/rollcall/internal/roster"
)

type rawRequest struct {
	endpoint string
	params   tgbotapi.Params
}

type fakeBot struct {
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
	raw      []rawRequest
	err      error
}

func (b *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if b.err != nil {
		return tgbotapi.Message{}, b.err
	}
	b.sent = append(b.sent, c)
	return tgbotapi.Message{MessageID: 100 + len(b.sent)}, nil
}

func (b *fakeBot) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	if b.err != nil {
		return nil, b.err
	}
	b.requests = append(b.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (b *fakeBot) MakeRequest(endpoint string, params tgbotapi.Params) (*tgbotapi.APIResponse, error) {
	if b.err != nil {
		return nil, b.err
	}
	b.raw = append(b.raw, rawRequest{endpoint, params})
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func TestNotifierSendMessage(t *testing.T) {
	bot := &fakeBot{}
	n := NewNotifier(bot)

	id, err := n.SendMessage(context.Background(), "-1001234", "<b>hi</b>")
	if err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}
	if id != "101" {
		t.Errorf("Expected message id 101, got %s", id)
	}

	msg, ok := bot.sent[0].(tgbotapi.MessageConfig)
	if !ok {
		t.Fatalf("Expected MessageConfig, got %T", bot.sent[0])
	}
	if msg.ChatID != -1001234 || msg.Text != "<b>hi</b>" || msg.ParseMode != tgbotapi.ModeHTML {
		t.Errorf("unexpected message: %+v", msg)
	}

	if _, err := n.SendMessage(context.Background(), "not-a-chat", "hi"); err == nil {
		t.Error("Expected error for non-numeric chat id")
	}

	bot.err = errors.New("Forbidden: bot was kicked")
	if _, err := n.SendMessage(context.Background(), "-1001234", "hi"); err == nil {
		t.Error("Expected API error to be returned")
	}
}

func TestNotifierReact(t *testing.T) {
	bot := &fakeBot{}
	n := NewNotifier(bot)

	if err := n.ReactToMessage(context.Background(), "-1001234", "77", "👍"); err != nil {
		t.Fatalf("ReactToMessage failed: %v", err)
	}
	if len(bot.raw) != 1 || bot.raw[0].endpoint != "setMessageReaction" {
		t.Fatalf("Expected setMessageReaction, got %+v", bot.raw)
	}
	p := bot.raw[0].params
	if p["chat_id"] != "-1001234" || p["message_id"] != "77" {
		t.Errorf("unexpected params: %v", p)
	}
	if want := `[{"type":"emoji","emoji":"👍"}]`; p["reaction"] != want {
		t.Errorf("Expected reaction %s, got %s", want, p["reaction"])
	}
}

func TestNotifierRestrict(t *testing.T) {
	bot := &fakeBot{}
	n := NewNotifier(bot)

	if err := n.RestrictMember(context.Background(), "-1001234", "555"); err != nil {
		t.Fatalf("RestrictMember failed: %v", err)
	}
	cfg, ok := bot.requests[0].(tgbotapi.RestrictChatMemberConfig)
	if !ok {
		t.Fatalf("Expected RestrictChatMemberConfig, got %T", bot.requests[0])
	}
	if cfg.ChatID != -1001234 || cfg.UserID != 555 {
		t.Errorf("unexpected target: chat %d user %d", cfg.ChatID, cfg.UserID)
	}
	if cfg.Permissions == nil || cfg.Permissions.CanSendMessages {
		t.Errorf("Expected all permissions revoked, got %+v", cfg.Permissions)
	}

	if err := n.RestrictMember(context.Background(), "-1001234", "bob"); err == nil {
		t.Error("Expected error for non-numeric user id")
	}
}

func TestNotifierLiftRestriction(t *testing.T) {
	bot := &fakeBot{}
	n := NewNotifier(bot)

	if err := n.LiftRestriction(context.Background(), "-1001234", "555"); err != nil {
		t.Fatalf("LiftRestriction failed: %v", err)
	}
	cfg, ok := bot.requests[0].(tgbotapi.RestrictChatMemberConfig)
	if !ok {
		t.Fatalf("Expected RestrictChatMemberConfig, got %T", bot.requests[0])
	}
	if cfg.UserID != 555 || cfg.Permissions == nil || !cfg.Permissions.CanSendMessages {
		t.Errorf("Expected posting to be allowed again, got %+v", cfg.Permissions)
	}
}

func TestNotifierSendChallenge(t *testing.T) {
	bot := &fakeBot{}
	n := NewNotifier(bot)

	ch := roster.Challenge{MemberID: "555", Text: "press 0042", Answer: "0042", Options: []string{"9130", "0042", "7781"}}
	id, err := n.SendChallenge(context.Background(), "-1001234", ch)
	if err != nil {
		t.Fatalf("SendChallenge failed: %v", err)
	}
	if id != "101" {
		t.Errorf("Expected message id 101, got %s", id)
	}

	msg := bot.sent[0].(tgbotapi.MessageConfig)
	markup, ok := msg.ReplyMarkup.(tgbotapi.InlineKeyboardMarkup)
	if !ok {
		t.Fatalf("Expected inline keyboard, got %T", msg.ReplyMarkup)
	}
	row := markup.InlineKeyboard[0]
	if len(row) != 3 {
		t.Fatalf("Expected 3 buttons, got %d", len(row))
	}
	for i, button := range row {
		if button.Text != ch.Options[i] {
			t.Errorf("button %d text = %q, want %q", i, button.Text, ch.Options[i])
		}
		member, option, ok := parseChallengeData(*button.CallbackData)
		if !ok || member != "555" || option != ch.Options[i] {
			t.Errorf("button %d data = %q", i, *button.CallbackData)
		}
	}
}

func TestParseChallengeData(t *testing.T) {
	for data, wantOK := range map[string]bool{
		"captcha:555:0042": true,
		"captcha:555:":     false,
		"captcha::0042":    false,
		"captcha:555":      false,
		"vote:555:0042":    false,
		"":                 false,
	} {
		if _, _, ok := parseChallengeData(data); ok != wantOK {
			t.Errorf("parseChallengeData(%q) ok = %v, want %v", data, ok, wantOK)
		}
	}
}

func TestNotifierCallbackAndEdit(t *testing.T) {
	bot := &fakeBot{}
	n := NewNotifier(bot)
	ctx := context.Background()

	if err := n.AnswerCallback(ctx, "cb-1", "Wrong code", true); err != nil {
		t.Fatalf("AnswerCallback failed: %v", err)
	}
	cb, ok := bot.requests[0].(tgbotapi.CallbackConfig)
	if !ok || cb.CallbackQueryID != "cb-1" || cb.Text != "Wrong code" || !cb.ShowAlert {
		t.Errorf("unexpected callback answer: %+v", bot.requests[0])
	}

	if err := n.EditMessage(ctx, "-1001234", "77", "<b>done</b>"); err != nil {
		t.Fatalf("EditMessage failed: %v", err)
	}
	edit, ok := bot.requests[1].(tgbotapi.EditMessageTextConfig)
	if !ok || edit.ChatID != -1001234 || edit.MessageID != 77 || edit.Text != "<b>done</b>" || edit.ParseMode != tgbotapi.ModeHTML {
		t.Errorf("unexpected edit: %+v", bot.requests[1])
	}
}

type fakeRoster struct {
	messages []roster.Message
	welcomed [][]roster.Joiner
	answers  []roster.ChallengeAnswer
	result   roster.ChallengeResult
	outcome  roster.Outcome
	err      error
}

func (r *fakeRoster) HandleMessage(_ context.Context, msg roster.Message) (roster.Outcome, error) {
	r.messages = append(r.messages, msg)
	return r.outcome, r.err
}

func (r *fakeRoster) Welcome(_ context.Context, _, _ string, joiners []roster.Joiner) error {
	r.welcomed = append(r.welcomed, joiners)
	return nil
}

func (r *fakeRoster) AnswerChallenge(_ context.Context, a roster.ChallengeAnswer) (roster.ChallengeResult, error) {
	r.answers = append(r.answers, a)
	return r.result, r.err
}

type fakeReplier struct{ calls int }

func (r *fakeReplier) Reply(_ context.Context, _, _, sender, text string) (string, bool, error) {
	r.calls++
	if text == "rules" {
		return "Be kind, " + sender, true, nil
	}
	return "", false, nil
}

type callbackAnswer struct {
	id, text string
	alert    bool
}

type fakeSender struct {
	texts    []string
	answered []callbackAnswer
	edited   []string
}

func (s *fakeSender) SendMessage(_ context.Context, _, text string) (string, error) {
	s.texts = append(s.texts, text)
	return "1", nil
}
func (s *fakeSender) ReactToMessage(context.Context, string, string, string) error { return nil }
func (s *fakeSender) RestrictMember(context.Context, string, string) error { return nil }
func (s *fakeSender) LiftRestriction(context.Context, string, string) error { return nil }
func (s *fakeSender) SendChallenge(context.Context, string, roster.Challenge) (string, error) {
	return "1", nil
}
func (s *fakeSender) AnswerCallback(_ context.Context, id, text string, alert bool) error {
	s.answered = append(s.answered, callbackAnswer{id, text, alert})
	return nil
}
func (s *fakeSender) EditMessage(_ context.Context, groupID, messageID, text string) error {
	s.edited = append(s.edited, groupID+"/"+messageID+": "+text)
	return nil
}

type dispatchFixture struct {
	d       *Dispatcher
	roster  *fakeRoster
	replier *fakeReplier
	sender  *fakeSender
}

func newDispatchFixture(outcome roster.Outcome) *dispatchFixture {
	f := &dispatchFixture{
		roster:  &fakeRoster{outcome: outcome},
		replier: &fakeReplier{},
		sender:  &fakeSender{},
	}
	f.d = NewDispatcher(DispatcherConfig{
		Roster:  f.roster,
		Replies: f.replier,
		Sender:  f.sender,
		Dedup:   dedup.NewMemory(clock.Fake(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))),
	})
	return f
}

func groupUpdate(id int, text string) tgbotapi.Update {
	return tgbotapi.Update{
		UpdateID: id,
		Message: &tgbotapi.Message{
			MessageID: 42,
			From:      &tgbotapi.User{ID: 555, FirstName: "Alice", LastName: "Smith"},
			Chat:      &tgbotapi.Chat{ID: -1001234, Type: "supergroup", Title: "Night Owls"},
			Text:      text,
		},
	}
}

func TestDispatcherMessage(t *testing.T) {
	f := newDispatchFixture(roster.OutcomeCheckedIn)

	if err := f.d.HandleUpdate(context.Background(), groupUpdate(1, "打卡")); err != nil {
		t.Fatalf("HandleUpdate failed: %v", err)
	}
	if len(f.roster.messages) != 1 {
		t.Fatalf("Expected 1 roster event, got %d", len(f.roster.messages))
	}
	want := roster.Message{
		GroupID:    "-1001234",
		GroupName:  "Night Owls",
		MemberID:   "555",
		SenderName: "Alice Smith",
		MessageID:  "42",
		Text:       "打卡",
	}
	if f.roster.messages[0] != want {
		t.Errorf("Expected %+v, got %+v", want, f.roster.messages[0])
	}
	if f.replier.calls != 0 {
		t.Error("Expected commands to skip auto replies")
	}
}

func TestDispatcherDropsRedelivery(t *testing.T) {
	f := newDispatchFixture(roster.OutcomePassive)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := f.d.HandleUpdate(ctx, groupUpdate(7, "hello")); err != nil {
			t.Fatalf("HandleUpdate failed: %v", err)
		}
	}
	if len(f.roster.messages) != 1 {
		t.Errorf("Expected redelivered update to be handled once, got %d", len(f.roster.messages))
	}
}

func TestDispatcherAutoReply(t *testing.T) {
	tests := []struct {
		name    string
		outcome roster.Outcome
		want    int
	}{
		{"active member", roster.OutcomeAcknowledged, 1},
		{"not on roster", roster.OutcomeIgnored, 1},
		{"expired member", roster.OutcomeExpired, 0},
		{"roster command", roster.OutcomeRosterListed, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newDispatchFixture(tt.outcome)
			if err := f.d.HandleUpdate(context.Background(), groupUpdate(1, "rules")); err != nil {
				t.Fatalf("HandleUpdate failed: %v", err)
			}
			if len(f.sender.texts) != tt.want {
				t.Errorf("Expected %d auto replies, got %q", tt.want, f.sender.texts)
			}
			if tt.want == 1 && f.sender.texts[0] != "Be kind, Alice Smith" {
				t.Errorf("unexpected reply %q", f.sender.texts[0])
			}
		})
	}
}

func TestDispatcherIgnores(t *testing.T) {
	private := groupUpdate(1, "打卡")
	private.Message.Chat.Type = "private"

	bot := groupUpdate(2, "打卡")
	bot.Message.From.IsBot = true

	noMessage := tgbotapi.Update{UpdateID: 3}

	f := newDispatchFixture(roster.OutcomeCheckedIn)
	for _, u := range []tgbotapi.Update{private, bot, noMessage} {
		if err := f.d.HandleUpdate(context.Background(), u); err != nil {
			t.Fatalf("HandleUpdate failed: %v", err)
		}
	}
	if len(f.roster.messages) != 0 {
		t.Errorf("Expected no roster events, got %+v", f.roster.messages)
	}
}

func TestDispatcherWelcome(t *testing.T) {
	f := newDispatchFixture(roster.OutcomePassive)
	u := groupUpdate(1, "")
	u.Message.NewChatMembers = []tgbotapi.User{
		{ID: 1, FirstName: "Zoe"},
		{ID: 2, UserName: "rollcall_bot", IsBot: true},
		{ID: 3, UserName: "yan"},
	}

	if err := f.d.HandleUpdate(context.Background(), u); err != nil {
		t.Fatalf("HandleUpdate failed: %v", err)
	}
	if len(f.roster.welcomed) != 1 {
		t.Fatalf("Expected 1 welcome, got %d", len(f.roster.welcomed))
	}
	want := []roster.Joiner{{MemberID: "1", Name: "Zoe"}, {MemberID: "3", Name: "yan"}}
	if got := f.roster.welcomed[0]; len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("Expected %v, got %v", want, got)
	}
	if len(f.roster.messages) != 0 {
		t.Error("Expected join event not to reach the roster state machine")
	}
}

func TestDispatcherRun(t *testing.T) {
	f := newDispatchFixture(roster.OutcomePassive)
	f.roster.err = errors.New("database is locked")

	updates := make(chan tgbotapi.Update, 2)
	updates <- groupUpdate(1, "a")
	updates <- groupUpdate(2, "b")
	close(updates)

	if err := f.d.Run(context.Background(), updates); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(f.roster.messages) != 2 {
		t.Errorf("Expected both updates handled despite errors, got %d", len(f.roster.messages))
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := f.d.Run(ctx, make(chan tgbotapi.Update)); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func callbackUpdate(id int, presserID int64, data string) tgbotapi.Update {
	return tgbotapi.Update{
		UpdateID: id,
		CallbackQuery: &tgbotapi.CallbackQuery{
			ID:   "cb-" + strconv.Itoa(id),
			From: &tgbotapi.User{ID: presserID, FirstName: "Zoe"},
			Message: &tgbotapi.Message{
				MessageID: 90,
				Chat:      &tgbotapi.Chat{ID: -1001234, Type: "supergroup"},
			},
			Data: data,
		},
	}
}

func TestDispatcherChallengeAnswer(t *testing.T) {
	t.Run("correct answer replaces the check", func(t *testing.T) {
		f := newDispatchFixture(roster.OutcomePassive)
		f.roster.result = roster.ChallengeResult{Passed: true, Text: "✅ Zoe is verified"}

		if err := f.d.HandleUpdate(context.Background(), callbackUpdate(1, 555, "captcha:555:0042")); err != nil {
			t.Fatalf("HandleUpdate failed: %v", err)
		}
		want := roster.ChallengeAnswer{GroupID: "-1001234", MemberID: "555", PresserID: "555", Name: "Zoe", Choice: "0042"}
		if len(f.roster.answers) != 1 || f.roster.answers[0] != want {
			t.Fatalf("Expected %+v, got %+v", want, f.roster.answers)
		}
		if len(f.sender.edited) != 1 || f.sender.edited[0] != "-1001234/90: ✅ Zoe is verified" {
			t.Errorf("unexpected edits: %q", f.sender.edited)
		}
		if len(f.sender.answered) != 1 || f.sender.answered[0].alert {
			t.Errorf("Expected a silent callback answer, got %+v", f.sender.answered)
		}
	})

	t.Run("rejected answer shows a popup", func(t *testing.T) {
		f := newDispatchFixture(roster.OutcomePassive)
		f.roster.result = roster.ChallengeResult{Text: "❌ Wrong code, try again"}

		if err := f.d.HandleUpdate(context.Background(), callbackUpdate(1, 777, "captcha:555:1111")); err != nil {
			t.Fatalf("HandleUpdate failed: %v", err)
		}
		if f.roster.answers[0].PresserID != "777" {
			t.Errorf("Expected presser 777, got %+v", f.roster.answers[0])
		}
		want := callbackAnswer{id: "cb-1", text: "❌ Wrong code, try again", alert: true}
		if len(f.sender.answered) != 1 || f.sender.answered[0] != want {
			t.Errorf("Expected %+v, got %+v", want, f.sender.answered)
		}
		if len(f.sender.edited) != 0 {
			t.Errorf("Expected no edit, got %q", f.sender.edited)
		}
	})

	t.Run("unrelated button is acknowledged only", func(t *testing.T) {
		f := newDispatchFixture(roster.OutcomePassive)
		if err := f.d.HandleUpdate(context.Background(), callbackUpdate(1, 555, "vote:yes")); err != nil {
			t.Fatalf("HandleUpdate failed: %v", err)
		}
		if len(f.roster.answers) != 0 || len(f.sender.answered) != 1 {
			t.Errorf("unexpected handling: answers %+v, callbacks %+v", f.roster.answers, f.sender.answered)
		}
	})

	t.Run("redelivered press is handled once", func(t *testing.T) {
		f := newDispatchFixture(roster.OutcomePassive)
		f.roster.result = roster.ChallengeResult{Passed: true, Text: "ok"}
		for i := 0; i < 2; i++ {
			if err := f.d.HandleUpdate(context.Background(), callbackUpdate(5, 555, "captcha:555:0042")); err != nil {
				t.Fatalf("HandleUpdate failed: %v", err)
			}
		}
		if len(f.roster.answers) != 1 {
			t.Errorf("Expected 1 answer, got %d", len(f.roster.answers))
		}
	})
}
