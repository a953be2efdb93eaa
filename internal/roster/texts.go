package roster

import "strings"

// Texts are the fixed replies the bot sends outside group templates.
// They are templates themselves and may use built-in variables.
type Texts struct {
	AlreadyCheckedIn string
	NobodyOnline     string
	RosterHeader     string
	Expired          string
	DefaultCheckin   string
	DefaultRosterRow string
	StatusGlyph      string

	CaptchaPrompt   string
	CaptchaPassed   string
	CaptchaWrong    string
	CaptchaNotYours string
	CaptchaStale    string
}

// DefaultTexts returns the built-in replies.
func DefaultTexts() Texts {
	return Texts{
		AlreadyCheckedIn: "✅ {name}, you have already checked in today ({streak} day streak)",
		NobodyOnline:     "📭 Nobody has checked in today yet",
		RosterHeader:     "📊 Checked in today: {count}",
		Expired:          "⛔ {name}, your access has expired",
		DefaultCheckin:   "🎉 {name} checked in ({streak} day streak)",
		DefaultRosterRow: "{status} {name}",
		StatusGlyph:      "🟢",
		CaptchaPrompt:    "🔐 {name}, press {code} below to start chatting",
		CaptchaPassed:    "✅ {name} is verified, welcome!",
		CaptchaWrong:     "❌ Wrong code, try again",
		CaptchaNotYours:  "This check is for another member",
		CaptchaStale:     "Nothing to verify",
	}
}

// Merge returns t with every non-empty field of over applied.
func (t Texts) Merge(over Texts) Texts {
	pick := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	pick(&t.AlreadyCheckedIn, over.AlreadyCheckedIn)
	pick(&t.NobodyOnline, over.NobodyOnline)
	pick(&t.RosterHeader, over.RosterHeader)
	pick(&t.Expired, over.Expired)
	pick(&t.DefaultCheckin, over.DefaultCheckin)
	pick(&t.DefaultRosterRow, over.DefaultRosterRow)
	pick(&t.StatusGlyph, over.StatusGlyph)
	pick(&t.CaptchaPrompt, over.CaptchaPrompt)
	pick(&t.CaptchaPassed, over.CaptchaPassed)
	pick(&t.CaptchaWrong, over.CaptchaWrong)
	pick(&t.CaptchaNotYours, over.CaptchaNotYours)
	pick(&t.CaptchaStale, over.CaptchaStale)
	return t
}

// Commands lists the message texts that trigger each command.
type Commands struct {
	Checkin []string
	Roster  []string
}

// DefaultCommands returns the built-in command words.
func DefaultCommands() Commands {
	return Commands{
		Checkin: []string{"打卡", "签到", "/checkin", "check in"},
		Roster:  []string{"在线用户", "/online", "online"},
	}
}

type command int

const (
	commandNone command = iota
	commandCheckin
	commandRoster
)

type commandSet struct {
	words map[string]command
}

func newCommandSet(c Commands) *commandSet {
	set := &commandSet{words: make(map[string]command)}
	for _, w := range c.Checkin {
		set.words[normalizeCommand(w)] = commandCheckin
	}
	for _, w := range c.Roster {
		set.words[normalizeCommand(w)] = commandRoster
	}
	return set
}

func (c *commandSet) match(text string) command {
	return c.words[normalizeCommand(text)]
}

// normalizeCommand trims and lowercases text and drops the "@botname"
// suffix chat clients append to slash commands.
func normalizeCommand(text string) string {
	text = strings.ToLower(strings.TrimSpace(text))
	if strings.HasPrefix(text, "/") {
		if i := strings.IndexByte(text, '@'); i > 0 {
			text = text[:i]
		}
	}
	return text
}
