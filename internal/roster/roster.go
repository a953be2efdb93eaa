// Package roster handles chat events for roster members: check-ins,
// today's roster listing, acknowledgment reactions and expiry
// enforcement. It also greets new members and runs the optional join
// check that keeps them muted until they press the right button.
//
// Every event is handled from scratch. The only state carried between
// events is what the store persists (groups, members, check-in records).
package roster

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/mmynk/rollcall/internal/clock"
	"github.com/mmynk/rollcall/internal/events"
	"github.com/mmynk/rollcall/internal/models"
	"github.com/mmynk/rollcall/internal/storage"
)

// ErrSendFailed wraps a failure to deliver the primary reply of an event.
// The ledger write that preceded it is not rolled back.
var ErrSendFailed = errors.New("failed to send reply")

var tracer = otel.Tracer("github.com/mmynk/rollcall/internal/roster")

// NotificationPort is the chat platform as seen by the roster service.
// Every call returns an explicit error; only SendMessage failures on the
// primary reply path are surfaced to callers.
type NotificationPort interface {
	// SendMessage posts text to the group and returns the new message ID.
	SendMessage(ctx context.Context, groupID, text string) (string, error)

	// ReactToMessage puts glyph on an existing message.
	ReactToMessage(ctx context.Context, groupID, messageID, glyph string) error

	// RestrictMember revokes the member's permission to post.
	RestrictMember(ctx context.Context, groupID, memberID string) error

	// LiftRestriction gives a restricted member back permission to post.
	LiftRestriction(ctx context.Context, groupID, memberID string) error

	// SendChallenge posts a join check with one button per option and
	// returns the new message ID.
	SendChallenge(ctx context.Context, groupID string, ch Challenge) (string, error)
}

// Store is the persistence the roster service reads and writes.
type Store interface {
	storage.GroupStore
	storage.MemberStore
	storage.Ledger
	storage.ChallengeStore
}

// Message is an inbound text message from a group chat.
type Message struct {
	GroupID    string
	GroupName  string
	MemberID   string
	SenderName string
	MessageID  string
	Text       string
}

// Outcome describes how an event was handled.
type Outcome string

const (
	// OutcomeIgnored: the sender is not on the group's roster.
	OutcomeIgnored Outcome = "ignored"
	// OutcomeExpired: the sender's access has lapsed; posting was revoked.
	OutcomeExpired Outcome = "expired"
	// OutcomeAcknowledged: ordinary text from an active member was reacted to.
	OutcomeAcknowledged Outcome = "acknowledged"
	// OutcomePassive: ordinary text from an active member, no reaction configured.
	OutcomePassive Outcome = "passive"
	// OutcomeCheckedIn: the day's check-in was recorded and confirmed.
	OutcomeCheckedIn Outcome = "checked_in"
	// OutcomeAlreadyCheckedIn: the member had already checked in today.
	OutcomeAlreadyCheckedIn Outcome = "already_checked_in"
	// OutcomeRosterListed: today's roster was sent.
	OutcomeRosterListed Outcome = "roster_listed"
)

// IsCommand reports whether the outcome came from a check-in or roster
// command.
func (o Outcome) IsCommand() bool {
	switch o {
	case OutcomeCheckedIn, OutcomeAlreadyCheckedIn, OutcomeRosterListed:
		return true
	}
	return false
}

// Config carries the roster service's collaborators and settings. Zero
// fields get defaults: the real clock, UTC, DefaultCommands, DefaultTexts,
// a no-op publisher and slog.Default.
type Config struct {
	Clock     clock.Clock
	Location  *time.Location
	Commands  Commands
	Texts     Texts
	Publisher events.Publisher
	Logger    *slog.Logger
}

// Service orchestrates the store, the access gate, the template engine
// and the notification port for each chat event.
type Service struct {
	store     Store
	port      NotificationPort
	clock     clock.Clock
	loc       *time.Location
	commands  *commandSet
	texts     Texts
	publisher events.Publisher
	logger    *slog.Logger
}

// NewService creates a roster Service.
func NewService(store Store, port NotificationPort, cfg Config) *Service {
	if cfg.Clock == nil {
		cfg.Clock = clock.Real()
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if len(cfg.Commands.Checkin) == 0 && len(cfg.Commands.Roster) == 0 {
		cfg.Commands = DefaultCommands()
	}
	if cfg.Publisher == nil {
		cfg.Publisher = events.Nop{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Service{
		store:     store,
		port:      port,
		clock:     cfg.Clock,
		loc:       cfg.Location,
		commands:  newCommandSet(cfg.Commands),
		texts:     DefaultTexts().Merge(cfg.Texts),
		publisher: cfg.Publisher,
		logger:    cfg.Logger,
	}
}

// Today returns the current calendar day in the configured location.
func (s *Service) Today() models.Day {
	return models.DayOf(s.clock.Now().In(s.loc))
}
