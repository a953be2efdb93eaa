// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/mmynk/rollcall/internal/models"
)

// ErrNotFound is returned when a group, member or rule does not exist.
var ErrNotFound = errors.New("not found")

// GroupStore persists group settings.
type GroupStore interface {
	// EnsureGroup returns the group with the given ID, creating it with
	// default settings if it has never been seen. The display name of an
	// existing group is refreshed when name is non-empty.
	EnsureGroup(ctx context.Context, groupID, name string) (*models.Group, error)

	// GetGroup retrieves a group by ID. Returns ErrNotFound if absent.
	GetGroup(ctx context.Context, groupID string) (*models.Group, error)

	// ListGroups returns all known groups ordered by name.
	ListGroups(ctx context.Context) ([]*models.Group, error)

	// UpdateGroup replaces every operator-editable setting of an existing
	// group. Returns ErrNotFound if absent.
	UpdateGroup(ctx context.Context, group *models.Group) error
}

// MemberStore persists roster entries and their attribute bags.
type MemberStore interface {
	// GetMember retrieves a roster entry. Returns ErrNotFound if absent.
	GetMember(ctx context.Context, groupID, memberID string) (*models.Member, error)

	// UpsertMember writes the whole record, replacing any existing entry
	// for (GroupID, ID). Attributes are replaced, not merged.
	UpsertMember(ctx context.Context, member *models.Member) error

	// DeleteMember removes a roster entry. Deleting an absent entry is
	// not an error.
	DeleteMember(ctx context.Context, groupID, memberID string) error

	// ListMembers returns the group's roster ordered by sort key
	// descending. A non-empty filter keeps members whose name or ID
	// contains it, case-insensitively.
	ListMembers(ctx context.Context, groupID, filter string) ([]*models.Member, error)
}

// Ledger records daily check-ins.
type Ledger interface {
	// RecordCheckin creates the (group, member, day) record. Exactly one
	// of any number of concurrent calls for the same key returns
	// Recorded; the others return AlreadyRecorded.
	RecordCheckin(ctx context.Context, groupID, memberID string, day models.Day) (models.CheckinResult, error)

	// CountLifetime returns the total number of records for the member.
	CountLifetime(ctx context.Context, groupID, memberID string) (int, error)

	// ListForDate returns the IDs of members with a record on day, in
	// check-in order. Callers join against the roster for sort keys.
	ListForDate(ctx context.Context, groupID string, day models.Day) ([]string, error)

	// Streak returns the number of consecutive days with a record,
	// ending at day. It is 0 when day itself has no record.
	Streak(ctx context.Context, groupID, memberID string, day models.Day) (int, error)
}

// ReplyStore persists keyword auto-reply rules.
type ReplyStore interface {
	// CreateAutoReply persists a new rule and sets its ID.
	CreateAutoReply(ctx context.Context, reply *models.AutoReply) error

	// ListAutoReplies returns the group's rules in ID order.
	ListAutoReplies(ctx context.Context, groupID string) ([]*models.AutoReply, error)

	// DeleteAutoReply removes a rule. Returns ErrNotFound if absent.
	DeleteAutoReply(ctx context.Context, groupID string, id int64) error
}

// ChallengeStore persists pending join checks, one per member.
type ChallengeStore interface {
	// PutChallenge sets the expected answer for the member, replacing any
	// pending one.
	PutChallenge(ctx context.Context, groupID, memberID, answer string) error

	// GetChallenge returns the expected answer. Returns ErrNotFound if
	// the member has no pending check.
	GetChallenge(ctx context.Context, groupID, memberID string) (string, error)

	// DeleteChallenge clears the pending check. Deleting an absent check
	// is not an error.
	DeleteChallenge(ctx context.Context, groupID, memberID string) error
}

// Store defines every persistence operation Rollcall needs.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL, etc.)
// without changing the service layer.
type Store interface {
	GroupStore
	MemberStore
	Ledger
	ReplyStore
	ChallengeStore

	// Close releases any resources held by the store.
	Close() error
}
