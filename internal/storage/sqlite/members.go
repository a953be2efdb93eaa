package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mmynk/rollcall/internal/models"
	"github.com/mmynk/rollcall/internal/storage"
)

const memberColumns = "group_id, member_id, name, attributes, sort_key, expires_at_ns, updated_at"

// GetMember retrieves a roster entry.
func (s *SQLiteStore) GetMember(ctx context.Context, groupID, memberID string) (*models.Member, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+memberColumns+" FROM members WHERE group_id = ? AND member_id = ?",
		groupID, memberID,
	)
	member, err := scanMember(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("member %s in group %s: %w", memberID, groupID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get member: %w", err)
	}
	return member, nil
}

// UpsertMember inserts or wholly replaces a roster entry.
func (s *SQLiteStore) UpsertMember(ctx context.Context, member *models.Member) error {
	attrs, err := member.Attributes.Encode()
	if err != nil {
		return err
	}

	member.UpdatedAt = s.now()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO members (group_id, member_id, name, attributes, sort_key, expires_at_ns, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(group_id, member_id) DO UPDATE SET
		   name = excluded.name,
		   attributes = excluded.attributes,
		   sort_key = excluded.sort_key,
		   expires_at_ns = excluded.expires_at_ns,
		   updated_at = excluded.updated_at`,
		member.GroupID, member.ID, member.Name, attrs, member.SortKey,
		expiryToNanos(member.ExpiresAt), member.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert member: %w", err)
	}

	return nil
}

// DeleteMember removes a roster entry if present.
func (s *SQLiteStore) DeleteMember(ctx context.Context, groupID, memberID string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM members WHERE group_id = ? AND member_id = ?",
		groupID, memberID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete member: %w", err)
	}
	return nil
}

// ListMembers retrieves a group's roster, highest sort key first.
func (s *SQLiteStore) ListMembers(ctx context.Context, groupID, filter string) ([]*models.Member, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+memberColumns+" FROM members WHERE group_id = ? ORDER BY sort_key DESC, member_id",
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	// SQLite's lower() only folds ASCII, so the filter runs here.
	needle := strings.ToLower(strings.TrimSpace(filter))

	var members []*models.Member
	for rows.Next() {
		member, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		if needle != "" &&
			!strings.Contains(strings.ToLower(member.Name), needle) &&
			!strings.Contains(strings.ToLower(member.ID), needle) {
			continue
		}
		members = append(members, member)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate members: %w", err)
	}

	return members, nil
}

func scanMember(row rowScanner) (*models.Member, error) {
	member := &models.Member{}
	var attrs string
	var expiresAt int64
	if err := row.Scan(
		&member.GroupID,
		&member.ID,
		&member.Name,
		&attrs,
		&member.SortKey,
		&expiresAt,
		&member.UpdatedAt,
	); err != nil {
		return nil, err
	}

	bag, err := models.DecodeAttributes(attrs)
	if err != nil {
		return nil, err
	}
	member.Attributes = bag
	member.ExpiresAt = expiryFromNanos(expiresAt)

	return member, nil
}

// expiryToNanos stores "never expires" as 0. Nanoseconds keep the
// stored instant identical to the one the caller compared against.
func expiryToNanos(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func expiryFromNanos(v int64) time.Time {
	if v == 0 {
		return time.Time{}
	}
	return time.Unix(0, v).UTC()
}
