package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mmynk/rollcall/internal/storage"
)

// PutChallenge records the expected answer of a member's join check.
func (s *SQLiteStore) PutChallenge(ctx context.Context, groupID, memberID, answer string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO challenges (group_id, member_id, answer, created_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(group_id, member_id) DO UPDATE SET
		   answer = excluded.answer,
		   created_at = excluded.created_at`,
		groupID, memberID, answer, s.now(),
	)
	if err != nil {
		return fmt.Errorf("failed to put challenge: %w", err)
	}
	return nil
}

// GetChallenge returns the pending answer for the member.
func (s *SQLiteStore) GetChallenge(ctx context.Context, groupID, memberID string) (string, error) {
	var answer string
	err := s.db.QueryRowContext(ctx,
		"SELECT answer FROM challenges WHERE group_id = ? AND member_id = ?",
		groupID, memberID,
	).Scan(&answer)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("challenge for %s in group %s: %w", memberID, groupID, storage.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("failed to get challenge: %w", err)
	}
	return answer, nil
}

// DeleteChallenge removes the member's pending check if present.
func (s *SQLiteStore) DeleteChallenge(ctx context.Context, groupID, memberID string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM challenges WHERE group_id = ? AND member_id = ?",
		groupID, memberID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete challenge: %w", err)
	}
	return nil
}
