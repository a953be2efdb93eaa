package sqlite

import (
	"context"
	"fmt"

	"github.com/mmynk/rollcall/internal/models"
)

// RecordCheckin inserts the day's record. The composite primary key makes
// the insert itself the uniqueness check, so there is no read-then-write
// window between concurrent callers.
func (s *SQLiteStore) RecordCheckin(ctx context.Context, groupID, memberID string, day models.Day) (models.CheckinResult, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO checkins (group_id, member_id, day, created_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(group_id, member_id, day) DO NOTHING`,
		groupID, memberID, string(day), s.now(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to record checkin: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check checkin result: %w", err)
	}
	if affected == 0 {
		return models.AlreadyRecorded, nil
	}
	return models.Recorded, nil
}

// CountLifetime counts every record the member has in the group.
func (s *SQLiteStore) CountLifetime(ctx context.Context, groupID, memberID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM checkins WHERE group_id = ? AND member_id = ?",
		groupID, memberID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count checkins: %w", err)
	}
	return count, nil
}

// ListForDate returns member IDs with a record on day, oldest first.
func (s *SQLiteStore) ListForDate(ctx context.Context, groupID string, day models.Day) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT member_id FROM checkins WHERE group_id = ? AND day = ? ORDER BY created_at, member_id",
		groupID, string(day),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list checkins: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan checkin: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate checkins: %w", err)
	}

	return ids, nil
}

// Streak walks the member's days backwards from day and counts the
// unbroken run.
func (s *SQLiteStore) Streak(ctx context.Context, groupID, memberID string, day models.Day) (int, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT day FROM checkins WHERE group_id = ? AND member_id = ? AND day <= ? ORDER BY day DESC",
		groupID, memberID, string(day),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to query streak: %w", err)
	}
	defer rows.Close()

	streak := 0
	expected := day
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return 0, fmt.Errorf("failed to scan streak day: %w", err)
		}
		if models.Day(d) != expected {
			break
		}
		streak++
		expected = expected.Prev()
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("failed to iterate streak days: %w", err)
	}

	return streak, nil
}
