package sqlite

import (
	"context"
	"fmt"

	"github.com/mmynk/rollcall/internal/models"
	"github.com/mmynk/rollcall/internal/storage"
)

// CreateAutoReply persists a new rule.
func (s *SQLiteStore) CreateAutoReply(ctx context.Context, reply *models.AutoReply) error {
	if reply.Mode == "" {
		reply.Mode = models.MatchEquals
	}

	result, err := s.db.ExecContext(ctx,
		`INSERT INTO auto_replies (group_id, mode, trigger_text, reply, enabled)
		 VALUES (?, ?, ?, ?, ?)`,
		reply.GroupID, string(reply.Mode), reply.Trigger, reply.Reply, reply.Enabled,
	)
	if err != nil {
		return fmt.Errorf("failed to insert auto reply: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read auto reply id: %w", err)
	}
	reply.ID = id

	return nil
}

// ListAutoReplies retrieves all rules for a group.
func (s *SQLiteStore) ListAutoReplies(ctx context.Context, groupID string) ([]*models.AutoReply, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, group_id, mode, trigger_text, reply, enabled
		 FROM auto_replies WHERE group_id = ? ORDER BY id`,
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list auto replies: %w", err)
	}
	defer rows.Close()

	var replies []*models.AutoReply
	for rows.Next() {
		reply := &models.AutoReply{}
		var mode string
		if err := rows.Scan(&reply.ID, &reply.GroupID, &mode, &reply.Trigger, &reply.Reply, &reply.Enabled); err != nil {
			return nil, fmt.Errorf("failed to scan auto reply: %w", err)
		}
		reply.Mode = models.MatchMode(mode)
		replies = append(replies, reply)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate auto replies: %w", err)
	}

	return replies, nil
}

// DeleteAutoReply removes a rule by ID.
func (s *SQLiteStore) DeleteAutoReply(ctx context.Context, groupID string, id int64) error {
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM auto_replies WHERE group_id = ? AND id = ?",
		groupID, id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete auto reply: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("auto reply %d: %w", id, storage.ErrNotFound)
	}

	return nil
}
