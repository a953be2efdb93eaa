package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mmynk/rollcall/internal/models"
	"github.com/mmynk/rollcall/internal/storage"
)

const groupColumns = `id, name, custom_fields, checkin_template, roster_template, welcome_template,
	reaction_glyph, auto_react, captcha_enabled, created_at, updated_at`

// EnsureGroup creates the group on first sight and returns it.
func (s *SQLiteStore) EnsureGroup(ctx context.Context, groupID, name string) (*models.Group, error) {
	now := s.now()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO groups (id, name, created_at, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET name = excluded.name
		 WHERE excluded.name != '' AND excluded.name != groups.name`,
		groupID, name, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure group: %w", err)
	}
	return s.GetGroup(ctx, groupID)
}

// GetGroup retrieves a group by ID.
func (s *SQLiteStore) GetGroup(ctx context.Context, groupID string) (*models.Group, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+groupColumns+" FROM groups WHERE id = ?",
		groupID,
	)
	group, err := scanGroup(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("group %s: %w", groupID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group: %w", err)
	}
	return group, nil
}

// ListGroups retrieves all groups.
func (s *SQLiteStore) ListGroups(ctx context.Context) ([]*models.Group, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+groupColumns+" FROM groups ORDER BY name, id")
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}
	defer rows.Close()

	var groups []*models.Group
	for rows.Next() {
		group, err := scanGroup(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan group: %w", err)
		}
		groups = append(groups, group)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate groups: %w", err)
	}

	return groups, nil
}

// UpdateGroup replaces the operator-editable settings of a group.
func (s *SQLiteStore) UpdateGroup(ctx context.Context, group *models.Group) error {
	fields := group.CustomFields
	if fields == nil {
		fields = []string{}
	}
	encoded, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("failed to encode custom fields: %w", err)
	}

	group.UpdatedAt = s.now()
	result, err := s.db.ExecContext(ctx,
		`UPDATE groups SET name = ?, custom_fields = ?, checkin_template = ?, roster_template = ?,
		 welcome_template = ?, reaction_glyph = ?, auto_react = ?, captcha_enabled = ?, updated_at = ?
		 WHERE id = ?`,
		group.Name, string(encoded), group.CheckinTemplate, group.RosterTemplate,
		group.WelcomeTemplate, group.ReactionGlyph, group.AutoReact, group.CaptchaEnabled, group.UpdatedAt,
		group.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update group: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("group %s: %w", group.ID, storage.ErrNotFound)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGroup(row rowScanner) (*models.Group, error) {
	group := &models.Group{}
	var fields string
	if err := row.Scan(
		&group.ID,
		&group.Name,
		&fields,
		&group.CheckinTemplate,
		&group.RosterTemplate,
		&group.WelcomeTemplate,
		&group.ReactionGlyph,
		&group.AutoReact,
		&group.CaptchaEnabled,
		&group.CreatedAt,
		&group.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(fields), &group.CustomFields); err != nil {
		return nil, fmt.Errorf("failed to decode custom fields: %w", err)
	}
	return group, nil
}
