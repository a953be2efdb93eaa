package sqlite

import (
	"database/sql"
	"fmt"
)

// schema contains the SQL statements to set up the database schema.
// These run on startup to ensure tables exist.
// The checkins primary key is what makes a check-in at most once per day.
const schema = `
CREATE TABLE IF NOT EXISTS groups (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL DEFAULT '',
    custom_fields TEXT NOT NULL DEFAULT '[]',
    checkin_template TEXT NOT NULL DEFAULT '',
    roster_template TEXT NOT NULL DEFAULT '',
    welcome_template TEXT NOT NULL DEFAULT '',
    reaction_glyph TEXT NOT NULL DEFAULT '',
    auto_react INTEGER NOT NULL DEFAULT 0,
    captcha_enabled INTEGER NOT NULL DEFAULT 0,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS members (
    group_id TEXT NOT NULL,
    member_id TEXT NOT NULL,
    name TEXT NOT NULL,
    attributes TEXT NOT NULL DEFAULT '{}',
    sort_key INTEGER NOT NULL DEFAULT 0,
    expires_at_ns INTEGER NOT NULL DEFAULT 0,
    updated_at INTEGER NOT NULL,
    PRIMARY KEY (group_id, member_id),
    FOREIGN KEY (group_id) REFERENCES groups(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS checkins (
    group_id TEXT NOT NULL,
    member_id TEXT NOT NULL,
    day TEXT NOT NULL,
    created_at INTEGER NOT NULL,
    PRIMARY KEY (group_id, member_id, day),
    FOREIGN KEY (group_id) REFERENCES groups(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS auto_replies (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    group_id TEXT NOT NULL,
    mode TEXT NOT NULL DEFAULT 'equals',
    trigger_text TEXT NOT NULL,
    reply TEXT NOT NULL,
    enabled INTEGER NOT NULL DEFAULT 1,
    FOREIGN KEY (group_id) REFERENCES groups(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS challenges (
    group_id TEXT NOT NULL,
    member_id TEXT NOT NULL,
    answer TEXT NOT NULL,
    created_at INTEGER NOT NULL,
    PRIMARY KEY (group_id, member_id),
    FOREIGN KEY (group_id) REFERENCES groups(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_members_group_sort ON members(group_id, sort_key DESC);
CREATE INDEX IF NOT EXISTS idx_checkins_group_day ON checkins(group_id, day);
CREATE INDEX IF NOT EXISTS idx_auto_replies_group_id ON auto_replies(group_id);
`

// addedColumns are columns introduced after a table was first created.
// Backfill runs once, right after the column is added.
var addedColumns = []struct {
	table, column, definition, backfill string
}{
	{"groups", "captcha_enabled", "INTEGER NOT NULL DEFAULT 0", ""},
	// Expiry used to be stored in whole seconds.
	{"members", "expires_at_ns", "INTEGER NOT NULL DEFAULT 0",
		"UPDATE members SET expires_at_ns = expires_at * 1000000000"},
}

// runMigrations executes the schema setup and adds missing columns to
// tables created by older versions.
func runMigrations(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return err
	}
	for _, c := range addedColumns {
		exists, err := hasColumn(db, c.table, c.column)
		if err != nil {
			return err
		}
		if exists {
			continue
		}
		if _, err := db.Exec(fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", c.table, c.column, c.definition)); err != nil {
			return fmt.Errorf("failed to add %s.%s: %w", c.table, c.column, err)
		}
		if c.backfill != "" {
			if _, err := db.Exec(c.backfill); err != nil {
				return fmt.Errorf("failed to backfill %s.%s: %w", c.table, c.column, err)
			}
		}
	}
	return nil
}

func hasColumn(db *sql.DB, table, column string) (bool, error) {
	var n int
	err := db.QueryRow("SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?", table, column).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to inspect %s: %w", table, err)
	}
	return n > 0, nil
}
