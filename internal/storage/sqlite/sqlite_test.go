package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"maps"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/mmynk/rollcall/internal/clock"
	"github.com/mmynk/rollcall/internal/models"
	"github.com/mmynk/rollcall/internal/storage"
)

func newTestStore(t *testing.T) (*SQLiteStore, *clock.FakeClock) {
	t.Helper()

	// Create temp directory for test database
	tempDir, err := os.MkdirTemp("", "rollcall-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tempDir) })

	clk := clock.Fake(time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC))
	store, err := New(filepath.Join(tempDir, "test.db"), clk)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	return store, clk
}

func TestGroups(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	t.Run("EnsureGroup creates on first sight", func(t *testing.T) {
		group, err := store.EnsureGroup(ctx, "G1", "Night Owls")
		if err != nil {
			t.Fatalf("EnsureGroup failed: %v", err)
		}
		if group.ID != "G1" || group.Name != "Night Owls" {
			t.Errorf("unexpected group: %+v", group)
		}
		if group.CreatedAt == 0 {
			t.Error("Expected CreatedAt to be set")
		}
		if len(group.CustomFields) != 0 {
			t.Errorf("Expected no custom fields, got %v", group.CustomFields)
		}
	})

	t.Run("EnsureGroup keeps settings and refreshes name", func(t *testing.T) {
		group, _ := store.EnsureGroup(ctx, "G1", "")
		group.CheckinTemplate = "✅ {name}"
		group.CustomFields = []string{"region", "price"}
		if err := store.UpdateGroup(ctx, group); err != nil {
			t.Fatalf("UpdateGroup failed: %v", err)
		}

		again, err := store.EnsureGroup(ctx, "G1", "Early Birds")
		if err != nil {
			t.Fatalf("EnsureGroup failed: %v", err)
		}
		if again.Name != "Early Birds" {
			t.Errorf("Name = %q, want %q", again.Name, "Early Birds")
		}
		if again.CheckinTemplate != "✅ {name}" {
			t.Errorf("CheckinTemplate lost: %q", again.CheckinTemplate)
		}

		unchanged, _ := store.EnsureGroup(ctx, "G1", "")
		if unchanged.Name != "Early Birds" {
			t.Errorf("empty name must not overwrite, got %q", unchanged.Name)
		}
	})

	t.Run("UpdateGroup replaces every setting", func(t *testing.T) {
		update := &models.Group{
			ID:              "G1",
			Name:            "Renamed",
			CustomFields:    []string{"contact"},
			CheckinTemplate: "hi {name}",
			RosterTemplate:  "{status} {name} {contact}",
			WelcomeTemplate: "welcome {user}",
			ReactionGlyph:   "👍",
			AutoReact:       true,
			CaptchaEnabled:  true,
		}
		if err := store.UpdateGroup(ctx, update); err != nil {
			t.Fatalf("UpdateGroup failed: %v", err)
		}

		got, err := store.GetGroup(ctx, "G1")
		if err != nil {
			t.Fatalf("GetGroup failed: %v", err)
		}
		if got.Name != "Renamed" || got.RosterTemplate != update.RosterTemplate ||
			got.WelcomeTemplate != update.WelcomeTemplate || got.ReactionGlyph != "👍" || !got.AutoReact || !got.CaptchaEnabled {
			t.Errorf("settings mismatch: %+v", got)
		}
		if len(got.CustomFields) != 1 || got.CustomFields[0] != "contact" {
			t.Errorf("CustomFields = %v, want [contact]", got.CustomFields)
		}
	})

	t.Run("UpdateGroup on unknown group", func(t *testing.T) {
		err := store.UpdateGroup(ctx, &models.Group{ID: "nope"})
		if !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("GetGroup returns ErrNotFound", func(t *testing.T) {
		_, err := store.GetGroup(ctx, "missing")
		if !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("ListGroups", func(t *testing.T) {
		store.EnsureGroup(ctx, "G2", "Another")
		groups, err := store.ListGroups(ctx)
		if err != nil {
			t.Fatalf("ListGroups failed: %v", err)
		}
		if len(groups) != 2 {
			t.Errorf("Expected 2 groups, got %d", len(groups))
		}
	})
}

func TestMembers(t *testing.T) {
	store, clk := newTestStore(t)
	ctx := context.Background()

	if _, err := store.EnsureGroup(ctx, "G1", "Group"); err != nil {
		t.Fatalf("EnsureGroup failed: %v", err)
	}

	t.Run("Upsert then Get round-trips attributes", func(t *testing.T) {
		bags := []models.Attributes{
			{},
			{"region": "north"},
			{"region": "south", "price": "", "地区": "上海", "link": `https://t.me/x?q="1"`},
		}
		for i, bag := range bags {
			member := &models.Member{GroupID: "G1", ID: "alice", Name: "Alice", Attributes: bag, SortKey: i}
			if err := store.UpsertMember(ctx, member); err != nil {
				t.Fatalf("UpsertMember failed: %v", err)
			}
			got, err := store.GetMember(ctx, "G1", "alice")
			if err != nil {
				t.Fatalf("GetMember failed: %v", err)
			}
			if !maps.Equal(got.Attributes, bag) {
				t.Errorf("Attributes = %v, want %v", got.Attributes, bag)
			}
			if got.SortKey != i {
				t.Errorf("SortKey = %d, want %d", got.SortKey, i)
			}
		}
	})

	t.Run("Upsert is a full replace", func(t *testing.T) {
		expiry := clk.Now().Add(48 * time.Hour)
		store.UpsertMember(ctx, &models.Member{
			GroupID: "G1", ID: "bob", Name: "Bob",
			Attributes: models.Attributes{"region": "east", "price": "10"},
			SortKey:    3, ExpiresAt: expiry,
		})
		store.UpsertMember(ctx, &models.Member{
			GroupID: "G1", ID: "bob", Name: "Robert",
			Attributes: models.Attributes{"contact": "@bob"},
		})

		got, err := store.GetMember(ctx, "G1", "bob")
		if err != nil {
			t.Fatalf("GetMember failed: %v", err)
		}
		if got.Name != "Robert" {
			t.Errorf("Name = %q, want Robert", got.Name)
		}
		if !maps.Equal(got.Attributes, models.Attributes{"contact": "@bob"}) {
			t.Errorf("Attributes were merged: %v", got.Attributes)
		}
		if got.SortKey != 0 || !got.ExpiresAt.IsZero() {
			t.Errorf("SortKey/ExpiresAt not replaced: %d %v", got.SortKey, got.ExpiresAt)
		}
	})

	t.Run("Expiry round-trips the full timestamp", func(t *testing.T) {
		expiry := time.Date(2024, 1, 1, 12, 0, 0, 900_000_000, time.UTC)
		store.UpsertMember(ctx, &models.Member{GroupID: "G1", ID: "carol", Name: "Carol", ExpiresAt: expiry})
		got, _ := store.GetMember(ctx, "G1", "carol")
		if !got.ExpiresAt.Equal(expiry) {
			t.Errorf("ExpiresAt = %v, want %v", got.ExpiresAt, expiry)
		}

		// Half a second before the stored instant the member is still active.
		now := time.Date(2024, 1, 1, 12, 0, 0, 500_000_000, time.UTC)
		if !got.ExpiresAt.After(now) {
			t.Errorf("stored expiry %v is not after %v", got.ExpiresAt, now)
		}
	})

	t.Run("GetMember returns ErrNotFound", func(t *testing.T) {
		_, err := store.GetMember(ctx, "G1", "ghost")
		if !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("Delete is idempotent", func(t *testing.T) {
		if err := store.DeleteMember(ctx, "G1", "carol"); err != nil {
			t.Fatalf("DeleteMember failed: %v", err)
		}
		if err := store.DeleteMember(ctx, "G1", "carol"); err != nil {
			t.Errorf("second DeleteMember failed: %v", err)
		}
		if _, err := store.GetMember(ctx, "G1", "carol"); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("member still present: %v", err)
		}
	})

	t.Run("Upsert into unknown group fails", func(t *testing.T) {
		err := store.UpsertMember(ctx, &models.Member{GroupID: "nope", ID: "x", Name: "X"})
		if err == nil {
			t.Error("expected foreign key error for unknown group")
		}
	})
}

func TestListMembers(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	store.EnsureGroup(ctx, "G1", "Group")
	store.EnsureGroup(ctx, "G2", "Other")

	for _, m := range []*models.Member{
		{GroupID: "G1", ID: "u1", Name: "Alice", SortKey: 5},
		{GroupID: "G1", ID: "u2", Name: "Bob", SortKey: 10},
		{GroupID: "G1", ID: "u3", Name: "Zoë", SortKey: 7},
		{GroupID: "G2", ID: "u4", Name: "Alice", SortKey: 99},
	} {
		if err := store.UpsertMember(ctx, m); err != nil {
			t.Fatalf("UpsertMember failed: %v", err)
		}
	}

	tests := []struct {
		filter string
		want   []string
	}{
		{"", []string{"u2", "u3", "u1"}},
		{"ALI", []string{"u1"}},
		{"u3", []string{"u3"}},
		{"ZOË", []string{"u3"}},
		{"nobody", nil},
	}

	for _, tt := range tests {
		t.Run("filter="+tt.filter, func(t *testing.T) {
			members, err := store.ListMembers(ctx, "G1", tt.filter)
			if err != nil {
				t.Fatalf("ListMembers failed: %v", err)
			}
			var ids []string
			for _, m := range members {
				ids = append(ids, m.ID)
			}
			if len(ids) != len(tt.want) {
				t.Fatalf("ListMembers(%q) = %v, want %v", tt.filter, ids, tt.want)
			}
			for i := range ids {
				if ids[i] != tt.want[i] {
					t.Errorf("ListMembers(%q) = %v, want %v", tt.filter, ids, tt.want)
					break
				}
			}
		})
	}
}

func TestLedger(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	store.EnsureGroup(ctx, "G1", "Group")

	t.Run("second record on the same day is AlreadyRecorded", func(t *testing.T) {
		first, err := store.RecordCheckin(ctx, "G1", "alice", "2024-01-01")
		if err != nil {
			t.Fatalf("RecordCheckin failed: %v", err)
		}
		second, err := store.RecordCheckin(ctx, "G1", "alice", "2024-01-01")
		if err != nil {
			t.Fatalf("RecordCheckin failed: %v", err)
		}
		if first != models.Recorded || second != models.AlreadyRecorded {
			t.Errorf("got %v then %v, want recorded then already_recorded", first, second)
		}

		count, err := store.CountLifetime(ctx, "G1", "alice")
		if err != nil {
			t.Fatalf("CountLifetime failed: %v", err)
		}
		if count != 1 {
			t.Errorf("CountLifetime = %d, want 1", count)
		}
	})

	t.Run("ListForDate", func(t *testing.T) {
		store.RecordCheckin(ctx, "G1", "bob", "2024-01-01")
		store.RecordCheckin(ctx, "G1", "carol", "2024-01-02")

		ids, err := store.ListForDate(ctx, "G1", "2024-01-01")
		if err != nil {
			t.Fatalf("ListForDate failed: %v", err)
		}
		if len(ids) != 2 || ids[0] != "alice" || ids[1] != "bob" {
			t.Errorf("ListForDate = %v, want [alice bob]", ids)
		}

		empty, err := store.ListForDate(ctx, "G1", "2030-01-01")
		if err != nil {
			t.Fatalf("ListForDate failed: %v", err)
		}
		if len(empty) != 0 {
			t.Errorf("expected no check-ins, got %v", empty)
		}
	})

	t.Run("Streak counts the unbroken run", func(t *testing.T) {
		for _, d := range []models.Day{"2024-02-01", "2024-02-03", "2024-02-04", "2024-02-05"} {
			store.RecordCheckin(ctx, "G1", "dave", d)
		}

		tests := []struct {
			day  models.Day
			want int
		}{
			{"2024-02-05", 3},
			{"2024-02-03", 1},
			{"2024-02-02", 0},
			{"2024-02-06", 0},
		}
		for _, tt := range tests {
			got, err := store.Streak(ctx, "G1", "dave", tt.day)
			if err != nil {
				t.Fatalf("Streak failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("Streak(%s) = %d, want %d", tt.day, got, tt.want)
			}
		}
	})
}

func TestRecordCheckinConcurrent(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	store.EnsureGroup(ctx, "G1", "Group")

	const attempts = 8
	results := make([]models.CheckinResult, attempts)
	errs := make([]error, attempts)

	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			results[i], errs[i] = store.RecordCheckin(ctx, "G1", "alice", "2024-01-01")
		}(i)
	}
	close(start)
	wg.Wait()

	recorded := 0
	for i := range results {
		if errs[i] != nil {
			t.Fatalf("attempt %d failed: %v", i, errs[i])
		}
		if results[i] == models.Recorded {
			recorded++
		}
	}
	if recorded != 1 {
		t.Errorf("Recorded %d times, want exactly 1", recorded)
	}

	count, _ := store.CountLifetime(ctx, "G1", "alice")
	if count != 1 {
		t.Errorf("CountLifetime = %d, want 1", count)
	}
}

func TestAutoReplies(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	store.EnsureGroup(ctx, "G1", "Group")

	first := &models.AutoReply{GroupID: "G1", Trigger: "price", Reply: "see pinned", Enabled: true}
	second := &models.AutoReply{GroupID: "G1", Mode: models.MatchContains, Trigger: "hello", Reply: "hi {name}"}
	for _, r := range []*models.AutoReply{first, second} {
		if err := store.CreateAutoReply(ctx, r); err != nil {
			t.Fatalf("CreateAutoReply failed: %v", err)
		}
	}
	if first.ID == 0 || second.ID <= first.ID {
		t.Errorf("unexpected IDs: %d, %d", first.ID, second.ID)
	}

	replies, err := store.ListAutoReplies(ctx, "G1")
	if err != nil {
		t.Fatalf("ListAutoReplies failed: %v", err)
	}
	if len(replies) != 2 {
		t.Fatalf("expected 2 rules, got %d", len(replies))
	}
	if replies[0].Mode != models.MatchEquals || !replies[0].Enabled {
		t.Errorf("first rule = %+v", replies[0])
	}
	if replies[1].Mode != models.MatchContains || replies[1].Enabled {
		t.Errorf("second rule = %+v", replies[1])
	}

	if err := store.DeleteAutoReply(ctx, "G1", first.ID); err != nil {
		t.Fatalf("DeleteAutoReply failed: %v", err)
	}
	if err := store.DeleteAutoReply(ctx, "G1", first.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestChallenges(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	store.EnsureGroup(ctx, "G1", "Night Owls")

	if _, err := store.GetChallenge(ctx, "G1", "zoe"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound before put, got %v", err)
	}

	if err := store.PutChallenge(ctx, "G1", "zoe", "1234"); err != nil {
		t.Fatalf("PutChallenge failed: %v", err)
	}
	if err := store.PutChallenge(ctx, "G1", "zoe", "5678"); err != nil {
		t.Fatalf("PutChallenge (replace) failed: %v", err)
	}
	answer, err := store.GetChallenge(ctx, "G1", "zoe")
	if err != nil {
		t.Fatalf("GetChallenge failed: %v", err)
	}
	if answer != "5678" {
		t.Errorf("answer = %q, want 5678", answer)
	}

	for i := 0; i < 2; i++ {
		if err := store.DeleteChallenge(ctx, "G1", "zoe"); err != nil {
			t.Fatalf("DeleteChallenge #%d failed: %v", i+1, err)
		}
	}
	if _, err := store.GetChallenge(ctx, "G1", "zoe"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestMigrateOlderSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "old.db")

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	for _, stmt := range []string{
		`CREATE TABLE groups (
			id TEXT PRIMARY KEY, name TEXT NOT NULL DEFAULT '',
			custom_fields TEXT NOT NULL DEFAULT '[]',
			checkin_template TEXT NOT NULL DEFAULT '', roster_template TEXT NOT NULL DEFAULT '',
			welcome_template TEXT NOT NULL DEFAULT '', reaction_glyph TEXT NOT NULL DEFAULT '',
			auto_react INTEGER NOT NULL DEFAULT 0,
			created_at INTEGER NOT NULL, updated_at INTEGER NOT NULL)`,
		`CREATE TABLE members (
			group_id TEXT NOT NULL, member_id TEXT NOT NULL, name TEXT NOT NULL,
			attributes TEXT NOT NULL DEFAULT '{}', sort_key INTEGER NOT NULL DEFAULT 0,
			expires_at INTEGER NOT NULL DEFAULT 0, updated_at INTEGER NOT NULL,
			PRIMARY KEY (group_id, member_id))`,
		`INSERT INTO groups (id, name, created_at, updated_at) VALUES ('G1', 'Night Owls', 1, 1)`,
		`INSERT INTO members (group_id, member_id, name, expires_at, updated_at) VALUES ('G1', 'bob', 'Bob', 1704067200, 1)`,
	} {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("Failed to seed old schema: %v", err)
		}
	}
	db.Close()

	store, err := New(path, nil)
	if err != nil {
		t.Fatalf("New on older schema failed: %v", err)
	}
	defer store.Close()
	ctx := context.Background()

	group, err := store.GetGroup(ctx, "G1")
	if err != nil {
		t.Fatalf("GetGroup failed: %v", err)
	}
	if group.CaptchaEnabled {
		t.Error("Expected captcha to default to disabled")
	}

	member, err := store.GetMember(ctx, "G1", "bob")
	if err != nil {
		t.Fatalf("GetMember failed: %v", err)
	}
	want := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	if !member.ExpiresAt.Equal(want) {
		t.Errorf("ExpiresAt = %v, want %v", member.ExpiresAt, want)
	}

	if err := store.UpsertMember(ctx, &models.Member{GroupID: "G1", ID: "carol", Name: "Carol"}); err != nil {
		t.Errorf("UpsertMember after migration failed: %v", err)
	}
}
