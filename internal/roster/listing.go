package roster

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mmynk/rollcall/internal/access"
	"github.com/mmynk/rollcall/internal/models"
	"github.com/mmynk/rollcall/internal/render"
)

// Entry is one row of a day's roster.
type Entry struct {
	Member *models.Member
	Streak int
	Total  int
}

// CheckedIn returns the non-expired roster members with a check-in on
// day, highest sort key first. Members removed from the roster after
// checking in are left out.
func (s *Service) CheckedIn(ctx context.Context, groupID string, day models.Day) ([]Entry, error) {
	ids, err := s.store.ListForDate(ctx, groupID, day)
	if err != nil {
		return nil, fmt.Errorf("failed to list checkins: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	present := make(map[string]bool, len(ids))
	for _, id := range ids {
		present[id] = true
	}

	// ListMembers is already ordered by sort key descending.
	members, err := s.store.ListMembers(ctx, groupID, "")
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}

	now := s.clock.Now()
	var entries []Entry
	for _, m := range members {
		if !present[m.ID] || access.Evaluate(m.ExpiresAt, now) == access.Expired {
			continue
		}
		streak, total := s.stats(ctx, groupID, m.ID, day)
		entries = append(entries, Entry{Member: m, Streak: streak, Total: total})
	}
	return entries, nil
}

func (s *Service) listRoster(ctx context.Context, group *models.Group, now time.Time) (Outcome, error) {
	day := models.DayOf(now.In(s.loc))

	entries, err := s.CheckedIn(ctx, group.ID, day)
	if err != nil {
		return "", err
	}

	base := render.Vars{
		render.VarGroup: group.Name,
		render.VarDate:  day.String(),
		render.VarCount: strconv.Itoa(len(entries)),
	}

	var text string
	if len(entries) == 0 {
		text = s.renderOr(s.texts.NobodyOnline, DefaultTexts().NobodyOnline, nil, base)
	} else {
		var b strings.Builder
		b.WriteString(s.renderOr(s.texts.RosterHeader, DefaultTexts().RosterHeader, nil, base))
		b.WriteString("\n")
		for _, e := range entries {
			vars := s.memberVars(group, e.Member, day)
			vars[render.VarStreak] = strconv.Itoa(e.Streak)
			vars[render.VarTotal] = strconv.Itoa(e.Total)
			vars[render.VarCount] = base[render.VarCount]
			b.WriteString("\n")
			b.WriteString(s.renderOr(group.RosterTemplate, s.texts.DefaultRosterRow, e.Member.Attributes, vars))
		}
		text = b.String()
	}

	if err := s.send(ctx, group.ID, text); err != nil {
		return OutcomeRosterListed, err
	}
	return OutcomeRosterListed, nil
}
