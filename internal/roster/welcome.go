package roster

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"

	"github.com/mmynk/rollcall/internal/metrics"
	"github.com/mmynk/rollcall/internal/render"
	"github.com/mmynk/rollcall/internal/storage"
)

// challengeOptions is the number of buttons on a join check.
const challengeOptions = 4

// Joiner is a member who just joined a group.
type Joiner struct {
	MemberID string
	Name     string
}

// Challenge is a join check sent to one new member. Options holds the
// button labels; exactly one of them is Answer.
type Challenge struct {
	MemberID string
	Text     string
	Answer   string
	Options  []string
}

// ChallengeAnswer is a button press on a join check.
type ChallengeAnswer struct {
	GroupID string
	// MemberID is the member the check was sent to.
	MemberID string
	// PresserID is who pressed the button.
	PresserID string
	Name      string
	Choice    string
}

// ChallengeResult is the verdict on a button press. When Passed, Text
// replaces the check in the chat; otherwise it is shown to the presser
// only.
type ChallengeResult struct {
	Passed bool
	Text   string
}

// Welcome greets members who joined the group, when the group has a
// welcome template. With the join check enabled, every joiner is also
// sent a challenge and muted until they answer it. A failed greeting is
// returned after the challenges went out.
func (s *Service) Welcome(ctx context.Context, groupID, groupName string, joiners []Joiner) error {
	if len(joiners) == 0 {
		return nil
	}
	group, err := s.store.EnsureGroup(ctx, groupID, groupName)
	if err != nil {
		return fmt.Errorf("failed to load group: %w", err)
	}

	var greetErr error
	if strings.TrimSpace(group.WelcomeTemplate) != "" {
		names := make([]string, len(joiners))
		for i, j := range joiners {
			names[i] = j.Name
		}
		joined := strings.Join(names, ", ")
		text := render.Render(group.WelcomeTemplate, nil, render.Vars{
			render.VarName:  joined,
			render.VarUser:  joined,
			render.VarGroup: group.Name,
			render.VarCount: strconv.Itoa(len(joiners)),
			render.VarDate:  s.Today().String(),
		})
		if strings.TrimSpace(text) != "" {
			greetErr = s.send(ctx, group.ID, text)
		}
	}

	if !group.CaptchaEnabled {
		return greetErr
	}
	for _, j := range joiners {
		if err := s.challenge(ctx, group.ID, group.Name, j); err != nil {
			return errors.Join(greetErr, err)
		}
	}
	return greetErr
}

// challenge records the expected answer, posts the check and mutes the
// member. A member whose check could not be posted is left unmuted.
func (s *Service) challenge(ctx context.Context, groupID, groupName string, j Joiner) error {
	answer, options := newChallengeCodes()
	if err := s.store.PutChallenge(ctx, groupID, j.MemberID, answer); err != nil {
		return fmt.Errorf("failed to store challenge: %w", err)
	}

	text := render.Render(s.texts.CaptchaPrompt, nil, render.Vars{
		render.VarName:  j.Name,
		render.VarUser:  j.Name,
		render.VarGroup: groupName,
		render.VarCode:  answer,
	})
	ch := Challenge{MemberID: j.MemberID, Text: text, Answer: answer, Options: options}
	if _, err := s.port.SendChallenge(ctx, groupID, ch); err != nil {
		s.platformFailure("challenge", groupID, j.MemberID, err)
		return nil
	}
	if err := s.port.RestrictMember(ctx, groupID, j.MemberID); err != nil {
		s.platformFailure("restrict", groupID, j.MemberID, err)
	}
	s.logger.Info("join check sent", "group_id", groupID, "member_id", j.MemberID)
	return nil
}

// AnswerChallenge checks a button press. Only the member the check was
// sent to can answer it; a correct answer lifts the restriction and
// clears the check. A wrong answer leaves the check open for retries.
func (s *Service) AnswerChallenge(ctx context.Context, a ChallengeAnswer) (ChallengeResult, error) {
	if a.PresserID != a.MemberID {
		return ChallengeResult{Text: s.texts.CaptchaNotYours}, nil
	}

	answer, err := s.store.GetChallenge(ctx, a.GroupID, a.MemberID)
	if errors.Is(err, storage.ErrNotFound) {
		return ChallengeResult{Text: s.texts.CaptchaStale}, nil
	}
	if err != nil {
		return ChallengeResult{}, fmt.Errorf("failed to load challenge: %w", err)
	}
	if a.Choice != answer {
		return ChallengeResult{Text: s.texts.CaptchaWrong}, nil
	}

	if err := s.port.LiftRestriction(ctx, a.GroupID, a.MemberID); err != nil {
		metrics.PlatformFailures.WithLabelValues("unrestrict").Inc()
		return ChallengeResult{}, fmt.Errorf("failed to lift restriction: %w", err)
	}
	if err := s.store.DeleteChallenge(ctx, a.GroupID, a.MemberID); err != nil {
		s.logger.Warn("failed to clear challenge", "group_id", a.GroupID, "member_id", a.MemberID, "error", err)
	}
	s.logger.Info("join check passed", "group_id", a.GroupID, "member_id", a.MemberID)

	text := render.Render(s.texts.CaptchaPassed, nil, render.Vars{
		render.VarName: a.Name,
		render.VarUser: a.Name,
	})
	return ChallengeResult{Passed: true, Text: text}, nil
}

// newChallengeCodes returns distinct four-digit button labels and the
// one that answers the check.
func newChallengeCodes() (string, []string) {
	seen := make(map[string]bool, challengeOptions)
	options := make([]string, 0, challengeOptions)
	for len(options) < challengeOptions {
		code := fmt.Sprintf("%04d", rand.IntN(10000))
		if !seen[code] {
			seen[code] = true
			options = append(options, code)
		}
	}
	return options[rand.IntN(len(options))], options
}
