// Package autoreply answers group messages that match operator-defined
// keyword rules.
package autoreply

import (
	"context"
	"fmt"
	"strings"

	"github.com/mmynk/rollcall/internal/render"
	"github.com/mmynk/rollcall/internal/storage"
)

// Responder looks up keyword rules for incoming messages.
type Responder struct {
	store storage.ReplyStore
}

// NewResponder creates a Responder backed by store.
func NewResponder(store storage.ReplyStore) *Responder {
	return &Responder{store: store}
}

// Reply returns the rendered reply of the first enabled rule, in ID
// order, that matches text. ok is false when no rule matches or the
// matching rule renders blank.
func (r *Responder) Reply(ctx context.Context, groupID, groupName, senderName, text string) (reply string, ok bool, err error) {
	if strings.TrimSpace(text) == "" {
		return "", false, nil
	}

	rules, err := r.store.ListAutoReplies(ctx, groupID)
	if err != nil {
		return "", false, fmt.Errorf("failed to list auto replies: %w", err)
	}

	for _, rule := range rules {
		if !rule.Matches(text) {
			continue
		}
		out := render.Render(rule.Reply, nil, render.Vars{
			render.VarName:  senderName,
			render.VarUser:  senderName,
			render.VarGroup: groupName,
		})
		if strings.TrimSpace(out) == "" {
			return "", false, nil
		}
		return out, true, nil
	}
	return "", false, nil
}
