package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Attributes is a member's bag of custom field values keyed by field name.
// Unset fields are absent; an absent key and an empty value both mean
// "no value".
type Attributes map[string]string

// Clone returns a copy of the bag. The result is never nil.
func (a Attributes) Clone() Attributes {
	out := make(Attributes, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// Encode encodes the bag as a flat JSON object. A nil bag encodes
// as "{}".
func (a Attributes) Encode() (string, error) {
	if a == nil {
		return "{}", nil
	}
	b, err := json.Marshal(map[string]string(a))
	if err != nil {
		return "", fmt.Errorf("failed to encode attributes: %w", err)
	}
	return string(b), nil
}

// DecodeAttributes parses a bag produced by Encode. Empty input decodes to
// an empty bag.
func DecodeAttributes(s string) (Attributes, error) {
	out := Attributes{}
	if s == "" {
		return out, nil
	}
	if err := json.Unmarshal([]byte(s), (*map[string]string)(&out)); err != nil {
		return nil, fmt.Errorf("failed to decode attributes: %w", err)
	}
	if out == nil {
		out = Attributes{}
	}
	return out, nil
}

// Member is a roster entry scoped to a group. (GroupID, ID) is unique.
type Member struct {
	// GroupID is the group this entry belongs to.
	GroupID string

	// ID is the member's identifier, unique within the group.
	ID string

	// Name is the display name used in rendered messages.
	Name string

	// Attributes holds the custom field values.
	Attributes Attributes

	// SortKey orders roster listings, higher first.
	SortKey int

	// ExpiresAt is when the member's privileges lapse. The zero value
	// means the member never expires.
	ExpiresAt time.Time

	// UpdatedAt is the Unix timestamp of the last operator write.
	UpdatedAt int64
}
