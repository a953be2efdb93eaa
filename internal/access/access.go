// Package access decides whether a roster member's privileges are active.
package access

import "time"

// Verdict is the outcome of an access evaluation.
type Verdict int

const (
	Active Verdict = iota + 1
	Expired
)

func (v Verdict) String() string {
	switch v {
	case Active:
		return "active"
	case Expired:
		return "expired"
	default:
		return "unknown"
	}
}

// Evaluate returns Active when expiry is unset (zero) or strictly after
// now, and Expired otherwise. The comparison uses the full timestamp.
func Evaluate(expiry, now time.Time) Verdict {
	if expiry.IsZero() || expiry.After(now) {
		return Active
	}
	return Expired
}
