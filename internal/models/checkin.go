package models

import "time"

// DayLayout is the textual form of a Day.
const DayLayout = "2006-01-02"

// Day is a calendar date in YYYY-MM-DD form, with no time of day.
type Day string

// DayOf returns the calendar day of t in t's location.
func DayOf(t time.Time) Day {
	return Day(t.Format(DayLayout))
}

// ParseDay validates s and returns it as a Day.
func ParseDay(s string) (Day, error) {
	t, err := time.Parse(DayLayout, s)
	if err != nil {
		return "", err
	}
	return DayOf(t), nil
}

// Prev returns the day before d. An unparseable day returns itself.
func (d Day) Prev() Day {
	t, err := time.Parse(DayLayout, string(d))
	if err != nil {
		return d
	}
	return DayOf(t.AddDate(0, 0, -1))
}

func (d Day) String() string { return string(d) }

// CheckinResult is the outcome of recording a check-in.
type CheckinResult int

const (
	// Recorded means this call created the day's record.
	Recorded CheckinResult = iota + 1
	// AlreadyRecorded means a record for the day already existed.
	AlreadyRecorded
)

func (r CheckinResult) String() string {
	switch r {
	case Recorded:
		return "recorded"
	case AlreadyRecorded:
		return "already_recorded"
	default:
		return "unknown"
	}
}
