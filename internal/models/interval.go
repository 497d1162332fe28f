package models

import (
	"fmt"
	"strings"
	"time"
)

// Interval is a time range on absolute instants.
type Interval struct {
	Start time.Time
	End   time.Time
}

// Valid reports whether Start is strictly before End.
func (i Interval) Valid() bool {
	return i.Start.Before(i.End)
}

func (i Interval) Duration() time.Duration {
	return i.End.Sub(i.Start)
}

// Overlaps reports whether existing conflicts with the receiver, taken as the candidate.
//
// Boundaries are inclusive but tightened by one second so that back-to-back bookings
// (one ending exactly when the other starts) never conflict.
func (i Interval) Overlaps(existing Interval) bool {
	// existing starts inside [start, end-1s]
	if !existing.Start.Before(i.Start) && !existing.Start.After(i.End.Add(-time.Second)) {
		return true
	}
	// existing ends inside [start+1s, end]
	if !existing.End.Before(i.Start.Add(time.Second)) && !existing.End.After(i.End) {
		return true
	}
	// existing contains the candidate
	return !existing.Start.After(i.Start) && !existing.End.Before(i.End)
}

// Contains reports whether t falls in [Start, End).
func (i Interval) Contains(t time.Time) bool {
	return !t.Before(i.Start) && t.Before(i.End)
}

func (i Interval) String() string {
	return fmt.Sprintf("%s..%s", FormatTime(i.Start), FormatTime(i.End))
}

// Normalize converts an instant to UTC at second precision.
func Normalize(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}

func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// ParseTime reads "YYYY-MM-DD HH:MM:SS" as UTC. RFC 3339 input is accepted and converted to UTC.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.ParseInLocation(TimeLayout, s, time.UTC); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q: expected %s", s, "YYYY-MM-DD HH:MM:SS")
	}
	return Normalize(t), nil
}
