package schedule

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Interval is a time window during which power is scheduled to be off. End is always after Start:
// windows that cross midnight end on the next day.
type Interval struct {
	Start time.Time `json:"start" yaml:"start"`
	End   time.Time `json:"end" yaml:"end"`
	Label string    `json:"label" yaml:"label"`
}

// Contains reports whether t falls within the interval. Both boundaries are inclusive.
func (i Interval) Contains(t time.Time) bool {
	return !t.Before(i.Start) && !t.After(i.End)
}

// RawInterval is an interval candidate as found on the page, before normalization.
type RawInterval struct {
	Start string
	End   string
	Label string
}

var (
	ErrInvalidClock = errors.New("invalid HH:MM value")

	clockRegExp = regexp.MustCompile(`^(\d{2}):(\d{2})$`)
)

// ParseClock parses a strict HH:MM value. 24:00 is accepted as the end of the day.
func ParseClock(s string) (hour int, minute int, err error) {
	m := clockRegExp.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	hour, _ = strconv.Atoi(m[1])
	minute, _ = strconv.Atoi(m[2])
	if (hour > 23 || minute > 59) && (hour != 24 || minute != 0) {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	return hour, minute, nil
}

// Normalize anchors each raw interval to the calendar date of now, in now's location.
// If an interval's end is not after its start, the interval crosses midnight and its end moves to the next day.
// Candidates with a malformed start or end are skipped; dropped holds how many.
func Normalize(raw []RawInterval, now time.Time) (intervals []Interval, dropped int) {
	intervals = make([]Interval, 0, len(raw))
	for _, r := range raw {
		start, err := anchor(r.Start, now)
		if err != nil {
			dropped++
			continue
		}
		end, err := anchor(r.End, now)
		if err != nil {
			dropped++
			continue
		}
		if !end.After(start) {
			end = end.AddDate(0, 0, 1)
		}
		label := strings.TrimSpace(r.Label)
		if label == "" {
			label = strings.TrimSpace(r.Start) + " - " + strings.TrimSpace(r.End)
		}
		intervals = append(intervals, Interval{Start: start, End: end, Label: label})
	}
	return intervals, dropped
}

func anchor(clock string, now time.Time) (time.Time, error) {
	hour, minute, err := ParseClock(clock)
	if err != nil {
		return time.Time{}, err
	}
	year, month, day := now.Date()
	return time.Date(year, month, day, hour, minute, 0, 0, now.Location()), nil
}
