package schedule

import (
	"fmt"
	"time"
)

// Unknown is reported as countdown text when no next change is known.
const Unknown = "unknown"

// Occupancy is the position of a moment in time relative to a list of outage intervals.
type Occupancy struct {
	InOutage   bool
	NextChange *time.Time
}

// Occupy determines whether now falls within one of the intervals and when the state next changes.
//
// Intervals are scanned in order and the first one containing now wins, even if a later interval overlaps
// it. Otherwise, the next change is the earliest start after now.
func Occupy(intervals []Interval, now time.Time) Occupancy {
	for _, i := range intervals {
		if i.Contains(now) {
			end := i.End
			return Occupancy{InOutage: true, NextChange: &end}
		}
	}
	var next *time.Time
	for _, i := range intervals {
		if i.Start.After(now) && (next == nil || i.Start.Before(*next)) {
			start := i.Start
			next = &start
		}
	}
	return Occupancy{NextChange: next}
}

// Intervals is the cached result of an interval-based parse.
type Intervals []Interval

// Evaluate returns the Snapshot for the intervals at time now.
func (i Intervals) Evaluate(now time.Time, p Pretrigger) Snapshot {
	o := Occupy(i, now)
	s := newSnapshot(o.InOutage, o.NextChange, now, p)
	if len(i) > 0 {
		s.Intervals = i
	}
	return s
}

// MinutesUntil returns the whole number of minutes from now until next, never below zero.
func MinutesUntil(next, now time.Time) int {
	return max(int(next.Sub(now)/time.Minute), 0)
}

// CountdownHM formats minutes as HH:MM.
func CountdownHM(minutes int) string {
	if minutes < 0 {
		return Unknown
	}
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}
