// Package schedule models outage intervals and derives the power state and countdown from them.
package schedule

import (
	"time"
)

// ChangeKind is the kind of the next state change: power coming back on, or going off.
type ChangeKind string

const (
	ChangeNone ChangeKind = ""
	ChangeOn   ChangeKind = "on"
	ChangeOff  ChangeKind = "off"
)

// State is the data cached between fetch cycles. Every recompute evaluates it against the current time.
type State interface {
	Evaluate(now time.Time, p Pretrigger) Snapshot
}

// Snapshot is the computed schedule state at a moment in time. A Snapshot is never modified once published.
type Snapshot struct {
	Intervals      []Interval     `json:"intervals" yaml:"intervals"`
	InOutage       bool           `json:"in_outage" yaml:"in_outage"`
	NextChangeAt   *time.Time     `json:"next_change_at,omitempty" yaml:"next_change_at,omitempty"`
	MinutesUntil   int            `json:"minutes_until" yaml:"minutes_until"`
	CountdownHM    string         `json:"countdown_hm" yaml:"countdown_hm"`
	NextChangeKind ChangeKind     `json:"next_change_kind,omitempty" yaml:"next_change_kind,omitempty"`
	Pretrigger     bool           `json:"pretrigger" yaml:"pretrigger"`
	SourceURL      string         `json:"source_url" yaml:"source_url"`
	Countdown      *LiveCountdown `json:"live_countdown,omitempty" yaml:"live_countdown,omitempty"`
	EvaluatedAt    time.Time      `json:"evaluated_at" yaml:"evaluated_at"`
}

// PowerOn reports whether power is currently present.
func (s Snapshot) PowerOn() bool {
	return !s.InOutage
}

func newSnapshot(inOutage bool, next *time.Time, now time.Time, p Pretrigger) Snapshot {
	s := Snapshot{
		InOutage:     inOutage,
		NextChangeAt: next,
		MinutesUntil: -1,
		CountdownHM:  Unknown,
		EvaluatedAt:  now,
		Intervals:    []Interval{},
	}
	if next != nil {
		s.MinutesUntil = MinutesUntil(*next, now)
		s.CountdownHM = CountdownHM(s.MinutesUntil)
		s.NextChangeKind = ChangeOff
		if inOutage {
			s.NextChangeKind = ChangeOn
		}
	}
	s.Pretrigger = next != nil && p.Active(s.MinutesUntil)
	return s
}
