package schedule

import "time"

// Status is the power state reported by the page itself.
type Status string

const (
	StatusUnknown Status = ""
	StatusOn      Status = "ON"
	StatusOff     Status = "OFF"
)

// LiveCountdown is a running timer read from the page, anchored at the time it was observed.
// RemainingSeconds and Status are found independently: either may be missing.
type LiveCountdown struct {
	RemainingSeconds *int      `json:"remaining_seconds,omitempty" yaml:"remaining_seconds,omitempty"`
	Status           Status    `json:"status,omitempty" yaml:"status,omitempty"`
	RawText          string    `json:"raw_text,omitempty" yaml:"raw_text,omitempty"`
	ObservedAt       time.Time `json:"observed_at" yaml:"observed_at"`
}

// Deadline returns the moment the countdown reaches zero.
func (c LiveCountdown) Deadline() (time.Time, bool) {
	if c.RemainingSeconds == nil {
		return time.Time{}, false
	}
	return c.ObservedAt.Add(time.Duration(*c.RemainingSeconds) * time.Second), true
}

// Evaluate returns the Snapshot for the countdown at time now. The reported status is kept until the next fetch,
// so once the deadline has passed, the countdown stays at zero.
func (c LiveCountdown) Evaluate(now time.Time, p Pretrigger) Snapshot {
	var next *time.Time
	if deadline, ok := c.Deadline(); ok {
		next = &deadline
	}
	s := newSnapshot(c.Status == StatusOff, next, now, p)
	if c.Status == StatusUnknown {
		s.NextChangeKind = ChangeNone
	}
	s.Countdown = &c
	return s
}
