package schedule

import "fmt"

// Mode selects how the minutes until the next change are compared against the pretrigger threshold.
type Mode string

const (
	// ModeEquals raises the pretrigger only when the minutes until the next change equal the threshold.
	ModeEquals Mode = "equals"
	// ModeAtOrBelow raises the pretrigger as long as the minutes until the next change don't exceed the threshold.
	ModeAtOrBelow Mode = "at_or_below"
)

// ParseMode returns the Mode for s. An empty string selects ModeEquals.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeEquals:
		return ModeEquals, nil
	case ModeAtOrBelow:
		return ModeAtOrBelow, nil
	default:
		return "", fmt.Errorf("invalid pretrigger mode: %q", s)
	}
}

// Pretrigger configures the warning window before the next state change.
type Pretrigger struct {
	Threshold int
	Mode      Mode
}

// Active reports whether minutesUntil falls within the warning window. A negative value (no next change) never does.
func (p Pretrigger) Active(minutesUntil int) bool {
	if minutesUntil < 0 {
		return false
	}
	if p.Mode == ModeAtOrBelow {
		return minutesUntil <= p.Threshold
	}
	return minutesUntil == p.Threshold
}
