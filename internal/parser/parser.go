package parser

import (
	"fmt"
	"time"

	"github.com/clambin/energyua-monitor/internal/schedule"
)

// Mode selects how a page is parsed. A deployment uses one mode consistently.
type Mode string

const (
	ModeIntervals Mode = "intervals"
	ModeCountdown Mode = "countdown"
)

// Result is the outcome of parsing a page.
type Result struct {
	State    schedule.State
	Strategy Strategy
	// Dropped counts candidates skipped because their times were malformed.
	Dropped int
}

// A Parser turns a page into the state that's cached until the next fetch.
type Parser interface {
	Parse(p *Page, now time.Time) Result
}

// New returns the Parser for the mode. An empty mode selects ModeIntervals.
func New(mode Mode) (Parser, error) {
	switch mode {
	case "", ModeIntervals:
		return IntervalParser{}, nil
	case ModeCountdown:
		return CountdownParser{}, nil
	default:
		return nil, fmt.Errorf("invalid parser mode: %q", mode)
	}
}

var (
	_ Parser = IntervalParser{}
	_ Parser = CountdownParser{}
)

// IntervalParser parses pages that list the outage intervals of the day.
type IntervalParser struct{}

// Parse extracts the intervals on the page and anchors them to the day of now.
func (IntervalParser) Parse(p *Page, now time.Time) Result {
	raw, strategy := ExtractIntervals(p)
	intervals, dropped := schedule.Normalize(raw, now)
	return Result{
		State:    schedule.Intervals(intervals),
		Strategy: strategy,
		Dropped:  dropped,
	}
}

// CountdownParser parses pages that show a running timer until the next change.
type CountdownParser struct{}

// Parse reads the timer and power status on the page.
func (CountdownParser) Parse(p *Page, now time.Time) Result {
	c, strategy := ExtractCountdown(p, now)
	return Result{
		State:    c,
		Strategy: strategy,
	}
}
