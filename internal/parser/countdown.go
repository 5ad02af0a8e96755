package parser

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/clambin/energyua-monitor/internal/schedule"
)

const (
	timerSelector   = ".countdown, .timer, #countdown, #timer"
	hoursSelector   = ".hours"
	minutesSelector = ".minutes"
	secondsSelector = ".seconds"
)

var (
	durationRegExp = regexp.MustCompile(`(?i)(?:(\d+)\s*год(?:ин[аиу]?)?\.?\s*)?(?:(\d+)\s*хв(?:илин[аиу]?)?\.?\s*)?(?:(\d+)\s*сек(?:унд[аиу]?)?\.?)?`)
	digitsRegExp   = regexp.MustCompile(`\d+`)

	// status phrases, in order of precedence. Text is lower-cased before matching.
	statusPhrases = []struct {
		status  schedule.Status
		phrases []string
	}{
		{
			status:  schedule.StatusOn,
			phrases: []string{"світло є", "є світло", "електроенергія є", "електропостачання є", "живлення є", "до відключення"},
		},
		{
			status:  schedule.StatusOff,
			phrases: []string{"світла немає", "немає світла", "світло відсутнє", "знеструмлено", "до увімкнення", "до включення"},
		},
	}
)

// ExtractCountdown reads the running timer on the page. The remaining time is taken from the timer region, or
// else from a duration in the text, or else from the nearest boundary of any "з HH:MM до HH:MM" phrases.
// Status is derived from the page text on its own and only inferred from the phrases if the text doesn't state it.
func ExtractCountdown(p *Page, now time.Time) (schedule.LiveCountdown, Strategy) {
	text := p.Text()
	c := schedule.LiveCountdown{
		Status:     detectStatus(text),
		ObservedAt: now,
	}

	strategy := StrategyNone
	if seconds, raw, ok := fromTimer(p); ok && seconds > 0 {
		c.RemainingSeconds, c.RawText, strategy = &seconds, raw, StrategyTimer
	} else if seconds, raw, ok := fromDurationText(text); ok && seconds > 0 {
		c.RemainingSeconds, c.RawText, strategy = &seconds, raw, StrategyCountdownText
	} else if intervals, _ := schedule.Normalize(matchPhrases(text), now); len(intervals) > 0 {
		if o := schedule.Occupy(intervals, now); o.NextChange != nil {
			seconds := max(int(o.NextChange.Sub(now)/time.Second), 0)
			c.RemainingSeconds, strategy = &seconds, StrategyTextPhrases
			if c.Status == schedule.StatusUnknown {
				c.Status = schedule.StatusOn
				if o.InOutage {
					c.Status = schedule.StatusOff
				}
			}
		}
	}
	return c, strategy
}

// fromTimer reads the hours, minutes and seconds fields of the timer region. Missing fields count as zero.
func fromTimer(p *Page) (int, string, bool) {
	if p.Doc == nil {
		return 0, "", false
	}
	region := p.Doc.Find(timerSelector).First()
	if region.Length() == 0 {
		return 0, "", false
	}
	var total int
	var found bool
	for _, f := range []struct {
		selector string
		unit     int
	}{
		{selector: hoursSelector, unit: 3600},
		{selector: minutesSelector, unit: 60},
		{selector: secondsSelector, unit: 1},
	} {
		if value, ok := numberIn(region.Find(f.selector).First()); ok {
			total += value * f.unit
			found = true
		}
	}
	return total, textOf(region), found
}

func numberIn(s *goquery.Selection) (int, bool) {
	if s.Length() == 0 {
		return 0, false
	}
	digits := digitsRegExp.FindString(textOf(s))
	if digits == "" {
		return 0, false
	}
	value, err := strconv.Atoi(digits)
	return value, err == nil
}

// fromDurationText finds the first duration like "1 год 20 хв 5 сек" in text.
func fromDurationText(text string) (int, string, bool) {
	for _, loc := range durationRegExp.FindAllStringSubmatchIndex(text, -1) {
		end := loc[1]
		for end > loc[0] && text[end-1] == ' ' {
			end--
		}
		if end == loc[0] || !endsWord(text, end) {
			continue
		}
		var total int
		for i, unit := range []int{3600, 60, 1} {
			from, to := loc[2+2*i], loc[3+2*i]
			if from < 0 {
				continue
			}
			value, err := strconv.Atoi(text[from:to])
			if err != nil {
				continue
			}
			total += value * unit
		}
		return total, text[loc[0]:end], true
	}
	return 0, "", false
}

// endsWord reports whether the match ending at offset isn't followed by a letter, so "5 хвилинка" doesn't count.
func endsWord(text string, offset int) bool {
	if offset >= len(text) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(text[offset:])
	return !unicode.IsLetter(r)
}

func detectStatus(text string) schedule.Status {
	text = strings.ToLower(text)
	for _, set := range statusPhrases {
		for _, phrase := range set.phrases {
			if strings.Contains(text, phrase) {
				return set.status
			}
		}
	}
	return schedule.StatusUnknown
}
