package parser

import (
	"regexp"

	"github.com/PuerkitoBio/goquery"
	"github.com/clambin/energyua-monitor/internal/schedule"
)

// Strategy identifies which step of the cascade produced a result.
type Strategy int

const (
	StrategyNone Strategy = iota
	StrategyContainer
	StrategyLooseItems
	StrategyItemPhrases
	StrategyTextPhrases
	StrategyTimer
	StrategyCountdownText
)

var strategyNames = map[Strategy]string{
	StrategyNone:          "none",
	StrategyContainer:     "container",
	StrategyLooseItems:    "loose-items",
	StrategyItemPhrases:   "item-phrases",
	StrategyTextPhrases:   "text-phrases",
	StrategyTimer:         "timer",
	StrategyCountdownText: "countdown-text",
}

func (s Strategy) String() string {
	if name, ok := strategyNames[s]; ok {
		return name
	}
	return "unknown"
}

const (
	containerSelector = "div.periods_items"
	containerItems    = "span"
	emphasisSelector  = "b, strong, em"
	itemSelector      = "li, span, p, td"
)

// phraseRegExp matches "з 10:00 до 12:00" and its variants.
var phraseRegExp = regexp.MustCompile(`(?i)(?:^|[^\p{L}])(?:з|із|зі|с|від)\s*(\d{2}:\d{2})\s*(?:до|по|-|–|—)\s*(\d{2}:\d{2})`)

type intervalStrategy struct {
	strategy Strategy
	extract  func(*Page) []schedule.RawInterval
}

// each strategy is only tried if the ones before it found nothing.
var intervalStrategies = []intervalStrategy{
	{strategy: StrategyContainer, extract: fromContainer},
	{strategy: StrategyLooseItems, extract: fromLooseItems},
	{strategy: StrategyItemPhrases, extract: fromItemPhrases},
	{strategy: StrategyTextPhrases, extract: fromTextPhrases},
}

// ExtractIntervals returns the raw interval candidates on the page, in document order, and the strategy that
// found them. An empty result means the page holds no intervals, or its layout isn't recognized.
func ExtractIntervals(p *Page) ([]schedule.RawInterval, Strategy) {
	for _, s := range intervalStrategies {
		if raw := s.extract(p); len(raw) > 0 {
			return raw, s.strategy
		}
	}
	return nil, StrategyNone
}

// fromContainer reads the first two bold fields of each item in the periods container as start and end.
func fromContainer(p *Page) []schedule.RawInterval {
	if p.Doc == nil {
		return nil
	}
	var raw []schedule.RawInterval
	p.Doc.Find(containerSelector).First().Find(containerItems).Each(func(_ int, item *goquery.Selection) {
		fields := item.Find("b")
		if fields.Length() < 2 {
			return
		}
		raw = append(raw, schedule.RawInterval{
			Start: textOf(fields.Eq(0)),
			End:   textOf(fields.Eq(1)),
			Label: textOf(item),
		})
	})
	return raw
}

// fromLooseItems looks anywhere in the document for items holding at least two emphasized times.
func fromLooseItems(p *Page) []schedule.RawInterval {
	if p.Doc == nil {
		return nil
	}
	var raw []schedule.RawInterval
	p.Doc.Find(itemSelector).Each(func(_ int, item *goquery.Selection) {
		var clocks []string
		item.ChildrenFiltered(emphasisSelector).Each(func(_ int, field *goquery.Selection) {
			if text := textOf(field); isClock(text) {
				clocks = append(clocks, text)
			}
		})
		if len(clocks) < 2 {
			return
		}
		raw = append(raw, schedule.RawInterval{Start: clocks[0], End: clocks[1], Label: textOf(item)})
	})
	return raw
}

// fromItemPhrases matches "з HH:MM до HH:MM" within each item: the spans of the periods container if there is one,
// otherwise every innermost item of the document.
func fromItemPhrases(p *Page) []schedule.RawInterval {
	if p.Doc == nil {
		return nil
	}
	items := p.Doc.Find(containerSelector).First().Find(containerItems)
	if items.Length() == 0 {
		items = p.Doc.Find(itemSelector).FilterFunction(func(_ int, s *goquery.Selection) bool {
			return s.Find(itemSelector).Length() == 0
		})
	}
	var raw []schedule.RawInterval
	items.Each(func(_ int, item *goquery.Selection) {
		raw = append(raw, matchPhrases(textOf(item))...)
	})
	return raw
}

// fromTextPhrases matches "з HH:MM до HH:MM" anywhere in the flattened page text.
func fromTextPhrases(p *Page) []schedule.RawInterval {
	return matchPhrases(p.Text())
}

func matchPhrases(text string) []schedule.RawInterval {
	var raw []schedule.RawInterval
	for _, m := range phraseRegExp.FindAllStringSubmatch(text, -1) {
		raw = append(raw, schedule.RawInterval{
			Start: m[1],
			End:   m[2],
			Label: "З " + m[1] + " до " + m[2],
		})
	}
	return raw
}

func isClock(s string) bool {
	_, _, err := schedule.ParseClock(s)
	return err == nil
}
