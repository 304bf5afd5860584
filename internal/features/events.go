package features

import (
	"regexp"
	"strings"
	"sync"

	"github.com/wonny/credmon/internal/contracts"
)

// eventRule binds an event category to the keywords that trigger it.
// Rules are checked in order; the first keyword hit flags the category.
type eventRule struct {
	category contracts.EventCategory
	keywords []string
}

// eventRules is ordered from most to least severe so that the flag recorded
// for a headline matching several categories is the most material one first.
var eventRules = []eventRule{
	{contracts.EventBankruptcy, []string{
		"bankruptcy", "bankrupt", "insolvency", "insolvent", "chapter 11",
		"liquidation", "receivership",
	}},
	{contracts.EventDefault, []string{
		"default", "missed payment", "debt restructuring", "covenant breach",
		"failure to pay",
	}},
	{contracts.EventDowngrade, []string{
		"downgrade", "downgraded", "rating cut", "credit watch negative",
	}},
	{contracts.EventRestructuring, []string{
		"restructuring", "layoffs", "layoff", "job cuts", "plant closure",
		"divestiture",
	}},
	{contracts.EventLawsuit, []string{
		"lawsuit", "sued", "litigation", "settlement", "class action",
		"regulatory probe", "investigation", "fraud",
	}},
	{contracts.EventManagementChange, []string{
		"ceo resigns", "cfo resigns", "ceo steps down", "cfo steps down",
		"management shakeup", "executive departure", "resignation",
	}},
	{contracts.EventUpgrade, []string{
		"upgrade", "upgraded", "rating raised", "outlook positive",
	}},
	{contracts.EventMerger, []string{
		"merger", "acquisition", "acquires", "acquired", "takeover", "buyout",
	}},
}

// eventImpacts is the signed score impact per category, on a [-1, 1] scale
// before the window sum is capped
var eventImpacts = map[contracts.EventCategory]float64{
	contracts.EventBankruptcy:       -1.0,
	contracts.EventDefault:          -1.0,
	contracts.EventDowngrade:        -0.7,
	contracts.EventRestructuring:    -0.6,
	contracts.EventLawsuit:          -0.5,
	contracts.EventManagementChange: -0.3,
	contracts.EventMerger:           0.2,
	contracts.EventUpgrade:          0.7,
}

var (
	keywordPatterns map[string]*regexp.Regexp
	patternOnce     sync.Once
)

// compilePatterns builds a word-boundary matcher per keyword once.
// Multi-word keywords match as literal phrases.
func compilePatterns() {
	keywordPatterns = make(map[string]*regexp.Regexp)
	for _, rule := range eventRules {
		for _, kw := range rule.keywords {
			keywordPatterns[kw] = regexp.MustCompile(`\b` + regexp.QuoteMeta(kw) + `\b`)
		}
	}
}

// ExtendVocabulary adds operator-supplied "category:keyword" pairs to the
// built-in rules. Entries naming an unknown category or missing a keyword are
// returned unchanged so the caller can log them. Must be called before
// scoring starts; patterns are recompiled immediately.
func ExtendVocabulary(entries []string) []string {
	var rejected []string
	for _, entry := range entries {
		parts := strings.SplitN(entry, ":", 2)
		if len(parts) != 2 {
			rejected = append(rejected, entry)
			continue
		}
		cat := contracts.EventCategory(strings.TrimSpace(parts[0]))
		kw := strings.ToLower(strings.TrimSpace(parts[1]))
		if kw == "" {
			rejected = append(rejected, entry)
			continue
		}

		found := false
		for i := range eventRules {
			if eventRules[i].category == cat {
				eventRules[i].keywords = append(eventRules[i].keywords, kw)
				found = true
				break
			}
		}
		if !found {
			rejected = append(rejected, entry)
		}
	}

	patternOnce.Do(func() {})
	compilePatterns()
	return rejected
}

// DetectEvents scans a headline and returns the event categories it matches.
// Matching is case-insensitive on word boundaries; each category is flagged
// at most once per headline but a headline may flag several categories.
func DetectEvents(headline string) []contracts.EventCategory {
	patternOnce.Do(compilePatterns)
	lower := strings.ToLower(headline)

	var matched []contracts.EventCategory
	for _, rule := range eventRules {
		for _, kw := range rule.keywords {
			if keywordPatterns[kw].MatchString(lower) {
				matched = append(matched, rule.category)
				break
			}
		}
	}
	return matched
}

// EventImpact returns the signed impact of one event category
func EventImpact(cat contracts.EventCategory) float64 {
	return eventImpacts[cat]
}

// WindowEventImpact sums the impacts of all flags in a window and caps the
// result to [-1, 1] so one saturated window cannot dominate the news index
// beyond its weight.
func WindowEventImpact(flags []contracts.EventFlag) float64 {
	var sum float64
	for _, f := range flags {
		sum += eventImpacts[f.Category]
	}
	return clampUnit(sum)
}
