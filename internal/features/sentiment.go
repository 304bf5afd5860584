package features

import (
	"strings"
	"unicode"
)

// SentimentLabel buckets a sentiment score for display
type SentimentLabel string

const (
	SentimentPositive SentimentLabel = "positive"
	SentimentNeutral  SentimentLabel = "neutral"
	SentimentNegative SentimentLabel = "negative"
)

// Label cutoffs. Scores within (-0.05, 0.05) are neutral.
const (
	positiveCutoff = 0.05
	negativeCutoff = -0.05
)

// lexicon maps lowercase tokens to a polarity weight. Intensity varies so
// that strongly negative credit vocabulary outweighs generic tone words.
var lexicon = map[string]float64{
	// positive
	"growth":      0.5,
	"profit":      0.6,
	"profitable":  0.6,
	"beat":        0.5,
	"beats":       0.5,
	"exceeded":    0.5,
	"exceeds":     0.5,
	"upgrade":     0.7,
	"upgraded":    0.7,
	"strong":      0.4,
	"record":      0.4,
	"surge":       0.5,
	"surges":      0.5,
	"surged":      0.5,
	"rally":       0.4,
	"gains":       0.4,
	"gain":        0.4,
	"expansion":   0.4,
	"dividend":    0.3,
	"buyback":     0.3,
	"recovery":    0.4,
	"outperform":  0.5,
	"improved":    0.4,
	"improves":    0.4,
	"robust":      0.4,
	"raises":      0.3,
	"raised":      0.3,
	"approval":    0.3,
	"wins":        0.4,
	"won":         0.4,
	"partnership": 0.3,

	// negative
	"loss":          -0.5,
	"losses":        -0.5,
	"miss":          -0.5,
	"missed":        -0.5,
	"misses":        -0.5,
	"downgrade":     -0.7,
	"downgraded":    -0.7,
	"bankruptcy":    -1.0,
	"insolvency":    -1.0,
	"insolvent":     -1.0,
	"default":       -0.9,
	"defaults":      -0.9,
	"defaulted":     -0.9,
	"restructuring": -0.5,
	"layoffs":       -0.5,
	"layoff":        -0.5,
	"lawsuit":       -0.5,
	"sued":          -0.5,
	"fraud":         -0.8,
	"probe":         -0.4,
	"investigation": -0.4,
	"decline":       -0.4,
	"declines":      -0.4,
	"declined":      -0.4,
	"plunge":        -0.6,
	"plunges":       -0.6,
	"plunged":       -0.6,
	"warning":       -0.4,
	"warns":         -0.4,
	"weak":          -0.4,
	"slump":         -0.5,
	"slumps":        -0.5,
	"cuts":          -0.3,
	"cut":           -0.3,
	"delisting":     -0.8,
	"writedown":     -0.5,
	"write-down":    -0.5,
	"impairment":    -0.5,
	"downturn":      -0.4,
	"recall":        -0.4,
	"breach":        -0.5,
	"resigns":       -0.3,
	"resignation":   -0.3,
	"scandal":       -0.6,
	"crisis":        -0.6,
	"debt":          -0.2,
	"risk":          -0.2,
	"concern":       -0.3,
	"concerns":      -0.3,
}

// negators flip the polarity of the following lexicon token
var negators = map[string]bool{
	"no": true, "not": true, "never": true, "without": true,
	"avoids": true, "avoided": true, "denies": true, "denied": true,
}

// ScoreHeadline returns a deterministic sentiment score in [-1, 1] for one
// headline. The same headline always produces the same score.
func ScoreHeadline(headline string) float64 {
	tokens := tokenize(headline)
	if len(tokens) == 0 {
		return 0
	}

	var total float64
	var hits int
	negate := false
	for _, tok := range tokens {
		if negators[tok] {
			negate = true
			continue
		}
		w, ok := lexicon[tok]
		if !ok {
			negate = false
			continue
		}
		if negate {
			w = -w
			negate = false
		}
		total += w
		hits++
	}
	if hits == 0 {
		return 0
	}
	return clampUnit(total / float64(hits))
}

// LabelFor buckets a score into positive, neutral or negative
func LabelFor(score float64) SentimentLabel {
	switch {
	case score >= positiveCutoff:
		return SentimentPositive
	case score <= negativeCutoff:
		return SentimentNegative
	default:
		return SentimentNeutral
	}
}

func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-'
	})
}

func clampUnit(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}
