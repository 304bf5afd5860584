package features

import "github.com/wonny/credmon/internal/contracts"

// buildNews aggregates the window's headlines into sentiment, event impact
// and activity sub-features. With no headlines in the window every news
// sub-feature stays undefined rather than reading as perfectly neutral.
func buildNews(items []*contracts.NewsItem) (contracts.NewsFeatures, []contracts.EventFlag) {
	var n contracts.NewsFeatures
	if len(items) == 0 {
		return n, nil
	}

	var sentimentSum float64
	var flags []contracts.EventFlag
	for _, item := range items {
		sentimentSum += ScoreHeadline(item.Headline)
		for _, cat := range DetectEvents(item.Headline) {
			flags = append(flags, contracts.EventFlag{Category: cat, Headline: item.Headline})
		}
	}

	n.MeanSentiment = contracts.SubFeature{
		Value:   sentimentSum / float64(len(items)),
		Defined: true,
	}
	n.EventImpact = contracts.SubFeature{
		Value:   WindowEventImpact(flags),
		Defined: true,
	}
	n.HeadlineActivity = contracts.SubFeature{
		Value:   float64(len(items)),
		Defined: true,
	}

	return n, flags
}
