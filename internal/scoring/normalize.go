package scoring

// Normalization maps each raw sub-feature onto a 0-100 score where higher
// means lower credit risk. Every function clamps to [0, 100], which keeps
// each index inside [0, 100] and the weighted composite exactly equal to
// the sum of its per-feature contributions.

// normDebtEquityDelta scores a change in debt-to-equity. A rise of 0.5
// over the window exhausts the band.
func normDebtEquityDelta(delta float64) float64 {
	return clamp100(50 - 100*delta)
}

// normRevenueGrowth scores fractional revenue growth. +20% saturates the
// band, -20% floors it.
func normRevenueGrowth(g float64) float64 {
	return clamp100(50 + 250*g)
}

// normEPSChange scores fractional EPS change. +25% saturates the band.
func normEPSChange(c float64) float64 {
	return clamp100(50 + 200*c)
}

// normVolatility scores the stddev of step returns. Zero volatility is a
// perfect score; 5% per step floors the band.
func normVolatility(v float64) float64 {
	return clamp100(100 - 2000*v)
}

// normRecentReturn scores the window price return. +/-20% saturates.
func normRecentReturn(r float64) float64 {
	return clamp100(50 + 250*r)
}

// normMarketCapTrend scores the window market-cap change. +/-20% saturates.
func normMarketCapTrend(t float64) float64 {
	return clamp100(50 + 250*t)
}

// normSentiment maps mean headline sentiment from [-1, 1] to [0, 100]
func normSentiment(s float64) float64 {
	return clamp100((s + 1) / 2 * 100)
}

// normEventImpact maps the capped window event impact from [-1, 1] to [0, 100]
func normEventImpact(i float64) float64 {
	return clamp100((i + 1) / 2 * 100)
}

// normHeadlineActivity scores headline volume. Quiet coverage sits slightly
// above neutral; heavy news flow about a single name reads as stress.
func normHeadlineActivity(count float64) float64 {
	return clamp100(60 - 2*count)
}

func clamp100(v float64) float64 {
	if v > 100 {
		return 100
	}
	if v < 0 {
		return 0
	}
	return v
}
