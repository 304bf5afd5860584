package features

import (
	"math"

	"github.com/wonny/credmon/internal/contracts"
)

// buildMarket derives trailing-window statistics from market quotes ordered
// oldest to newest. Volatility needs at least three quotes to produce two
// returns; the window return falls back to the quote's own day change when
// only one quote exists so the index works from the first cycle.
func buildMarket(obs []*contracts.MarketQuote) contracts.MarketFeatures {
	var m contracts.MarketFeatures
	if len(obs) == 0 {
		return m
	}

	first, last := obs[0], obs[len(obs)-1]

	switch {
	case len(obs) >= 2 && first.Price > 0:
		m.RecentReturn = contracts.SubFeature{
			Value:   (last.Price - first.Price) / first.Price,
			Defined: true,
		}
	default:
		m.RecentReturn = contracts.SubFeature{Value: last.ChangePct, Defined: true}
	}

	if len(obs) >= 3 {
		if v, ok := returnStddev(obs); ok {
			m.Volatility = contracts.SubFeature{Value: v, Defined: true}
		}
	}

	if len(obs) >= 2 && first.MarketCap > 0 {
		m.MarketCapTrend = contracts.SubFeature{
			Value:   (last.MarketCap - first.MarketCap) / first.MarketCap,
			Defined: true,
		}
	}

	return m
}

// returnStddev computes the population standard deviation of step-to-step
// fractional price returns. Steps with a non-positive starting price are
// skipped; at least two usable returns are required.
func returnStddev(obs []*contracts.MarketQuote) (float64, bool) {
	var returns []float64
	for i := 1; i < len(obs); i++ {
		if obs[i-1].Price <= 0 {
			continue
		}
		returns = append(returns, (obs[i].Price-obs[i-1].Price)/obs[i-1].Price)
	}
	if len(returns) < 2 {
		return 0, false
	}

	var mean float64
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	var variance float64
	for _, r := range returns {
		d := r - mean
		variance += d * d
	}
	variance /= float64(len(returns))

	return math.Sqrt(variance), true
}
