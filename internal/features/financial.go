package features

import "github.com/wonny/credmon/internal/contracts"

// buildFinancial derives statement sub-features from the window's financial
// observations, ordered oldest to newest. Delta features need two statements;
// revenue growth is reported by the source and is usable from the first one.
func buildFinancial(obs []*contracts.FinancialFacts) contracts.FinancialFeatures {
	var f contracts.FinancialFeatures
	if len(obs) == 0 {
		return f
	}

	latest := obs[len(obs)-1]

	f.RevenueGrowth = contracts.SubFeature{Value: latest.RevenueGrowth, Defined: true}

	if len(obs) >= 2 {
		prior := obs[len(obs)-2]

		f.DebtEquityDelta = contracts.SubFeature{
			Value:   latest.DebtToEquity - prior.DebtToEquity,
			Defined: true,
		}

		if prior.EPS != 0 {
			f.EPSChange = contracts.SubFeature{
				Value:   (latest.EPS - prior.EPS) / abs(prior.EPS),
				Defined: true,
			}
		}
	}

	return f
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
