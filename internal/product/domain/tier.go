package domain

// Tier is the rating band used for colors and rating words alike.
type Tier string

const (
	TierExcellent Tier = "excellent"
	TierGood      Tier = "good"
	TierFair      Tier = "fair"
	TierPoor      Tier = "poor"
)

// tierCuts is the single tier table, highest band first. Thresholds are
// percentages of the maximum attainable score.
var tierCuts = []struct {
	min  float64
	tier Tier
}{
	{80, TierExcellent},
	{60, TierGood},
	{40, TierFair},
}

// TierForPercent maps a 0-100 percentage to its tier.
func TierForPercent(pct float64) Tier {
	for _, c := range tierCuts {
		if pct >= c.min {
			return c.tier
		}
	}
	return TierPoor
}

// TierForScore maps an overall sustainability score to its tier.
func TierForScore(score int) Tier {
	return TierForPercent(float64(score))
}

// Percent is the aspect score as a percentage of its maximum.
func (a Aspect) Percent() float64 {
	if a.MaxScore <= 0 {
		return 0
	}
	return float64(a.Score) / float64(a.MaxScore) * 100
}

// Tier is the band of the aspect's percentage.
func (a Aspect) Tier() Tier {
	return TierForPercent(a.Percent())
}
