package domain

import "sort"

var fallbackTips = []SustainabilityTip{
	{Tip: "Use this product as intended to maximize its lifespan and efficiency.", Category: TipUsage},
	{Tip: "Follow the manufacturer's maintenance guidelines to extend the product's life.", Category: TipMaintenance},
	{Tip: "Check local recycling guidelines for proper disposal of this product.", Category: TipDisposal},
	{Tip: "Consider the environmental impact when purchasing similar products in the future.", Category: TipGeneral},
}

// EffectiveTips returns the tips to show for a product: its own tips, or the
// fallback set when it has none. General tips come first; the relative order
// of everything else is kept.
func EffectiveTips(tips []SustainabilityTip) []SustainabilityTip {
	src := tips
	if len(src) == 0 {
		src = fallbackTips
	}
	out := make([]SustainabilityTip, len(src))
	copy(out, src)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Category == TipGeneral && out[j].Category != TipGeneral
	})
	return out
}

// BetterAlternatives keeps only alternatives scoring strictly above score,
// best first.
func BetterAlternatives(score int, alts []AlternativeProduct) []AlternativeProduct {
	out := make([]AlternativeProduct, 0, len(alts))
	for _, a := range alts {
		if a.Score > score {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}
