package dto

import (
	"math"

	"sustainly-backend/internal/product/domain"
)

// AspectView is an aspect decorated for display.
type AspectView struct {
	domain.Aspect
	Name    string      `json:"name"`
	Percent float64     `json:"percent"`
	Tier    domain.Tier `json:"tier"`
}

// ProductView is the product-score response: the raw record plus the
// derived presentation values the UI renders directly.
type ProductView struct {
	*domain.ProductData
	ScoreTier     domain.Tier                `json:"scoreTier"`
	AspectDetails []AspectView               `json:"aspectDetails"`
	Tips          []domain.SustainabilityTip `json:"tips"`
}

// NewProductView builds the display view for p.
func NewProductView(p *domain.ProductData) *ProductView {
	aspects := p.Aspects.List()
	details := make([]AspectView, 0, len(aspects))
	for _, a := range aspects {
		details = append(details, AspectView{
			Aspect:  a.Aspect,
			Name:    a.Name,
			Percent: math.Round(a.Percent()*10) / 10,
			Tier:    a.Tier(),
		})
	}
	return &ProductView{
		ProductData:   p,
		ScoreTier:     domain.TierForScore(p.SustainabilityScore),
		AspectDetails: details,
		Tips:          domain.EffectiveTips(p.SustainabilityTips),
	}
}
