package domain

import (
	"errors"
	"time"

	"gorm.io/datatypes"
)

var (
	ErrInvalidURL         = errors.New("please enter a valid product URL")
	ErrUnsupportedHost    = errors.New("product URL host is not supported")
	ErrAnalysisFailed     = errors.New("failed to analyze product")
	ErrInvalidProductData = errors.New("invalid product data")
)

// Aspect names, in display order.
const (
	AspectMaterials      = "materials"
	AspectManufacturing  = "manufacturing"
	AspectLifecycle      = "lifecycle"
	AspectCertifications = "certifications"
)

// Fixed maximum per aspect. They add up to 100 so the aspect scores share
// the overall score's scale.
const (
	MaxMaterials      = 35
	MaxManufacturing  = 25
	MaxLifecycle      = 25
	MaxCertifications = 15
)

// Aspect is one scored sustainability dimension.
type Aspect struct {
	Score            int    `json:"score"`
	MaxScore         int    `json:"maxScore"`
	Explanation      string `json:"explanation"`
	ShortExplanation string `json:"shortExplanation"`
}

// Aspects always carries exactly the four fixed dimensions.
type Aspects struct {
	Materials      Aspect `json:"materials"`
	Manufacturing  Aspect `json:"manufacturing"`
	Lifecycle      Aspect `json:"lifecycle"`
	Certifications Aspect `json:"certifications"`
}

// NamedAspect pairs an aspect with its key.
type NamedAspect struct {
	Name string
	Aspect
}

// List returns the aspects in display order.
func (a Aspects) List() []NamedAspect {
	return []NamedAspect{
		{Name: AspectMaterials, Aspect: a.Materials},
		{Name: AspectManufacturing, Aspect: a.Manufacturing},
		{Name: AspectLifecycle, Aspect: a.Lifecycle},
		{Name: AspectCertifications, Aspect: a.Certifications},
	}
}

// Total sums the four aspect scores.
func (a Aspects) Total() int {
	return a.Materials.Score + a.Manufacturing.Score + a.Lifecycle.Score + a.Certifications.Score
}

// TipCategory groups sustainability tips.
type TipCategory string

const (
	TipUsage       TipCategory = "usage"
	TipMaintenance TipCategory = "maintenance"
	TipDisposal    TipCategory = "disposal"
	TipGeneral     TipCategory = "general"
)

// Valid reports whether c is one of the known categories.
func (c TipCategory) Valid() bool {
	switch c {
	case TipUsage, TipMaintenance, TipDisposal, TipGeneral:
		return true
	}
	return false
}

type SustainabilityTip struct {
	Tip      string      `json:"tip"`
	Category TipCategory `json:"category"`
}

// AlternativeProduct is a more sustainable product suggested next to a result.
type AlternativeProduct struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Brand    string `json:"brand"`
	Score    int    `json:"score"`
	ImageSrc string `json:"imageSrc"`
}

// ProductData is the scored sustainability record for one product.
type ProductData struct {
	ProductID           string               `json:"productId"`
	Title               string               `json:"title"`
	Brand               string               `json:"brand"`
	MainImage           string               `json:"mainImage"`
	SustainabilityScore int                  `json:"sustainabilityScore"`
	Categories          []string             `json:"categories"`
	Aspects             Aspects              `json:"aspects"`
	SustainabilityTips  []SustainabilityTip  `json:"sustainabilityTips,omitempty"`
	Alternatives        []AlternativeProduct `json:"alternatives,omitempty"`
}

// ProductScore is a stored analysis result, keyed by the submitted URL.
type ProductScore struct {
	ID         string         `json:"id" gorm:"primaryKey"`
	ProductID  string         `json:"product_id" gorm:"index"`
	ProductURL string         `json:"product_url" gorm:"uniqueIndex;not null"`
	Title      string         `json:"title"`
	Brand      string         `json:"brand"`
	Score      int            `json:"score" gorm:"index"`
	Data       datatypes.JSON `json:"data"`
	ScoredAt   time.Time      `json:"scored_at" gorm:"index"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (ProductScore) TableName() string {
	return "product_scores"
}
