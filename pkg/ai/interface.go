package ai

import "context"

// ProductPage is what we know about a product page before scoring it.
type ProductPage struct {
	URL         string
	Title       string
	Description string
	ImageURL    string
	Text        string
}

// AspectAssessment is the model's verdict on one sustainability aspect.
type AspectAssessment struct {
	Score            int    `json:"score"`
	Explanation      string `json:"explanation"`
	ShortExplanation string `json:"shortExplanation"`
}

// TipAssessment is one suggested sustainability tip.
type TipAssessment struct {
	Tip      string `json:"tip"`
	Category string `json:"category"`
}

// ProductAssessment is the structured output requested from every provider
// (shared type).
type ProductAssessment struct {
	Title               string           `json:"title"`
	Brand               string           `json:"brand"`
	Categories          []string         `json:"categories"`
	SustainabilityScore *int             `json:"sustainabilityScore"` // nil when the model left it out
	Materials           AspectAssessment `json:"materials"`
	Manufacturing       AspectAssessment `json:"manufacturing"`
	Lifecycle           AspectAssessment `json:"lifecycle"`
	Certifications      AspectAssessment `json:"certifications"`
	Tips                []TipAssessment  `json:"tips"`
}

// ScorerService is the interface for AI sustainability assessment.
// Implement this interface to add new AI providers (Gemini, Ollama, OpenAI, etc.)
type ScorerService interface {
	AssessProduct(ctx context.Context, page ProductPage) (*ProductAssessment, error)
}

// ProviderType represents the AI provider type
type ProviderType string

const (
	ProviderGemini ProviderType = "gemini"
	ProviderOllama ProviderType = "ollama"
	ProviderAuto   ProviderType = "auto"
)
