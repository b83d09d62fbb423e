package usecase

import (
	"context"
	"strings"

	"sustainly-backend/internal/product/domain"
	"sustainly-backend/internal/product/repository"
	"sustainly-backend/pkg/ai"
	"sustainly-backend/pkg/logger"
	"sustainly-backend/pkg/pagemeta"
)

// upstreamAnalyzer delegates scoring to the remote product-score API.
type upstreamAnalyzer struct {
	source repository.ScoreSource
}

func NewUpstreamAnalyzer(source repository.ScoreSource) Analyzer {
	return &upstreamAnalyzer{source: source}
}

func (a *upstreamAnalyzer) Name() string { return "upstream" }

func (a *upstreamAnalyzer) Analyze(ctx context.Context, productURL, accessToken string) (*domain.ProductData, error) {
	return a.source.FetchScore(ctx, productURL, accessToken)
}

// PageFetcher loads product page metadata.
type PageFetcher interface {
	Fetch(ctx context.Context, pageURL string) (*pagemeta.Page, error)
}

// aiAnalyzer reads the product page and asks an LLM for the assessment.
type aiAnalyzer struct {
	pages  PageFetcher
	scorer ai.ScorerService
	log    *logger.Logger
}

func NewAIAnalyzer(pages PageFetcher, scorer ai.ScorerService, log *logger.Logger) Analyzer {
	if log == nil {
		log = logger.Nop()
	}
	return &aiAnalyzer{pages: pages, scorer: scorer, log: log}
}

func (a *aiAnalyzer) Name() string { return "ai" }

func (a *aiAnalyzer) Analyze(ctx context.Context, productURL, _ string) (*domain.ProductData, error) {
	page := ai.ProductPage{URL: productURL}
	if a.pages != nil {
		meta, err := a.pages.Fetch(ctx, productURL)
		if err != nil {
			// Retailers often block scrapers; the model can still work from the URL.
			a.log.Warn("Product page fetch failed, assessing from URL only", "url", productURL, "error", err)
		} else {
			page.Title = meta.Title
			page.Description = meta.Description
			page.ImageURL = meta.ImageURL
			page.Text = meta.Text
		}
	}

	assessment, err := a.scorer.AssessProduct(ctx, page)
	if err != nil {
		return nil, err
	}
	return assessmentToProduct(assessment, page), nil
}

func assessmentToProduct(as *ai.ProductAssessment, page ai.ProductPage) *domain.ProductData {
	title := strings.TrimSpace(as.Title)
	if title == "" {
		title = page.Title
	}
	tips := make([]domain.SustainabilityTip, 0, len(as.Tips))
	for _, t := range as.Tips {
		tips = append(tips, domain.SustainabilityTip{
			Tip:      t.Tip,
			Category: domain.TipCategory(strings.ToLower(strings.TrimSpace(t.Category))),
		})
	}
	p := &domain.ProductData{
		Title:      title,
		Brand:      as.Brand,
		MainImage:  page.ImageURL,
		Categories: as.Categories,
		Aspects: domain.Aspects{
			Materials:      toAspect(as.Materials),
			Manufacturing:  toAspect(as.Manufacturing),
			Lifecycle:      toAspect(as.Lifecycle),
			Certifications: toAspect(as.Certifications),
		},
		SustainabilityTips: tips,
	}
	if as.SustainabilityScore != nil {
		p.SustainabilityScore = *as.SustainabilityScore
	} else {
		p.ScoreFromAspects()
	}
	return p
}

func toAspect(a ai.AspectAssessment) domain.Aspect {
	return domain.Aspect{
		Score:            a.Score,
		Explanation:      a.Explanation,
		ShortExplanation: a.ShortExplanation,
	}
}
