package domain

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var asinPattern = regexp.MustCompile(`/(?:dp|gp/product|product)/([A-Z0-9]{10})(?:[/?]|$)`)

// ASINFromURL extracts an Amazon product identifier from a product URL.
func ASINFromURL(productURL string) string {
	m := asinPattern.FindStringSubmatch(productURL)
	if len(m) < 2 {
		return ""
	}
	return m[1]
}

// ValidateProductURL checks that raw is an absolute http(s) URL whose host
// matches, or is a subdomain of, one of the allowed hosts.
func ValidateProductURL(raw string, allowedHosts []string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrInvalidURL
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, ErrInvalidURL
	}
	if len(allowedHosts) == 0 {
		return u, nil
	}
	host := strings.ToLower(u.Hostname())
	for _, allowed := range allowedHosts {
		allowed = strings.ToLower(strings.TrimSpace(allowed))
		if host == allowed || strings.HasSuffix(host, "."+allowed) {
			return u, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedHost, host)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ScoreFromAspects sets the overall score to the sum of the clamped aspect
// scores.
func (p *ProductData) ScoreFromAspects() {
	p.normalizeAspects()
	p.SustainabilityScore = p.Aspects.Total()
}

func (p *ProductData) normalizeAspects() {
	p.Aspects.Materials = normalizeAspect(p.Aspects.Materials, MaxMaterials)
	p.Aspects.Manufacturing = normalizeAspect(p.Aspects.Manufacturing, MaxManufacturing)
	p.Aspects.Lifecycle = normalizeAspect(p.Aspects.Lifecycle, MaxLifecycle)
	p.Aspects.Certifications = normalizeAspect(p.Aspects.Certifications, MaxCertifications)
}

func normalizeAspect(a Aspect, max int) Aspect {
	a.MaxScore = max
	a.Score = clamp(a.Score, 0, max)
	a.Explanation = strings.TrimSpace(a.Explanation)
	a.ShortExplanation = strings.TrimSpace(a.ShortExplanation)
	return a
}

// Normalize forces the record into its invariants: fixed aspect maxima,
// aspect scores within [0, max], an overall score within [0, 100] and known
// tip categories. A missing product id is derived from the URL. A score of
// 0 is a real score; sources that omit it call ScoreFromAspects.
func (p *ProductData) Normalize(productURL string) {
	p.normalizeAspects()
	p.SustainabilityScore = clamp(p.SustainabilityScore, 0, 100)

	if p.ProductID == "" {
		p.ProductID = ASINFromURL(productURL)
	}
	p.Title = strings.TrimSpace(p.Title)
	p.Brand = strings.TrimSpace(p.Brand)

	cats := p.Categories[:0]
	for _, c := range p.Categories {
		if c = strings.TrimSpace(c); c != "" {
			cats = append(cats, c)
		}
	}
	p.Categories = cats

	tips := p.SustainabilityTips[:0]
	for _, t := range p.SustainabilityTips {
		t.Tip = strings.TrimSpace(t.Tip)
		if t.Tip == "" {
			continue
		}
		if !t.Category.Valid() {
			t.Category = TipGeneral
		}
		tips = append(tips, t)
	}
	p.SustainabilityTips = tips
}

// Validate reports whether the record satisfies its invariants without
// modifying it.
func (p *ProductData) Validate() error {
	if p.Title == "" {
		return fmt.Errorf("%w: missing title", ErrInvalidProductData)
	}
	if p.SustainabilityScore < 0 || p.SustainabilityScore > 100 {
		return fmt.Errorf("%w: score %d out of range", ErrInvalidProductData, p.SustainabilityScore)
	}
	maxima := map[string]int{
		AspectMaterials:      MaxMaterials,
		AspectManufacturing:  MaxManufacturing,
		AspectLifecycle:      MaxLifecycle,
		AspectCertifications: MaxCertifications,
	}
	for _, a := range p.Aspects.List() {
		if a.MaxScore != maxima[a.Name] {
			return fmt.Errorf("%w: %s maxScore %d", ErrInvalidProductData, a.Name, a.MaxScore)
		}
		if a.Score < 0 || a.Score > a.MaxScore {
			return fmt.Errorf("%w: %s score %d", ErrInvalidProductData, a.Name, a.Score)
		}
	}
	return nil
}
