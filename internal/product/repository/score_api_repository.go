package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"sustainly-backend/internal/product/domain"

	"golang.org/x/time/rate"
)

const (
	defaultScoreAPITimeout = 60 * time.Second
	defaultScoreAPIRate    = 5
	defaultScoreAPIBurst   = 10
	maxErrorBodyBytes      = 2048
)

// scoreAPIResponse shadows the overall score so an omitted score can be told
// apart from a score of 0.
type scoreAPIResponse struct {
	domain.ProductData
	SustainabilityScore *int `json:"sustainabilityScore"`
}

// scoreAPIRepository calls an upstream analysis service:
// GET <base>/product-score?url=<encoded URL>
type scoreAPIRepository struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewScoreAPIRepository creates a ScoreSource for the given base URL.
// A nil client gets a default client with a generous timeout, since
// analyses can take tens of seconds.
func NewScoreAPIRepository(baseURL, apiKey string, httpClient *http.Client) ScoreSource {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultScoreAPITimeout}
	}
	return &scoreAPIRepository{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: httpClient,
		limiter:    rate.NewLimiter(rate.Limit(defaultScoreAPIRate), defaultScoreAPIBurst),
	}
}

func (r *scoreAPIRepository) FetchScore(ctx context.Context, productURL, accessToken string) (*domain.ProductData, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("score api rate limiter: %w", err)
	}

	endpoint := r.baseURL + "/product-score?url=" + url.QueryEscape(productURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if r.apiKey != "" {
		req.Header.Set("x-api-key", r.apiKey)
	}
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("score api request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return nil, fmt.Errorf("score api error (%d): %s", resp.StatusCode, string(body))
	}

	var body scoreAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode score api response: %w", err)
	}
	data := body.ProductData
	if body.SustainabilityScore != nil {
		data.SustainabilityScore = *body.SustainabilityScore
	} else {
		data.ScoreFromAspects()
	}
	return &data, nil
}
