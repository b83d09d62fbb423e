package ai

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"sustainly-backend/pkg/logger"
)

// FallbackService routes assessments to Gemini first (better quality) and
// falls back to the local Ollama model when Gemini fails.
type FallbackService struct {
	gemini ScorerService
	ollama ScorerService
	log    *logger.Logger
}

// NewFallbackService creates a new fallback service with both providers
func NewFallbackService(gemini, ollama ScorerService) *FallbackService {
	return &FallbackService{
		gemini: gemini,
		ollama: ollama,
		log:    logger.Nop(),
	}
}

// SetLogger replaces the no-op logger.
func (f *FallbackService) SetLogger(log *logger.Logger) {
	f.log = log.With("component", "AIFallback")
}

// isConnectionError checks if the error is a network/connection error
func isConnectionError(err error) bool {
	if err == nil {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	errStr := strings.ToLower(err.Error())
	for _, indicator := range []string{
		"connection refused",
		"no such host",
		"network is unreachable",
		"connection reset",
		"timeout",
		"dial tcp",
		"eof",
	} {
		if strings.Contains(errStr, indicator) {
			return true
		}
	}
	return false
}

// isQuotaError checks if the error indicates API quota exhaustion (429)
func isQuotaError(err error) bool {
	if err == nil {
		return false
	}

	errStr := strings.ToLower(err.Error())
	for _, indicator := range []string{
		"429",
		"quota",
		"rate limit",
		"too many requests",
		"resource_exhausted",
		"resource exhausted",
	} {
		if strings.Contains(errStr, indicator) {
			return true
		}
	}
	return false
}

// AssessProduct tries Gemini first, falls back to Ollama, and gives Gemini a
// second chance when Ollama cannot be reached at all.
func (f *FallbackService) AssessProduct(ctx context.Context, page ProductPage) (*ProductAssessment, error) {
	if f.gemini != nil {
		result, err := f.gemini.AssessProduct(ctx, page)
		if err == nil {
			return result, nil
		}
		if isQuotaError(err) {
			f.log.Warn("Gemini quota exhausted, falling back to Ollama", "error", err)
		} else {
			f.log.Warn("Gemini error, falling back to Ollama", "error", err)
		}
	}

	if f.ollama != nil {
		result, err := f.ollama.AssessProduct(ctx, page)
		if err == nil {
			return result, nil
		}
		if isConnectionError(err) && f.gemini != nil {
			f.log.Warn("Ollama unreachable, retrying Gemini", "error", err)
			return f.gemini.AssessProduct(ctx, page)
		}
		return nil, fmt.Errorf("ollama assessment failed: %w", err)
	}

	return nil, fmt.Errorf("no AI provider available for assessment")
}
