package ai

import "fmt"

// DynamicConfig holds AI provider configuration. The Ollama endpoint is read
// through getters so it can be changed at runtime.
type DynamicConfig struct {
	Provider ProviderType // "gemini", "ollama" or "auto"

	// Gemini config
	GeminiAPIKey string

	// Ollama config
	GetOllamaBaseURL func() string // e.g., "http://localhost:11434"
	GetOllamaModel   func() string // e.g., "llama3", "mistral"
}

// NewScorerService creates a ScorerService based on the config.
// Switch AI provider by changing cfg.Provider; "auto" routes through the
// fallback service when both providers are usable.
func NewScorerService(cfg DynamicConfig) (ScorerService, error) {
	var ollama *OllamaService
	if cfg.GetOllamaBaseURL != nil && cfg.GetOllamaModel != nil {
		ollama = NewOllamaServiceWithGetters(cfg.GetOllamaBaseURL, cfg.GetOllamaModel)
	}

	switch cfg.Provider {
	case ProviderGemini:
		if cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY is required for Gemini provider")
		}
		return NewGeminiService(cfg.GeminiAPIKey), nil

	case ProviderOllama:
		if ollama == nil {
			return nil, fmt.Errorf("ollama endpoint is not configured")
		}
		return ollama, nil

	default:
		var gemini ScorerService
		if cfg.GeminiAPIKey != "" {
			gemini = NewGeminiService(cfg.GeminiAPIKey)
		}
		switch {
		case gemini != nil && ollama != nil:
			return NewFallbackService(gemini, ollama), nil
		case gemini != nil:
			return gemini, nil
		case ollama != nil:
			return ollama, nil
		}
		return nil, fmt.Errorf("no AI provider configured")
	}
}
