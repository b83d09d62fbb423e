package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const assessmentJSON = `{"title":"Steel Bottle","brand":"Hydra","categories":["Kitchen","Bottles"],
"sustainabilityScore":71,
"materials":{"score":28,"explanation":"Stainless steel.","shortExplanation":"Durable steel"},
"manufacturing":{"score":15,"explanation":"x","shortExplanation":"x"},
"lifecycle":{"score":20,"explanation":"x","shortExplanation":"x"},
"certifications":{"score":8,"explanation":"x","shortExplanation":"x"},
"tips":[{"tip":"Hand wash","category":"maintenance"}]}`

type stubScorer struct {
	calls  int
	result *ProductAssessment
	err    error
}

func (s *stubScorer) AssessProduct(ctx context.Context, page ProductPage) (*ProductAssessment, error) {
	s.calls++
	return s.result, s.err
}

func TestParseAssessmentHandlesFencesAndChatter(t *testing.T) {
	for _, reply := range []string{
		assessmentJSON,
		"```json\n" + assessmentJSON + "\n```",
		"Sure! Here it is:\n" + assessmentJSON + "\nHope this helps.",
	} {
		got, err := parseAssessment(reply)
		require.NoError(t, err)
		assert.Equal(t, "Steel Bottle", got.Title)
		assert.Equal(t, 28, got.Materials.Score)
		assert.Equal(t, "maintenance", got.Tips[0].Category)
	}
}

func TestParseAssessmentRejectsGarbage(t *testing.T) {
	_, err := parseAssessment("I cannot help with that")
	assert.Error(t, err)

	_, err = parseAssessment("{not json}")
	assert.Error(t, err)
}

func TestPromptCarriesPageDetails(t *testing.T) {
	p := buildAssessmentPrompt(ProductPage{URL: "https://www.amazon.com/dp/B1", Title: "Bottle"})
	assert.Contains(t, p, "https://www.amazon.com/dp/B1")
	assert.Contains(t, p, "PAGE TITLE: Bottle")
	assert.Contains(t, p, "materials (0-35)")
}

func TestGeminiAssessProduct(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "k", r.URL.Query().Get("key"))
		assert.Contains(t, r.URL.Path, "gemini-2.5-flash:generateContent")
		resp := map[string]interface{}{
			"candidates": []map[string]interface{}{
				{"content": map[string]interface{}{"parts": []map[string]string{{"text": assessmentJSON}}}},
			},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	got, err := NewGeminiService("k").WithBaseURL(srv.URL).AssessProduct(context.Background(), ProductPage{URL: "u"})
	require.NoError(t, err)
	require.NotNil(t, got.SustainabilityScore)
	assert.Equal(t, 71, *got.SustainabilityScore)
}

func TestGeminiQuotaErrorSurfacesStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"status":"RESOURCE_EXHAUSTED"}}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := NewGeminiService("k").WithBaseURL(srv.URL).AssessProduct(context.Background(), ProductPage{})
	require.Error(t, err)
	assert.True(t, isQuotaError(err))
}

func TestOllamaAssessProduct(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "mistral", body["model"])
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"response": assessmentJSON, "done": true})
	}))
	defer srv.Close()

	got, err := NewOllamaService(srv.URL, "mistral").AssessProduct(context.Background(), ProductPage{})
	require.NoError(t, err)
	assert.Equal(t, "Hydra", got.Brand)
}

func TestFallbackUsesOllamaWhenGeminiFails(t *testing.T) {
	gemini := &stubScorer{err: errors.New("gemini API error (429): quota")}
	ollama := &stubScorer{result: &ProductAssessment{Title: "local"}}

	got, err := NewFallbackService(gemini, ollama).AssessProduct(context.Background(), ProductPage{})
	require.NoError(t, err)
	assert.Equal(t, "local", got.Title)
	assert.Equal(t, 1, gemini.calls)
	assert.Equal(t, 1, ollama.calls)
}

func TestFallbackRetriesGeminiWhenOllamaUnreachable(t *testing.T) {
	gemini := &stubScorer{err: errors.New("transient")}
	ollama := &stubScorer{err: errors.New("dial tcp 127.0.0.1:11434: connection refused")}

	_, err := NewFallbackService(gemini, ollama).AssessProduct(context.Background(), ProductPage{})
	require.Error(t, err)
	assert.Equal(t, 2, gemini.calls)
}

func TestFallbackWrapsOllamaError(t *testing.T) {
	gemini := &stubScorer{err: errors.New("bad request")}
	ollama := &stubScorer{err: errors.New("failed to parse response")}

	_, err := NewFallbackService(gemini, ollama).AssessProduct(context.Background(), ProductPage{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ollama assessment failed")
	assert.Equal(t, 1, gemini.calls)
}

func TestNewScorerService(t *testing.T) {
	getURL := func() string { return "http://localhost:11434" }
	getModel := func() string { return "llama3" }

	_, err := NewScorerService(DynamicConfig{Provider: ProviderGemini})
	assert.Error(t, err)

	svc, err := NewScorerService(DynamicConfig{Provider: ProviderOllama, GetOllamaBaseURL: getURL, GetOllamaModel: getModel})
	require.NoError(t, err)
	assert.IsType(t, &OllamaService{}, svc)

	svc, err = NewScorerService(DynamicConfig{Provider: ProviderAuto, GeminiAPIKey: "k", GetOllamaBaseURL: getURL, GetOllamaModel: getModel})
	require.NoError(t, err)
	assert.IsType(t, &FallbackService{}, svc)

	svc, err = NewScorerService(DynamicConfig{Provider: ProviderAuto, GeminiAPIKey: "k"})
	require.NoError(t, err)
	assert.IsType(t, &GeminiService{}, svc)

	_, err = NewScorerService(DynamicConfig{Provider: ProviderAuto})
	assert.Error(t, err)
}
