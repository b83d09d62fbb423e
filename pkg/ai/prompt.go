package ai

import (
	"encoding/json"
	"fmt"
	"strings"
)

const maxPageTextChars = 4000

func buildAssessmentPrompt(page ProductPage) string {
	text := page.Text
	if len(text) > maxPageTextChars {
		text = text[:maxPageTextChars]
	}

	return fmt.Sprintf(`You are a sustainability analyst. Assess the environmental impact of the product below.

Score four aspects with these maximum points:
- materials (0-35): recycled, renewable or low-impact materials, hazardous content
- manufacturing (0-25): energy use, emissions, labour and supply chain practices
- lifecycle (0-25): durability, repairability, packaging, end-of-life recycling
- certifications (0-15): credible third-party eco certifications

sustainabilityScore is the sum of the four aspect scores (0-100).
categories is the product category path, most specific last.
Give each aspect a one-paragraph explanation and a shortExplanation under 12 words.
Give 2-4 tips; category must be one of usage, maintenance, disposal, general.

Reply with ONLY a JSON object of this shape, no other text:
{"title":"","brand":"","categories":[],"sustainabilityScore":0,
"materials":{"score":0,"explanation":"","shortExplanation":""},
"manufacturing":{"score":0,"explanation":"","shortExplanation":""},
"lifecycle":{"score":0,"explanation":"","shortExplanation":""},
"certifications":{"score":0,"explanation":"","shortExplanation":""},
"tips":[{"tip":"","category":"general"}]}

PRODUCT URL: %s
PAGE TITLE: %s
DESCRIPTION: %s
PAGE TEXT:
%s

JSON OUTPUT:`, page.URL, page.Title, page.Description, text)
}

// parseAssessment pulls the JSON object out of a model reply, tolerating
// markdown fences and leading or trailing chatter.
func parseAssessment(reply string) (*ProductAssessment, error) {
	text := strings.TrimSpace(reply)
	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimSuffix(text, "```")
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(text, "```")
	}
	text = strings.TrimSpace(text)

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end <= start {
		return nil, fmt.Errorf("no JSON object in model reply")
	}

	var out ProductAssessment
	if err := json.Unmarshal([]byte(text[start:end+1]), &out); err != nil {
		return nil, fmt.Errorf("failed to parse assessment JSON: %w", err)
	}
	return &out, nil
}
