package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/Grabemic/Screenshot-wizard/internal/domain"
)

const responseSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "properties": {
    "content_type": {"type": "string"},
    "text": {"type": "string"},
    "description": {"type": "string"},
    "categories": {"type": "array", "items": {"type": "string"}}
  }
}`

var responseSchema = jsonschema.MustCompileString("analysis-response.json", responseSchemaJSON)

// analysisResponse is the JSON object the model is asked to return.
type analysisResponse struct {
	ContentType string   `json:"content_type"`
	Text        *string  `json:"text"`
	Description string   `json:"description"`
	Categories  []string `json:"categories"`
}

// parseAnalysis converts a raw model reply into an outcome. Replies that are
// not a JSON object matching the response schema are treated as plain text
// and reported as malformed; they never fail.
func parseAnalysis(raw string, override domain.ContentType, maxCategories int) (outcome domain.AnalysisOutcome, malformed bool) {
	content := stripFences(raw)

	resp, err := decodeResponse(content)
	if err != nil {
		outcome = domain.AnalysisOutcome{
			Text:        content,
			Categories:  []string{domain.UncategorizedLabel},
			ContentType: domain.ContentText,
		}
		if override == domain.ContentGraphic {
			outcome.ContentType = domain.ContentGraphic
			outcome.Description = content
		}
		return outcome, true
	}

	text := domain.NoTextLabel
	if resp.Text != nil {
		text = *resp.Text
	}

	outcome = domain.AnalysisOutcome{
		Text:        text,
		Description: strings.TrimSpace(resp.Description),
		Categories:  normalizeCategories(resp.Categories, maxCategories),
		ContentType: classify(resp, override),
	}
	if outcome.ContentType == domain.ContentGraphic && outcome.Description == "" && resp.Text != nil {
		outcome.Description = text
	}
	return outcome, false
}

// stripFences removes a surrounding markdown code block, if any.
func stripFences(content string) string {
	content = strings.TrimSpace(content)
	for _, fence := range []string{"```json", "```"} {
		start := strings.Index(content, fence)
		if start == -1 {
			continue
		}
		body := content[start+len(fence):]
		if end := strings.Index(body, "```"); end != -1 {
			body = body[:end]
		}
		return strings.TrimSpace(body)
	}
	return content
}

func decodeResponse(content string) (*analysisResponse, error) {
	// Find JSON object boundaries; the model may add prose around it.
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start == -1 || end == -1 || end <= start {
		return nil, fmt.Errorf("no valid JSON found in response")
	}
	body := []byte(content[start : end+1])

	var generic any
	if err := json.Unmarshal(body, &generic); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}
	if err := responseSchema.Validate(generic); err != nil {
		return nil, fmt.Errorf("response does not match schema: %w", err)
	}

	var resp analysisResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &resp, nil
}

// classify picks the content type: the override wins, then the model's own
// classification, then the presence of a description without text.
func classify(resp *analysisResponse, override domain.ContentType) domain.ContentType {
	if override != "" {
		return override
	}
	switch domain.ContentType(strings.ToLower(strings.TrimSpace(resp.ContentType))) {
	case domain.ContentGraphic:
		return domain.ContentGraphic
	case domain.ContentText:
		return domain.ContentText
	}
	if resp.Text == nil && strings.TrimSpace(resp.Description) != "" {
		return domain.ContentGraphic
	}
	return domain.ContentText
}

// normalizeCategories trims labels, drops blanks and keeps at most max in order.
func normalizeCategories(in []string, max int) []string {
	out := make([]string, 0, len(in))
	for _, c := range in {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, c)
		}
	}
	if len(out) == 0 {
		return []string{domain.UncategorizedLabel}
	}
	if max > 0 && len(out) > max {
		out = out[:max]
	}
	return out
}
