package insight

import (
	"encoding/json"
	"fmt"
	"strings"

	"kakeibo/internal/core"
)

// minConfidence is the floor below which a suggestion is treated as absent.
const minConfidence = 0.5

// parseSuggestion extracts a category proposal from model output and
// validates it against the known expense categories. Anything the registry
// does not contain becomes ErrNoSuggestion, never an invented category.
func parseSuggestion(content string, categories []core.Category) (Suggestion, error) {
	var jsonResp struct {
		Category   string  `json:"category"`
		Confidence float64 `json:"confidence"`
	}

	content = cleanMarkdownWrapper(content)
	if err := json.Unmarshal([]byte(content), &jsonResp); err != nil {
		return Suggestion{}, fmt.Errorf("%w: parse JSON response: %v", ErrUpstream, err)
	}

	name := strings.TrimSpace(jsonResp.Category)
	if name == "" || jsonResp.Confidence < minConfidence {
		return Suggestion{}, ErrNoSuggestion
	}

	for _, cat := range categories {
		if strings.EqualFold(cat.Name, name) || cat.ID == name {
			return Suggestion{CategoryID: cat.ID, Confidence: jsonResp.Confidence}, nil
		}
	}
	return Suggestion{}, ErrNoSuggestion
}

// parseInsight extracts a structured cycle review from model output. An
// empty summary means the response is unusable, reported as ErrUpstream.
func parseInsight(content string) (Insight, error) {
	var result Insight
	content = cleanMarkdownWrapper(content)
	if err := json.Unmarshal([]byte(content), &result); err != nil {
		return Insight{}, fmt.Errorf("%w: parse JSON response: %v", ErrUpstream, err)
	}
	if strings.TrimSpace(result.Summary) == "" {
		return Insight{}, fmt.Errorf("%w: empty summary", ErrUpstream)
	}
	if result.Overruns == nil {
		result.Overruns = []string{}
	}
	if result.Recommendations == nil {
		result.Recommendations = []string{}
	}
	return result, nil
}

// cleanMarkdownWrapper strips a ``` or ```json fence when the model wraps
// its JSON in one.
func cleanMarkdownWrapper(content string) string {
	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, "```") {
		return content
	}
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(strings.TrimSpace(content), "```")
	return strings.TrimSpace(content)
}

// expenseCategories filters the registry down to suggestable categories.
func expenseCategories(cats []core.Category) []core.Category {
	var out []core.Category
	for _, c := range cats {
		if c.Kind == core.Expense {
			out = append(out, c)
		}
	}
	return out
}
