package insight

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"kakeibo/internal/core"
)

// Config holds the connection settings for the hosted API.
type Config struct {
	APIKey   string
	Model    string
	Endpoint string // base URL, e.g. https://generativelanguage.googleapis.com/v1beta
}

// geminiClient implements Client against the generative-language REST API.
type geminiClient struct {
	httpClient *http.Client
	apiKey     string
	model      string
	endpoint   string
}

// NewGeminiClient builds the hosted-API client.
func NewGeminiClient(cfg Config) (Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("insight API key is required")
	}

	model := cfg.Model
	if model == "" {
		model = "gemini-1.5-flash"
	}
	endpoint := strings.TrimSuffix(cfg.Endpoint, "/")
	if endpoint == "" {
		endpoint = "https://generativelanguage.googleapis.com/v1beta"
	}

	return &geminiClient{
		apiKey:   cfg.APIKey,
		model:    model,
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}, nil
}

func (c *geminiClient) SuggestCategory(ctx context.Context, description string, categories []core.Category) (Suggestion, error) {
	if strings.TrimSpace(description) == "" {
		return Suggestion{}, ErrNoSuggestion
	}
	expense := expenseCategories(categories)
	if len(expense) == 0 {
		return Suggestion{}, ErrNoSuggestion
	}

	var names []string
	for _, cat := range expense {
		names = append(names, cat.Name)
	}
	prompt := fmt.Sprintf(
		"Pick the best matching expense category for this transaction description.\n"+
			"Description: %q\n"+
			"Categories: %s\n"+
			"Respond with JSON only: {\"category\": \"<name>\", \"confidence\": <0..1>}. "+
			"Use an empty category when nothing fits.",
		description, strings.Join(names, ", "))

	content, err := c.generate(ctx, prompt)
	if err != nil {
		return Suggestion{}, err
	}
	return parseSuggestion(content, expense)
}

func (c *geminiClient) Summarize(ctx context.Context, req SummaryRequest) (Insight, error) {
	material, err := json.Marshal(summaryMaterial(req))
	if err != nil {
		return Insight{}, fmt.Errorf("marshal summary material: %w", err)
	}

	prompt := fmt.Sprintf(
		"Review this household budget cycle. Amounts are in cents.\n%s\n"+
			"Respond with JSON only: {\"summary\": \"<two or three plain sentences>\", "+
			"\"overruns\": [\"<category over budget>\", ...], "+
			"\"recommendations\": [\"<concrete advice>\", ...]}. "+
			"Use empty arrays when there is nothing to report.",
		material)

	content, err := c.generate(ctx, prompt)
	if err != nil {
		return Insight{}, err
	}
	return parseInsight(content)
}

// generate performs one generateContent call and returns the text of the
// first candidate.
func (c *geminiClient) generate(ctx context.Context, prompt string) (string, error) {
	requestBody := map[string]any{
		"contents": []map[string]any{
			{"parts": []map[string]string{{"text": prompt}}},
		},
		"generationConfig": map[string]any{
			"temperature": 0.2,
		},
	}

	jsonBody, err := json.Marshal(requestBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", c.endpoint, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(string(jsonBody)))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: read response: %v", ErrUpstream, err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d: %s", ErrUpstream, resp.StatusCode, string(body))
	}

	var response geminiResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return "", fmt.Errorf("%w: parse response: %v", ErrUpstream, err)
	}
	if len(response.Candidates) == 0 || len(response.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("%w: no content in response", ErrUpstream)
	}
	return response.Candidates[0].Content.Parts[0].Text, nil
}

// geminiResponse mirrors the generateContent response structure.
type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// summaryMaterial reduces a SummaryRequest to the JSON actually sent.
func summaryMaterial(req SummaryRequest) map[string]any {
	type detail struct {
		Category string `json:"category"`
		Budget   int64  `json:"budget_cents"`
		Actual   int64  `json:"actual_cents"`
	}
	details := make([]detail, 0, len(req.Summary.ExpenseDetails))
	for _, d := range req.Summary.ExpenseDetails {
		details = append(details, detail{Category: d.Name, Budget: d.Budget.Cents, Actual: d.Actual.Cents})
	}
	return map[string]any{
		"cycle_start":     req.Summary.Cycle.Start.String(),
		"cycle_end":       req.Summary.Cycle.End.String(),
		"planned_income":  req.Summary.PlannedIncome.Cents,
		"planned_expense": req.Summary.PlannedExpense.Cents,
		"actual_income":   req.Summary.ActualIncome.Cents,
		"actual_expense":  req.Summary.ActualExpense.Cents,
		"is_bonus_cycle":  req.Summary.IsBonusCycle,
		"expense_details": details,
		"transactions":    len(req.Transactions),
	}
}
