package insight

import (
	"context"

	"kakeibo/internal/core"
)

// MockClient is a Client for tests and for running without an API key.
// Unset hooks report ErrNoSuggestion or an empty summary.
type MockClient struct {
	SuggestFunc   func(ctx context.Context, description string, categories []core.Category) (Suggestion, error)
	SummarizeFunc func(ctx context.Context, req SummaryRequest) (Insight, error)
}

func (m *MockClient) SuggestCategory(ctx context.Context, description string, categories []core.Category) (Suggestion, error) {
	if m.SuggestFunc == nil {
		return Suggestion{}, ErrNoSuggestion
	}
	return m.SuggestFunc(ctx, description, categories)
}

func (m *MockClient) Summarize(ctx context.Context, req SummaryRequest) (Insight, error) {
	if m.SummarizeFunc == nil {
		return Insight{}, nil
	}
	return m.SummarizeFunc(ctx, req)
}
