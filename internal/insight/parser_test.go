package insight

import (
	"errors"
	"testing"

	"kakeibo/internal/core"
)

func suggestableCategories() []core.Category {
	return []core.Category{
		{ID: "food", Name: "Food", Kind: core.Expense},
		{ID: "rent", Name: "Rent", Kind: core.Expense},
	}
}

func TestParseSuggestion(t *testing.T) {
	cats := suggestableCategories()

	tests := []struct {
		name    string
		content string
		wantID  string
		wantErr error
	}{
		{
			name:    "plain JSON",
			content: `{"category": "Food", "confidence": 0.92}`,
			wantID:  "food",
		},
		{
			name:    "markdown fenced",
			content: "```json\n{\"category\": \"Rent\", \"confidence\": 0.8}\n```",
			wantID:  "rent",
		},
		{
			name:    "category by id",
			content: `{"category": "food", "confidence": 0.7}`,
			wantID:  "food",
		},
		{
			name:    "case insensitive name",
			content: `{"category": "FOOD", "confidence": 0.7}`,
			wantID:  "food",
		},
		{
			name:    "unknown category",
			content: `{"category": "Travel", "confidence": 0.95}`,
			wantErr: ErrNoSuggestion,
		},
		{
			name:    "empty category",
			content: `{"category": "", "confidence": 0.9}`,
			wantErr: ErrNoSuggestion,
		},
		{
			name:    "low confidence",
			content: `{"category": "Food", "confidence": 0.2}`,
			wantErr: ErrNoSuggestion,
		},
		{
			name:    "not JSON",
			content: "probably Food",
			wantErr: ErrUpstream,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseSuggestion(tt.content, cats)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.CategoryID != tt.wantID {
				t.Errorf("category = %q, want %q", got.CategoryID, tt.wantID)
			}
		})
	}
}

func TestCleanMarkdownWrapper(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"bare", `{"a":1}`, `{"a":1}`},
		{"fenced", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"fenced json", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"whitespace", "  {\"a\":1}  ", `{"a":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cleanMarkdownWrapper(tt.content); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseInsight(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
		wantErr error
	}{
		{
			name:    "plain JSON",
			content: `{"summary": "On track.", "overruns": ["food"], "recommendations": ["cook more"]}`,
			want:    "On track.",
		},
		{
			name:    "fenced JSON",
			content: "```json\n{\"summary\": \"On track.\"}\n```",
			want:    "On track.",
		},
		{
			name:    "empty summary",
			content: `{"summary": "  "}`,
			wantErr: ErrUpstream,
		},
		{
			name:    "not JSON",
			content: "everything looks fine",
			wantErr: ErrUpstream,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseInsight(tt.content)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseInsight: %v", err)
			}
			if got.Summary != tt.want {
				t.Errorf("summary = %q, want %q", got.Summary, tt.want)
			}
			if got.Overruns == nil || got.Recommendations == nil {
				t.Error("missing arrays should decode as empty slices")
			}
		})
	}
}
