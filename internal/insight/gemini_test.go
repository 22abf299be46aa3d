package insight

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"kakeibo/internal/core"
)

func geminiStub(t *testing.T, status int, text string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if r.Header.Get("x-goog-api-key") == "" {
			t.Error("missing API key header")
		}
		w.WriteHeader(status)
		if status != http.StatusOK {
			_, _ = w.Write([]byte(`{"error": {"message": "boom"}}`))
			return
		}
		resp := map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{"parts": []map[string]string{{"text": text}}}},
			},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func TestGeminiClient_SuggestCategory(t *testing.T) {
	srv := geminiStub(t, http.StatusOK, `{"category": "Food", "confidence": 0.9}`)
	defer srv.Close()

	client, err := NewGeminiClient(Config{APIKey: "test", Endpoint: srv.URL})
	if err != nil {
		t.Fatalf("NewGeminiClient: %v", err)
	}

	got, err := client.SuggestCategory(context.Background(), "supermarket run", suggestableCategories())
	if err != nil {
		t.Fatalf("SuggestCategory: %v", err)
	}
	if got.CategoryID != "food" || got.Confidence != 0.9 {
		t.Errorf("suggestion = %+v", got)
	}
}

func TestGeminiClient_SuggestCategoryShortCircuits(t *testing.T) {
	// No server: these paths must not hit the network.
	client, err := NewGeminiClient(Config{APIKey: "test", Endpoint: "http://127.0.0.1:1"})
	if err != nil {
		t.Fatalf("NewGeminiClient: %v", err)
	}

	if _, err := client.SuggestCategory(context.Background(), "  ", suggestableCategories()); !errors.Is(err, ErrNoSuggestion) {
		t.Errorf("blank description error = %v, want ErrNoSuggestion", err)
	}

	incomeOnly := []core.Category{{ID: "salary", Name: "Salary", Kind: core.Income}}
	if _, err := client.SuggestCategory(context.Background(), "groceries", incomeOnly); !errors.Is(err, ErrNoSuggestion) {
		t.Errorf("no expense categories error = %v, want ErrNoSuggestion", err)
	}
}

func TestGeminiClient_UpstreamFailure(t *testing.T) {
	srv := geminiStub(t, http.StatusInternalServerError, "")
	defer srv.Close()

	client, err := NewGeminiClient(Config{APIKey: "test", Endpoint: srv.URL})
	if err != nil {
		t.Fatalf("NewGeminiClient: %v", err)
	}

	if _, err := client.SuggestCategory(context.Background(), "groceries", suggestableCategories()); !errors.Is(err, ErrUpstream) {
		t.Errorf("error = %v, want ErrUpstream", err)
	}
}

func TestGeminiClient_Summarize(t *testing.T) {
	srv := geminiStub(t, http.StatusOK,
		`{"summary": "Spending is on track this cycle.", "overruns": ["food"], "recommendations": []}`)
	defer srv.Close()

	client, err := NewGeminiClient(Config{APIKey: "test", Endpoint: srv.URL})
	if err != nil {
		t.Fatalf("NewGeminiClient: %v", err)
	}

	got, err := client.Summarize(context.Background(), SummaryRequest{})
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if got.Summary != "Spending is on track this cycle." {
		t.Errorf("summary = %q", got.Summary)
	}
	if len(got.Overruns) != 1 || got.Overruns[0] != "food" {
		t.Errorf("overruns = %v", got.Overruns)
	}
	if got.Recommendations == nil {
		t.Error("recommendations should be an empty slice, not nil")
	}
}

func TestGeminiClient_SummarizeRejectsEmptySummary(t *testing.T) {
	srv := geminiStub(t, http.StatusOK, `{"summary": "", "overruns": []}`)
	defer srv.Close()

	client, err := NewGeminiClient(Config{APIKey: "test", Endpoint: srv.URL})
	if err != nil {
		t.Fatalf("NewGeminiClient: %v", err)
	}

	if _, err := client.Summarize(context.Background(), SummaryRequest{}); !errors.Is(err, ErrUpstream) {
		t.Errorf("error = %v, want ErrUpstream", err)
	}
}

func TestNewGeminiClient_RequiresKey(t *testing.T) {
	if _, err := NewGeminiClient(Config{}); err == nil {
		t.Fatal("expected error without API key")
	}
}
