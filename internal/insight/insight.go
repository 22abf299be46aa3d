// Package insight adapts a hosted generative-language API for the two
// assistive features of the app: suggesting a category for a transaction
// description and summarizing a budget cycle. Both are best-effort; manual
// entry never waits on them.
package insight

import (
	"context"
	"errors"

	"kakeibo/internal/core"
)

var (
	// ErrNoSuggestion means the model could not name a known category with
	// enough confidence. Callers treat this as "leave the field blank".
	ErrNoSuggestion = errors.New("no category suggestion")

	// ErrUpstream wraps transport and API failures. Retryable.
	ErrUpstream = errors.New("insight upstream error")
)

// Suggestion is a category proposal for a transaction description.
type Suggestion struct {
	CategoryID string
	Confidence float64
}

// SummaryRequest carries the material for a cycle summary.
type SummaryRequest struct {
	Summary      core.CycleSummary
	Transactions []core.Transaction
	Categories   []core.Category
}

// Insight is the structured result of a cycle summary: a short narrative,
// the categories running over budget, and concrete recommendations.
type Insight struct {
	Summary         string   `json:"summary"`
	Overruns        []string `json:"overruns"`
	Recommendations []string `json:"recommendations"`
}

// Client is the adapter boundary. Implementations must be safe for
// concurrent use.
type Client interface {
	// SuggestCategory proposes one of the given categories for a free-form
	// transaction description. Returns ErrNoSuggestion when none fits.
	SuggestCategory(ctx context.Context, description string, categories []core.Category) (Suggestion, error)

	// Summarize produces a short natural-language summary of a cycle.
	Summarize(ctx context.Context, req SummaryRequest) (Insight, error)
}
