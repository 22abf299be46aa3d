package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"kakeibo/internal/auth"
	"kakeibo/internal/core"
	"kakeibo/internal/insight"
	"kakeibo/internal/services"
	"kakeibo/internal/store/memory"
)

func newTestServer(t *testing.T, ai insight.Client) (*httptest.Server, *memory.Store) {
	t.Helper()
	st := memory.New()
	defaults := core.PaydaySettings{Payday: 25, Rollover: core.RollBefore}
	budget := services.NewBudgetService(st, nil, defaults)
	ledger := services.NewLedgerService(st, nil)

	s := NewServer(":0", budget, ledger, ai, auth.NewHeaderIdentity("local"))
	ts := httptest.NewServer(s.Handler)
	t.Cleanup(func() {
		ts.Close()
		_ = s.Shutdown(context.Background())
	})
	return ts, st
}

func seedServerSettings(t *testing.T, ts *httptest.Server) {
	t.Helper()
	body := `{
		"categories": [
			{"id": "salary", "name": "Salary", "kind": "income"},
			{"id": "food", "name": "Food", "kind": "expense"}
		],
		"payday": {"payday": 25, "rollover": "before"},
		"initialBalanceCents": 150000
	}`
	resp := doRequest(t, ts, http.MethodPut, "/api/settings", body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("seed settings: status %d", resp.StatusCode)
	}
}

func doRequest(t *testing.T, ts *httptest.Server, method, path, body string) *http.Response {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = bytes.NewBufferString(body)
	}
	req, err := http.NewRequest(method, ts.URL+path, rd)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decodeInto(t *testing.T, resp *http.Response, dst any) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestServer_Health(t *testing.T) {
	ts, _ := newTestServer(t, nil)

	for _, path := range []string{"/healthz", "/readyz", "/metrics"} {
		resp := doRequest(t, ts, http.MethodGet, path, "")
		if resp.StatusCode != http.StatusOK {
			t.Errorf("%s: status %d", path, resp.StatusCode)
		}
	}
}

func TestServer_SettingsRoundTrip(t *testing.T) {
	ts, _ := newTestServer(t, nil)
	seedServerSettings(t, ts)

	resp := doRequest(t, ts, http.MethodGet, "/api/settings", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	var got settingsJSON
	decodeInto(t, resp, &got)
	if len(got.Categories) != 2 || got.Payday.Payday != 25 {
		t.Errorf("settings = %+v", got)
	}
	if got.InitialBalanceCents != 150000 {
		t.Errorf("initial balance = %d", got.InitialBalanceCents)
	}
}

func TestServer_SettingsDefaultsWithoutDocument(t *testing.T) {
	ts, _ := newTestServer(t, nil)

	resp := doRequest(t, ts, http.MethodGet, "/api/settings", "")
	var got settingsJSON
	decodeInto(t, resp, &got)
	if got.Payday.Payday != 25 || got.Payday.Rollover != "before" {
		t.Errorf("expected payday defaults, got %+v", got.Payday)
	}
}

func TestServer_BudgetRoundTrip(t *testing.T) {
	ts, _ := newTestServer(t, nil)
	seedServerSettings(t, ts)

	budget := `{
		"year": 2024,
		"startingBalanceCents": 150000,
		"plannedBalanceCents": [0,0,0,0,0,0,0,0,0,0,0,0],
		"normalMonthBudgetCents": {"food": 50000},
		"bonusMonthBudgetCents": {"food": 60000},
		"monthlyIncomeCents": 300000,
		"summerBonusCents": 100000,
		"winterBonusCents": 0,
		"summerBonusMonth": 7,
		"winterBonusMonth": 0,
		"summerBonusPayday": 10,
		"winterBonusPayday": 0
	}`
	resp := doRequest(t, ts, http.MethodPut, "/api/budget/2024", budget)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("put budget: status %d", resp.StatusCode)
	}

	resp = doRequest(t, ts, http.MethodGet, "/api/budget/2024", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get budget: status %d", resp.StatusCode)
	}
	var got budgetJSON
	decodeInto(t, resp, &got)
	if got.MonthlyIncomeCents != 300000 || got.NormalMonthBudget["food"] != 50000 {
		t.Errorf("budget = %+v", got)
	}

	if resp := doRequest(t, ts, http.MethodGet, "/api/budget/2025", ""); resp.StatusCode != http.StatusNotFound {
		t.Errorf("missing year: status %d, want 404", resp.StatusCode)
	}
}

func TestServer_TransactionLifecycle(t *testing.T) {
	ts, _ := newTestServer(t, nil)
	seedServerSettings(t, ts)

	resp := doRequest(t, ts, http.MethodPost, "/api/transactions",
		`{"type": "expense", "date": "2024-03-10", "description": "groceries", "amount": "120.00", "categoryId": "food"}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create: status %d", resp.StatusCode)
	}
	var created transactionJSON
	decodeInto(t, resp, &created)
	if created.ID == "" || created.AmountCents != 12000 {
		t.Fatalf("created = %+v", created)
	}

	resp = doRequest(t, ts, http.MethodGet, "/api/transactions?from=2024-03-01&to=2024-03-31", "")
	var listed []transactionJSON
	decodeInto(t, resp, &listed)
	if len(listed) != 1 || listed[0].ID != created.ID {
		t.Fatalf("listed = %+v", listed)
	}

	resp = doRequest(t, ts, http.MethodPut, "/api/transactions/"+created.ID,
		`{"type": "expense", "date": "2024-03-11", "description": "groceries again", "amount": "130.00", "categoryId": "food"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update: status %d", resp.StatusCode)
	}

	resp = doRequest(t, ts, http.MethodDelete, "/api/transactions/"+created.ID, "")
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete: status %d", resp.StatusCode)
	}

	if resp := doRequest(t, ts, http.MethodDelete, "/api/transactions/"+created.ID, ""); resp.StatusCode != http.StatusNotFound {
		t.Errorf("double delete: status %d, want 404", resp.StatusCode)
	}
}

func TestServer_TransactionValidation(t *testing.T) {
	ts, _ := newTestServer(t, nil)
	seedServerSettings(t, ts)

	tests := []struct {
		name string
		body string
		want int
	}{
		{
			name: "unknown category",
			body: `{"type": "expense", "date": "2024-03-10", "description": "x", "amount": "1.00", "categoryId": "travel"}`,
			want: http.StatusUnprocessableEntity,
		},
		{
			name: "kind mismatch",
			body: `{"type": "income", "date": "2024-03-10", "description": "x", "amount": "1.00", "categoryId": "food"}`,
			want: http.StatusUnprocessableEntity,
		},
		{
			name: "malformed date",
			body: `{"type": "expense", "date": "10/03/2024", "description": "x", "amount": "1.00", "categoryId": "food"}`,
			want: http.StatusBadRequest,
		},
		{
			name: "not JSON",
			body: `not json`,
			want: http.StatusBadRequest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := doRequest(t, ts, http.MethodPost, "/api/transactions", tt.body)
			if resp.StatusCode != tt.want {
				t.Errorf("status %d, want %d", resp.StatusCode, tt.want)
			}
		})
	}
}

func TestServer_CycleSummary(t *testing.T) {
	ts, _ := newTestServer(t, nil)
	seedServerSettings(t, ts)

	resp := doRequest(t, ts, http.MethodPost, "/api/transactions",
		`{"type": "expense", "date": "2024-03-10", "description": "groceries", "amount": "120.00", "categoryId": "food"}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create: status %d", resp.StatusCode)
	}

	resp = doRequest(t, ts, http.MethodGet, "/api/cycle?date=2024-03-10", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("cycle: status %d", resp.StatusCode)
	}
	var sum summaryJSON
	decodeInto(t, resp, &sum)
	if sum.Cycle.Start != "2024-02-23" || sum.Cycle.End != "2024-03-24" {
		t.Errorf("cycle = %+v", sum.Cycle)
	}
	if sum.Configured {
		t.Error("summary configured without budget")
	}
	if sum.ActualExpenseCents != 12000 {
		t.Errorf("actual expense = %d, want 12000", sum.ActualExpenseCents)
	}
}

func TestServer_CyclesForYear(t *testing.T) {
	ts, _ := newTestServer(t, nil)
	seedServerSettings(t, ts)

	resp := doRequest(t, ts, http.MethodGet, "/api/cycles/2024", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	var sums []summaryJSON
	decodeInto(t, resp, &sums)
	if len(sums) != 12 {
		t.Errorf("got %d cycles, want 12", len(sums))
	}
}

func TestServer_WriteInvalidatesSummaryCache(t *testing.T) {
	ts, _ := newTestServer(t, nil)
	seedServerSettings(t, ts)

	readSummary := func() summaryJSON {
		resp := doRequest(t, ts, http.MethodGet, "/api/cycle?date=2024-03-10", "")
		var sum summaryJSON
		decodeInto(t, resp, &sum)
		return sum
	}

	if got := readSummary(); got.ActualExpenseCents != 0 {
		t.Fatalf("fresh summary expense = %d", got.ActualExpenseCents)
	}

	resp := doRequest(t, ts, http.MethodPost, "/api/transactions",
		`{"type": "expense", "date": "2024-03-10", "description": "groceries", "amount": "120.00", "categoryId": "food"}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create: status %d", resp.StatusCode)
	}

	if got := readSummary(); got.ActualExpenseCents != 12000 {
		t.Errorf("summary after write = %d, want 12000", got.ActualExpenseCents)
	}
}

func TestServer_SuggestCategory(t *testing.T) {
	mock := &insight.MockClient{
		SuggestFunc: func(_ context.Context, description string, cats []core.Category) (insight.Suggestion, error) {
			if description != "supermarket" {
				return insight.Suggestion{}, fmt.Errorf("unexpected description %q", description)
			}
			return insight.Suggestion{CategoryID: "food", Confidence: 0.9}, nil
		},
	}
	ts, _ := newTestServer(t, mock)
	seedServerSettings(t, ts)

	resp := doRequest(t, ts, http.MethodPost, "/api/insight/suggest", `{"description": "supermarket"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	var got suggestResponse
	decodeInto(t, resp, &got)
	if !got.Suggested || got.CategoryID != "food" {
		t.Errorf("suggestion = %+v", got)
	}
}

func TestServer_SuggestWithoutAdapter(t *testing.T) {
	ts, _ := newTestServer(t, nil)
	seedServerSettings(t, ts)

	resp := doRequest(t, ts, http.MethodPost, "/api/insight/suggest", `{"description": "supermarket"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	var got suggestResponse
	decodeInto(t, resp, &got)
	if got.Suggested {
		t.Error("suggestion without adapter")
	}
}

func TestServer_CycleInsightSummary(t *testing.T) {
	mock := &insight.MockClient{
		SummarizeFunc: func(_ context.Context, req insight.SummaryRequest) (insight.Insight, error) {
			return insight.Insight{Summary: "All good.", Overruns: []string{}, Recommendations: []string{}}, nil
		},
	}
	ts, _ := newTestServer(t, mock)
	seedServerSettings(t, ts)

	resp := doRequest(t, ts, http.MethodPost, "/api/insight/summary", `{"date": "2024-03-10"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	var got summaryInsightResponse
	decodeInto(t, resp, &got)
	if got.Summary != "All good." {
		t.Errorf("summary = %q", got.Summary)
	}
}

func TestServer_ListTransactionsNewestFirst(t *testing.T) {
	ts, _ := newTestServer(t, nil)
	seedServerSettings(t, ts)

	for _, day := range []string{"2024-03-05", "2024-03-20", "2024-03-12"} {
		resp := doRequest(t, ts, http.MethodPost, "/api/transactions",
			`{"type": "expense", "date": "`+day+`", "description": "x", "amount": "1.00", "categoryId": "food"}`)
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("create %s: status %d", day, resp.StatusCode)
		}
	}

	resp := doRequest(t, ts, http.MethodGet, "/api/transactions?from=2024-03-01&to=2024-03-31", "")
	var listed []transactionJSON
	decodeInto(t, resp, &listed)
	if len(listed) != 3 {
		t.Fatalf("listed %d transactions, want 3", len(listed))
	}
	if listed[0].Date != "2024-03-20" || listed[2].Date != "2024-03-05" {
		t.Errorf("default order = [%s %s %s], want newest first",
			listed[0].Date, listed[1].Date, listed[2].Date)
	}

	resp = doRequest(t, ts, http.MethodGet, "/api/transactions?from=2024-03-01&to=2024-03-31&order=asc", "")
	decodeInto(t, resp, &listed)
	if listed[0].Date != "2024-03-05" || listed[2].Date != "2024-03-20" {
		t.Errorf("asc order = [%s %s %s], want oldest first",
			listed[0].Date, listed[1].Date, listed[2].Date)
	}
}

func TestServer_SnapshotStreamInvalidatesCache(t *testing.T) {
	st := memory.New()
	defaults := core.PaydaySettings{Payday: 25, Rollover: core.RollBefore}
	budget := services.NewBudgetService(st, nil, defaults)
	ledger := services.NewLedgerService(st, nil)

	s := NewServer(":0", budget, ledger, nil, auth.NewHeaderIdentity("local"))
	ts := httptest.NewServer(s.Handler)
	t.Cleanup(func() {
		ts.Close()
		_ = s.Shutdown(context.Background())
	})
	seedServerSettings(t, ts)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	snapshots, stopWatch, err := ledger.Watch(ctx, "local")
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}
	defer stopWatch()

	readSummary := func() summaryJSON {
		resp := doRequest(t, ts, http.MethodGet, "/api/cycle?date=2024-03-10", "")
		var sum summaryJSON
		decodeInto(t, resp, &sum)
		return sum
	}

	// Prime the cache.
	if got := readSummary(); got.ActualExpenseCents != 0 {
		t.Fatalf("fresh summary expense = %d", got.ActualExpenseCents)
	}

	// A write outside any request, as the recurring worker performs.
	_, err = ledger.Append(ctx, "local", core.Transaction{
		Type: core.Expense, Date: core.NewDate(2024, 3, 12),
		Description: "groceries", Amount: core.Money{Cents: 9000}, CategoryID: "food",
	})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}

	select {
	case <-snapshots:
		s.InvalidateAccount("local")
	case <-time.After(time.Second):
		t.Fatal("no snapshot delivered after the append")
	}

	if got := readSummary(); got.ActualExpenseCents != 9000 {
		t.Errorf("summary after out-of-band write = %d, want 9000", got.ActualExpenseCents)
	}
}
