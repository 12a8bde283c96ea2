package backlab

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"backlab/internal/backtest"
	"backlab/internal/httpapi"
	"backlab/internal/store"
)

func TestNewClient(t *testing.T) {
	c := NewClient("http://localhost:8080/")

	if c == nil {
		t.Fatal("expected non-nil client")
	}
	if c.baseURL != "http://localhost:8080" {
		t.Errorf("expected trailing slash trimmed, got %q", c.baseURL)
	}
	if c.httpClient == nil {
		t.Fatal("expected non-nil httpClient")
	}
}

func TestRunBacktest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/backtest" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var req httpapi.BacktestRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		if req.Symbol != "AAPL" || req.Strategy != "sma_cross" {
			t.Errorf("request = %+v", req)
		}
		json.NewEncoder(w).Encode(httpapi.BacktestResponse{
			RunID:  7,
			Result: &backtest.Result{Symbol: "AAPL", TotalTrades: 3},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	resp, err := c.RunBacktest(context.Background(), httpapi.BacktestRequest{
		Symbol:   "AAPL",
		Strategy: "sma_cross",
		Mode:     "vectorized",
	})
	if err != nil {
		t.Fatalf("RunBacktest: %v", err)
	}
	if resp.RunID != 7 {
		t.Errorf("RunID = %d, want 7", resp.RunID)
	}
	if resp.Result.TotalTrades != 3 {
		t.Errorf("TotalTrades = %d, want 3", resp.Result.TotalTrades)
	}
}

func TestListRuns(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/runs" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("limit"); got != "5" {
			t.Errorf("limit = %q, want 5", got)
		}
		json.NewEncoder(w).Encode([]store.RunSummary{{ID: 1, Symbol: "AAPL"}})
	}))
	defer srv.Close()

	runs, err := NewClient(srv.URL).ListRuns(context.Background(), 5)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 1 || runs[0].ID != 1 {
		t.Errorf("runs = %+v", runs)
	}
}

func TestServerErrorSurfaced(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error": "unknown strategy"})
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).ListStrategies(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if got := err.Error(); got == "" || !containsAll(got, "unknown strategy", "400") {
		t.Errorf("error = %q, want server message and status", got)
	}
}

func TestHealth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}))
	defer srv.Close()

	if err := NewClient(srv.URL).Health(context.Background()); err != nil {
		t.Errorf("Health: %v", err)
	}
}

func containsAll(s string, subs ...string) bool {
	for _, sub := range subs {
		if !strings.Contains(s, sub) {
			return false
		}
	}
	return true
}
