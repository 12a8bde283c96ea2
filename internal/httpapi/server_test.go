package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"backlab/internal/backtest"
	"backlab/internal/gather"
	"backlab/internal/store"
	"backlab/internal/strategy/builtins"
	"backlab/internal/util"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	dir := t.TempDir()
	bars := store.NewParquetStore(filepath.Join(dir, "data"))
	runs, err := store.NewSQLiteStore(filepath.Join(dir, "runs.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { runs.Close() })

	engine, err := backtest.New(backtest.DefaultConfig(), util.NewLogger("error"))
	if err != nil {
		t.Fatalf("backtest.New: %v", err)
	}

	// Seed one year of deterministic daily bars for AAPL.
	g := gather.NewSyntheticGatherer(bars)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(299 * 24 * time.Hour)
	if err := g.Fetch(context.Background(), []string{"AAPL"}, gather.TimeframeDaily, start, end); err != nil {
		t.Fatalf("seeding bars: %v", err)
	}

	return NewServer(engine, bars, runs, builtins.NewRegistry(), util.NewLogger("error"))
}

func postBacktest(t *testing.T, h http.Handler, body BacktestRequest) *httptest.ResponseRecorder {
	t.Helper()
	buf, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/backtest", bytes.NewReader(buf))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandleBacktest(t *testing.T) {
	s := newTestServer(t)
	h := s.Handler()

	rec := postBacktest(t, h, BacktestRequest{
		Symbol:   "AAPL",
		Strategy: "sma_cross",
		Mode:     "vectorized",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp BacktestResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.RunID <= 0 {
		t.Errorf("RunID = %d, want > 0", resp.RunID)
	}
	if resp.Result == nil {
		t.Fatal("nil result")
	}
	if resp.Result.Symbol != "AAPL" {
		t.Errorf("Symbol = %q, want AAPL", resp.Result.Symbol)
	}
	if len(resp.Result.EquityCurve) != 300 {
		t.Errorf("equity curve length = %d, want 300", len(resp.Result.EquityCurve))
	}
}

func TestHandleBacktestValidation(t *testing.T) {
	s := newTestServer(t)
	h := s.Handler()

	cases := []struct {
		name string
		req  BacktestRequest
		want int
	}{
		{"missing symbol", BacktestRequest{Strategy: "sma_cross", Mode: "vectorized"}, http.StatusBadRequest},
		{"unknown strategy", BacktestRequest{Symbol: "AAPL", Strategy: "nope", Mode: "vectorized"}, http.StatusBadRequest},
		{"unknown mode", BacktestRequest{Symbol: "AAPL", Strategy: "sma_cross", Mode: "psychic"}, http.StatusBadRequest},
		{"bad start date", BacktestRequest{Symbol: "AAPL", Strategy: "sma_cross", Mode: "vectorized", Start: "01/01/2024"}, http.StatusBadRequest},
		{"no stored bars", BacktestRequest{Symbol: "ZZZZ", Strategy: "sma_cross", Mode: "vectorized"}, http.StatusNotFound},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			rec := postBacktest(t, h, c.req)
			if rec.Code != c.want {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, c.want, rec.Body.String())
			}
		})
	}
}

func TestRunPersistenceRoundTrip(t *testing.T) {
	s := newTestServer(t)
	h := s.Handler()

	rec := postBacktest(t, h, BacktestRequest{
		Symbol:   "AAPL",
		Strategy: "momentum",
		Mode:     "event_driven",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("backtest status = %d", rec.Code)
	}
	var resp BacktestResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	// List should contain the run.
	lreq := httptest.NewRequest(http.MethodGet, "/api/runs", nil)
	lrec := httptest.NewRecorder()
	h.ServeHTTP(lrec, lreq)
	if lrec.Code != http.StatusOK {
		t.Fatalf("list status = %d", lrec.Code)
	}
	var runs []store.RunSummary
	if err := json.Unmarshal(lrec.Body.Bytes(), &runs); err != nil {
		t.Fatalf("unmarshal runs: %v", err)
	}
	if len(runs) != 1 || runs[0].ID != resp.RunID {
		t.Fatalf("runs = %+v, want single run with ID %d", runs, resp.RunID)
	}
	if runs[0].Strategy != "momentum" || runs[0].Mode != "event_driven" {
		t.Errorf("summary = %+v", runs[0])
	}

	// Fetch by ID and check the stored result matches.
	greq := httptest.NewRequest(http.MethodGet, "/api/runs/"+strconv.FormatInt(resp.RunID, 10), nil)
	grec := httptest.NewRecorder()
	h.ServeHTTP(grec, greq)
	if grec.Code != http.StatusOK {
		t.Fatalf("get status = %d, body %s", grec.Code, grec.Body.String())
	}
	var got struct {
		Summary *store.RunSummary `json:"summary"`
		Result  *backtest.Result  `json:"result"`
	}
	if err := json.Unmarshal(grec.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal get: %v", err)
	}
	if got.Summary == nil || got.Summary.ID != resp.RunID {
		t.Fatalf("summary = %+v", got.Summary)
	}
	if got.Result == nil || got.Result.TotalTrades != resp.Result.TotalTrades {
		t.Errorf("stored result trades = %+v, want %d", got.Result, resp.Result.TotalTrades)
	}
}

func TestGetRunNotFound(t *testing.T) {
	s := newTestServer(t)
	h := s.Handler()

	req := httptest.NewRequest(http.MethodGet, "/api/runs/9999", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestHandleSymbolsAndStrategies(t *testing.T) {
	s := newTestServer(t)
	h := s.Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/symbols", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("symbols status = %d", rec.Code)
	}
	var sym SymbolsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &sym); err != nil {
		t.Fatalf("unmarshal symbols: %v", err)
	}
	if len(sym.Symbols) != 1 || sym.Symbols[0] != "AAPL" {
		t.Errorf("symbols = %v, want [AAPL]", sym.Symbols)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/strategies", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("strategies status = %d", rec.Code)
	}
	var strat StrategiesResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &strat); err != nil {
		t.Fatalf("unmarshal strategies: %v", err)
	}
	if len(strat.Strategies) != 2 {
		t.Errorf("strategies = %v, want 2 entries", strat.Strategies)
	}
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestParseRange(t *testing.T) {
	start, end, err := parseRange("2024-01-01", "2024-06-30")
	if err != nil {
		t.Fatalf("parseRange: %v", err)
	}
	if !start.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("start = %v", start)
	}
	// End is inclusive, so the bound is the following midnight.
	if !end.Equal(time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("end = %v", end)
	}

	if _, _, err := parseRange("2024-06-30", "2024-01-01"); err == nil {
		t.Error("expected error for inverted range")
	}
	if _, _, err := parseRange("bogus", ""); err == nil {
		t.Error("expected error for bad start")
	}
}
