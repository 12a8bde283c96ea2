package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"backlab/internal/backtest"
	"backlab/internal/gather"
	"backlab/internal/store"
	"backlab/internal/strategy"
)

// Bars older than this are never stored, so range defaults start here.
var earliestBarDate = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

// Server serves the backtest HTTP API.
type Server struct {
	engine     *backtest.Engine
	bars       store.BarStore
	runs       store.RunStore
	strategies *strategy.Registry
	log        *slog.Logger
}

// NewServer creates a Server wiring the engine to its bar source, run store,
// and strategy registry.
func NewServer(engine *backtest.Engine, bars store.BarStore, runs store.RunStore, reg *strategy.Registry, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		engine:     engine,
		bars:       bars,
		runs:       runs,
		strategies: reg,
		log:        log.With("component", "httpapi"),
	}
}

// RegisterRoutes registers all API routes on the given mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/backtest", s.handleBacktest)
	mux.HandleFunc("GET /api/runs", s.handleListRuns)
	mux.HandleFunc("GET /api/runs/{id}", s.handleGetRun)
	mux.HandleFunc("GET /api/symbols", s.handleSymbols)
	mux.HandleFunc("GET /api/strategies", s.handleStrategies)
	mux.HandleFunc("GET /healthz", s.handleHealthz)
}

// Handler returns an http.Handler with CORS middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return corsMiddleware(mux)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ---------------------------------------------------------------------------
// Handlers
// ---------------------------------------------------------------------------

func (s *Server) handleBacktest(w http.ResponseWriter, r *http.Request) {
	var req BacktestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	if req.Symbol == "" {
		writeError(w, http.StatusBadRequest, "symbol is required")
		return
	}

	strat, ok := s.strategies.Get(req.Strategy)
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown strategy "+strconv.Quote(req.Strategy))
		return
	}

	mode, err := backtest.ParseMode(req.Mode)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	timeframe := req.Timeframe
	if timeframe == "" {
		timeframe = gather.TimeframeDaily
	}
	start, end, err := parseRange(req.Start, req.End)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	bars, err := s.bars.ReadBars(r.Context(), req.Symbol, "us", timeframe, start, end)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "reading bars: "+err.Error())
		return
	}
	if len(bars) == 0 {
		writeError(w, http.StatusNotFound, "no bars stored for "+req.Symbol)
		return
	}

	params := strategy.DefaultParams()
	if req.Params != nil {
		params = *req.Params
	}

	res, err := s.engine.Run(r.Context(), backtest.Request{
		Symbol:   req.Symbol,
		Bars:     bars,
		Strategy: strat,
		Params:   params,
		Mode:     mode,
	})
	if err != nil {
		if errors.Is(err, backtest.ErrUnorderedBars) || errors.Is(err, backtest.ErrUnknownMode) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "running backtest: "+err.Error())
		return
	}

	safe := res.JSONSafe()
	id, err := s.saveRun(r, safe)
	if err != nil {
		// The run itself succeeded; persistence failure is logged, not fatal.
		s.log.Error("saving run", "symbol", req.Symbol, "error", err)
	}

	writeJSON(w, BacktestResponse{RunID: id, Result: safe})
}

func (s *Server) saveRun(r *http.Request, res *backtest.Result) (int64, error) {
	resultJSON, err := json.Marshal(res)
	if err != nil {
		return 0, err
	}
	return s.runs.SaveRun(r.Context(), store.RunSummary{
		CreatedAt:    time.Now().UTC(),
		Symbol:       res.Symbol,
		Strategy:     res.Strategy,
		Mode:         string(res.Mode),
		TotalTrades:  res.TotalTrades,
		TotalPnL:     res.TotalPnL,
		WinRate:      res.WinRate,
		Sharpe:       res.Sharpe,
		MaxDrawdown:  res.MaxDrawdownPct,
		ProfitFactor: res.ProfitFactor,
	}, resultJSON)
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit "+strconv.Quote(v))
			return
		}
		limit = n
	}

	runs, err := s.runs.ListRuns(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "listing runs: "+err.Error())
		return
	}
	if runs == nil {
		runs = []store.RunSummary{}
	}
	writeJSON(w, runs)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid run id")
		return
	}

	summary, resultJSON, err := s.runs.GetRun(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	writeJSON(w, struct {
		Summary *store.RunSummary `json:"summary"`
		Result  json.RawMessage   `json:"result"`
	}{summary, resultJSON})
}

func (s *Server) handleSymbols(w http.ResponseWriter, r *http.Request) {
	timeframe := r.URL.Query().Get("timeframe")
	if timeframe == "" {
		timeframe = gather.TimeframeDaily
	}

	symbols, err := s.bars.ListSymbols(r.Context(), "us", timeframe)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "listing symbols: "+err.Error())
		return
	}
	if symbols == nil {
		symbols = []string{}
	}
	writeJSON(w, SymbolsResponse{Timeframe: timeframe, Symbols: symbols})
}

func (s *Server) handleStrategies(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, StrategiesResponse{Strategies: s.strategies.List()})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// parseRange parses optional "2006-01-02" bounds, defaulting to the full
// stored range.
func parseRange(startStr, endStr string) (time.Time, time.Time, error) {
	start := earliestBarDate
	end := time.Now().UTC().AddDate(0, 0, 1)

	if startStr != "" {
		t, err := time.Parse("2006-01-02", startStr)
		if err != nil {
			return time.Time{}, time.Time{}, errors.New("invalid start date " + strconv.Quote(startStr))
		}
		start = t
	}
	if endStr != "" {
		t, err := time.Parse("2006-01-02", endStr)
		if err != nil {
			return time.Time{}, time.Time{}, errors.New("invalid end date " + strconv.Quote(endStr))
		}
		// End date is inclusive.
		end = t.AddDate(0, 0, 1)
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, errors.New("end date precedes start date")
	}
	return start, end, nil
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
