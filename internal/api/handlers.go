package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"StockPulse/internal/model"
	"StockPulse/internal/recorder"
)

// StockSource acquires snapshots. *collector.Collector implements it.
type StockSource interface {
	GetStockData(ctx context.Context, symbol string) *model.Snapshot
	GetMultipleStocksData(ctx context.Context, symbols []string, maxConcurrent int) []*model.Snapshot
}

const (
	maxSymbolLen     = 32
	maxBatchSymbols  = 50
	defaultHistLimit = 20
	maxHistLimit     = 500
)

// Handler holds dependencies for HTTP handlers
type Handler struct {
	source        StockSource
	recorder      recorder.Recorder
	watchlist     []string
	maxConcurrent int
}

// NewHandler creates a new Handler. A nil recorder disables /history.
func NewHandler(source StockSource, rec recorder.Recorder, watchlist []string, maxConcurrent int) *Handler {
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	return &Handler{
		source:        source,
		recorder:      rec,
		watchlist:     watchlist,
		maxConcurrent: maxConcurrent,
	}
}

func symbolVar(r *http.Request) (string, bool) {
	symbol := strings.ToUpper(strings.TrimSpace(mux.Vars(r)["symbol"]))
	return symbol, symbol != "" && len(symbol) <= maxSymbolLen
}

// GetStock handles GET /api/v1/stocks/{symbol}
func (h *Handler) GetStock(w http.ResponseWriter, r *http.Request) {
	symbol, ok := symbolVar(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid symbol")
		return
	}
	respondJSON(w, http.StatusOK, h.source.GetStockData(r.Context(), symbol))
}

// GetIndicators handles GET /api/v1/stocks/{symbol}/indicators
func (h *Handler) GetIndicators(w http.ResponseWriter, r *http.Request) {
	symbol, ok := symbolVar(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid symbol")
		return
	}
	snap := h.source.GetStockData(r.Context(), symbol)
	respondJSON(w, http.StatusOK, struct {
		Symbol      string `json:"symbol"`
		IsSynthetic bool   `json:"is_synthetic"`
		model.IndicatorSet
	}{snap.Symbol, snap.IsSynthetic, snap.TechnicalAnalysis})
}

// GetStocks handles GET /api/v1/stocks?symbols=A,B&max_concurrent=N
func (h *Handler) GetStocks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	maxConcurrent := h.maxConcurrent
	if v := q.Get("max_concurrent"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			respondError(w, http.StatusBadRequest, "max_concurrent must be a positive integer")
			return
		}
		maxConcurrent = n
	}

	symbols := h.watchlist
	if v := q.Get("symbols"); v != "" {
		symbols = nil
		for _, s := range strings.Split(v, ",") {
			s = strings.ToUpper(strings.TrimSpace(s))
			if s == "" {
				continue
			}
			if len(s) > maxSymbolLen {
				respondError(w, http.StatusBadRequest, "invalid symbol")
				return
			}
			symbols = append(symbols, s)
		}
	}
	if len(symbols) > maxBatchSymbols {
		respondError(w, http.StatusBadRequest, "too many symbols")
		return
	}

	respondJSON(w, http.StatusOK, h.source.GetMultipleStocksData(r.Context(), symbols, maxConcurrent))
}

// GetHistory handles GET /api/v1/stocks/{symbol}/history?limit=N
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	symbol, ok := symbolVar(r)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid symbol")
		return
	}
	limit := defaultHistLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxHistLimit {
			respondError(w, http.StatusBadRequest, "limit must be between 1 and 500")
			return
		}
		limit = n
	}

	recs, err := h.recorder.RecentSnapshots(symbol, limit)
	if errors.Is(err, recorder.ErrNotPersisted) {
		respondError(w, http.StatusNotImplemented, "snapshot history is not enabled")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	type historyItem struct {
		RecordedAt     string             `json:"recorded_at"`
		Source         string             `json:"source"`
		IsSynthetic    bool               `json:"is_synthetic"`
		CurrentPrice   float64            `json:"current_price"`
		PriceChangePct float64            `json:"price_change_pct"`
		Volume         int64              `json:"volume"`
		MarketCap      string             `json:"market_cap"`
		Indicators     model.IndicatorSet `json:"technical_analysis"`
		Attempts       []model.Attempt    `json:"attempts,omitempty"`
	}
	items := make([]historyItem, 0, len(recs))
	for _, rec := range recs {
		items = append(items, historyItem{
			RecordedAt:     rec.RecordedAt.UTC().Format("2006-01-02T15:04:05Z"),
			Source:         rec.Source,
			IsSynthetic:    rec.Synthetic,
			CurrentPrice:   rec.CurrentPrice,
			PriceChangePct: rec.PriceChangePct,
			Volume:         rec.Volume,
			MarketCap:      rec.MarketCap,
			Indicators:     rec.Indicators,
			Attempts:       rec.Attempts,
		})
	}
	respondJSON(w, http.StatusOK, items)
}

// HealthCheck handles GET /health when no richer health reporter is wired.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}
