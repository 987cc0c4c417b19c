package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"trade-journal-go/internal/ibkr"
	"trade-journal-go/internal/journal"
	"trade-journal-go/internal/models"
)

const maxBodyBytes = 10 << 20

// APIHandler holds dependencies for the API endpoints.
type APIHandler struct {
	log     *zap.Logger
	service *journal.Service
}

// NewAPIHandler creates a new APIHandler.
func NewAPIHandler(log *zap.Logger, service *journal.Service) *APIHandler {
	return &APIHandler{log: log, service: service}
}

// textRequest is the body of the endpoints that parse pasted or uploaded broker text.
type textRequest struct {
	Text string `json:"text"`
}

// createTradeRequest is the body of POST /api/trades. It carries only the
// user-editable columns; ids, timestamps and soft-delete state stay server side.
type createTradeRequest struct {
	AccountID     uint               `json:"account_id"`
	Symbol        string             `json:"symbol"`
	AssetClass    models.AssetClass  `json:"asset_class"`
	Direction     models.Direction   `json:"direction"`
	TradeDate     string             `json:"trade_date"`
	Quantity      *float64           `json:"quantity"`
	EntryPrice    float64            `json:"entry_price"`
	ExitPrice     *float64           `json:"exit_price"`
	StopLossPrice *float64           `json:"stop_loss_price"`
	EntryTime     *string            `json:"entry_time"`
	ExitTime      *string            `json:"exit_time"`
	Fees          float64            `json:"fees"`
	Status        models.TradeStatus `json:"status"`
	Strategy      string             `json:"strategy"`
	Notes         string             `json:"notes"`
}

func (r createTradeRequest) toModel() *models.Trade {
	return &models.Trade{
		AccountID:     r.AccountID,
		Symbol:        r.Symbol,
		AssetClass:    r.AssetClass,
		Direction:     r.Direction,
		TradeDate:     r.TradeDate,
		Quantity:      r.Quantity,
		EntryPrice:    r.EntryPrice,
		ExitPrice:     r.ExitPrice,
		StopLossPrice: r.StopLossPrice,
		EntryTime:     r.EntryTime,
		ExitTime:      r.ExitTime,
		Fees:          r.Fees,
		Status:        r.Status,
		Strategy:      r.Strategy,
		Notes:         r.Notes,
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

// NewRouter wires the API routes and middleware.
func NewRouter(h *APIHandler, allowedOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(h.loggingMiddleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", h.HealthHandler)
	r.Route("/api", func(r chi.Router) {
		r.Route("/trades", func(r chi.Router) {
			r.Get("/", h.ListTradesHandler)
			r.Post("/", h.CreateTradeHandler)
			r.Get("/{id}", h.GetTradeHandler)
		})
		r.Get("/dashboard", h.DashboardHandler)
		r.Post("/executions/parse", h.ParseExecutionsHandler)
		r.Route("/imports", func(r chi.Router) {
			r.Get("/", h.ListImportsHandler)
			r.Post("/preview", h.PreviewImportHandler)
			r.Get("/{id}/preview", h.PreviewBatchHandler)
		})
	})
	return r
}

// HealthHandler reports that the server is up.
func (h *APIHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ListTradesHandler returns the journaled trades matching the query filter.
func (h *APIHandler) ListTradesHandler(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	trades, err := h.service.ListTrades(r.Context(), filter)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if trades == nil {
		trades = []models.Trade{}
	}
	h.writeJSON(w, http.StatusOK, trades)
}

// GetTradeHandler returns one trade with its derived fields.
func (h *APIHandler) GetTradeHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	trade, err := h.service.GetTrade(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, trade)
}

// CreateTradeHandler stores a new trade.
func (h *APIHandler) CreateTradeHandler(w http.ResponseWriter, r *http.Request) {
	var req createTradeRequest
	if err := h.decode(w, r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	created, err := h.service.CreateTrade(r.Context(), req.toModel())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, created)
}

// DashboardHandler returns all analytics views for the query filter.
func (h *APIHandler) DashboardHandler(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	dashboard, err := h.service.Dashboard(r.Context(), filter)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, dashboard)
}

// ParseExecutionsHandler turns pasted executions into a trade draft.
func (h *APIHandler) ParseExecutionsHandler(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if err := h.decode(w, r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	draft, err := h.service.DraftFromPaste(req.Text)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, draft)
}

// PreviewImportHandler parses an uploaded trade log without storing anything.
func (h *APIHandler) PreviewImportHandler(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if err := h.decode(w, r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	preview, err := h.service.PreviewImport(req.Text)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, preview)
}

// ListImportsHandler returns the statements downloaded by the syncer.
func (h *APIHandler) ListImportsHandler(w http.ResponseWriter, r *http.Request) {
	batches, err := h.service.ListBatches(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	if batches == nil {
		batches = []models.ImportBatch{}
	}
	h.writeJSON(w, http.StatusOK, batches)
}

// PreviewBatchHandler parses a stored statement.
func (h *APIHandler) PreviewBatchHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	preview, err := h.service.PreviewBatch(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, preview)
}

// errBadRequest marks request errors that are the client's fault.
var errBadRequest = errors.New("bad request")

func parseFilter(r *http.Request) (journal.Filter, error) {
	q := r.URL.Query()
	f := journal.Filter{From: q.Get("from"), To: q.Get("to")}
	if v := q.Get("account_id"); v != "" {
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return f, fmt.Errorf("%w: invalid account_id '%s'", errBadRequest, v)
		}
		f.AccountID = uint(id)
	}
	for _, d := range []string{f.From, f.To} {
		if d == "" {
			continue
		}
		if _, err := time.Parse(time.DateOnly, d); err != nil {
			return f, fmt.Errorf("%w: invalid date '%s'", errBadRequest, d)
		}
	}
	return f, nil
}

func pathID(r *http.Request) (uint, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("%w: invalid id '%s'", errBadRequest, raw)
	}
	return uint(id), nil
}

func (h *APIHandler) decode(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, journal.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, errBadRequest),
		errors.Is(err, journal.ErrInvalidTrade),
		errors.Is(err, ibkr.ErrMalformedTradeLog):
		return http.StatusBadRequest
	case errors.Is(err, ibkr.ErrNothingToParse),
		errors.Is(err, ibkr.ErrUnparseableLine),
		errors.Is(err, ibkr.ErrInvalidQuantity),
		errors.Is(err, ibkr.ErrInvalidPrice),
		errors.Is(err, ibkr.ErrInvalidFee),
		errors.Is(err, ibkr.ErrMultipleSymbols),
		errors.Is(err, ibkr.ErrNoEntries):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (h *APIHandler) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		h.log.Error("Request failed", zap.Error(err))
		msg = "internal server error"
	}
	h.writeJSON(w, status, errorResponse{Error: msg})
}

func (h *APIHandler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error("Failed to write response", zap.Error(err))
	}
}

func (h *APIHandler) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		h.log.Debug("HTTP request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
