// Package journal stores trades and import batches and assembles the
// analytics views served by the API.
package journal

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"trade-journal-go/internal/analytics"
	"trade-journal-go/internal/ibkr"
	"trade-journal-go/internal/models"
)

var (
	// ErrNotFound means the requested trade or import batch does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidTrade means a trade failed validation and was not stored.
	ErrInvalidTrade = errors.New("invalid trade")
)

// Filter narrows the trades a query looks at. Zero values match everything.
// From and To are inclusive YYYY-MM-DD dates.
type Filter struct {
	AccountID uint
	From      string
	To        string
}

// Dashboard bundles every analytics view for one filter.
type Dashboard struct {
	Trades   []analytics.TradeWithDerived   `json:"trades"`
	Metrics  analytics.PeriodMetrics        `json:"metrics"`
	Daily    []analytics.DailyPerformance   `json:"daily"`
	Monthly  []analytics.MonthlyPerformance `json:"monthly"`
	Equity   []analytics.EquityPoint        `json:"equity"`
	Weekdays []analytics.WeekdayMetrics     `json:"weekdays"`
	Hours    []analytics.HourlyMetrics      `json:"hours"`
	Tickers  []analytics.TickerMetrics      `json:"tickers"`
}

// ImportPreview is the grouped result of parsing a broker trade log.
type ImportPreview struct {
	ID         string            `json:"id"`
	Executions int               `json:"executions"`
	Groups     []ibkr.TradeGroup `json:"groups"`
}

// Service is the journal's application layer.
type Service struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewService creates a new journal service.
func NewService(db *gorm.DB, logger *zap.Logger) *Service {
	return &Service{db: db, logger: logger.Named("journal")}
}

// ListTrades returns the trades matching the filter in trade-date order.
func (s *Service) ListTrades(ctx context.Context, f Filter) ([]models.Trade, error) {
	q := s.db.WithContext(ctx).Model(&models.Trade{})
	if f.AccountID != 0 {
		q = q.Where("account_id = ?", f.AccountID)
	}
	if f.From != "" {
		q = q.Where("trade_date >= ?", f.From)
	}
	if f.To != "" {
		q = q.Where("trade_date <= ?", f.To)
	}

	var trades []models.Trade
	if err := q.Order("trade_date asc").Order("id asc").Find(&trades).Error; err != nil {
		return nil, fmt.Errorf("failed to list trades: %w", err)
	}
	return trades, nil
}

// GetTrade loads one trade with its derived P&L fields.
func (s *Service) GetTrade(ctx context.Context, id uint) (*analytics.TradeWithDerived, error) {
	var trade models.Trade
	err := s.db.WithContext(ctx).First(&trade, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("trade %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get trade %d: %w", id, err)
	}
	derived := analytics.Derive(trade)
	return &derived, nil
}

// CreateTrade validates and stores a trade.
func (s *Service) CreateTrade(ctx context.Context, trade *models.Trade) (*analytics.TradeWithDerived, error) {
	trade.Symbol = normalizeSymbol(trade.Symbol)
	if trade.AssetClass == "" {
		trade.AssetClass = models.AssetClassStock
	}
	if trade.Status == "" {
		trade.Status = models.TradeStatusOpen
	}
	if err := validateTrade(trade); err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Create(trade).Error; err != nil {
		return nil, fmt.Errorf("failed to create trade: %w", err)
	}
	s.logger.Info("Trade created",
		zap.Uint("id", trade.ID),
		zap.String("symbol", trade.Symbol),
		zap.String("status", string(trade.Status)),
	)
	derived := analytics.Derive(*trade)
	return &derived, nil
}

// normalizeSymbol upper-cases the ticker and leaves any option contract
// description after it untouched.
func normalizeSymbol(symbol string) string {
	symbol = strings.TrimSpace(symbol)
	ticker, rest, found := strings.Cut(symbol, " ")
	if !found {
		return strings.ToUpper(symbol)
	}
	return strings.ToUpper(ticker) + " " + rest
}

func validateTrade(t *models.Trade) error {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", ErrInvalidTrade, fmt.Sprintf(format, args...))
	}

	if t.Symbol == "" {
		return invalid("symbol is required")
	}
	switch t.Direction {
	case models.DirectionLong, models.DirectionShort:
	default:
		return invalid("unknown direction '%s'", t.Direction)
	}
	switch t.AssetClass {
	case models.AssetClassStock, models.AssetClassOption:
	default:
		return invalid("unknown asset class '%s'", t.AssetClass)
	}
	switch t.Status {
	case models.TradeStatusOpen, models.TradeStatusClosed:
	default:
		return invalid("unknown status '%s'", t.Status)
	}
	if _, err := time.Parse(time.DateOnly, t.TradeDate); err != nil {
		return invalid("trade_date must be YYYY-MM-DD")
	}
	if t.EntryPrice <= 0 {
		return invalid("entry_price must be positive")
	}
	if t.Quantity != nil && *t.Quantity <= 0 {
		return invalid("quantity must be positive")
	}
	if t.Fees < 0 {
		return invalid("fees cannot be negative")
	}
	if t.Status == models.TradeStatusClosed && t.ExitPrice == nil {
		return invalid("closed trades need an exit_price")
	}
	return nil
}

// Dashboard computes every analytics view over the filtered trades.
func (s *Service) Dashboard(ctx context.Context, f Filter) (*Dashboard, error) {
	trades, err := s.ListTrades(ctx, f)
	if err != nil {
		return nil, err
	}

	derived := analytics.DeriveAll(trades)
	daily := analytics.DailyPerformanceFor(derived)
	return &Dashboard{
		Trades:   derived,
		Metrics:  analytics.ComputePeriodMetrics(derived),
		Daily:    daily,
		Monthly:  analytics.AggregateDailyToMonthly(daily),
		Equity:   analytics.EquityCurve(derived),
		Weekdays: analytics.WeekdayBreakdown(derived),
		Hours:    analytics.HourlyBreakdown(derived),
		Tickers:  analytics.TickerBreakdown(derived),
	}, nil
}

// DraftFromPaste turns executions copied from the broker's trade window into a trade draft.
func (s *Service) DraftFromPaste(text string) (*ibkr.TradeDraft, error) {
	return ibkr.ParseExecutions(text)
}

// PreviewImport parses a trade log and groups the resulting round trips by underlying.
func (s *Service) PreviewImport(text string) (*ImportPreview, error) {
	entries, err := ibkr.ParseTradeLog(text)
	if err != nil {
		return nil, err
	}
	trades := ibkr.BuildAggregatedTrades(entries)
	preview := &ImportPreview{
		ID:         uuid.NewString(),
		Executions: len(entries),
		Groups:     ibkr.GroupTradesByUnderlying(trades),
	}
	s.logger.Debug("Import previewed",
		zap.String("preview_id", preview.ID),
		zap.Int("executions", len(entries)),
		zap.Int("trades", len(trades)),
	)
	return preview, nil
}

// SaveBatch stores a downloaded statement for later review.
func (s *Service) SaveBatch(ctx context.Context, batch *models.ImportBatch) error {
	if batch.Status == "" {
		batch.Status = models.ImportBatchPending
	}
	if batch.ContentHash == "" {
		batch.ContentHash = contentHash(batch.RawText)
	}
	if err := s.db.WithContext(ctx).Create(batch).Error; err != nil {
		return fmt.Errorf("failed to save import batch: %w", err)
	}
	return nil
}

// ListBatches returns stored statements, newest first.
func (s *Service) ListBatches(ctx context.Context) ([]models.ImportBatch, error) {
	var batches []models.ImportBatch
	if err := s.db.WithContext(ctx).Order("fetched_at desc").Order("id desc").Find(&batches).Error; err != nil {
		return nil, fmt.Errorf("failed to list import batches: %w", err)
	}
	return batches, nil
}

// PreviewBatch parses a stored statement and marks it as previewed.
func (s *Service) PreviewBatch(ctx context.Context, id uint) (*ImportPreview, error) {
	var batch models.ImportBatch
	err := s.db.WithContext(ctx).First(&batch, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("import batch %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get import batch %d: %w", id, err)
	}

	preview, err := s.PreviewImport(batch.RawText)
	if err != nil {
		return nil, err
	}

	if batch.Status != models.ImportBatchPreviewed {
		if err := s.db.WithContext(ctx).Model(&batch).Update("status", models.ImportBatchPreviewed).Error; err != nil {
			return nil, fmt.Errorf("failed to update import batch %d: %w", id, err)
		}
	}
	return preview, nil
}

// FindBatchByContent returns the stored batch whose statement text equals raw,
// or nil when there is none.
func (s *Service) FindBatchByContent(ctx context.Context, raw string) (*models.ImportBatch, error) {
	var batches []models.ImportBatch
	err := s.db.WithContext(ctx).Where("content_hash = ?", contentHash(raw)).Limit(1).Find(&batches).Error
	if err != nil {
		return nil, fmt.Errorf("failed to look up import batch: %w", err)
	}
	if len(batches) == 0 {
		return nil, nil
	}
	return &batches[0], nil
}

func contentHash(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
