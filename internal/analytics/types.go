// Package analytics derives per-trade P&L and risk figures and aggregates
// trades into period statistics and chart buckets. Every function is pure:
// inputs are never mutated and missing data degrades to nil fields.
package analytics

import "trade-journal-go/internal/models"

// Result classifies a closed trade by its net P&L.
type Result string

const (
	ResultWin       Result = "win"
	ResultLoss      Result = "loss"
	ResultBreakeven Result = "breakeven"
)

// TradeWithDerived is a trade together with its computed P&L fields.
// All fields are nil while the trade is open or lacks an exit price or quantity.
// RiskPerShare and RMultiple are additionally nil without a stop-loss.
type TradeWithDerived struct {
	models.Trade
	GrossPnL     *float64 `json:"gross_pnl"`
	NetPnL       *float64 `json:"net_pnl"`
	PnLPerShare  *float64 `json:"pnl_per_share"`
	RiskPerShare *float64 `json:"risk_per_share"`
	RMultiple    *float64 `json:"r_multiple"`
	Result       *Result  `json:"result"`
}

// PeriodMetrics summarises the closed trades of a period.
type PeriodMetrics struct {
	TotalNetPnL    float64  `json:"total_net_pnl"`
	TradeCount     int      `json:"trade_count"`
	WinCount       int      `json:"win_count"`
	LossCount      int      `json:"loss_count"`
	BreakevenCount int      `json:"breakeven_count"`
	WinRate        *float64 `json:"win_rate"`
	AvgWin         *float64 `json:"avg_win"`
	AvgLoss        *float64 `json:"avg_loss"`
	ProfitFactor   *float64 `json:"profit_factor"`
	Expectancy     *float64 `json:"expectancy"`
	MaxDrawdown    float64  `json:"max_drawdown"`
	MaxWinStreak   int      `json:"max_win_streak"`
	MaxLossStreak  int      `json:"max_loss_streak"`
}

// DailyPerformance is the realized result of one calendar date.
type DailyPerformance struct {
	Date           string  `json:"date"` // YYYY-MM-DD
	RealizedNetPnL float64 `json:"realized_net_pnl"`
	TradeCount     int     `json:"trade_count"`
	WinCount       int     `json:"win_count"`
	LossCount      int     `json:"loss_count"`
}

// MonthlyPerformance is DailyPerformance summed over a calendar month.
type MonthlyPerformance struct {
	Month          string  `json:"month"` // YYYY-MM
	RealizedNetPnL float64 `json:"realized_net_pnl"`
	TradeCount     int     `json:"trade_count"`
	WinCount       int     `json:"win_count"`
	LossCount      int     `json:"loss_count"`
}

// EquityPoint is one step of the cumulative equity curve.
type EquityPoint struct {
	Date          string  `json:"date"`
	CumulativePnL float64 `json:"cumulative_pnl"`
	Drawdown      float64 `json:"drawdown"`
}

// WeekdayMetrics is the activity on one day of the week.
type WeekdayMetrics struct {
	Weekday    string  `json:"weekday"`
	TradeCount int     `json:"trade_count"`
	PnL        float64 `json:"pnl"`
}

// HourlyMetrics is the activity for trades entered within one hour of the day.
type HourlyMetrics struct {
	Hour       int     `json:"hour"`
	TradeCount int     `json:"trade_count"`
	PnL        float64 `json:"pnl"`
}

// TickerMetrics is the activity on one underlying ticker.
type TickerMetrics struct {
	Ticker     string  `json:"ticker"`
	TradeCount int     `json:"trade_count"`
	PnL        float64 `json:"pnl"`
}

func ptr[T any](v T) *T {
	return &v
}
