package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trade-journal-go/internal/models"
)

func withEntryTime(t TradeWithDerived, at string) TradeWithDerived {
	t.EntryTime = &at
	return t
}

func option(symbol, date string, pnl float64) TradeWithDerived {
	d := closed(date, pnl)
	d.Symbol = symbol
	d.AssetClass = models.AssetClassOption
	return d
}

func TestDailyPerformanceFor(t *testing.T) {
	open := Derive(models.Trade{Direction: models.DirectionLong, Status: models.TradeStatusOpen, TradeDate: "2024-01-02", EntryPrice: 5})
	trades := []TradeWithDerived{
		closed("2024-01-03", -20),
		closed("2024-01-02", 100),
		closed("2024-01-02", 0),
		closed("2024-01-02", -40),
		open,
	}

	daily := DailyPerformanceFor(trades)

	require.Len(t, daily, 2)
	assert.Equal(t, DailyPerformance{Date: "2024-01-02", RealizedNetPnL: 60, TradeCount: 3, WinCount: 1, LossCount: 1}, daily[0])
	assert.Equal(t, DailyPerformance{Date: "2024-01-03", RealizedNetPnL: -20, TradeCount: 1, WinCount: 0, LossCount: 1}, daily[1])
}

func TestAggregateDailyToMonthly(t *testing.T) {
	daily := []DailyPerformance{
		{Date: "2024-02-01", RealizedNetPnL: 10, TradeCount: 1, WinCount: 1},
		{Date: "2024-01-15", RealizedNetPnL: -5, TradeCount: 2, WinCount: 1, LossCount: 1},
		{Date: "2024-01-31", RealizedNetPnL: 25.5, TradeCount: 3, WinCount: 2, LossCount: 1},
	}

	monthly := AggregateDailyToMonthly(daily)

	require.Len(t, monthly, 2)
	assert.Equal(t, MonthlyPerformance{Month: "2024-01", RealizedNetPnL: 20.5, TradeCount: 5, WinCount: 3, LossCount: 2}, monthly[0])
	assert.Equal(t, MonthlyPerformance{Month: "2024-02", RealizedNetPnL: 10, TradeCount: 1, WinCount: 1}, monthly[1])

	dailySum, monthlySum := 0.0, 0.0
	for _, d := range daily {
		dailySum += d.RealizedNetPnL
	}
	for _, m := range monthly {
		monthlySum += m.RealizedNetPnL
	}
	assert.InDelta(t, dailySum, monthlySum, 1e-9)

	assert.Empty(t, AggregateDailyToMonthly(nil))
}

func TestWeekdayBreakdown(t *testing.T) {
	open := Derive(models.Trade{Direction: models.DirectionLong, Status: models.TradeStatusOpen, TradeDate: "2024-01-03", EntryPrice: 5})
	trades := []TradeWithDerived{
		closed("2024-01-01", 10), // Monday
		closed("2024-01-08", 5),  // Monday
		closed("2024-01-07", -3), // Sunday
		open,                     // Wednesday, no P&L
		closed("not-a-date", 99),
	}

	buckets := WeekdayBreakdown(trades)

	require.Len(t, buckets, 7)
	assert.Equal(t, WeekdayMetrics{Weekday: "Monday", TradeCount: 2, PnL: 15}, buckets[0])
	assert.Equal(t, WeekdayMetrics{Weekday: "Wednesday", TradeCount: 1, PnL: 0}, buckets[2])
	assert.Equal(t, WeekdayMetrics{Weekday: "Sunday", TradeCount: 1, PnL: -3}, buckets[6])
	assert.Len(t, WeekdayBreakdown(nil), 7)
	assert.Equal(t, "Saturday", WeekdayBreakdown(nil)[5].Weekday)
}

func TestHourlyBreakdown(t *testing.T) {
	trades := []TradeWithDerived{
		withEntryTime(closed("2024-01-02", 10), "09:31:00"),
		withEntryTime(closed("2024-01-02", -4), "09:59"),
		withEntryTime(closed("2024-01-02", 7), "15:00:00"),
		withEntryTime(closed("2024-01-02", 1), "x9:00"),
		withEntryTime(closed("2024-01-02", 1), "24:00"),
		closed("2024-01-02", 1000), // no entry time
	}

	buckets := HourlyBreakdown(trades)

	require.Len(t, buckets, 24)
	assert.Equal(t, HourlyMetrics{Hour: 9, TradeCount: 2, PnL: 6}, buckets[9])
	assert.Equal(t, HourlyMetrics{Hour: 15, TradeCount: 1, PnL: 7}, buckets[15])
	total := 0
	for i, b := range buckets {
		assert.Equal(t, i, b.Hour)
		total += b.TradeCount
	}
	assert.Equal(t, 3, total)
	assert.Len(t, HourlyBreakdown(nil), 24)
}

func TestTickerBreakdown(t *testing.T) {
	trades := []TradeWithDerived{
		closed("2024-01-02", 50),
		option("AAPL 240119C00150000", "2024-01-02", 25),
		option("MSFT 19JAN24 400 PUT", "2024-01-03", 75),
		option("NVDA Dec20'24 130 PUT", "2024-01-03", -10),
		{Trade: models.Trade{Symbol: "TSLA", AssetClass: models.AssetClassStock, Status: models.TradeStatusOpen}},
	}

	buckets := TickerBreakdown(trades)

	require.Len(t, buckets, 4)
	assert.Equal(t, TickerMetrics{Ticker: "AAPL", TradeCount: 2, PnL: 75}, buckets[0])
	assert.Equal(t, TickerMetrics{Ticker: "MSFT", TradeCount: 1, PnL: 75}, buckets[1])
	assert.Equal(t, TickerMetrics{Ticker: "TSLA", TradeCount: 1, PnL: 0}, buckets[2])
	assert.Equal(t, TickerMetrics{Ticker: "NVDA", TradeCount: 1, PnL: -10}, buckets[3])
}

func TestCanonicalTicker(t *testing.T) {
	assert.Equal(t, "BRK B", CanonicalTicker("BRK B", models.AssetClassStock))
	assert.Equal(t, "SPY", CanonicalTicker("SPY 240621P00500000", models.AssetClassOption))
	assert.Equal(t, "", CanonicalTicker("", models.AssetClassOption))
}

func TestEquityCurve(t *testing.T) {
	trades := []TradeWithDerived{
		closed("2024-01-03", -150),
		closed("2024-01-02", 100),
		closed("2024-01-02", 20),
		closed("2024-01-04", 80),
		Derive(models.Trade{Direction: models.DirectionLong, Status: models.TradeStatusOpen, TradeDate: "2024-01-05", EntryPrice: 5}),
	}

	curve := EquityCurve(trades)

	require.Len(t, curve, 3)
	assert.Equal(t, EquityPoint{Date: "2024-01-02", CumulativePnL: 120, Drawdown: 0}, curve[0])
	assert.Equal(t, EquityPoint{Date: "2024-01-03", CumulativePnL: -30, Drawdown: 150}, curve[1])
	assert.Equal(t, EquityPoint{Date: "2024-01-04", CumulativePnL: 50, Drawdown: 70}, curve[2])
	assert.Empty(t, EquityCurve(nil))
}
