package analytics

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"trade-journal-go/internal/models"
)

// weekdayNames is Monday-first, matching the bucket index.
var weekdayNames = [7]string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// DailyPerformanceFor groups realized trades by trade date. Breakeven trades
// count towards TradeCount only. Output is sorted by date ascending.
func DailyPerformanceFor(trades []TradeWithDerived) []DailyPerformance {
	byDate := make(map[string]*DailyPerformance)
	for _, t := range realized(trades) {
		day, ok := byDate[t.TradeDate]
		if !ok {
			day = &DailyPerformance{Date: t.TradeDate}
			byDate[t.TradeDate] = day
		}
		day.RealizedNetPnL += *t.NetPnL
		day.TradeCount++
		switch classify(*t.NetPnL) {
		case ResultWin:
			day.WinCount++
		case ResultLoss:
			day.LossCount++
		}
	}

	out := make([]DailyPerformance, 0, len(byDate))
	for _, d := range byDate {
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

// AggregateDailyToMonthly sums daily results per YYYY-MM, sorted ascending.
func AggregateDailyToMonthly(daily []DailyPerformance) []MonthlyPerformance {
	byMonth := make(map[string]*MonthlyPerformance)
	for _, d := range daily {
		key := d.Date
		if len(key) > 7 {
			key = key[:7]
		}
		month, ok := byMonth[key]
		if !ok {
			month = &MonthlyPerformance{Month: key}
			byMonth[key] = month
		}
		month.RealizedNetPnL += d.RealizedNetPnL
		month.TradeCount += d.TradeCount
		month.WinCount += d.WinCount
		month.LossCount += d.LossCount
	}

	out := make([]MonthlyPerformance, 0, len(byMonth))
	for _, m := range byMonth {
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out
}

// WeekdayBreakdown buckets trades by the weekday of their trade date,
// Monday first. The result always has seven entries. Dates are read as
// plain calendar days; trades with an unparseable date are skipped.
func WeekdayBreakdown(trades []TradeWithDerived) []WeekdayMetrics {
	out := make([]WeekdayMetrics, len(weekdayNames))
	for i, name := range weekdayNames {
		out[i].Weekday = name
	}

	for _, t := range trades {
		date := t.TradeDate
		if len(date) > 10 {
			date = date[:10]
		}
		day, err := time.Parse(time.DateOnly, date)
		if err != nil {
			continue
		}
		idx := (int(day.Weekday()) + 6) % 7 // Sunday is 6
		out[idx].TradeCount++
		if t.NetPnL != nil {
			out[idx].PnL += *t.NetPnL
		}
	}
	return out
}

// HourlyBreakdown buckets trades by the hour of their entry time. The result
// always has 24 entries. Trades without a readable entry hour are skipped.
func HourlyBreakdown(trades []TradeWithDerived) []HourlyMetrics {
	out := make([]HourlyMetrics, 24)
	for i := range out {
		out[i].Hour = i
	}

	for _, t := range trades {
		hour, ok := entryHour(t.EntryTime)
		if !ok {
			continue
		}
		out[hour].TradeCount++
		if t.NetPnL != nil {
			out[hour].PnL += *t.NetPnL
		}
	}
	return out
}

func entryHour(entryTime *string) (int, bool) {
	if entryTime == nil {
		return 0, false
	}
	head, _, _ := strings.Cut(strings.TrimSpace(*entryTime), ":")
	hour, err := strconv.Atoi(head)
	if err != nil || hour < 0 || hour > 23 {
		return 0, false
	}
	return hour, true
}

// TickerBreakdown groups trades by underlying ticker. Only observed tickers
// appear; output is sorted by P&L descending, then ticker ascending.
func TickerBreakdown(trades []TradeWithDerived) []TickerMetrics {
	byTicker := make(map[string]*TickerMetrics)
	for _, t := range trades {
		ticker := CanonicalTicker(t.Symbol, t.AssetClass)
		m, ok := byTicker[ticker]
		if !ok {
			m = &TickerMetrics{Ticker: ticker}
			byTicker[ticker] = m
		}
		m.TradeCount++
		if t.NetPnL != nil {
			m.PnL += *t.NetPnL
		}
	}

	out := make([]TickerMetrics, 0, len(byTicker))
	for _, m := range byTicker {
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].PnL != out[j].PnL {
			return out[i].PnL > out[j].PnL
		}
		return out[i].Ticker < out[j].Ticker
	})
	return out
}

// CanonicalTicker returns the symbol of a stock, or the underlying (first
// whitespace-delimited token) of an option symbol.
func CanonicalTicker(symbol string, asset models.AssetClass) string {
	if asset != models.AssetClassOption {
		return symbol
	}
	fields := strings.Fields(symbol)
	if len(fields) == 0 {
		return symbol
	}
	return fields[0]
}

// EquityCurve sums realized P&L per date and walks the dates in order,
// emitting the running cumulative P&L and its distance below the running peak.
func EquityCurve(trades []TradeWithDerived) []EquityPoint {
	byDate := make(map[string]float64)
	for _, t := range realized(trades) {
		byDate[t.TradeDate] += *t.NetPnL
	}

	dates := make([]string, 0, len(byDate))
	for d := range byDate {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	out := make([]EquityPoint, 0, len(dates))
	cumulative, peak := 0.0, 0.0
	for _, d := range dates {
		cumulative += byDate[d]
		peak = math.Max(peak, cumulative)
		out = append(out, EquityPoint{Date: d, CumulativePnL: cumulative, Drawdown: peak - cumulative})
	}
	return out
}
