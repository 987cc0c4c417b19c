package analytics

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"trade-journal-go/internal/models"
)

// realized returns the closed trades that have a net P&L, stably sorted by
// trade date so that ties keep their input order.
func realized(trades []TradeWithDerived) []TradeWithDerived {
	out := make([]TradeWithDerived, 0, len(trades))
	for _, t := range trades {
		if t.Status == models.TradeStatusClosed && t.NetPnL != nil {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].TradeDate < out[j].TradeDate
	})
	return out
}

// ComputePeriodMetrics aggregates the closed trades of a period. The caller
// has already filtered by account and date range. Drawdown and streaks are
// computed in one sequential pass over the date-ordered trades.
func ComputePeriodMetrics(trades []TradeWithDerived) PeriodMetrics {
	closed := realized(trades)

	var m PeriodMetrics
	if len(closed) == 0 {
		return m
	}

	var wins, losses []float64
	cumulative, peak := 0.0, 0.0
	winStreak, lossStreak := 0, 0

	for _, t := range closed {
		pnl := *t.NetPnL
		m.TotalNetPnL += pnl
		m.TradeCount++

		cumulative += pnl
		peak = math.Max(peak, cumulative)
		m.MaxDrawdown = math.Max(m.MaxDrawdown, peak-cumulative)

		// Breakeven trades neither extend nor break a streak.
		switch classify(pnl) {
		case ResultWin:
			m.WinCount++
			wins = append(wins, pnl)
			winStreak++
			lossStreak = 0
		case ResultLoss:
			m.LossCount++
			losses = append(losses, pnl)
			lossStreak++
			winStreak = 0
		default:
			m.BreakevenCount++
		}
		m.MaxWinStreak = max(m.MaxWinStreak, winStreak)
		m.MaxLossStreak = max(m.MaxLossStreak, lossStreak)
	}

	if decided := m.WinCount + m.LossCount; decided > 0 {
		m.WinRate = ptr(float64(m.WinCount) / float64(decided))
	}
	if len(wins) > 0 {
		m.AvgWin = ptr(stat.Mean(wins, nil))
	}
	if len(losses) > 0 {
		m.AvgLoss = ptr(stat.Mean(losses, nil))
	}
	if lossSum := floats.Sum(losses); lossSum != 0 {
		m.ProfitFactor = ptr(math.Abs(floats.Sum(wins) / lossSum))
	}
	if m.WinRate != nil && m.AvgWin != nil && m.AvgLoss != nil {
		wr := *m.WinRate
		m.Expectancy = ptr(wr**m.AvgWin + (1-wr)**m.AvgLoss)
	}

	return m
}
