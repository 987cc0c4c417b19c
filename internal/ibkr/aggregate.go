package ibkr

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"trade-journal-go/internal/models"
)

// position accumulates the fills of one round trip while it is open.
type position struct {
	trade AggregatedTrade
	open  decimal.Decimal
}

// BuildAggregatedTrades rolls trade-log fills up into round-trip positions.
// Fills are processed per contract in chronological order. A fill on the side
// of the position adds to it; a fill on the other side reduces it, and the
// position closes once nothing is left open. A reducing fill larger than the
// open quantity closes the position and opens a new one in the other direction.
// Positions are returned in the order they were opened.
func BuildAggregatedTrades(entries []TradeLogEntry) []AggregatedTrade {
	bySymbol := make(map[string][]TradeLogEntry)
	var symbols []string
	for _, e := range entries {
		if _, ok := bySymbol[e.Symbol]; !ok {
			symbols = append(symbols, e.Symbol)
		}
		bySymbol[e.Symbol] = append(bySymbol[e.Symbol], e)
	}

	var out []AggregatedTrade
	for _, symbol := range symbols {
		fills := bySymbol[symbol]
		sort.SliceStable(fills, func(i, j int) bool {
			return fillTime(fills[i]) < fillTime(fills[j])
		})

		var current *position
		opened := 0
		for _, fill := range fills {
			remaining := decimal.NewFromFloat(fill.Quantity)
			for remaining.IsPositive() {
				if current == nil {
					opened++
					current = openPosition(fill, opened)
				}

				adds := fill.Buy == (current.trade.Direction == models.DirectionLong)
				if adds {
					exec := fill.Execution
					exec.Type = ExecutionEntry
					exec.Quantity = remaining.InexactFloat64()
					exec.Fees = proRataFee(fill, remaining)
					current.trade.Entries = append(current.trade.Entries, exec)
					current.open = current.open.Add(remaining)
					remaining = decimal.Zero
					continue
				}

				closed := decimal.Min(remaining, current.open)
				exec := fill.Execution
				exec.Type = ExecutionExit
				exec.Quantity = closed.InexactFloat64()
				exec.Fees = proRataFee(fill, closed)
				current.trade.Exits = append(current.trade.Exits, exec)
				current.open = current.open.Sub(closed)
				remaining = remaining.Sub(closed)

				if current.open.IsZero() {
					current.trade.Status = models.TradeStatusClosed
					out = append(out, finalize(current.trade))
					current = nil
				}
			}
		}
		if current != nil {
			out = append(out, finalize(current.trade))
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return executionTime(out[i].Entries[0]) < executionTime(out[j].Entries[0])
	})
	return out
}

// openPosition starts the seq-th position of a contract.
func openPosition(fill TradeLogEntry, seq int) *position {
	direction := models.DirectionShort
	if fill.Buy {
		direction = models.DirectionLong
	}

	underlying := fill.Symbol
	var option *OptionDetails
	if fill.AssetClass == models.AssetClassOption {
		if u, details, ok := parseOptionDescription(fill.Description); ok {
			underlying, option = u, details
		} else if fields := strings.Fields(fill.Symbol); len(fields) > 0 {
			underlying = fields[0]
		}
	}

	return &position{
		trade: AggregatedTrade{
			Key:              fmt.Sprintf("%s|%s|%d", fill.Symbol, fill.BrokerExecutionID, seq),
			Symbol:           fill.Symbol,
			UnderlyingSymbol: underlying,
			AssetClass:       fill.AssetClass,
			Option:           option,
			Direction:        direction,
			Multiplier:       fill.Multiplier,
			Entries:          []Execution{},
			Exits:            []Execution{},
			Status:           models.TradeStatusOpen,
		},
		open: decimal.Zero,
	}
}

// proRataFee charges the part of a fill's commission that matches qty.
func proRataFee(fill TradeLogEntry, qty decimal.Decimal) float64 {
	total := decimal.NewFromFloat(fill.Quantity)
	if qty.Equal(total) {
		return fill.Fees
	}
	return decimal.NewFromFloat(fill.Fees).Mul(qty).Div(total).InexactFloat64()
}

// finalize computes the display fields of a position.
func finalize(t AggregatedTrade) AggregatedTrade {
	entryQty, entryNotional := weighted(t.Entries)
	exitQty, exitNotional := weighted(t.Exits)

	fees := decimal.Zero
	for _, e := range append(append([]Execution{}, t.Entries...), t.Exits...) {
		fees = fees.Add(decimal.NewFromFloat(e.Fees))
	}

	t.TotalQuantity = entryQty.InexactFloat64()
	t.TotalFees = fees.InexactFloat64()

	avgEntry := decimal.Zero
	if entryQty.IsPositive() {
		avgEntry = entryNotional.Div(entryQty)
	}
	t.AvgEntryPrice = avgEntry.InexactFloat64()

	if exitQty.IsPositive() {
		avgExit := exitNotional.Div(exitQty)
		t.AvgExitPrice = ptr(avgExit.InexactFloat64())

		if t.Status == models.TradeStatusClosed {
			perUnit := avgExit.Sub(avgEntry)
			if t.Direction == models.DirectionShort {
				perUnit = perUnit.Neg()
			}
			net := perUnit.Mul(exitQty).Mul(decimal.NewFromFloat(t.Multiplier)).Sub(fees)
			t.NetPnL = ptr(net.InexactFloat64())
		}
	}
	return t
}

func weighted(execs []Execution) (qty, notional decimal.Decimal) {
	for _, e := range execs {
		q := decimal.NewFromFloat(e.Quantity)
		qty = qty.Add(q)
		notional = notional.Add(q.Mul(decimal.NewFromFloat(e.Price)))
	}
	return qty, notional
}

func fillTime(e TradeLogEntry) string {
	return executionTime(e.Execution)
}

func executionTime(e Execution) string {
	if e.Time == nil {
		return e.Date
	}
	return e.Date + " " + *e.Time
}

func ptr[T any](v T) *T {
	return &v
}
