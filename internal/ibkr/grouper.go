package ibkr

import "sort"

// GroupTradesByUnderlying groups aggregated trades by underlying symbol,
// keeping each group's trades in input order. A group's total skips trades
// without a net P&L and stays nil only when none of them has one. Groups are
// sorted by underlying symbol, byte-wise ascending.
func GroupTradesByUnderlying(trades []AggregatedTrade) []TradeGroup {
	index := make(map[string]int)
	groups := make([]TradeGroup, 0)

	for _, t := range trades {
		i, ok := index[t.UnderlyingSymbol]
		if !ok {
			i = len(groups)
			index[t.UnderlyingSymbol] = i
			groups = append(groups, TradeGroup{UnderlyingSymbol: t.UnderlyingSymbol})
		}
		g := &groups[i]
		g.Trades = append(g.Trades, t)
		if t.NetPnL != nil {
			if g.TotalNetPnL == nil {
				g.TotalNetPnL = ptr(0.0)
			}
			*g.TotalNetPnL += *t.NetPnL
		}
	}

	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].UnderlyingSymbol < groups[j].UnderlyingSymbol
	})
	return groups
}
