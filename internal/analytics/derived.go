package analytics

import "trade-journal-go/internal/models"

// Derive computes the P&L and risk fields of a trade. It never fails: a trade
// that is open, or closed without an exit price or quantity, gets nil fields.
func Derive(t models.Trade) TradeWithDerived {
	d := TradeWithDerived{Trade: t}
	if t.Status != models.TradeStatusClosed || t.ExitPrice == nil || t.Quantity == nil {
		return d
	}

	var pnlPerShare float64
	if t.Direction == models.DirectionLong {
		pnlPerShare = *t.ExitPrice - t.EntryPrice
	} else {
		pnlPerShare = t.EntryPrice - *t.ExitPrice
	}
	gross := pnlPerShare * *t.Quantity
	net := gross - t.Fees

	d.PnLPerShare = ptr(pnlPerShare)
	d.GrossPnL = ptr(gross)
	d.NetPnL = ptr(net)
	d.Result = ptr(classify(net))

	// A stop on the wrong side of entry yields negative risk; it is passed through.
	if t.StopLossPrice != nil {
		var risk float64
		if t.Direction == models.DirectionLong {
			risk = t.EntryPrice - *t.StopLossPrice
		} else {
			risk = *t.StopLossPrice - t.EntryPrice
		}
		d.RiskPerShare = ptr(risk)
		if risk != 0 {
			d.RMultiple = ptr(pnlPerShare / risk)
		}
	}

	return d
}

// DeriveAll derives every trade, preserving order.
func DeriveAll(trades []models.Trade) []TradeWithDerived {
	out := make([]TradeWithDerived, len(trades))
	for i, t := range trades {
		out[i] = Derive(t)
	}
	return out
}

func classify(net float64) Result {
	switch {
	case net > 0:
		return ResultWin
	case net < 0:
		return ResultLoss
	default:
		return ResultBreakeven
	}
}
