package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trade-journal-go/internal/models"
)

func f(v float64) *float64 { return &v }

func TestDerive_ClosedTrades(t *testing.T) {
	testCases := []struct {
		name         string
		trade        models.Trade
		gross        float64
		net          float64
		perShare     float64
		riskPerShare *float64
		rMultiple    *float64
		result       Result
	}{
		{
			name: "Long winner with stop",
			trade: models.Trade{
				Direction: models.DirectionLong, Status: models.TradeStatusClosed,
				EntryPrice: 150, ExitPrice: f(160), Quantity: f(100), Fees: 2, StopLossPrice: f(145),
			},
			gross: 1000, net: 998, perShare: 10, riskPerShare: f(5), rMultiple: f(2), result: ResultWin,
		},
		{
			name: "Short moving against the position",
			trade: models.Trade{
				Direction: models.DirectionShort, Status: models.TradeStatusClosed,
				EntryPrice: 160, ExitPrice: f(170), Quantity: f(100),
			},
			gross: -1000, net: -1000, perShare: -10, result: ResultLoss,
		},
		{
			name: "Short winner with stop",
			trade: models.Trade{
				Direction: models.DirectionShort, Status: models.TradeStatusClosed,
				EntryPrice: 50, ExitPrice: f(45), Quantity: f(10), Fees: 1, StopLossPrice: f(52),
			},
			gross: 50, net: 49, perShare: 5, riskPerShare: f(2), rMultiple: f(2.5), result: ResultWin,
		},
		{
			name: "Fees turn a scratch into breakeven",
			trade: models.Trade{
				Direction: models.DirectionLong, Status: models.TradeStatusClosed,
				EntryPrice: 10, ExitPrice: f(10.5), Quantity: f(4), Fees: 2,
			},
			gross: 2, net: 0, perShare: 0.5, result: ResultBreakeven,
		},
		{
			name: "Stop at entry has zero risk and no R",
			trade: models.Trade{
				Direction: models.DirectionLong, Status: models.TradeStatusClosed,
				EntryPrice: 20, ExitPrice: f(22), Quantity: f(10), StopLossPrice: f(20),
			},
			gross: 20, net: 20, perShare: 2, riskPerShare: f(0), result: ResultWin,
		},
		{
			name: "Stop on the wrong side passes negative risk through",
			trade: models.Trade{
				Direction: models.DirectionLong, Status: models.TradeStatusClosed,
				EntryPrice: 20, ExitPrice: f(22), Quantity: f(10), StopLossPrice: f(24),
			},
			gross: 20, net: 20, perShare: 2, riskPerShare: f(-4), rMultiple: f(-0.5), result: ResultWin,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			d := Derive(tc.trade)

			require.NotNil(t, d.GrossPnL)
			require.NotNil(t, d.NetPnL)
			require.NotNil(t, d.PnLPerShare)
			require.NotNil(t, d.Result)
			assert.InDelta(t, tc.gross, *d.GrossPnL, 1e-9)
			assert.InDelta(t, tc.net, *d.NetPnL, 1e-9)
			assert.InDelta(t, tc.perShare, *d.PnLPerShare, 1e-9)
			assert.Equal(t, tc.result, *d.Result)

			if tc.riskPerShare == nil {
				assert.Nil(t, d.RiskPerShare)
			} else {
				require.NotNil(t, d.RiskPerShare)
				assert.InDelta(t, *tc.riskPerShare, *d.RiskPerShare, 1e-9)
			}
			if tc.rMultiple == nil {
				assert.Nil(t, d.RMultiple)
			} else {
				require.NotNil(t, d.RMultiple)
				assert.Equal(t, *d.PnLPerShare / *d.RiskPerShare, *d.RMultiple)
				assert.InDelta(t, *tc.rMultiple, *d.RMultiple, 1e-9)
			}
		})
	}
}

func TestDerive_IncompleteTradesHaveNoDerivedFields(t *testing.T) {
	testCases := []struct {
		name  string
		trade models.Trade
	}{
		{
			name: "Open trade",
			trade: models.Trade{Direction: models.DirectionLong, Status: models.TradeStatusOpen,
				EntryPrice: 10, ExitPrice: f(12), Quantity: f(1), StopLossPrice: f(9)},
		},
		{
			name: "Closed without exit price",
			trade: models.Trade{Direction: models.DirectionLong, Status: models.TradeStatusClosed,
				EntryPrice: 10, Quantity: f(1), StopLossPrice: f(9)},
		},
		{
			name: "Closed without quantity",
			trade: models.Trade{Direction: models.DirectionShort, Status: models.TradeStatusClosed,
				EntryPrice: 10, ExitPrice: f(8), StopLossPrice: f(11)},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			d := Derive(tc.trade)
			assert.Nil(t, d.GrossPnL)
			assert.Nil(t, d.NetPnL)
			assert.Nil(t, d.PnLPerShare)
			assert.Nil(t, d.RiskPerShare)
			assert.Nil(t, d.RMultiple)
			assert.Nil(t, d.Result)
			assert.Equal(t, tc.trade, d.Trade)
		})
	}
}

func TestDeriveAll_PreservesOrder(t *testing.T) {
	trades := []models.Trade{
		{Symbol: "A", Direction: models.DirectionLong, Status: models.TradeStatusClosed, EntryPrice: 1, ExitPrice: f(2), Quantity: f(1)},
		{Symbol: "B", Direction: models.DirectionLong, Status: models.TradeStatusOpen, EntryPrice: 1},
	}

	derived := DeriveAll(trades)

	require.Len(t, derived, 2)
	assert.Equal(t, "A", derived[0].Symbol)
	assert.NotNil(t, derived[0].NetPnL)
	assert.Equal(t, "B", derived[1].Symbol)
	assert.Nil(t, derived[1].NetPnL)
}
