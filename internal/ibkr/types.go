// Package ibkr turns Interactive Brokers execution text into trades: pasted
// TWS execution lines become a single trade draft, and trade-log (TLG)
// statements become round-trip positions grouped by underlying.
package ibkr

import "trade-journal-go/internal/models"

// ExecutionType tells whether a fill opened or reduced a position.
type ExecutionType string

const (
	ExecutionEntry ExecutionType = "entry"
	ExecutionExit  ExecutionType = "exit"
)

// Execution is a single fill.
type Execution struct {
	Type              ExecutionType `json:"type"`
	Date              string        `json:"date"`
	Time              *string       `json:"time"`
	Quantity          float64       `json:"quantity"`
	Price             float64       `json:"price"`
	Fees              float64       `json:"fees"`
	Exchange          *string       `json:"exchange"`
	BrokerExecutionID string        `json:"broker_execution_id"`
}

// OptionDetails describes an option contract.
type OptionDetails struct {
	Type       string  `json:"type"` // call or put
	Strike     float64 `json:"strike"`
	Expiration string  `json:"expiration"` // YYYY-MM-DD
}

// AggregatedTrade is a round-trip position built from executions.
type AggregatedTrade struct {
	Key              string             `json:"key"`
	Symbol           string             `json:"symbol"`
	UnderlyingSymbol string             `json:"underlying_symbol"`
	AssetClass       models.AssetClass  `json:"asset_class"`
	Option           *OptionDetails     `json:"option"`
	Direction        models.Direction   `json:"direction"`
	Multiplier       float64            `json:"multiplier"`
	Entries          []Execution        `json:"entries"`
	Exits            []Execution        `json:"exits"`
	Status           models.TradeStatus `json:"status"`

	TotalQuantity float64  `json:"total_quantity"`
	AvgEntryPrice float64  `json:"avg_entry_price"`
	AvgExitPrice  *float64 `json:"avg_exit_price"`
	TotalFees     float64  `json:"total_fees"`
	NetPnL        *float64 `json:"net_pnl"`
}

// TradeGroup holds the aggregated trades of one underlying symbol.
type TradeGroup struct {
	UnderlyingSymbol string            `json:"underlying_symbol"`
	Trades           []AggregatedTrade `json:"trades"`
	TotalNetPnL      *float64          `json:"total_net_pnl"`
}

// DraftExit is one exit fill of a pasted trade.
type DraftExit struct {
	Time     string  `json:"time"` // HH:MM
	Quantity float64 `json:"quantity"`
	Price    float64 `json:"price"`
	Fees     float64 `json:"fees"`
}

// TradeDraft is a pasted round-trip trade, used to pre-fill the trade form.
type TradeDraft struct {
	Symbol     string            `json:"symbol"`
	AssetClass models.AssetClass `json:"asset_class"`
	Direction  models.Direction  `json:"direction"`
	EntryTime  string            `json:"entry_time"` // HH:MM of the first entry
	Quantity   float64           `json:"quantity"`
	EntryPrice float64           `json:"entry_price"`
	EntryFees  float64           `json:"entry_fees"`
	Exits      []DraftExit       `json:"exits"`
}
