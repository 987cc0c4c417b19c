package models

import "gorm.io/gorm"

// Direction is the side of a trade.
type Direction string

const (
	DirectionLong  Direction = "long"
	DirectionShort Direction = "short"
)

// AssetClass is the kind of instrument traded.
type AssetClass string

const (
	AssetClassStock  AssetClass = "stock"
	AssetClassOption AssetClass = "option"
)

// TradeStatus tells whether a position is still open.
type TradeStatus string

const (
	TradeStatusOpen   TradeStatus = "open"
	TradeStatusClosed TradeStatus = "closed"
)

// Trade is a journaled trade as entered by the user or imported from a broker.
// Nullable columns are pointers so that absence is distinguishable from zero.
type Trade struct {
	gorm.Model
	AccountID     uint        `json:"account_id" gorm:"index;not null"`
	Symbol        string      `json:"symbol" gorm:"not null"`
	AssetClass    AssetClass  `json:"asset_class" gorm:"not null;default:stock"`
	Direction     Direction   `json:"direction" gorm:"not null"`
	TradeDate     string      `json:"trade_date" gorm:"index;not null"` // YYYY-MM-DD
	Quantity      *float64    `json:"quantity"`
	EntryPrice    float64     `json:"entry_price" gorm:"not null"`
	ExitPrice     *float64    `json:"exit_price"`
	StopLossPrice *float64    `json:"stop_loss_price"`
	EntryTime     *string     `json:"entry_time"` // HH:MM or HH:MM:SS
	ExitTime      *string     `json:"exit_time"`
	Fees          float64     `json:"fees"`
	Status        TradeStatus `json:"status" gorm:"not null;default:open"`
	Strategy      string      `json:"strategy"`
	Notes         string      `json:"notes"`
}
