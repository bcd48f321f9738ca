package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Transaction 只追加的成交流水，Price 为本币价格；
// FXRate 和 NativePrice 仅在发生换汇时有值
type Transaction struct {
	ID          uint                `gorm:"primaryKey"`
	TradeID     string              `gorm:"size:32;uniqueIndex;not null"`
	UserID      string              `gorm:"size:64;index:idx_user_ts;not null"`
	Symbol      string              `gorm:"size:32;not null"`
	Side        Side                `gorm:"size:4;not null"`
	Quantity    decimal.Decimal     `gorm:"type:numeric(38,18);not null"`
	Price       decimal.Decimal     `gorm:"type:numeric(38,18);not null"`
	GrossAmount decimal.Decimal     `gorm:"type:numeric(38,18);not null"`
	Fee         decimal.Decimal     `gorm:"type:numeric(38,18);not null"`
	FXRate      decimal.NullDecimal `gorm:"type:numeric(38,18)"`
	NativePrice decimal.NullDecimal `gorm:"type:numeric(38,18)"`
	Timestamp   time.Time           `gorm:"index:idx_user_ts;not null"`
}

func (Transaction) TableName() string {
	return "transactions"
}

// TradeEvent 成交提交后发布的事件
type TradeEvent struct {
	TradeID   string  `json:"tradeId"`
	UserID    string  `json:"userId"`
	Symbol    string  `json:"symbol"`
	Side      Side    `json:"side"`
	Quantity  string  `json:"quantity"`
	Price     string  `json:"price"`
	Fee       string  `json:"fee"`
	Cash      string  `json:"cash"`
	FXRate    *string `json:"fxRate,omitempty"`
	Timestamp int64   `json:"timestamp"`
}
