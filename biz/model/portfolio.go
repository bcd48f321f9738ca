package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// User 由身份服务维护，交易侧只校验其存在
type User struct {
	ID        string `gorm:"primaryKey;size:64"`
	Email     string `gorm:"size:255"`
	Name      string `gorm:"size:255"`
	CreatedAt time.Time
}

func (User) TableName() string {
	return "users"
}

type Portfolio struct {
	ID        uint            `gorm:"primaryKey"`
	UserID    string          `gorm:"size:64;uniqueIndex;not null"`
	Cash      decimal.Decimal `gorm:"type:numeric(38,18);not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Portfolio) TableName() string {
	return "portfolios"
}

// Holding 数量恒大于 0，清仓时删除
type Holding struct {
	ID           uint            `gorm:"primaryKey"`
	PortfolioID  uint            `gorm:"uniqueIndex:idx_portfolio_symbol;not null"`
	Symbol       string          `gorm:"size:32;uniqueIndex:idx_portfolio_symbol;not null"`
	Quantity     decimal.Decimal `gorm:"type:numeric(38,18);not null"`
	AveragePrice decimal.Decimal `gorm:"type:numeric(38,18);not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (Holding) TableName() string {
	return "holdings"
}
