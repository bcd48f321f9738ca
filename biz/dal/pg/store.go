package pg

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"papertrade-hertz/biz/model"
)

// Store 组合持仓、现金和流水的读写
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// DB 暴露底层连接，供测试和迁移使用
func (s *Store) DB() *gorm.DB {
	return s.db
}

// UserExists 查询用户是否存在
func (s *Store) UserExists(ctx context.Context, userID string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", userID).Count(&count).Error
	return count > 0, err
}

// CreateUser 写入用户记录，已存在时忽略
func (s *Store) CreateUser(ctx context.Context, user *model.User) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(user).Error
}

// FindPortfolio 查询用户组合，不存在时返回 nil
func (s *Store) FindPortfolio(ctx context.Context, userID string) (*model.Portfolio, error) {
	var portfolios []model.Portfolio
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Limit(1).Find(&portfolios).Error
	if err != nil || len(portfolios) == 0 {
		return nil, err
	}
	return &portfolios[0], nil
}

// GetOrCreatePortfolio 查询用户组合，首次访问时以初始资金创建
func (s *Store) GetOrCreatePortfolio(ctx context.Context, userID string, startingCash decimal.Decimal) (*model.Portfolio, bool, error) {
	p, err := s.FindPortfolio(ctx, userID)
	if err != nil || p != nil {
		return p, false, err
	}
	p = &model.Portfolio{UserID: userID, Cash: startingCash}
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(p)
	if res.Error != nil {
		return nil, false, res.Error
	}
	if res.RowsAffected == 0 {
		// 并发创建时以已存在的记录为准
		p, err = s.FindPortfolio(ctx, userID)
		return p, false, err
	}
	return p, true, nil
}

// ListHoldings 查询组合持仓，按代码排序
func (s *Store) ListHoldings(ctx context.Context, portfolioID uint) ([]model.Holding, error) {
	var holdings []model.Holding
	err := s.db.WithContext(ctx).Where("portfolio_id = ?", portfolioID).Order("symbol asc").Find(&holdings).Error
	return holdings, err
}

// ListTransactions 查询用户流水，最新的在前
func (s *Store) ListTransactions(ctx context.Context, userID string, limit int) ([]model.Transaction, error) {
	var txs []model.Transaction
	db := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("timestamp desc").Order("id desc")
	if limit > 0 {
		db = db.Limit(limit)
	}
	err := db.Find(&txs).Error
	return txs, err
}

// Transaction 在单个数据库事务中执行 fn，fn 返回错误时整体回滚
func (s *Store) Transaction(ctx context.Context, fn func(tx *Tx) error) error {
	return s.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		return fn(&Tx{db: db})
	})
}

// Tx 事务内可用的写操作
type Tx struct {
	db *gorm.DB
}

// LockPortfolio 对组合行加写锁（sqlite 会忽略 FOR UPDATE）
func (t *Tx) LockPortfolio(portfolioID uint) (*model.Portfolio, error) {
	var p model.Portfolio
	err := t.db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&p, portfolioID).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// FindHolding 查询某个代码的持仓，不存在时返回 nil
func (t *Tx) FindHolding(portfolioID uint, symbol string) (*model.Holding, error) {
	var holdings []model.Holding
	err := t.db.Where("portfolio_id = ? AND symbol = ?", portfolioID, symbol).Limit(1).Find(&holdings).Error
	if err != nil || len(holdings) == 0 {
		return nil, err
	}
	return &holdings[0], nil
}

func (t *Tx) UpdateCash(portfolioID uint, cash decimal.Decimal) error {
	return checkAffected(t.db.Model(&model.Portfolio{}).Where("id = ?", portfolioID).Update("cash", cash))
}

func (t *Tx) CreateHolding(h *model.Holding) error {
	return t.db.Create(h).Error
}

func (t *Tx) UpdateHolding(h *model.Holding) error {
	return checkAffected(t.db.Model(&model.Holding{}).Where("id = ?", h.ID).Updates(map[string]interface{}{
		"quantity":      h.Quantity,
		"average_price": h.AveragePrice,
	}))
}

func (t *Tx) DeleteHolding(id uint) error {
	return checkAffected(t.db.Delete(&model.Holding{}, id))
}

// DeleteHoldings 清空组合全部持仓
func (t *Tx) DeleteHoldings(portfolioID uint) error {
	return t.db.Where("portfolio_id = ?", portfolioID).Delete(&model.Holding{}).Error
}

// AppendTransaction 追加一条成交流水
func (t *Tx) AppendTransaction(tx *model.Transaction) error {
	return t.db.Create(tx).Error
}

// ErrNoRowsAffected 更新的目标行已不存在
var ErrNoRowsAffected = errors.New("no rows affected")

func checkAffected(res *gorm.DB) error {
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNoRowsAffected
	}
	return nil
}
