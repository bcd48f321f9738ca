package service

import (
	"context"

	"papertrade-hertz/biz/dal/pg"
	"papertrade-hertz/biz/model"
)

// MaxHistoryLimit 显式分页时单次返回的上限
const MaxHistoryLimit = 500

// Ledger 流水和持仓查询
type Ledger struct {
	store *pg.Store
}

func NewLedger(store *pg.Store) *Ledger {
	return &Ledger{store: store}
}

// History 用户成交流水，最新的在前。limit <= 0 返回全部
func (l *Ledger) History(ctx context.Context, userID string, limit int) ([]model.Transaction, error) {
	if err := l.requireUser(ctx, userID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 0
	} else if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}
	return l.store.ListTransactions(ctx, userID, limit)
}

// Holdings 不取实时价的持仓列表
func (l *Ledger) Holdings(ctx context.Context, userID string) ([]model.Holding, error) {
	if err := l.requireUser(ctx, userID); err != nil {
		return nil, err
	}
	p, err := l.store.FindPortfolio(ctx, userID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return []model.Holding{}, nil
	}
	return l.store.ListHoldings(ctx, p.ID)
}

func (l *Ledger) requireUser(ctx context.Context, userID string) error {
	ok, err := l.store.UserExists(ctx, userID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrUserNotFound
	}
	return nil
}
