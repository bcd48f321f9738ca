package service

import (
	"context"
	"time"

	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/shopspring/decimal"

	"papertrade-hertz/biz/dal/pg"
	"papertrade-hertz/biz/market"
	"papertrade-hertz/biz/model"
	"papertrade-hertz/util"
)

// QuoteSource 返回原始币种的最新价
type QuoteSource interface {
	GetPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
}

type CurrencyNormalizer interface {
	ToBase(ctx context.Context, symbol string, native decimal.Decimal) market.Conversion
	RateForForeign(ctx context.Context) decimal.Decimal
}

type MarketCalendar interface {
	IsOpen(symbol string, now time.Time) bool
	NextOpen(symbol string, now time.Time) time.Time
}

// IDGenerator 生成成交ID
type IDGenerator func() (string, error)

type Settings struct {
	StartingCash decimal.Decimal
	FeeRate      decimal.Decimal
}

func DefaultSettings() Settings {
	return Settings{
		StartingCash: decimal.NewFromInt(100000),
		FeeRate:      decimal.RequireFromString("0.001"),
	}
}

// OrderRequest 市价单请求
type OrderRequest struct {
	Symbol   string
	Quantity decimal.Decimal
}

type BuyResult struct {
	TradeID         string
	Symbol          string
	Quantity        decimal.Decimal
	ExecutedPrice   decimal.Decimal
	Fee             decimal.Decimal
	TotalCost       decimal.Decimal
	RemainingCash   decimal.Decimal
	NewQuantity     decimal.Decimal
	NewAveragePrice decimal.Decimal
	Conversion      market.Conversion
}

type SellResult struct {
	TradeID           string
	Symbol            string
	QuantitySold      decimal.Decimal
	ExecutedPrice     decimal.Decimal
	GrossProceeds     decimal.Decimal
	Fee               decimal.Decimal
	NetProceeds       decimal.Decimal
	RemainingCash     decimal.Decimal
	RemainingQuantity decimal.Decimal
	Conversion        market.Conversion
}

type ResetResult struct {
	Cash decimal.Decimal
}

// TradeEngine 市价单执行：校验、定价、计费，并在单个事务中提交持仓和流水
type TradeEngine struct {
	store     *pg.Store
	quotes    QuoteSource
	fx        CurrencyNormalizer
	calendar  MarketCalendar
	settings  Settings
	publisher Publisher
	ids       IDGenerator
	now       func() time.Time
	locks     portfolioLocks
}

type EngineOption func(*TradeEngine)

func WithPublisher(p Publisher) EngineOption {
	return func(e *TradeEngine) {
		e.publisher = p
	}
}

func WithIDGenerator(ids IDGenerator) EngineOption {
	return func(e *TradeEngine) {
		e.ids = ids
	}
}

func WithEngineClock(now func() time.Time) EngineOption {
	return func(e *TradeEngine) {
		e.now = now
	}
}

func NewTradeEngine(store *pg.Store, quotes QuoteSource, fx CurrencyNormalizer, calendar MarketCalendar, settings Settings, opts ...EngineOption) *TradeEngine {
	e := &TradeEngine{
		store:     store,
		quotes:    quotes,
		fx:        fx,
		calendar:  calendar,
		settings:  settings,
		publisher: NopPublisher{},
		ids:       util.GenerateTradeID,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *TradeEngine) Settings() Settings {
	return e.settings
}

// validateOrder 规范化代码并校验数量，不做任何外部调用
func validateOrder(req OrderRequest) (string, decimal.Decimal, error) {
	symbol, err := normalizeSymbol(req.Symbol)
	if err != nil {
		return "", decimal.Zero, err
	}
	if !req.Quantity.IsPositive() {
		return "", decimal.Zero, &ValidationError{Field: "quantity", Value: req.Quantity.String(), Message: "must be greater than zero"}
	}
	return symbol, req.Quantity, nil
}

func (e *TradeEngine) requireUser(ctx context.Context, userID string) error {
	ok, err := e.store.UserExists(ctx, userID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrUserNotFound
	}
	return nil
}

// quote 交易时段检查、取价并换算为本币
func (e *TradeEngine) quote(ctx context.Context, symbol string) (market.Conversion, error) {
	now := e.now()
	if !e.calendar.IsOpen(symbol, now) {
		return market.Conversion{}, &MarketClosedError{Symbol: symbol, NextOpen: e.calendar.NextOpen(symbol, now)}
	}
	native, err := e.quotes.GetPrice(ctx, symbol)
	if err != nil {
		return market.Conversion{}, &PriceUnavailableError{Symbol: symbol, Err: err}
	}
	if !native.IsPositive() {
		return market.Conversion{}, &InvalidPriceError{Symbol: symbol, Price: native}
	}
	return e.fx.ToBase(ctx, symbol, native), nil
}

func newTransaction(tradeID, userID, symbol string, side model.Side, qty, gross, fee decimal.Decimal, conv market.Conversion, at time.Time) *model.Transaction {
	t := &model.Transaction{
		TradeID:     tradeID,
		UserID:      userID,
		Symbol:      symbol,
		Side:        side,
		Quantity:    qty,
		Price:       conv.Price,
		GrossAmount: gross,
		Fee:         fee,
		FXRate:      conv.Rate,
		Timestamp:   at,
	}
	if conv.Converted() {
		t.NativePrice = decimal.NewNullDecimal(conv.Native)
	}
	return t
}

// commit 持有用户锁执行数据库事务，fn panic 时同样释放锁
func (e *TradeEngine) commit(ctx context.Context, userID string, fn func(tx *pg.Tx) error) error {
	unlock := e.locks.lock(userID)
	defer unlock()
	return e.store.Transaction(ctx, fn)
}

// Buy 执行买单，成功后扣减现金并按加权平均更新成本价
func (e *TradeEngine) Buy(ctx context.Context, userID string, req OrderRequest) (*BuyResult, error) {
	symbol, qty, err := validateOrder(req)
	if err != nil {
		return nil, err
	}
	if err := e.requireUser(ctx, userID); err != nil {
		return nil, err
	}
	portfolio, _, err := e.store.GetOrCreatePortfolio(ctx, userID, e.settings.StartingCash)
	if err != nil {
		return nil, err
	}
	conv, err := e.quote(ctx, symbol)
	if err != nil {
		return nil, err
	}

	gross := conv.Price.Mul(qty)
	fee := gross.Mul(e.settings.FeeRate)
	total := gross.Add(fee)

	tradeID, err := e.ids()
	if err != nil {
		return nil, &TransactionFailure{Op: "buy", Err: err}
	}
	now := e.now()
	result := &BuyResult{
		TradeID:       tradeID,
		Symbol:        symbol,
		Quantity:      qty,
		ExecutedPrice: conv.Price,
		Fee:           fee,
		TotalCost:     total,
		Conversion:    conv,
	}

	err = e.commit(ctx, userID, func(tx *pg.Tx) error {
		p, err := tx.LockPortfolio(portfolio.ID)
		if err != nil {
			return err
		}
		if total.GreaterThan(p.Cash) {
			return &InsufficientFundsError{Required: total, Available: p.Cash, Fee: fee}
		}
		cash := p.Cash.Sub(total)
		if err := tx.UpdateCash(p.ID, cash); err != nil {
			return err
		}

		h, err := tx.FindHolding(p.ID, symbol)
		if err != nil {
			return err
		}
		if h == nil {
			h = &model.Holding{PortfolioID: p.ID, Symbol: symbol, Quantity: qty, AveragePrice: conv.Price}
			if err := tx.CreateHolding(h); err != nil {
				return err
			}
		} else {
			newQty := h.Quantity.Add(qty)
			h.AveragePrice = h.Quantity.Mul(h.AveragePrice).Add(qty.Mul(conv.Price)).Div(newQty)
			h.Quantity = newQty
			if err := tx.UpdateHolding(h); err != nil {
				return err
			}
		}

		if err := tx.AppendTransaction(newTransaction(tradeID, userID, symbol, model.SideBuy, qty, gross, fee, conv, now)); err != nil {
			return err
		}
		result.RemainingCash = cash
		result.NewQuantity = h.Quantity
		result.NewAveragePrice = h.AveragePrice
		return nil
	})
	if err != nil {
		if isBusinessError(err) {
			return nil, err
		}
		hlog.CtxErrorf(ctx, "[TradeEngine] 买单提交失败已回滚, user=%s, symbol=%s, err=%v", userID, symbol, err)
		return nil, &TransactionFailure{Op: "buy", Err: err}
	}

	hlog.CtxInfof(ctx, "[TradeEngine] 买单成交, trade_id=%s, user=%s, symbol=%s, qty=%s, price=%s, fee=%s",
		tradeID, userID, symbol, qty, conv.Price, fee)
	e.publisher.Publish(ctx, tradeEvent(tradeID, userID, symbol, model.SideBuy, qty, conv, fee, result.RemainingCash, now))
	return result, nil
}

// Sell 执行卖单，卖出全部数量时删除持仓，部分卖出时成本价不变
func (e *TradeEngine) Sell(ctx context.Context, userID string, req OrderRequest) (*SellResult, error) {
	symbol, qty, err := validateOrder(req)
	if err != nil {
		return nil, err
	}
	if err := e.requireUser(ctx, userID); err != nil {
		return nil, err
	}
	portfolio, err := e.store.FindPortfolio(ctx, userID)
	if err != nil {
		return nil, err
	}
	if portfolio == nil {
		return nil, ErrPortfolioNotFound
	}
	conv, err := e.quote(ctx, symbol)
	if err != nil {
		return nil, err
	}

	gross := conv.Price.Mul(qty)
	fee := gross.Mul(e.settings.FeeRate)
	net := gross.Sub(fee)

	tradeID, err := e.ids()
	if err != nil {
		return nil, &TransactionFailure{Op: "sell", Err: err}
	}
	now := e.now()
	result := &SellResult{
		TradeID:       tradeID,
		Symbol:        symbol,
		QuantitySold:  qty,
		ExecutedPrice: conv.Price,
		GrossProceeds: gross,
		Fee:           fee,
		NetProceeds:   net,
		Conversion:    conv,
	}

	err = e.commit(ctx, userID, func(tx *pg.Tx) error {
		p, err := tx.LockPortfolio(portfolio.ID)
		if err != nil {
			return err
		}
		h, err := tx.FindHolding(p.ID, symbol)
		if err != nil {
			return err
		}
		if h == nil {
			return &NoHoldingError{Symbol: symbol}
		}
		if qty.GreaterThan(h.Quantity) {
			return &InsufficientHoldingsError{Symbol: symbol, Held: h.Quantity, Requested: qty}
		}

		cash := p.Cash.Add(net)
		if err := tx.UpdateCash(p.ID, cash); err != nil {
			return err
		}
		remaining := h.Quantity.Sub(qty)
		if remaining.IsZero() {
			if err := tx.DeleteHolding(h.ID); err != nil {
				return err
			}
		} else {
			h.Quantity = remaining
			if err := tx.UpdateHolding(h); err != nil {
				return err
			}
		}

		if err := tx.AppendTransaction(newTransaction(tradeID, userID, symbol, model.SideSell, qty, gross, fee, conv, now)); err != nil {
			return err
		}
		result.RemainingCash = cash
		result.RemainingQuantity = remaining
		return nil
	})
	if err != nil {
		if isBusinessError(err) {
			return nil, err
		}
		hlog.CtxErrorf(ctx, "[TradeEngine] 卖单提交失败已回滚, user=%s, symbol=%s, err=%v", userID, symbol, err)
		return nil, &TransactionFailure{Op: "sell", Err: err}
	}

	hlog.CtxInfof(ctx, "[TradeEngine] 卖单成交, trade_id=%s, user=%s, symbol=%s, qty=%s, price=%s, fee=%s",
		tradeID, userID, symbol, qty, conv.Price, fee)
	e.publisher.Publish(ctx, tradeEvent(tradeID, userID, symbol, model.SideSell, qty, conv, fee, result.RemainingCash, now))
	return result, nil
}

// Reset 清空持仓并恢复初始资金，历史流水保留
func (e *TradeEngine) Reset(ctx context.Context, userID string) (*ResetResult, error) {
	if err := e.requireUser(ctx, userID); err != nil {
		return nil, err
	}
	portfolio, _, err := e.store.GetOrCreatePortfolio(ctx, userID, e.settings.StartingCash)
	if err != nil {
		return nil, err
	}

	err = e.commit(ctx, userID, func(tx *pg.Tx) error {
		if _, err := tx.LockPortfolio(portfolio.ID); err != nil {
			return err
		}
		if err := tx.DeleteHoldings(portfolio.ID); err != nil {
			return err
		}
		return tx.UpdateCash(portfolio.ID, e.settings.StartingCash)
	})
	if err != nil {
		return nil, &TransactionFailure{Op: "reset", Err: err}
	}
	hlog.CtxInfof(ctx, "[TradeEngine] 组合已重置, user=%s", userID)
	return &ResetResult{Cash: e.settings.StartingCash}, nil
}

func tradeEvent(tradeID, userID, symbol string, side model.Side, qty decimal.Decimal, conv market.Conversion, fee, cash decimal.Decimal, at time.Time) model.TradeEvent {
	ev := model.TradeEvent{
		TradeID:   tradeID,
		UserID:    userID,
		Symbol:    symbol,
		Side:      side,
		Quantity:  qty.String(),
		Price:     conv.Price.String(),
		Fee:       fee.String(),
		Cash:      cash.String(),
		Timestamp: at.UnixMilli(),
	}
	if conv.Converted() {
		rate := conv.Rate.Decimal.String()
		ev.FXRate = &rate
	}
	return ev
}
