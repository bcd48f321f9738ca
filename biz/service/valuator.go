package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/panjf2000/ants/v2"
	"github.com/shopspring/decimal"

	"papertrade-hertz/biz/dal/pg"
	"papertrade-hertz/biz/market"
	"papertrade-hertz/biz/model"
)

var hundred = decimal.NewFromInt(100)

type HoldingValuation struct {
	Symbol            string
	Class             model.AssetClass
	Quantity          decimal.Decimal
	AveragePrice      decimal.Decimal
	CurrentPrice      decimal.Decimal
	CurrentValue      decimal.Decimal
	ProfitLoss        decimal.Decimal
	ProfitLossPercent decimal.Decimal
	// Priced 为 false 时按成本价估值，盈亏为 0
	Priced     bool
	Conversion market.Conversion
}

type Summary struct {
	UserID             string
	Cash               decimal.Decimal
	Holdings           []HoldingValuation
	TotalHoldingsValue decimal.Decimal
	TotalValue         decimal.Decimal
	FXRate             decimal.NullDecimal
}

type quoteResult struct {
	price decimal.Decimal
	err   error
}

// Valuator 并发查询持仓行情并汇总组合市值，只读
type Valuator struct {
	store        *pg.Store
	quotes       QuoteSource
	fx           CurrencyNormalizer
	pool         *ants.Pool
	timeout      time.Duration
	startingCash decimal.Decimal
}

func NewValuator(store *pg.Store, quotes QuoteSource, fx CurrencyNormalizer, pool *ants.Pool, timeout time.Duration, startingCash decimal.Decimal) *Valuator {
	return &Valuator{
		store:        store,
		quotes:       quotes,
		fx:           fx,
		pool:         pool,
		timeout:      timeout,
		startingCash: startingCash,
	}
}

// SummaryFor 汇总用户组合；尚未创建组合时返回初始资金的空组合，不落库
func (v *Valuator) SummaryFor(ctx context.Context, userID string) (*Summary, error) {
	ok, err := v.store.UserExists(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrUserNotFound
	}
	p, err := v.store.FindPortfolio(ctx, userID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return &Summary{
			UserID:             userID,
			Cash:               v.startingCash,
			Holdings:           []HoldingValuation{},
			TotalHoldingsValue: decimal.Zero,
			TotalValue:         v.startingCash,
		}, nil
	}
	return v.Summarize(ctx, p)
}

// Summarize 对组合内每个持仓并发取价，全部返回后统一换汇和汇总
func (v *Valuator) Summarize(ctx context.Context, p *model.Portfolio) (*Summary, error) {
	holdings, err := v.store.ListHoldings(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	quotes := v.fetchQuotes(ctx, holdings)

	var rate decimal.NullDecimal
	for i, h := range holdings {
		if quotes[i].err == nil && model.Classify(h.Symbol).NeedsConversion() {
			rate = decimal.NewNullDecimal(v.fx.RateForForeign(ctx))
			break
		}
	}

	summary := &Summary{
		UserID:             p.UserID,
		Cash:               p.Cash,
		Holdings:           make([]HoldingValuation, 0, len(holdings)),
		TotalHoldingsValue: decimal.Zero,
		FXRate:             rate,
	}
	for i, h := range holdings {
		hv := valueHolding(h, quotes[i], rate.Decimal)
		summary.TotalHoldingsValue = summary.TotalHoldingsValue.Add(hv.CurrentValue)
		summary.Holdings = append(summary.Holdings, hv)
	}
	summary.TotalValue = summary.Cash.Add(summary.TotalHoldingsValue)
	return summary, nil
}

func valueHolding(h model.Holding, q quoteResult, rate decimal.Decimal) HoldingValuation {
	class := model.Classify(h.Symbol)
	hv := HoldingValuation{
		Symbol:       h.Symbol,
		Class:        class,
		Quantity:     h.Quantity,
		AveragePrice: h.AveragePrice,
	}
	if q.err != nil {
		hv.CurrentPrice = h.AveragePrice
		hv.CurrentValue = h.AveragePrice.Mul(h.Quantity)
		hv.ProfitLoss = decimal.Zero
		hv.ProfitLossPercent = decimal.Zero
		return hv
	}
	conv := market.Convert(class, q.price, rate)
	hv.Priced = true
	hv.Conversion = conv
	hv.CurrentPrice = conv.Price
	hv.CurrentValue = conv.Price.Mul(h.Quantity)
	hv.ProfitLoss = hv.CurrentValue.Sub(h.AveragePrice.Mul(h.Quantity))
	if h.AveragePrice.IsZero() {
		hv.ProfitLossPercent = decimal.Zero
	} else {
		hv.ProfitLossPercent = conv.Price.Sub(h.AveragePrice).Div(h.AveragePrice).Mul(hundred)
	}
	return hv
}

func (v *Valuator) fetchQuotes(ctx context.Context, holdings []model.Holding) []quoteResult {
	results := make([]quoteResult, len(holdings))
	var wg sync.WaitGroup
	for i := range holdings {
		i, symbol := i, holdings[i].Symbol
		wg.Add(1)
		task := func() {
			defer wg.Done()
			results[i] = v.lookup(ctx, symbol)
		}
		if err := v.pool.Submit(task); err != nil {
			results[i] = quoteResult{err: err}
			wg.Done()
		}
	}
	wg.Wait()

	for i, r := range results {
		if r.err != nil {
			hlog.CtxWarnf(ctx, "[Valuator] 取价失败, 按成本价估值, symbol=%s, err=%v", holdings[i].Symbol, r.err)
		}
	}
	return results
}

func (v *Valuator) lookup(ctx context.Context, symbol string) quoteResult {
	// 整体估值已取消时不再发起请求
	if err := ctx.Err(); err != nil {
		return quoteResult{err: err}
	}
	if v.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, v.timeout)
		defer cancel()
	}
	price, err := v.quotes.GetPrice(ctx, symbol)
	if err != nil {
		return quoteResult{err: err}
	}
	if !price.IsPositive() {
		return quoteResult{err: fmt.Errorf("%w: %s", errNonPositiveQuote, price)}
	}
	return quoteResult{price: price}
}

var errNonPositiveQuote = errors.New("non-positive quote")
