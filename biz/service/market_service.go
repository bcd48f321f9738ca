package service

import (
	"context"
	"strings"

	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/shopspring/decimal"
	"gopkg.in/validator.v2"

	"papertrade-hertz/biz/market"
	"papertrade-hertz/biz/model"
)

// HistorySource 区间历史价格
type HistorySource interface {
	History(ctx context.Context, symbol string, period market.Period) ([]market.PricePoint, error)
}

type PriceQuote struct {
	Symbol     string
	Conversion market.Conversion
}

type ChartPoint struct {
	Timestamp int64
	Price     decimal.Decimal
}

type Chart struct {
	Symbol             string
	Period             market.Period
	Points             []ChartPoint
	PriceChange        decimal.Decimal
	PriceChangePercent decimal.Decimal
	CurrentPrice       decimal.Decimal
	PreviousClose      decimal.Decimal
	FXRate             decimal.NullDecimal
}

// MaxSearchResults 搜索结果上限
const MaxSearchResults = 10

type SearchResult struct {
	Name     string
	Symbol   string
	Exchange string
}

// MarketService 行情查询，价格统一换算为本币
type MarketService struct {
	quotes  QuoteSource
	history HistorySource
	fx      CurrencyNormalizer
	catalog *market.Catalog
}

func NewMarketService(quotes QuoteSource, history HistorySource, fx CurrencyNormalizer) *MarketService {
	return &MarketService{quotes: quotes, history: history, fx: fx, catalog: market.DefaultCatalog()}
}

func normalizeSymbol(symbol string) (string, error) {
	in := struct {
		Symbol string `validate:"nonzero,max=24,regexp=^[A-Z0-9.=^&-]*$"`
	}{Symbol: model.NormalizeSymbol(symbol)}
	if err := validator.Validate(in); err != nil {
		return "", &ValidationError{Field: "symbol", Value: in.Symbol, Message: err.Error()}
	}
	return in.Symbol, nil
}

// Price 当前价格，非正价格视为不可用
func (m *MarketService) Price(ctx context.Context, symbol string) (*PriceQuote, error) {
	symbol, err := normalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}
	native, err := m.quotes.GetPrice(ctx, symbol)
	if err != nil {
		return nil, &PriceUnavailableError{Symbol: symbol, Err: err}
	}
	if !native.IsPositive() {
		return nil, &PriceUnavailableError{Symbol: symbol, Err: &InvalidPriceError{Symbol: symbol, Price: native}}
	}
	return &PriceQuote{Symbol: symbol, Conversion: m.fx.ToBase(ctx, symbol, native)}, nil
}

// Chart 区间价格走势，涨跌以首尾两点计算
func (m *MarketService) Chart(ctx context.Context, symbol string, period market.Period) (*Chart, error) {
	symbol, err := normalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}
	points, err := m.history.History(ctx, symbol, period)
	if err != nil {
		return nil, &PriceUnavailableError{Symbol: symbol, Err: err}
	}
	if len(points) == 0 {
		return nil, &PriceUnavailableError{Symbol: symbol, Err: market.ErrPriceUnavailable}
	}

	class := model.Classify(symbol)
	rate := decimal.Zero
	chart := &Chart{Symbol: symbol, Period: period, Points: make([]ChartPoint, 0, len(points))}
	if class.NeedsConversion() {
		rate = m.fx.RateForForeign(ctx)
		chart.FXRate = decimal.NewNullDecimal(rate)
	}
	for _, p := range points {
		conv := market.Convert(class, p.Price, rate)
		chart.Points = append(chart.Points, ChartPoint{Timestamp: p.Timestamp.UnixMilli(), Price: conv.Price})
	}

	first := chart.Points[0].Price
	last := chart.Points[len(chart.Points)-1].Price
	chart.CurrentPrice = last
	chart.PreviousClose = first
	chart.PriceChange = last.Sub(first)
	if first.IsPositive() {
		chart.PriceChangePercent = chart.PriceChange.Div(first).Mul(hundred)
	}
	return chart, nil
}

// Search 按名称或代码搜索标的。名录无匹配时按 <Q>.NS、<Q> 的顺序向行情源试探
func (m *MarketService) Search(ctx context.Context, query string) ([]SearchResult, error) {
	in := struct {
		Query string `validate:"nonzero,max=64"`
	}{Query: strings.TrimSpace(query)}
	if err := validator.Validate(in); err != nil {
		return nil, &ValidationError{Field: "query", Value: query, Message: err.Error()}
	}

	results := make([]SearchResult, 0, MaxSearchResults)
	for _, l := range m.catalog.Match(in.Query, MaxSearchResults) {
		results = append(results, SearchResult{Name: l.Name, Symbol: l.Symbol, Exchange: market.Exchange(l.Symbol)})
	}
	if len(results) > 0 {
		return results, nil
	}

	symbol, err := normalizeSymbol(in.Query)
	if err != nil {
		return results, nil
	}
	for _, candidate := range probeCandidates(symbol) {
		price, err := m.quotes.GetPrice(ctx, candidate)
		if err != nil || !price.IsPositive() {
			hlog.CtxDebugf(ctx, "[Search] 试探 %s 无报价: %v", candidate, err)
			continue
		}
		return append(results, SearchResult{Name: symbol, Symbol: candidate, Exchange: market.Exchange(candidate)}), nil
	}
	return results, nil
}

func probeCandidates(symbol string) []string {
	if model.Classify(symbol) != model.ForeignEquity {
		return []string{symbol}
	}
	return []string{symbol + ".NS", symbol}
}
