package handler

import (
	"context"
	"errors"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"papertrade-hertz/biz/market"
	"papertrade-hertz/biz/service"
)

type PriceResponse struct {
	Symbol              string   `json:"symbol"`
	Price               float64  `json:"price"`
	Currency            string   `json:"currency"`
	OriginalPrice       *float64 `json:"originalPrice,omitempty"`
	OriginalCurrency    string   `json:"originalCurrency,omitempty"`
	WasForeignConverted bool     `json:"wasForeignConverted"`
	FXRateUsed          *float64 `json:"fxRateUsed,omitempty"`
}

type ChartPointView struct {
	Timestamp int64   `json:"timestamp"`
	Price     float64 `json:"price"`
}

type ChartResponse struct {
	Symbol              string           `json:"symbol"`
	Period              string           `json:"period"`
	Data                []ChartPointView `json:"data"`
	PriceChange         float64          `json:"priceChange"`
	PriceChangePercent  float64          `json:"priceChangePercent"`
	CurrentPrice        float64          `json:"currentPrice"`
	PreviousClose       float64          `json:"previousClose"`
	WasForeignConverted bool             `json:"wasForeignConverted"`
	FXRateUsed          *float64         `json:"fxRateUsed,omitempty"`
}

// MarketHandler 行情查询接口
type MarketHandler struct {
	market       *service.MarketService
	baseCurrency string
}

func NewMarketHandler(m *service.MarketService) *MarketHandler {
	return &MarketHandler{market: m, baseCurrency: "INR"}
}

// Price 当前价格，取不到时 404
func (h *MarketHandler) Price(ctx context.Context, c *app.RequestContext) {
	q, err := h.market.Price(ctx, c.Param("symbol"))
	if err != nil {
		status := statusOf(err)
		if errors.Is(err, service.ErrPriceUnavailable) {
			status = consts.StatusNotFound
		}
		writeError(c, status, err)
		return
	}
	resp := PriceResponse{
		Symbol:              q.Symbol,
		Price:               money(q.Conversion.Price),
		Currency:            h.baseCurrency,
		WasForeignConverted: q.Conversion.Converted(),
		FXRateUsed:          rate(q.Conversion.Rate),
	}
	if q.Conversion.Converted() {
		resp.OriginalPrice = ptr(money(q.Conversion.Native))
		resp.OriginalCurrency = q.Conversion.Class.Currency()
	}
	c.JSON(consts.StatusOK, resp)
}

// Chart 区间价格走势 period=1d|1w|1m
func (h *MarketHandler) Chart(ctx context.Context, c *app.RequestContext) {
	period, ok := market.ParsePeriod(c.Query("period"))
	if !ok {
		writeError(c, consts.StatusBadRequest, &service.ValidationError{Field: "period", Value: c.Query("period"), Message: "must be one of 1d, 1w, 1m"})
		return
	}
	chart, err := h.market.Chart(ctx, c.Param("symbol"), period)
	if err != nil {
		status := statusOf(err)
		if errors.Is(err, service.ErrPriceUnavailable) {
			status = consts.StatusNotFound
		}
		writeError(c, status, err)
		return
	}
	resp := ChartResponse{
		Symbol:              chart.Symbol,
		Period:              string(chart.Period),
		Data:                make([]ChartPointView, 0, len(chart.Points)),
		PriceChange:         money(chart.PriceChange),
		PriceChangePercent:  money(chart.PriceChangePercent),
		CurrentPrice:        money(chart.CurrentPrice),
		PreviousClose:       money(chart.PreviousClose),
		WasForeignConverted: chart.FXRate.Valid,
		FXRateUsed:          rate(chart.FXRate),
	}
	for _, p := range chart.Points {
		resp.Data = append(resp.Data, ChartPointView{Timestamp: p.Timestamp, Price: money(p.Price)})
	}
	c.JSON(consts.StatusOK, resp)
}

type SearchResultView struct {
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Exchange string `json:"exchange"`
}

// Search 按名称或代码搜索标的，query 必填
func (h *MarketHandler) Search(ctx context.Context, c *app.RequestContext) {
	results, err := h.market.Search(ctx, c.Query("query"))
	if err != nil {
		writeError(c, statusOf(err), err)
		return
	}
	views := make([]SearchResultView, 0, len(results))
	for _, r := range results {
		views = append(views, SearchResultView{Name: r.Name, Symbol: r.Symbol, Exchange: r.Exchange})
	}
	c.JSON(consts.StatusOK, views)
}
