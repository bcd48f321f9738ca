package handler

import (
	"context"
	"strconv"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"papertrade-hertz/biz/service"
	"papertrade-hertz/middleware"
)

type HoldingView struct {
	Symbol            string   `json:"symbol"`
	AssetClass        string   `json:"assetClass"`
	Quantity          float64  `json:"quantity"`
	AveragePrice      float64  `json:"averagePrice"`
	CurrentPrice      *float64 `json:"currentPrice,omitempty"`
	CurrentValue      *float64 `json:"currentValue,omitempty"`
	ProfitLoss        *float64 `json:"profitLoss,omitempty"`
	ProfitLossPercent *float64 `json:"profitLossPercent,omitempty"`
	Priced            bool     `json:"priced"`
}

type PortfolioResponse struct {
	Cash               float64       `json:"cash"`
	Holdings           []HoldingView `json:"holdings"`
	TotalHoldingsValue float64       `json:"totalHoldingsValue"`
	TotalValue         float64       `json:"totalValue"`
	FXRateUsed         *float64      `json:"fxRateUsed,omitempty"`
}

type TransactionView struct {
	TradeID     string   `json:"tradeId"`
	Symbol      string   `json:"symbol"`
	Side        string   `json:"side"`
	Quantity    float64  `json:"quantity"`
	Price       float64  `json:"price"`
	GrossAmount float64  `json:"grossAmount"`
	Fee         float64  `json:"fee"`
	FXRate      *float64 `json:"fxRate,omitempty"`
	NativePrice *float64 `json:"nativePrice,omitempty"`
	Timestamp   string   `json:"timestamp"`
}

// PortfolioHandler 组合估值、持仓和流水查询
type PortfolioHandler struct {
	valuator *service.Valuator
	ledger   *service.Ledger
}

func NewPortfolioHandler(valuator *service.Valuator, ledger *service.Ledger) *PortfolioHandler {
	return &PortfolioHandler{valuator: valuator, ledger: ledger}
}

func ptr(v float64) *float64 {
	return &v
}

// Portfolio 组合实时估值，取价失败的持仓按成本价计
func (h *PortfolioHandler) Portfolio(ctx context.Context, c *app.RequestContext) {
	s, err := h.valuator.SummaryFor(ctx, middleware.UserID(c))
	if err != nil {
		writeError(c, statusOf(err), err)
		return
	}
	resp := PortfolioResponse{
		Cash:               money(s.Cash),
		Holdings:           make([]HoldingView, 0, len(s.Holdings)),
		TotalHoldingsValue: money(s.TotalHoldingsValue),
		TotalValue:         money(s.TotalValue),
		FXRateUsed:         rate(s.FXRate),
	}
	for _, hv := range s.Holdings {
		resp.Holdings = append(resp.Holdings, HoldingView{
			Symbol:            hv.Symbol,
			AssetClass:        hv.Class.String(),
			Quantity:          quantity(hv.Quantity),
			AveragePrice:      money(hv.AveragePrice),
			CurrentPrice:      ptr(money(hv.CurrentPrice)),
			CurrentValue:      ptr(money(hv.CurrentValue)),
			ProfitLoss:        ptr(money(hv.ProfitLoss)),
			ProfitLossPercent: ptr(money(hv.ProfitLossPercent)),
			Priced:            hv.Priced,
		})
	}
	c.JSON(consts.StatusOK, resp)
}

// Holdings 不取实时价的持仓列表
func (h *PortfolioHandler) Holdings(ctx context.Context, c *app.RequestContext) {
	holdings, err := h.ledger.Holdings(ctx, middleware.UserID(c))
	if err != nil {
		writeError(c, statusOf(err), err)
		return
	}
	views := make([]map[string]interface{}, 0, len(holdings))
	for _, hd := range holdings {
		views = append(views, map[string]interface{}{
			"symbol":       hd.Symbol,
			"quantity":     quantity(hd.Quantity),
			"averagePrice": money(hd.AveragePrice),
		})
	}
	c.JSON(consts.StatusOK, views)
}

// History 成交流水，最新的在前
func (h *PortfolioHandler) History(ctx context.Context, c *app.RequestContext) {
	limit := 0
	if l := c.Query("limit"); l != "" {
		n, err := strconv.Atoi(l)
		if err != nil || n < 0 {
			writeError(c, consts.StatusBadRequest, &service.ValidationError{Field: "limit", Value: l, Message: "must be a non-negative integer"})
			return
		}
		limit = n
	}
	txs, err := h.ledger.History(ctx, middleware.UserID(c), limit)
	if err != nil {
		writeError(c, statusOf(err), err)
		return
	}
	views := make([]TransactionView, 0, len(txs))
	for _, t := range txs {
		v := TransactionView{
			TradeID:     t.TradeID,
			Symbol:      t.Symbol,
			Side:        string(t.Side),
			Quantity:    quantity(t.Quantity),
			Price:       money(t.Price),
			GrossAmount: money(t.GrossAmount),
			Fee:         money(t.Fee),
			FXRate:      rate(t.FXRate),
			Timestamp:   t.Timestamp.UTC().Format(time.RFC3339),
		}
		if t.NativePrice.Valid {
			v.NativePrice = ptr(money(t.NativePrice.Decimal))
		}
		views = append(views, v)
	}
	c.JSON(consts.StatusOK, views)
}
