package handler

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/shopspring/decimal"

	"papertrade-hertz/biz/service"
	"papertrade-hertz/middleware"
)

type OrderRequest struct {
	Symbol   string  `json:"symbol"`
	Quantity float64 `json:"quantity"`
}

type BuyResponse struct {
	TradeID             string   `json:"tradeId"`
	Symbol              string   `json:"symbol"`
	Quantity            float64  `json:"quantity"`
	ExecutedPrice       float64  `json:"executedPrice"`
	Fee                 float64  `json:"fee"`
	TotalCost           float64  `json:"totalCost"`
	RemainingCash       float64  `json:"remainingCash"`
	NewQuantity         float64  `json:"newQuantity"`
	NewAveragePrice     float64  `json:"newAveragePrice"`
	WasForeignConverted bool     `json:"wasForeignConverted"`
	FXRateUsed          *float64 `json:"fxRateUsed,omitempty"`
}

type SellResponse struct {
	TradeID             string   `json:"tradeId"`
	Symbol              string   `json:"symbol"`
	QuantitySold        float64  `json:"quantitySold"`
	ExecutedPrice       float64  `json:"executedPrice"`
	GrossProceeds       float64  `json:"grossProceeds"`
	Fee                 float64  `json:"fee"`
	NetProceeds         float64  `json:"netProceeds"`
	RemainingCash       float64  `json:"remainingCash"`
	RemainingQuantity   float64  `json:"remainingQuantity"`
	WasForeignConverted bool     `json:"wasForeignConverted"`
	FXRateUsed          *float64 `json:"fxRateUsed,omitempty"`
}

// TradeHandler 下单与重置接口
type TradeHandler struct {
	engine *service.TradeEngine
}

func NewTradeHandler(engine *service.TradeEngine) *TradeHandler {
	return &TradeHandler{engine: engine}
}

func bindOrder(c *app.RequestContext) (service.OrderRequest, error) {
	var req OrderRequest
	if err := c.BindAndValidate(&req); err != nil {
		return service.OrderRequest{}, &service.ValidationError{Field: "body", Message: err.Error()}
	}
	return service.OrderRequest{Symbol: req.Symbol, Quantity: decimal.NewFromFloat(req.Quantity)}, nil
}

// Buy 市价买入
func (h *TradeHandler) Buy(ctx context.Context, c *app.RequestContext) {
	req, err := bindOrder(c)
	if err != nil {
		writeError(c, consts.StatusBadRequest, err)
		return
	}
	res, err := h.engine.Buy(ctx, middleware.UserID(c), req)
	if err != nil {
		writeError(c, statusOf(err), err)
		return
	}
	c.JSON(consts.StatusOK, BuyResponse{
		TradeID:             res.TradeID,
		Symbol:              res.Symbol,
		Quantity:            quantity(res.Quantity),
		ExecutedPrice:       money(res.ExecutedPrice),
		Fee:                 money(res.Fee),
		TotalCost:           money(res.TotalCost),
		RemainingCash:       money(res.RemainingCash),
		NewQuantity:         quantity(res.NewQuantity),
		NewAveragePrice:     money(res.NewAveragePrice),
		WasForeignConverted: res.Conversion.Converted(),
		FXRateUsed:          rate(res.Conversion.Rate),
	})
}

// Sell 市价卖出
func (h *TradeHandler) Sell(ctx context.Context, c *app.RequestContext) {
	req, err := bindOrder(c)
	if err != nil {
		writeError(c, consts.StatusBadRequest, err)
		return
	}
	res, err := h.engine.Sell(ctx, middleware.UserID(c), req)
	if err != nil {
		writeError(c, statusOf(err), err)
		return
	}
	c.JSON(consts.StatusOK, SellResponse{
		TradeID:             res.TradeID,
		Symbol:              res.Symbol,
		QuantitySold:        quantity(res.QuantitySold),
		ExecutedPrice:       money(res.ExecutedPrice),
		GrossProceeds:       money(res.GrossProceeds),
		Fee:                 money(res.Fee),
		NetProceeds:         money(res.NetProceeds),
		RemainingCash:       money(res.RemainingCash),
		RemainingQuantity:   quantity(res.RemainingQuantity),
		WasForeignConverted: res.Conversion.Converted(),
		FXRateUsed:          rate(res.Conversion.Rate),
	})
}

// Reset 清空持仓并恢复初始资金
func (h *TradeHandler) Reset(ctx context.Context, c *app.RequestContext) {
	res, err := h.engine.Reset(ctx, middleware.UserID(c))
	if err != nil {
		writeError(c, statusOf(err), err)
		return
	}
	c.JSON(consts.StatusOK, map[string]interface{}{
		"message": "portfolio reset",
		"cash":    money(res.Cash),
	})
}
