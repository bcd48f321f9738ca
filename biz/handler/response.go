package handler

import (
	"errors"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/shopspring/decimal"

	"papertrade-hertz/biz/service"
)

// statusOf 业务拒绝 400，资源不存在 404，提交失败 500
func statusOf(err error) int {
	switch {
	case errors.Is(err, service.ErrUserNotFound), errors.Is(err, service.ErrPortfolioNotFound):
		return consts.StatusNotFound
	case errors.Is(err, service.ErrTransactionFailed):
		return consts.StatusInternalServerError
	case errors.Is(err, service.ErrValidation),
		errors.Is(err, service.ErrMarketClosed),
		errors.Is(err, service.ErrPriceUnavailable),
		errors.Is(err, service.ErrInvalidPrice),
		errors.Is(err, service.ErrInsufficientFunds),
		errors.Is(err, service.ErrInsufficientHoldings),
		errors.Is(err, service.ErrNoHolding):
		return consts.StatusBadRequest
	default:
		return consts.StatusInternalServerError
	}
}

func writeError(c *app.RequestContext, status int, err error) {
	if status >= consts.StatusInternalServerError {
		hlog.Errorf("[API] %s %s failed: %v", c.Method(), c.Path(), err)
	}
	c.JSON(status, map[string]interface{}{"error": err.Error(), "kind": service.Kind(err)})
}

func money(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}

func quantity(d decimal.Decimal) float64 {
	return d.Round(8).InexactFloat64()
}

func rate(d decimal.NullDecimal) *float64 {
	if !d.Valid {
		return nil
	}
	v := d.Decimal.Round(4).InexactFloat64()
	return &v
}
