package router

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/route"

	"papertrade-hertz/biz/handler"
	"papertrade-hertz/middleware"
)

type Handlers struct {
	Trade     *handler.TradeHandler
	Portfolio *handler.PortfolioHandler
	Market    *handler.MarketHandler
	// Feed 为空时不注册 WebSocket 推送
	Feed app.HandlerFunc
	Ping func(ctx context.Context) error
}

// Register 注册全部路由
func Register(r *route.Engine, h Handlers) {
	r.GET("/ping", handler.Ping)
	if h.Ping != nil {
		r.GET("/healthz", handler.Healthz(h.Ping))
	}

	trade := r.Group("/api/trade", middleware.UserIdentity())
	trade.POST("/buy", h.Trade.Buy)
	trade.POST("/sell", h.Trade.Sell)
	trade.POST("/reset", h.Trade.Reset)
	trade.GET("/portfolio", h.Portfolio.Portfolio)
	trade.GET("/holdings", h.Portfolio.Holdings)
	trade.GET("/history", h.Portfolio.History)
	trade.GET("/price/:symbol", h.Market.Price)
	trade.GET("/chart/:symbol", h.Market.Chart)
	trade.GET("/search", h.Market.Search)

	if h.Feed != nil {
		r.GET("/ws/executions", middleware.UserIdentity(), h.Feed)
	}
}
