package handler

import (
	"context"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
)

// Ping 存活检查，供 consul 使用
func Ping(ctx context.Context, c *app.RequestContext) {
	c.JSON(consts.StatusOK, map[string]interface{}{"message": "pong"})
}

// Healthz 就绪检查，数据库不可用时返回 503
func Healthz(ping func(ctx context.Context) error) app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := ping(pingCtx); err != nil {
			c.JSON(consts.StatusServiceUnavailable, map[string]interface{}{"status": "unavailable", "error": err.Error()})
			return
		}
		c.JSON(consts.StatusOK, map[string]interface{}{"status": "ok"})
	}
}
