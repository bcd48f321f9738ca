package middleware

import (
	"context"
	"strings"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
)

const (
	UserIDHeader = "X-User-ID"
	UserIDKey    = "user_id"
)

// UserIdentity 读取网关鉴权后透传的用户ID，缺失时返回 401
func UserIdentity() app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		userID := strings.TrimSpace(string(c.GetHeader(UserIDHeader)))
		if userID == "" {
			c.AbortWithStatusJSON(consts.StatusUnauthorized, map[string]interface{}{
				"error": "missing " + UserIDHeader + " header",
				"kind":  "unauthenticated",
			})
			return
		}
		c.Set(UserIDKey, userID)
		c.Next(ctx)
	}
}

// UserID 取出 UserIdentity 写入的用户ID
func UserID(c *app.RequestContext) string {
	return c.GetString(UserIDKey)
}
