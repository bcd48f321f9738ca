package engine

import (
	"github.com/panjf2000/ants/v2"
)

// LookupPool 行情查询协程池，估值时每个持仓一个任务
var LookupPool *ants.Pool

// FeedPool WebSocket 推送协程池
var FeedPool *ants.Pool

func InitLookupPool(size int) error {
	pool, err := ants.NewPool(size)
	if err != nil {
		return err
	}
	LookupPool = pool
	return nil
}

func InitFeedPool(size int) error {
	pool, err := ants.NewPool(size, ants.WithNonblocking(true))
	if err != nil {
		return err
	}
	FeedPool = pool
	return nil
}

// Release 释放所有协程池
func Release() {
	if LookupPool != nil {
		LookupPool.Release()
	}
	if FeedPool != nil {
		FeedPool.Release()
	}
}

// Unicaster 单播回调类型
type Unicaster func(userID string, msg []byte)
