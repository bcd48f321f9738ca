package redis

import (
	"context"

	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/redis/go-redis/v9"

	"papertrade-hertz/conf"
)

// Client 未配置地址时为 nil
var Client *redis.Client

func Init() {
	redisConf := conf.GetConf().Redis
	if redisConf.Address == "" {
		hlog.Infof("[Redis] 未配置地址, 汇率仅使用进程内缓存")
		return
	}
	Client = redis.NewClient(&redis.Options{
		Addr:     redisConf.Address,
		Username: redisConf.Username,
		Password: redisConf.Password,
		DB:       redisConf.DB,
	})
	if err := Client.Ping(context.Background()).Err(); err != nil {
		panic(err)
	}
}

func Close() {
	if Client != nil {
		_ = Client.Close()
	}
}
