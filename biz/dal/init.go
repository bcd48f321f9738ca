package dal

import (
	"papertrade-hertz/biz/dal/kafka"
	"papertrade-hertz/biz/dal/pg"
	"papertrade-hertz/biz/dal/redis"
)

func Init() {
	pg.Init()
	redis.Init()
	kafka.Init()
}

// Close 按初始化的逆序释放连接
func Close() {
	kafka.CloseAllWriters()
	redis.Close()
	pg.Close()
}
