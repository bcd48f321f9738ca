package service

import (
	"hash/fnv"
	"sync"
)

const lockShardNum = 32

// portfolioLocks 按用户分片的互斥锁，同一组合的订单串行执行
type portfolioLocks struct {
	shards [lockShardNum]sync.Mutex
}

func fnv32(key string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return h.Sum32()
}

func (l *portfolioLocks) lock(userID string) func() {
	m := &l.shards[fnv32(userID)%lockShardNum]
	m.Lock()
	return m.Unlock
}
