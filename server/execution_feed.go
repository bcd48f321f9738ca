package server

import (
	"context"
	"hash/fnv"
	"sync"

	"github.com/bytedance/sonic"
	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/hertz-contrib/websocket"
	"github.com/panjf2000/ants/v2"

	"papertrade-hertz/middleware"
)

const shardNum = 32

var upgrader = websocket.HertzUpgrader{
	CheckOrigin: func(ctx *app.RequestContext) bool {
		return true // 身份由 UserIdentity 校验
	},
}

// frameWriter 便于测试替换 *websocket.Conn
type frameWriter interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

type feedConn struct {
	mu sync.Mutex
	ws frameWriter
}

func (fc *feedConn) write(msg []byte) error {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return fc.ws.WriteMessage(websocket.TextMessage, msg)
}

type userShard struct {
	mu    sync.RWMutex
	conns map[string]map[*feedConn]struct{}
}

// ExecutionFeed 按用户推送成交回报，同一用户可有多个连接
type ExecutionFeed struct {
	shards [shardNum]*userShard
	pool   *ants.Pool
}

func NewExecutionFeed(pool *ants.Pool) *ExecutionFeed {
	f := &ExecutionFeed{pool: pool}
	for i := 0; i < shardNum; i++ {
		f.shards[i] = &userShard{conns: make(map[string]map[*feedConn]struct{})}
	}
	return f
}

func fnv32(key string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return h.Sum32()
}

func (f *ExecutionFeed) shard(userID string) *userShard {
	return f.shards[fnv32(userID)%shardNum]
}

func (f *ExecutionFeed) register(userID string, ws frameWriter) *feedConn {
	fc := &feedConn{ws: ws}
	s := f.shard(userID)
	s.mu.Lock()
	if s.conns[userID] == nil {
		s.conns[userID] = make(map[*feedConn]struct{})
	}
	s.conns[userID][fc] = struct{}{}
	s.mu.Unlock()
	return fc
}

func (f *ExecutionFeed) unregister(userID string, fc *feedConn) {
	s := f.shard(userID)
	s.mu.Lock()
	if conns, ok := s.conns[userID]; ok {
		delete(conns, fc)
		if len(conns) == 0 {
			delete(s.conns, userID)
		}
	}
	s.mu.Unlock()
}

// Connections 当前用户的连接数
func (f *ExecutionFeed) Connections(userID string) int {
	s := f.shard(userID)
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.conns[userID])
}

// Unicast 单播消息到指定 userID 的所有连接，写失败的连接会被关闭并移除
func (f *ExecutionFeed) Unicast(userID string, msg []byte) {
	s := f.shard(userID)
	s.mu.RLock()
	targets := make([]*feedConn, 0, len(s.conns[userID]))
	for fc := range s.conns[userID] {
		targets = append(targets, fc)
	}
	s.mu.RUnlock()

	for _, fc := range targets {
		fc := fc
		send := func() {
			if err := fc.write(msg); err != nil {
				hlog.Warnf("[ExecutionFeed] 推送失败, 移除连接, user=%s, err=%v", userID, err)
				f.unregister(userID, fc)
				_ = fc.ws.Close()
			}
		}
		if f.pool == nil {
			send()
			continue
		}
		if err := f.pool.Submit(send); err != nil {
			hlog.Warnf("[ExecutionFeed] 推送任务提交失败, user=%s, err=%v", userID, err)
		}
	}
}

type clientMessage struct {
	Action string `json:"action"`
}

// Handler GET /ws/executions，需先经过 UserIdentity
func (f *ExecutionFeed) Handler() app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		userID := middleware.UserID(c)
		err := upgrader.Upgrade(c, func(conn *websocket.Conn) {
			fc := f.register(userID, conn)
			hlog.Infof("[ExecutionFeed] 连接建立, user=%s, remote=%v", userID, conn.RemoteAddr())
			defer func() {
				f.unregister(userID, fc)
				_ = conn.Close()
				hlog.Infof("[ExecutionFeed] 连接关闭, user=%s", userID)
			}()

			_ = fc.write([]byte(`{"type":"subscribed","channel":"executions"}`))
			for {
				_, msg, err := conn.ReadMessage()
				if err != nil {
					return
				}
				var m clientMessage
				if err := sonic.Unmarshal(msg, &m); err != nil {
					continue
				}
				if m.Action == "ping" {
					_ = fc.write([]byte(`{"type":"pong"}`))
				}
			}
		})
		if err != nil {
			hlog.Errorf("[ExecutionFeed] upgrade error: %v", err)
		}
	}
}
