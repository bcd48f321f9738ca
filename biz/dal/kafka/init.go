package kafka

import (
	"context"
	"fmt"
	"sync"

	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/segmentio/kafka-go"

	"papertrade-hertz/conf"
)

var (
	writers sync.Map // map[string]*writerEntry
)

// writerEntry 保证每个 topic 只创建一个 writer
type writerEntry struct {
	once   sync.Once
	writer *kafka.Writer
}

var newWriter = func(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Topic:    topic,
		Balancer: &kafka.Hash{},
	}
}

// Enabled 是否配置了 Kafka brokers
func Enabled() bool {
	return len(conf.GetConf().Kafka.Brokers) > 0
}

// GetWriter 获取指定 topic 的 kafka.Writer，自动复用
func GetWriter(topic string) *kafka.Writer {
	brokers := conf.GetConf().Kafka.Brokers
	if len(brokers) == 0 {
		panic("Kafka brokers not configured")
	}
	return writerFor(brokers, topic)
}

func writerFor(brokers []string, topic string) *kafka.Writer {
	val, _ := writers.LoadOrStore(topic, &writerEntry{})
	entry := val.(*writerEntry)
	entry.once.Do(func() {
		entry.writer = newWriter(brokers, topic)
	})
	return entry.writer
}

// TestKafkaConnection 测试 Kafka 连接
func TestKafkaConnection() error {
	brokers := conf.GetConf().Kafka.Brokers
	conn, err := kafka.DialContext(context.Background(), "tcp", brokers[0])
	if err != nil {
		return fmt.Errorf("failed to connect to kafka: %w", err)
	}
	return conn.Close()
}

// CloseAllWriters 关闭所有 writer
func CloseAllWriters() {
	writers.Range(func(key, value interface{}) bool {
		if e, ok := value.(*writerEntry); ok && e.writer != nil {
			_ = e.writer.Close()
		}
		writers.Delete(key)
		return true
	})
}

// Init 初始化 Kafka，未配置 brokers 时跳过
func Init() {
	if !Enabled() {
		hlog.Infof("[Kafka] 未配置 brokers, 成交事件不发布")
		return
	}
	if err := TestKafkaConnection(); err != nil {
		panic(err)
	}
	GetWriter(conf.GetConf().Kafka.Topic)
}
