package service

import (
	"context"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/segmentio/kafka-go"

	"papertrade-hertz/biz/engine"
	"papertrade-hertz/biz/model"
)

// Publisher 成交后的事件通知，失败不影响订单结果
type Publisher interface {
	Publish(ctx context.Context, ev model.TradeEvent)
}

type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, model.TradeEvent) {}

// MultiPublisher 依次通知多个 Publisher
type MultiPublisher []Publisher

func (m MultiPublisher) Publish(ctx context.Context, ev model.TradeEvent) {
	for _, p := range m {
		p.Publish(ctx, ev)
	}
}

// FeedPublisher 推送成交回报到用户的 WebSocket 连接
type FeedPublisher struct {
	unicast engine.Unicaster
}

func NewFeedPublisher(unicast engine.Unicaster) *FeedPublisher {
	return &FeedPublisher{unicast: unicast}
}

func (f *FeedPublisher) Publish(_ context.Context, ev model.TradeEvent) {
	msg, err := sonic.Marshal(map[string]interface{}{
		"type": "execution",
		"data": ev,
	})
	if err != nil {
		hlog.Errorf("[ExecutionFeed] 序列化成交回报失败, trade_id=%s, err=%v", ev.TradeID, err)
		return
	}
	f.unicast(ev.UserID, msg)
}

// MessageWriter kafka.Writer 的写入接口
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

const (
	kafkaBatchSize     = 100
	kafkaFlushInterval = 10 * time.Millisecond
	kafkaQueueSize     = 10000
)

// KafkaPublisher 批量写入成交事件，按用户ID分区
type KafkaPublisher struct {
	writer MessageWriter
	topic  string
	queue  chan model.TradeEvent
	done   chan struct{}
	closed sync.Once
	wg     sync.WaitGroup
}

func NewKafkaPublisher(writer MessageWriter, topic string) *KafkaPublisher {
	p := &KafkaPublisher{
		writer: writer,
		topic:  topic,
		queue:  make(chan model.TradeEvent, kafkaQueueSize),
		done:   make(chan struct{}),
	}
	p.wg.Add(1)
	go p.loop()
	return p
}

func (p *KafkaPublisher) Publish(_ context.Context, ev model.TradeEvent) {
	select {
	case p.queue <- ev:
	default:
		hlog.Warnf("[TradeKafkaBatch] 队列已满, 丢弃成交事件, trade_id=%s", ev.TradeID)
	}
}

// Close 写完剩余事件后退出
func (p *KafkaPublisher) Close() {
	p.closed.Do(func() {
		close(p.done)
	})
	p.wg.Wait()
}

func (p *KafkaPublisher) loop() {
	defer p.wg.Done()
	batch := make([]kafka.Message, 0, kafkaBatchSize)
	ticker := time.NewTicker(kafkaFlushInterval)
	defer ticker.Stop()
	for {
		select {
		case ev := <-p.queue:
			batch = p.appendEvent(batch, ev)
			if len(batch) >= kafkaBatchSize {
				batch = p.flush(batch)
			}
		case <-ticker.C:
			if len(batch) > 0 {
				batch = p.flush(batch)
			}
		case <-p.done:
			for {
				select {
				case ev := <-p.queue:
					batch = p.appendEvent(batch, ev)
				default:
					if len(batch) > 0 {
						p.flush(batch)
					}
					return
				}
			}
		}
	}
}

func (p *KafkaPublisher) appendEvent(batch []kafka.Message, ev model.TradeEvent) []kafka.Message {
	value, err := sonic.Marshal(ev)
	if err != nil {
		hlog.Errorf("[TradeKafkaBatch] 序列化成交事件失败, trade_id=%s, err=%v", ev.TradeID, err)
		return batch
	}
	return append(batch, kafka.Message{Key: []byte(ev.UserID), Value: value})
}

func (p *KafkaPublisher) flush(batch []kafka.Message) []kafka.Message {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := p.writer.WriteMessages(ctx, batch...); err != nil {
		hlog.Errorf("[TradeKafkaBatch] 写入Kafka失败, topic=%s, 消息数量=%d, err=%v", p.topic, len(batch), err)
	} else {
		hlog.Debugf("[TradeKafkaBatch] 写入Kafka成功, topic=%s, 消息数量=%d", p.topic, len(batch))
	}
	return batch[:0]
}
