package service

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/cloudwego/hertz/pkg/common/test/assert"
	"github.com/segmentio/kafka-go"

	"papertrade-hertz/biz/model"
)

type fakeWriter struct {
	mu   sync.Mutex
	msgs []kafka.Message
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	w.msgs = append(w.msgs, msgs...)
	w.mu.Unlock()
	return nil
}

func TestKafkaPublisherFlushesOnClose(t *testing.T) {
	w := &fakeWriter{}
	p := NewKafkaPublisher(w, "papertrade.trade.executed")
	for _, id := range []string{"T1", "T2", "T3"} {
		p.Publish(context.Background(), model.TradeEvent{TradeID: id, UserID: "u1", Symbol: "AAPL", Side: model.SideBuy})
	}
	p.Close()
	p.Close()

	assert.DeepEqual(t, 3, len(w.msgs))
	assert.DeepEqual(t, "u1", string(w.msgs[0].Key))
	assert.Assert(t, strings.Contains(string(w.msgs[2].Value), `"tradeId":"T3"`), string(w.msgs[2].Value))
}

func TestFeedPublisherUnicastsToUser(t *testing.T) {
	var gotUser, gotMsg string
	f := NewFeedPublisher(func(userID string, msg []byte) {
		gotUser, gotMsg = userID, string(msg)
	})
	MultiPublisher{NopPublisher{}, f}.Publish(context.Background(), model.TradeEvent{TradeID: "T9", UserID: "u2"})

	assert.DeepEqual(t, "u2", gotUser)
	assert.Assert(t, strings.Contains(gotMsg, `"type":"execution"`), gotMsg)
	assert.Assert(t, strings.Contains(gotMsg, `"tradeId":"T9"`), gotMsg)
}

func TestErrorKinds(t *testing.T) {
	assert.DeepEqual(t, "insufficient_funds", Kind(&InsufficientFundsError{}))
	assert.DeepEqual(t, "no_holding", Kind(&NoHoldingError{Symbol: "X"}))
	assert.DeepEqual(t, "market_closed", Kind(&MarketClosedError{Symbol: "X"}))
	assert.DeepEqual(t, "user_not_found", Kind(ErrUserNotFound))
	assert.DeepEqual(t, "internal", Kind(context.DeadlineExceeded))
}
