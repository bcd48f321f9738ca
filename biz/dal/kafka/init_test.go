package kafka

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/cloudwego/hertz/pkg/common/test/assert"
	"github.com/segmentio/kafka-go"
)

func TestWriterForBuildsOncePerTopic(t *testing.T) {
	var built int32
	orig := newWriter
	newWriter = func(brokers []string, topic string) *kafka.Writer {
		atomic.AddInt32(&built, 1)
		return orig(brokers, topic)
	}
	t.Cleanup(func() {
		newWriter = orig
		CloseAllWriters()
	})

	brokers := []string{"127.0.0.1:9092"}
	got := make([]*kafka.Writer, 32)
	var wg sync.WaitGroup
	for i := range got {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got[i] = writerFor(brokers, "trades")
		}(i)
	}
	wg.Wait()

	assert.DeepEqual(t, int32(1), atomic.LoadInt32(&built))
	for _, w := range got {
		assert.Assert(t, w == got[0])
	}
	assert.DeepEqual(t, "trades", got[0].Topic)

	other := writerFor(brokers, "other")
	assert.Assert(t, other != got[0])
	assert.DeepEqual(t, int32(2), atomic.LoadInt32(&built))
}
