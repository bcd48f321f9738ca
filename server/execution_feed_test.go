package server

import (
	"errors"
	"sync"
	"testing"

	"github.com/cloudwego/hertz/pkg/common/test/assert"
)

type fakeFrameWriter struct {
	mu     sync.Mutex
	frames []string
	err    error
	closed bool
}

func (w *fakeFrameWriter) WriteMessage(_ int, data []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.frames = append(w.frames, string(data))
	return nil
}

func (w *fakeFrameWriter) Close() error {
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()
	return nil
}

func TestUnicastReachesOnlyTargetUser(t *testing.T) {
	f := NewExecutionFeed(nil)
	a1, a2, b := &fakeFrameWriter{}, &fakeFrameWriter{}, &fakeFrameWriter{}
	f.register("alice", a1)
	f.register("alice", a2)
	f.register("bob", b)
	assert.DeepEqual(t, 2, f.Connections("alice"))

	f.Unicast("alice", []byte(`{"type":"execution"}`))
	assert.DeepEqual(t, 1, len(a1.frames))
	assert.DeepEqual(t, 1, len(a2.frames))
	assert.DeepEqual(t, 0, len(b.frames))

	f.Unicast("nobody", []byte(`{}`))
}

func TestUnicastDropsBrokenConnections(t *testing.T) {
	f := NewExecutionFeed(nil)
	broken := &fakeFrameWriter{err: errors.New("broken pipe")}
	f.register("carol", broken)

	f.Unicast("carol", []byte(`{}`))
	assert.Assert(t, broken.closed)
	assert.DeepEqual(t, 0, f.Connections("carol"))
}

func TestUnregister(t *testing.T) {
	f := NewExecutionFeed(nil)
	fc := f.register("dave", &fakeFrameWriter{})
	f.unregister("dave", fc)
	f.unregister("dave", fc)
	assert.DeepEqual(t, 0, f.Connections("dave"))
}
