package util

import (
	"testing"

	"github.com/cloudwego/hertz/pkg/common/test/assert"
)

func TestParseList(t *testing.T) {
	assert.DeepEqual(t, []string{"http://a.test", "http://b.test"}, ParseList(" http://a.test, ,http://b.test,"))
	assert.Assert(t, len(ParseList("")) == 0)
}

func TestGenerateTradeIDUnique(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 1000; i++ {
		id, err := GenerateTradeID()
		assert.Nil(t, err)
		_, dup := seen[id]
		assert.Assert(t, !dup, id)
		seen[id] = struct{}{}
	}
}

func TestAdvertiseAddr(t *testing.T) {
	t.Setenv("POD_IP", "10.1.2.3")

	host, port, err := AdvertiseAddr(":8080")
	assert.Nil(t, err)
	assert.DeepEqual(t, "10.1.2.3", host)
	assert.DeepEqual(t, 8080, port)

	host, port, err = AdvertiseAddr("192.168.0.5:9000")
	assert.Nil(t, err)
	assert.DeepEqual(t, "192.168.0.5", host)
	assert.DeepEqual(t, 9000, port)

	_, _, err = AdvertiseAddr("8080")
	assert.NotNil(t, err)
}
