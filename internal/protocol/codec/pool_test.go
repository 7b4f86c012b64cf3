package codec

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMessagePool_PutResetsFields(t *testing.T) {
	t.Parallel()

	msg := GetMessage()
	assert.NotNil(t, msg)

	msg.Type = "test"
	msg.Payload = []byte("data")

	PutMessage(msg)

	// 归还时字段已被清空
	assert.Empty(t, msg.Type)
	assert.Nil(t, msg.Payload)
}

func TestMessagePool_PutNil(t *testing.T) {
	t.Parallel()

	assert.NotPanics(t, func() {
		PutMessage(nil)
		PutBuffer(nil)
	})
}

func TestBufferPool_GetPut(t *testing.T) {
	t.Parallel()

	buf := GetBuffer()
	assert.NotNil(t, buf)
	buf.WriteString("hello")

	PutBuffer(buf)
	assert.Equal(t, 0, buf.Len())
}

func TestPools_Concurrent(t *testing.T) {
	t.Parallel()

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			msg := GetMessage()
			msg.Type = "ping"
			PutMessage(msg)

			buf := GetBuffer()
			buf.WriteString("x")
			PutBuffer(buf)
		}()
	}
	wg.Wait()
}
