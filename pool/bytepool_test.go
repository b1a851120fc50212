package pool

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBytePool_GetPut(t *testing.T) {
	p := NewBytePool(1024)
	buf := p.GetBuffer()
	assert.Len(t, buf, 1024)
	buf[0] = 1
	p.PutBuffer(buf[:10])
	again := p.GetBuffer()
	assert.Len(t, again, 1024)
}

func TestBytePool_DropsUndersized(t *testing.T) {
	p := NewBytePool(64)
	p.PutBuffer(make([]byte, 8))
	assert.Len(t, p.GetBuffer(), 64)
}

func TestScratch_SharedPerSize(t *testing.T) {
	assert.Same(t, Scratch(512), Scratch(512))
	assert.NotSame(t, Scratch(512), Scratch(1024))
	assert.Equal(t, 1024, Scratch(1024).Size())
}
