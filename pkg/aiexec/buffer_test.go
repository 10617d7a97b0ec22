package aiexec

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBoundedBuffer_AcceptsWithinLimit(t *testing.T) {
	b := newBoundedBuffer(10)
	n, err := b.Write([]byte("hello"))
	assert.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.False(t, b.Overflowed())
	assert.Equal(t, []byte("hello"), b.Bytes())
}

func TestBoundedBuffer_OverflowsPastLimit(t *testing.T) {
	b := newBoundedBuffer(4)
	_, _ = b.Write([]byte("hello"))
	assert.True(t, b.Overflowed())
}

func TestBoundedBuffer_KeepsDrainingAfterOverflow(t *testing.T) {
	b := newBoundedBuffer(4)
	_, err1 := b.Write([]byte("hello"))
	_, err2 := b.Write([]byte("more data that would normally block a pipe"))
	assert.NoError(t, err1)
	assert.NoError(t, err2)
	assert.True(t, b.Overflowed())
}
