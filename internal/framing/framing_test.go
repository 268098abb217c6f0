package framing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWriteAppendsRecordSeparator(t *testing.T) {
	assert.Equal(t, "hello\x1e", Write("hello"))
}

func TestSplitMultipleFrames(t *testing.T) {
	assert.Equal(t, []string{"{}", "hello", "world"}, Split("{}\x1ehello\x1eworld\x1e"))
}

func TestSplitSingleFrame(t *testing.T) {
	assert.Equal(t, []string{"hello"}, Split("hello\x1e"))
}

func TestIsHandshakeTrimsWhitespace(t *testing.T) {
	assert.True(t, IsHandshake("{}"))
	assert.True(t, IsHandshake(" {} "))
	assert.False(t, IsHandshake("hello"))
}
