package wsstream

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMessageBufferAccumulates(t *testing.T) {
	var b MessageBuffer
	require.False(t, b.Active())

	b.begin(0x1)
	require.True(t, b.Active())
	b.append([]byte("hello "))
	b.append([]byte("world"))

	opcode, payload := b.finish()
	require.Equal(t, byte(0x1), opcode)
	require.Equal(t, []byte("hello world"), payload)
	require.False(t, b.Active())
}

func TestMessageBufferReusableAfterFinish(t *testing.T) {
	var b MessageBuffer
	b.begin(0x1)
	b.append([]byte("first"))
	b.finish()

	b.begin(0x2)
	b.append([]byte("second"))
	opcode, payload := b.finish()
	require.Equal(t, byte(0x2), opcode)
	require.Equal(t, []byte("second"), payload)
}
