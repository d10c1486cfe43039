package h4

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect() (*frame, *[][]byte) {
	var out [][]byte
	return newFrame(func(b []byte) { out = append(out, b) }), &out
}

func TestFrameSplitEvent(t *testing.T) {
	f, out := collect()

	// command complete for HCI Reset, delivered in three pieces
	f.Assemble([]byte{0x04, 0x0e})
	f.Assemble([]byte{0x04, 0x01})
	require.Empty(t, *out)
	f.Assemble([]byte{0x03, 0x0c, 0x00})

	require.Len(t, *out, 1)
	assert.Equal(t, []byte{0x04, 0x0e, 0x04, 0x01, 0x03, 0x0c, 0x00}, (*out)[0])
}

func TestFrameTwoInOneRead(t *testing.T) {
	f, out := collect()

	f.Assemble([]byte{0x04, 0x13, 0x00, 0x02, 0x01, 0x00, 0x02, 0x00, 0xaa, 0xbb})

	require.Len(t, *out, 2)
	assert.Equal(t, []byte{0x04, 0x13, 0x00}, (*out)[0])
	assert.Equal(t, []byte{0x02, 0x01, 0x00, 0x02, 0x00, 0xaa, 0xbb}, (*out)[1])
}

func TestFrameACL(t *testing.T) {
	f, out := collect()

	acl := []byte{0x02, 0x40, 0x20, 0x03, 0x00, 0x01, 0x02, 0x03}
	f.Assemble(acl[:4])
	f.Assemble(acl[4:])

	require.Len(t, *out, 1)
	assert.Equal(t, acl, (*out)[0])
}

func TestFrameSkipsGarbage(t *testing.T) {
	f, out := collect()

	f.Assemble([]byte{0xff, 0x00, 0x04, 0x13, 0x00})

	require.Len(t, *out, 1)
	assert.Equal(t, []byte{0x04, 0x13, 0x00}, (*out)[0])
}

func TestFrameTimeout(t *testing.T) {
	f, out := collect()
	now := time.Now()
	f.now = func() time.Time { return now }

	f.Assemble([]byte{0x04, 0x0e, 0x04, 0x01})
	now = now.Add(2 * frameTimeout)
	f.Assemble([]byte{0x04, 0x13, 0x00})

	require.Len(t, *out, 1)
	assert.Equal(t, []byte{0x04, 0x13, 0x00}, (*out)[0])
}

func TestFrameEmptyPayloadAtChunkEnd(t *testing.T) {
	f, out := collect()

	f.Assemble([]byte{0x04, 0xff, 0x00})
	require.Len(t, *out, 1)
	assert.Equal(t, []byte{0x04, 0xff, 0x00}, (*out)[0])

	// header split across reads
	f.Assemble([]byte{0x04, 0x13})
	f.Assemble([]byte{0x00})
	require.Len(t, *out, 2)
	assert.Equal(t, []byte{0x04, 0x13, 0x00}, (*out)[1])
}

func TestFrameEmptyACL(t *testing.T) {
	f, out := collect()

	f.Assemble([]byte{0x02, 0x40, 0x20, 0x00, 0x00})

	require.Len(t, *out, 1)
	assert.Equal(t, []byte{0x02, 0x40, 0x20, 0x00, 0x00}, (*out)[0])
}
