package converter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// decodeVLQ is the inverse of appendVLQ, used only to check round-trips.
func decodeVLQ(b []byte) (uint32, int) {
	var v uint32
	for i, c := range b {
		v = v<<7 | uint32(c&0x7F)
		if c&0x80 == 0 {
			return v, i + 1
		}
	}
	return v, len(b)
}

func TestAppendVLQRoundTrip(t *testing.T) {
	tests := []struct {
		value   uint32
		wantLen int
	}{
		{0, 1},
		{1, 1},
		{0x7F, 1},
		{0x80, 2},
		{0x2000, 2},
		{0x3FFF, 2},
		{0x4000, 3},
		{0x1FFFFF, 3},
		{0x200000, 4},
		{0xFFFFFFF, 4},
	}

	for _, tt := range tests {
		enc := appendVLQ(nil, tt.value)
		assert.Len(t, enc, tt.wantLen, "encoded length of %#x", tt.value)

		dec, n := decodeVLQ(enc)
		assert.Equal(t, tt.value, dec, "round trip of %#x", tt.value)
		assert.Equal(t, len(enc), n)

		// Continuation bit set on all but the last byte.
		for i, b := range enc {
			if i < len(enc)-1 {
				assert.NotZero(t, b&0x80, "byte %d of %#x", i, tt.value)
			} else {
				assert.Zero(t, b&0x80, "last byte of %#x", tt.value)
			}
		}
	}
}

func TestAppendVLQKnownEncodings(t *testing.T) {
	assert.Equal(t, []byte{0x00}, appendVLQ(nil, 0))
	assert.Equal(t, []byte{0x40}, appendVLQ(nil, 0x40))
	assert.Equal(t, []byte{0x81, 0x00}, appendVLQ(nil, 0x80))
	assert.Equal(t, []byte{0xC0, 0x00}, appendVLQ(nil, 0x2000))
	assert.Equal(t, []byte{0xFF, 0xFF, 0xFF, 0x7F}, appendVLQ(nil, 0xFFFFFFF))
}

func TestTrackBufferShortMessage(t *testing.T) {
	var tr trackBuffer
	tr.shortMessage(0x0A, []byte{0x90, 0x3C, 0x64})
	assert.Equal(t, []byte{0x0A, 0x90, 0x3C, 0x64}, tr.buf)
}

func TestTrackBufferMetaEvent(t *testing.T) {
	var tr trackBuffer
	tr.metaEvent(0, metaSetTempo, []byte{0x07, 0xA1, 0x20})
	assert.Equal(t, []byte{0x00, 0xFF, 0x51, 0x03, 0x07, 0xA1, 0x20}, tr.buf)

	tr = trackBuffer{}
	tr.endOfTrack(5)
	assert.Equal(t, []byte{0x05, 0xFF, 0x2F, 0x00}, tr.buf)
}

func TestTrackBufferSysEx(t *testing.T) {
	// The stored 0xF0 lead byte is elided; the writer re-adds the status.
	var tr trackBuffer
	tr.sysEx(0, []byte{0xF0, 0x01, 0x02, 0x03, 0x04})
	assert.Equal(t, []byte{0x00, 0xF0, 0x04, 0x01, 0x02, 0x03, 0x04}, tr.buf)
}

func TestAssembleSMF(t *testing.T) {
	track := []byte{0x00, 0xFF, 0x2F, 0x00}
	out := assembleSMF(480, track)

	require.Len(t, out, smfFixedSize+len(track))
	assert.Equal(t, []byte{
		'M', 'T', 'h', 'd',
		0x00, 0x00, 0x00, 0x06,
		0x00, 0x00, // format 0
		0x00, 0x01, // one track
		0x01, 0xE0, // division 480
		'M', 'T', 'r', 'k',
		0x00, 0x00, 0x00, 0x04,
	}, out[:smfFixedSize])
	assert.Equal(t, track, out[smfFixedSize:])
}
