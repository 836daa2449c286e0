package converter

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test input builders.

func msdHeader(timebase, packetCount uint32) []byte {
	h := make([]byte, msdHeaderSize)
	copy(h, msdMagic)
	binary.LittleEndian.PutUint32(h[4:], timebase)
	binary.LittleEndian.PutUint32(h[16:], packetCount)
	return h
}

func msdPacket(pid, nid uint32, payload []byte) []byte {
	p := make([]byte, packetHeaderSize, packetHeaderSize+pad4(len(payload)))
	binary.LittleEndian.PutUint32(p, pid)
	binary.LittleEndian.PutUint32(p[4:], nid)
	binary.LittleEndian.PutUint32(p[12:], uint32(len(payload)))
	p = append(p, payload...)
	for len(p)%4 != 0 {
		p = append(p, 0)
	}
	return p
}

func msdEvent(delta uint32, b8, b9, b10, b11 byte) []byte {
	e := make([]byte, eventSize)
	binary.LittleEndian.PutUint32(e, delta)
	e[8], e[9], e[10], e[11] = b8, b9, b10, b11
	return e
}

func buildMSD(timebase uint32, packets ...[]byte) []byte {
	out := msdHeader(timebase, uint32(len(packets)))
	for _, p := range packets {
		out = append(out, p...)
	}
	return out
}

func concat(chunks ...[]byte) []byte {
	var out []byte
	for _, c := range chunks {
		out = append(out, c...)
	}
	return out
}

func TestParseMSDInvalidHeader(t *testing.T) {
	_, err := parseMSD([]byte("WMS"))
	assert.ErrorIs(t, err, ErrInvalidHeader)

	_, err = parseMSD([]byte("RIFF\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00"))
	assert.ErrorIs(t, err, ErrInvalidHeader)

	_, err = parseMSD(msdHeader(480, 0)[:msdHeaderSize-1])
	assert.ErrorIs(t, err, ErrInvalidHeader)
}

func TestParseMSDHeaderFields(t *testing.T) {
	f, err := parseMSD(buildMSD(960))
	require.NoError(t, err)
	assert.Equal(t, uint32(960), f.timebase)
	assert.Equal(t, uint32(0), f.declaredPackets)
	assert.Empty(t, f.packets)
	assert.False(t, f.truncated)
}

func TestParseMSDPacketIndex(t *testing.T) {
	// Payload lengths 12 and 13 check the round-up-to-4 stream advance.
	p1 := msdEvent(1, 0x90, 60, 100, 0)
	p2 := append(msdEvent(2, 0x80, 60, 0, 0), 0xAA) // 13 bytes, 3 pad bytes in stream
	data := buildMSD(480,
		msdPacket(1, 2, p1),
		msdPacket(2, 1, p2),
	)

	f, err := parseMSD(data)
	require.NoError(t, err)
	require.Len(t, f.packets, 2)

	assert.Equal(t, uint32(1), f.packets[0].pid)
	assert.Equal(t, uint32(2), f.packets[0].nid)
	assert.Equal(t, p1, f.packets[0].payload)

	assert.Equal(t, uint32(2), f.packets[1].pid)
	assert.Equal(t, uint32(1), f.packets[1].nid)
	assert.Len(t, f.packets[1].payload, 13)
}

func TestParseMSDTruncatedPacketHeader(t *testing.T) {
	data := buildMSD(480, msdPacket(1, 2, nil))
	// Declare a second packet that is not present.
	binary.LittleEndian.PutUint32(data[16:], 2)

	f, err := parseMSD(data)
	require.NoError(t, err)
	assert.True(t, f.truncated)
	assert.Len(t, f.packets, 1)
}

func TestParseMSDTruncatedPayload(t *testing.T) {
	data := buildMSD(480, msdPacket(1, 2, nil))
	// Declared payload length reaches past the end of the buffer.
	binary.LittleEndian.PutUint32(data[msdHeaderSize+12:], 0x1000)

	f, err := parseMSD(data)
	require.NoError(t, err)
	assert.True(t, f.truncated)
	assert.Empty(t, f.packets)
}

func TestLoopAnchor(t *testing.T) {
	f, err := parseMSD(buildMSD(480,
		msdPacket(1, 2, nil),
		msdPacket(2, 3, nil),
		msdPacket(3, 2, nil),
	))
	require.NoError(t, err)

	anchor, ok := f.loopAnchor()
	assert.True(t, ok)
	assert.Equal(t, uint32(2), anchor)

	f, err = parseMSD(buildMSD(480))
	require.NoError(t, err)
	_, ok = f.loopAnchor()
	assert.False(t, ok)
}

func TestInspectMSD(t *testing.T) {
	note := msdEvent(0, 0x90, 60, 100, 0)
	sysex := concat(msdEvent(0, 5, 0, 0, 0x80), []byte{0xF0, 0x01, 0x02, 0x03, 0x04, 0, 0, 0})
	data := buildMSD(480,
		msdPacket(10, 20, note),
		msdPacket(20, 30, concat(note, sysex)),
		msdPacket(30, 20, note),
	)

	info, err := InspectMSD(data)
	require.NoError(t, err)

	assert.Equal(t, uint32(480), info.Timebase)
	assert.Equal(t, uint32(3), info.DeclaredPackets)
	assert.Equal(t, 3, info.ParsedPackets)
	assert.False(t, info.Truncated)
	assert.Equal(t, uint32(20), info.LoopAnchor)
	assert.Equal(t, 1, info.LoopPacket)

	require.Len(t, info.Packets, 3)
	assert.Equal(t, 1, info.Packets[0].Events)
	assert.Equal(t, 2, info.Packets[1].Events)
	assert.Equal(t, len(note), info.Packets[0].PayloadLen)
}

func TestInspectMSDNoLoop(t *testing.T) {
	info, err := InspectMSD(buildMSD(480, msdPacket(1, 99, nil)))
	require.NoError(t, err)
	assert.Equal(t, -1, info.LoopPacket)
}
