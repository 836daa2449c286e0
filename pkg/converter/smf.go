package converter

import "encoding/binary"

// SMF constants
const (
	smfHeaderChunk = "MThd"
	smfTrackChunk  = "MTrk"

	metaStatus   = 0xFF
	metaSetTempo = 0x51
	metaMarker   = 0x06
	metaEndTrack = 0x2F

	sysExStatus = 0xF0
)

// smfFixedSize is the part of the output that is not track data: the 14-byte
// MThd chunk plus the 8-byte MTrk chunk header.
const smfFixedSize = 14 + 8

// appendVLQ appends v as a MIDI variable-length quantity: 7 bits per byte,
// most significant group first, continuation bit on all but the last byte.
// Values up to 2^28-1 encode in at most 4 bytes; SMF leaves larger values
// undefined.
func appendVLQ(dst []byte, v uint32) []byte {
	var buf [5]byte
	i := len(buf) - 1
	buf[i] = byte(v & 0x7F)
	for v >>= 7; v > 0; v >>= 7 {
		i--
		buf[i] = byte(v&0x7F) | 0x80
	}
	return append(dst, buf[i:]...)
}

// trackBuffer accumulates the SMF track event stream.
type trackBuffer struct {
	buf []byte
}

// shortMessage writes a delta time followed by a raw short MIDI message
// (status byte plus data bytes).
func (t *trackBuffer) shortMessage(delta uint32, msg []byte) {
	t.buf = appendVLQ(t.buf, delta)
	t.buf = append(t.buf, msg...)
}

// metaEvent writes a delta time, 0xFF, the meta type, a VLQ payload length,
// and the payload.
func (t *trackBuffer) metaEvent(delta uint32, typ byte, data []byte) {
	t.buf = appendVLQ(t.buf, delta)
	t.buf = append(t.buf, metaStatus, typ)
	t.buf = appendVLQ(t.buf, uint32(len(data)))
	t.buf = append(t.buf, data...)
}

// sysEx writes a delta time, 0xF0, a VLQ length of len(block)-1, and the
// block without its first byte. MSD stores the conventional 0xF0 lead byte in
// the block itself; the SMF encoding re-adds it as the status byte, so the
// stored one is elided. The block must not be empty.
func (t *trackBuffer) sysEx(delta uint32, block []byte) {
	t.buf = appendVLQ(t.buf, delta)
	t.buf = append(t.buf, sysExStatus)
	t.buf = appendVLQ(t.buf, uint32(len(block)-1))
	t.buf = append(t.buf, block[1:]...)
}

// endOfTrack terminates the event stream.
func (t *trackBuffer) endOfTrack(delta uint32) {
	t.metaEvent(delta, metaEndTrack, nil)
}

// assembleSMF wraps track data in a format-0 MThd chunk and a single MTrk
// chunk. SMF is big-endian throughout.
func assembleSMF(timebase uint16, track []byte) []byte {
	out := make([]byte, 0, smfFixedSize+len(track))
	out = append(out, smfHeaderChunk...)
	out = binary.BigEndian.AppendUint32(out, 6)
	out = binary.BigEndian.AppendUint16(out, 0) // format 0
	out = binary.BigEndian.AppendUint16(out, 1) // one track
	out = binary.BigEndian.AppendUint16(out, timebase)
	out = append(out, smfTrackChunk...)
	out = binary.BigEndian.AppendUint32(out, uint32(len(track)))
	out = append(out, track...)
	return out
}
