package converter

import (
	"encoding/binary"

	"go.uber.org/zap"
)

// MSD format constants
const (
	msdMagic         = "WMSD"
	msdHeaderSize    = 0x14
	packetHeaderSize = 16
	eventSize        = 12
)

// packet is one entry of the MSD packet stream. The payload is a subslice of
// the input buffer, bounds-checked at parse time.
type packet struct {
	pid     uint32 // this packet's id
	nid     uint32 // id this packet transitions to
	payload []byte
}

// msdFile is the parsed form of an MSD buffer. Packets are indexed once here
// and shared by the loop-anchor lookup and the event transcoder.
type msdFile struct {
	timebase        uint32
	declaredPackets uint32
	packets         []packet
	truncated       bool
}

// pad4 rounds n up to a multiple of 4. Packet payloads and SysEx/skip blocks
// occupy their padded length in the stream.
func pad4(n int) int {
	return (n + 3) &^ 3
}

// parseMSD validates the MSD header and builds the packet index. A packet
// header or payload running past the buffer stops the walk and sets the
// truncated flag; strictness is the caller's policy.
func parseMSD(data []byte) (*msdFile, error) {
	if len(data) < msdHeaderSize || string(data[:4]) != msdMagic {
		return nil, ErrInvalidHeader
	}

	f := &msdFile{
		timebase:        binary.LittleEndian.Uint32(data[4:8]),
		declaredPackets: binary.LittleEndian.Uint32(data[16:20]),
	}

	off := msdHeaderSize
	for i := uint32(0); i < f.declaredPackets; i++ {
		if off+packetHeaderSize > len(data) {
			f.truncated = true
			break
		}
		pid := binary.LittleEndian.Uint32(data[off:])
		nid := binary.LittleEndian.Uint32(data[off+4:])
		payloadLen := binary.LittleEndian.Uint32(data[off+12:])
		off += packetHeaderSize

		if int64(payloadLen) > int64(len(data)-off) {
			f.truncated = true
			break
		}
		f.packets = append(f.packets, packet{
			pid:     pid,
			nid:     nid,
			payload: data[off : off+int(payloadLen)],
		})
		off += pad4(int(payloadLen))
	}

	convLog.Debug("parsed MSD",
		zap.Uint32("timebase", f.timebase),
		zap.Uint32("declaredPackets", f.declaredPackets),
		zap.Int("packets", len(f.packets)),
		zap.Bool("truncated", f.truncated))

	return f, nil
}

// loopAnchor returns the nid of the last parsed packet. A packet whose pid
// matches this value marks the musical loop point. The original player reads
// the last declared packet's nid even when the stream is truncated; here the
// anchor comes from the last packet that actually parsed.
func (f *msdFile) loopAnchor() (uint32, bool) {
	if len(f.packets) == 0 {
		return 0, false
	}
	return f.packets[len(f.packets)-1].nid, true
}

// PacketInfo describes one MSD packet for inspection.
type PacketInfo struct {
	ID         uint32 `json:"id"`
	NextID     uint32 `json:"next_id"`
	PayloadLen int    `json:"payload_len"`
	Events     int    `json:"events"`
}

// MSDInfo describes a parsed MSD file for inspection.
type MSDInfo struct {
	Timebase        uint32       `json:"timebase"`
	DeclaredPackets uint32       `json:"declared_packets"`
	ParsedPackets   int          `json:"parsed_packets"`
	Truncated       bool         `json:"truncated"`
	LoopAnchor      uint32       `json:"loop_anchor"`
	LoopPacket      int          `json:"loop_packet"` // index of the loop packet, -1 if none
	Packets         []PacketInfo `json:"packets"`
}

// InspectMSD parses MSD data and reports its structure without converting.
func InspectMSD(data []byte) (*MSDInfo, error) {
	f, err := parseMSD(data)
	if err != nil {
		return nil, err
	}

	info := &MSDInfo{
		Timebase:        f.timebase,
		DeclaredPackets: f.declaredPackets,
		ParsedPackets:   len(f.packets),
		Truncated:       f.truncated,
		LoopPacket:      -1,
	}

	anchor, hasLoop := f.loopAnchor()
	if hasLoop {
		info.LoopAnchor = anchor
	}

	for i, p := range f.packets {
		if hasLoop && info.LoopPacket < 0 && p.pid == anchor {
			info.LoopPacket = i
		}
		info.Packets = append(info.Packets, PacketInfo{
			ID:         p.pid,
			NextID:     p.nid,
			PayloadLen: len(p.payload),
			Events:     countEvents(p.payload),
		})
	}

	return info, nil
}

// countEvents walks a payload the same way the transcoder does, counting
// 12-byte records (SysEx and skip blocks advance past their data).
func countEvents(payload []byte) int {
	n := 0
	off := 0
	for off+eventSize <= len(payload) {
		ev := payload[off : off+eventSize]
		param := int(binary.LittleEndian.Uint32(ev[8:]) & 0xFFFFFF)
		typ := ev[11] & 0xBF

		switch {
		case typ == sysExEvent:
			if param > len(payload)-off-eventSize {
				return n
			}
			off += pad4(param)
		case ev[11]&0x80 != 0:
			off += pad4(param)
		}
		off += eventSize
		n++
	}
	return n
}
