package converter

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// MSD event type discriminators: bits of the record's last byte with 0x40
// masked out. A record whose last byte has the high bit set but is not a
// SysEx block is a skip marker.
const (
	shortEvent = 0x00
	tempoEvent = 0x01
	sysExEvent = 0x80
)

// midiCmdLenTable maps the low 3 bits of a status byte's high nibble to the
// total short-message length. Zero means the command is not representable and
// the record is dropped. Kept bit-exact with the original player.
var midiCmdLenTable = [8]int{3, 3, 2, 3, 2, 2, 3, 0}

func midiCmdLen(status byte) int {
	return midiCmdLenTable[(status>>4)&7]
}

// Loop marker payloads.
var (
	loopStartMarker = []byte("loopStart")
	loopEndMarker   = []byte("loopEnd")
	loopStartCC     = []byte{0xB0, 0x6F, 0x00} // channel 0, CC#111, value 0
)

// Convert transcodes MSD data into a format-0 MIDI file.
func (c *Converter) Convert(msd []byte) ([]byte, error) {
	f, err := parseMSD(msd)
	if err != nil {
		return nil, err
	}
	if c.opts.Strict {
		if f.truncated {
			return nil, ErrTruncated
		}
		if f.timebase > math.MaxUint16 {
			return nil, fmt.Errorf("%w: %d", ErrTimebaseOverflow, f.timebase)
		}
	}

	track, err := c.transcode(f)
	if err != nil {
		return nil, err
	}
	return assembleSMF(uint16(f.timebase), track), nil
}

// RequiredSize reports the exact output size for the given input, so callers
// that own the destination buffer never have to guess.
func (c *Converter) RequiredSize(msd []byte) (int, error) {
	out, err := c.Convert(msd)
	if err != nil {
		return 0, err
	}
	return len(out), nil
}

// ConvertTo transcodes into a caller-owned buffer and returns the number of
// bytes written. On any error, including ErrOutputTooSmall, dst is untouched.
func (c *Converter) ConvertTo(dst, msd []byte) (int, error) {
	out, err := c.Convert(msd)
	if err != nil {
		return 0, err
	}
	if len(dst) < len(out) {
		return 0, fmt.Errorf("%w: need %d, have %d", ErrOutputTooSmall, len(out), len(dst))
	}
	return copy(dst, out), nil
}

// transcode runs the main event pass over every packet, producing the track
// event stream.
func (c *Converter) transcode(f *msdFile) ([]byte, error) {
	var track trackBuffer
	var deltaTime uint32
	loopStarted := false

	anchor, hasLoop := f.loopAnchor()

	for i, p := range f.packets {
		// The packet whose id matches the final packet's nid is where
		// playback jumps back to.
		if hasLoop && p.pid == anchor && !loopStarted {
			convLog.Debug("loop start", zap.Int("packet", i), zap.Uint32("pid", p.pid))
			switch c.opts.Loop {
			case LoopController:
				track.shortMessage(deltaTime, loopStartCC)
			default:
				track.metaEvent(deltaTime, metaMarker, loopStartMarker)
			}
			deltaTime = 0
			loopStarted = true
		}

		var err error
		deltaTime, err = c.transcodePayload(&track, p.payload, deltaTime)
		if err != nil {
			return nil, err
		}
	}

	if loopStarted && c.opts.Loop == LoopMeta {
		track.metaEvent(deltaTime, metaMarker, loopEndMarker)
		deltaTime = 0
	}
	track.endOfTrack(deltaTime)

	return track.buf, nil
}

// transcodePayload walks one packet's payload in 12-byte records and emits
// the corresponding SMF events. It returns the delta time left accumulated by
// records that emitted nothing.
func (c *Converter) transcodePayload(track *trackBuffer, payload []byte, deltaTime uint32) (uint32, error) {
	off := 0
	for off+eventSize <= len(payload) {
		ev := payload[off : off+eventSize]
		deltaTime += binary.LittleEndian.Uint32(ev)
		param := int(binary.LittleEndian.Uint32(ev[8:]) & 0xFFFFFF)
		typ := ev[11] & 0xBF

		switch {
		case typ == shortEvent && ev[8] != 0xFF:
			// ev[8] is a MIDI status byte; commands the table maps to
			// zero are dropped.
			if n := midiCmdLen(ev[8]); n > 0 {
				track.shortMessage(deltaTime, ev[8:8+n])
				deltaTime = 0
			}

		case typ == tempoEvent:
			// Tempo bytes are stored reversed.
			track.metaEvent(deltaTime, metaSetTempo, []byte{ev[10], ev[9], ev[8]})
			deltaTime = 0

		case typ == sysExEvent:
			if param > len(payload)-off-eventSize {
				// Block runs past the payload; the rest of this packet
				// is unusable.
				if c.opts.Strict {
					return deltaTime, fmt.Errorf("%w: sysex of %d bytes at offset %d", ErrTruncated, param, off)
				}
				return deltaTime, nil
			}
			if param > 0 {
				track.sysEx(deltaTime, payload[off+eventSize:off+eventSize+param])
				deltaTime = 0
			}
			off += pad4(param)

		case ev[11]&0x80 != 0:
			// Skip marker: the block is passed over without emission. Its
			// preceding delta stays accumulated for the next emitted event.
			off += pad4(param)
		}

		off += eventSize
	}
	return deltaTime, nil
}

// DetectFormat detects the format of a file based on extension
func DetectFormat(filename string) Format {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".msd":
		return FormatMSD
	case ".mid", ".midi":
		return FormatMIDI
	default:
		return FormatUnknown
	}
}

// DetectFormatFromContent detects format from file content
func DetectFormatFromContent(data []byte) Format {
	if len(data) < 4 {
		return FormatUnknown
	}
	switch string(data[:4]) {
	case msdMagic:
		return FormatMSD
	case smfHeaderChunk:
		return FormatMIDI
	default:
		return FormatUnknown
	}
}

// ConvertFile converts an MSD file to a MIDI file.
func (c *Converter) ConvertFile(inputPath, outputPath string) error {
	data, err := os.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("failed to read input file: %w", err)
	}

	inputFormat := DetectFormat(inputPath)
	if inputFormat == FormatUnknown {
		inputFormat = DetectFormatFromContent(data)
	}
	if inputFormat != FormatMSD || DetectFormat(outputPath) != FormatMIDI {
		return fmt.Errorf("%w: only msd -> midi is supported", ErrUnknownFormat)
	}

	outputData, err := c.Convert(data)
	if err != nil {
		return fmt.Errorf("conversion failed: %w", err)
	}

	if err := os.WriteFile(outputPath, outputData, 0644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	return nil
}

// ConvertDir converts every *.msd file in dir to a sibling .mid file,
// continuing past per-file failures. It returns the results in glob order and
// an error only when the directory itself cannot be scanned.
func (c *Converter) ConvertDir(dir string) ([]FileResult, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.msd"))
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, errors.New("no msd files found in: " + dir)
	}

	results := make([]FileResult, 0, len(files))
	for _, file := range files {
		output := strings.TrimSuffix(file, filepath.Ext(file)) + ".mid"
		res := FileResult{Input: file, Output: output}
		if err := c.ConvertFile(file, output); err != nil {
			res.Err = err
		}
		results = append(results, res)
	}
	return results, nil
}

// FileResult reports the outcome of one file in a batch conversion.
type FileResult struct {
	Input  string
	Output string
	Err    error
}

// GetSupportedConversions returns a list of supported conversion paths
func GetSupportedConversions() []string {
	return []string{"msd -> midi"}
}
