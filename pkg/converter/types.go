// Package converter converts MSD music sequences, used by a family of F&C
// Windows games, into standard MIDI files (SMF format 0).
package converter

import "errors"

// Format represents a file format
type Format string

const (
	FormatMSD     Format = "msd"
	FormatMIDI    Format = "midi"
	FormatUnknown Format = "unknown"
)

// LoopMode selects how the detected loop point is marked in the output.
type LoopMode int

const (
	// LoopMeta emits Marker meta-events "loopStart"/"loopEnd", recognized by
	// players that honor named markers.
	LoopMeta LoopMode = iota
	// LoopController emits a single Control Change (channel 0, CC#111,
	// value 0) at the loop start, a convention used by some sequencer tools.
	// No loop-end message is emitted in this mode.
	LoopController
)

// String returns the flag spelling of the loop mode.
func (m LoopMode) String() string {
	switch m {
	case LoopController:
		return "cc"
	default:
		return "meta"
	}
}

// ParseLoopMode parses a loop mode flag value ("meta" or "cc").
func ParseLoopMode(s string) (LoopMode, error) {
	switch s {
	case "meta", "":
		return LoopMeta, nil
	case "cc", "controller", "cc111":
		return LoopController, nil
	default:
		return LoopMeta, errors.New("unknown loop mode: " + s)
	}
}

// Conversion errors.
var (
	// ErrInvalidHeader means the input is too short or does not start with
	// the "WMSD" magic.
	ErrInvalidHeader = errors.New("invalid MSD header")
	// ErrTruncated means a packet or event declares a length running past
	// the end of the input. Only returned in strict mode; by default
	// truncation ends the scan early, matching the files found in the wild,
	// which often carry trailing garbage.
	ErrTruncated = errors.New("truncated MSD data")
	// ErrTimebaseOverflow means the MSD timebase does not fit the 16-bit SMF
	// division field. Only returned in strict mode; by default the value is
	// truncated to 16 bits, as the original player did.
	ErrTimebaseOverflow = errors.New("timebase exceeds 16 bits")
	// ErrOutputTooSmall means the caller-supplied buffer cannot hold the
	// converted file.
	ErrOutputTooSmall = errors.New("output buffer too small")
	// ErrUnknownFormat means the conversion direction is not supported.
	ErrUnknownFormat = errors.New("unknown or unsupported format")
)

// Options control a conversion.
type Options struct {
	// Loop selects the loop-marker policy.
	Loop LoopMode
	// Strict surfaces truncated packets and timebase overflow as errors
	// instead of tolerating them the way the original player did.
	Strict bool
}

// Converter converts MSD data to MIDI.
type Converter struct {
	opts Options
}

// New creates a new Converter with the given options.
func New(opts Options) *Converter {
	return &Converter{opts: opts}
}

// Options returns the converter's options.
func (c *Converter) Options() Options {
	return c.opts
}
