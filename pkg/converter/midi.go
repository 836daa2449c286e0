package converter

import (
	"bytes"
	"fmt"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

// MIDISummary describes a produced MIDI file, read back with the gomidi SMF
// parser. It doubles as a structural verification of the converter's output.
type MIDISummary struct {
	Format          uint16   `json:"format"`
	NumTracks       int      `json:"num_tracks"`
	TicksPerQuarter uint16   `json:"ticks_per_quarter"`
	Events          int      `json:"events"`
	TotalTicks      uint64   `json:"total_ticks"`
	TempoChanges    int      `json:"tempo_changes"`
	SysExEvents     int      `json:"sysex_events"`
	Markers         []string `json:"markers,omitempty"`
}

// SummarizeMIDI parses MIDI data and summarizes its contents.
func SummarizeMIDI(data []byte) (*MIDISummary, error) {
	s, err := smf.ReadFrom(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse MIDI: %w", err)
	}

	sum := &MIDISummary{
		Format:    s.Format(),
		NumTracks: len(s.Tracks),
	}
	if mt, ok := s.TimeFormat.(smf.MetricTicks); ok {
		sum.TicksPerQuarter = mt.Resolution()
	}

	for _, track := range s.Tracks {
		var currentTick uint64
		for _, ev := range track {
			currentTick += uint64(ev.Delta)
			sum.Events++

			msg := ev.Message
			var (
				text string
				bpm  float64
			)
			switch {
			case msg.GetMetaTempo(&bpm):
				sum.TempoChanges++
			case msg.GetMetaMarker(&text):
				sum.Markers = append(sum.Markers, text)
			case msg.Is(midi.SysExMsg):
				sum.SysExEvents++
			}
		}
		if currentTick > sum.TotalTicks {
			sum.TotalTicks = currentTick
		}
	}

	return sum, nil
}

// VerifyMIDI checks that data is a structurally valid MIDI file.
func VerifyMIDI(data []byte) error {
	_, err := SummarizeMIDI(data)
	return err
}
