// ABOUTME: Synthetic sound descriptors and sine wave generation
// ABOUTME: Maps MIDI notes to frequencies on the equal-tempered scale, A4 = 440 Hz
package synth

import (
	"encoding/json"
	"fmt"
	"math"
)

const (
	// StandardAFrequency is the reference A4 frequency in Hz.
	StandardAFrequency = 440.0
	// StandardAMidiNote is the MIDI note code of A4.
	StandardAMidiNote = 69
)

// Sound describes a single synthetic tone: a base frequency (or the MIDI note
// it derives from), a gain in [0, 1] and an optional bounded duration.
// Sounds are immutable values after construction.
type Sound struct {
	Frequency float64
	MidiNote  int
	Gain      float64
	Duration  float64 // seconds; 0 means play until stopped
}

// NoteToFreq converts a MIDI note to its frequency in Hz.
func NoteToFreq(midiNote int) float64 {
	return StandardAFrequency * math.Pow(2, float64(midiNote-StandardAMidiNote)/12.0)
}

// FreqToNote converts a frequency in Hz to the closest MIDI note.
func FreqToNote(frequency float64) int {
	return StandardAMidiNote + int(math.Round(12.0*math.Log2(frequency/StandardAFrequency)))
}

// NewNote builds a Sound from a MIDI note code.
func NewNote(midiNote int, gain, duration float64) (Sound, error) {
	if midiNote < 0 || midiNote > 127 {
		return Sound{}, fmt.Errorf("midi note %d out of range [0, 127]", midiNote)
	}
	return validate(Sound{
		MidiNote:  midiNote,
		Frequency: NoteToFreq(midiNote),
		Gain:      gain,
		Duration:  duration,
	})
}

// NewSound builds a Sound from a base frequency in Hz.
func NewSound(frequency float64, gain, duration float64) (Sound, error) {
	if frequency <= 0 {
		return Sound{}, fmt.Errorf("frequency %g must be positive", frequency)
	}
	return validate(Sound{
		Frequency: frequency,
		MidiNote:  FreqToNote(frequency),
		Gain:      gain,
		Duration:  duration,
	})
}

func validate(s Sound) (Sound, error) {
	if s.Gain < 0 || s.Gain > 1 {
		return Sound{}, fmt.Errorf("gain %g out of range [0, 1]", s.Gain)
	}
	if s.Duration < 0 {
		return Sound{}, fmt.Errorf("duration %g must not be negative", s.Duration)
	}
	return s, nil
}

// soundSpec is the JSON wire form of a sound descriptor.
type soundSpec struct {
	MidiNote  *int     `json:"midi_note,omitempty"`
	Frequency *float64 `json:"frequency,omitempty"`
	Gain      *float64 `json:"gain,omitempty"`
	Duration  *float64 `json:"duration,omitempty"`
}

// ParseSounds decodes a JSON list of sound descriptors. Each entry must carry
// exactly one of midi_note or frequency; gain defaults to 1.0.
func ParseSounds(data []byte) ([]Sound, error) {
	var specs []soundSpec
	if err := json.Unmarshal(data, &specs); err != nil {
		return nil, fmt.Errorf("parse sounds: %w", err)
	}

	sounds := make([]Sound, 0, len(specs))
	for i, spec := range specs {
		if (spec.MidiNote == nil) == (spec.Frequency == nil) {
			return nil, fmt.Errorf("sound %d: specify either a MIDI note or a base frequency", i)
		}
		gain := 1.0
		if spec.Gain != nil {
			gain = *spec.Gain
		}
		duration := 0.0
		if spec.Duration != nil {
			duration = *spec.Duration
		}

		var (
			s   Sound
			err error
		)
		if spec.MidiNote != nil {
			s, err = NewNote(*spec.MidiNote, gain, duration)
		} else {
			s, err = NewSound(*spec.Frequency, gain, duration)
		}
		if err != nil {
			return nil, fmt.Errorf("sound %d: %w", i, err)
		}
		sounds = append(sounds, s)
	}
	return sounds, nil
}

// Wave renders the tone as mono float32 samples over [tStart, tEnd) at the
// given sample rate. The result holds round((tEnd-tStart)*sampleRate)
// samples of gain*sin(2*pi*frequency*t). Pure and safe from any goroutine.
// Callers clamp tEnd to Duration; Wave does not clamp.
func (s Sound) Wave(tStart, tEnd float64, sampleRate int) []float32 {
	n := int(math.Round((tEnd - tStart) * float64(sampleRate)))
	if n <= 0 {
		return nil
	}
	out := make([]float32, n)
	for i := range out {
		t := tStart + float64(i)/float64(sampleRate)
		out[i] = float32(s.Gain * math.Sin(2*math.Pi*s.Frequency*t))
	}
	return out
}

// String returns the JSON form of the descriptor.
func (s Sound) String() string {
	b, _ := json.Marshal(map[string]any{
		"midi_note": s.MidiNote,
		"frequency": s.Frequency,
		"gain":      s.Gain,
		"duration":  s.Duration,
	})
	return string(b)
}
