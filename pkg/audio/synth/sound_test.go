// ABOUTME: Tests for tone descriptors and sine generation
// ABOUTME: Includes property checks for the note/frequency mapping
package synth

import (
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestNoteToFreq(t *testing.T) {
	tests := []struct {
		name     string
		note     int
		expected float64
	}{
		{"A4 reference", 69, 440.0},
		{"octave up", 81, 880.0},
		{"octave down", 57, 220.0},
		{"middle C", 60, 261.6255653005986},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NoteToFreq(tt.note)
			if math.Abs(got-tt.expected) > 1e-9 {
				t.Errorf("expected %v Hz, got %v Hz", tt.expected, got)
			}
		})
	}

	// The reference note must map exactly, not just approximately.
	if NoteToFreq(StandardAMidiNote) != StandardAFrequency {
		t.Errorf("A4 should map to exactly %v Hz", StandardAFrequency)
	}
}

func TestNoteFreqRoundTrip(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 128

	properties := gopter.NewProperties(parameters)
	properties.Property("FreqToNote inverts NoteToFreq over the MIDI range", prop.ForAll(
		func(note int) bool {
			return FreqToNote(NoteToFreq(note)) == note
		},
		gen.IntRange(0, 127),
	))
	properties.TestingRun(t)
}

func TestNewNoteValidation(t *testing.T) {
	tests := []struct {
		name     string
		note     int
		gain     float64
		duration float64
		wantErr  bool
	}{
		{"valid", 69, 1.0, 2.0, false},
		{"zero gain", 60, 0, 0, false},
		{"note too low", -1, 1.0, 0, true},
		{"note too high", 128, 1.0, 0, true},
		{"gain above one", 69, 1.5, 0, true},
		{"negative gain", 69, -0.1, 0, true},
		{"negative duration", 69, 1.0, -1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewNote(tt.note, tt.gain, tt.duration)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewNote(%d, %g, %g) error = %v, wantErr %v",
					tt.note, tt.gain, tt.duration, err, tt.wantErr)
			}
		})
	}
}

func TestNewSoundValidation(t *testing.T) {
	if _, err := NewSound(0, 1.0, 0); err == nil {
		t.Error("expected error for zero frequency")
	}
	if _, err := NewSound(-440, 1.0, 0); err == nil {
		t.Error("expected error for negative frequency")
	}

	s, err := NewSound(440, 0.5, 1.0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.MidiNote != 69 {
		t.Errorf("expected MIDI note 69 for 440 Hz, got %d", s.MidiNote)
	}
}

func TestParseSounds(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		count   int
		wantErr bool
	}{
		{"midi note", `[{"midi_note": 69}]`, 1, false},
		{"frequency", `[{"frequency": 440.0, "gain": 0.5, "duration": 2}]`, 1, false},
		{"multiple", `[{"midi_note": 60}, {"midi_note": 64}]`, 2, false},
		{"both note and frequency", `[{"midi_note": 69, "frequency": 440}]`, 0, true},
		{"neither note nor frequency", `[{"gain": 1.0}]`, 0, true},
		{"invalid gain", `[{"midi_note": 69, "gain": 2.0}]`, 0, true},
		{"malformed json", `{`, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sounds, err := ParseSounds([]byte(tt.input))
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && len(sounds) != tt.count {
				t.Errorf("expected %d sounds, got %d", tt.count, len(sounds))
			}
		})
	}
}

func TestParseSoundsGainDefault(t *testing.T) {
	sounds, err := ParseSounds([]byte(`[{"midi_note": 69}]`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sounds[0].Gain != 1.0 {
		t.Errorf("expected default gain 1.0, got %g", sounds[0].Gain)
	}
	if sounds[0].Duration != 0 {
		t.Errorf("expected unbounded duration, got %g", sounds[0].Duration)
	}
}

func TestWave(t *testing.T) {
	s, err := NewSound(440, 1.0, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	samples := s.Wave(0, 1.0, 8000)
	if len(samples) != 8000 {
		t.Fatalf("expected 8000 samples for one second at 8 kHz, got %d", len(samples))
	}
	if samples[0] != 0 {
		t.Errorf("sine must start at zero, got %v", samples[0])
	}

	// Sample i sits at t = tStart + i/rate regardless of where the window starts.
	continued := s.Wave(0.5, 1.0, 8000)
	if len(continued) != 4000 {
		t.Fatalf("expected 4000 samples, got %d", len(continued))
	}
	expected := math.Sin(2 * math.Pi * 440 * 0.5)
	if math.Abs(float64(continued[0])-expected) > 1e-6 {
		t.Errorf("expected first sample near %v, got %v", expected, continued[0])
	}
}

func TestWaveGain(t *testing.T) {
	s, err := NewSound(440, 0.25, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i, v := range s.Wave(0, 0.1, 8000) {
		if v > 0.25 || v < -0.25 {
			t.Fatalf("sample %d exceeds gain bound: %v", i, v)
		}
	}
}

func TestWaveEmptyWindow(t *testing.T) {
	s, err := NewSound(440, 1.0, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := s.Wave(1.0, 1.0, 8000); got != nil {
		t.Errorf("expected nil for empty window, got %d samples", len(got))
	}
	if got := s.Wave(1.0, 0.5, 8000); got != nil {
		t.Errorf("expected nil for inverted window, got %d samples", len(got))
	}
}
