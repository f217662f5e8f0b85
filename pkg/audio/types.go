// ABOUTME: Core audio type definitions
// ABOUTME: Defines sample blocks and PCM conversion helpers shared by all components
package audio

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"
)

// Block is a fixed-length chunk of interleaved float32 samples, the unit of
// exchange between producers and the real-time callback.
type Block struct {
	Samples    []float32 // interleaved, Channels samples per frame
	Channels   int
	SampleRate int
}

// Frames returns the number of sample frames in the block.
func (b Block) Frames() int {
	if b.Channels <= 0 {
		return len(b.Samples)
	}
	return len(b.Samples) / b.Channels
}

// Duration returns the playback time covered by the block.
func (b Block) Duration() time.Duration {
	if b.SampleRate <= 0 {
		return 0
	}
	return time.Duration(b.Frames()) * time.Second / time.Duration(b.SampleRate)
}

// Clone returns a copy of the block with its own sample storage.
func (b Block) Clone() Block {
	samples := make([]float32, len(b.Samples))
	copy(samples, b.Samples)
	return Block{Samples: samples, Channels: b.Channels, SampleRate: b.SampleRate}
}

// ExpandChannels interleaves a mono signal across the given channel count.
// A channel count of 1 returns the input unchanged.
func ExpandChannels(mono []float32, channels int) []float32 {
	if channels <= 1 {
		return mono
	}
	out := make([]float32, len(mono)*channels)
	for i, s := range mono {
		for ch := 0; ch < channels; ch++ {
			out[i*channels+ch] = s
		}
	}
	return out
}

// Float32ToBytes writes samples into dst as little-endian IEEE 754 values.
// dst must hold at least 4 bytes per sample.
func Float32ToBytes(samples []float32, dst []byte) {
	for i, s := range samples {
		binary.LittleEndian.PutUint32(dst[i*4:], math.Float32bits(s))
	}
}

// BytesToFloat32 reads little-endian IEEE 754 values from src into dst.
// src must hold at least 4 bytes per sample.
func BytesToFloat32(src []byte, dst []float32) {
	for i := range dst {
		dst[i] = math.Float32frombits(binary.LittleEndian.Uint32(src[i*4:]))
	}
}

// PCMScale returns the scaling divisor between integer PCM of the given bit
// depth and normalized float32 samples.
func PCMScale(bitDepth int) (float32, error) {
	switch bitDepth {
	case 16:
		return 32768.0, nil
	case 24:
		return 8388608.0, nil
	case 32:
		return 2147483648.0, nil
	default:
		return 0, fmt.Errorf("unsupported bit depth: %d", bitDepth)
	}
}
