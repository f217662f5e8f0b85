// ABOUTME: MP3 file reader built on hajimehoshi/go-mp3
// ABOUTME: The decoder always emits 16-bit stereo at the source sample rate
package codec

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	mp3 "github.com/hajimehoshi/go-mp3"

	"github.com/soundweave/soundweave-go/pkg/audio"
)

// mp3Channels is fixed by the decoder, which upmixes mono sources.
const mp3Channels = 2

type mp3Reader struct {
	file       *os.File
	dec        *mp3.Decoder
	sampleRate int
}

func newMP3Reader(path string) (*mp3Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open MP3 file: %w", err)
	}

	dec, err := mp3.NewDecoder(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("decode MP3: %w", err)
	}

	return &mp3Reader{file: f, dec: dec, sampleRate: dec.SampleRate()}, nil
}

func (r *mp3Reader) SampleRate() int { return r.sampleRate }
func (r *mp3Reader) Channels() int   { return mp3Channels }

func (r *mp3Reader) ReadBlock(frames int) (audio.Block, error) {
	// 2 bytes per sample, int16 little-endian interleaved.
	buf := make([]byte, frames*mp3Channels*2)
	n, err := io.ReadFull(r.dec, buf)
	if n == 0 {
		if err == nil || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return audio.Block{}, io.EOF
		}
		return audio.Block{}, fmt.Errorf("read MP3 block: %w", err)
	}
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return audio.Block{}, fmt.Errorf("read MP3 block: %w", err)
	}

	numSamples := n / 2
	samples := make([]float32, numSamples)
	for i := 0; i < numSamples; i++ {
		s := int16(binary.LittleEndian.Uint16(buf[i*2:]))
		samples[i] = float32(s) / 32768.0
	}
	return audio.Block{Samples: samples, Channels: mp3Channels, SampleRate: r.sampleRate}, nil
}

func (r *mp3Reader) Close() error { return r.file.Close() }
