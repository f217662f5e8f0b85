// ABOUTME: WAV file reader and writer built on go-audio
// ABOUTME: Converts between integer PCM on disk and normalized float32 blocks
package codec

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/soundweave/soundweave-go/pkg/audio"
)

type wavReader struct {
	file       *os.File
	dec        *wav.Decoder
	sampleRate int
	channels   int
	scale      float32
}

func newWAVReader(path string) (*wavReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open WAV file: %w", err)
	}

	dec := wav.NewDecoder(f)
	dec.ReadInfo()
	if !dec.IsValidFile() {
		f.Close()
		return nil, errors.New("input is not a valid WAV audio file")
	}

	scale, err := audio.PCMScale(int(dec.BitDepth))
	if err != nil {
		f.Close()
		return nil, err
	}

	return &wavReader{
		file:       f,
		dec:        dec,
		sampleRate: int(dec.SampleRate),
		channels:   int(dec.NumChans),
		scale:      scale,
	}, nil
}

func (r *wavReader) SampleRate() int { return r.sampleRate }
func (r *wavReader) Channels() int   { return r.channels }

func (r *wavReader) ReadBlock(frames int) (audio.Block, error) {
	buf := &goaudio.IntBuffer{
		Format: &goaudio.Format{NumChannels: r.channels, SampleRate: r.sampleRate},
		Data:   make([]int, frames*r.channels),
	}

	n, err := r.dec.PCMBuffer(buf)
	if err != nil {
		return audio.Block{}, fmt.Errorf("read WAV block: %w", err)
	}
	if n == 0 {
		return audio.Block{}, io.EOF
	}

	samples := make([]float32, n)
	for i := 0; i < n; i++ {
		samples[i] = float32(buf.Data[i]) / r.scale
	}
	return audio.Block{Samples: samples, Channels: r.channels, SampleRate: r.sampleRate}, nil
}

func (r *wavReader) Close() error { return r.file.Close() }

type wavWriter struct {
	file   *os.File
	enc    *wav.Encoder
	format *goaudio.Format
	depth  int
	scale  float32

	closeOnce sync.Once
	closeErr  error
}

func newWAVWriter(path string, sampleRate, channels int, subtype string) (*wavWriter, error) {
	var depth int
	switch subtype {
	case SubtypePCM16:
		depth = 16
	case SubtypePCM24, "":
		depth = 24
	case SubtypePCM32:
		depth = 32
	default:
		return nil, fmt.Errorf("unsupported subtype %q", subtype)
	}

	scale, err := audio.PCMScale(depth)
	if err != nil {
		return nil, err
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create WAV file: %w", err)
	}

	return &wavWriter{
		file:   f,
		enc:    wav.NewEncoder(f, sampleRate, depth, channels, 1),
		format: &goaudio.Format{NumChannels: channels, SampleRate: sampleRate},
		depth:  depth,
		scale:  scale,
	}, nil
}

func (w *wavWriter) Write(b audio.Block) error {
	data := make([]int, len(b.Samples))
	max := w.scale - 1
	for i, s := range b.Samples {
		v := s * w.scale
		if v > max {
			v = max
		} else if v < -w.scale {
			v = -w.scale
		}
		data[i] = int(v)
	}

	buf := &goaudio.IntBuffer{Format: w.format, Data: data, SourceBitDepth: w.depth}
	if err := w.enc.Write(buf); err != nil {
		return fmt.Errorf("write WAV block: %w", err)
	}
	return nil
}

func (w *wavWriter) Flush() error { return w.file.Sync() }

// Close finalizes the WAV header and closes the file. Safe to call more than
// once; only the first call takes effect.
func (w *wavWriter) Close() error {
	w.closeOnce.Do(func() {
		if err := w.enc.Close(); err != nil {
			w.closeErr = fmt.Errorf("finalize WAV encoder: %w", err)
		}
		if err := w.file.Close(); err != nil && w.closeErr == nil {
			w.closeErr = err
		}
	})
	return w.closeErr
}
