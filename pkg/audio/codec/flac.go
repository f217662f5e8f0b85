// ABOUTME: FLAC file reader built on mewkiz/flac frame parsing
// ABOUTME: Interleaves subframe samples and carries the remainder across reads
package codec

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/mewkiz/flac"

	"github.com/soundweave/soundweave-go/pkg/audio"
)

type flacReader struct {
	file       *os.File
	stream     *flac.Stream
	sampleRate int
	channels   int
	scale      float32

	// pending holds interleaved samples decoded beyond the last ReadBlock.
	pending []float32
	eof     bool
}

func newFLACReader(path string) (*flacReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open FLAC file: %w", err)
	}

	stream, err := flac.New(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("decode FLAC: %w", err)
	}

	info := stream.Info
	scale, err := audio.PCMScale(int(info.BitsPerSample))
	if err != nil {
		f.Close()
		return nil, err
	}

	return &flacReader{
		file:       f,
		stream:     stream,
		sampleRate: int(info.SampleRate),
		channels:   int(info.NChannels),
		scale:      scale,
	}, nil
}

func (r *flacReader) SampleRate() int { return r.sampleRate }
func (r *flacReader) Channels() int   { return r.channels }

func (r *flacReader) ReadBlock(frames int) (audio.Block, error) {
	want := frames * r.channels
	out := make([]float32, 0, want)

	if len(r.pending) > 0 {
		n := len(r.pending)
		if n > want {
			n = want
		}
		out = append(out, r.pending[:n]...)
		r.pending = r.pending[n:]
	}

	for len(out) < want && !r.eof {
		frame, err := r.stream.ParseNext()
		if err != nil {
			if errors.Is(err, io.EOF) {
				r.eof = true
				break
			}
			return audio.Block{}, fmt.Errorf("parse FLAC frame: %w", err)
		}

		for i := 0; i < int(frame.BlockSize); i++ {
			for ch := 0; ch < r.channels; ch++ {
				s := float32(frame.Subframes[ch].Samples[i]) / r.scale
				if len(out) < want {
					out = append(out, s)
				} else {
					r.pending = append(r.pending, s)
				}
			}
		}
	}

	if len(out) == 0 {
		return audio.Block{}, io.EOF
	}
	return audio.Block{Samples: out, Channels: r.channels, SampleRate: r.sampleRate}, nil
}

func (r *flacReader) Close() error { return r.file.Close() }
