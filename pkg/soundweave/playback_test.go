// ABOUTME: Unit tests for the playback block sources
// ABOUTME: The synth source must render an exact frame total for bounded tones
package soundweave

import (
	"errors"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soundweave/soundweave-go/pkg/audio"
	"github.com/soundweave/soundweave-go/pkg/audio/codec"
	"github.com/soundweave/soundweave-go/pkg/audio/queue"
	"github.com/soundweave/soundweave-go/pkg/audio/synth"
)

func TestSynthSourceExactFrameTotal(t *testing.T) {
	tests := []struct {
		name       string
		duration   float64
		sampleRate int
		frames     int
		expected   int
	}{
		{"one second at 8 kHz", 1.0, 8000, 400, 8000},
		{"block size does not divide the total", 1.0, 8000, 300, 8000},
		{"short tone", 0.25, 44100, 2048, 11025},
		{"sub-block tone", 0.01, 8000, 400, 80},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := synth.NewSound(440, 1.0, tt.duration)
			require.NoError(t, err)
			src := newSynthSource(s, tt.sampleRate, 1, tt.frames)

			var total int
			for {
				blk, err := src.next()
				if errors.Is(err, io.EOF) {
					break
				}
				require.NoError(t, err)
				assert.LessOrEqual(t, blk.Frames(), tt.frames)
				total += blk.Frames()
			}
			assert.Equal(t, tt.expected, total)

			// EOF is sticky.
			_, err = src.next()
			assert.ErrorIs(t, err, io.EOF)
		})
	}
}

func TestSynthSourceChannelExpansion(t *testing.T) {
	s, err := synth.NewSound(440, 1.0, 0.05)
	require.NoError(t, err)
	src := newSynthSource(s, 8000, 2, 100)

	blk, err := src.next()
	require.NoError(t, err)
	assert.Equal(t, 2, blk.Channels)
	assert.Equal(t, 100, blk.Frames())
	assert.Len(t, blk.Samples, 200)

	// Interleaved stereo duplicates the mono sample on both channels.
	for i := 0; i < len(blk.Samples); i += 2 {
		assert.Equal(t, blk.Samples[i], blk.Samples[i+1])
	}
}

func TestSynthSourceUnbounded(t *testing.T) {
	s, err := synth.NewSound(440, 0.5, 0)
	require.NoError(t, err)
	src := newSynthSource(s, 8000, 1, 256)

	for i := 0; i < 100; i++ {
		blk, err := src.next()
		require.NoError(t, err)
		assert.Equal(t, 256, blk.Frames())
	}
}

func TestPlayFileCompletes(t *testing.T) {
	const (
		rate   = 8000
		frames = 1600 // 0.2 s
	)
	path := filepath.Join(t.TempDir(), "clip.wav")

	sink, err := codec.OpenWritable(path, rate, 1, codec.SubtypePCM16)
	require.NoError(t, err)
	tone, err := synth.NewSound(440, 0.8, 0)
	require.NoError(t, err)
	require.NoError(t, sink.Write(audio.Block{
		Samples:    tone.Wave(0, float64(frames)/rate, rate),
		Channels:   1,
		SampleRate: rate,
	}))
	require.NoError(t, sink.Close())

	r := newFakeResolver()
	e := newTestEngine(t, r)

	// Format defaults come from the file metadata.
	err = e.Play(PlayParams{File: path, BlockSize: 400, BufferDepth: 4})
	require.NoError(t, err)

	assert.Equal(t, rate, r.lastOutput.SampleRate)
	assert.Equal(t, 1, r.lastOutput.Channels)
	assert.Len(t, lastStream(t, r).outputBlocks(), frames/400)

	playback, _ := e.State()
	assert.Equal(t, Stopped, playback)
}

func TestPlayMissingFile(t *testing.T) {
	e := newTestEngine(t, newFakeResolver())
	err := e.Play(PlayParams{File: filepath.Join(t.TempDir(), "absent.wav")})
	assert.Error(t, err)
}

// erroringSource yields a few blocks, then a non-EOF failure.
type erroringSource struct {
	blocks int
	err    error
}

func (s *erroringSource) next() (audio.Block, error) {
	if s.blocks == 0 {
		return audio.Block{}, s.err
	}
	s.blocks--
	return audio.Block{Samples: make([]float32, 4), Channels: 1, SampleRate: 8000}, nil
}

func (s *erroringSource) close() error { return nil }

func TestProducerErrorVisibleAtDrain(t *testing.T) {
	st := NewMachine()
	require.NoError(t, st.Start())

	boom := errors.New("decode failed")
	src := &erroringSource{blocks: 3, err: boom}
	q := queue.NewBounded(8)
	fatal := make(chan error, 1)

	go produceBlocks(st, src, q, time.Second, fatal)

	for {
		_, err := q.Get(time.Second)
		if err == nil {
			continue
		}
		require.ErrorIs(t, err, queue.ErrQueueDrained)
		break
	}

	// The end-of-stream signal must never outrun the fatal reason: the
	// playback callback treats a drained queue as a clean completion and
	// would otherwise mask the failure.
	select {
	case err := <-fatal:
		assert.ErrorIs(t, err, boom)
	default:
		t.Fatal("queue drained before the failure was published")
	}
}

func TestSynthSourcePhaseContinuity(t *testing.T) {
	s, err := synth.NewSound(440, 1.0, 0.1)
	require.NoError(t, err)

	src := newSynthSource(s, 8000, 1, 128)
	var chunked []float32
	for {
		blk, err := src.next()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		chunked = append(chunked, blk.Samples...)
	}

	whole := s.Wave(0, 0.1, 8000)
	require.Len(t, chunked, len(whole))
	for i := range whole {
		assert.InDelta(t, whole[i], chunked[i], 1e-6, "sample %d", i)
	}
}
