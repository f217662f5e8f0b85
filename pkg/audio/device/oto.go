// ABOUTME: oto-based playback-only resolver
// ABOUTME: Adapts oto's pull model to the callback contract through an io.Reader shim
package device

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/ebitengine/oto/v3"

	"github.com/soundweave/soundweave-go/pkg/audio"
)

// ErrPlaybackOnly is returned by Oto for capture and duplex streams.
var ErrPlaybackOnly = errors.New("device: oto backend is playback-only")

// Oto resolves playback through the oto library. It cannot enumerate or
// capture; it exists as a fallback where miniaudio is unavailable.
type Oto struct {
	mu         sync.Mutex
	ctx        *oto.Context
	sampleRate int
	channels   int
}

// NewOto creates an oto-backed resolver. The underlying context is created
// lazily on the first OpenOutput, since oto allows only one per process.
func NewOto() *Oto { return &Oto{} }

// List reports the single default output device oto plays through.
func (o *Oto) List(cat Category) ([]Info, error) {
	if cat == CategoryInput {
		return nil, nil
	}
	return []Info{{
		Name:              "default",
		ID:                "default",
		HostAPI:           "oto",
		MaxOutputChannels: 2,
		DefaultSampleRate: 44100,
		IsDefault:         true,
	}}, nil
}

// OpenOutput opens a playback stream driven by fn.
func (o *Oto) OpenOutput(cfg StreamConfig, fn OutputFunc) (Stream, error) {
	if cfg.Device != "" && cfg.Device != "default" {
		return nil, fmt.Errorf("oto backend cannot select device %q", cfg.Device)
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.ctx == nil {
		op := &oto.NewContextOptions{
			SampleRate:   cfg.SampleRate,
			ChannelCount: cfg.Channels,
			Format:       oto.FormatFloat32LE,
		}
		ctx, ready, err := oto.NewContext(op)
		if err != nil {
			return nil, fmt.Errorf("create oto context: %w", err)
		}
		<-ready
		o.ctx = ctx
		o.sampleRate = cfg.SampleRate
		o.channels = cfg.Channels
	} else if o.sampleRate != cfg.SampleRate || o.channels != cfg.Channels {
		// oto fixes the format at context creation for the process lifetime.
		return nil, fmt.Errorf("oto context is %dHz/%dch, cannot reopen as %dHz/%dch",
			o.sampleRate, o.channels, cfg.SampleRate, cfg.Channels)
	}

	s := &otoStream{done: make(chan error, 1)}
	r := &callbackReader{
		fn:      fn,
		stream:  s,
		scratch: make([]float32, cfg.BlockSize*cfg.Channels),
	}
	s.player = o.ctx.NewPlayer(r)
	return s, nil
}

// OpenInput is unsupported.
func (o *Oto) OpenInput(StreamConfig, InputFunc) (Stream, error) {
	return nil, ErrPlaybackOnly
}

// OpenDuplex is unsupported.
func (o *Oto) OpenDuplex(DuplexConfig, DuplexFunc) (Stream, error) {
	return nil, ErrPlaybackOnly
}

// Close releases nothing: the oto context cannot be torn down before process
// exit, so it is kept for a later OpenOutput with the same format.
func (o *Oto) Close() error { return nil }

type otoStream struct {
	player    *oto.Player
	done      chan error
	once      sync.Once
	closeOnce sync.Once
}

func (s *otoStream) finish(err error) {
	s.once.Do(func() { s.done <- err })
}

func (s *otoStream) Start() error {
	s.player.Play()
	return nil
}

func (s *otoStream) Done() <-chan error { return s.done }

func (s *otoStream) Close() error {
	var err error
	s.closeOnce.Do(func() { err = s.player.Close() })
	return err
}

// callbackReader turns oto's pull-style Read into one callback invocation
// per block, buffering the encoded remainder between reads.
type callbackReader struct {
	fn      OutputFunc
	stream  *otoStream
	scratch []float32
	pending []byte
	eof     bool
}

func (r *callbackReader) Read(p []byte) (int, error) {
	if len(r.pending) == 0 {
		if r.eof {
			return 0, io.EOF
		}
		act := r.fn(r.scratch)
		if act.Done() {
			r.eof = true
			r.stream.finish(act.Err())
			return 0, io.EOF
		}
		buf := make([]byte, len(r.scratch)*4)
		audio.Float32ToBytes(r.scratch, buf)
		r.pending = buf
	}

	n := copy(p, r.pending)
	r.pending = r.pending[n:]
	return n, nil
}
