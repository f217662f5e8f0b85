// ABOUTME: Playback session: queue pre-fill, producer loop, real-time output callback
// ABOUTME: Distinguishes end-of-source (queue drained) from a true underflow
package soundweave

import (
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/soundweave/soundweave-go/pkg/audio"
	"github.com/soundweave/soundweave-go/pkg/audio/codec"
	"github.com/soundweave/soundweave-go/pkg/audio/device"
	"github.com/soundweave/soundweave-go/pkg/audio/queue"
	"github.com/soundweave/soundweave-go/pkg/audio/synth"
)

// PlayParams describes one playback session. Exactly one of File and Sounds
// must be set.
type PlayParams struct {
	// File is a decodable audio file path (.wav, .mp3, .flac).
	File string
	// Sounds are synthetic tone descriptors. Only the first is honored;
	// mixing is unsupported.
	Sounds []synth.Sound
	// Device overrides the engine's default output device.
	Device string
	// SampleRate / Channels default to the file metadata, or 44100 Hz mono
	// for synthesis.
	SampleRate int
	Channels   int
	// BlockSize / BufferDepth default to the engine configuration.
	BlockSize   int
	BufferDepth int
}

// blockSource produces the session's audio blocks. next returns io.EOF once
// the source is exhausted.
type blockSource interface {
	next() (audio.Block, error)
	close() error
}

type fileSource struct {
	stream codec.ReadStream
	frames int
}

func (s *fileSource) next() (audio.Block, error) { return s.stream.ReadBlock(s.frames) }
func (s *fileSource) close() error               { return s.stream.Close() }

// synthSource renders a tone block by block. The cursor is kept in integer
// frames so a bounded duration yields an exact total sample count.
type synthSource struct {
	sound      synth.Sound
	sampleRate int
	channels   int
	frames     int
	cursor     int64
	total      int64 // total frames for a bounded duration, -1 otherwise
}

func newSynthSource(sound synth.Sound, sampleRate, channels, frames int) *synthSource {
	total := int64(-1)
	if sound.Duration > 0 {
		total = int64(sound.Duration*float64(sampleRate) + 0.5)
	}
	return &synthSource{
		sound:      sound,
		sampleRate: sampleRate,
		channels:   channels,
		frames:     frames,
		total:      total,
	}
}

func (s *synthSource) next() (audio.Block, error) {
	n := int64(s.frames)
	if s.total >= 0 {
		remain := s.total - s.cursor
		if remain <= 0 {
			return audio.Block{}, io.EOF
		}
		if n > remain {
			n = remain
		}
	}

	tStart := float64(s.cursor) / float64(s.sampleRate)
	tEnd := float64(s.cursor+n) / float64(s.sampleRate)
	mono := s.sound.Wave(tStart, tEnd, s.sampleRate)
	s.cursor += n

	return audio.Block{
		Samples:    audio.ExpandChannels(mono, s.channels),
		Channels:   s.channels,
		SampleRate: s.sampleRate,
	}, nil
}

func (s *synthSource) close() error { return nil }

// Play runs one playback session to completion: source exhausted, explicit
// StopPlayback, or error. A session already Active or Paused is stopped and
// fully torn down first.
func (e *Engine) Play(p PlayParams) error {
	if (p.File == "") == (len(p.Sounds) == 0) {
		return fmt.Errorf("%w: specify either a file to play or a list of sounds", ErrInvalidArgument)
	}

	release := e.acquire(e.states.Playback, e.playMu)
	defer release()

	return e.runPlayback(p)
}

func (e *Engine) runPlayback(p PlayParams) error {
	if p.BlockSize <= 0 {
		p.BlockSize = e.cfg.OutputBlockSize
	}
	if p.BufferDepth <= 0 {
		p.BufferDepth = e.cfg.BufferDepth
	}
	if p.Device == "" {
		p.Device = e.cfg.OutputDevice
	}

	var src blockSource
	if p.File != "" {
		rs, err := codec.OpenReadable(p.File)
		if err != nil {
			return fmt.Errorf("open playback source: %w", err)
		}
		if p.SampleRate <= 0 {
			p.SampleRate = rs.SampleRate()
		}
		if p.Channels <= 0 {
			p.Channels = rs.Channels()
		}
		src = &fileSource{stream: rs, frames: p.BlockSize}
	} else {
		if len(p.Sounds) > 1 {
			log.Printf("play: %d sounds given, only the first is honored", len(p.Sounds))
		}
		if p.SampleRate <= 0 {
			p.SampleRate = DefaultSampleRate
		}
		if p.Channels <= 0 {
			p.Channels = DefaultChannels
		}
		src = newSynthSource(p.Sounds[0], p.SampleRate, p.Channels, p.BlockSize)
	}
	defer src.close()

	st := e.states.Playback
	if err := st.Start(); err != nil {
		return err
	}
	defer st.Stop()

	session := uuid.NewString()[:8]
	q := queue.NewBounded(p.BufferDepth)

	// Pre-fill the queue before the device stream opens, to absorb
	// callback-thread jitter.
	exhausted := false
	prefilled := 0
	for i := 0; i < p.BufferDepth; i++ {
		if st.WaitNotPaused() == Stopped {
			return nil
		}
		blk, err := src.next()
		if errors.Is(err, io.EOF) {
			exhausted = true
			q.Close()
			break
		}
		if err != nil {
			return fmt.Errorf("produce block: %w", err)
		}
		if err := q.TryPut(blk); err != nil {
			return fmt.Errorf("pre-fill queue: %w", err)
		}
		prefilled++
	}
	log.Printf("playback %s: pre-filled %d/%d blocks", session, prefilled, p.BufferDepth)

	stream, err := e.cfg.Resolver.OpenOutput(device.StreamConfig{
		Device:     p.Device,
		SampleRate: p.SampleRate,
		Channels:   p.Channels,
		BlockSize:  p.BlockSize,
	}, playbackCallback(st, q))
	if err != nil {
		return deviceErr(err)
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return deviceErr(err)
	}
	log.Printf("playback %s: started on device [%s], %d Hz, %d channels",
		session, deviceLabel(p.Device), p.SampleRate, p.Channels)

	// One buffer's worth of playback time: if the callback has not drained
	// a slot in that long while we are not paused, it has stalled.
	putTimeout := time.Duration(p.BlockSize*p.BufferDepth) * time.Second / time.Duration(p.SampleRate)

	fatal := make(chan error, 1)
	prodDone := make(chan struct{})
	if !exhausted {
		go func() {
			defer close(prodDone)
			produceBlocks(st, src, q, putTimeout, fatal)
		}()
	} else {
		close(prodDone)
	}
	// The producer reads from src; stop it and wait before the deferred
	// src.close runs.
	defer func() {
		st.Stop()
		<-prodDone
	}()

	select {
	case err := <-stream.Done():
		if err != nil {
			return err
		}
		// The callback sees a drained queue as a clean completion, so a
		// producer failure can race a nil Done; the fatal reason wins.
		select {
		case err := <-fatal:
			return err
		default:
		}
		log.Printf("playback %s: completed", session)
		return nil
	case err := <-fatal:
		return err
	}
}

// produceBlocks is the playback worker loop: it renders or decodes blocks
// and feeds the bounded queue until the source is exhausted or the session
// stops. Only fatal errors are sent on the fatal channel.
func produceBlocks(st *Machine, src blockSource, q *queue.Bounded, putTimeout time.Duration, fatal chan<- error) {
	for {
		if st.WaitNotPaused() == Stopped {
			q.Close()
			return
		}

		blk, err := src.next()
		if errors.Is(err, io.EOF) {
			q.Close()
			return
		}
		if err != nil {
			// Publish the reason before closing the queue: the callback
			// treats a drained queue as a clean completion.
			fatal <- fmt.Errorf("produce block: %w", err)
			q.Close()
			return
		}

		for {
			err := q.Put(blk, putTimeout)
			if err == nil {
				break
			}
			if !errors.Is(err, queue.ErrQueueFull) {
				return
			}
			switch st.State() {
			case Paused:
				// The callback holds off while paused; keep waiting.
				continue
			case Stopped:
				q.Close()
				return
			default:
				fatal <- fmt.Errorf("%w: callback did not drain a block in %v", ErrBufferStalled, putTimeout)
				q.Close()
				return
			}
		}
	}
}

// playbackCallback runs on the device's real-time thread. Its only blocking
// point is the bounded pause wait; everything else is a non-blocking get and
// a copy.
func playbackCallback(st *Machine, q *queue.Bounded) device.OutputFunc {
	return func(out []float32) device.Action {
		if st.WaitNotPaused() == Stopped {
			return device.Complete
		}

		blk, err := q.TryGet()
		switch {
		case err == nil:
			n := copy(out, blk.Samples)
			zeroSamples(out[n:])
			return device.Continue
		case errors.Is(err, queue.ErrQueueDrained):
			// Source exhausted and every block consumed: a normal end,
			// not an underflow.
			zeroSamples(out)
			return device.Complete
		default:
			log.Printf("playback: buffer is empty, padding with silence (increase buffer depth?)")
			zeroSamples(out)
			return device.AbortWith(ErrBufferUnderflow)
		}
	}
}

func zeroSamples(s []float32) {
	for i := range s {
		s[i] = 0
	}
}

func deviceLabel(name string) string {
	if name == "" {
		return "system default"
	}
	return name
}
