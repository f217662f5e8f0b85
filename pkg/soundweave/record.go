// ABOUTME: Recording session: capture callback feeds an unbounded queue, consumer writes the sink
// ABOUTME: Capture never drops a block; the sink is flushed and closed exactly once
package soundweave

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/soundweave/soundweave-go/pkg/audio"
	"github.com/soundweave/soundweave-go/pkg/audio/codec"
	"github.com/soundweave/soundweave-go/pkg/audio/device"
	"github.com/soundweave/soundweave-go/pkg/audio/queue"
)

// RecordParams describes one recording session.
type RecordParams struct {
	// File is the WAV sink path. Empty creates a temporary file.
	File string
	// Device overrides the engine's default input device.
	Device string
	// SampleRate defaults to the input device's reported rate, else 44100.
	SampleRate int
	// Channels defaults to 1.
	Channels int
	// BlockSize defaults to the engine configuration.
	BlockSize int
	// Duration bounds the recording in seconds; 0 records until stopped.
	Duration float64
	// Subtype selects the sink PCM depth (codec.SubtypePCM16/24/32),
	// default pcm_24.
	Subtype string
}

// Record runs one recording session to completion: duration elapsed,
// explicit StopRecording, or error. A session already Active or Paused is
// stopped and fully torn down first.
func (e *Engine) Record(p RecordParams) error {
	release := e.acquire(e.states.Recording, e.recMu)
	defer release()

	return e.runRecording(p)
}

func (e *Engine) runRecording(p RecordParams) error {
	if p.BlockSize <= 0 {
		p.BlockSize = e.cfg.InputBlockSize
	}
	if p.Channels <= 0 {
		p.Channels = DefaultChannels
	}
	if p.Device == "" {
		p.Device = e.cfg.InputDevice
	}
	if p.SampleRate <= 0 {
		p.SampleRate = e.defaultInputRate(p.Device)
	}
	if p.File == "" {
		p.File = filepath.Join(os.TempDir(),
			fmt.Sprintf("soundweave-recording-%s.wav", uuid.NewString()[:8]))
	}

	sink, err := codec.OpenWritable(p.File, p.SampleRate, p.Channels, p.Subtype)
	if err != nil {
		return fmt.Errorf("open recording sink: %w", err)
	}
	closeSink := func() error {
		if ferr := sink.Flush(); ferr != nil {
			sink.Close()
			return ferr
		}
		return sink.Close()
	}

	st := e.states.Recording
	if err := st.Start(); err != nil {
		closeSink()
		return err
	}
	defer st.Stop()

	session := uuid.NewString()[:8]
	capq := queue.NewUnbounded()

	stream, err := e.cfg.Resolver.OpenInput(device.StreamConfig{
		Device:     p.Device,
		SampleRate: p.SampleRate,
		Channels:   p.Channels,
		BlockSize:  p.BlockSize,
	}, recordCallback(st, capq, p.Channels, p.SampleRate))
	if err != nil {
		closeSink()
		return deviceErr(err)
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		closeSink()
		return deviceErr(err)
	}
	log.Printf("recording %s: started from device [%s] to [%s], %d Hz, %d channels",
		session, deviceLabel(p.Device), p.File, p.SampleRate, p.Channels)

	err = consumeCapture(st, stream, capq, sink, p)

	// Stop capture before the final drain so no block arrives after it.
	stream.Close()
	st.Stop()
	capq.Close()
	for {
		blk, derr := capq.Get(0)
		if derr != nil {
			break
		}
		if werr := sink.Write(blk); werr != nil && err == nil {
			err = fmt.Errorf("write recording sink: %w", werr)
			break
		}
	}

	if cerr := closeSink(); cerr != nil && err == nil {
		err = fmt.Errorf("close recording sink: %w", cerr)
	}
	if err == nil {
		log.Printf("recording %s: completed", session)
	}
	return err
}

// consumeCapture drains the capture queue into the sink until the session
// stops, the duration elapses, or an error surfaces.
func consumeCapture(st *Machine, stream device.Stream, capq *queue.Unbounded, sink codec.WriteStream, p RecordParams) error {
	start := time.Now()
	blockInterval := time.Duration(p.BlockSize) * time.Second / time.Duration(p.SampleRate)

	for {
		if st.WaitNotPaused() == Stopped {
			return nil
		}

		var remaining time.Duration
		if p.Duration > 0 {
			remaining = time.Duration(p.Duration*float64(time.Second)) - time.Since(start)
			if remaining <= 0 {
				return nil
			}
		}

		select {
		case serr := <-stream.Done():
			if serr != nil {
				return deviceErr(serr)
			}
			return nil
		default:
		}

		// Wait one expected block cadence (with slack); with a bounded
		// duration, never past its end.
		timeout := 4 * blockInterval
		if p.Duration > 0 && remaining < timeout {
			timeout = remaining
		}

		blk, err := capq.Get(timeout)
		switch {
		case err == nil:
			if werr := sink.Write(blk); werr != nil {
				return fmt.Errorf("write recording sink: %w", werr)
			}
		case errors.Is(err, queue.ErrQueueEmpty):
			if p.Duration > 0 && time.Since(start) < time.Duration(p.Duration*float64(time.Second)) {
				return fmt.Errorf("%w: no captured data in %v", ErrCaptureTimeout, timeout)
			}
		default:
			return nil
		}
	}
}

// recordCallback runs on the device's real-time thread. The delivered slice
// is owned by the driver, so the block is copied before it is enqueued; the
// unbounded queue never drops captured data.
func recordCallback(st *Machine, capq *queue.Unbounded, channels, sampleRate int) device.InputFunc {
	return func(in []float32) device.Action {
		if st.WaitNotPaused() == Stopped {
			return device.Complete
		}
		samples := make([]float32, len(in))
		copy(samples, in)
		if err := capq.Put(audio.Block{Samples: samples, Channels: channels, SampleRate: sampleRate}); err != nil {
			return device.AbortWith(err)
		}
		return device.Continue
	}
}

// defaultInputRate picks the matching input device's reported rate, falling
// back to the engine default when enumeration cannot answer.
func (e *Engine) defaultInputRate(dev string) int {
	infos, err := e.cfg.Resolver.List(device.CategoryInput)
	if err != nil {
		return DefaultSampleRate
	}
	for _, info := range infos {
		match := dev == "" && info.IsDefault ||
			dev != "" && (info.ID == dev || info.Name == dev)
		if match && info.DefaultSampleRate > 0 {
			return int(info.DefaultSampleRate)
		}
	}
	return DefaultSampleRate
}
