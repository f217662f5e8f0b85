// ABOUTME: Pass-through session: one duplex callback copies input to output
// ABOUTME: No intermediate queue, the hand-off is in-callback for minimal latency
package soundweave

import (
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/soundweave/soundweave-go/pkg/audio/device"
)

// PassthroughParams describes one pass-through session.
type PassthroughParams struct {
	// InputDevice / OutputDevice override the engine defaults.
	InputDevice  string
	OutputDevice string
	// SampleRate defaults to the input device's reported rate, else 44100.
	SampleRate int
	// Channels defaults to 1.
	Channels int
	// BlockSize defaults to the engine's output block size.
	BlockSize int
	// Duration bounds the session in seconds; 0 runs until stopped.
	Duration float64
}

// Passthrough routes captured input directly to the output device until the
// duration elapses or either StopPlayback or StopRecording is called. Both
// state machines run for the session and both are forced Stopped afterward.
func (e *Engine) Passthrough(p PassthroughParams) error {
	releasePlay := e.acquire(e.states.Playback, e.playMu)
	defer releasePlay()
	releaseRec := e.acquire(e.states.Recording, e.recMu)
	defer releaseRec()

	return e.runPassthrough(p)
}

func (e *Engine) runPassthrough(p PassthroughParams) error {
	if p.BlockSize <= 0 {
		p.BlockSize = e.cfg.OutputBlockSize
	}
	if p.Channels <= 0 {
		p.Channels = DefaultChannels
	}
	if p.InputDevice == "" {
		p.InputDevice = e.cfg.InputDevice
	}
	if p.OutputDevice == "" {
		p.OutputDevice = e.cfg.OutputDevice
	}
	if p.SampleRate <= 0 {
		p.SampleRate = e.defaultInputRate(p.InputDevice)
	}

	play, rec := e.states.Playback, e.states.Recording
	if err := rec.Start(); err != nil {
		return err
	}
	defer rec.Stop()
	if err := play.Start(); err != nil {
		return err
	}
	defer play.Stop()

	stream, err := e.cfg.Resolver.OpenDuplex(device.DuplexConfig{
		InputDevice:  p.InputDevice,
		OutputDevice: p.OutputDevice,
		SampleRate:   p.SampleRate,
		Channels:     p.Channels,
		BlockSize:    p.BlockSize,
	}, passthroughCallback(play, rec))
	if err != nil {
		return deviceErr(err)
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return deviceErr(err)
	}

	session := uuid.NewString()[:8]
	log.Printf("passthrough %s: started from device [%s] to device [%s], %d Hz, %d channels",
		session, deviceLabel(p.InputDevice), deviceLabel(p.OutputDevice), p.SampleRate, p.Channels)

	var deadline <-chan time.Time
	if p.Duration > 0 {
		timer := time.NewTimer(time.Duration(p.Duration * float64(time.Second)))
		defer timer.Stop()
		deadline = timer.C
	}

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case err := <-stream.Done():
			if err != nil {
				return err
			}
			log.Printf("passthrough %s: completed", session)
			return nil
		case <-deadline:
			log.Printf("passthrough %s: duration elapsed", session)
			return nil
		case <-ticker.C:
			// An external StopRecording/StopPlayback ends the session even
			// if the device never invokes the callback again.
			if rec.State() == Stopped || play.State() == Stopped {
				log.Printf("passthrough %s: stopped", session)
				return nil
			}
		}
	}
}

// passthroughCallback runs on the device's real-time thread: it copies the
// captured block straight into the output block. The recording machine gates
// the pause wait; a stop on either machine ends the stream.
func passthroughCallback(play, rec *Machine) device.DuplexFunc {
	return func(in, out []float32) device.Action {
		if rec.WaitNotPaused() == Stopped {
			return device.Complete
		}
		if play.State() == Stopped {
			return device.Complete
		}
		n := copy(out, in)
		zeroSamples(out[n:])
		return device.Continue
	}
}
