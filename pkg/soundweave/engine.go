// ABOUTME: Engine facade: play, record, pass-through and their state controls
// ABOUTME: Serializes sessions so no two device streams of one kind ever overlap
package soundweave

import (
	"fmt"
	"log"
	"time"

	"github.com/soundweave/soundweave-go/pkg/audio/device"
)

// Engine defaults, matching the synth path of the original plugin surface.
const (
	DefaultSampleRate  = 44100
	DefaultChannels    = 1
	DefaultBlockSize   = 2048
	DefaultBufferDepth = 20

	// defaultSettleDelay gives the driver time to release device handles
	// between a stopped session and the one replacing it.
	defaultSettleDelay = 250 * time.Millisecond
)

// Config configures an Engine.
type Config struct {
	// Resolver opens device streams. Required.
	Resolver device.Resolver
	// InputDevice / OutputDevice select defaults by decoded ID or name
	// substring; empty means the system default.
	InputDevice  string
	OutputDevice string
	// InputBlockSize / OutputBlockSize default to DefaultBlockSize.
	InputBlockSize  int
	OutputBlockSize int
	// BufferDepth is the playback queue depth in blocks, default 20.
	BufferDepth int
	// SettleDelay overrides the inter-session settling delay; 0 keeps the
	// default.
	SettleDelay time.Duration
}

// Engine drives playback, recording and pass-through against an audio
// device. All session methods block for the session's lifetime; the state
// controls are safe to call from other goroutines.
type Engine struct {
	cfg    Config
	states *StateController

	// playMu and recMu serialize sessions of each kind. Pass-through takes
	// both, always playMu first.
	playMu chan struct{}
	recMu  chan struct{}
}

// New validates the configuration and returns an Engine.
func New(cfg Config) (*Engine, error) {
	if cfg.Resolver == nil {
		return nil, fmt.Errorf("%w: resolver is required", ErrInvalidArgument)
	}
	if cfg.InputBlockSize <= 0 {
		cfg.InputBlockSize = DefaultBlockSize
	}
	if cfg.OutputBlockSize <= 0 {
		cfg.OutputBlockSize = DefaultBlockSize
	}
	if cfg.BufferDepth <= 0 {
		cfg.BufferDepth = DefaultBufferDepth
	}
	if cfg.SettleDelay <= 0 {
		cfg.SettleDelay = defaultSettleDelay
	}

	e := &Engine{
		cfg:    cfg,
		states: NewStateController(),
		playMu: make(chan struct{}, 1),
		recMu:  make(chan struct{}, 1),
	}
	return e, nil
}

// State returns the current playback and recording states.
func (e *Engine) State() (playback, recording State) {
	return e.states.Playback.State(), e.states.Recording.State()
}

// StopPlayback stops the running playback session, if any.
func (e *Engine) StopPlayback() {
	e.states.Playback.Stop()
	log.Printf("playback stopped")
}

// PausePlayback toggles playback between Active and Paused and returns the
// resulting state. No-op while Stopped.
func (e *Engine) PausePlayback() State {
	s := e.states.Playback.TogglePause()
	log.Printf("playback paused state toggled: %s", s)
	return s
}

// StopRecording stops the running recording or pass-through session, if any.
func (e *Engine) StopRecording() {
	e.states.Recording.Stop()
	log.Printf("recording stopped")
}

// PauseRecording toggles recording between Active and Paused and returns the
// resulting state. No-op while Stopped.
func (e *Engine) PauseRecording() State {
	s := e.states.Recording.TogglePause()
	log.Printf("recording paused state toggled: %s", s)
	return s
}

// ListDevices enumerates devices through the configured resolver.
func (e *Engine) ListDevices(cat device.Category) ([]device.Info, error) {
	return e.cfg.Resolver.List(cat)
}

// acquire serializes sessions on the given machine: the running session is
// asked to stop, the session lock is taken once it has fully torn down, and
// the driver gets a settling delay before the next stream opens. The stop is
// re-issued while waiting, since the holder may reach Active only after the
// first check (a session takes the lock before it starts its machine).
func (e *Engine) acquire(m *Machine, lock chan struct{}) func() {
	settle := false
	for {
		if m.State() != Stopped {
			log.Printf("stopping previous session before starting a new one")
			m.Stop()
			settle = true
		}
		select {
		case lock <- struct{}{}:
			if settle {
				time.Sleep(e.cfg.SettleDelay)
			}
			return func() { <-lock }
		case <-time.After(10 * time.Millisecond):
		}
	}
}
