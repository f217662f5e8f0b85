// ABOUTME: malgo (miniaudio) implementation of the device resolver
// ABOUTME: Streams run interleaved float32 with a non-blocking data callback
package device

import (
	"encoding/hex"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/gen2brain/malgo"

	"github.com/soundweave/soundweave-go/pkg/audio"
)

// Malgo resolves devices through the miniaudio library.
type Malgo struct {
	mu      sync.Mutex
	ctx     *malgo.AllocatedContext
	hostAPI string
	closed  bool
}

// NewMalgo initializes a miniaudio context with the platform backend.
func NewMalgo() (*Malgo, error) {
	var backends []malgo.Backend
	hostAPI := "miniaudio"
	switch runtime.GOOS {
	case "linux":
		backends = []malgo.Backend{malgo.BackendAlsa}
		hostAPI = "alsa"
	case "windows":
		backends = []malgo.Backend{malgo.BackendWasapi}
		hostAPI = "wasapi"
	case "darwin":
		backends = []malgo.Backend{malgo.BackendCoreaudio}
		hostAPI = "coreaudio"
	}

	ctx, err := malgo.InitContext(backends, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("initialize audio context: %w", err)
	}
	return &Malgo{ctx: ctx, hostAPI: hostAPI}, nil
}

// List enumerates capture and playback devices, merged by decoded ID.
func (m *Malgo) List(cat Category) ([]Info, error) {
	var infos []Info

	if cat == CategoryAll || cat == CategoryOutput {
		playback, err := m.ctx.Devices(malgo.Playback)
		if err != nil {
			return nil, fmt.Errorf("enumerate playback devices: %w", err)
		}
		for _, d := range playback {
			infos = append(infos, m.toInfo(d, 0, int(d.MaxChannels)))
		}
	}

	if cat == CategoryAll || cat == CategoryInput {
		capture, err := m.ctx.Devices(malgo.Capture)
		if err != nil {
			return nil, fmt.Errorf("enumerate capture devices: %w", err)
		}
		for _, d := range capture {
			id := decodeDeviceID(d.ID.String())
			if merged := findByID(infos, id); merged != nil {
				merged.MaxInputChannels = int(d.MaxChannels)
				continue
			}
			infos = append(infos, m.toInfo(d, int(d.MaxChannels), 0))
		}
	}

	return infos, nil
}

func (m *Malgo) toInfo(d malgo.DeviceInfo, maxIn, maxOut int) Info {
	return Info{
		Name:              d.Name(),
		ID:                decodeDeviceID(d.ID.String()),
		HostAPI:           m.hostAPI,
		MaxInputChannels:  maxIn,
		MaxOutputChannels: maxOut,
		DefaultSampleRate: float64(d.MaxSampleRate),
		MinSampleRate:     float64(d.MinSampleRate),
		MaxSampleRate:     float64(d.MaxSampleRate),
		IsDefault:         d.IsDefault == 1,
	}
}

func findByID(infos []Info, id string) *Info {
	for i := range infos {
		if infos[i].ID == id {
			return &infos[i]
		}
	}
	return nil
}

// decodeDeviceID converts miniaudio's hex-encoded device ID to its ASCII
// form where possible (ALSA uses readable IDs).
func decodeDeviceID(hexID string) string {
	b, err := hex.DecodeString(hexID)
	if err != nil {
		return hexID
	}
	return strings.TrimRight(string(b), "\x00")
}

// resolveDeviceID finds the device pointer matching the query by decoded ID
// or name substring. An empty query selects the system default (nil pointer).
func (m *Malgo) resolveDeviceID(kind malgo.DeviceType, query string) (unsafe.Pointer, error) {
	if query == "" {
		return nil, nil
	}

	infos, err := m.ctx.Devices(kind)
	if err != nil {
		return nil, fmt.Errorf("enumerate devices: %w", err)
	}
	for _, d := range infos {
		if decodeDeviceID(d.ID.String()) == query || strings.Contains(d.Name(), query) {
			return d.ID.Pointer(), nil
		}
	}
	return nil, fmt.Errorf("no device matches %q", query)
}

// OpenOutput opens a playback stream driven by fn.
func (m *Malgo) OpenOutput(cfg StreamConfig, fn OutputFunc) (Stream, error) {
	devCfg := malgo.DefaultDeviceConfig(malgo.Playback)
	devCfg.Playback.Format = malgo.FormatF32
	devCfg.Playback.Channels = uint32(cfg.Channels)
	devCfg.SampleRate = uint32(cfg.SampleRate)
	devCfg.PeriodSizeInFrames = uint32(cfg.BlockSize)
	devCfg.Alsa.NoMMap = 1

	id, err := m.resolveDeviceID(malgo.Playback, cfg.Device)
	if err != nil {
		return nil, err
	}
	devCfg.Playback.DeviceID = id

	s := newMalgoStream(cfg.BlockSize * cfg.Channels)
	onData := func(pOutput, pInput []byte, frameCount uint32) {
		n := int(frameCount) * cfg.Channels
		if s.finished.Load() {
			zeroBytes(pOutput[:n*4])
			return
		}
		buf := s.scratch(n)
		act := fn(buf)
		if act.Done() {
			zeroBytes(pOutput[:n*4])
			s.finish(act.Err())
			return
		}
		audio.Float32ToBytes(buf, pOutput)
	}

	dev, err := malgo.InitDevice(m.ctx.Context, devCfg, malgo.DeviceCallbacks{Data: onData})
	if err != nil {
		return nil, fmt.Errorf("initialize playback device: %w", err)
	}
	s.device = dev
	return s, nil
}

// OpenInput opens a capture stream feeding fn.
func (m *Malgo) OpenInput(cfg StreamConfig, fn InputFunc) (Stream, error) {
	devCfg := malgo.DefaultDeviceConfig(malgo.Capture)
	devCfg.Capture.Format = malgo.FormatF32
	devCfg.Capture.Channels = uint32(cfg.Channels)
	devCfg.SampleRate = uint32(cfg.SampleRate)
	devCfg.PeriodSizeInFrames = uint32(cfg.BlockSize)
	devCfg.Alsa.NoMMap = 1

	id, err := m.resolveDeviceID(malgo.Capture, cfg.Device)
	if err != nil {
		return nil, err
	}
	devCfg.Capture.DeviceID = id

	s := newMalgoStream(cfg.BlockSize * cfg.Channels)
	onData := func(pOutput, pInput []byte, frameCount uint32) {
		if s.finished.Load() {
			return
		}
		n := int(frameCount) * cfg.Channels
		buf := s.scratch(n)
		audio.BytesToFloat32(pInput, buf)
		if act := fn(buf); act.Done() {
			s.finish(act.Err())
		}
	}

	dev, err := malgo.InitDevice(m.ctx.Context, devCfg, malgo.DeviceCallbacks{Data: onData})
	if err != nil {
		return nil, fmt.Errorf("initialize capture device: %w", err)
	}
	s.device = dev
	return s, nil
}

// OpenDuplex opens a combined capture+playback stream driven by fn.
func (m *Malgo) OpenDuplex(cfg DuplexConfig, fn DuplexFunc) (Stream, error) {
	devCfg := malgo.DefaultDeviceConfig(malgo.Duplex)
	devCfg.Capture.Format = malgo.FormatF32
	devCfg.Capture.Channels = uint32(cfg.Channels)
	devCfg.Playback.Format = malgo.FormatF32
	devCfg.Playback.Channels = uint32(cfg.Channels)
	devCfg.SampleRate = uint32(cfg.SampleRate)
	devCfg.PeriodSizeInFrames = uint32(cfg.BlockSize)
	devCfg.Alsa.NoMMap = 1

	inID, err := m.resolveDeviceID(malgo.Capture, cfg.InputDevice)
	if err != nil {
		return nil, err
	}
	outID, err := m.resolveDeviceID(malgo.Playback, cfg.OutputDevice)
	if err != nil {
		return nil, err
	}
	devCfg.Capture.DeviceID = inID
	devCfg.Playback.DeviceID = outID

	s := newMalgoStream(cfg.BlockSize * cfg.Channels)
	outScratch := make([]float32, cfg.BlockSize*cfg.Channels)
	onData := func(pOutput, pInput []byte, frameCount uint32) {
		n := int(frameCount) * cfg.Channels
		if s.finished.Load() {
			zeroBytes(pOutput[:n*4])
			return
		}
		in := s.scratch(n)
		audio.BytesToFloat32(pInput, in)
		if n > len(outScratch) {
			outScratch = make([]float32, n)
		}
		out := outScratch[:n]
		act := fn(in, out)
		if act.Done() {
			zeroBytes(pOutput[:n*4])
			s.finish(act.Err())
			return
		}
		audio.Float32ToBytes(out, pOutput)
	}

	dev, err := malgo.InitDevice(m.ctx.Context, devCfg, malgo.DeviceCallbacks{Data: onData})
	if err != nil {
		return nil, fmt.Errorf("initialize duplex device: %w", err)
	}
	s.device = dev
	return s, nil
}

// Close releases the miniaudio context.
func (m *Malgo) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	if err := m.ctx.Uninit(); err != nil {
		return fmt.Errorf("uninitialize audio context: %w", err)
	}
	m.ctx.Free()
	return nil
}

// malgoStream wraps a miniaudio device. The data callback cannot stop the
// device from its own thread, so end-of-stream is signalled on done and the
// owner performs the teardown via Close.
type malgoStream struct {
	device   *malgo.Device
	done     chan error
	once     sync.Once
	finished atomic.Bool

	// buf is the preallocated callback scratch; it only grows if the driver
	// delivers a larger period than requested.
	buf []float32

	closeOnce sync.Once
}

func newMalgoStream(samples int) *malgoStream {
	if samples < 1 {
		samples = 1
	}
	return &malgoStream{
		done: make(chan error, 1),
		buf:  make([]float32, samples),
	}
}

func (s *malgoStream) scratch(n int) []float32 {
	if n > len(s.buf) {
		s.buf = make([]float32, n)
	}
	return s.buf[:n]
}

func (s *malgoStream) finish(err error) {
	s.once.Do(func() {
		s.finished.Store(true)
		s.done <- err
	})
}

func (s *malgoStream) Start() error {
	if err := s.device.Start(); err != nil {
		return fmt.Errorf("start device: %w", err)
	}
	return nil
}

func (s *malgoStream) Done() <-chan error { return s.done }

func (s *malgoStream) Close() error {
	s.closeOnce.Do(func() {
		s.finished.Store(true)
		_ = s.device.Stop()
		s.device.Uninit()
	})
	return nil
}

func zeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
