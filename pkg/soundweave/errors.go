// ABOUTME: Engine error taxonomy
// ABOUTME: Sentinels matched with errors.Is across session teardown paths
package soundweave

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument marks conflicting or missing parameters. It fails
	// fast, before any device or file is touched.
	ErrInvalidArgument = errors.New("soundweave: invalid argument")
	// ErrDevice marks an open/configure/start failure on the audio device.
	ErrDevice = errors.New("soundweave: device error")
	// ErrBufferUnderflow: the playback callback starved while the producer
	// was still live. The callback pads silence and aborts the stream.
	ErrBufferUnderflow = errors.New("soundweave: buffer underflow")
	// ErrBufferStalled: the producer could not enqueue for a full buffer's
	// worth of playback time while not paused. Fatal for the session.
	ErrBufferStalled = errors.New("soundweave: buffer stalled")
	// ErrCaptureTimeout: no captured block arrived within the expected
	// interval while recording time remained.
	ErrCaptureTimeout = errors.New("soundweave: capture queue timeout")
)

func deviceErr(err error) error {
	return fmt.Errorf("%w: %w", ErrDevice, err)
}
