// ABOUTME: Audio device resolver and stream abstractions
// ABOUTME: Callback results cross the real-time boundary as tagged actions, never panics
package device

// Category filters device enumeration.
type Category int

const (
	CategoryAll Category = iota
	CategoryInput
	CategoryOutput
)

func (c Category) String() string {
	switch c {
	case CategoryInput:
		return "input"
	case CategoryOutput:
		return "output"
	default:
		return "all"
	}
}

// Info describes an audio device as reported by the backend.
type Info struct {
	Name              string
	ID                string
	HostAPI           string
	MaxInputChannels  int
	MaxOutputChannels int
	DefaultSampleRate float64
	MinSampleRate     float64
	MaxSampleRate     float64
	// Latencies in seconds; zero when the backend does not report them.
	DefaultLowLatency  float64
	DefaultHighLatency float64
	IsDefault          bool
}

type actionKind int

const (
	actionContinue actionKind = iota
	actionComplete
	actionAbort
)

// Action is the tagged result of a real-time callback. The stream driver
// interprets Complete and Abort as "tear down the stream"; the distinction is
// whether an error reaches the Done channel.
type Action struct {
	kind actionKind
	err  error
}

var (
	// Continue keeps the stream running.
	Continue = Action{kind: actionContinue}
	// Complete ends the stream normally.
	Complete = Action{kind: actionComplete}
)

// AbortWith ends the stream with the given reason.
func AbortWith(err error) Action { return Action{kind: actionAbort, err: err} }

// Done reports whether the action ends the stream.
func (a Action) Done() bool { return a.kind != actionContinue }

// Err returns the abort reason, nil for Continue and Complete.
func (a Action) Err() error { return a.err }

// StreamConfig describes a single-direction stream.
type StreamConfig struct {
	// Device selects a device by decoded ID or name substring; empty means
	// the system default.
	Device     string
	SampleRate int
	Channels   int
	// BlockSize is the preferred callback period in frames.
	BlockSize int
}

// DuplexConfig describes a combined capture+playback stream.
type DuplexConfig struct {
	InputDevice  string
	OutputDevice string
	SampleRate   int
	Channels     int
	BlockSize    int
}

// OutputFunc fills out with interleaved float32 samples for one period.
// It runs on the device's real-time thread: no file I/O, no unbounded
// blocking beyond the engine's pause wait.
type OutputFunc func(out []float32) Action

// InputFunc receives one period of captured interleaved samples. The slice
// is reused between calls; implementations must copy what they keep.
type InputFunc func(in []float32) Action

// DuplexFunc receives captured samples and fills the output period. Both
// slices are valid only for the duration of the call.
type DuplexFunc func(in, out []float32) Action

// Stream is a running or startable device stream.
type Stream interface {
	Start() error
	// Done yields exactly one value when the stream finishes: nil after
	// Complete, the abort reason after AbortWith.
	Done() <-chan error
	// Close stops the device and releases it. Idempotent.
	Close() error
}

// Resolver enumerates devices and opens streams against them. Engines take a
// Resolver explicitly; there is no process-wide default device state.
type Resolver interface {
	List(Category) ([]Info, error)
	OpenOutput(StreamConfig, OutputFunc) (Stream, error)
	OpenInput(StreamConfig, InputFunc) (Stream, error)
	OpenDuplex(DuplexConfig, DuplexFunc) (Stream, error)
	Close() error
}
