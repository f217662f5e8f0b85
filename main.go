// ABOUTME: Entry point for the soundweave CLI
// ABOUTME: Drives playback, recording, pass-through and device listing
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/soundweave/soundweave-go/pkg/audio/device"
	"github.com/soundweave/soundweave-go/pkg/audio/synth"
	"github.com/soundweave/soundweave-go/pkg/soundweave"
)

var (
	playFile    = flag.String("play", "", "Audio file to play (.wav, .mp3, .flac)")
	tones       = flag.String("tone", "", `Synthetic sounds to play, JSON list (e.g. '[{"midi_note":69,"duration":2}]')`)
	recordFile  = flag.String("record", "", "Record to the given WAV file")
	passthrough = flag.Bool("passthrough", false, "Route the input device to the output device")
	listDevices = flag.Bool("devices", false, "List audio devices and exit")

	inputDevice  = flag.String("input-device", "", "Input device ID or name substring (default: system default)")
	outputDevice = flag.String("output-device", "", "Output device ID or name substring (default: system default)")
	sampleRate   = flag.Int("rate", 0, "Sample rate in Hz (default: source/device rate)")
	channels     = flag.Int("channels", 0, "Channel count (default: source channels, 1 for synth/record)")
	blockSize    = flag.Int("block", 0, "Audio block size in frames (default: 2048)")
	bufferDepth  = flag.Int("depth", 0, "Playback buffer depth in blocks (default: 20)")
	duration     = flag.Float64("duration", 0, "Record/pass-through duration in seconds (default: until interrupted)")
	subtype      = flag.String("subtype", "", "Recording subtype: pcm_16, pcm_24 or pcm_32 (default: pcm_24)")
	backend      = flag.String("backend", "malgo", "Audio backend: malgo or oto (oto is playback-only)")
	logFile      = flag.String("log-file", "", "Also append logs to this file")
)

func main() {
	flag.Parse()

	if *logFile != "" {
		f, err := os.OpenFile(*logFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o666)
		if err != nil {
			log.Fatalf("error opening log file: %v", err)
		}
		defer func() { _ = f.Close() }()
		log.SetOutput(io.MultiWriter(os.Stderr, f))
	}

	resolver, err := newResolver(*backend)
	if err != nil {
		log.Fatalf("Failed to initialize audio backend: %v", err)
	}
	defer func() { _ = resolver.Close() }()

	engine, err := soundweave.New(soundweave.Config{
		Resolver:        resolver,
		InputDevice:     *inputDevice,
		OutputDevice:    *outputDevice,
		InputBlockSize:  *blockSize,
		OutputBlockSize: *blockSize,
		BufferDepth:     *bufferDepth,
	})
	if err != nil {
		log.Fatalf("Failed to create engine: %v", err)
	}

	// Ctrl-C winds the running session down instead of killing the process,
	// so device handles and the recording sink are released cleanly.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Printf("Interrupt received, stopping")
		engine.StopPlayback()
		engine.StopRecording()
	}()

	switch {
	case *listDevices:
		err = printDevices(engine)
	case *playFile != "":
		err = engine.Play(soundweave.PlayParams{
			File:        *playFile,
			Device:      *outputDevice,
			SampleRate:  *sampleRate,
			Channels:    *channels,
			BlockSize:   *blockSize,
			BufferDepth: *bufferDepth,
		})
	case *tones != "":
		var sounds []synth.Sound
		sounds, err = synth.ParseSounds([]byte(*tones))
		if err == nil {
			err = engine.Play(soundweave.PlayParams{
				Sounds:      sounds,
				Device:      *outputDevice,
				SampleRate:  *sampleRate,
				Channels:    *channels,
				BlockSize:   *blockSize,
				BufferDepth: *bufferDepth,
			})
		}
	case *recordFile != "":
		err = engine.Record(soundweave.RecordParams{
			File:       *recordFile,
			Device:     *inputDevice,
			SampleRate: *sampleRate,
			Channels:   *channels,
			BlockSize:  *blockSize,
			Duration:   *duration,
			Subtype:    *subtype,
		})
	case *passthrough:
		err = engine.Passthrough(soundweave.PassthroughParams{
			InputDevice:  *inputDevice,
			OutputDevice: *outputDevice,
			SampleRate:   *sampleRate,
			Channels:     *channels,
			BlockSize:    *blockSize,
			Duration:     *duration,
		})
	default:
		flag.Usage()
		os.Exit(2)
	}

	if err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func newResolver(name string) (device.Resolver, error) {
	switch name {
	case "malgo":
		return device.NewMalgo()
	case "oto":
		return device.NewOto(), nil
	default:
		return nil, fmt.Errorf("unknown backend %q (supported: malgo, oto)", name)
	}
}

func printDevices(engine *soundweave.Engine) error {
	infos, err := engine.ListDevices(device.CategoryAll)
	if err != nil {
		return err
	}
	for i, d := range infos {
		def := ""
		if d.IsDefault {
			def = " (default)"
		}
		fmt.Printf("%2d: %s%s\n    id=%s host=%s in=%d out=%d rate=%.0f\n",
			i, d.Name, def, d.ID, d.HostAPI, d.MaxInputChannels, d.MaxOutputChannels, d.DefaultSampleRate)
	}
	return nil
}
