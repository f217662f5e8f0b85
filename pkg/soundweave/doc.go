// ABOUTME: Package documentation for the engine facade
// ABOUTME: Playback, recording and pass-through against a local audio device
// Package soundweave drives real-time audio playback, recording and
// pass-through against a hardware device.
//
// The engine bridges two timing domains: a slow producer (file decode or
// tone synthesis) and the device's hard-real-time callback. A bounded block
// queue is the sole hand-off point for playback; capture uses an unbounded
// queue so no recorded block is ever dropped. Two independent tri-state
// machines (playback, recording) gate both sides; Stop is the universal
// cancellation primitive, observed within one callback interval.
//
// Example:
//
//	resolver, err := device.NewMalgo()
//	engine, err := soundweave.New(soundweave.Config{Resolver: resolver})
//	tone, err := synth.NewNote(69, 1.0, 2.0)
//	err = engine.Play(soundweave.PlayParams{Sounds: []synth.Sound{tone}})
package soundweave
