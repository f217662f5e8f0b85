// ABOUTME: Package documentation for the audio type layer
// ABOUTME: Shared block/format types used by synth, codec, queue and device
// Package audio defines the sample block and format types exchanged between
// the engine's producers, queues and device callbacks, plus the PCM
// conversion helpers used at the codec and device edges.
package audio
