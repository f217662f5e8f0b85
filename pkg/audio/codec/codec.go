// ABOUTME: File codec collaborators behind read/write stream interfaces
// ABOUTME: Dispatches WAV, MP3 and FLAC readers and the WAV writer by file extension
package codec

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/soundweave/soundweave-go/pkg/audio"
)

// Recording subtypes accepted by OpenWritable.
const (
	SubtypePCM16 = "pcm_16"
	SubtypePCM24 = "pcm_24"
	SubtypePCM32 = "pcm_32"
)

// ReadStream is a decoded audio source. ReadBlock returns io.EOF once the
// stream is exhausted; a short block may precede it.
type ReadStream interface {
	SampleRate() int
	Channels() int
	// ReadBlock decodes up to frames frames of interleaved samples.
	ReadBlock(frames int) (audio.Block, error)
	Close() error
}

// WriteStream is an encoded audio sink.
type WriteStream interface {
	Write(audio.Block) error
	Flush() error
	Close() error
}

// OpenReadable opens a decodable audio file. The codec is chosen by
// extension: .wav, .mp3 or .flac.
func OpenReadable(path string) (ReadStream, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".wav":
		return newWAVReader(path)
	case ".mp3":
		return newMP3Reader(path)
	case ".flac":
		return newFLACReader(path)
	default:
		return nil, fmt.Errorf("unsupported audio format %q (supported: .wav, .mp3, .flac)", ext)
	}
}

// OpenWritable creates an encodable audio file. Only WAV output is
// supported; subtype selects the PCM bit depth (default SubtypePCM24).
func OpenWritable(path string, sampleRate, channels int, subtype string) (WriteStream, error) {
	if ext := strings.ToLower(filepath.Ext(path)); ext != ".wav" {
		return nil, fmt.Errorf("unsupported output format %q (supported: .wav)", ext)
	}
	return newWAVWriter(path, sampleRate, channels, subtype)
}
