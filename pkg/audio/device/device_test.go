// ABOUTME: Tests for the backend-independent device layer
// ABOUTME: Covers callback actions, ID decoding and the oto pull-reader shim
package device

import (
	"encoding/hex"
	"errors"
	"io"
	"testing"
)

func TestActionSemantics(t *testing.T) {
	if Continue.Done() {
		t.Error("Continue must not end the stream")
	}
	if Continue.Err() != nil {
		t.Error("Continue must carry no error")
	}

	if !Complete.Done() {
		t.Error("Complete must end the stream")
	}
	if Complete.Err() != nil {
		t.Error("Complete must carry no error")
	}

	reason := errors.New("starved")
	abort := AbortWith(reason)
	if !abort.Done() {
		t.Error("AbortWith must end the stream")
	}
	if !errors.Is(abort.Err(), reason) {
		t.Errorf("expected abort reason %v, got %v", reason, abort.Err())
	}
}

func TestCategoryString(t *testing.T) {
	tests := []struct {
		cat      Category
		expected string
	}{
		{CategoryAll, "all"},
		{CategoryInput, "input"},
		{CategoryOutput, "output"},
	}
	for _, tt := range tests {
		if got := tt.cat.String(); got != tt.expected {
			t.Errorf("expected %q, got %q", tt.expected, got)
		}
	}
}

func TestDecodeDeviceID(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"alsa id", hex.EncodeToString([]byte("hw:1,0\x00\x00")), "hw:1,0"},
		{"plain ascii", hex.EncodeToString([]byte("default")), "default"},
		{"not hex stays as-is", "zz-not-hex", "zz-not-hex"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := decodeDeviceID(tt.input); got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestFindByID(t *testing.T) {
	infos := []Info{{ID: "a"}, {ID: "b"}}
	if got := findByID(infos, "b"); got == nil || got.ID != "b" {
		t.Errorf("expected device b, got %+v", got)
	}
	if got := findByID(infos, "missing"); got != nil {
		t.Errorf("expected nil for a missing ID, got %+v", got)
	}
}

func TestCallbackReader(t *testing.T) {
	calls := 0
	fn := func(out []float32) Action {
		calls++
		if calls > 2 {
			return Complete
		}
		for i := range out {
			out[i] = float32(calls)
		}
		return Continue
	}

	s := &otoStream{done: make(chan error, 1)}
	r := &callbackReader{fn: fn, stream: s, scratch: make([]float32, 4)}

	// Each block encodes to 16 bytes; small reads drain the pending buffer
	// before the next callback fires.
	var all []byte
	buf := make([]byte, 10)
	for {
		n, err := r.Read(buf)
		all = append(all, buf[:n]...)
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if calls != 3 {
		t.Errorf("expected 3 callback invocations, got %d", calls)
	}
	if len(all) != 32 {
		t.Errorf("expected 32 bytes from two blocks, got %d", len(all))
	}

	select {
	case err := <-s.done:
		if err != nil {
			t.Errorf("expected a clean completion, got %v", err)
		}
	default:
		t.Error("completion was not signaled")
	}

	// EOF is sticky and no further callbacks run.
	if _, err := r.Read(buf); err != io.EOF {
		t.Errorf("expected io.EOF, got %v", err)
	}
	if calls != 3 {
		t.Errorf("callback ran after EOF: %d calls", calls)
	}
}
