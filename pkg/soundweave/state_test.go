// ABOUTME: Tests for the tri-state session machines
// ABOUTME: Covers transition guards, pause toggling and wakeup on stop
package soundweave

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateString(t *testing.T) {
	tests := []struct {
		state    State
		expected string
	}{
		{Stopped, "STOPPED"},
		{Active, "ACTIVE"},
		{Paused, "PAUSED"},
		{State(42), "STOPPED"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, tt.state.String())
	}
}

func TestMachineStart(t *testing.T) {
	m := NewMachine()
	assert.Equal(t, Stopped, m.State())

	require.NoError(t, m.Start())
	assert.Equal(t, Active, m.State())

	// Start is only legal from Stopped.
	assert.ErrorIs(t, m.Start(), ErrAlreadyActive)

	m.TogglePause()
	assert.ErrorIs(t, m.Start(), ErrAlreadyActive)

	m.Stop()
	require.NoError(t, m.Start())
}

func TestMachineTogglePause(t *testing.T) {
	m := NewMachine()

	// No-op from Stopped.
	assert.Equal(t, Stopped, m.TogglePause())
	assert.Equal(t, Stopped, m.State())

	require.NoError(t, m.Start())
	assert.Equal(t, Paused, m.TogglePause())
	assert.Equal(t, Active, m.TogglePause())
	assert.Equal(t, Paused, m.TogglePause())
}

func TestMachineStopFromAnyState(t *testing.T) {
	for _, setup := range []func(*Machine){
		func(m *Machine) {},
		func(m *Machine) { _ = m.Start() },
		func(m *Machine) { _ = m.Start(); m.TogglePause() },
	} {
		m := NewMachine()
		setup(m)
		m.Stop()
		assert.Equal(t, Stopped, m.State())
	}
}

func TestWaitNotPausedPassesThrough(t *testing.T) {
	m := NewMachine()
	assert.Equal(t, Stopped, m.WaitNotPaused())

	require.NoError(t, m.Start())
	assert.Equal(t, Active, m.WaitNotPaused())
}

func TestWaitNotPausedResume(t *testing.T) {
	m := NewMachine()
	require.NoError(t, m.Start())
	m.TogglePause()

	woke := make(chan State, 1)
	go func() { woke <- m.WaitNotPaused() }()

	time.Sleep(10 * time.Millisecond)
	select {
	case <-woke:
		t.Fatal("waiter returned while paused")
	default:
	}

	m.TogglePause()
	select {
	case st := <-woke:
		assert.Equal(t, Active, st)
	case <-time.After(time.Second):
		t.Fatal("waiter was not released by resume")
	}
}

func TestWaitNotPausedStop(t *testing.T) {
	m := NewMachine()
	require.NoError(t, m.Start())
	m.TogglePause()

	woke := make(chan State, 1)
	go func() { woke <- m.WaitNotPaused() }()

	time.Sleep(10 * time.Millisecond)
	m.Stop()

	select {
	case st := <-woke:
		assert.Equal(t, Stopped, st)
	case <-time.After(time.Second):
		t.Fatal("waiter was not released by stop")
	}
}

func TestNewStateController(t *testing.T) {
	sc := NewStateController()
	assert.Equal(t, Stopped, sc.Playback.State())
	assert.Equal(t, Stopped, sc.Recording.State())
}
