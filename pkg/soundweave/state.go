// ABOUTME: Tri-state playback/recording machines with guarded transitions
// ABOUTME: Pause waits are condition waits re-checked in a loop, no lost wakeups
package soundweave

import (
	"errors"
	"sync"
)

// State is the lifecycle state of one playback or recording session.
type State int

const (
	Stopped State = iota
	Active
	Paused
)

func (s State) String() string {
	switch s {
	case Active:
		return "ACTIVE"
	case Paused:
		return "PAUSED"
	default:
		return "STOPPED"
	}
}

// ErrAlreadyActive is returned by Start when a session is not Stopped.
var ErrAlreadyActive = errors.New("soundweave: session already active")

// Machine is one tri-state machine. Stopped is both the initial and the
// terminal state; transitions through its methods are the only legal
// mutation path.
type Machine struct {
	mu    sync.Mutex
	cond  *sync.Cond
	state State
}

// NewMachine returns a machine in the Stopped state.
func NewMachine() *Machine {
	m := &Machine{}
	m.cond = sync.NewCond(&m.mu)
	return m
}

// Start transitions Stopped -> Active. Any other origin is an error.
func (m *Machine) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != Stopped {
		return ErrAlreadyActive
	}
	m.state = Active
	return nil
}

// TogglePause flips Active <-> Paused and wakes paused waiters. From Stopped
// it is a no-op. The resulting state is returned.
func (m *Machine) TogglePause() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch m.state {
	case Active:
		m.state = Paused
	case Paused:
		m.state = Active
	default:
		return m.state
	}
	m.cond.Broadcast()
	return m.state
}

// Stop forces Stopped from any state and wakes paused waiters so they can
// observe the stop and exit.
func (m *Machine) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = Stopped
	m.cond.Broadcast()
}

// State returns the current state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// WaitNotPaused blocks while the machine is Paused and returns the state
// observed on wakeup, so callers see a Stop during the wait.
func (m *Machine) WaitNotPaused() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	for m.state == Paused {
		m.cond.Wait()
	}
	return m.state
}

// StateController owns the two independent machines shared by the engines.
// They are the only cross-thread mutable state besides the block queues.
type StateController struct {
	Playback  *Machine
	Recording *Machine
}

// NewStateController returns both machines in the Stopped state.
func NewStateController() *StateController {
	return &StateController{Playback: NewMachine(), Recording: NewMachine()}
}
