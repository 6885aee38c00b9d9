// Package run implements the state machine that supervises one sandboxed
// execution (a Run) through launch, completion, and timeout.
package run

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// State is the sum type a Run moves through. It is represented as an
// exported int enum with a String method rather than an interface
// hierarchy — there is no per-state behavior beyond the data each one
// carries, so a type switch on an enum is simpler than a sealed interface.
type State int

const (
	NotLaunched State = iota
	Running
	Complete
	TimedOut
)

func (s State) String() string {
	switch s {
	case NotLaunched:
		return "not_launched"
	case Running:
		return "running"
	case Complete:
		return "complete"
	case TimedOut:
		return "timed_out"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// successfulLabel is the fixed status string for a zero exit code; any
// other code is looked up in the manifest's exit_status map, falling back
// to unknownLabel.
const (
	successfulLabel = "successful"
	unknownLabel    = "unknown"
)

// Output is the result of a Run that reached Complete.
type Output struct {
	Trace      string
	Status     string
	Successful bool
}

// Run tracks one sandboxed execution's state. RunID identifies the run
// itself; RunnerID names the runner it was launched against. Transitions
// are monotonic — NotLaunched -> Running -> Complete|TimedOut — enforced by
// Controller, not by Run itself.
type Run struct {
	ID        uuid.UUID
	RunnerID  uuid.UUID
	ShowTrace bool

	State     State
	StartedAt time.Time
	Output    Output
}

// New creates a Run in the NotLaunched state for runnerID.
func New(runnerID uuid.UUID, showTrace bool) *Run {
	return &Run{
		ID:        uuid.New(),
		RunnerID:  runnerID,
		ShowTrace: showTrace,
		State:     NotLaunched,
	}
}

// ErrInvalidTransition is returned when a Controller attempts a state
// transition that violates the Run lifecycle: Controller.Launch returns it
// for a Run that is not NotLaunched (e.g. launching a Run twice).
type ErrInvalidTransition struct {
	From State
	To   State
}

func (e *ErrInvalidTransition) Error() string {
	return fmt.Sprintf("run: invalid transition from %s to %s", e.From, e.To)
}

func exitLabel(code int, exitStatus map[int]string) (status string, successful bool) {
	if code == 0 {
		return successfulLabel, true
	}

	if label, ok := exitStatus[code]; ok {
		return label, false
	}

	return unknownLabel, false
}
