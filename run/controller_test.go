package run

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/forgecode/sandrunner/bwrap"
)

func Test_Controller_Launch_CompletesOnSuccessfulExit(t *testing.T) {
	t.Parallel()

	traceFile, err := os.CreateTemp(t.TempDir(), "trace")
	if err != nil {
		t.Fatalf("create trace file: %v", err)
	}
	defer traceFile.Close()

	spec := bwrap.NewSpec()
	spec.Launcher = "true"
	spec.Command = bwrap.Command{Program: "ignored"}

	r := New(uuid.New(), false)
	controller := NewController(r, spec, 5*time.Second, nil, traceFile)

	if err := controller.Launch(context.Background()); err != nil {
		t.Fatalf("Launch() error = %v", err)
	}

	if r.State != Complete {
		t.Fatalf("State = %v, want Complete", r.State)
	}

	if !r.Output.Successful {
		t.Errorf("Output.Successful = false, want true")
	}

	if r.Output.Status != successfulLabel {
		t.Errorf("Output.Status = %q, want %q", r.Output.Status, successfulLabel)
	}
}

func Test_Controller_Launch_TimesOutAndKillsProcessGroup(t *testing.T) {
	t.Parallel()

	traceFile, err := os.CreateTemp(t.TempDir(), "trace")
	if err != nil {
		t.Fatalf("create trace file: %v", err)
	}
	defer traceFile.Close()

	spec := bwrap.NewSpec()
	spec.Launcher = "sleep"
	spec.Command = bwrap.Command{Program: "5"}

	r := New(uuid.New(), true)
	controller := NewController(r, spec, 50*time.Millisecond, nil, traceFile)

	if err := controller.Launch(context.Background()); err != nil {
		t.Fatalf("Launch() error = %v", err)
	}

	if r.State != TimedOut {
		t.Fatalf("State = %v, want TimedOut", r.State)
	}

	if r.Output != (Output{}) {
		t.Errorf("Output = %+v, want zero value (trace must not be read on timeout)", r.Output)
	}
}

func Test_Controller_Launch_RejectsDoubleLaunch(t *testing.T) {
	t.Parallel()

	traceFile, err := os.CreateTemp(t.TempDir(), "trace")
	if err != nil {
		t.Fatalf("create trace file: %v", err)
	}
	defer traceFile.Close()

	spec := bwrap.NewSpec()
	spec.Launcher = "true"
	spec.Command = bwrap.Command{Program: "ignored"}

	r := New(uuid.New(), false)
	r.State = Running

	controller := NewController(r, spec, 5*time.Second, nil, traceFile)

	err = controller.Launch(context.Background())
	if err == nil {
		t.Fatal("Launch() error = nil, want ErrInvalidTransition")
	}
}
