package run

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/forgecode/sandrunner/bwrap"
)

// Controller supervises one Run from launch through its terminal state. A
// Controller is single-use: Launch may only be called once.
type Controller struct {
	run     *Run
	spec    *bwrap.Spec
	timeout time.Duration

	// exitStatus maps a non-zero guest exit code to a human label; see
	// spec.md §4.7.
	exitStatus map[int]string

	// traceFile is read back on non-timeout completion only: the spec
	// treats a trace from a killed run as potentially corrupted and never
	// reads it.
	traceFile *os.File

	log *logrus.Entry

	mu        sync.Mutex
	cancelled bool
}

// NewController builds a Controller for run, ready to launch spec with the
// given wall-clock timeout. traceFile must be the same backing file handed
// to the Resolver as the trace FD; Controller seeks and reads it after the
// child exits.
func NewController(run *Run, spec *bwrap.Spec, timeout time.Duration, exitStatus map[int]string, traceFile *os.File) *Controller {
	return &Controller{
		run:        run,
		spec:       spec,
		timeout:    timeout,
		exitStatus: exitStatus,
		traceFile:  traceFile,
		log: logrus.WithFields(logrus.Fields{
			"run_id":    run.ID,
			"runner_id": run.RunnerID,
		}),
	}
}

// Launch spawns the sandbox and blocks until the run reaches Complete or
// TimedOut. ctx cancellation is treated identically to a timeout: the
// process group is killed and the run transitions to TimedOut.
func (c *Controller) Launch(ctx context.Context) error {
	if c.run.State != NotLaunched {
		return &ErrInvalidTransition{From: c.run.State, To: Running}
	}

	cmd, cleanup, err := c.spec.Command(ctx)
	if err != nil {
		return fmt.Errorf("run: build command: %w", err)
	}
	defer cleanup()

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("run: start sandbox: %w", err)
	}

	c.run.State = Running
	c.run.StartedAt = time.Now()
	c.log.WithField("pid", cmd.Process.Pid).Info("run launched")

	waitErr := make(chan error, 1)
	go func() { waitErr <- cmd.Wait() }()

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()

	select {
	case err := <-waitErr:
		c.mu.Lock()
		cancelled := c.cancelled
		c.mu.Unlock()

		// A child killed by Cancel or by ctx cancellation also ends Wait;
		// those runs are recorded as TimedOut, not Complete.
		if cancelled || ctx.Err() != nil {
			c.killGroup(cmd.Process.Pid)
			return c.timedOut("cancelled")
		}

		return c.complete(err, cmd.ProcessState.ExitCode())

	case <-timer.C:
		c.killGroup(cmd.Process.Pid)
		<-waitErr
		return c.timedOut("timeout")

	case <-ctx.Done():
		c.killGroup(cmd.Process.Pid)
		<-waitErr
		return c.timedOut("cancelled")
	}
}

// Cancel kills the run's process group and transitions it to TimedOut, if
// it is still running. Cancel is idempotent: a second call on an
// already-cancelled or already-terminal run is a no-op.
func (c *Controller) Cancel(pid int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cancelled || c.run.State != Running {
		return
	}

	c.cancelled = true
	c.killGroup(pid)
}

// killGroup SIGKILLs the entire process group rooted at pid, not just the
// immediate bwrap process: by the time a timeout fires, bwrap itself may
// already have exec'd into the sandboxed program or spawned further
// children within the group.
func (c *Controller) killGroup(pid int) {
	if err := syscall.Kill(-pid, syscall.SIGKILL); err != nil && !errors.Is(err, syscall.ESRCH) {
		c.log.WithError(err).Warn("failed to kill run process group")
	}
}

func (c *Controller) complete(waitErr error, exitCode int) error {
	status, successful := exitLabel(exitCode, c.exitStatus)

	var trace string
	if c.run.ShowTrace {
		trace = c.readTrace()
	}

	c.run.State = Complete
	c.run.Output = Output{Trace: trace, Status: status, Successful: successful}

	c.log.WithFields(logrus.Fields{
		"exit_code":  exitCode,
		"status":     status,
		"successful": successful,
		"duration":   time.Since(c.run.StartedAt),
	}).Info("run complete")

	if waitErr != nil && exitCode < 0 {
		return fmt.Errorf("run: wait: %w", waitErr)
	}

	return nil
}

func (c *Controller) timedOut(reason string) error {
	c.run.State = TimedOut

	c.log.WithFields(logrus.Fields{
		"reason":   reason,
		"duration": time.Since(c.run.StartedAt),
	}).Warn("run timed out")

	return nil
}

// readTrace reads back the trace file in full. Failures are logged, not
// propagated: a trace is best-effort diagnostic output, never required for
// a run to be considered complete.
func (c *Controller) readTrace() string {
	if c.traceFile == nil {
		return ""
	}

	if _, err := c.traceFile.Seek(0, io.SeekStart); err != nil {
		c.log.WithError(err).Warn("failed to seek trace file")
		return ""
	}

	data, err := io.ReadAll(c.traceFile)
	if err != nil {
		c.log.WithError(err).Warn("failed to read trace file")
		return ""
	}

	return string(data)
}
