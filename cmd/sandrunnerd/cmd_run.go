package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	flag "github.com/spf13/pflag"

	"github.com/forgecode/sandrunner/bwrap"
	"github.com/forgecode/sandrunner/manifest"
	"github.com/forgecode/sandrunner/run"
	"github.com/forgecode/sandrunner/runner"
)

// ErrRunnerNotFound is returned when --runner names a runner absent from
// the loaded registry.
var ErrRunnerNotFound = errors.New("sandrunnerd: runner not found")

// runResult is the JSON shape printed to stdout after a run reaches a
// terminal state.
type runResult struct {
	RunID      string `json:"run_id"`
	RunnerID   string `json:"runner_id"`
	State      string `json:"state"`
	Successful bool   `json:"successful"`
	Status     string `json:"status"`
	Trace      string `json:"trace,omitempty"`
}

// RunCmd executes one submission against a named runner and prints the
// resulting run.Output as JSON.
func RunCmd() *Command {
	flags := flag.NewFlagSet("run", flag.ContinueOnError)
	flagRoot := flags.StringP("runners", "r", "./runners", "Path to the runners directory")
	flagRunner := flags.String("runner", "", "Name of the runner to execute (required)")
	flagSubmission := flags.String("submission", "", "Host directory containing the user submission (required)")

	return &Command{
		Flags: flags,
		Usage: "run --runner name --submission dir [--runners dir]",
		Short: "Execute a submission against a runner",
		Long:  "Resolves a runner's sandbox spec and runs it to completion or timeout, printing the result as JSON.",
		Exec: func(ctx context.Context, _ io.Reader, stdout, stderr io.Writer, args []string) error {
			if err := flags.Parse(args); err != nil {
				return err
			}

			if *flagRunner == "" || *flagSubmission == "" {
				err := errors.New("sandrunnerd: --runner and --submission are required")
				fprintError(stderr, err)

				return err
			}

			result, err := executeRun(ctx, *flagRoot, *flagRunner, *flagSubmission)
			if err != nil {
				fprintError(stderr, err)
				return err
			}

			enc := json.NewEncoder(stdout)
			enc.SetIndent("", "  ")

			return enc.Encode(result)
		},
	}
}

func executeRun(ctx context.Context, runnersRoot, runnerName, submissionDir string) (*runResult, error) {
	manifests, err := manifest.Load(runnersRoot)
	if err != nil {
		return nil, fmt.Errorf("sandrunnerd: %w", err)
	}

	registry, err := runner.BuildRegistry(manifests)
	if err != nil {
		return nil, fmt.Errorf("sandrunnerd: %w", err)
	}

	r, ok := registry.Get(runnerName)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrRunnerNotFound, runnerName)
	}

	traceFile, err := bwrap.NewMemFD("sandrunnerd-trace")
	if err != nil {
		return nil, fmt.Errorf("sandrunnerd: open trace fd: %w", err)
	}
	defer traceFile.Close()

	distroID, err := runner.DetectDistro()
	if err != nil {
		return nil, fmt.Errorf("sandrunnerd: detect distro: %w", err)
	}

	spec, err := runner.Resolve(r, submissionDir, traceFile.Fd(), distroID)
	if err != nil {
		return nil, fmt.Errorf("sandrunnerd: resolve: %w", err)
	}

	rn := run.New(r.ID, r.Manifest.ShowTrace)
	controller := run.NewController(rn, spec, r.Manifest.Timeout.Duration(), r.Manifest.ExitStatus, traceFile)

	if err := controller.Launch(ctx); err != nil {
		return nil, fmt.Errorf("sandrunnerd: launch: %w", err)
	}

	return &runResult{
		RunID:      rn.ID.String(),
		RunnerID:   rn.RunnerID.String(),
		State:      rn.State.String(),
		Successful: rn.Output.Successful,
		Status:     rn.Output.Status,
		Trace:      rn.Output.Trace,
	}, nil
}
