package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"

	"github.com/sirupsen/logrus"
)

// programName is used in usage text and error prefixes.
const programName = "sandrunnerd"

// Run is the entry point isolated from global state (stdin/stdout/stderr,
// argv, env), so it can be exercised directly from tests. Returns the
// process exit code. sigCh may be nil when signal handling is not needed.
func Run(stdin io.Reader, stdout, stderr io.Writer, args []string, sigCh <-chan os.Signal) int {
	if err := checkPlatformPrerequisites(); err != nil {
		fprintError(stderr, err)
		return 1
	}

	commands := map[string]*Command{
		"validate": ValidateCmd(),
		"run":      RunCmd(),
	}

	if len(args) < 2 {
		printUsage(stdout, commands)
		return 0
	}

	switch args[1] {
	case "-h", "--help":
		printUsage(stdout, commands)
		return 0
	case "-v", "--version":
		fprintln(stdout, formatVersion())
		return 0
	}

	cmd, ok := commands[args[1]]
	if !ok {
		fprintError(stderr, fmt.Errorf("unknown command %q", args[1]))
		printUsage(stderr, commands)

		return 1
	}

	ctx := context.Background()
	if sigCh != nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithCancel(ctx)
		defer cancel()

		go func() {
			select {
			case <-sigCh:
				logrus.Warn("interrupted, cancelling run")
				cancel()
			case <-ctx.Done():
			}
		}()
	}

	if err := cmd.Exec(ctx, stdin, stdout, stderr, args[2:]); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return exitErr.ExitCode()
		}

		return 1
	}

	return 0
}

func printUsage(out io.Writer, commands map[string]*Command) {
	fprintf(out, "%s - sandboxed submission runner\n\n", programName)
	fprintf(out, "Usage: %s <command> [flags]\n\n", programName)
	fprintln(out, "Commands:")

	for _, name := range []string{"validate", "run"} {
		cmd := commands[name]
		fprintf(out, "  %-10s %s\n", name, cmd.Short)
	}
}

func fprintln(out io.Writer, a ...any) {
	_, _ = fmt.Fprintln(out, a...)
}

func fprintf(out io.Writer, format string, a ...any) {
	_, _ = fmt.Fprintf(out, format, a...)
}

func fprintError(out io.Writer, err error) {
	fprintf(out, "%s: error: %v\n", programName, err)
}

func formatVersion() string {
	if version == "source" {
		return fmt.Sprintf("%s (built from source, %s)", programName, date)
	}

	return fmt.Sprintf("%s %s (%s, %s)", programName, version, commit, date)
}

func checkPlatformPrerequisites() error {
	if runtime.GOOS != "linux" {
		return errors.New("checking platform prerequisites: requires Linux (bwrap uses Linux namespaces)")
	}

	if os.Getuid() == 0 {
		return errors.New("checking platform prerequisites: cannot run as root (use a regular user account)")
	}

	_, err := exec.LookPath("bwrap")
	if err != nil {
		return errors.New("checking platform prerequisites: bwrap not found in PATH (try installing with: sudo apt install bubblewrap)")
	}

	return nil
}
