//go:build linux

package bwrap

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// firstExtraFD is the FD index bwrap sees its first inherited file at:
// stdin/stdout/stderr occupy 0-2, so a child process's ExtraFiles start at 3.
const firstExtraFD = 3

// Command turns s into an unstarted [exec.Cmd]. The returned cleanup
// function closes every FD opened on the spec's behalf (File/Data backing
// files) and must be called once the command has exited, win or lose.
// Cleanup is idempotent.
//
// Command sets SysProcAttr.Setpgid so the caller can kill the whole process
// group bwrap spawns into, not just the bwrap process itself.
func (s *Spec) Command(ctx context.Context) (*exec.Cmd, func() error, error) {
	if s == nil {
		return nil, noopCleanup, errors.New("bwrap: nil spec")
	}

	if s.Command.Program == "" {
		return nil, noopCleanup, errors.New("bwrap: spec has no command")
	}

	launcher := s.Launcher
	if launcher == "" {
		launcher = "bwrap"
	}

	launcherPath, err := exec.LookPath(launcher)
	if err != nil {
		return nil, noopCleanup, fmt.Errorf("bwrap: launcher %q not found in PATH: %w", launcher, err)
	}

	lowered, extraFiles, cleanup, err := s.materializeFDs()
	if err != nil {
		return nil, noopCleanup, err
	}

	cmd := exec.CommandContext(ctx, launcherPath, lowered...)
	cmd.ExtraFiles = extraFiles
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	switch s.Command.Stdin {
	case StdioInherit:
		cmd.Stdin = os.Stdin
	case StdioPipe, StdioNull:
		// left nil/unset; caller wires stdin explicitly via cmd.Stdin or
		// cmd.StdinPipe() before starting.
	}

	return cmd, cleanup, nil
}

// materializeFDs walks the spec's fs entries and rewrites every File/Data
// variant's FD token from the caller's descriptor number to the child's view
// of its descriptor table (firstExtraFD + offset). The caller is expected to
// have already opened and written the FD (e.g. via memfd_create or a real
// file); this function only takes ownership of it for the lifetime of the
// command via os.NewFile + ExtraFiles. Entries with no FD carry through
// lowerFsSpec unchanged.
func (s *Spec) materializeFDs() ([]string, []*os.File, func() error, error) {
	var (
		extraFiles []*os.File
		cleanups   []func() error
	)

	cleanupAll := func() error {
		var errs []error

		for i := len(cleanups) - 1; i >= 0; i-- {
			if err := cleanups[i](); err != nil {
				errs = append(errs, err)
			}
		}

		return errors.Join(errs...)
	}

	rewritten := make([]FsSpec, len(s.fs))

	for i, entry := range s.fs {
		holder, ok := entry.(fdHolder)
		if !ok {
			rewritten[i] = entry
			continue
		}

		backing := os.NewFile(holder.fd(), fmt.Sprintf("bwrap-fd-%d", i))
		if backing == nil {
			cleanupErr := cleanupAll()
			return nil, nil, noopCleanup, errors.Join(fmt.Errorf("bwrap: fs entry %d carries an invalid fd", i), cleanupErr)
		}

		childFD := uintptr(firstExtraFD + len(extraFiles))
		extraFiles = append(extraFiles, backing)
		cleanups = append(cleanups, closeOnce(backing))

		rewritten[i] = holder.withFD(childFD)
	}

	clone := *s
	clone.fs = rewritten

	return clone.BuildArgs(), extraFiles, cleanupAll, nil
}

func noopCleanup() error { return nil }

func closeOnce(f *os.File) func() error {
	closed := false

	return func() error {
		if closed {
			return nil
		}

		closed = true

		return f.Close()
	}
}

// NewMemFD opens an anonymous, writable backing file suitable for a File or
// Data FsSpec entry, preferring memfd_create to avoid touching the
// filesystem and falling back to an unlinked temp file where memfd_create is
// unavailable. Callers write their content, seek back to 0, then pass
// f.Fd() into File{}/Data{}.
func NewMemFD(name string) (*os.File, error) {
	fd, err := unix.MemfdCreate(name, unix.MFD_CLOEXEC)
	if err == nil {
		f := os.NewFile(uintptr(fd), name)
		if f == nil {
			_ = unix.Close(fd)
			return nil, errors.New("bwrap: os.NewFile returned nil for memfd")
		}

		return f, nil
	}

	tmp, tmpErr := os.CreateTemp("", name+"-*")
	if tmpErr != nil {
		return nil, errors.Join(
			fmt.Errorf("memfd_create: %w", err),
			fmt.Errorf("create temp file: %w", tmpErr),
		)
	}

	_ = os.Remove(tmp.Name())

	return tmp, nil
}
