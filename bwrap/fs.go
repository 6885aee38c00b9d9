// Package bwrap provides a typed, composable description of a sandboxed
// process that lowers deterministically to the argument vector of bubblewrap
// (`bwrap`).
//
// The package does not execute bwrap itself; see Spec.Command for
// constructing an unstarted *exec.Cmd.
package bwrap

import (
	"fmt"
)

// FsSpec describes one filesystem operation applied inside the sandbox.
//
// FsSpec is a sealed interface: the only implementations are the concrete
// types in this file. Lowering is a type switch in lowerFsSpec rather than a
// virtual lower() method, so that a reviewer can audit every variant/flag
// combination in one place (see the Bind four-way table below).
type FsSpec interface {
	isFsSpec()
}

// Bind is the equivalent of `--bind` (with the read-only/try modifiers set).
//
// The file or directory at Source (a host path) becomes visible inside the
// sandbox at Destination.
type Bind struct {
	Source      string
	Destination string
	ReadOnly    bool
	Try         bool
	Permission  *uint64
}

// DevBind is the equivalent of `--dev-bind` (with the try modifier if set).
// Unlike Bind, it has no read-only variant.
type DevBind struct {
	Source      string
	Destination string
	Try         bool
	Permission  *uint64
}

// ProcBind is the equivalent of `--proc-bind` (with the try modifier if set).
type ProcBind struct {
	Source      string
	Destination string
	Try         bool
	Permission  *uint64
}

// Dev creates a new devfs at Destination.
type Dev struct {
	Destination string
	Permission  *uint64
}

// Proc creates a new procfs at Destination.
type Proc struct {
	Destination string
	Permission  *uint64
}

// MQueue creates a new mqueue filesystem at Destination.
type MQueue struct {
	Destination string
	Permission  *uint64
}

// Dir creates a directory at Destination.
//
// If the directory already exists its permissions are left untouched even
// when Permission is set; use Chmod to force a permission change.
type Dir struct {
	Destination string
	Permission  *uint64
}

// TmpFs mounts a fresh tmpfs at Destination. Size, if set, bounds it in bytes.
type TmpFs struct {
	Destination string
	Permission  *uint64
	Size        *uint64
}

// Symlink creates a symlink inside the sandbox pointing at Source.
type Symlink struct {
	Source      string
	Destination string
}

// File mounts the content behind an inherited file descriptor at Destination
// (`--file`). The FD must remain open and inherited by the spawned child; see
// Spec.Command.
type File struct {
	FD          uintptr
	Destination string
	Permission  *uint64
}

// Data mounts the content behind an inherited file descriptor at Destination
// (`--data` / `--ro-data`), exactly like File but with an explicit read-only
// toggle.
//
// Data can be constructed directly or appended with Spec.Data, which sets
// ReadOnly to false.
type Data struct {
	FD          uintptr
	Destination string
	ReadOnly    bool
	Permission  *uint64
}

// Chmod changes the permission of an existing path inside the sandbox.
// Unlike the other variants, Permission is required.
type Chmod struct {
	Destination string
	Permission  uint64
}

func (Bind) isFsSpec()    {}
func (DevBind) isFsSpec() {}
func (ProcBind) isFsSpec() {}
func (Dev) isFsSpec()     {}
func (Proc) isFsSpec()    {}
func (MQueue) isFsSpec()  {}
func (Dir) isFsSpec()     {}
func (TmpFs) isFsSpec()   {}
func (Symlink) isFsSpec() {}
func (File) isFsSpec()    {}
func (Data) isFsSpec()    {}
func (Chmod) isFsSpec()   {}

// octal formats a permission as a bare octal string with no leading zero,
// matching bubblewrap's own --perm argument convention.
func octal(perm uint64) string {
	return fmt.Sprintf("%o", perm)
}

func appendPerm(args []string, perm *uint64) []string {
	if perm == nil {
		return args
	}

	return append(args, "--perm", octal(*perm))
}

// lowerFsSpec converts a single FsSpec into bwrap argv tokens.
//
// The ro×try decision table for Bind is enumerated explicitly (one case per
// cell) rather than string-spliced, so each combination can be audited
// directly against bubblewrap's man page.
func lowerFsSpec(spec FsSpec) []string {
	switch s := spec.(type) {
	case Bind:
		args := appendPerm(nil, s.Permission)

		var flag string

		switch {
		case !s.ReadOnly && !s.Try:
			flag = "--bind"
		case !s.ReadOnly && s.Try:
			flag = "--bind-try"
		case s.ReadOnly && !s.Try:
			flag = "--ro-bind"
		case s.ReadOnly && s.Try:
			flag = "--ro-bind-try"
		}

		return append(args, flag, s.Source, s.Destination)

	case DevBind:
		args := appendPerm(nil, s.Permission)

		flag := "--dev-bind"
		if s.Try {
			flag = "--dev-bind-try"
		}

		return append(args, flag, s.Source, s.Destination)

	case ProcBind:
		args := appendPerm(nil, s.Permission)

		flag := "--proc-bind"
		if s.Try {
			flag = "--proc-bind-try"
		}

		return append(args, flag, s.Source, s.Destination)

	case Dev:
		args := appendPerm(nil, s.Permission)

		return append(args, "--dev", s.Destination)

	case Proc:
		args := appendPerm(nil, s.Permission)

		return append(args, "--proc", s.Destination)

	case MQueue:
		args := appendPerm(nil, s.Permission)

		return append(args, "--mqueue", s.Destination)

	case Dir:
		args := appendPerm(nil, s.Permission)

		return append(args, "--dir", s.Destination)

	case TmpFs:
		args := appendPerm(nil, s.Permission)
		if s.Size != nil {
			args = append(args, "--size", fmt.Sprintf("%d", *s.Size))
		}

		return append(args, "--tmpfs", s.Destination)

	case Symlink:
		return []string{"--symlink", s.Source, s.Destination}

	case File:
		args := appendPerm(nil, s.Permission)

		return append(args, "--file", fmt.Sprintf("%d", s.FD), s.Destination)

	case Data:
		args := appendPerm(nil, s.Permission)

		flag := "--data"
		if s.ReadOnly {
			flag = "--ro-data"
		}

		return append(args, flag, fmt.Sprintf("%d", s.FD), s.Destination)

	case Chmod:
		return []string{"--chmod", octal(s.Permission), s.Destination}

	default:
		// Unreachable: FsSpec is sealed to the types in this file.
		panic(fmt.Sprintf("bwrap: unhandled FsSpec type %T", spec))
	}
}

// fdHolder is implemented by FsSpec variants that carry an inherited file
// descriptor (File, Data). Spec.Command uses it to build exec.Cmd.ExtraFiles
// and to renumber the FD token to the child's view of its descriptor table.
type fdHolder interface {
	fd() uintptr
	withFD(uintptr) FsSpec
}

func (f File) fd() uintptr         { return f.FD }
func (f File) withFD(fd uintptr) FsSpec {
	f.FD = fd
	return f
}

func (d Data) fd() uintptr         { return d.FD }
func (d Data) withFD(fd uintptr) FsSpec {
	d.FD = fd
	return d
}

var (
	_ fdHolder = File{}
	_ fdHolder = Data{}
)
