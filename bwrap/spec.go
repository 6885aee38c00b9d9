package bwrap

import "fmt"

// Stdio names how a Command's standard streams are wired when spawned.
// It mirrors the three stdlib handles rather than inventing a richer
// redirection model, since nothing in this package spawns anything itself
// (see command.go). Spec.Command applies only Command.Stdin; Command.Stdout
// and Command.Stderr are not consulted, and the returned cmd's Stdout and
// Stderr stay nil unless the caller sets them.
type Stdio int

const (
	StdioInherit Stdio = iota
	StdioPipe
	StdioNull
)

// Command is the program bwrap execs after the `--` separator.
type Command struct {
	Program string
	Args    []string

	Stdin  Stdio
	Stdout Stdio
	Stderr Stdio
}

// Spec is a builder for one sandboxed invocation. Setters are idempotent;
// BuildArgs is the single operation that lowers the accumulated state to an
// argument vector. The builder itself cannot fail — a Spec is always
// lowerable; failures belong to whatever spawns the resulting argv.
type Spec struct {
	Launcher string

	clearEnv bool
	env      map[string]string
	envOrder []string
	unsetEnv map[string]struct{}

	fs []FsSpec
	NS Namespace

	Command Command
}

// NewSpec returns an empty builder. Launcher, if left empty, defaults to
// "bwrap" on the caller's PATH when the spec is turned into an *exec.Cmd.
func NewSpec() *Spec {
	return &Spec{
		env:      make(map[string]string),
		unsetEnv: make(map[string]struct{}),
	}
}

// ClearEnv toggles emission of --clearenv. Setting it to true drops every
// env/unset_env entry accumulated so far; setting it to false leaves prior
// entries intact. Entries added after the call are unaffected either way.
func (s *Spec) ClearEnv(clear bool) *Spec {
	s.clearEnv = clear

	if clear {
		s.env = make(map[string]string)
		s.envOrder = nil
		s.unsetEnv = make(map[string]struct{})
	}

	return s
}

// SetEnv records a --setenv pair. Setting the same key twice overwrites the
// value; the key keeps its original position in envOrder so repeated golden
// tests stay stable even though the spec itself only promises "any stable
// order" for env emission.
func (s *Spec) SetEnv(key, value string) *Spec {
	if _, exists := s.env[key]; !exists {
		s.envOrder = append(s.envOrder, key)
	}

	s.env[key] = value
	delete(s.unsetEnv, key)

	return s
}

// UnsetEnv records a --unsetenv entry.
func (s *Spec) UnsetEnv(key string) *Spec {
	s.unsetEnv[key] = struct{}{}
	delete(s.env, key)

	for i, k := range s.envOrder {
		if k == key {
			s.envOrder = append(s.envOrder[:i], s.envOrder[i+1:]...)
			break
		}
	}

	return s
}

// AddFs appends one FsSpec entry. Order is significant: entries lower in the
// order they were added, and later mounts can shadow or build on earlier
// ones (e.g. a bind into a directory Dir just created).
func (s *Spec) AddFs(spec FsSpec) *Spec {
	s.fs = append(s.fs, spec)
	return s
}

// SetCwd sets the sandbox's working directory, overriding any prior value.
func (s *Spec) SetCwd(path string) *Spec {
	s.NS.Cwd = &path
	return s
}

// UnsetCwd removes a previously set working directory.
func (s *Spec) UnsetCwd() *Spec {
	s.NS.Cwd = nil
	return s
}

func perm(p uint64) *uint64 { return &p }

func size(v uint64) *uint64 { return &v }

// Convenience constructors. Each is a thin wrapper appending the matching
// FsSpec variant with Permission=nil and (where applicable) Size=nil — use
// the struct literals directly when an explicit permission or size is
// needed.

// Bind appends a read-write bind mount.
func (s *Spec) Bind(src, dst string) *Spec {
	return s.AddFs(Bind{Source: src, Destination: dst})
}

// BindReadOnly appends a read-only bind mount.
func (s *Spec) BindReadOnly(src, dst string) *Spec {
	return s.AddFs(Bind{Source: src, Destination: dst, ReadOnly: true})
}

// TryBind appends a read-write bind mount that is skipped rather than
// failing the sandbox launch if Source does not exist.
func (s *Spec) TryBind(src, dst string) *Spec {
	return s.AddFs(Bind{Source: src, Destination: dst, Try: true})
}

// ProcDir appends a procfs mount.
func (s *Spec) ProcDir(dst string) *Spec {
	return s.AddFs(Proc{Destination: dst})
}

// DevDir appends a devfs mount.
func (s *Spec) DevDir(dst string) *Spec {
	return s.AddFs(Dev{Destination: dst})
}

// Tmpfs appends an unbounded tmpfs mount.
func (s *Spec) Tmpfs(dst string) *Spec {
	return s.AddFs(TmpFs{Destination: dst})
}

// Dir appends a directory-creation entry.
func (s *Spec) Dir(dst string) *Spec {
	return s.AddFs(Dir{Destination: dst})
}

// Symlink appends a symlink-creation entry.
func (s *Spec) Symlink(target, dst string) *Spec {
	return s.AddFs(Symlink{Source: target, Destination: dst})
}

// File appends a --file entry backed by fd. The FD must stay open and
// inherited through to the spawned child; see Command() in command.go.
func (s *Spec) File(fd uintptr, dst string) *Spec {
	return s.AddFs(File{FD: fd, Destination: dst})
}

// Data appends a read-write --data entry backed by fd.
//
// Nothing else in this module calls this constructor: runner files and
// submissions are mounted read-only via Bind, and the trace FD is installed
// with File. Data itself remains a fully supported FsSpec variant for direct
// construction.
func (s *Spec) Data(fd uintptr, dst string) *Spec {
	return s.AddFs(Data{FD: fd, Destination: dst})
}

// BuildArgs lowers the accumulated builder state to bwrap's argument vector.
// The order is fixed: clearenv, setenv, unsetenv, fs entries in insertion
// order, namespace flags/uid/gid/hostname/chdir, the "--" separator, then
// the command itself.
func (s *Spec) BuildArgs() []string {
	var args []string

	if s.clearEnv {
		args = append(args, "--clearenv")
	}

	for _, k := range s.envOrder {
		args = append(args, "--setenv", k, s.env[k])
	}

	unsetKeys := make([]string, 0, len(s.unsetEnv))
	for k := range s.unsetEnv {
		unsetKeys = append(unsetKeys, k)
	}

	for _, k := range unsetKeys {
		args = append(args, "--unsetenv", k)
	}

	for _, f := range s.fs {
		args = append(args, lowerFsSpec(f)...)
	}

	args = append(args, s.NS.lower()...)

	args = append(args, "--")
	args = append(args, s.Command.Program)
	args = append(args, s.Command.Args...)

	return args
}

func (s Stdio) String() string {
	switch s {
	case StdioInherit:
		return "inherit"
	case StdioPipe:
		return "pipe"
	case StdioNull:
		return "null"
	default:
		return fmt.Sprintf("Stdio(%d)", int(s))
	}
}
