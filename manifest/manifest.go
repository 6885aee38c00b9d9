// Package manifest loads and validates runner manifests: the declarative
// description of one sandboxed command ("runner") that lives at
// ./runners/<name>/manifest.yml.
package manifest

import (
	"errors"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultCommands is the fixed coreutils+bash list installed into every
// runner's $PATH unless the manifest sets NoDefaultBinary.
var DefaultCommands = []string{
	"[", "arch", "b2sum", "base32", "base64", "basename", "basenc", "bash",
	"cat", "chcon", "chgrp", "chmod", "chown", "chroot", "cksum", "comm",
	"cp", "csplit", "cut", "date", "dd", "df", "dir", "dircolors", "dirname",
	"du", "echo", "env", "expand", "expr", "factor", "false", "fmt", "fold",
	"groups", "head", "hostid", "id", "install", "join", "link", "ln",
	"logname", "ls", "md5sum", "mkdir", "mkfifo", "mknod", "mktemp", "mv",
	"nice", "nl", "nohup", "nproc", "numfmt", "od", "paste", "pathchk",
	"pinky", "pr", "printenv", "printf", "ptx", "pwd", "readlink", "realpath",
	"rm", "rmdir", "runcon", "seq", "sha1sum", "sha224sum", "sha256sum",
	"sha384sum", "sha512sum", "shred", "shuf", "sleep", "sort", "split",
	"stat", "stdbuf", "stty", "sum", "sync", "tac", "tail", "tee", "test",
	"timeout", "touch", "tr", "true", "truncate", "tsort", "tty", "uname",
	"unexpand", "uniq", "unlink", "uptime", "users", "vdir", "wc", "who",
	"whoami", "yes",
}

// defaultTimeout is used when a manifest omits the timeout field.
const defaultTimeout = 10 * time.Second

// Duration decodes either a bare YAML integer (interpreted as whole
// seconds) or a Go duration string ("30s", "2m") into a time.Duration,
// defaulting to 10s when the field is absent from the document entirely.
type Duration time.Duration

func (d Duration) Duration() time.Duration { return time.Duration(d) }

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var seconds int64
	if err := value.Decode(&seconds); err == nil {
		*d = Duration(time.Duration(seconds) * time.Second)
		return nil
	}

	var text string
	if err := value.Decode(&text); err != nil {
		return fmt.Errorf("manifest: timeout must be an integer number of seconds or a duration string: %w", err)
	}

	parsed, err := time.ParseDuration(text)
	if err != nil {
		return fmt.Errorf("manifest: invalid timeout %q: %w", text, err)
	}

	*d = Duration(parsed)

	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Manifest is the declarative description of one runner, read from
// ./runners/<name>/manifest.yml.
type Manifest struct {
	// Name is the runner's name, derived from its directory rather than
	// decoded from YAML (see Load).
	Name string `yaml:"-"`

	// ShowTrace controls whether the trace produced by a run is surfaced to
	// the caller. TRACE_FILE is always present regardless of this setting.
	ShowTrace bool `yaml:"show_trace"`

	// BinDeps lists programs that must be resolvable on PATH and made
	// available inside the sandbox's $PATH.
	BinDeps []string `yaml:"bin_deps"`

	// FilesDeps maps a path relative to the runner's own directory to the
	// guest-relative path it should appear at inside the sandbox.
	FilesDeps map[string]string `yaml:"files_deps"`

	// Entry is the program launched inside the sandbox. It is passed to
	// bwrap verbatim; it is not resolved against the runner directory.
	Entry string `yaml:"entry"`

	// Timeout bounds how long a run may execute before being killed.
	// Defaults to 10s when absent.
	Timeout Duration `yaml:"timeout"`

	// NoDefaultBinary disables installing DefaultCommands into $PATH.
	NoDefaultBinary bool `yaml:"no_default_binary"`

	// ExitStatus maps a guest exit code to a human-readable label. Key 0 is
	// rejected: a successful run needs no special label.
	ExitStatus map[int]string `yaml:"exit_status"`
}

// knownFields mirrors Manifest's yaml tags; used by decodeStrict to reject
// unrecognized keys, since yaml.v3 has no DisallowUnknownFields equivalent.
var knownFields = map[string]struct{}{
	"show_trace":        {},
	"bin_deps":          {},
	"files_deps":        {},
	"entry":             {},
	"timeout":           {},
	"no_default_binary": {},
	"exit_status":       {},
}

// decodeStrict decodes raw manifest YAML, rejecting any top-level field not
// present in knownFields.
func decodeStrict(data []byte) (Manifest, error) {
	var probe map[string]yaml.Node

	if err := yaml.Unmarshal(data, &probe); err != nil {
		return Manifest{}, fmt.Errorf("manifest: parse: %w", err)
	}

	var unknown []string

	for key := range probe {
		if _, ok := knownFields[key]; !ok {
			unknown = append(unknown, key)
		}
	}

	if len(unknown) > 0 {
		return Manifest{}, fmt.Errorf("manifest: unknown field(s): %v", unknown)
	}

	m := Manifest{Timeout: Duration(defaultTimeout)}
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("manifest: decode: %w", err)
	}

	return m, nil
}

// Parse decodes a manifest document, applying the default timeout and
// rejecting unknown fields and an exit_status entry for code 0.
func Parse(name string, data []byte) (Manifest, error) {
	m, err := decodeStrict(data)
	if err != nil {
		return Manifest{}, err
	}

	m.Name = name

	if _, reserved := m.ExitStatus[0]; reserved {
		return Manifest{}, errors.New("manifest: exit_status must not label exit code 0")
	}

	return m, nil
}
