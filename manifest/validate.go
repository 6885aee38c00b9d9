package manifest

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
)

// BinDepError is returned by VerifyBinDeps.
type BinDepError struct {
	Bin    string
	Reason string
	Cause  error
}

func (e *BinDepError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("manifest: binary dependency %q: %s: %v", e.Bin, e.Reason, e.Cause)
	}

	return fmt.Sprintf("manifest: binary dependency %q: %s", e.Bin, e.Reason)
}

func (e *BinDepError) Unwrap() error { return e.Cause }

// FilesDepError is returned by VerifyFilesDeps.
type FilesDepError struct {
	Path   string
	Reason string
}

func (e *FilesDepError) Error() string {
	return fmt.Sprintf("manifest: files dependency %q: %s", e.Path, e.Reason)
}

// VerifyBinDeps resolves every declared bin_deps entry against PATH, then —
// unless NoDefaultBinary is set — resolves every entry in DefaultCommands
// not already declared. The result maps name to the resolved absolute host
// path. A name appearing twice in bin_deps, or any unresolvable name, fails
// the whole manifest.
func (m Manifest) VerifyBinDeps() (map[string]string, error) {
	out := make(map[string]string, len(m.BinDeps))

	for _, bin := range m.BinDeps {
		if _, exists := out[bin]; exists {
			return nil, &BinDepError{Bin: bin, Reason: "duplicate"}
		}

		path, err := exec.LookPath(bin)
		if err != nil {
			return nil, &BinDepError{Bin: bin, Reason: "not found on PATH", Cause: err}
		}

		out[bin] = path
	}

	if m.NoDefaultBinary {
		return out, nil
	}

	for _, bin := range DefaultCommands {
		if _, exists := out[bin]; exists {
			continue
		}

		path, err := exec.LookPath(bin)
		if err != nil {
			return nil, &BinDepError{Bin: bin, Reason: "default command not found on PATH", Cause: err}
		}

		out[bin] = path
	}

	return out, nil
}

// VerifyFilesDeps resolves every files_deps entry against the runner's
// directory, rejecting duplicate guest paths and any path with a ".." or
// drive-prefix component, host or guest side. The result maps the resolved
// absolute host path to its (still runner-relative) guest path; the
// per-run random prefix is applied at resolve time, not here.
func (m Manifest) VerifyFilesDeps(runnerDir string) (map[string]string, error) {
	out := make(map[string]string, len(m.FilesDeps))

	guestSeen := make(map[string]int, len(m.FilesDeps))
	for _, guest := range m.FilesDeps {
		guestSeen[guest]++
	}

	var dupes []string
	for guest, count := range guestSeen {
		if count > 1 {
			dupes = append(dupes, guest)
		}
	}

	if len(dupes) > 0 {
		sort.Strings(dupes)
		return nil, &FilesDepError{Path: strings.Join(dupes, ", "), Reason: "duplicate guest path"}
	}

	for hostRel, guest := range m.FilesDeps {
		if err := rejectPathTraversal(hostRel); err != nil {
			return nil, err
		}

		if err := rejectPathTraversal(guest); err != nil {
			return nil, err
		}

		hostAbs := filepath.Join(runnerDir, hostRel)

		if _, err := os.Stat(hostAbs); err != nil {
			return nil, &FilesDepError{Path: hostRel, Reason: "missing on disk"}
		}

		out[hostAbs] = guest
	}

	return out, nil
}

// rejectPathTraversal rejects a ".." component or a Windows-style volume
// prefix in path. Manifests are OS-portable declarations; a submitted path
// escaping the runner directory is a path-traversal attempt regardless of
// host OS.
func rejectPathTraversal(path string) error {
	drive := len(path) >= 2 && path[1] == ':' &&
		(('a' <= path[0] && path[0] <= 'z') || ('A' <= path[0] && path[0] <= 'Z'))

	if filepath.VolumeName(path) != "" || drive {
		return &FilesDepError{Path: path, Reason: "drive/volume prefix not allowed"}
	}

	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part == ".." {
			return &FilesDepError{Path: path, Reason: "\"..\" path component not allowed"}
		}
	}

	return nil
}

// Validate runs VerifyBinDeps and VerifyFilesDeps and joins any failures;
// called once per manifest at startup before the service accepts requests.
func (m Manifest) Validate(runnerDir string) error {
	var errs []error

	if _, err := m.VerifyBinDeps(); err != nil {
		errs = append(errs, err)
	}

	if _, err := m.VerifyFilesDeps(runnerDir); err != nil {
		errs = append(errs, err)
	}

	if strings.TrimSpace(m.Entry) == "" {
		errs = append(errs, errors.New("manifest: entry is required"))
	}

	return errors.Join(errs...)
}
