package runner

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"path"

	"github.com/forgecode/sandrunner/bwrap"
)

// tokenBytes is the width of the per-run random token T, hex-encoded into
// the guest paths under /files/T and /submitted/T. 16 bytes keeps guest
// paths short while leaving collision probability negligible for the
// lifetime of a single run.
const tokenBytes = 16

func newToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("runner: generate run token: %w", err)
	}

	return hex.EncodeToString(buf), nil
}

// Resolve builds a bwrap.Spec for one run of r against submittedRoot (a host
// directory holding the user's submission) and traceFD (a writable FD the
// sandboxed entry point can log a trace into at /trace). distroID selects
// the DistroHook to apply, if any; pass the empty string to skip it.
func Resolve(r *Runner, submittedRoot string, traceFD uintptr, distroID string) (*bwrap.Spec, error) {
	token, err := newToken()
	if err != nil {
		return nil, err
	}

	spec := bwrap.NewSpec()

	for hostAbs, guestRel := range r.FileDeps {
		spec.AddFs(bwrap.Bind{
			Source:      hostAbs,
			Destination: path.Join("/files", token, guestRel),
			ReadOnly:    true,
		})
	}

	spec.AddFs(bwrap.Bind{
		Source:      submittedRoot,
		Destination: path.Join("/submitted", token),
		ReadOnly:    true,
	})

	for name, hostAbs := range r.BinDeps {
		spec.AddFs(bwrap.Bind{
			Source:      hostAbs,
			Destination: path.Join("/bin", name),
			ReadOnly:    true,
		})
	}

	spec.ProcDir("/proc")
	spec.DevDir("/dev")
	spec.Tmpfs("/tmp")

	spec.File(traceFD, "/trace")

	spec.ClearEnv(true)
	spec.SetEnv("FILES_ROOT", path.Join("/files", token))
	spec.SetEnv("SUBMITTED_ROOT", path.Join("/submitted", token))
	spec.SetEnv("TRACE_FILE", "/trace")
	spec.SetEnv("PATH", "/bin")

	if err := ApplyDistroHook(distroID, spec); err != nil {
		return nil, fmt.Errorf("runner: distro hook %q: %w", distroID, err)
	}

	spec.NS.Flags = bwrap.FlagAll | bwrap.FlagDieWithParent | bwrap.FlagNewSession

	spec.Command = bwrap.Command{
		Program: r.Manifest.Entry,
	}

	return spec, nil
}
