package runner

import (
	"bufio"
	"os"
	"strings"

	"github.com/forgecode/sandrunner/bwrap"
)

// DistroHook mutates a bwrap.Spec in progress to accommodate a specific
// Linux distribution's filesystem layout. A hook may add or modify FsSpec
// entries; it runs after the Resolver's own mounts are in place.
type DistroHook func(spec *bwrap.Spec) error

// distroHandlers is a static registry from /etc/lsb-release's DISTRIB_ID to
// a DistroHook. A plain map is the idiomatic Go stand-in for a compile-time
// perfect-hash map: the handler set is small and changes rarely enough that
// a map literal's lookup cost is irrelevant.
var distroHandlers = map[string]DistroHook{
	"nixos":  nixosHandling,
	"Ubuntu": ubuntuHandling,
}

// nixosHandling binds /nix read-only: binaries resolved via PATH lookup on
// NixOS transitively depend on /nix/store, which would otherwise be
// invisible inside the sandbox.
func nixosHandling(spec *bwrap.Spec) error {
	spec.BindReadOnly("/nix", "/nix")
	return nil
}

// ubuntuHandling needs no adjustment; Ubuntu's binaries resolve against
// paths already covered by bin_deps binds.
func ubuntuHandling(spec *bwrap.Spec) error {
	return nil
}

// DetectDistro reads DISTRIB_ID from /etc/lsb-release. A missing file or a
// missing DISTRIB_ID line is not an error: it simply yields no hook.
func DetectDistro() (string, error) {
	f, err := os.Open("/etc/lsb-release")
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}

		return "", err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		name, value, found := strings.Cut(line, "=")
		if !found || name != "DISTRIB_ID" {
			continue
		}

		return strings.Trim(value, `"`), nil
	}

	return "", scanner.Err()
}

// ApplyDistroHook looks up and runs the hook registered for distroID. An
// unknown or empty distroID is not an error; the spec is left unchanged.
func ApplyDistroHook(distroID string, spec *bwrap.Spec) error {
	hook, ok := distroHandlers[distroID]
	if !ok {
		return nil
	}

	return hook(spec)
}
