// Package runner resolves a validated manifest.Manifest into a Runner, and a
// Runner plus a submission into a ready-to-build bwrap.Spec.
package runner

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/forgecode/sandrunner/manifest"
)

// Runner is an immutable, fully-resolved runner: its manifest plus the
// resolved absolute host paths for every binary and file dependency.
// Construction (NewRunner) is the only place these maps are built; nothing
// downstream mutates a Runner.
type Runner struct {
	ID       uuid.UUID
	Manifest manifest.Manifest

	// BinDeps maps a $PATH-visible name to its resolved absolute host path.
	BinDeps map[string]string

	// FileDeps maps a resolved absolute host path to its runner-relative
	// guest path.
	FileDeps map[string]string
}

// NewRunner builds a Runner from a validated manifest loaded from runnerDir.
// It re-runs VerifyBinDeps/VerifyFilesDeps to capture the resolved maps —
// manifest.Registry's own Load already proved these succeed once, so a
// failure here indicates the host environment changed between startup
// validation and registry build (e.g. a dependency binary was removed).
func NewRunner(m manifest.Manifest, runnerDir string) (*Runner, error) {
	binDeps, err := m.VerifyBinDeps()
	if err != nil {
		return nil, fmt.Errorf("runner: %s: %w", m.Name, err)
	}

	fileDeps, err := m.VerifyFilesDeps(runnerDir)
	if err != nil {
		return nil, fmt.Errorf("runner: %s: %w", m.Name, err)
	}

	return &Runner{
		ID:       uuid.New(),
		Manifest: m,
		BinDeps:  binDeps,
		FileDeps: fileDeps,
	}, nil
}

// Registry is the immutable, read-only-after-build set of every Runner.
// Shareable across goroutines without locking.
type Registry struct {
	runners map[string]*Runner
}

// BuildRegistry constructs one Runner per entry in reg, failing closed on
// the first error (mirrors manifest.Load's own fail-fast startup contract).
func BuildRegistry(reg *manifest.Registry) (*Registry, error) {
	out := &Registry{runners: make(map[string]*Runner, len(reg.Names()))}

	for _, name := range reg.Names() {
		m, _ := reg.Get(name)

		r, err := NewRunner(m, reg.Dir(name))
		if err != nil {
			return nil, err
		}

		out.runners[name] = r
	}

	return out, nil
}

// Get returns the Runner registered under name.
func (r *Registry) Get(name string) (*Runner, bool) {
	runner, ok := r.runners[name]
	return runner, ok
}
