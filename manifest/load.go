package manifest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Registry is a fail-fast set of every loaded, validated Manifest, keyed by
// name. Construction runs all startup-time validation; a Registry that
// exists is known-good.
type Registry struct {
	root      string
	manifests map[string]Manifest
}

// Load walks root (expected to be "./runners") for one manifest.yml per
// immediate subdirectory, parses and validates each, and fails closed: any
// single manifest error prevents the whole registry from being built.
func Load(root string) (*Registry, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("manifest: read runners directory %q: %w", root, err)
	}

	reg := &Registry{root: root, manifests: make(map[string]Manifest, len(entries))}

	var errs []error

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		name := entry.Name()
		runnerDir := filepath.Join(root, name)
		manifestPath := filepath.Join(runnerDir, "manifest.yml")

		data, err := os.ReadFile(manifestPath)
		if err != nil {
			errs = append(errs, fmt.Errorf("manifest %s: %w", name, err))
			continue
		}

		m, err := Parse(name, data)
		if err != nil {
			errs = append(errs, fmt.Errorf("manifest %s: %w", name, err))
			continue
		}

		if err := m.Validate(runnerDir); err != nil {
			errs = append(errs, fmt.Errorf("manifest %s: %w", name, err))
			continue
		}

		reg.manifests[name] = m
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	return reg, nil
}

// Get returns the manifest registered under name.
func (r *Registry) Get(name string) (Manifest, bool) {
	m, ok := r.manifests[name]
	return m, ok
}

// Dir returns the on-disk directory backing a named runner's manifest.
func (r *Registry) Dir(name string) string {
	return filepath.Join(r.root, name)
}

// Names returns every loaded runner name.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.manifests))
	for name := range r.manifests {
		out = append(out, name)
	}

	return out
}
