package runner

import (
	"path/filepath"
	"testing"

	"github.com/google/uuid"

	"github.com/forgecode/sandrunner/manifest"
)

func Test_NewRunner_ResolvesDeps(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	m := manifest.Manifest{
		Name:            "echo-runner",
		Entry:           "./entry.sh",
		NoDefaultBinary: true,
	}

	r, err := NewRunner(m, dir)
	if err != nil {
		t.Fatalf("NewRunner() error = %v", err)
	}

	if r.ID == uuid.Nil {
		t.Error("NewRunner() produced a zero-value ID")
	}

	if r.Manifest.Name != "echo-runner" {
		t.Errorf("Manifest.Name = %q, want %q", r.Manifest.Name, "echo-runner")
	}
}

func Test_NewRunner_FailsOnMissingFileDep(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	m := manifest.Manifest{
		Name:            "broken-runner",
		Entry:           "./entry.sh",
		NoDefaultBinary: true,
		FilesDeps:       map[string]string{"missing.txt": "guest.txt"},
	}

	if _, err := NewRunner(m, dir); err == nil {
		t.Fatal("NewRunner() error = nil, want error for missing files_deps entry")
	}
}

func Test_BuildRegistry_EachRunnerResolvesIndependently(t *testing.T) {
	t.Parallel()

	root := t.TempDir()

	for _, name := range []string{"a", "b"} {
		runnerDir := filepath.Join(root, name)
		mustMkdirAll(t, runnerDir)
		mustWriteManifest(t, filepath.Join(runnerDir, "manifest.yml"), "entry: ./entry.sh\nno_default_binary: true\n")
	}

	reg, err := manifest.Load(root)
	if err != nil {
		t.Fatalf("manifest.Load() error = %v", err)
	}

	runnerReg, err := BuildRegistry(reg)
	if err != nil {
		t.Fatalf("BuildRegistry() error = %v", err)
	}

	for _, name := range []string{"a", "b"} {
		if _, ok := runnerReg.Get(name); !ok {
			t.Errorf("Registry.Get(%q) missing", name)
		}
	}
}
