package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// cli drives Run(...) directly, in-process, the same way the command itself
// is invoked from main — no compiled binary involved.
type cli struct {
	t *testing.T
}

func newCLI(t *testing.T) *cli {
	t.Helper()
	return &cli{t: t}
}

// run invokes Run with a synthetic argv (args[0] stands in for os.Args[0]
// and is never inspected) and returns stdout, stderr, and the exit code.
func (c *cli) run(args ...string) (string, string, int) {
	c.t.Helper()

	var stdout, stderr bytes.Buffer

	fullArgs := append([]string{programName}, args...)
	code := Run(strings.NewReader(""), &stdout, &stderr, fullArgs, nil)

	return stdout.String(), stderr.String(), code
}

// mustWriteManifest writes a runner manifest.yml under root/name, creating
// the directory as needed.
func mustWriteManifest(t *testing.T, root, name, contents string) {
	t.Helper()

	dir := filepath.Join(root, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %q: %v", dir, err)
	}

	if err := os.WriteFile(filepath.Join(dir, "manifest.yml"), []byte(contents), 0o644); err != nil {
		t.Fatalf("write manifest for %q: %v", name, err)
	}
}
