package manifest

import (
	"os"
	"path/filepath"
	"testing"
)

func Test_VerifyBinDeps_RejectsDuplicates(t *testing.T) {
	t.Parallel()

	m := Manifest{BinDeps: []string{"ls", "ls"}, NoDefaultBinary: true}

	_, err := m.VerifyBinDeps()
	if err == nil {
		t.Fatal("VerifyBinDeps() error = nil, want duplicate error")
	}
}

func Test_VerifyBinDeps_NoDefaultBinary_SkipsDefaults(t *testing.T) {
	t.Parallel()

	m := Manifest{NoDefaultBinary: true}

	out, err := m.VerifyBinDeps()
	if err != nil {
		t.Fatalf("VerifyBinDeps() error = %v", err)
	}

	if len(out) != 0 {
		t.Errorf("VerifyBinDeps() = %v, want empty map", out)
	}
}

func Test_VerifyFilesDeps_RejectsDuplicateGuestPaths(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	mustWriteFile(t, filepath.Join(dir, "a.txt"))
	mustWriteFile(t, filepath.Join(dir, "b.txt"))

	m := Manifest{FilesDeps: map[string]string{
		"a.txt": "shared.txt",
		"b.txt": "shared.txt",
	}}

	_, err := m.VerifyFilesDeps(dir)
	if err == nil {
		t.Fatal("VerifyFilesDeps() error = nil, want duplicate guest path error")
	}
}

func Test_VerifyFilesDeps_RejectsParentDirTraversal_HostSide(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	m := Manifest{FilesDeps: map[string]string{
		"../escape.txt": "safe.txt",
	}}

	_, err := m.VerifyFilesDeps(dir)
	if err == nil {
		t.Fatal("VerifyFilesDeps() error = nil, want path traversal error")
	}
}

func Test_VerifyFilesDeps_RejectsParentDirTraversal_GuestSide(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	mustWriteFile(t, filepath.Join(dir, "a.txt"))

	m := Manifest{FilesDeps: map[string]string{
		"a.txt": "../escape.txt",
	}}

	_, err := m.VerifyFilesDeps(dir)
	if err == nil {
		t.Fatal("VerifyFilesDeps() error = nil, want path traversal error")
	}
}

func Test_VerifyFilesDeps_RejectsMissingFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	m := Manifest{FilesDeps: map[string]string{
		"missing.txt": "guest.txt",
	}}

	_, err := m.VerifyFilesDeps(dir)
	if err == nil {
		t.Fatal("VerifyFilesDeps() error = nil, want missing file error")
	}
}

func Test_VerifyFilesDeps_ResolvesToAbsoluteHostPath(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	mustWriteFile(t, filepath.Join(dir, "a.txt"))

	m := Manifest{FilesDeps: map[string]string{
		"a.txt": "guest/a.txt",
	}}

	out, err := m.VerifyFilesDeps(dir)
	if err != nil {
		t.Fatalf("VerifyFilesDeps() error = %v", err)
	}

	wantHostAbs := filepath.Join(dir, "a.txt")
	if got, ok := out[wantHostAbs]; !ok || got != "guest/a.txt" {
		t.Errorf("VerifyFilesDeps() = %v, want %q -> %q", out, wantHostAbs, "guest/a.txt")
	}
}

func mustWriteFile(t *testing.T, path string) {
	t.Helper()

	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write %q: %v", path, err)
	}
}
