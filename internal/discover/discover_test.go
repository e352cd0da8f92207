package discover

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestFilesMatchesAndSorts(t *testing.T) {
	tmpDir := t.TempDir()
	// Created out of lexical order on purpose.
	for _, name := range []string{"test_zeta.py", "test_alpha.py", "notes.txt", "test_mid.py"} {
		writeFile(t, tmpDir, name)
	}
	// Directories never match, even with a matching name.
	if err := os.Mkdir(filepath.Join(tmpDir, "test_dir.py"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	got, err := Files(tmpDir, "test_*.py")
	if err != nil {
		t.Fatalf("Files failed: %v", err)
	}

	want := []string{
		filepath.Join(tmpDir, "test_alpha.py"),
		filepath.Join(tmpDir, "test_mid.py"),
		filepath.Join(tmpDir, "test_zeta.py"),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("discovered files mismatch (-want +got):\n%s", diff)
	}
}

func TestFilesEmptyMatchIsNotAnError(t *testing.T) {
	tmpDir := t.TempDir()
	writeFile(t, tmpDir, "README.md")

	got, err := Files(tmpDir, "test_*.py")
	if err != nil {
		t.Fatalf("Files failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no matches, got %v", got)
	}
}

func TestFilesMissingDirectoryIsFatal(t *testing.T) {
	_, err := Files(filepath.Join(t.TempDir(), "absent"), "test_*.py")
	if err == nil {
		t.Fatal("Files succeeded on a missing directory, want error")
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected a not-exist error, got %v", err)
	}
}

func TestFilesRejectsBadPattern(t *testing.T) {
	if _, err := Files(t.TempDir(), "test_[.py"); err == nil {
		t.Fatal("Files accepted an invalid pattern")
	}
}

func TestFilesAlternates(t *testing.T) {
	tmpDir := t.TempDir()
	writeFile(t, tmpDir, "run_output.csv")
	writeFile(t, tmpDir, "run_output.log")
	writeFile(t, tmpDir, "run.csv")

	got, err := Files(tmpDir, "*output*.{csv,log}")
	if err != nil {
		t.Fatalf("Files failed: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("expected 2 matches, got %v", got)
	}
}

func TestTreeFindsNestedMatches(t *testing.T) {
	tmpDir := t.TempDir()
	writeFile(t, tmpDir, "run_output.csv")
	nested := filepath.Join(tmpDir, "cases", "deep")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	writeFile(t, nested, "sim_output.csv")
	writeFile(t, nested, "test_sim.py")

	got, err := Tree(tmpDir, "*output*.csv")
	if err != nil {
		t.Fatalf("Tree failed: %v", err)
	}

	want := []string{
		filepath.Join(nested, "sim_output.csv"),
		filepath.Join(tmpDir, "run_output.csv"),
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("tree matches mismatch (-want +got):\n%s", diff)
	}
}

func TestTreeEmptyMatchIsNotAnError(t *testing.T) {
	got, err := Tree(t.TempDir(), "*output*.csv")
	if err != nil {
		t.Fatalf("Tree failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no matches, got %v", got)
	}
}

func TestTreeMissingDirectoryIsFatal(t *testing.T) {
	if _, err := Tree(filepath.Join(t.TempDir(), "absent"), "*"); err == nil {
		t.Fatal("Tree succeeded on a missing directory, want error")
	}
}

func writeFile(t *testing.T, dir, name string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
}
